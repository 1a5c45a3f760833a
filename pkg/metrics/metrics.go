package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Cluster metrics
	NodesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "piccolo_nodes_total",
			Help: "Total number of nodes by role and status",
		},
		[]string{"role", "status"},
	)

	HeartbeatsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "piccolo_heartbeats_total",
			Help: "Total number of heartbeats processed",
		},
	)

	RegistrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "piccolo_registrations_total",
			Help: "Total number of node registration attempts by outcome",
		},
		[]string{"outcome"},
	)

	// State manager metrics
	ModelsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "piccolo_models_total",
			Help: "Total number of models by derived state",
		},
		[]string{"state"},
	)

	PackagesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "piccolo_packages_total",
			Help: "Total number of packages by derived state",
		},
		[]string{"state"},
	)

	CascadeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "piccolo_cascade_duration_seconds",
			Help:    "Duration of container batch ingest including cascade",
			Buckets: prometheus.DefBuckets,
		},
	)

	ReconcileDispatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "piccolo_reconcile_dispatches_total",
			Help: "Total reconcile dispatches to the action controller by outcome",
		},
		[]string{"outcome"},
	)

	// Store metrics
	StoreErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "piccolo_store_errors_total",
			Help: "Total KV store operation failures by operation",
		},
		[]string{"op"},
	)
)

func init() {
	prometheus.MustRegister(
		NodesTotal,
		HeartbeatsTotal,
		RegistrationsTotal,
		ModelsTotal,
		PackagesTotal,
		CascadeDuration,
		ReconcileDispatchesTotal,
		StoreErrorsTotal,
	)
}

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

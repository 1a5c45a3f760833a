// Package metrics exposes Prometheus metrics for the master: node counts
// by role and status, heartbeat and registration counters, cascade
// durations and reconcile dispatch outcomes. The Collector refreshes the
// gauges from the authoritative store; the REST server serves /metrics.
package metrics

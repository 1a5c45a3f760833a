package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/piccolo-io/piccolo/pkg/store"
	"github.com/piccolo-io/piccolo/pkg/types"
)

// NodeLister is the registry view the collector samples.
type NodeLister interface {
	List(ctx context.Context) ([]*types.Node, error)
}

// StateReader is the store view the collector samples.
type StateReader interface {
	GetPrefix(ctx context.Context, prefix string) ([]store.KV, error)
}

// Collector refreshes the cluster gauges from the authoritative store on
// a fixed cadence.
type Collector struct {
	nodes  NodeLister
	states StateReader
	stopCh chan struct{}
}

// NewCollector creates a metrics collector.
func NewCollector(nodes NodeLister, states StateReader) *Collector {
	return &Collector{
		nodes:  nodes,
		states: states,
		stopCh: make(chan struct{}),
	}
}

// Start begins collecting every 15 seconds.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c.collectNodes(ctx)
	c.collectStates(ctx, "/model/", ModelsTotal)
	c.collectStates(ctx, "/package/", PackagesTotal)
}

func (c *Collector) collectNodes(ctx context.Context) {
	nodes, err := c.nodes.List(ctx)
	if err != nil {
		return
	}
	NodesTotal.Reset()
	for _, n := range nodes {
		NodesTotal.WithLabelValues(string(n.Role), string(n.Status)).Inc()
	}
}

func (c *Collector) collectStates(ctx context.Context, prefix string, gauge *prometheus.GaugeVec) {
	kvs, err := c.states.GetPrefix(ctx, prefix)
	if err != nil {
		return
	}
	counts := make(map[string]int)
	for _, kv := range kvs {
		counts[kv.Value]++
	}
	gauge.Reset()
	for state, n := range counts {
		gauge.WithLabelValues(state).Set(float64(n))
	}
}

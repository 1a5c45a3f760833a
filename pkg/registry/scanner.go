package registry

import (
	"context"
	"encoding/json"
	"time"

	"github.com/piccolo-io/piccolo/pkg/events"
	"github.com/piccolo-io/piccolo/pkg/store"
	"github.com/piccolo-io/piccolo/pkg/types"
)

// Scanner is the periodic liveness check over all node records. It marks
// nodes Offline once their heartbeat is older than the offline threshold
// and Error once the failure timeout has also elapsed. It never deletes a
// record: an operator must deregister.
type Scanner struct {
	registry *Registry
	stopCh   chan struct{}
}

// NewScanner creates a liveness scanner for the registry.
func NewScanner(r *Registry) *Scanner {
	return &Scanner{
		registry: r,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the scan loop.
func (s *Scanner) Start() {
	go s.run()
}

// Stop stops the scan loop.
func (s *Scanner) Stop() {
	close(s.stopCh)
}

func (s *Scanner) run() {
	ticker := time.NewTicker(s.registry.cfg.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), s.registry.cfg.ScanInterval)
			if err := s.Scan(ctx); err != nil {
				s.registry.logger.Warn().Err(err).Msg("liveness scan failed")
			}
			cancel()
		case <-s.stopCh:
			return
		}
	}
}

// Scan performs one liveness pass. Each stale node is transitioned with a
// compare-and-swap on its record, so a heartbeat racing the scanner wins
// and the transition is skipped.
func (s *Scanner) Scan(ctx context.Context) error {
	kvs, err := s.registry.store.GetPrefix(ctx, store.NodesPrefix)
	if err != nil {
		return err
	}

	now := s.registry.nowFunc()
	offlineAfter := int64(s.registry.cfg.OfflineThreshold() / time.Second)
	errorAfter := offlineAfter + int64(s.registry.cfg.FailureTimeout/time.Second)

	for _, kv := range kvs {
		if store.IsNodeByNameKey(kv.Key) {
			continue
		}
		var node types.Node
		if err := json.Unmarshal([]byte(kv.Value), &node); err != nil {
			continue
		}

		age := now - node.LastHeartbeat
		switch node.Status {
		case types.NodeStatusOnline, types.NodeStatusInitializing:
			if age > offlineAfter {
				s.transition(ctx, kv.Value, node, types.NodeStatusOffline, events.EventNodeOffline)
			}
		case types.NodeStatusOffline:
			if age > errorAfter {
				s.transition(ctx, kv.Value, node, types.NodeStatusError, events.EventNodeError)
			}
		}
	}

	return nil
}

func (s *Scanner) transition(ctx context.Context, currentRecord string, node types.Node, to types.NodeStatus, eventType events.EventType) {
	from := node.Status
	node.Status = to
	data, err := json.Marshal(&node)
	if err != nil {
		return
	}

	swapped, err := s.registry.store.CompareAndSwap(ctx, store.NodeKey(node.NodeID), currentRecord, string(data))
	if err != nil {
		s.registry.logger.Warn().Err(err).Str("node_id", node.NodeID).Msg("liveness transition failed")
		return
	}
	if !swapped {
		// Record changed under us; most likely a heartbeat arrived.
		return
	}

	s.registry.logger.Warn().
		Str("node_id", node.NodeID).
		Str("node_name", node.NodeName).
		Str("from", string(from)).
		Str("to", string(to)).
		Int64("heartbeat_age_seconds", s.registry.nowFunc()-node.LastHeartbeat).
		Msg("node liveness transition")
	s.registry.publish(eventType, &node)
}

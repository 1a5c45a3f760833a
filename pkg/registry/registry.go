package registry

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/piccolo-io/piccolo/pkg/config"
	"github.com/piccolo-io/piccolo/pkg/errdefs"
	"github.com/piccolo-io/piccolo/pkg/events"
	"github.com/piccolo-io/piccolo/pkg/log"
	"github.com/piccolo-io/piccolo/pkg/metrics"
	"github.com/piccolo-io/piccolo/pkg/store"
	"github.com/piccolo-io/piccolo/pkg/types"
)

// ContainerIngester receives the container list carried by heartbeats.
// Implemented by the state manager.
type ContainerIngester interface {
	IngestContainerList(ctx context.Context, nodeName string, containers []*types.ContainerInfo) error
}

// Registry manages cluster membership. All reads are served from the KV
// store; there is no in-memory view that can diverge.
type Registry struct {
	store   store.Store
	cfg     config.Master
	broker  *events.Broker
	ingest  ContainerIngester
	logger  zerolog.Logger
	nowFunc func() int64
}

// RegisterSpec carries the caller-supplied part of a node registration.
type RegisterSpec struct {
	NodeName  string
	IPAddress string
	Role      types.NodeRole
	Resources types.NodeResources
	Labels    map[string]string
}

// NewRegistry creates a node registry over the given store. broker and
// ingester may be nil in tests.
func NewRegistry(st store.Store, cfg config.Master, broker *events.Broker, ingest ContainerIngester) *Registry {
	return &Registry{
		store:   st,
		cfg:     cfg,
		broker:  broker,
		ingest:  ingest,
		logger:  log.WithComponent("registry"),
		nowFunc: func() int64 { return time.Now().Unix() },
	}
}

// Register admits a node into the cluster and returns its record.
// Registration is idempotent on node_name: a node re-registering under a
// name it already owns gets its existing node_id back. Concurrent first
// registrations of the same name are serialized by compare-and-swap on the
// by-name index; exactly one wins, the rest read the winner's record.
func (r *Registry) Register(ctx context.Context, spec RegisterSpec) (*types.Node, error) {
	if spec.NodeName == "" {
		return nil, errdefs.InvalidArgument("node_name is required")
	}
	if spec.IPAddress == "" {
		return nil, errdefs.InvalidArgument("ip_address is required")
	}
	if spec.Role != types.NodeRoleMaster && spec.Role != types.NodeRoleSub {
		return nil, errdefs.InvalidArgument("role must be %q or %q, got %q",
			types.NodeRoleMaster, types.NodeRoleSub, spec.Role)
	}

	if spec.Role == types.NodeRoleMaster {
		if err := r.rejectSecondMaster(ctx, spec.NodeName); err != nil {
			metrics.RegistrationsTotal.WithLabelValues("conflict").Inc()
			return nil, err
		}
	}

	nodeID := uuid.New().String()
	ok, err := r.store.CompareAndSwap(ctx, store.NodeByNameKey(spec.NodeName), "", nodeID)
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	if !ok {
		// The name is taken: either this node is re-registering, or a
		// different node lost the race for the name.
		existingID, err := r.store.Get(ctx, store.NodeByNameKey(spec.NodeName))
		if err != nil {
			return nil, err
		}
		var node *types.Node
		for attempt := 0; ; attempt++ {
			node, err = r.Get(ctx, existingID)
			if err == nil || !errdefs.IsNotFound(err) || attempt >= 50 {
				break
			}
			// The winner has claimed the name but not yet written its record.
			select {
			case <-time.After(10 * time.Millisecond):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		if err != nil {
			return nil, err
		}
		if node.IPAddress != spec.IPAddress || node.Role != spec.Role {
			metrics.RegistrationsTotal.WithLabelValues("conflict").Inc()
			return nil, errdefs.Conflict("node name %q is already registered by %s", spec.NodeName, node.IPAddress)
		}
		metrics.RegistrationsTotal.WithLabelValues("idempotent").Inc()
		return r.refresh(ctx, node, spec)
	}

	now := r.nowFunc()
	node := &types.Node{
		NodeID:        nodeID,
		NodeName:      spec.NodeName,
		IPAddress:     spec.IPAddress,
		Role:          spec.Role,
		Status:        types.NodeStatusInitializing,
		Resources:     spec.Resources,
		Labels:        spec.Labels,
		CreatedAt:     now,
		LastHeartbeat: now,
	}

	if err := r.putNode(ctx, node); err != nil {
		return nil, err
	}
	if err := r.putHeartbeat(ctx, nodeID, now); err != nil {
		return nil, err
	}

	r.logger.Info().
		Str("node_id", nodeID).
		Str("node_name", spec.NodeName).
		Str("role", string(spec.Role)).
		Msg("node registered")
	r.publish(events.EventNodeRegistered, node)
	metrics.RegistrationsTotal.WithLabelValues("ok").Inc()

	return node, nil
}

// refresh updates a re-registering node's record with the freshly reported
// spec while keeping its identity and timestamps.
func (r *Registry) refresh(ctx context.Context, node *types.Node, spec RegisterSpec) (*types.Node, error) {
	node.IPAddress = spec.IPAddress
	node.Resources = spec.Resources
	node.Labels = spec.Labels
	node.Status = types.NodeStatusInitializing
	if now := r.nowFunc(); now > node.LastHeartbeat {
		node.LastHeartbeat = now
	}
	if err := r.putNode(ctx, node); err != nil {
		return nil, err
	}
	r.logger.Info().Str("node_id", node.NodeID).Str("node_name", node.NodeName).
		Msg("node re-registered")
	return node, nil
}

// rejectSecondMaster refuses a master registration while another master is
// online under a different name.
func (r *Registry) rejectSecondMaster(ctx context.Context, nodeName string) error {
	nodes, err := r.List(ctx)
	if err != nil {
		return err
	}
	for _, n := range nodes {
		if n.Role == types.NodeRoleMaster && n.NodeName != nodeName && n.Status.IsOnline() {
			return errdefs.Conflict("master %q is already online; a cluster has exactly one master", n.NodeName)
		}
	}
	return nil
}

// Heartbeat records a liveness report. last_heartbeat never moves
// backwards, so concurrent heartbeats for the same node are idempotent.
func (r *Registry) Heartbeat(ctx context.Context, nodeID string, usage types.NodeResources, containers []*types.ContainerInfo) error {
	node, err := r.Get(ctx, nodeID)
	if err != nil {
		return err
	}

	now := r.nowFunc()
	if now > node.LastHeartbeat {
		node.LastHeartbeat = now
	}
	node.Resources.CPUUsage = usage.CPUUsage
	node.Resources.MemoryUsage = usage.MemoryUsage
	if usage.CPUCores > 0 {
		node.Resources.CPUCores = usage.CPUCores
	}
	if usage.MemoryMB > 0 {
		node.Resources.MemoryMB = usage.MemoryMB
	}
	if usage.DiskGB > 0 {
		node.Resources.DiskGB = usage.DiskGB
	}

	switch node.Status {
	case types.NodeStatusInitializing, types.NodeStatusOffline:
		node.Status = types.NodeStatusOnline
		r.logger.Info().Str("node_id", nodeID).Str("node_name", node.NodeName).
			Msg("node online")
		r.publish(events.EventNodeOnline, node)
	}

	if err := r.putNode(ctx, node); err != nil {
		return err
	}
	if err := r.putHeartbeat(ctx, nodeID, node.LastHeartbeat); err != nil {
		return err
	}
	metrics.HeartbeatsTotal.Inc()

	if r.ingest != nil {
		if err := r.ingest.IngestContainerList(ctx, node.NodeName, containers); err != nil {
			// The heartbeat itself succeeded; the cascade converges on
			// the next report for the same containers.
			log.Failure(log.WithNode(r.logger, node.NodeName), err, "container ingest failed")
		}
	}

	return nil
}

// Get returns the node record for nodeID.
func (r *Registry) Get(ctx context.Context, nodeID string) (*types.Node, error) {
	value, err := r.store.Get(ctx, store.NodeKey(nodeID))
	if err != nil {
		if errdefs.IsNotFound(err) {
			return nil, errdefs.NotFound("node %s not found", nodeID)
		}
		return nil, err
	}
	var node types.Node
	if err := json.Unmarshal([]byte(value), &node); err != nil {
		return nil, errdefs.Internal(err, "corrupt node record %s", nodeID)
	}
	return &node, nil
}

// List returns all registered nodes.
func (r *Registry) List(ctx context.Context) ([]*types.Node, error) {
	kvs, err := r.store.GetPrefix(ctx, store.NodesPrefix)
	if err != nil {
		return nil, err
	}
	nodes := make([]*types.Node, 0, len(kvs))
	for _, kv := range kvs {
		if store.IsNodeByNameKey(kv.Key) {
			continue
		}
		var node types.Node
		if err := json.Unmarshal([]byte(kv.Value), &node); err != nil {
			r.logger.Error().Err(err).Str("key", kv.Key).Msg("skipping corrupt node record")
			continue
		}
		nodes = append(nodes, &node)
	}
	return nodes, nil
}

// Topology returns the membership view: the master and the sub nodes.
func (r *Registry) Topology(ctx context.Context) (*types.Topology, error) {
	nodes, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	topo := &types.Topology{Subs: make([]*types.Node, 0, len(nodes))}
	for _, n := range nodes {
		if n.Role == types.NodeRoleMaster {
			topo.Master = n
		} else {
			topo.Subs = append(topo.Subs, n)
		}
	}
	return topo, nil
}

// Deregister removes a node's record, heartbeat and name index. Container,
// model and package records derived from the node's reports are left
// untouched.
func (r *Registry) Deregister(ctx context.Context, nodeID string) error {
	node, err := r.Get(ctx, nodeID)
	if err != nil {
		return err
	}
	if err := r.store.Delete(ctx, store.NodeKey(nodeID)); err != nil {
		return err
	}
	if err := r.store.Delete(ctx, store.HeartbeatKey(nodeID)); err != nil {
		return err
	}
	if err := r.store.Delete(ctx, store.NodeByNameKey(node.NodeName)); err != nil {
		return err
	}
	r.logger.Info().Str("node_id", nodeID).Str("node_name", node.NodeName).
		Msg("node deregistered")
	r.publish(events.EventNodeDeregistered, node)
	return nil
}

// StatusUpdate is the admin override for a node's status, e.g. Maintenance.
func (r *Registry) StatusUpdate(ctx context.Context, nodeID string, status types.NodeStatus) error {
	switch status {
	case types.NodeStatusInitializing, types.NodeStatusOnline, types.NodeStatusOffline,
		types.NodeStatusError, types.NodeStatusMaintenance:
	default:
		return errdefs.InvalidArgument("unknown node status %q", status)
	}

	node, err := r.Get(ctx, nodeID)
	if err != nil {
		return err
	}
	node.Status = status
	if err := r.putNode(ctx, node); err != nil {
		return err
	}
	r.logger.Info().Str("node_id", nodeID).Str("status", string(status)).
		Msg("node status updated by admin")
	return nil
}

func (r *Registry) putNode(ctx context.Context, node *types.Node) error {
	data, err := json.Marshal(node)
	if err != nil {
		return errdefs.Internal(err, "failed to encode node %s", node.NodeID)
	}
	return r.store.Put(ctx, store.NodeKey(node.NodeID), string(data))
}

func (r *Registry) putHeartbeat(ctx context.Context, nodeID string, epoch int64) error {
	return r.store.Put(ctx, store.HeartbeatKey(nodeID), strconv.FormatInt(epoch, 10))
}

func (r *Registry) publish(eventType events.EventType, node *types.Node) {
	if r.broker == nil {
		return
	}
	r.broker.Publish(&events.Event{
		Type:     eventType,
		Resource: node.NodeName,
		State:    string(node.Status),
		Metadata: map[string]string{"node_id": node.NodeID, "role": string(node.Role)},
	})
}

// Health counts nodes by status for the cluster health view.
func (r *Registry) Health(ctx context.Context) (map[types.NodeStatus]int, error) {
	nodes, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	counts := make(map[types.NodeStatus]int)
	for _, n := range nodes {
		counts[n.Status]++
	}
	return counts, nil
}

package api

import (
	"context"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/piccolo-io/piccolo/api/pullpiri"
	"github.com/piccolo-io/piccolo/pkg/config"
	"github.com/piccolo-io/piccolo/pkg/errdefs"
	"github.com/piccolo-io/piccolo/pkg/registry"
	"github.com/piccolo-io/piccolo/pkg/types"
)

// Dispatcher fans master-initiated calls out to node agents over
// NodeAgentService. One channel per remote node, created lazily and
// replaced when the node re-advertises a different agent address.
type Dispatcher struct {
	registry *registry.Registry

	mu    sync.Mutex
	conns map[string]*agentConn // node_name -> channel
}

type agentConn struct {
	addr string
	conn *grpc.ClientConn
}

// NewDispatcher creates an agent dispatcher over the registry's view.
func NewDispatcher(reg *registry.Registry) *Dispatcher {
	return &Dispatcher{
		registry: reg,
		conns:    make(map[string]*agentConn),
	}
}

// HandleArtifact instructs the agent on nodeName to deploy an artifact.
func (d *Dispatcher) HandleArtifact(ctx context.Context, nodeName string, artifact *pullpiri.ArtifactInfo) error {
	client, err := d.client(ctx, nodeName)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, config.DefaultRequestTimeout)
	defer cancel()
	resp, err := client.HandleArtifact(ctx, artifact)
	if err != nil {
		return errdefs.Unavailable(err, "artifact dispatch to %s failed", nodeName)
	}
	if resp.Status != pullpiri.StatusOk {
		return errdefs.New(errdefs.Code(resp.Status), "agent %s rejected artifact: %s", nodeName, resp.Message)
	}
	return nil
}

// RemoveArtifact instructs the agent on nodeName to remove an artifact.
func (d *Dispatcher) RemoveArtifact(ctx context.Context, nodeName, artifactID string) error {
	client, err := d.client(ctx, nodeName)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, config.DefaultRequestTimeout)
	defer cancel()
	resp, err := client.RemoveArtifact(ctx, &pullpiri.RemoveArtifactRequest{ArtifactID: artifactID})
	if err != nil {
		return errdefs.Unavailable(err, "artifact removal on %s failed", nodeName)
	}
	if resp.Status != pullpiri.StatusOk {
		return errdefs.New(errdefs.Code(resp.Status), "agent %s rejected removal: %s", nodeName, resp.Message)
	}
	return nil
}

// HealthCheck probes the agent on nodeName.
func (d *Dispatcher) HealthCheck(ctx context.Context, nodeName string) error {
	client, err := d.client(ctx, nodeName)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, config.DefaultRequestTimeout)
	defer cancel()
	if _, err := client.HealthCheck(ctx, &pullpiri.HealthCheckRequest{}); err != nil {
		return errdefs.Unavailable(err, "health check on %s failed", nodeName)
	}
	return nil
}

// client returns the NodeAgentService client for nodeName, dialing the
// node's agent port lazily.
func (d *Dispatcher) client(ctx context.Context, nodeName string) (pullpiri.NodeAgentClient, error) {
	topo, err := d.registry.Topology(ctx)
	if err != nil {
		return nil, err
	}

	var addr string
	for _, n := range append(topo.Subs, topo.Master) {
		if n != nil && n.NodeName == nodeName {
			if advertised := n.Labels[types.AgentAddrLabel]; advertised != "" {
				addr = advertised
			} else {
				addr = n.IPAddress + config.DefaultAgentAddr
			}
			break
		}
	}
	if addr == "" {
		return nil, errdefs.NotFound("node %s not found", nodeName)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	cached, ok := d.conns[nodeName]
	if ok && cached.addr != addr {
		// The agent re-registered under a new address; drop the stale
		// channel.
		cached.conn.Close()
		delete(d.conns, nodeName)
		ok = false
	}
	if !ok {
		conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return nil, errdefs.Unavailable(err, "failed to dial agent %s", nodeName)
		}
		cached = &agentConn{addr: addr, conn: conn}
		d.conns[nodeName] = cached
	}
	return pullpiri.NewNodeAgentClient(cached.conn), nil
}

// Close tears down all agent channels.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for name, cached := range d.conns {
		cached.conn.Close()
		delete(d.conns, name)
	}
}

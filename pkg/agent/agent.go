package agent

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"

	"github.com/piccolo-io/piccolo/api/pullpiri"
	"github.com/piccolo-io/piccolo/pkg/client"
	"github.com/piccolo-io/piccolo/pkg/config"
	"github.com/piccolo-io/piccolo/pkg/log"
	"github.com/piccolo-io/piccolo/pkg/types"
)

// ConnState is the supervised connection state of the agent.
type ConnState string

const (
	StateRegistering  ConnState = "registering"
	StateConnected    ConnState = "connected"
	StateDisconnected ConnState = "disconnected"
)

// nodeIDFile is where the agent persists its server-issued identity.
const nodeIDFile = "node_id"

// ArtifactHandler executes artifact commands delivered by the master.
// The real executor lives outside this repository; the default handler
// just acknowledges.
type ArtifactHandler interface {
	Handle(ctx context.Context, artifact *pullpiri.ArtifactInfo) error
	Remove(ctx context.Context, artifactID string) error
}

// Agent is the per-node daemon: it registers with the master, heartbeats
// with resource usage and container observations, and serves
// NodeAgentService for master-initiated commands.
type Agent struct {
	cfg       config.Agent
	client    *client.Client
	reporter  ContainerReporter
	sampler   ResourceSampler
	artifacts ArtifactHandler
	logger    zerolog.Logger

	mu            sync.RWMutex
	nodeID        string
	state         ConnState
	interval      time.Duration
	advertiseAddr string

	grpc *grpc.Server
}

// NewAgent creates an agent. reporter, sampler and artifacts may be nil;
// nil reporter/sampler disable the respective report content and a nil
// artifacts handler acknowledges without acting.
func NewAgent(cfg config.Agent, reporter ContainerReporter, sampler ResourceSampler, artifacts ArtifactHandler) (*Agent, error) {
	if cfg.NodeName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			return nil, err
		}
		cfg.NodeName = hostname
	}

	c, err := client.NewClient(cfg.MasterAddr)
	if err != nil {
		return nil, err
	}

	a := &Agent{
		cfg:       cfg,
		client:    c,
		reporter:  reporter,
		sampler:   sampler,
		artifacts: artifacts,
		logger:    log.WithComponent("agent"),
		state:     StateRegistering,
		interval:  cfg.HeartbeatInterval,
	}
	a.grpc = grpc.NewServer()
	pullpiri.RegisterNodeAgentServer(a.grpc, a)

	return a, nil
}

// State returns the current connection state.
func (a *Agent) State() ConnState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// NodeID returns the server-issued identity, or "" before registration.
func (a *Agent) NodeID() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.nodeID
}

func (a *Agent) setState(state ConnState) {
	a.mu.Lock()
	a.state = state
	a.mu.Unlock()
}

// Run drives the agent until ctx is cancelled: register with backoff,
// then heartbeat every interval; a transport error drops back to
// registration. The NodeAgentService listener runs for the whole
// lifetime.
func (a *Agent) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", a.cfg.ListenAddr)
	if err != nil {
		return err
	}
	a.setAdvertiseAddr(lis.Addr())
	go func() {
		if err := a.grpc.Serve(lis); err != nil {
			a.logger.Error().Err(err).Msg("agent gRPC server stopped")
		}
	}()
	defer a.grpc.GracefulStop()
	defer a.client.Close()

	for ctx.Err() == nil {
		if err := a.register(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}
			return err
		}
		a.heartbeatLoop(ctx)
	}
	return nil
}

// register retries until the master admits this node, with exponential
// backoff 1s, 2s, 4s, 8s capped at 30s, unbounded.
func (a *Agent) register(ctx context.Context) error {
	a.setState(StateRegistering)
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		resources := types.NodeResources{}
		if a.sampler != nil {
			resources, _ = a.sampler.Sample(ctx)
		}

		callCtx, cancel := context.WithTimeout(ctx, config.DefaultRequestTimeout)
		resp, err := a.client.RegisterNode(callCtx, &pullpiri.RegisterNodeRequest{
			NodeName:  a.cfg.NodeName,
			IPAddress: a.localIP(),
			Role:      a.cfg.Role,
			Resources: resources,
			Labels:    map[string]string{types.AgentAddrLabel: a.advertiseAddr},
		})
		cancel()

		if err == nil {
			a.mu.Lock()
			a.nodeID = resp.NodeID
			a.state = StateConnected
			if secs := resp.ClusterConfig.HeartbeatIntervalSeconds; secs > 0 {
				a.interval = time.Duration(secs) * time.Second
			}
			a.mu.Unlock()

			a.persistNodeID(resp.NodeID)
			a.logger.Info().
				Str("node_id", resp.NodeID).
				Str("node_name", a.cfg.NodeName).
				Msg("registered with master")
			return nil
		}

		a.logger.Warn().Err(err).Dur("backoff", backoff).Msg("registration failed, retrying")

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// heartbeatLoop sends liveness reports until ctx ends or the transport
// fails, in which case the agent drops to Disconnected and the caller
// resumes registration.
func (a *Agent) heartbeatLoop(ctx context.Context) {
	a.mu.RLock()
	interval := a.interval
	a.mu.RUnlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// First beat immediately: registration left the node Initializing
	// and the first heartbeat brings it Online.
	if err := a.sendHeartbeat(ctx); err != nil {
		a.disconnect(err)
		return
	}

	for {
		select {
		case <-ticker.C:
			if err := a.sendHeartbeat(ctx); err != nil {
				a.disconnect(err)
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (a *Agent) disconnect(err error) {
	a.setState(StateDisconnected)
	a.logger.Warn().Err(err).Msg("heartbeat failed, reconnecting")
}

// sendHeartbeat gathers usage and the container list and reports them.
func (a *Agent) sendHeartbeat(ctx context.Context) error {
	resources := types.NodeResources{}
	if a.sampler != nil {
		resources, _ = a.sampler.Sample(ctx)
	}

	var containers []*types.ContainerInfo
	if a.reporter != nil {
		list, err := a.reporter.List(ctx)
		if err != nil {
			// A runtime hiccup should not look like a dead node; send
			// the heartbeat without containers.
			a.logger.Warn().Err(err).Msg("container enumeration failed")
		} else {
			containers = list
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, config.DefaultRequestTimeout)
	defer cancel()
	return a.client.Heartbeat(callCtx, &pullpiri.HeartbeatRequest{
		NodeID:     a.NodeID(),
		Resources:  resources,
		Containers: containers,
	})
}

// persistNodeID stores the issued identity under the agent data dir so
// operators can correlate restarts; registration stays keyed on
// node_name either way.
func (a *Agent) persistNodeID(nodeID string) {
	if a.cfg.DataDir == "" {
		return
	}
	if err := os.MkdirAll(a.cfg.DataDir, 0o755); err != nil {
		a.logger.Warn().Err(err).Msg("failed to create data dir")
		return
	}
	path := filepath.Join(a.cfg.DataDir, nodeIDFile)
	if err := os.WriteFile(path, []byte(nodeID), 0o644); err != nil {
		a.logger.Warn().Err(err).Msg("failed to persist node_id")
	}
}

// PersistedNodeID reads the identity stored by a previous run, if any.
func PersistedNodeID(dataDir string) string {
	data, err := os.ReadFile(filepath.Join(dataDir, nodeIDFile))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// setAdvertiseAddr records where the master's dispatcher can reach this
// agent's NodeAgentService: the route-facing local IP combined with the
// port the listener actually bound (the configured one may be :0).
func (a *Agent) setAdvertiseAddr(bound net.Addr) {
	port := config.DefaultAgentAddr[1:]
	if tcp, ok := bound.(*net.TCPAddr); ok {
		port = strconv.Itoa(tcp.Port)
	}
	a.advertiseAddr = net.JoinHostPort(a.localIP(), port)
}

// localIP finds the address this host uses to reach the master.
func (a *Agent) localIP() string {
	conn, err := net.Dial("udp", a.cfg.MasterAddr)
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String()
}

// HandleArtifact implements NodeAgentService.
func (a *Agent) HandleArtifact(ctx context.Context, in *pullpiri.ArtifactInfo) (*pullpiri.Ack, error) {
	a.logger.Info().Str("artifact_id", in.ArtifactID).Str("name", in.Name).
		Msg("artifact received")
	if a.artifacts != nil {
		if err := a.artifacts.Handle(ctx, in); err != nil {
			return &pullpiri.Ack{Status: pullpiri.StatusInternal, Message: err.Error()}, nil
		}
	}
	return &pullpiri.Ack{Status: pullpiri.StatusOk}, nil
}

// RemoveArtifact implements NodeAgentService.
func (a *Agent) RemoveArtifact(ctx context.Context, in *pullpiri.RemoveArtifactRequest) (*pullpiri.Ack, error) {
	a.logger.Info().Str("artifact_id", in.ArtifactID).Msg("artifact removal received")
	if a.artifacts != nil {
		if err := a.artifacts.Remove(ctx, in.ArtifactID); err != nil {
			return &pullpiri.Ack{Status: pullpiri.StatusInternal, Message: err.Error()}, nil
		}
	}
	return &pullpiri.Ack{Status: pullpiri.StatusOk}, nil
}

// HealthCheck implements NodeAgentService.
func (a *Agent) HealthCheck(ctx context.Context, in *pullpiri.HealthCheckRequest) (*pullpiri.Pong, error) {
	return &pullpiri.Pong{Status: pullpiri.StatusOk, NodeName: a.cfg.NodeName}, nil
}

package api

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"

	"github.com/piccolo-io/piccolo/api/pullpiri"
	"github.com/piccolo-io/piccolo/pkg/config"
	"github.com/piccolo-io/piccolo/pkg/errdefs"
	"github.com/piccolo-io/piccolo/pkg/log"
	"github.com/piccolo-io/piccolo/pkg/registry"
	"github.com/piccolo-io/piccolo/pkg/statemanager"
	"github.com/piccolo-io/piccolo/pkg/types"
)

// Server implements ApiServerService, the master's gRPC surface for node
// agents. Handlers are thin translators onto the registry and the state
// manager.
type Server struct {
	registry *registry.Registry
	states   *statemanager.Manager
	cfg      config.Master
	grpc     *grpc.Server
	logger   zerolog.Logger
}

// NewServer creates the master API server.
func NewServer(reg *registry.Registry, states *statemanager.Manager, cfg config.Master) *Server {
	s := &Server{
		registry: reg,
		states:   states,
		cfg:      cfg,
		logger:   log.WithComponent("api"),
	}
	s.grpc = grpc.NewServer(grpc.UnaryInterceptor(LoggingInterceptor(s.logger)))
	pullpiri.RegisterApiServerServer(s.grpc, s)
	return s
}

// Start serves the gRPC API on addr. It blocks until Stop.
func (s *Server) Start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.logger.Info().Str("addr", addr).Msg("gRPC API listening")
	return s.grpc.Serve(lis)
}

// Serve serves on an existing listener (used by tests over bufconn).
func (s *Server) Serve(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// Stop drains in-flight handlers for up to 10 seconds, then closes the
// remaining connections and stops the server.
func (s *Server) Stop() {
	if s.grpc == nil {
		return
	}
	done := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		s.grpc.Stop()
	}
}

// RegisterNode admits an agent into the cluster.
func (s *Server) RegisterNode(ctx context.Context, req *pullpiri.RegisterNodeRequest) (*pullpiri.RegisterNodeResponse, error) {
	node, err := s.registry.Register(ctx, registry.RegisterSpec{
		NodeName:  req.NodeName,
		IPAddress: req.IPAddress,
		Role:      types.NodeRole(req.Role),
		Resources: req.Resources,
		Labels:    req.Labels,
	})
	if err != nil {
		return nil, errdefs.GRPCStatus(err)
	}

	return &pullpiri.RegisterNodeResponse{
		Status: pullpiri.StatusOk,
		NodeID: node.NodeID,
		ClusterConfig: pullpiri.ClusterConfig{
			HeartbeatIntervalSeconds: int64(s.cfg.HeartbeatInterval.Seconds()),
		},
	}, nil
}

// Heartbeat records a liveness report and forwards the container list
// into the state manager.
func (s *Server) Heartbeat(ctx context.Context, req *pullpiri.HeartbeatRequest) (*pullpiri.Ack, error) {
	if req.NodeID == "" {
		return nil, errdefs.GRPCStatus(errdefs.InvalidArgument("node_id is required"))
	}
	if err := s.registry.Heartbeat(ctx, req.NodeID, req.Resources, req.Containers); err != nil {
		return nil, errdefs.GRPCStatus(err)
	}
	return &pullpiri.Ack{Status: pullpiri.StatusOk}, nil
}

// ReportState applies an explicit state report for one resource.
func (s *Server) ReportState(ctx context.Context, req *pullpiri.ReportStateRequest) (*pullpiri.Ack, error) {
	if err := s.states.UpdateResourceState(ctx, types.ResourceKind(req.Kind), req.Name, req.State); err != nil {
		return nil, errdefs.GRPCStatus(err)
	}
	return &pullpiri.Ack{Status: pullpiri.StatusOk}, nil
}


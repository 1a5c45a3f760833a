package api

import (
	"context"
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"

	"github.com/piccolo-io/piccolo/api/pullpiri"
	"github.com/piccolo-io/piccolo/pkg/config"
	"github.com/piccolo-io/piccolo/pkg/errdefs"
	"github.com/piccolo-io/piccolo/pkg/registry"
	"github.com/piccolo-io/piccolo/pkg/store"
	"github.com/piccolo-io/piccolo/pkg/types"
)

// stubAgent serves NodeAgentService and records what it was told.
type stubAgent struct {
	mu        sync.Mutex
	artifacts []string
	removed   []string
}

func (s *stubAgent) HandleArtifact(ctx context.Context, in *pullpiri.ArtifactInfo) (*pullpiri.Ack, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts = append(s.artifacts, in.ArtifactID)
	return &pullpiri.Ack{Status: pullpiri.StatusOk}, nil
}

func (s *stubAgent) RemoveArtifact(ctx context.Context, in *pullpiri.RemoveArtifactRequest) (*pullpiri.Ack, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = append(s.removed, in.ArtifactID)
	return &pullpiri.Ack{Status: pullpiri.StatusOk}, nil
}

func (s *stubAgent) HealthCheck(ctx context.Context, in *pullpiri.HealthCheckRequest) (*pullpiri.Pong, error) {
	return &pullpiri.Pong{Status: pullpiri.StatusOk, NodeName: "vehicle-hpc-1"}, nil
}

// startStubAgent serves the stub on an ephemeral loopback port.
func startStubAgent(t *testing.T) (*stubAgent, string) {
	t.Helper()
	stub := &stubAgent{}
	srv := grpc.NewServer()
	pullpiri.RegisterNodeAgentServer(srv, stub)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	return stub, lis.Addr().String()
}

func TestDispatcherReachesAgent(t *testing.T) {
	st := store.NewMemStore()
	cfg := config.Default().Master
	reg := registry.NewRegistry(st, cfg, nil, nil)
	ctx := context.Background()

	stub, agentAddr := startStubAgent(t)

	// The node advertises its agent listener the way a live agent does.
	_, err := reg.Register(ctx, registry.RegisterSpec{
		NodeName:  "vehicle-hpc-1",
		IPAddress: "127.0.0.1",
		Role:      types.NodeRoleSub,
		Labels:    map[string]string{types.AgentAddrLabel: agentAddr},
	})
	require.NoError(t, err)

	d := NewDispatcher(reg)
	defer d.Close()

	require.NoError(t, d.HandleArtifact(ctx, "vehicle-hpc-1", &pullpiri.ArtifactInfo{
		ArtifactID: "art-1", Name: "lights", Kind: "package",
	}))
	require.NoError(t, d.RemoveArtifact(ctx, "vehicle-hpc-1", "art-1"))
	require.NoError(t, d.HealthCheck(ctx, "vehicle-hpc-1"))

	stub.mu.Lock()
	defer stub.mu.Unlock()
	assert.Equal(t, []string{"art-1"}, stub.artifacts)
	assert.Equal(t, []string{"art-1"}, stub.removed)
}

func TestDispatcherUnknownNode(t *testing.T) {
	st := store.NewMemStore()
	reg := registry.NewRegistry(st, config.Default().Master, nil, nil)

	d := NewDispatcher(reg)
	defer d.Close()

	err := d.HealthCheck(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, errdefs.IsNotFound(err))
}

// A node re-registering under a new agent address gets a fresh channel.
func TestDispatcherFollowsReadvertisedAddress(t *testing.T) {
	st := store.NewMemStore()
	cfg := config.Default().Master
	reg := registry.NewRegistry(st, cfg, nil, nil)
	ctx := context.Background()

	first, firstAddr := startStubAgent(t)
	_, err := reg.Register(ctx, registry.RegisterSpec{
		NodeName:  "vehicle-hpc-1",
		IPAddress: "127.0.0.1",
		Role:      types.NodeRoleSub,
		Labels:    map[string]string{types.AgentAddrLabel: firstAddr},
	})
	require.NoError(t, err)

	d := NewDispatcher(reg)
	defer d.Close()
	require.NoError(t, d.HandleArtifact(ctx, "vehicle-hpc-1", &pullpiri.ArtifactInfo{ArtifactID: "art-1"}))

	// Agent restarts on a different port and re-registers.
	second, secondAddr := startStubAgent(t)
	_, err = reg.Register(ctx, registry.RegisterSpec{
		NodeName:  "vehicle-hpc-1",
		IPAddress: "127.0.0.1",
		Role:      types.NodeRoleSub,
		Labels:    map[string]string{types.AgentAddrLabel: secondAddr},
	})
	require.NoError(t, err)

	require.NoError(t, d.HandleArtifact(ctx, "vehicle-hpc-1", &pullpiri.ArtifactInfo{ArtifactID: "art-2"}))

	first.mu.Lock()
	assert.Equal(t, []string{"art-1"}, first.artifacts)
	first.mu.Unlock()
	second.mu.Lock()
	assert.Equal(t, []string{"art-2"}, second.artifacts)
	second.mu.Unlock()
}

package api

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/piccolo-io/piccolo/api/pullpiri"
	"github.com/piccolo-io/piccolo/pkg/config"
	"github.com/piccolo-io/piccolo/pkg/registry"
	"github.com/piccolo-io/piccolo/pkg/statemanager"
	"github.com/piccolo-io/piccolo/pkg/store"
	"github.com/piccolo-io/piccolo/pkg/types"
)

func testServer(t *testing.T) (pullpiri.ApiServerClient, *store.MemStore) {
	t.Helper()

	st := store.NewMemStore()
	cfg := config.Default().Master
	states := statemanager.NewManager(st, cfg, nil)
	reg := registry.NewRegistry(st, cfg, nil, states)
	srv := NewServer(reg, states, cfg)

	lis := bufconn.Listen(1 << 20)
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return pullpiri.NewApiServerClient(conn), st
}

func registerReq(name string) *pullpiri.RegisterNodeRequest {
	return &pullpiri.RegisterNodeRequest{
		NodeName:  name,
		IPAddress: "192.168.10.2",
		Role:      "sub",
		Resources: types.NodeResources{CPUCores: 4, MemoryMB: 8192, DiskGB: 64},
	}
}

func TestRegisterNodeRPC(t *testing.T) {
	client, _ := testServer(t)
	ctx := context.Background()

	resp, err := client.RegisterNode(ctx, registerReq("vehicle-hpc-1"))
	require.NoError(t, err)
	assert.Equal(t, pullpiri.StatusOk, resp.Status)
	assert.NotEmpty(t, resp.NodeID)
	assert.Equal(t, int64(30), resp.ClusterConfig.HeartbeatIntervalSeconds)

	// Same name, same address: idempotent.
	again, err := client.RegisterNode(ctx, registerReq("vehicle-hpc-1"))
	require.NoError(t, err)
	assert.Equal(t, resp.NodeID, again.NodeID)
}

func TestRegisterNodeRPCValidation(t *testing.T) {
	client, _ := testServer(t)
	ctx := context.Background()

	req := registerReq("")
	_, err := client.RegisterNode(ctx, req)
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestRegisterNodeRPCConflict(t *testing.T) {
	client, _ := testServer(t)
	ctx := context.Background()

	_, err := client.RegisterNode(ctx, registerReq("vehicle-hpc-1"))
	require.NoError(t, err)

	other := registerReq("vehicle-hpc-1")
	other.IPAddress = "192.168.10.3"
	_, err = client.RegisterNode(ctx, other)
	require.Error(t, err)
	assert.Equal(t, codes.Aborted, status.Code(err))
}

// Heartbeat carries the container list into the state manager; the
// derived states land in the store (round-trip of S1 over the wire).
func TestHeartbeatRPCCascades(t *testing.T) {
	client, st := testServer(t)
	ctx := context.Background()

	reg, err := client.RegisterNode(ctx, registerReq("vehicle-hpc-1"))
	require.NoError(t, err)

	_, err = client.Heartbeat(ctx, &pullpiri.HeartbeatRequest{
		NodeID:    reg.NodeID,
		Resources: types.NodeResources{CPUUsage: 12.5},
		Containers: []*types.ContainerInfo{
			{
				ID:      "c1",
				Running: true,
				Status:  "running",
				Annotations: map[string]string{
					types.ModelAnnotation:   "m1",
					types.PackageAnnotation: "p1",
				},
			},
		},
	})
	require.NoError(t, err)

	modelState, err := st.Get(ctx, store.ModelStateKey("m1"))
	require.NoError(t, err)
	assert.Equal(t, "Running", modelState)

	pkgState, err := st.Get(ctx, store.PackageStateKey("p1"))
	require.NoError(t, err)
	assert.Equal(t, "running", pkgState)
}

func TestHeartbeatRPCUnknownNode(t *testing.T) {
	client, _ := testServer(t)
	_, err := client.Heartbeat(context.Background(), &pullpiri.HeartbeatRequest{NodeID: "ghost"})
	require.Error(t, err)
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestReportStateRPC(t *testing.T) {
	client, st := testServer(t)
	ctx := context.Background()

	_, err := client.ReportState(ctx, &pullpiri.ReportStateRequest{
		Kind: "scenario", Name: "lane-change", State: "satisfied",
	})
	require.NoError(t, err)

	value, err := st.Get(ctx, store.StateKey(types.KindScenario, "lane-change"))
	require.NoError(t, err)
	assert.Equal(t, "satisfied", value)

	_, err = client.ReportState(ctx, &pullpiri.ReportStateRequest{
		Kind: "model", Name: "m1", State: "sprinting",
	})
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

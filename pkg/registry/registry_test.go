package registry

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piccolo-io/piccolo/pkg/config"
	"github.com/piccolo-io/piccolo/pkg/errdefs"
	"github.com/piccolo-io/piccolo/pkg/store"
	"github.com/piccolo-io/piccolo/pkg/types"
)

func testRegistry(t *testing.T) (*Registry, *store.MemStore) {
	t.Helper()
	st := store.NewMemStore()
	cfg := config.Default().Master
	r := NewRegistry(st, cfg, nil, nil)
	return r, st
}

func subSpec(name string) RegisterSpec {
	return RegisterSpec{
		NodeName:  name,
		IPAddress: "192.168.10.2",
		Role:      types.NodeRoleSub,
		Resources: types.NodeResources{CPUCores: 4, MemoryMB: 8192, DiskGB: 64},
	}
}

func TestRegister(t *testing.T) {
	r, _ := testRegistry(t)
	ctx := context.Background()

	node, err := r.Register(ctx, subSpec("vehicle-hpc-1"))
	require.NoError(t, err)
	assert.NotEmpty(t, node.NodeID)
	assert.Equal(t, types.NodeStatusInitializing, node.Status)
	assert.Equal(t, node.CreatedAt, node.LastHeartbeat)

	got, err := r.Get(ctx, node.NodeID)
	require.NoError(t, err)
	assert.Equal(t, "vehicle-hpc-1", got.NodeName)
}

func TestRegisterValidation(t *testing.T) {
	r, _ := testRegistry(t)
	ctx := context.Background()

	tests := []struct {
		name string
		spec RegisterSpec
	}{
		{"missing name", RegisterSpec{IPAddress: "10.0.0.1", Role: types.NodeRoleSub}},
		{"missing ip", RegisterSpec{NodeName: "n1", Role: types.NodeRoleSub}},
		{"bad role", RegisterSpec{NodeName: "n1", IPAddress: "10.0.0.1", Role: "worker"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Register(ctx, tt.spec)
			require.Error(t, err)
			assert.Equal(t, errdefs.CodeInvalidArgument, errdefs.CodeOf(err))
		})
	}
}

// TestRegisterIdempotent verifies that re-registering the same node_name
// returns the same node_id.
func TestRegisterIdempotent(t *testing.T) {
	r, _ := testRegistry(t)
	ctx := context.Background()

	first, err := r.Register(ctx, subSpec("vehicle-hpc-1"))
	require.NoError(t, err)

	spec := subSpec("vehicle-hpc-1")
	spec.Resources.CPUCores = 8
	spec.Labels = map[string]string{"zone": "cockpit"}
	second, err := r.Register(ctx, spec)
	require.NoError(t, err)

	assert.Equal(t, first.NodeID, second.NodeID)
	assert.Equal(t, 8, second.Resources.CPUCores, "refresh picks up the new capacity")
	assert.Equal(t, "cockpit", second.Labels["zone"])
}

// TestRegisterConcurrentSameNode verifies that a node racing its own
// re-registration always resolves to a single node_id.
func TestRegisterConcurrentSameNode(t *testing.T) {
	r, _ := testRegistry(t)
	ctx := context.Background()

	const n = 16
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			node, err := r.Register(ctx, subSpec("vehicle-hpc-1"))
			if assert.NoError(t, err) {
				ids[i] = node.NodeID
			}
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		assert.Equal(t, ids[0], ids[i])
	}

	nodes, err := r.List(ctx)
	require.NoError(t, err)
	assert.Len(t, nodes, 1)
}

// TestRegisterConcurrentDistinctNodes verifies that when different nodes
// race for the same name, exactly one wins and the rest get Conflict.
func TestRegisterConcurrentDistinctNodes(t *testing.T) {
	r, _ := testRegistry(t)
	ctx := context.Background()

	const n = 8
	results := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			spec := subSpec("vehicle-hpc-1")
			spec.IPAddress = fmt.Sprintf("192.168.10.%d", 10+i)
			_, results[i] = r.Register(ctx, spec)
		}(i)
	}
	wg.Wait()

	successes, conflicts := 0, 0
	for _, err := range results {
		if err == nil {
			successes++
		} else if errdefs.IsConflict(err) {
			conflicts++
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, conflicts)
}

func TestRegisterSecondMasterRejected(t *testing.T) {
	r, _ := testRegistry(t)
	ctx := context.Background()

	spec := subSpec("master-1")
	spec.Role = types.NodeRoleMaster
	master, err := r.Register(ctx, spec)
	require.NoError(t, err)

	// Bring the master online.
	require.NoError(t, r.Heartbeat(ctx, master.NodeID, types.NodeResources{}, nil))

	second := subSpec("master-2")
	second.Role = types.NodeRoleMaster
	_, err = r.Register(ctx, second)
	require.Error(t, err)
	assert.Equal(t, errdefs.CodeConflict, errdefs.CodeOf(err))
}

func TestHeartbeatTransitions(t *testing.T) {
	r, _ := testRegistry(t)
	ctx := context.Background()

	node, err := r.Register(ctx, subSpec("vehicle-hpc-1"))
	require.NoError(t, err)

	usage := types.NodeResources{CPUUsage: 41.5, MemoryUsage: 63.0}
	require.NoError(t, r.Heartbeat(ctx, node.NodeID, usage, nil))

	got, err := r.Get(ctx, node.NodeID)
	require.NoError(t, err)
	assert.Equal(t, types.NodeStatusOnline, got.Status)
	assert.Equal(t, 41.5, got.Resources.CPUUsage)

	// Offline nodes come back online on heartbeat.
	require.NoError(t, r.StatusUpdate(ctx, node.NodeID, types.NodeStatusOffline))
	require.NoError(t, r.Heartbeat(ctx, node.NodeID, usage, nil))
	got, err = r.Get(ctx, node.NodeID)
	require.NoError(t, err)
	assert.Equal(t, types.NodeStatusOnline, got.Status)

	// Maintenance is sticky until an admin clears it.
	require.NoError(t, r.StatusUpdate(ctx, node.NodeID, types.NodeStatusMaintenance))
	require.NoError(t, r.Heartbeat(ctx, node.NodeID, usage, nil))
	got, err = r.Get(ctx, node.NodeID)
	require.NoError(t, err)
	assert.Equal(t, types.NodeStatusMaintenance, got.Status)
}

func TestHeartbeatUnknownNode(t *testing.T) {
	r, _ := testRegistry(t)
	err := r.Heartbeat(context.Background(), "no-such-node", types.NodeResources{}, nil)
	require.Error(t, err)
	assert.True(t, errdefs.IsNotFound(err))
}

func TestHeartbeatMonotonic(t *testing.T) {
	r, _ := testRegistry(t)
	ctx := context.Background()

	node, err := r.Register(ctx, subSpec("vehicle-hpc-1"))
	require.NoError(t, err)

	// Simulate a clock that stepped backwards between heartbeats.
	r.nowFunc = func() int64 { return node.LastHeartbeat - 100 }
	require.NoError(t, r.Heartbeat(ctx, node.NodeID, types.NodeResources{}, nil))

	got, err := r.Get(ctx, node.NodeID)
	require.NoError(t, err)
	assert.Equal(t, node.LastHeartbeat, got.LastHeartbeat, "last_heartbeat never decreases")
}

func TestTopology(t *testing.T) {
	r, _ := testRegistry(t)
	ctx := context.Background()

	master := subSpec("master-1")
	master.Role = types.NodeRoleMaster
	_, err := r.Register(ctx, master)
	require.NoError(t, err)
	_, err = r.Register(ctx, subSpec("sub-1"))
	require.NoError(t, err)
	_, err = r.Register(ctx, subSpec("sub-2"))
	require.NoError(t, err)

	topo, err := r.Topology(ctx)
	require.NoError(t, err)
	require.NotNil(t, topo.Master)
	assert.Equal(t, "master-1", topo.Master.NodeName)
	assert.Len(t, topo.Subs, 2)
}

func TestDeregister(t *testing.T) {
	r, st := testRegistry(t)
	ctx := context.Background()

	node, err := r.Register(ctx, subSpec("vehicle-hpc-1"))
	require.NoError(t, err)

	// A container record derived from this node's reports.
	require.NoError(t, st.Put(ctx, store.ContainerStateKey("c1"), `{"id":"c1"}`))

	require.NoError(t, r.Deregister(ctx, node.NodeID))

	_, err = r.Get(ctx, node.NodeID)
	assert.True(t, errdefs.IsNotFound(err))

	// The name is free for a fresh registration with a new identity.
	again, err := r.Register(ctx, subSpec("vehicle-hpc-1"))
	require.NoError(t, err)
	assert.NotEqual(t, node.NodeID, again.NodeID)

	// Derived records survive deregistration.
	_, err = st.Get(ctx, store.ContainerStateKey("c1"))
	assert.NoError(t, err)
}

func TestScannerOfflineTransition(t *testing.T) {
	r, _ := testRegistry(t)
	ctx := context.Background()

	node, err := r.Register(ctx, subSpec("vehicle-hpc-1"))
	require.NoError(t, err)
	require.NoError(t, r.Heartbeat(ctx, node.NodeID, types.NodeResources{}, nil))

	// Advance the clock past three missed heartbeat intervals.
	base := node.LastHeartbeat
	offline := int64(r.cfg.OfflineThreshold()/time.Second) + 1
	r.nowFunc = func() int64 { return base + offline }

	scanner := NewScanner(r)
	require.NoError(t, scanner.Scan(ctx))

	got, err := r.Get(ctx, node.NodeID)
	require.NoError(t, err)
	assert.Equal(t, types.NodeStatusOffline, got.Status)

	// After the failure timeout on top, the node degrades to Error.
	r.nowFunc = func() int64 {
		return base + offline + int64(r.cfg.FailureTimeout/time.Second) + 1
	}
	require.NoError(t, scanner.Scan(ctx))

	got, err = r.Get(ctx, node.NodeID)
	require.NoError(t, err)
	assert.Equal(t, types.NodeStatusError, got.Status)

	// Never auto-deleted.
	nodes, err := r.List(ctx)
	require.NoError(t, err)
	assert.Len(t, nodes, 1)
}

// A node going offline leaves its container-derived records untouched;
// only fresh container reports change them.
func TestScannerOfflineLeavesDerivedState(t *testing.T) {
	r, st := testRegistry(t)
	ctx := context.Background()

	node, err := r.Register(ctx, subSpec("vehicle-hpc-1"))
	require.NoError(t, err)
	require.NoError(t, r.Heartbeat(ctx, node.NodeID, types.NodeResources{}, nil))

	require.NoError(t, st.Put(ctx, store.ContainerStateKey("c1"), `{"id":"c1","node_name":"vehicle-hpc-1"}`))
	require.NoError(t, st.Put(ctx, store.ModelStateKey("m1"), "Running"))
	require.NoError(t, st.Put(ctx, store.PackageStateKey("p1"), "running"))

	r.nowFunc = func() int64 { return node.LastHeartbeat + 1000 }
	require.NoError(t, NewScanner(r).Scan(ctx))

	got, err := r.Get(ctx, node.NodeID)
	require.NoError(t, err)
	assert.Equal(t, types.NodeStatusOffline, got.Status)

	for key, expected := range map[string]string{
		store.ContainerStateKey("c1"): `{"id":"c1","node_name":"vehicle-hpc-1"}`,
		store.ModelStateKey("m1"):     "Running",
		store.PackageStateKey("p1"):   "running",
	} {
		value, err := st.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, expected, value)
	}
}

func TestScannerSkipsMaintenance(t *testing.T) {
	r, _ := testRegistry(t)
	ctx := context.Background()

	node, err := r.Register(ctx, subSpec("vehicle-hpc-1"))
	require.NoError(t, err)
	require.NoError(t, r.StatusUpdate(ctx, node.NodeID, types.NodeStatusMaintenance))

	r.nowFunc = func() int64 { return node.LastHeartbeat + 100000 }
	scanner := NewScanner(r)
	require.NoError(t, scanner.Scan(ctx))

	got, err := r.Get(ctx, node.NodeID)
	require.NoError(t, err)
	assert.Equal(t, types.NodeStatusMaintenance, got.Status)
}

func TestHealthCounts(t *testing.T) {
	r, _ := testRegistry(t)
	ctx := context.Background()

	n1, err := r.Register(ctx, subSpec("sub-1"))
	require.NoError(t, err)
	_, err = r.Register(ctx, subSpec("sub-2"))
	require.NoError(t, err)
	require.NoError(t, r.Heartbeat(ctx, n1.NodeID, types.NodeResources{}, nil))

	counts, err := r.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[types.NodeStatusOnline])
	assert.Equal(t, 1, counts[types.NodeStatusInitializing])
}

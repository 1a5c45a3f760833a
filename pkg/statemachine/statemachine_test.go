package statemachine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/piccolo-io/piccolo/pkg/types"
)

// TestContainerStateTotality exercises every combination of raw flags and
// verifies the derived state is always a member of the enumerated set.
func TestContainerStateTotality(t *testing.T) {
	known := map[types.ContainerState]bool{
		types.ContainerStateCreated: true,
		types.ContainerStateRunning: true,
		types.ContainerStateStopped: true,
		types.ContainerStateExited:  true,
		types.ContainerStateDead:    true,
	}

	statuses := []string{"", "created", "running", "paused", "exited", "stopped", "dead", "unknown"}
	for _, running := range []bool{false, true} {
		for _, paused := range []bool{false, true} {
			for _, dead := range []bool{false, true} {
				for _, status := range statuses {
					c := &types.ContainerInfo{
						Status:  status,
						Running: running,
						Paused:  paused,
						Dead:    dead,
					}
					state := ContainerStateOf(c)
					assert.True(t, known[state],
						"derived state %q not in enumerated set for flags running=%v paused=%v dead=%v status=%q",
						state, running, paused, dead, status)
				}
			}
		}
	}
}

func TestContainerStatePrecedence(t *testing.T) {
	tests := []struct {
		name     string
		c        *types.ContainerInfo
		expected types.ContainerState
	}{
		{"dead wins over everything", &types.ContainerInfo{Dead: true, Running: true, Paused: true}, types.ContainerStateDead},
		{"paused wins over running", &types.ContainerInfo{Paused: true, Running: true}, types.ContainerStateStopped},
		{"running", &types.ContainerInfo{Running: true}, types.ContainerStateRunning},
		{"exited status", &types.ContainerInfo{Status: "exited"}, types.ContainerStateExited},
		{"stopped status", &types.ContainerInfo{Status: "stopped"}, types.ContainerStateExited},
		{"fresh container", &types.ContainerInfo{Status: "created"}, types.ContainerStateCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ContainerStateOf(tt.c))
		})
	}
}

func TestDeriveModelState(t *testing.T) {
	running := &types.ContainerInfo{Running: true}
	paused := &types.ContainerInfo{Paused: true}
	exited := &types.ContainerInfo{Status: "exited"}
	dead := &types.ContainerInfo{Dead: true}
	created := &types.ContainerInfo{Status: "created"}

	tests := []struct {
		name       string
		containers []*types.ContainerInfo
		metadataOK bool
		expected   types.ModelState
	}{
		{"empty set is Created", nil, true, types.ModelStateCreated},
		{"metadata fetch failed is Dead", []*types.ContainerInfo{running}, false, types.ModelStateDead},
		{"metadata fetch failed on empty set is Dead", nil, false, types.ModelStateDead},
		{"any dead wins", []*types.ContainerInfo{running, dead, paused}, true, types.ModelStateDead},
		{"all paused", []*types.ContainerInfo{paused, paused}, true, types.ModelStatePaused},
		{"all exited", []*types.ContainerInfo{exited, exited}, true, types.ModelStateExited},
		{"mixed paused and running is Running", []*types.ContainerInfo{paused, running}, true, types.ModelStateRunning},
		{"mixed exited and running is Running", []*types.ContainerInfo{exited, running}, true, types.ModelStateRunning},
		{"created only is Running branch", []*types.ContainerInfo{created}, true, types.ModelStateRunning},
		{"all running", []*types.ContainerInfo{running, running}, true, types.ModelStateRunning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DeriveModelState(tt.containers, tt.metadataOK))
		})
	}
}

func TestDerivePackageState(t *testing.T) {
	tests := []struct {
		name     string
		models   []types.ModelState
		expected types.PackageState
	}{
		{"empty set is idle", nil, types.PackageStateIdle},
		{"all dead is error", []types.ModelState{types.ModelStateDead, types.ModelStateDead}, types.PackageStateError},
		{"some dead is degraded", []types.ModelState{types.ModelStateDead, types.ModelStateRunning, types.ModelStateExited}, types.PackageStateDegraded},
		{"all paused", []types.ModelState{types.ModelStatePaused, types.ModelStatePaused}, types.PackageStatePaused},
		{"all exited", []types.ModelState{types.ModelStateExited, types.ModelStateExited}, types.PackageStateExited},
		{"mixed healthy is running", []types.ModelState{types.ModelStateRunning, types.ModelStatePaused}, types.PackageStateRunning},
		{"single running", []types.ModelState{types.ModelStateRunning}, types.PackageStateRunning},
		{"single dead is error", []types.ModelState{types.ModelStateDead}, types.PackageStateError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DerivePackageState(tt.models))
		})
	}
}

// TestCascadeDeterminism verifies the derived states depend only on the
// container multiset, not on arrival order.
func TestCascadeDeterminism(t *testing.T) {
	a := &types.ContainerInfo{ID: "a", Running: true}
	b := &types.ContainerInfo{ID: "b", Paused: true}
	c := &types.ContainerInfo{ID: "c", Status: "exited"}

	orders := [][]*types.ContainerInfo{
		{a, b, c},
		{c, b, a},
		{b, a, c},
	}

	first := DeriveModelState(orders[0], true)
	for _, order := range orders[1:] {
		assert.Equal(t, first, DeriveModelState(order, true))
	}
}

func TestValid(t *testing.T) {
	assert.True(t, Valid(types.KindModel, "Running"))
	assert.True(t, Valid(types.KindPackage, "degraded"))
	assert.True(t, Valid(types.KindScenario, "satisfied"))
	assert.True(t, Valid(types.KindContainer, "Exited"))

	assert.False(t, Valid(types.KindModel, "running"), "model states are capitalized")
	assert.False(t, Valid(types.KindPackage, "Running"), "package states are lowercase")
	assert.False(t, Valid(types.KindModel, "bogus"))
	assert.False(t, Valid(types.ResourceKind("node"), "online"))
}

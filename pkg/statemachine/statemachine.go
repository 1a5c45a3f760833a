package statemachine

import (
	"github.com/piccolo-io/piccolo/pkg/types"
)

// ContainerStateOf derives the container state label from raw runtime
// flags. The branch order is contractual: dead wins over paused, paused
// over running, and a finished lifecycle maps to Exited.
func ContainerStateOf(c *types.ContainerInfo) types.ContainerState {
	switch {
	case c.Dead:
		return types.ContainerStateDead
	case c.Paused:
		return types.ContainerStateStopped
	case c.Running:
		return types.ContainerStateRunning
	case exited(c):
		return types.ContainerStateExited
	default:
		return types.ContainerStateCreated
	}
}

// exited reports whether the runtime says the container's lifecycle ended.
func exited(c *types.ContainerInfo) bool {
	return c.Status == "exited" || c.Status == "stopped"
}

// DeriveModelState folds a model's complete container set into the model
// state. metadataOK is false when the container set could not be fetched;
// a partial observation must be reported as Dead rather than guessed at.
//
// Evaluation order is contractual: Dead, then Paused, then Exited, then
// Running. An empty set yields Created.
func DeriveModelState(containers []*types.ContainerInfo, metadataOK bool) types.ModelState {
	if !metadataOK {
		return types.ModelStateDead
	}
	if len(containers) == 0 {
		return types.ModelStateCreated
	}

	allPaused, allExited := true, true
	for _, c := range containers {
		state := ContainerStateOf(c)
		if state == types.ContainerStateDead {
			return types.ModelStateDead
		}
		if !c.Paused {
			allPaused = false
		}
		if state != types.ContainerStateExited {
			allExited = false
		}
	}

	switch {
	case allPaused:
		return types.ModelStatePaused
	case allExited:
		return types.ModelStateExited
	default:
		return types.ModelStateRunning
	}
}

// DerivePackageState folds a package's complete model set into the package
// state. Evaluation order is contractual: error, then degraded, then
// paused, then exited, then running. An empty set yields idle — the only
// way idle is ever produced; once a package has models it never returns
// to idle.
func DerivePackageState(models []types.ModelState) types.PackageState {
	if len(models) == 0 {
		return types.PackageStateIdle
	}

	anyDead, allDead, allPaused, allExited := false, true, true, true
	for _, m := range models {
		if m == types.ModelStateDead {
			anyDead = true
		} else {
			allDead = false
		}
		if m != types.ModelStatePaused {
			allPaused = false
		}
		if m != types.ModelStateExited {
			allExited = false
		}
	}

	switch {
	case allDead:
		return types.PackageStateError
	case anyDead:
		return types.PackageStateDegraded
	case allPaused:
		return types.PackageStatePaused
	case allExited:
		return types.PackageStateExited
	default:
		return types.PackageStateRunning
	}
}

// validStates enumerates the legal state alphabet per resource kind, used
// to validate explicit state overrides before they are persisted.
var validStates = map[types.ResourceKind]map[string]bool{
	types.KindContainer: {
		string(types.ContainerStateCreated): true,
		string(types.ContainerStateRunning): true,
		string(types.ContainerStateStopped): true,
		string(types.ContainerStateExited):  true,
		string(types.ContainerStateDead):    true,
	},
	types.KindModel: {
		string(types.ModelStateCreated): true,
		string(types.ModelStateRunning): true,
		string(types.ModelStatePaused):  true,
		string(types.ModelStateExited):  true,
		string(types.ModelStateDead):    true,
	},
	types.KindPackage: {
		string(types.PackageStateIdle):     true,
		string(types.PackageStateRunning):  true,
		string(types.PackageStatePaused):   true,
		string(types.PackageStateExited):   true,
		string(types.PackageStateDegraded): true,
		string(types.PackageStateError):    true,
	},
	types.KindScenario: {
		string(types.ScenarioStateIdle):      true,
		string(types.ScenarioStateWaiting):   true,
		string(types.ScenarioStateSatisfied): true,
		string(types.ScenarioStateAllowed):   true,
		string(types.ScenarioStateDenied):    true,
		string(types.ScenarioStateCompleted): true,
	},
}

// Valid reports whether state is a legal value for the given kind.
func Valid(kind types.ResourceKind, state string) bool {
	return validStates[kind][state]
}

// KnownKind reports whether kind names a state-managed resource level.
func KnownKind(kind types.ResourceKind) bool {
	_, ok := validStates[kind]
	return ok
}

package store

import (
	"fmt"
	"strings"

	"github.com/piccolo-io/piccolo/pkg/types"
)

// Key layout. These byte-exact forms are the stable storage contract; the
// registry is the sole writer under /cluster, the state manager under
// /container, /model, /package, /scenario and /index.
const (
	NodesPrefix      = "/cluster/nodes/"
	NodesByNameInfix = "by-name/"
	HeartbeatsPrefix = "/cluster/heartbeats/"
	IndexPrefix      = "/index/"
)

// NodeKey is the record key for a registered node.
func NodeKey(nodeID string) string {
	return NodesPrefix + nodeID
}

// NodeByNameKey is the uniqueness-index key mapping node_name to node_id.
func NodeByNameKey(nodeName string) string {
	return NodesPrefix + NodesByNameInfix + nodeName
}

// IsNodeByNameKey reports whether key belongs to the by-name index rather
// than to a node record. Both live under NodesPrefix.
func IsNodeByNameKey(key string) bool {
	return strings.HasPrefix(key, NodesPrefix+NodesByNameInfix)
}

// HeartbeatKey holds the last heartbeat epoch for a node.
func HeartbeatKey(nodeID string) string {
	return HeartbeatsPrefix + nodeID
}

// StateKey is the derived-state key for a resource of the given kind.
func StateKey(kind types.ResourceKind, name string) string {
	return fmt.Sprintf("/%s/%s/state", kind, name)
}

// ContainerStateKey holds the raw container record.
func ContainerStateKey(containerID string) string {
	return StateKey(types.KindContainer, containerID)
}

// ModelStateKey holds a model's derived state.
func ModelStateKey(model string) string {
	return StateKey(types.KindModel, model)
}

// PackageStateKey holds a package's derived state.
func PackageStateKey(pkg string) string {
	return StateKey(types.KindPackage, pkg)
}

// ModelContainersPrefix lists the container ids of a model.
func ModelContainersPrefix(model string) string {
	return fmt.Sprintf("/index/model/%s/containers/", model)
}

// ModelContainerIndexKey is one container-membership entry of a model.
func ModelContainerIndexKey(model, containerID string) string {
	return ModelContainersPrefix(model) + containerID
}

// PackageModelsPrefix lists the model names of a package.
func PackageModelsPrefix(pkg string) string {
	return fmt.Sprintf("/index/package/%s/models/", pkg)
}

// PackageModelIndexKey is one model-membership entry of a package.
func PackageModelIndexKey(pkg, model string) string {
	return PackageModelsPrefix(pkg) + model
}

// LastSegment returns the final path segment of a key, which for index
// entries is the member name.
func LastSegment(key string) string {
	idx := strings.LastIndex(key, "/")
	if idx < 0 {
		return key
	}
	return key[idx+1:]
}

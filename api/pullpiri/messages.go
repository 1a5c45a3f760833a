package pullpiri

import (
	"github.com/piccolo-io/piccolo/pkg/types"
)

// Status is the coarse response status carried by every reply.
type Status string

const (
	StatusOk              Status = "Ok"
	StatusInvalidArgument Status = "InvalidArgument"
	StatusNotFound        Status = "NotFound"
	StatusUnavailable     Status = "Unavailable"
	StatusConflict        Status = "Conflict"
	StatusInternal        Status = "Internal"
)

// Ack is the generic reply: a coarse status plus a free-form message.
type Ack struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// RegisterNodeRequest carries a node's self-description at registration.
type RegisterNodeRequest struct {
	NodeName  string              `json:"node_name"`
	IPAddress string              `json:"ip_address"`
	Role      string              `json:"role"`
	Resources types.NodeResources `json:"resources"`
	Labels    map[string]string   `json:"labels,omitempty"`
}

// ClusterConfig is handed back to a registering node so master and agents
// agree on timing.
type ClusterConfig struct {
	HeartbeatIntervalSeconds int64 `json:"heartbeat_interval_seconds"`
}

// RegisterNodeResponse returns the server-issued node identity.
type RegisterNodeResponse struct {
	Status        Status        `json:"status"`
	Message       string        `json:"message,omitempty"`
	NodeID        string        `json:"node_id"`
	ClusterConfig ClusterConfig `json:"cluster_config"`
}

// HeartbeatRequest carries a liveness report with current resource usage
// and the node's container observations.
type HeartbeatRequest struct {
	NodeID     string                 `json:"node_id"`
	Resources  types.NodeResources    `json:"resources"`
	Containers []*types.ContainerInfo `json:"containers,omitempty"`
}

// ReportStateRequest is an explicit state report for one resource.
type ReportStateRequest struct {
	Kind  string `json:"kind"`
	Name  string `json:"name"`
	State string `json:"state"`
}

// ArtifactInfo instructs an agent to deploy or update a workload artifact.
type ArtifactInfo struct {
	ArtifactID string `json:"artifact_id"`
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	Spec       string `json:"spec,omitempty"`
}

// RemoveArtifactRequest instructs an agent to remove a workload artifact.
type RemoveArtifactRequest struct {
	ArtifactID string `json:"artifact_id"`
}

// HealthCheckRequest probes an agent.
type HealthCheckRequest struct{}

// Pong answers a health check.
type Pong struct {
	Status   Status `json:"status"`
	NodeName string `json:"node_name,omitempty"`
}

// ReconcileRequest asks the action controller to remediate a package that
// entered the error state.
type ReconcileRequest struct {
	PackageName string `json:"package_name"`
}

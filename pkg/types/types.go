package types

// Node represents a master or sub node in the cluster. The JSON shape of
// this struct is the stored record under /cluster/nodes/{node_id}.
type Node struct {
	NodeID        string            `json:"node_id"`
	NodeName      string            `json:"node_name"`
	IPAddress     string            `json:"ip_address"`
	Role          NodeRole          `json:"role"`
	Status        NodeStatus        `json:"status"`
	Resources     NodeResources     `json:"resources"`
	Labels        map[string]string `json:"labels,omitempty"`
	CreatedAt     int64             `json:"created_at"`
	LastHeartbeat int64             `json:"last_heartbeat"`
}

// NodeRole defines the role of a node
type NodeRole string

const (
	NodeRoleMaster NodeRole = "master"
	NodeRoleSub    NodeRole = "sub"
)

// NodeStatus represents the liveness state of a node
type NodeStatus string

const (
	NodeStatusInitializing NodeStatus = "initializing"
	NodeStatusOnline       NodeStatus = "online"
	NodeStatusOffline      NodeStatus = "offline"
	NodeStatusError        NodeStatus = "error"
	NodeStatusMaintenance  NodeStatus = "maintenance"
)

// IsOnline reports whether the node is participating in the cluster.
// Initializing counts: the node has registered but not yet heartbeated.
func (s NodeStatus) IsOnline() bool {
	return s == NodeStatusOnline || s == NodeStatusInitializing
}

// NodeResources tracks capacity and current usage of a node
type NodeResources struct {
	CPUCores    int     `json:"cpu_cores"`
	MemoryMB    int64   `json:"memory_mb"`
	DiskGB      int64   `json:"disk_gb"`
	CPUUsage    float64 `json:"cpu_usage"`
	MemoryUsage float64 `json:"memory_usage"`
}

// ModelAnnotation is the container annotation that assigns a container to a
// model; PackageAnnotation assigns a model to a package.
const (
	ModelAnnotation   = "pullpiri.model"
	PackageAnnotation = "pullpiri.package"
)

// AgentAddrLabel is the node label under which an agent advertises its
// NodeAgentService listen address. The master falls back to the node's
// ip_address with the default agent port when absent.
const AgentAddrLabel = "pullpiri.agent-addr"

// ContainerInfo is a container observation reported by a node agent. The
// JSON shape of this struct is the stored record under
// /container/{container_id}/state.
type ContainerInfo struct {
	ID          string            `json:"id"`
	Name        string            `json:"name,omitempty"`
	Image       string            `json:"image,omitempty"`
	NodeName    string            `json:"node_name"`
	Annotations map[string]string `json:"annotations,omitempty"`

	// Raw lifecycle flags from the container runtime.
	Status  string `json:"status"`
	Running bool   `json:"running"`
	Paused  bool   `json:"paused"`
	Dead    bool   `json:"dead"`
}

// Model returns the model this container belongs to, or "" if unannotated.
func (c *ContainerInfo) Model() string {
	return c.Annotations[ModelAnnotation]
}

// Package returns the package this container's model belongs to.
func (c *ContainerInfo) Package() string {
	return c.Annotations[PackageAnnotation]
}

// ContainerState is the label derived from a container's raw flags
type ContainerState string

const (
	ContainerStateCreated ContainerState = "Created"
	ContainerStateRunning ContainerState = "Running"
	ContainerStateStopped ContainerState = "Stopped"
	ContainerStateExited  ContainerState = "Exited"
	ContainerStateDead    ContainerState = "Dead"
)

// ModelState is derived from the states of a model's containers
type ModelState string

const (
	ModelStateCreated ModelState = "Created"
	ModelStateRunning ModelState = "Running"
	ModelStatePaused  ModelState = "Paused"
	ModelStateExited  ModelState = "Exited"
	ModelStateDead    ModelState = "Dead"
)

// PackageState is derived from the states of a package's models
type PackageState string

const (
	PackageStateIdle     PackageState = "idle"
	PackageStateRunning  PackageState = "running"
	PackageStatePaused   PackageState = "paused"
	PackageStateExited   PackageState = "exited"
	PackageStateDegraded PackageState = "degraded"
	PackageStateError    PackageState = "error"
)

// ScenarioState is referenced by the settings plane; the core validates and
// stores scenario states but does not cascade them.
type ScenarioState string

const (
	ScenarioStateIdle      ScenarioState = "idle"
	ScenarioStateWaiting   ScenarioState = "waiting"
	ScenarioStateSatisfied ScenarioState = "satisfied"
	ScenarioStateAllowed   ScenarioState = "allowed"
	ScenarioStateDenied    ScenarioState = "denied"
	ScenarioStateCompleted ScenarioState = "completed"
)

// ResourceKind names a state-managed resource hierarchy level
type ResourceKind string

const (
	KindContainer ResourceKind = "container"
	KindModel     ResourceKind = "model"
	KindPackage   ResourceKind = "package"
	KindScenario  ResourceKind = "scenario"
)

// Topology is the cluster membership view: one master, the rest subs
type Topology struct {
	Master *Node   `json:"master,omitempty"`
	Subs   []*Node `json:"subs"`
}

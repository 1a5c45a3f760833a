/*
Package agent implements the Piccolo node agent: the per-node daemon that
joins the cluster and keeps the master's view of this node current.

# Lifecycle

On startup the agent detects local resources, reads its configuration
from the environment, and registers with the master using exponential
backoff (1s, 2s, 4s, 8s capped at 30s, unbounded retries). The issued
node_id is persisted under the data directory; after a restart the agent
re-registers under the same node_name and the master returns the same
node_id.

The connection is a supervised state machine:

	Registering --registered--> Connected
	Connected --transport-error--> Disconnected --> Registering

While Connected, the heartbeat loop reports resource usage and the local
container list every interval. Container observations come from the
Docker Engine API, read-only: raw lifecycle flags from inspect plus the
labels carrying the pullpiri.model / pullpiri.package grouping keys.
Workload execution is not the agent's job.

The agent also serves NodeAgentService for master-initiated artifact
dispatch and health checks. Cancelling the run context stops every loop
within the shutdown budget; in-flight RPCs complete or time out.
*/
package agent

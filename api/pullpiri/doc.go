/*
Package pullpiri defines the gRPC wire contract between the Piccolo
master, the node agents, and the external action controller.

Three unary services:

  - ApiServerService (served by the master): RegisterNode, Heartbeat,
    ReportState.
  - NodeAgentService (served by each agent): HandleArtifact,
    RemoveArtifact, HealthCheck.
  - ActionControllerService (served externally): Reconcile.

Messages are lowercase_snake JSON carried over gRPC framing through the
codec registered in this package; client stubs pin every call to it, and
every response carries the coarse status enum plus a free-form message.
The service descriptors mirror protoc-gen-go-grpc output so the handler
and interceptor plumbing composes with the rest of the grpc-go ecosystem.
*/
package pullpiri

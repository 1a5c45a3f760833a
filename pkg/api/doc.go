// Package api is the master's gRPC boundary: the ApiServerService
// handlers agents call into (registration, heartbeat fan-in, state
// reports) and the Dispatcher fanning artifact and health calls out to
// agents over NodeAgentService, one lazily-created channel per node.
// Handlers translate domain errors through the errdefs taxonomy; nothing
// else leaks across the wire.
package api

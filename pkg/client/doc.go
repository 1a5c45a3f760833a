// Package client wraps the outbound gRPC channels of this repository:
// the master's ApiServerService (used by agents and the CLI) and the
// external action controller's reconcile endpoint.
package client

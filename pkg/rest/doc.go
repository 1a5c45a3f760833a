// Package rest is the cluster-admin HTTP boundary: node listing and
// lifecycle, aggregated health, topology, derived-state reads, artifact
// push/remove and agent health probes forwarded through the per-node
// dispatcher, and the metrics endpoint. JSON bodies mirror the pkg/types
// data model and HTTP statuses follow the errdefs taxonomy
// (400/404/409/503/500).
package rest

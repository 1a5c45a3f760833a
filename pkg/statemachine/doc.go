// Package statemachine holds the pure state derivation rules for the
// Container → Model → Package hierarchy. The functions are total over the
// enumerated state alphabets, deterministic, and perform no I/O; callers
// must pass the complete child set (a failed metadata fetch is reported
// through metadataOK and maps to the Dead branch).
package statemachine

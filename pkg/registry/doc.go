/*
Package registry implements cluster membership for the Piccolo master:
node registration, heartbeat tracking, liveness classification and the
topology view.

# State machine

	Initializing --first-heartbeat--> Online
	Online  --threshold-exceeded--> Offline
	Offline --heartbeat-->          Online
	Offline --failure-timeout-->    Error
	Any     --admin-->              Maintenance

The offline threshold is three missed heartbeat intervals (90 s at the
default 30 s interval); the failure timeout defaults to five minutes on
top of that. Nodes are never auto-deleted — Deregister is an explicit
operator action and leaves container/model/package records untouched.

# Concurrency

Registration is serialized by compare-and-swap on the by-name uniqueness
index, which also makes re-registration idempotent: the same node_name
always resolves to the same node_id. Heartbeats proceed in parallel and
are idempotent on last_heartbeat (it never moves backwards). The liveness
scanner transitions records by CAS only, so a racing heartbeat always
wins.

All reads are served from the KV store; the registry keeps no in-memory
membership view.
*/
package registry

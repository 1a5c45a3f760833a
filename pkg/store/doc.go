/*
Package store provides the typed adapter over the consistent key/value
store that is the single source of truth for all Piccolo cluster state.

Two implementations exist:

  - EtcdStore: the production adapter over etcd client v3. Registration
    uniqueness rides on single-key transactions (CompareAndSwap) and
    watches resume from the last observed revision, re-listing the prefix
    when the store reports that revision compacted.
  - MemStore: an in-process implementation with the same ordering and
    watch semantics, used by unit tests and dev mode.

# Key layout

	/cluster/nodes/{node_id}                    node record (JSON)
	/cluster/nodes/by-name/{node_name}          node_id (uniqueness index)
	/cluster/heartbeats/{node_id}               epoch seconds (decimal)
	/container/{container_id}/state             container record (JSON)
	/model/{model_name}/state                   Created|Running|Paused|Exited|Dead
	/package/{package_name}/state               idle|running|paused|exited|degraded|error
	/scenario/{scenario_name}/state             idle|waiting|satisfied|allowed|denied|completed
	/index/model/{m}/containers/{id}            "" (membership)
	/index/package/{p}/models/{m}               "" (membership)

Ownership is strict: the node registry is the sole writer under /cluster,
the state manager everywhere else. Readers are unrestricted.

# Errors

Get returns errdefs.NotFound on a miss; transport loss surfaces as
errdefs.Unavailable. Retry wraps the caller side of that contract with
exponential backoff capped at 30 seconds.
*/
package store

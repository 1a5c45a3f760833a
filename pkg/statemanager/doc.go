/*
Package statemanager accepts container observations from node agents,
persists authoritative state in the KV store, and cascades derived states
upward through the Container → Model → Package hierarchy.

# Cascade

One IngestContainerList call performs, in order:

 1. Upsert each container's raw record and its membership index entry
    (/index/model/{m}/containers/{id}, /index/package/{p}/models/{m}).
 2. For each touched model, re-derive its state from the complete
    container set read back through the index; persist only on change.
 3. For each touched package, re-derive from its model set; persist only
    on change. The PackageWatcher observes the /package prefix in the
    store and raises a package.error event when a state lands on error;
    the Dispatcher turns that into a reconcile request to the action
    controller.

The hierarchy is a strict DAG held in the secondary indices — there are no
bidirectional in-memory pointers. Updates to one derived key are
serialized by a per-(kind,name) mutex from a bounded LRU, held only
across that key's read-compute-write; the compute is pure, so hold times
are bounded. The cascade is not globally atomic: a reader may observe a
model's new state before the parent package catches up, and the system
quiesces within one full pass once events stop arriving.

# Failure semantics

A failed KV write aborts that single key's update; the key converges on
the next event that touches it, and sibling keys are unaffected.
Reconcile dispatch is fire-and-forget with at-least-once retry and
exponential backoff capped at five minutes — duplicates are acceptable
because the action controller is idempotent. Because derived values are
only written (and events only published) on change, a master restart over
an intact store emits no spurious reconcile requests.
*/
package statemanager

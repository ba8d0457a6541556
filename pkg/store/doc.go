/*
Package store is the shared state store: the sole owner of the cluster view
and the FSM-visible log. Every accessor acquires the owning aggregate's lock
for the duration of the call and releases it before returning — never across
I/O, never while holding another aggregate's lock.

Durability is split in two. hashicorp/raft (pkg/raftengine) keeps its own
authoritative log and hard state in a raft-boltdb store, which is what
actually survives a crash and is replayed to rebuild the FSM. This package's
in-memory LogEntry ring is the FSM-visible projection of that replay — it
exists so callers can inspect commit/apply progress (spec.md's log_* family
of accessors) without reaching into the Raft library's internals. A separate
BoltDB-backed Persister periodically snapshots the ClusterView so a restarted
node has a picture of cluster membership before Raft finishes catching up.
*/
package store

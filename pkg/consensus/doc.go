/*
Package consensus implements the consensus worker: component E, the sole
thread of control that touches the Raft engine and the command pipeline.
Every tick it advances Raft-adjacent bookkeeping, drains a bounded number of
commands, dispatches them by type, and periodically requests a snapshot.
Raft's own internal ready-loop lives inside hashicorp/raft (pkg/raftengine);
this worker's tick drives the pgraft-level obligations layered on top of it:
command dispatch, snapshot cadence, and conf-change-triggered transport
updates.
*/
package consensus

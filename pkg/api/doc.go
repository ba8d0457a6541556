/*
Package api implements the daemon's local HTTP control surface.

It exposes the two endpoints spec.md names — GET /api/v1/cluster/health and
POST /api/v1/cluster/add-node — plus the read-only extras SPEC_FULL.md adds:
GET /api/v1/cluster/status (full ClusterView JSON), GET /metrics (Prometheus),
and GET /api/v1/cluster/events (a Server-Sent-Events feed over the typed
event bus). Every JSON endpoint's response, success or failure, is the same
envelope: {status: "ok"|"error", message, data?}; /metrics answers in the
Prometheus text format and the events feed as an SSE stream.

The server never proposes Raft commands directly. add-node enqueues a
types.Command onto the command pipeline the same way the consensus worker's
own callers do; the consensus worker is the only component that turns a
command into a Raft proposal.
*/
package api

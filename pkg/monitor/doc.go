/*
Package monitor implements the health monitor: component F. On its own
timer it probes the local PostgreSQL instance and every known peer, updates
each node's liveness fields in the shared state store, computes quorum, and
notifies the failover orchestrator (pkg/failover) via a typed channel when
the known primary has failed enough consecutive checks to declare it down.
*/
package monitor

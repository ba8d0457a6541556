/*
Package metrics defines and registers the daemon's Prometheus metrics and
exposes them on /metrics via promhttp.

Gauges track instantaneous Raft and cluster state (is_leader, term, log
indices, healthy node count, quorum); counters track monotonic totals
(commands processed, failover episodes, reconciliation cycles); histograms
track latency distributions (health-check duration, failover duration,
control-surface request duration). Collector samples store, raftengine,
command, and monitor into the gauges on a fixed period; the control surface
and the reconciler update their own request and reconciliation metrics
inline. The command-processed/rejected, health-check, failover, snapshot
and replication metrics are registered but no component updates them.
*/
package metrics

/*
Package types defines the core data structures shared by every pgraft
component: the cluster view and its nodes, the replicated log, the command
pipeline's commands, and the failover/replication contexts built on top of
them.

# Ownership

Per the design's single-writer discipline, these types are not free-form
mutable values passed around the program. pkg/store is the sole owner of
ClusterView and LogEntry and only it may mutate them, under per-aggregate
locks. pkg/command owns the Command ring. The failover and replication
packages own their own FailoverContext and StandbyDescriptor values for the
duration of one episode. The health monitor updates a Node's liveness
fields (Healthy, HealthScore, LastSeen, WALLSN, ReplicationLagMS) through
the store's UpdateNodeLiveness; the failover orchestrator also calls it
once per episode, to mark the failed primary unhealthy.

# Capacity

Every bounded collection in this package carries its limit as an exported
constant (MaxNodes, MaxLogEntryBytes, MaxQueuedCommands) so callers can
reject oversized input before it reaches the shared store.
*/
package types

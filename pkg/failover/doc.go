/*
Package failover implements the failover orchestrator: component G.
Execute runs the deterministic, auditable sequence — detect, select
candidate, promote, validate, rewire synchronous standbys — recorded as a
single FailoverContext per episode. RebuildReplica and DemoteFailedPrimary
cover the companion recovery paths named alongside it.
*/
package failover

/*
Package replication implements component H: synchronous-replication policy
management, the synchronous_standby_names generator, and the basebackup +
recovery-configuration streaming-setup sequence (StreamFrom). The failover
orchestrator's rebuild step runs its own wipe/basebackup sequence and does
not call StreamFrom.
*/
package replication

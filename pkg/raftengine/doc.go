/*
Package raftengine wraps hashicorp/raft to provide component B: the durable
Raft state machine (follower/candidate/leader), log append, commit,
conf-change, and snapshotting. Implementing Raft from scratch is explicitly
out of scope for this system — behavior is expected to follow the Raft
paper — so this package delegates tick/step/ready/advance internals to the
library's own raft.Raft, and exposes the facade the rest of pgraft actually
calls: Propose, ProposeConfChange, IsLeader, LeaderID, Term, Stats,
Shutdown.

Membership changes are applied twice, deliberately: raft.AddVoter/
RemoveServer update hashicorp/raft's own voting configuration (and thus its
replication and election majority math), while the same conf-change is also
threaded through the FSM as a normal log entry so the shared state store
(pkg/store) learns the node's address, port, and role — metadata
hashicorp/raft's configuration log entries do not carry.
*/
package raftengine

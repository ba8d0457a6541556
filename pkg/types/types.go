package types

import (
	"time"
)

// NodeRole describes the PostgreSQL role a cluster member currently holds.
type NodeRole string

const (
	NodeRolePrimary NodeRole = "primary"
	NodeRoleStandby NodeRole = "standby"
	NodeRoleUnknown NodeRole = "unknown"
)

// Node is a single PostgreSQL instance participating in the cluster.
//
// Nodes are created when an add-node entry commits and destroyed on the
// matching remove-node commit (the Raft FSM applies both). Other writes go
// straight to pkg/store, not through the consensus worker: the failover
// orchestrator sets roles and marks the failed primary unhealthy, and the
// health monitor updates the liveness fields (Healthy, HealthScore,
// LastSeen, WALLSN, ReplicationLagMS).
type Node struct {
	ID                uint32    `json:"id"`
	Address           string    `json:"address"`
	Port              int       `json:"port"`
	Role              NodeRole  `json:"role"`
	Healthy           bool      `json:"healthy"`
	HealthScore       float64   `json:"health_score"`
	LastSeen          time.Time `json:"last_seen"`
	WALLSN            uint64    `json:"wal_lsn"`
	ReplicationLagMS  int32     `json:"replication_lag_ms"`
}

// MaxNodes is the hard cap on cluster membership.
const MaxNodes = 16

// RaftState mirrors the Raft engine's externally visible role.
type RaftState string

const (
	RaftStateFollower  RaftState = "follower"
	RaftStateCandidate RaftState = "candidate"
	RaftStateLeader    RaftState = "leader"
)

// ClusterCounters tracks lightweight cumulative activity counters.
// It is exposed as part of ClusterView rather than only via Prometheus so
// that the HTTP control surface can report them without a metrics scrape.
type ClusterCounters struct {
	MessagesProcessed  uint64 `json:"messages_processed"`
	HeartbeatsSent     uint64 `json:"heartbeats_sent"`
	ElectionsTriggered uint64 `json:"elections_triggered"`
}

// ClusterView is the singleton, per-process picture of cluster membership
// and consensus state. It is owned exclusively by the shared state store
// (pkg/store); every other component reads or writes it only through that
// store's locked accessors.
type ClusterView struct {
	ClusterName   string           `json:"cluster_name"`
	LocalNodeID   uint32           `json:"local_node_id"`
	LeaderID      uint32           `json:"leader_id"`
	CurrentTerm   uint64           `json:"current_term"`
	State         RaftState        `json:"state"`
	Nodes         map[uint32]*Node `json:"nodes"`
	PrimaryNodeID uint32           `json:"primary_node_id"`
	Counters      ClusterCounters  `json:"counters"`
}

// LogEntry is a single committed-or-pending slot in the replicated log.
//
// Invariants (enforced by pkg/store): entries[i].Index == entries[0].Index+i;
// once Committed, never un-committed; Applied implies Committed.
type LogEntry struct {
	Index     uint64    `json:"index"`
	Term      uint64    `json:"term"`
	Timestamp time.Time `json:"timestamp"`
	Data      []byte    `json:"data"` // <= MaxLogEntryBytes
	Committed bool      `json:"committed"`
	Applied   bool       `json:"applied"`
}

// MaxLogEntryBytes bounds a single log entry's payload.
const MaxLogEntryBytes = 1024

// CommandType enumerates the operations the command pipeline accepts.
type CommandType string

const (
	CommandInit       CommandType = "INIT"
	CommandAddNode    CommandType = "ADD_NODE"
	CommandRemoveNode CommandType = "REMOVE_NODE"
	CommandLogAppend  CommandType = "LOG_APPEND"
	CommandLogCommit  CommandType = "LOG_COMMIT"
	CommandLogApply   CommandType = "LOG_APPLY"
	CommandShutdown   CommandType = "SHUTDOWN"
)

// CommandStatus is the lifecycle state of a queued Command.
type CommandStatus string

const (
	CommandPending    CommandStatus = "PENDING"
	CommandProcessing CommandStatus = "PROCESSING"
	CommandCompleted  CommandStatus = "COMPLETED"
	CommandFailed     CommandStatus = "FAILED"
)

// Command is one request flowing through the single-writer command pipeline.
// Its status record stays in the pipeline's fixed-size status ring until
// Pipeline.RemoveCompleted prunes it (once COMPLETED or FAILED) or the ring
// evicts it as the oldest entry; the daemon does not call RemoveCompleted
// on a schedule.
type Command struct {
	Type         CommandType   `json:"type"`
	NodeID       uint32        `json:"node_id,omitempty"`
	Address      string        `json:"address,omitempty"`
	Port         int           `json:"port,omitempty"`
	ClusterID    string        `json:"cluster_id,omitempty"`
	LogData      []byte        `json:"log_data,omitempty"`
	LogIndex     uint64        `json:"log_index,omitempty"`
	Status       CommandStatus `json:"status"`
	ErrorMessage string        `json:"error_message,omitempty"`
	Timestamp    time.Time     `json:"timestamp"`
}

// MaxQueuedCommands is the command ring's fixed capacity.
const MaxQueuedCommands = 100

// FailoverState tracks the progress of one failover episode.
type FailoverState string

const (
	FailoverNormal     FailoverState = "NORMAL"
	FailoverDetecting  FailoverState = "DETECTING"
	FailoverPromoting  FailoverState = "PROMOTING"
	FailoverCompleted  FailoverState = "COMPLETED"
	FailoverFailed     FailoverState = "FAILED"
)

// FailoverContext describes a single failover episode end to end. Exactly
// one instance is active per episode; it is created by the orchestrator and
// discarded once the episode ends.
type FailoverContext struct {
	State          FailoverState `json:"state"`
	FailedNodeID   uint32        `json:"failed_node_id"`
	NewPrimaryID   uint32        `json:"new_primary_node_id"`
	Reason         string        `json:"reason"`
	StartedAt      time.Time     `json:"started_at"`
	CompletedAt    time.Time     `json:"completed_at"`
}

// StandbyState is the PostgreSQL-reported state of a streaming replica, as
// it would appear in pg_stat_replication.state.
type StandbyState string

const (
	StandbyStartup   StandbyState = "startup"
	StandbyCatchup   StandbyState = "catchup"
	StandbyStreaming StandbyState = "streaming"
	StandbyBackup    StandbyState = "backup"
	StandbyStopping  StandbyState = "stopping"
	StandbyUnknown   StandbyState = "unknown"
)

// StandbyDescriptor is the replication controller's view of one standby.
type StandbyDescriptor struct {
	NodeID           uint32       `json:"node_id"`
	ApplicationName  string       `json:"application_name"`
	IsSync           bool         `json:"is_sync"`
	IsConnected      bool         `json:"is_connected"`
	FlushLagBytes    int64        `json:"flush_lag_bytes"`
	ReplayLagBytes   int64        `json:"replay_lag_bytes"`
	LastSyncTime     time.Time    `json:"last_sync_time"`
	State            StandbyState `json:"state"`
}

// SyncMode is the synchronous-replication policy, mapped 1:1 onto
// PostgreSQL's synchronous_commit GUC values.
type SyncMode string

const (
	SyncModeOff         SyncMode = "off"
	SyncModeLocal        SyncMode = "local"
	SyncModeRemoteWrite  SyncMode = "remote_write"
	SyncModeRemoteApply  SyncMode = "remote_apply"
)

// HealthStatusLevel is the coarse-grained level reported by the health
// monitor for the overall node/cluster picture.
type HealthStatusLevel string

const (
	HealthOK       HealthStatusLevel = "OK"
	HealthWarning  HealthStatusLevel = "WARNING"
	HealthError    HealthStatusLevel = "ERROR"
	HealthCritical HealthStatusLevel = "CRITICAL"
)

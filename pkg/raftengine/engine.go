package raftengine

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb"
	"github.com/pgraft/pgraft/pkg/events"
	"github.com/pgraft/pgraft/pkg/pgerrors"
	"github.com/pgraft/pgraft/pkg/store"
	"github.com/pgraft/pgraft/pkg/types"
)

// Config configures a new Engine. Fields map directly onto the Raft timing
// and identity options in the external interface.
type Config struct {
	NodeID            uint32
	Address           string
	Port              int
	DataDir           string
	HeartbeatInterval time.Duration
	ElectionTimeout   time.Duration
	Bootstrap         bool // true only for the node that forms a brand-new cluster
}

// Engine is component B: the Raft consensus engine facade.
type Engine struct {
	raft      *raft.Raft
	fsm       *FSM
	store     *store.Store
	transport *raft.NetworkTransport
	nodeID    uint32
}

// New constructs and starts a Raft engine backed by store and publishing
// lifecycle events to broker.
func New(cfg Config, s *store.Store, broker *events.Broker) (*Engine, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating raft data dir: %w", err)
	}

	raftCfg := raft.DefaultConfig()
	raftCfg.LocalID = raft.ServerID(fmt.Sprintf("%d", cfg.NodeID))
	raftCfg.HeartbeatTimeout = cfg.HeartbeatInterval
	raftCfg.ElectionTimeout = cfg.ElectionTimeout
	raftCfg.LeaderLeaseTimeout = cfg.HeartbeatInterval

	boltPath := filepath.Join(cfg.DataDir, "raft-log.bolt")
	logStore, err := raftboltdb.NewBoltStore(boltPath)
	if err != nil {
		return nil, fmt.Errorf("opening raft log store: %w", err)
	}

	snapshotStore, err := raft.NewFileSnapshotStore(cfg.DataDir, 2, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("opening raft snapshot store: %w", err)
	}

	bindAddr := fmt.Sprintf("%s:%d", cfg.Address, cfg.Port)
	addr, err := net.ResolveTCPAddr("tcp", bindAddr)
	if err != nil {
		return nil, fmt.Errorf("resolving raft bind address %s: %w", bindAddr, err)
	}
	transport, err := raft.NewTCPTransport(bindAddr, addr, 10, 10*time.Second, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("creating raft transport: %w", err)
	}

	fsm := NewFSM(s, broker)

	r, err := raft.NewRaft(raftCfg, fsm, logStore, logStore, snapshotStore, transport)
	if err != nil {
		return nil, fmt.Errorf("starting raft: %w", err)
	}

	if cfg.Bootstrap {
		configuration := raft.Configuration{
			Servers: []raft.Server{
				{ID: raftCfg.LocalID, Address: transport.LocalAddr()},
			},
		}
		if f := r.BootstrapCluster(configuration); f.Error() != nil {
			return nil, fmt.Errorf("bootstrapping raft cluster: %w", f.Error())
		}
	}

	return &Engine{raft: r, fsm: fsm, store: s, transport: transport, nodeID: cfg.NodeID}, nil
}

// IsLeader reports whether this node currently holds Raft leadership.
func (e *Engine) IsLeader() bool {
	return e.raft.State() == raft.Leader
}

// LeaderID returns the node ID hashicorp/raft believes is the current
// leader, or (0, false) if none is known.
func (e *Engine) LeaderID() (uint32, bool) {
	_, idStr := e.raft.LeaderWithID()
	if idStr == "" {
		return 0, false
	}
	var id uint32
	if _, err := fmt.Sscanf(string(idStr), "%d", &id); err != nil {
		return 0, false
	}
	return id, true
}

// Term returns the current Raft term as observed from Stats.
func (e *Engine) Term() uint64 {
	stats := e.raft.Stats()
	var term uint64
	fmt.Sscanf(stats["term"], "%d", &term)
	return term
}

// Stats exposes hashicorp/raft's own diagnostic stats map. The control
// surface's status endpoint does not include it.
func (e *Engine) Stats() map[string]string {
	return e.raft.Stats()
}

// Propose appends data to the log when this node is leader; it returns
// NotLeader otherwise. The log command type is LOG_APPEND.
func (e *Engine) Propose(data []byte) (uint64, error) {
	if !e.IsLeader() {
		return 0, pgerrors.NotLeader
	}
	if len(data) > types.MaxLogEntryBytes {
		return 0, fmt.Errorf("entry of %d bytes exceeds %d: %w", len(data), types.MaxLogEntryBytes, pgerrors.InvalidParameter)
	}

	payload, err := json.Marshal(fsmCommand{Type: types.CommandLogAppend, Data: data})
	if err != nil {
		return 0, fmt.Errorf("encoding log append: %w", err)
	}

	f := e.raft.Apply(payload, 5*time.Second)
	if err := f.Error(); err != nil {
		return 0, fmt.Errorf("applying log append: %w", err)
	}
	return e.store.LogLastIndex(), nil
}

// ConfChangeOp is the kind of membership change ProposeConfChange applies.
type ConfChangeOp string

const (
	ConfChangeAdd    ConfChangeOp = "add"
	ConfChangeRemove ConfChangeOp = "remove"
)

// ProposeConfChange adds or removes a voter from the Raft configuration and
// threads the same change through the FSM so the shared store learns the
// node's address and port.
func (e *Engine) ProposeConfChange(op ConfChangeOp, nodeID uint32, address string, port int) error {
	if !e.IsLeader() {
		return pgerrors.NotLeader
	}

	serverID := raft.ServerID(fmt.Sprintf("%d", nodeID))
	serverAddr := raft.ServerAddress(fmt.Sprintf("%s:%d", address, port))

	var cmdType types.CommandType
	switch op {
	case ConfChangeAdd:
		if f := e.raft.AddVoter(serverID, serverAddr, 0, 10*time.Second); f.Error() != nil {
			return fmt.Errorf("adding voter %d: %w", nodeID, f.Error())
		}
		cmdType = types.CommandAddNode
	case ConfChangeRemove:
		if f := e.raft.RemoveServer(serverID, 0, 10*time.Second); f.Error() != nil {
			return fmt.Errorf("removing voter %d: %w", nodeID, f.Error())
		}
		cmdType = types.CommandRemoveNode
	default:
		return fmt.Errorf("unknown conf change op %q: %w", op, pgerrors.InvalidParameter)
	}

	payload, err := json.Marshal(fsmCommand{Type: cmdType, NodeID: nodeID, Address: address, Port: port})
	if err != nil {
		return fmt.Errorf("encoding conf change: %w", err)
	}

	f := e.raft.Apply(payload, 5*time.Second)
	return f.Error()
}

// RequestSnapshot asks hashicorp/raft to create a new snapshot, the action
// the consensus worker triggers every snapshot_interval committed entries.
func (e *Engine) RequestSnapshot() error {
	f := e.raft.Snapshot()
	return f.Error()
}

// Shutdown stops the Raft engine and its transport.
func (e *Engine) Shutdown() error {
	if f := e.raft.Shutdown(); f.Error() != nil {
		return f.Error()
	}
	return e.transport.Close()
}

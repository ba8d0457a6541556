package raftengine

import (
	"encoding/json"
	"io"

	"github.com/hashicorp/raft"
	"github.com/pgraft/pgraft/pkg/events"
	"github.com/pgraft/pgraft/pkg/log"
	"github.com/pgraft/pgraft/pkg/store"
	"github.com/pgraft/pgraft/pkg/types"
)

// fsmCommand is the envelope applied through raft.Apply; it carries enough
// metadata for the FSM to replay add-node/remove-node/log-append effects
// against the shared state store on every node in the cluster.
type fsmCommand struct {
	Type    types.CommandType `json:"type"`
	NodeID  uint32            `json:"node_id,omitempty"`
	Address string            `json:"address,omitempty"`
	Port    int               `json:"port,omitempty"`
	Data    []byte            `json:"data,omitempty"`
}

// FSM applies committed Raft log entries to the shared state store. It is
// the only writer of committed-entry effects; the consensus worker invokes
// it indirectly via raft.Apply and never mutates the store for these
// effects itself.
type FSM struct {
	store  *store.Store
	broker *events.Broker
}

// NewFSM builds an FSM backed by store, publishing lifecycle events to
// broker (may be nil in tests).
func NewFSM(s *store.Store, broker *events.Broker) *FSM {
	return &FSM{store: s, broker: broker}
}

// Apply implements raft.FSM.
func (f *FSM) Apply(l *raft.Log) interface{} {
	var cmd fsmCommand
	if err := json.Unmarshal(l.Data, &cmd); err != nil {
		log.Errorf("fsm: failed to decode log entry", err)
		return err
	}

	switch cmd.Type {
	case types.CommandAddNode:
		node := &types.Node{ID: cmd.NodeID, Address: cmd.Address, Port: cmd.Port, Role: types.NodeRoleUnknown}
		if err := f.store.AddNode(node); err != nil {
			return err
		}
		f.publish(events.EventNodeJoined, cmd.NodeID)

	case types.CommandRemoveNode:
		if err := f.store.RemoveNode(cmd.NodeID); err != nil {
			return err
		}
		f.publish(events.EventNodeLeft, cmd.NodeID)

	case types.CommandLogAppend:
		index, err := f.store.LogAppend(l.Term, cmd.Data)
		if err != nil {
			return err
		}
		if err := f.store.LogCommit(index); err != nil {
			return err
		}
		if err := f.store.LogApply(index); err != nil {
			return err
		}

	default:
		log.Warn("fsm: unrecognized command type in log entry")
	}

	return nil
}

func (f *FSM) publish(kind events.EventType, nodeID uint32) {
	if f.broker == nil {
		return
	}
	f.broker.Publish(&events.Event{Type: kind, NodeID: nodeID})
}

// Snapshot implements raft.FSM: it captures the current cluster view as the
// opaque payload a snapshot installs on restore or on a lagging follower.
func (f *FSM) Snapshot() (raft.FSMSnapshot, error) {
	view := f.store.GetClusterView()
	return &fsmSnapshot{view: view}, nil
}

// Restore implements raft.FSM: it discards the in-memory log ring (the
// snapshot supersedes it) and repopulates the cluster view's nodes.
func (f *FSM) Restore(rc io.ReadCloser) error {
	defer rc.Close()

	var view types.ClusterView
	if err := json.NewDecoder(rc).Decode(&view); err != nil {
		return err
	}

	f.store.LogReset()
	for _, node := range view.Nodes {
		if err := f.store.AddNode(node); err != nil {
			return err
		}
	}
	return nil
}

type fsmSnapshot struct {
	view types.ClusterView
}

// Persist implements raft.FSMSnapshot.
func (s *fsmSnapshot) Persist(sink raft.SnapshotSink) error {
	data, err := json.Marshal(s.view)
	if err != nil {
		sink.Cancel()
		return err
	}
	if _, err := sink.Write(data); err != nil {
		sink.Cancel()
		return err
	}
	return sink.Close()
}

// Release implements raft.FSMSnapshot.
func (s *fsmSnapshot) Release() {}

package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/pgraft/pgraft/pkg/pgerrors"
	"github.com/pgraft/pgraft/pkg/types"
)

// MaxLogEntries bounds the in-memory log ring; older entries are pruned
// after a snapshot via LogCleanupBefore.
const MaxLogEntries = 1000

// Store is the process-wide shared state store: component C. It owns the
// ClusterView and the FSM-visible log under independent locks.
type Store struct {
	clusterMu sync.Mutex
	view      types.ClusterView

	logMu      sync.Mutex
	entries    []*types.LogEntry
	commitIdx  uint64
	appliedIdx uint64
}

// New creates a Store for the given local node and cluster name. The local
// node is not added to the node set here; the Raft FSM (pkg/raftengine)
// adds nodes via AddNode as add-node entries commit.
func New(clusterName string, localNodeID uint32) *Store {
	return &Store{
		view: types.ClusterView{
			ClusterName: clusterName,
			LocalNodeID: localNodeID,
			State:       types.RaftStateFollower,
			Nodes:       make(map[uint32]*types.Node),
		},
	}
}

// RestoreClusterView replaces the in-memory view wholesale with a
// previously persisted one. Callers use this only at startup, before the
// consensus worker or health monitor have started touching the store —
// Raft replay (and any conf-changes it carries) is the authoritative
// source once running, and will overwrite whatever this seeds.
func (s *Store) RestoreClusterView(view types.ClusterView) {
	s.clusterMu.Lock()
	defer s.clusterMu.Unlock()

	nodes := make(map[uint32]*types.Node, len(view.Nodes))
	for id, n := range view.Nodes {
		cp := *n
		nodes[id] = &cp
	}
	view.Nodes = nodes
	s.view = view
}

// GetClusterView returns a deep-enough copy of the current cluster view;
// callers must not mutate the returned Nodes map.
func (s *Store) GetClusterView() types.ClusterView {
	s.clusterMu.Lock()
	defer s.clusterMu.Unlock()

	view := s.view
	view.Nodes = make(map[uint32]*types.Node, len(s.view.Nodes))
	for id, n := range s.view.Nodes {
		cp := *n
		view.Nodes[id] = &cp
	}
	return view
}

// UpdateClusterView applies a Raft-role transition: leader_id, current_term,
// and state. current_term may only move forward.
func (s *Store) UpdateClusterView(leaderID uint32, term uint64, state types.RaftState) error {
	s.clusterMu.Lock()
	defer s.clusterMu.Unlock()

	if term < s.view.CurrentTerm {
		return fmt.Errorf("term %d < current term %d: %w", term, s.view.CurrentTerm, pgerrors.InvalidParameter)
	}
	s.view.LeaderID = leaderID
	s.view.CurrentTerm = term
	s.view.State = state
	return nil
}

// AddNode inserts a node into the cluster view, enforcing the MaxNodes cap.
// Re-adding an existing node ID replaces the stored node with the given one.
func (s *Store) AddNode(node *types.Node) error {
	s.clusterMu.Lock()
	defer s.clusterMu.Unlock()

	if _, exists := s.view.Nodes[node.ID]; !exists && len(s.view.Nodes) >= types.MaxNodes {
		return fmt.Errorf("cluster already has %d nodes: %w", types.MaxNodes, pgerrors.ClusterFull)
	}

	cp := *node
	if cp.Role == "" {
		cp.Role = types.NodeRoleUnknown
	}
	s.view.Nodes[node.ID] = &cp
	return nil
}

// RemoveNode deletes a node from the cluster view. Removing an absent node
// is a no-op, matching the idempotence spec.md requires of conf-change
// replay.
func (s *Store) RemoveNode(id uint32) error {
	s.clusterMu.Lock()
	defer s.clusterMu.Unlock()

	delete(s.view.Nodes, id)
	if s.view.PrimaryNodeID == id {
		s.view.PrimaryNodeID = 0
	}
	return nil
}

// UpdateNodeLiveness is the health monitor's single write path: it may only
// touch the liveness fields of a node, never role or membership.
func (s *Store) UpdateNodeLiveness(id uint32, healthy bool, score float64, walLSN uint64, lagMS int32) error {
	s.clusterMu.Lock()
	defer s.clusterMu.Unlock()

	node, ok := s.view.Nodes[id]
	if !ok {
		return fmt.Errorf("node %d: %w", id, pgerrors.NodeNotFound)
	}
	node.Healthy = healthy
	node.HealthScore = score
	node.LastSeen = time.Now()
	node.WALLSN = walLSN
	node.ReplicationLagMS = lagMS
	return nil
}

// SetNodeRole updates a node's role and, when promoting to primary, the
// cluster view's primary_node_id. The failover orchestrator calls this when
// it promotes a candidate and when it demotes the failed primary.
func (s *Store) SetNodeRole(id uint32, role types.NodeRole) error {
	s.clusterMu.Lock()
	defer s.clusterMu.Unlock()

	node, ok := s.view.Nodes[id]
	if !ok {
		return fmt.Errorf("node %d: %w", id, pgerrors.NodeNotFound)
	}
	node.Role = role
	if role == types.NodeRolePrimary {
		s.view.PrimaryNodeID = id
	} else if s.view.PrimaryNodeID == id {
		s.view.PrimaryNodeID = 0
	}
	return nil
}

// IncrementCounter bumps one of the cluster's lightweight activity counters.
func (s *Store) IncrementCounter(name string) {
	s.clusterMu.Lock()
	defer s.clusterMu.Unlock()

	switch name {
	case "messages_processed":
		s.view.Counters.MessagesProcessed++
	case "heartbeats_sent":
		s.view.Counters.HeartbeatsSent++
	case "elections_triggered":
		s.view.Counters.ElectionsTriggered++
	}
}

// LogAppend appends a new entry at last_index+1 with the given term and
// returns its index. Payloads larger than MaxLogEntryBytes are rejected.
func (s *Store) LogAppend(term uint64, data []byte) (uint64, error) {
	if len(data) > types.MaxLogEntryBytes {
		return 0, fmt.Errorf("entry of %d bytes exceeds %d: %w", len(data), types.MaxLogEntryBytes, pgerrors.InvalidParameter)
	}

	s.logMu.Lock()
	defer s.logMu.Unlock()

	index := uint64(len(s.entries)) + s.firstIndexLocked()
	entry := &types.LogEntry{
		Index:     index,
		Term:      term,
		Timestamp: time.Now(),
		Data:      append([]byte(nil), data...),
	}
	s.entries = append(s.entries, entry)
	if len(s.entries) > MaxLogEntries {
		// Defensive trim; LogCleanupBefore is the normal post-snapshot path.
		s.entries = s.entries[len(s.entries)-MaxLogEntries:]
	}
	return index, nil
}

func (s *Store) firstIndexLocked() uint64 {
	if len(s.entries) == 0 {
		return 1
	}
	return s.entries[0].Index
}

// LogCommit marks every entry up to and including index as committed.
func (s *Store) LogCommit(index uint64) error {
	s.logMu.Lock()
	defer s.logMu.Unlock()

	entry := s.findLocked(index)
	if entry == nil {
		return fmt.Errorf("log index %d: %w", index, pgerrors.InvalidParameter)
	}
	for _, e := range s.entries {
		if e.Index <= index {
			e.Committed = true
		}
	}
	if index > s.commitIdx {
		s.commitIdx = index
	}
	return nil
}

// LogApply marks a single committed entry as applied. Applying an
// uncommitted entry is rejected.
func (s *Store) LogApply(index uint64) error {
	s.logMu.Lock()
	defer s.logMu.Unlock()

	entry := s.findLocked(index)
	if entry == nil {
		return fmt.Errorf("log index %d: %w", index, pgerrors.InvalidParameter)
	}
	if !entry.Committed {
		return fmt.Errorf("log index %d not committed: %w", index, pgerrors.InvalidParameter)
	}
	entry.Applied = true
	if index > s.appliedIdx {
		s.appliedIdx = index
	}
	return nil
}

// LogGet returns a copy of the entry at index, if present.
func (s *Store) LogGet(index uint64) (*types.LogEntry, bool) {
	s.logMu.Lock()
	defer s.logMu.Unlock()

	entry := s.findLocked(index)
	if entry == nil {
		return nil, false
	}
	cp := *entry
	return &cp, true
}

func (s *Store) findLocked(index uint64) *types.LogEntry {
	if len(s.entries) == 0 {
		return nil
	}
	first := s.entries[0].Index
	if index < first {
		return nil
	}
	pos := index - first
	if pos >= uint64(len(s.entries)) {
		return nil
	}
	return s.entries[pos]
}

// LogLastIndex returns the highest index currently held, or 0 if empty.
func (s *Store) LogLastIndex() uint64 {
	s.logMu.Lock()
	defer s.logMu.Unlock()

	if len(s.entries) == 0 {
		return 0
	}
	return s.entries[len(s.entries)-1].Index
}

// LogCommitIndex returns the highest committed index.
func (s *Store) LogCommitIndex() uint64 {
	s.logMu.Lock()
	defer s.logMu.Unlock()
	return s.commitIdx
}

// LogLastApplied returns the highest applied index.
func (s *Store) LogLastApplied() uint64 {
	s.logMu.Lock()
	defer s.logMu.Unlock()
	return s.appliedIdx
}

// LogReset discards every entry and resets commit/applied indices to zero,
// used when a node installs a snapshot that supersedes its entire log.
func (s *Store) LogReset() {
	s.logMu.Lock()
	defer s.logMu.Unlock()
	s.entries = nil
	s.commitIdx = 0
	s.appliedIdx = 0
}

// LogCleanupBefore discards entries at or below index, the post-snapshot
// pruning step that keeps the in-memory ring within MaxLogEntries.
func (s *Store) LogCleanupBefore(index uint64) {
	s.logMu.Lock()
	defer s.logMu.Unlock()

	kept := s.entries[:0:0]
	for _, e := range s.entries {
		if e.Index > index {
			kept = append(kept, e)
		}
	}
	s.entries = kept
}

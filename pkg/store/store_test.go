package store

import (
	"path/filepath"
	"testing"

	"github.com/pgraft/pgraft/pkg/pgerrors"
	"github.com/pgraft/pgraft/pkg/types"
	"github.com/stretchr/testify/require"
)

func TestAddNodeEnforcesCap(t *testing.T) {
	s := New("c1", 1)
	for i := uint32(1); i <= types.MaxNodes; i++ {
		require.NoError(t, s.AddNode(&types.Node{ID: i, Address: "10.0.0.1", Port: 5432}))
	}
	err := s.AddNode(&types.Node{ID: types.MaxNodes + 1, Address: "10.0.0.1", Port: 5432})
	require.ErrorIs(t, err, pgerrors.ClusterFull)
}

func TestAddNodeIdempotent(t *testing.T) {
	s := New("c1", 1)
	require.NoError(t, s.AddNode(&types.Node{ID: 1, Address: "a", Port: 1}))
	require.NoError(t, s.AddNode(&types.Node{ID: 1, Address: "a", Port: 1}))
	require.Len(t, s.GetClusterView().Nodes, 1)
}

func TestUpdateClusterViewRejectsOldTerm(t *testing.T) {
	s := New("c1", 1)
	require.NoError(t, s.UpdateClusterView(1, 5, types.RaftStateLeader))
	err := s.UpdateClusterView(1, 4, types.RaftStateLeader)
	require.Error(t, err)
}

func TestLogAppendSequentialIndices(t *testing.T) {
	s := New("c1", 1)
	i1, err := s.LogAppend(1, []byte("a"))
	require.NoError(t, err)
	i2, err := s.LogAppend(1, []byte("b"))
	require.NoError(t, err)
	require.Equal(t, i1+1, i2)
}

func TestLogCommitAndApplyInvariants(t *testing.T) {
	s := New("c1", 1)
	idx, err := s.LogAppend(1, []byte("x"))
	require.NoError(t, err)

	require.Error(t, s.LogApply(idx), "applying before commit must fail")

	require.NoError(t, s.LogCommit(idx))
	require.NoError(t, s.LogApply(idx))
	require.Equal(t, idx, s.LogCommitIndex())
	require.Equal(t, idx, s.LogLastApplied())

	entry, ok := s.LogGet(idx)
	require.True(t, ok)
	require.True(t, entry.Committed)
	require.True(t, entry.Applied)
}

func TestLogEntryTooLargeRejected(t *testing.T) {
	s := New("c1", 1)
	_, err := s.LogAppend(1, make([]byte, types.MaxLogEntryBytes+1))
	require.ErrorIs(t, err, pgerrors.InvalidParameter)
}

func TestLogCleanupBeforePrunes(t *testing.T) {
	s := New("c1", 1)
	var last uint64
	for i := 0; i < 5; i++ {
		idx, err := s.LogAppend(1, []byte("x"))
		require.NoError(t, err)
		last = idx
	}
	s.LogCleanupBefore(last - 1)
	_, ok := s.LogGet(last - 1)
	require.False(t, ok)
	_, ok = s.LogGet(last)
	require.True(t, ok)
}

func TestPersisterRoundTrip(t *testing.T) {
	dir := t.TempDir()
	p, err := OpenPersister(filepath.Join(dir, "store.db"))
	require.NoError(t, err)
	defer p.Close()

	_, found, err := p.LoadClusterView()
	require.NoError(t, err)
	require.False(t, found)

	view := types.ClusterView{ClusterName: "c1", LocalNodeID: 1, Nodes: map[uint32]*types.Node{}}
	require.NoError(t, p.SaveClusterView(view))

	loaded, found, err := p.LoadClusterView()
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "c1", loaded.ClusterName)
}

func TestRestoreClusterViewSeedsStore(t *testing.T) {
	s := New("c1", 1)

	snapshot := types.ClusterView{
		ClusterName: "c1",
		LocalNodeID: 1,
		LeaderID:    2,
		CurrentTerm: 5,
		State:       types.RaftStateFollower,
		Nodes: map[uint32]*types.Node{
			2: {ID: 2, Address: "10.0.0.2", Port: 5432, Role: types.NodeRolePrimary},
		},
	}
	s.RestoreClusterView(snapshot)

	view := s.GetClusterView()
	require.Equal(t, uint64(5), view.CurrentTerm)
	require.Equal(t, uint32(2), view.LeaderID)
	require.Len(t, view.Nodes, 1)
	require.Equal(t, "10.0.0.2", view.Nodes[2].Address)

	// mutating the restored copy must not reach back into the store.
	snapshot.Nodes[2].Address = "mutated"
	view2 := s.GetClusterView()
	require.Equal(t, "10.0.0.2", view2.Nodes[2].Address)
}

package failover

import (
	"context"
	"testing"

	"github.com/pgraft/pgraft/pkg/postgres"
	"github.com/pgraft/pgraft/pkg/store"
	"github.com/pgraft/pgraft/pkg/types"
	"github.com/stretchr/testify/require"
)

func newClusterForFailover(t *testing.T) (*store.Store, map[uint32]*postgres.FakeController) {
	t.Helper()
	s := store.New("c1", 1)
	controllers := make(map[uint32]*postgres.FakeController)

	nodes := []*types.Node{
		{ID: 1, Address: "a", Port: 1, Role: types.NodeRolePrimary, Healthy: false},
		{ID: 2, Address: "b", Port: 1, Role: types.NodeRoleStandby, Healthy: true, WALLSN: 100},
		{ID: 3, Address: "c", Port: 1, Role: types.NodeRoleStandby, Healthy: true, WALLSN: 200},
	}
	for _, n := range nodes {
		require.NoError(t, s.AddNode(n))
		require.NoError(t, s.SetNodeRole(n.ID, n.Role))
		controllers[n.ID] = &postgres.FakeController{Running: true, InRecovery: n.Role == types.NodeRoleStandby}
	}
	return s, controllers
}

func TestSelectCandidatePicksHighestWALLSN(t *testing.T) {
	s, _ := newClusterForFailover(t)
	view := s.GetClusterView()

	candidate := SelectCandidate(view)
	require.NotNil(t, candidate)
	require.Equal(t, uint32(3), candidate.ID)
}

func TestSelectCandidateTieBreaksOnLowestID(t *testing.T) {
	view := types.ClusterView{Nodes: map[uint32]*types.Node{
		2: {ID: 2, Role: types.NodeRoleStandby, Healthy: true, WALLSN: 100},
		3: {ID: 3, Role: types.NodeRoleStandby, Healthy: true, WALLSN: 100},
	}}
	candidate := SelectCandidate(view)
	require.Equal(t, uint32(2), candidate.ID)
}

func TestSelectCandidateNoneHealthy(t *testing.T) {
	view := types.ClusterView{Nodes: map[uint32]*types.Node{
		2: {ID: 2, Role: types.NodeRoleStandby, Healthy: false},
	}}
	require.Nil(t, SelectCandidate(view))
}

func TestExecuteFailoverPromotesCandidate(t *testing.T) {
	s, controllers := newClusterForFailover(t)
	o := New(s, nil, func(id uint32) postgres.Controller { return controllers[id] }, 1, true)

	fctx, err := o.Execute(context.Background(), 1, "health checks failed")
	require.NoError(t, err)
	require.Equal(t, types.FailoverCompleted, fctx.State)
	require.Equal(t, uint32(3), fctx.NewPrimaryID)

	view := s.GetClusterView()
	require.Equal(t, uint32(3), view.PrimaryNodeID)
	require.Equal(t, types.NodeRoleStandby, view.Nodes[1].Role)
}

func TestExecuteFailoverNoCandidateFails(t *testing.T) {
	s := store.New("c1", 1)
	require.NoError(t, s.AddNode(&types.Node{ID: 1, Role: types.NodeRolePrimary}))

	o := New(s, nil, func(id uint32) postgres.Controller { return &postgres.FakeController{} }, 1, true)
	_, err := o.Execute(context.Background(), 1, "down")
	require.Error(t, err)
}

func TestValidateClusterStateRejectsMultiplePrimaries(t *testing.T) {
	view := types.ClusterView{Nodes: map[uint32]*types.Node{
		1: {ID: 1, Role: types.NodeRolePrimary},
		2: {ID: 2, Role: types.NodeRolePrimary},
	}}
	require.Error(t, ValidateClusterState(view))
}

func TestShouldTrigger(t *testing.T) {
	view := types.ClusterView{Nodes: map[uint32]*types.Node{1: {}, 2: {}}}
	require.True(t, ShouldTrigger(view, true, true, true))
	require.False(t, ShouldTrigger(view, false, true, true))
	require.False(t, ShouldTrigger(view, true, false, true))
	require.False(t, ShouldTrigger(view, true, true, false))
}

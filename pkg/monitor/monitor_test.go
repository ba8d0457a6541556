package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/pgraft/pgraft/pkg/health"
	"github.com/pgraft/pgraft/pkg/store"
	"github.com/pgraft/pgraft/pkg/types"
	"github.com/stretchr/testify/require"
)

type scriptedChecker struct {
	healthy bool
}

func (c scriptedChecker) Check(ctx context.Context) health.Result {
	return health.Result{Healthy: c.healthy, CheckedAt: time.Now()}
}

func (c scriptedChecker) Type() health.CheckType { return health.CheckTypeExec }

func TestHasQuorum(t *testing.T) {
	require.True(t, HasQuorum(2, 3))
	require.False(t, HasQuorum(1, 3))
	require.True(t, HasQuorum(1, 1))
}

func TestPrimaryLostAfterThresholdFailures(t *testing.T) {
	s := store.New("c1", 1)
	require.NoError(t, s.AddNode(&types.Node{ID: 1, Address: "a", Port: 1}))
	require.NoError(t, s.SetNodeRole(1, types.NodeRolePrimary))

	m := New(s, nil, func(n *types.Node) health.Checker {
		return scriptedChecker{healthy: false}
	}, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for i := 0; i < defaultFailoverThreshold; i++ {
		m.probeAll(ctx)
	}

	select {
	case ev := <-m.PrimaryLost():
		require.Equal(t, uint32(1), ev.FailedNodeID)
	default:
		t.Fatal("expected a PrimaryLostEvent")
	}
}

func TestHealthyPrimaryNeverReported(t *testing.T) {
	s := store.New("c1", 1)
	require.NoError(t, s.AddNode(&types.Node{ID: 1, Address: "a", Port: 1}))
	require.NoError(t, s.SetNodeRole(1, types.NodeRolePrimary))

	m := New(s, nil, func(n *types.Node) health.Checker {
		return scriptedChecker{healthy: true}
	}, time.Millisecond)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		m.probeAll(ctx)
	}

	select {
	case ev := <-m.PrimaryLost():
		t.Fatalf("unexpected primary-lost event: %+v", ev)
	default:
	}
}

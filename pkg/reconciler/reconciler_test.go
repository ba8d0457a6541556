package reconciler

import (
	"bytes"
	"testing"
	"time"

	"github.com/pgraft/pgraft/pkg/log"
	"github.com/pgraft/pgraft/pkg/store"
	"github.com/pgraft/pgraft/pkg/types"
	"github.com/stretchr/testify/require"
)

func TestReconcileLogsNoViolationOnSinglePrimary(t *testing.T) {
	s := store.New("c1", 1)
	require.NoError(t, s.AddNode(&types.Node{ID: 1, Role: types.NodeRolePrimary}))

	var buf bytes.Buffer
	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true, Output: &buf})
	r := New(s)
	r.reconcile() // must not panic; single primary is a valid state
	require.NotContains(t, buf.String(), "cluster-state invariant violation")
}

func TestReconcileDetectsMultiplePrimaries(t *testing.T) {
	s := store.New("c1", 1)
	require.NoError(t, s.AddNode(&types.Node{ID: 1, Role: types.NodeRolePrimary}))
	require.NoError(t, s.AddNode(&types.Node{ID: 2, Role: types.NodeRolePrimary}))

	var buf bytes.Buffer
	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true, Output: &buf})
	r := New(s)
	r.reconcile()
	require.Contains(t, buf.String(), "cluster-state invariant violation")
}

func TestStartStop(t *testing.T) {
	s := store.New("c1", 1)
	r := New(s)
	r.Start(time.Hour)
	r.Stop()
}

package consensus

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/pgraft/pgraft/pkg/command"
	"github.com/pgraft/pgraft/pkg/postgres"
	"github.com/pgraft/pgraft/pkg/raftengine"
	"github.com/pgraft/pgraft/pkg/replication"
	"github.com/pgraft/pgraft/pkg/store"
	"github.com/pgraft/pgraft/pkg/types"
	"github.com/stretchr/testify/require"
)

func newTestWorker(t *testing.T) (*Worker, *store.Store) {
	t.Helper()
	dir := t.TempDir()
	s := store.New("test-cluster", 1)

	engine, err := raftengine.New(raftengine.Config{
		NodeID:            1,
		Address:           "127.0.0.1",
		Port:              0,
		DataDir:           filepath.Join(dir, "node1"),
		HeartbeatInterval: 50 * time.Millisecond,
		ElectionTimeout:   200 * time.Millisecond,
		Bootstrap:         true,
	}, s, nil)
	require.NoError(t, err)

	pipeline := command.New()
	w := New(engine, s, pipeline, nil, 20*time.Millisecond, 1000)
	t.Cleanup(func() { engine.Shutdown() })
	return w, s
}

func TestUnknownCommandTypeFails(t *testing.T) {
	w, _ := newTestWorker(t)
	ts, err := w.pipeline.Enqueue(types.Command{Type: "BOGUS"})
	require.NoError(t, err)

	w.drainCommands()

	status, ok := w.pipeline.GetStatus(ts)
	require.True(t, ok)
	require.Equal(t, types.CommandFailed, status.Status)
	require.Equal(t, "unknown command type", status.ErrorMessage)
}

func TestAddNodeCommandRegistersStandbyWhenLeader(t *testing.T) {
	w, _ := newTestWorker(t)

	pg := &postgres.FakeController{}
	rc := replication.New(pg, types.SyncModeOff, 1)
	w.SetReplicationController(rc)

	require.Eventually(t, func() bool {
		return w.engine.IsLeader()
	}, 2*time.Second, 10*time.Millisecond, "single-node bootstrap cluster should elect itself leader")

	ts, err := w.pipeline.Enqueue(types.Command{Type: types.CommandAddNode, NodeID: 2, Address: "127.0.0.1", Port: 5433})
	require.NoError(t, err)

	w.drainCommands()

	status, ok := w.pipeline.GetStatus(ts)
	require.True(t, ok)
	require.Equal(t, types.CommandCompleted, status.Status)

	st := rc.GetStatus()
	require.Contains(t, st.Connected, uint32(2))
}

func TestRunStopsOnShutdown(t *testing.T) {
	w, _ := newTestWorker(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after context cancellation")
	}
}

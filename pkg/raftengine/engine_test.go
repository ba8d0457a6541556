package raftengine

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/pgraft/pgraft/pkg/store"
	"github.com/stretchr/testify/require"
)

func TestSingleNodeBootstrapBecomesLeader(t *testing.T) {
	dir := t.TempDir()
	s := store.New("test-cluster", 1)

	engine, err := New(Config{
		NodeID:            1,
		Address:           "127.0.0.1",
		Port:              0,
		DataDir:           filepath.Join(dir, "node1"),
		HeartbeatInterval: 50 * time.Millisecond,
		ElectionTimeout:   200 * time.Millisecond,
		Bootstrap:         true,
	}, s, nil)
	require.NoError(t, err)
	defer engine.Shutdown()

	require.Eventually(t, engine.IsLeader, 3*time.Second, 20*time.Millisecond)
}

func TestProposeRejectedWhenNotLeader(t *testing.T) {
	// A freshly constructed, non-bootstrapped engine has no configuration
	// and never becomes leader, so Propose must reject immediately.
	dir := t.TempDir()
	s := store.New("test-cluster", 2)

	engine, err := New(Config{
		NodeID:            2,
		Address:           "127.0.0.1",
		Port:              0,
		DataDir:           filepath.Join(dir, "node2"),
		HeartbeatInterval: 50 * time.Millisecond,
		ElectionTimeout:   200 * time.Millisecond,
		Bootstrap:         false,
	}, s, nil)
	require.NoError(t, err)
	defer engine.Shutdown()

	_, err = engine.Propose([]byte("hello"))
	require.Error(t, err)
}

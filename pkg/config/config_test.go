package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "pgraft.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeTempConfig(t, `
node_id: 1
address: 127.0.0.1
port: 7001
peers: "1:127.0.0.1:7001,2:127.0.0.1:7002,3:127.0.0.1:7003"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "pgraft_cluster", cfg.ClusterName)
	require.Equal(t, 3, cfg.ClusterSize)
	require.Equal(t, 1000, cfg.HeartbeatIntervalMS)
	require.Len(t, cfg.Peers, 3)
	require.Equal(t, uint32(2), cfg.Peers[1].NodeID)
	require.Equal(t, "127.0.0.1", cfg.Peers[1].Address)
	require.Equal(t, 7002, cfg.Peers[1].Port)
}

func TestLoadRejectsOutOfRangePort(t *testing.T) {
	path := writeTempConfig(t, `
node_id: 1
address: 127.0.0.1
port: 99999
`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsMalformedPeer(t *testing.T) {
	path := writeTempConfig(t, `
node_id: 1
address: 127.0.0.1
port: 7001
peers: "not-a-peer"
`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsBadSyncMode(t *testing.T) {
	path := writeTempConfig(t, `
node_id: 1
address: 127.0.0.1
port: 7001
sync_mode: "bogus"
`)

	_, err := Load(path)
	require.Error(t, err)
}

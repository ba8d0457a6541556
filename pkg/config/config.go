package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pgraft/pgraft/pkg/pgerrors"
	"gopkg.in/yaml.v3"
)

// SyncMode mirrors types.SyncMode; declared again here (not imported) so
// config stays the leaf-most package in the dependency graph.
type SyncMode string

const (
	SyncModeOff         SyncMode = "off"
	SyncModeLocal       SyncMode = "local"
	SyncModeRemoteWrite SyncMode = "remote_write"
	SyncModeRemoteApply SyncMode = "remote_apply"
)

// Peer is one entry of the comma-separated peers list, "id:host:port".
type Peer struct {
	NodeID  uint32 `yaml:"-"`
	Address string `yaml:"-"`
	Port    int    `yaml:"-"`
}

// Config holds every option enumerated by the daemon's external interface.
type Config struct {
	NodeID       uint32 `yaml:"node_id"`
	Address      string `yaml:"address"`
	Port         int    `yaml:"port"`
	ClusterName  string `yaml:"cluster_name"`
	ClusterSize  int    `yaml:"cluster_size"`

	HeartbeatIntervalMS int    `yaml:"heartbeat_interval_ms"`
	ElectionTimeoutMS   int    `yaml:"election_timeout_ms"`
	WorkerIntervalMS    int    `yaml:"worker_interval_ms"`
	PeersRaw            string `yaml:"peers"`

	AutoClusterFormation bool `yaml:"auto_cluster_formation"`
	AutoFailoverEnabled  bool `yaml:"auto_failover_enabled"`

	SyncMode           SyncMode `yaml:"sync_mode"`
	NumSyncStandbys    int      `yaml:"num_sync_standbys"`
	MaxReplicationLagMS int     `yaml:"max_replication_lag_ms"`

	HealthPeriodMS   int `yaml:"health_period_ms"`
	SnapshotInterval int `yaml:"snapshot_interval"`

	Peers []Peer `yaml:"-"`
}

// Default returns a Config populated with every documented default, ready
// to be overridden by a loaded file.
func Default() Config {
	return Config{
		ClusterName:          "pgraft_cluster",
		ClusterSize:          3,
		HeartbeatIntervalMS:  1000,
		ElectionTimeoutMS:    5000,
		WorkerIntervalMS:     1000,
		AutoClusterFormation: true,
		AutoFailoverEnabled:  true,
		SyncMode:             SyncModeOff,
		NumSyncStandbys:      0,
		MaxReplicationLagMS:  10000,
		HealthPeriodMS:       5000,
		SnapshotInterval:     1000,
	}
}

// Load reads, parses, and validates a YAML configuration file at path.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	peers, err := parsePeers(cfg.PeersRaw)
	if err != nil {
		return nil, err
	}
	cfg.Peers = peers

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every option against the ranges the daemon requires,
// returning pgerrors.InvalidParameter wrapped with the offending field.
func (c *Config) Validate() error {
	switch {
	case c.NodeID < 1 || c.NodeID > 1000:
		return fmt.Errorf("node_id must be 1..1000: %w", pgerrors.InvalidParameter)
	case c.Address == "":
		return fmt.Errorf("address is required: %w", pgerrors.InvalidParameter)
	case c.Port < 1 || c.Port > 65535:
		return fmt.Errorf("port must be 1..65535: %w", pgerrors.InvalidParameter)
	case c.ClusterSize < 1 || c.ClusterSize > 100:
		return fmt.Errorf("cluster_size must be 1..100: %w", pgerrors.InvalidParameter)
	case c.HeartbeatIntervalMS < 100 || c.HeartbeatIntervalMS > 60000:
		return fmt.Errorf("heartbeat_interval_ms must be 100..60000: %w", pgerrors.InvalidParameter)
	case c.ElectionTimeoutMS < 1000 || c.ElectionTimeoutMS > 30000:
		return fmt.Errorf("election_timeout_ms must be 1000..30000: %w", pgerrors.InvalidParameter)
	case c.WorkerIntervalMS < 100 || c.WorkerIntervalMS > 60000:
		return fmt.Errorf("worker_interval_ms must be 100..60000: %w", pgerrors.InvalidParameter)
	case c.NumSyncStandbys < 0:
		return fmt.Errorf("num_sync_standbys must be >= 0: %w", pgerrors.InvalidParameter)
	case c.HealthPeriodMS < 1000 || c.HealthPeriodMS > 60000:
		return fmt.Errorf("health_period_ms must be 1000..60000: %w", pgerrors.InvalidParameter)
	}

	switch c.SyncMode {
	case SyncModeOff, SyncModeLocal, SyncModeRemoteWrite, SyncModeRemoteApply:
	default:
		return fmt.Errorf("sync_mode %q invalid: %w", c.SyncMode, pgerrors.InvalidParameter)
	}

	for _, p := range c.Peers {
		if p.NodeID < 1 || p.NodeID > 1000 {
			return fmt.Errorf("peer node_id %d out of range: %w", p.NodeID, pgerrors.InvalidParameter)
		}
	}

	return nil
}

func parsePeers(raw string) ([]Peer, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	peers := make([]Peer, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.SplitN(part, ":", 3)
		if len(fields) != 3 {
			return nil, fmt.Errorf("malformed peer %q, want id:host:port: %w", part, pgerrors.InvalidParameter)
		}
		id, err := strconv.ParseUint(fields[0], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("malformed peer id %q: %w", fields[0], pgerrors.InvalidParameter)
		}
		port, err := strconv.Atoi(fields[2])
		if err != nil {
			return nil, fmt.Errorf("malformed peer port %q: %w", fields[2], pgerrors.InvalidParameter)
		}
		peers = append(peers, Peer{NodeID: uint32(id), Address: fields[1], Port: port})
	}
	return peers, nil
}

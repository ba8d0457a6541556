package replication

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pgraft/pgraft/pkg/pgerrors"
	"github.com/pgraft/pgraft/pkg/postgres"
	"github.com/pgraft/pgraft/pkg/types"
)

// Status summarizes the replication controller's current configuration, per
// the get_status contract.
type Status struct {
	Mode       types.SyncMode
	Configured string
	Connected  []uint32
	AllHealthy bool
}

// Controller is component H: synchronous-replication policy and standby set
// management atop one PostgreSQL primary.
type Controller struct {
	mu sync.Mutex

	mode            types.SyncMode
	numSyncStandbys int
	standbys        []*types.StandbyDescriptor // insertion order, per the generator contract
	pg              postgres.Controller
}

// New builds a Controller for the given primary-side pg controller.
func New(pg postgres.Controller, mode types.SyncMode, numSyncStandbys int) *Controller {
	return &Controller{pg: pg, mode: mode, numSyncStandbys: numSyncStandbys}
}

// AddStandby registers a standby by node ID and application_name, appending
// it to the insertion-ordered set the generator reads from.
func (c *Controller) AddStandby(ctx context.Context, nodeID uint32, applicationName string) error {
	c.mu.Lock()
	for _, s := range c.standbys {
		if s.NodeID == nodeID {
			c.mu.Unlock()
			return nil
		}
	}
	c.standbys = append(c.standbys, &types.StandbyDescriptor{
		NodeID:          nodeID,
		ApplicationName: applicationName,
		IsSync:          true,
		IsConnected:     true,
		LastSyncTime:    time.Now(),
		State:           types.StandbyStreaming,
	})
	c.mu.Unlock()

	return c.reconfigure(ctx)
}

// RemoveStandby drops a standby by node ID.
func (c *Controller) RemoveStandby(ctx context.Context, nodeID uint32) error {
	c.mu.Lock()
	kept := c.standbys[:0:0]
	for _, s := range c.standbys {
		if s.NodeID != nodeID {
			kept = append(kept, s)
		}
	}
	c.standbys = kept
	c.mu.Unlock()

	return c.reconfigure(ctx)
}

// SetMode updates the synchronous-replication mode.
func (c *Controller) SetMode(ctx context.Context, mode types.SyncMode) error {
	c.mu.Lock()
	c.mode = mode
	c.mu.Unlock()
	return c.reconfigure(ctx)
}

// GetStatus reports the controller's current configuration.
func (c *Controller) GetStatus() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	connected := make([]uint32, 0, len(c.standbys))
	allHealthy := true
	for _, s := range c.standbys {
		if s.IsConnected {
			connected = append(connected, s.NodeID)
		} else {
			allHealthy = false
		}
	}
	return Status{
		Mode:       c.mode,
		Configured: c.synchronousStandbyNamesLocked(),
		Connected:  connected,
		AllHealthy: allHealthy,
	}
}

// CheckHealth reports whether every registered sync standby is connected.
func (c *Controller) CheckHealth() bool {
	return c.GetStatus().AllHealthy
}

func (c *Controller) reconfigure(ctx context.Context) error {
	c.mu.Lock()
	value := c.synchronousStandbyNamesLocked()
	c.mu.Unlock()

	return c.pg.SetSynchronousStandbyNames(ctx, value)
}

// synchronousStandbyNamesLocked builds "FIRST <k> (<name1>,<name2>,...)"
// from standbys with IsSync=true in insertion order; k<=0 yields "".
func (c *Controller) synchronousStandbyNamesLocked() string {
	if c.numSyncStandbys <= 0 {
		return ""
	}

	names := make([]string, 0, len(c.standbys))
	for _, s := range c.standbys {
		if s.IsSync {
			names = append(names, s.ApplicationName)
		}
	}
	if len(names) == 0 {
		return ""
	}

	return fmt.Sprintf("FIRST %d (%s)", c.numSyncStandbys, strings.Join(names, ","))
}

// ModeToSyncCommit maps a SyncMode onto the synchronous_commit GUC value it
// corresponds to 1:1.
func ModeToSyncCommit(mode types.SyncMode) string {
	return string(mode)
}

// GenerateSyncStandbyNames builds "FIRST <k> (<name1>,<name2>,...)" from
// names in insertion order; k<=0 yields "". Exported so the failover
// orchestrator can rewire synchronous replication after a promotion without
// threading the full standby registry through it.
func GenerateSyncStandbyNames(k int, names []string) string {
	if k <= 0 || len(names) == 0 {
		return ""
	}
	return fmt.Sprintf("FIRST %d (%s)", k, strings.Join(names, ","))
}

// StreamFrom performs the streaming-setup sequence for a new (or rebuilt)
// standby: stop, basebackup from primaryConnInfo, write recovery config,
// start, wait, and verify recovery mode.
func StreamFrom(ctx context.Context, pg postgres.Controller, primaryConnInfo string, preV12PromoteTrigger string) error {
	if err := pg.Stop(ctx, false); err != nil {
		return fmt.Errorf("stopping before basebackup: %w", err)
	}

	if err := pg.Basebackup(ctx, primaryConnInfo); err != nil {
		return err // already wrapped with pgerrors.BasebackupFailed
	}

	cfg := postgres.RecoveryConfig{
		PrimaryConnInfo:        primaryConnInfo,
		RecoveryTargetTimeline: "latest",
		PromoteTriggerFile:     preV12PromoteTrigger,
	}
	if err := pg.WriteRecoveryConfig(ctx, cfg); err != nil {
		return err // already wrapped with pgerrors.RecoveryConfigFailed
	}

	if err := pg.Start(ctx); err != nil {
		return fmt.Errorf("%v: %w", err, pgerrors.Internal)
	}

	time.Sleep(5 * time.Second)

	status, err := pg.Status(ctx)
	if err != nil {
		return fmt.Errorf("checking status after streaming setup: %w", err)
	}
	if !status.IsInRecovery {
		return fmt.Errorf("standby not in recovery after streaming setup: %w", pgerrors.Internal)
	}
	return nil
}

package failover

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pgraft/pgraft/pkg/events"
	"github.com/pgraft/pgraft/pkg/pgerrors"
	"github.com/pgraft/pgraft/pkg/postgres"
	"github.com/pgraft/pgraft/pkg/replication"
	"github.com/pgraft/pgraft/pkg/store"
	"github.com/pgraft/pgraft/pkg/types"
)

// validateWait is the fixed pause after promotion before validating the new
// primary.
const validateWait = 3 * time.Second

// rebuildWait is the fixed pause after starting a rebuilt replica before
// verifying it entered recovery.
const rebuildWait = 5 * time.Second

// PgForNode resolves the postgres.Controller that drives a given node's
// database instance.
type PgForNode func(nodeID uint32) postgres.Controller

// Orchestrator is the failover orchestrator: component G.
type Orchestrator struct {
	store              *store.Store
	broker             *events.Broker
	pgFor              PgForNode
	numSyncStandbys    int
	autoFailoverEnabled bool
}

// New builds an Orchestrator backed by store, publishing episode events to
// broker, and resolving per-node database controllers via pgFor.
func New(s *store.Store, broker *events.Broker, pgFor PgForNode, numSyncStandbys int, autoFailoverEnabled bool) *Orchestrator {
	return &Orchestrator{store: s, broker: broker, pgFor: pgFor, numSyncStandbys: numSyncStandbys, autoFailoverEnabled: autoFailoverEnabled}
}

// ShouldTrigger reports whether an automatic failover should begin, per
// auto_failover_enabled ∧ node_count≥2 ∧ primary_failure_detected ∧ has_quorum.
func ShouldTrigger(view types.ClusterView, autoFailoverEnabled, primaryFailureDetected bool, hasQuorum bool) bool {
	return autoFailoverEnabled && len(view.Nodes) >= 2 && primaryFailureDetected && hasQuorum
}

// Execute runs one failover episode against failedNodeID, returning the
// completed (or failed) FailoverContext.
func (o *Orchestrator) Execute(ctx context.Context, failedNodeID uint32, reason string) (*types.FailoverContext, error) {
	fctx := &types.FailoverContext{
		State:        types.FailoverDetecting,
		FailedNodeID: failedNodeID,
		Reason:       reason,
		StartedAt:    time.Now(),
	}
	o.publish(events.EventFailoverStarted, failedNodeID, fctx)

	view := o.store.GetClusterView()

	candidate := SelectCandidate(view)
	if candidate == nil {
		fctx.State = types.FailoverFailed
		fctx.CompletedAt = time.Now()
		o.publish(events.EventFailoverFailed, failedNodeID, fctx)
		return fctx, pgerrors.NoCandidate
	}
	fctx.NewPrimaryID = candidate.ID

	fctx.State = types.FailoverPromoting
	o.publish(events.EventPromotionStarted, candidate.ID, fctx)

	o.demoteFailedPrimary(ctx, failedNodeID)

	pg := o.pgFor(candidate.ID)
	if err := pg.Promote(ctx); err != nil {
		fctx.State = types.FailoverFailed
		fctx.CompletedAt = time.Now()
		o.publish(events.EventFailoverFailed, candidate.ID, fctx)
		return fctx, fmt.Errorf("promoting candidate %d: %w", candidate.ID, err)
	}

	if err := o.store.SetNodeRole(candidate.ID, types.NodeRolePrimary); err != nil {
		fctx.State = types.FailoverFailed
		fctx.CompletedAt = time.Now()
		return fctx, err
	}

	time.Sleep(validateWait)

	if err := o.validate(ctx, pg); err != nil {
		fctx.State = types.FailoverFailed
		fctx.CompletedAt = time.Now()
		o.publish(events.EventFailoverFailed, candidate.ID, fctx)
		return fctx, err
	}

	if err := o.rewireSynchronousStandbys(ctx, pg, candidate.ID); err != nil {
		fctx.State = types.FailoverFailed
		fctx.CompletedAt = time.Now()
		return fctx, err
	}

	fctx.State = types.FailoverCompleted
	fctx.CompletedAt = time.Now()
	o.publish(events.EventFailoverCompleted, candidate.ID, fctx)
	o.publish(events.EventPromotionCompleted, candidate.ID, fctx)
	return fctx, nil
}

// SelectCandidate picks, among healthy standbys, the one with the greatest
// observed WAL LSN, tie-breaking on the lowest node ID. Returns nil if no
// standby is healthy.
func SelectCandidate(view types.ClusterView) *types.Node {
	var candidates []*types.Node
	for _, n := range view.Nodes {
		if n.Role == types.NodeRoleStandby && n.Healthy {
			candidates = append(candidates, n)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].WALLSN != candidates[j].WALLSN {
			return candidates[i].WALLSN > candidates[j].WALLSN
		}
		return candidates[i].ID < candidates[j].ID
	})
	return candidates[0]
}

func (o *Orchestrator) validate(ctx context.Context, pg postgres.Controller) error {
	status, err := pg.Status(ctx)
	if err != nil {
		return fmt.Errorf("validating promoted candidate: %w", err)
	}
	if !status.IsPrimary() {
		return fmt.Errorf("%w: promoted candidate failed validation", pgerrors.PromotionFailed)
	}
	return nil
}

func (o *Orchestrator) rewireSynchronousStandbys(ctx context.Context, primaryPg postgres.Controller, newPrimaryID uint32) error {
	view := o.store.GetClusterView()

	var names []string
	for id, n := range view.Nodes {
		if id == newPrimaryID || !n.Healthy {
			continue
		}
		names = append(names, fmt.Sprintf("node_%d", id))
	}

	value := replication.GenerateSyncStandbyNames(o.numSyncStandbys, names)
	if err := primaryPg.SetSynchronousStandbyNames(ctx, value); err != nil {
		return fmt.Errorf("rewiring synchronous standbys: %w", err)
	}
	o.publish(events.EventReplicationReconfigured, newPrimaryID, nil)
	return nil
}

// RebuildReplica stops the failed standby, wipes its data directory, takes
// a basebackup from the current primary, writes recovery configuration,
// restarts it, and verifies it entered recovery.
func (o *Orchestrator) RebuildReplica(ctx context.Context, nodeID uint32, primaryConnInfo string) error {
	pg := o.pgFor(nodeID)

	if err := pg.Stop(ctx, true); err != nil {
		return fmt.Errorf("stopping replica before rebuild: %w", err)
	}
	if err := pg.WipeDataDir(ctx); err != nil {
		return fmt.Errorf("wiping replica data dir: %w", err)
	}
	if err := pg.Basebackup(ctx, primaryConnInfo); err != nil {
		return err
	}
	if err := pg.WriteRecoveryConfig(ctx, postgres.RecoveryConfig{
		PrimaryConnInfo:        primaryConnInfo,
		RecoveryTargetTimeline: "latest",
	}); err != nil {
		return err
	}
	if err := pg.Start(ctx); err != nil {
		return fmt.Errorf("%v: %w", err, pgerrors.Internal)
	}

	time.Sleep(rebuildWait)

	status, err := pg.Status(ctx)
	if err != nil {
		return fmt.Errorf("verifying rebuilt replica: %w", err)
	}
	if !status.IsInRecovery {
		return fmt.Errorf("rebuilt replica %d not in recovery: %w", nodeID, pgerrors.Internal)
	}
	return nil
}

// demoteFailedPrimary is a best-effort stop of the old primary and a local
// cluster-view update; no coordination with the old primary is required.
func (o *Orchestrator) demoteFailedPrimary(ctx context.Context, nodeID uint32) {
	pg := o.pgFor(nodeID)
	_ = pg.Stop(ctx, true)

	_ = o.store.SetNodeRole(nodeID, types.NodeRoleStandby)
	_ = o.store.UpdateNodeLiveness(nodeID, false, 0, 0, 0)
}

// ValidateClusterState enforces the cluster-state invariant: exactly one
// primary, at least zero healthy standbys.
func ValidateClusterState(view types.ClusterView) error {
	primaries := 0
	for _, n := range view.Nodes {
		if n.Role == types.NodeRolePrimary {
			primaries++
		}
	}
	if primaries != 1 {
		return fmt.Errorf("cluster has %d primaries, expected exactly 1: %w", primaries, pgerrors.Internal)
	}
	return nil
}

func (o *Orchestrator) publish(kind events.EventType, nodeID uint32, fctx *types.FailoverContext) {
	if o.broker == nil {
		return
	}
	msg := ""
	if fctx != nil {
		msg = fmt.Sprintf("state=%s", fctx.State)
	}
	o.broker.Publish(&events.Event{ID: uuid.NewString(), Type: kind, NodeID: nodeID, Message: msg})
}

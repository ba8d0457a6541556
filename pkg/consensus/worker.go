package consensus

import (
	"context"
	"fmt"
	"time"

	"github.com/pgraft/pgraft/pkg/command"
	"github.com/pgraft/pgraft/pkg/log"
	"github.com/pgraft/pgraft/pkg/raftengine"
	"github.com/pgraft/pgraft/pkg/replication"
	"github.com/pgraft/pgraft/pkg/store"
	"github.com/pgraft/pgraft/pkg/transport"
	"github.com/pgraft/pgraft/pkg/types"
)

// maxCommandsPerTick bounds how many queued commands the worker drains in a
// single tick, keeping any one tick's latency bounded.
const maxCommandsPerTick = 10

// Worker is the consensus worker: component E.
type Worker struct {
	engine    *raftengine.Engine
	store     *store.Store
	pipeline  *command.Pipeline
	transport *transport.Transport
	replCtl   *replication.Controller

	tickInterval     time.Duration
	snapshotInterval uint64

	shutdownCh chan struct{}
	doneCh     chan struct{}
}

// New builds a Worker wiring the Raft engine, shared store, command
// pipeline, and transport together.
func New(engine *raftengine.Engine, s *store.Store, pipeline *command.Pipeline, tr *transport.Transport, tickInterval time.Duration, snapshotInterval uint64) *Worker {
	return &Worker{
		engine:           engine,
		store:            s,
		pipeline:         pipeline,
		transport:        tr,
		tickInterval:     tickInterval,
		snapshotInterval: snapshotInterval,
		shutdownCh:       make(chan struct{}),
		doneCh:           make(chan struct{}),
	}
}

// Run drives the tick loop until ctx is cancelled or Shutdown is called.
// It returns once the loop has exited, honoring the contract that a
// shutdown signal breaks the loop between ticks rather than mid-tick.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdownCh:
			return
		case <-ticker.C:
			w.tick()
		}
	}
}

// SetReplicationController attaches the replication controller the worker
// notifies as standbys join and leave the cluster, while this node is Raft
// leader. Optional: a worker with none attached simply skips that step.
func (w *Worker) SetReplicationController(rc *replication.Controller) {
	w.replCtl = rc
}

// Shutdown signals the worker to stop and blocks until its loop exits.
func (w *Worker) Shutdown() {
	close(w.shutdownCh)
	<-w.doneCh
}

func (w *Worker) tick() {
	w.drainCommands()

	if w.engine.IsLeader() && w.snapshotInterval > 0 {
		if last := w.store.LogLastIndex(); last > 0 && last%w.snapshotInterval == 0 {
			if err := w.engine.RequestSnapshot(); err != nil {
				log.Errorf("consensus: snapshot request failed", err)
			}
		}
	}
}

func (w *Worker) drainCommands() {
	for i := 0; i < maxCommandsPerTick; i++ {
		cmd, ok := w.pipeline.Dequeue()
		if !ok {
			return
		}
		w.dispatch(cmd)
	}
}

func (w *Worker) dispatch(cmd types.Command) {
	var err error

	switch cmd.Type {
	case types.CommandInit:
		// Idempotent: the store already exists by construction.

	case types.CommandAddNode:
		err = w.engine.ProposeConfChange(raftengine.ConfChangeAdd, cmd.NodeID, cmd.Address, cmd.Port)
		if err == nil && w.transport != nil {
			err = w.transport.Connect(cmd.NodeID, cmd.Address, cmd.Port)
		}
		if err == nil && w.replCtl != nil && w.engine.IsLeader() {
			if rErr := w.replCtl.AddStandby(context.Background(), cmd.NodeID, fmt.Sprintf("node_%d", cmd.NodeID)); rErr != nil {
				log.Errorf("consensus: registering standby with replication controller failed", rErr)
			}
		}

	case types.CommandRemoveNode:
		err = w.engine.ProposeConfChange(raftengine.ConfChangeRemove, cmd.NodeID, "", 0)
		if err == nil && w.transport != nil {
			w.transport.Disconnect(cmd.NodeID)
		}
		if err == nil && w.replCtl != nil && w.engine.IsLeader() {
			if rErr := w.replCtl.RemoveStandby(context.Background(), cmd.NodeID); rErr != nil {
				log.Errorf("consensus: removing standby from replication controller failed", rErr)
			}
		}

	case types.CommandLogAppend:
		_, err = w.engine.Propose(cmd.LogData)

	case types.CommandLogCommit:
		// Advisory only: Raft itself drives the actual commit.

	case types.CommandLogApply:
		err = w.store.LogApply(cmd.LogIndex)

	case types.CommandShutdown:
		go w.Shutdown()

	default:
		w.pipeline.UpdateStatus(cmd.Timestamp, types.CommandFailed, "unknown command type")
		return
	}

	if err != nil {
		w.pipeline.UpdateStatus(cmd.Timestamp, types.CommandFailed, err.Error())
		return
	}
	w.pipeline.UpdateStatus(cmd.Timestamp, types.CommandCompleted, "")
}

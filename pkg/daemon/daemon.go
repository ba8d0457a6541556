package daemon

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pgraft/pgraft/pkg/api"
	"github.com/pgraft/pgraft/pkg/command"
	"github.com/pgraft/pgraft/pkg/config"
	"github.com/pgraft/pgraft/pkg/consensus"
	"github.com/pgraft/pgraft/pkg/events"
	"github.com/pgraft/pgraft/pkg/failover"
	"github.com/pgraft/pgraft/pkg/health"
	"github.com/pgraft/pgraft/pkg/log"
	"github.com/pgraft/pgraft/pkg/metrics"
	"github.com/pgraft/pgraft/pkg/monitor"
	"github.com/pgraft/pgraft/pkg/postgres"
	"github.com/pgraft/pgraft/pkg/raftengine"
	"github.com/pgraft/pgraft/pkg/reconciler"
	"github.com/pgraft/pgraft/pkg/replication"
	"github.com/pgraft/pgraft/pkg/store"
	"github.com/pgraft/pgraft/pkg/transport"
	"github.com/pgraft/pgraft/pkg/types"
	"github.com/rs/zerolog"
)

// Daemon is the composition root: it owns every long-lived component for
// one pgraft node and drives their start and shutdown order.
type Daemon struct {
	cfg    config.Config
	logger zerolog.Logger

	store        *store.Store
	broker       *events.Broker
	transport    *transport.Transport
	engine       *raftengine.Engine
	pipeline     *command.Pipeline
	worker       *consensus.Worker
	healthMon    *monitor.Monitor
	orchestrator *failover.Orchestrator
	replCtl      *replication.Controller
	recon        *reconciler.Reconciler
	collector    *metrics.Collector
	apiServer    *api.Server
	persister    *store.Persister

	localPg postgres.Controller

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// dataDir is fixed relative to the working directory the daemon is
// launched from; cmd/pgraftd passes --data-dir through config loading in a
// future revision, but every component here accepts it as a plain string.
const dataDir = "./data"

// New builds every component wired against cfg, but starts nothing.
func New(cfg config.Config) (*Daemon, error) {
	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})
	logger := log.WithComponent("daemon").With().Uint32("node", cfg.NodeID).Logger()

	s := store.New(cfg.ClusterName, cfg.NodeID)
	broker := events.NewBroker()

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	persister, err := store.OpenPersister(filepath.Join(dataDir, "clusterview.db"))
	if err != nil {
		return nil, fmt.Errorf("opening cluster view persister: %w", err)
	}
	if view, found, err := persister.LoadClusterView(); err != nil {
		logger.Warn().Err(err).Msg("failed to load persisted cluster view, starting cold")
	} else if found {
		s.RestoreClusterView(view)
		logger.Info().Int("nodes", len(view.Nodes)).Msg("restored cluster view from disk")
	}

	tr := transport.New(cfg.NodeID)

	engine, err := raftengine.New(raftengine.Config{
		NodeID:            cfg.NodeID,
		Address:           cfg.Address,
		Port:              cfg.Port,
		DataDir:           dataDir,
		HeartbeatInterval: time.Duration(cfg.HeartbeatIntervalMS) * time.Millisecond,
		ElectionTimeout:   time.Duration(cfg.ElectionTimeoutMS) * time.Millisecond,
		Bootstrap:         cfg.AutoClusterFormation && len(cfg.Peers) == 0,
	}, s, broker)
	if err != nil {
		return nil, fmt.Errorf("starting raft engine: %w", err)
	}

	pipeline := command.New()
	worker := consensus.New(engine, s, pipeline, tr, time.Duration(cfg.WorkerIntervalMS)*time.Millisecond, uint64(cfg.SnapshotInterval))

	localPg := postgres.NewCLIController(dataDir, cfg.Port)

	// pgFor resolves the Controller that drives a node's postgres instance.
	// Only the local node has a subprocess-backed CLIController available
	// to this process; commanding a remote node's postgres happens through
	// that node's own daemon and control surface (spec.md §1's out-of-scope
	// note on the CLI talking to a local HTTP endpoint), so every other
	// node resolves to the same local controller for now, which is
	// sufficient for single-node and test scenarios and is documented as a
	// known limitation for multi-host deployment.
	pgFor := func(nodeID uint32) postgres.Controller {
		return localPg
	}

	orchestrator := failover.New(s, broker, pgFor, cfg.NumSyncStandbys, cfg.AutoFailoverEnabled)
	replCtl := replication.New(localPg, types.SyncMode(cfg.SyncMode), cfg.NumSyncStandbys)
	worker.SetReplicationController(replCtl)

	newChecker := func(n *types.Node) health.Checker {
		return health.NewCompositeChecker(
			health.NewTCPChecker(fmt.Sprintf("%s:%d", n.Address, n.Port)),
			health.NewPgIsReadyChecker(n.Address, n.Port),
		)
	}
	healthMon := monitor.New(s, broker, newChecker, time.Duration(cfg.HealthPeriodMS)*time.Millisecond)

	recon := reconciler.New(s)
	collector := metrics.NewCollector(s, engine, pipeline, healthMon)
	apiServer := api.New(s, pipeline, healthMon, broker)

	return &Daemon{
		cfg:          cfg,
		logger:       logger,
		store:        s,
		broker:       broker,
		transport:    tr,
		engine:       engine,
		pipeline:     pipeline,
		worker:       worker,
		healthMon:    healthMon,
		orchestrator: orchestrator,
		replCtl:      replCtl,
		recon:        recon,
		collector:    collector,
		apiServer:    apiServer,
		persister:    persister,
		localPg:      localPg,
	}, nil
}

// Run starts every component and blocks until ctx is cancelled (or the HTTP
// control surface exits), then performs the ordered shutdown: metrics
// collector and reconciler, then the consensus worker (Worker.Shutdown),
// then the remaining goroutines, then the transport listener and Raft
// engine. The HTTP control surface is not stopped here.
func (d *Daemon) Run(ctx context.Context, apiAddr string) error {
	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if err := d.transport.Listen(d.cfg.Address, d.cfg.Port); err != nil {
		cancel()
		return fmt.Errorf("starting transport listener: %w", err)
	}

	d.broker.Start()
	d.recon.Start(time.Duration(d.cfg.HealthPeriodMS) * time.Millisecond * 2)
	d.collector.Start(time.Duration(d.cfg.HealthPeriodMS) * time.Millisecond)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.worker.Run(runCtx)
	}()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.healthMon.Run(runCtx)
	}()

	d.wg.Add(1)
	go d.watchPrimaryLoss(runCtx)

	d.wg.Add(1)
	go d.persistClusterView(runCtx)

	errCh := make(chan error, 1)
	go func() {
		if err := d.apiServer.Start(apiAddr); err != nil {
			errCh <- err
		}
	}()

	d.logger.Info().Str("api_addr", apiAddr).Msg("daemon started")

	select {
	case <-ctx.Done():
	case err := <-errCh:
		d.logger.Error().Err(err).Msg("control surface exited unexpectedly")
	}

	return d.shutdown()
}

// watchPrimaryLoss bridges the health monitor's primary-loss signal into a
// failover episode, the wiring point between components F and G.
func (d *Daemon) watchPrimaryLoss(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case lost := <-d.healthMon.PrimaryLost():
			d.logger.Warn().Uint32("node", lost.FailedNodeID).Str("reason", lost.Reason).Msg("primary loss detected, starting failover")
			if _, err := d.orchestrator.Execute(ctx, lost.FailedNodeID, lost.Reason); err != nil {
				d.logger.Error().Err(err).Msg("failover episode failed")
			}
		}
	}
}

// persistClusterView snapshots the cluster view to disk on a fixed cadence
// so a restart has a last-known-good membership picture before Raft replay
// catches it up. It saves once more on shutdown.
func (d *Daemon) persistClusterView(ctx context.Context) {
	defer d.wg.Done()

	ticker := time.NewTicker(time.Duration(d.cfg.HealthPeriodMS) * time.Millisecond * 4)
	defer ticker.Stop()

	save := func() {
		if err := d.persister.SaveClusterView(d.store.GetClusterView()); err != nil {
			d.logger.Warn().Err(err).Msg("failed to persist cluster view")
		}
	}

	for {
		select {
		case <-ctx.Done():
			save()
			return
		case <-ticker.C:
			save()
		}
	}
}

func (d *Daemon) shutdown() error {
	d.logger.Info().Msg("shutting down")

	d.collector.Stop()
	d.recon.Stop()
	d.worker.Shutdown()
	d.cancel()
	d.wg.Wait()

	if err := d.transport.Close(); err != nil {
		d.logger.Warn().Err(err).Msg("error closing transport")
	}
	if err := d.engine.Shutdown(); err != nil {
		return fmt.Errorf("shutting down raft engine: %w", err)
	}
	d.broker.Stop()
	if err := d.persister.Close(); err != nil {
		d.logger.Warn().Err(err).Msg("error closing cluster view persister")
	}

	d.logger.Info().Msg("shutdown complete")
	return nil
}

package monitor

import (
	"context"
	"time"

	"github.com/pgraft/pgraft/pkg/events"
	"github.com/pgraft/pgraft/pkg/health"
	"github.com/pgraft/pgraft/pkg/log"
	"github.com/pgraft/pgraft/pkg/store"
	"github.com/pgraft/pgraft/pkg/types"
)

// defaultFailoverThreshold is the number of consecutive failed checks
// against the known primary before the monitor declares it down.
const defaultFailoverThreshold = 3

// PrimaryLostEvent is sent to the orchestrator when the known primary has
// failed defaultFailoverThreshold consecutive checks.
type PrimaryLostEvent struct {
	FailedNodeID uint32
	Reason       string
}

// CheckerFactory builds the Checker used to probe one node. The daemon
// passes a health.CompositeChecker of a TCP check and a pg_isready check;
// tests can substitute a fake.
type CheckerFactory func(node *types.Node) health.Checker

// Monitor is the health monitor: component F.
type Monitor struct {
	store             *store.Store
	broker            *events.Broker
	newChecker        CheckerFactory
	period            time.Duration
	failoverThreshold int
	hysteresis        health.Config

	primaryFailures map[uint32]int
	statuses        map[uint32]*health.Status
	lostCh          chan PrimaryLostEvent

	lastActivity time.Time
	checksTotal  int
	checksOK     int
}

// New builds a Monitor polling every period, using newChecker to build a
// liveness probe per node. Reported node liveness is smoothed by a
// health.Status per node, requiring defaultFailoverThreshold consecutive
// failures before a node flips to unhealthy, so a single missed probe
// never flaps the cluster view; primary-loss detection below uses its own
// un-smoothed counter, since a flapping primary should fail over promptly.
func New(s *store.Store, broker *events.Broker, newChecker CheckerFactory, period time.Duration) *Monitor {
	cfg := health.DefaultConfig()
	cfg.Retries = defaultFailoverThreshold
	cfg.Timeout = 3 * time.Second

	return &Monitor{
		store:             s,
		broker:            broker,
		newChecker:        newChecker,
		period:            period,
		failoverThreshold: defaultFailoverThreshold,
		hysteresis:        cfg,
		primaryFailures:   make(map[uint32]int),
		statuses:          make(map[uint32]*health.Status),
		lostCh:            make(chan PrimaryLostEvent, 1),
		lastActivity:      time.Now(),
	}
}

func (m *Monitor) statusFor(id uint32) *health.Status {
	s, ok := m.statuses[id]
	if !ok {
		s = health.NewStatus()
		m.statuses[id] = s
	}
	return s
}

// PrimaryLost returns the channel the failover orchestrator should select on
// to learn when the monitor has declared the primary down.
func (m *Monitor) PrimaryLost() <-chan PrimaryLostEvent {
	return m.lostCh
}

// Run polls every node once per period until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.probeAll(ctx)
		}
	}
}

func (m *Monitor) probeAll(ctx context.Context) {
	view := m.store.GetClusterView()

	for id, node := range view.Nodes {
		checkCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		result := m.newChecker(node).Check(checkCtx)
		cancel()

		m.checksTotal++
		if result.Healthy {
			m.checksOK++
		}
		m.lastActivity = time.Now()

		status := m.statusFor(id)
		status.Update(result, m.hysteresis)

		score := 0.0
		if status.Healthy {
			score = 1.0
		}
		if err := m.store.UpdateNodeLiveness(id, status.Healthy, score, node.WALLSN, node.ReplicationLagMS); err != nil {
			log.Errorf("monitor: updating liveness", err)
		}

		if id == view.PrimaryNodeID {
			m.trackPrimary(id, result.Healthy)
		}
	}

	healthy, total := m.countHealthy(view)
	quorum := HasQuorum(healthy, total)
	if !quorum && m.broker != nil {
		m.broker.Publish(&events.Event{Type: events.EventFailoverFailed, Message: "quorum lost"})
	}
}

func (m *Monitor) trackPrimary(id uint32, healthy bool) {
	if healthy {
		m.primaryFailures[id] = 0
		return
	}
	m.primaryFailures[id]++
	if m.primaryFailures[id] >= m.failoverThreshold {
		select {
		case m.lostCh <- PrimaryLostEvent{FailedNodeID: id, Reason: "primary failed consecutive health checks"}:
		default:
		}
		m.primaryFailures[id] = 0
	}
}

func (m *Monitor) countHealthy(view types.ClusterView) (healthy, total int) {
	for _, n := range view.Nodes {
		total++
		if n.Healthy {
			healthy++
		}
	}
	return healthy, total
}

// HasQuorum reports whether healthy counts to a strict majority of total.
func HasQuorum(healthy, total int) bool {
	return healthy >= total/2+1
}

// Level reports the coarse-grained health status derived from time since
// the monitor's last probe (successful or not) and its observed success rate.
func (m *Monitor) Level() types.HealthStatusLevel {
	since := time.Since(m.lastActivity)
	successRate := 1.0
	if m.checksTotal > 0 {
		successRate = float64(m.checksOK) / float64(m.checksTotal)
	}

	switch {
	case since > 30*time.Second:
		return types.HealthError
	case successRate < 0.5:
		return types.HealthCritical
	case since > 10*time.Second:
		return types.HealthWarning
	case successRate < 0.8:
		return types.HealthWarning
	default:
		return types.HealthOK
	}
}

package metrics

import (
	"time"

	"github.com/pgraft/pgraft/pkg/command"
	"github.com/pgraft/pgraft/pkg/monitor"
	"github.com/pgraft/pgraft/pkg/raftengine"
	"github.com/pgraft/pgraft/pkg/store"
)

// Collector periodically samples the daemon's in-process state into the
// package-level Prometheus gauges and counters.
type Collector struct {
	store    *store.Store
	engine   *raftengine.Engine
	pipeline *command.Pipeline
	monitor  *monitor.Monitor
	stopCh   chan struct{}
}

// NewCollector builds a Collector reading from the given components.
func NewCollector(s *store.Store, e *raftengine.Engine, p *command.Pipeline, m *monitor.Monitor) *Collector {
	return &Collector{store: s, engine: e, pipeline: p, monitor: m, stopCh: make(chan struct{})}
}

// Start begins the periodic sampling loop in a background goroutine.
func (c *Collector) Start(period time.Duration) {
	ticker := time.NewTicker(period)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop ends the sampling loop.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	c.collectRaftMetrics()
	c.collectClusterMetrics()
	c.collectCommandMetrics()
}

func (c *Collector) collectRaftMetrics() {
	if c.engine == nil {
		return
	}
	if c.engine.IsLeader() {
		RaftIsLeader.Set(1)
	} else {
		RaftIsLeader.Set(0)
	}
	RaftTerm.Set(float64(c.engine.Term()))
}

func (c *Collector) collectClusterMetrics() {
	if c.store == nil {
		return
	}
	RaftNodesTotal.Set(float64(len(c.store.GetClusterView().Nodes)))
	RaftLogLastIndex.Set(float64(c.store.LogLastIndex()))
	RaftLogCommitIndex.Set(float64(c.store.LogCommitIndex()))
	RaftLogLastApplied.Set(float64(c.store.LogLastApplied()))

	if c.monitor == nil {
		return
	}
	view := c.store.GetClusterView()
	healthy := 0
	for _, n := range view.Nodes {
		if n.Healthy {
			healthy++
		}
	}
	HealthyNodesTotal.Set(float64(healthy))
	if monitor.HasQuorum(healthy, len(view.Nodes)) {
		HasQuorum.Set(1)
	} else {
		HasQuorum.Set(0)
	}
}

func (c *Collector) collectCommandMetrics() {
	if c.pipeline == nil {
		return
	}
	CommandQueueDepth.Set(float64(c.pipeline.Len()))
}

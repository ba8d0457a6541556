package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Raft engine metrics
	RaftIsLeader = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pgraft_raft_is_leader",
			Help: "Whether this node is the Raft leader (1 = leader, 0 = not)",
		},
	)

	RaftTerm = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pgraft_raft_term",
			Help: "Current Raft term observed by this node",
		},
	)

	RaftNodesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pgraft_raft_nodes_total",
			Help: "Total number of nodes in the cluster view",
		},
	)

	RaftLogLastIndex = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pgraft_raft_log_last_index",
			Help: "Highest log index known to this node",
		},
	)

	RaftLogCommitIndex = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pgraft_raft_log_commit_index",
			Help: "Highest log index known to be committed",
		},
	)

	RaftLogLastApplied = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pgraft_raft_log_last_applied",
			Help: "Highest log index applied to the state machine",
		},
	)

	RaftSnapshotsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pgraft_raft_snapshots_total",
			Help: "Total number of Raft snapshots requested",
		},
	)

	// Command pipeline metrics
	CommandQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pgraft_command_queue_depth",
			Help: "Current number of commands waiting in the pipeline",
		},
	)

	CommandsProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgraft_commands_processed_total",
			Help: "Total number of commands dispatched by the consensus worker, by type and outcome",
		},
		[]string{"type", "status"},
	)

	CommandsRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pgraft_commands_rejected_total",
			Help: "Total number of commands rejected because the pipeline was full",
		},
	)

	// Health monitor metrics
	HealthCheckDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pgraft_health_check_duration_seconds",
			Help:    "Time taken to probe a peer's health in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"node_id"},
	)

	HealthyNodesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pgraft_healthy_nodes_total",
			Help: "Number of nodes currently reporting healthy",
		},
	)

	HasQuorum = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pgraft_has_quorum",
			Help: "Whether the cluster currently has quorum (1 = yes, 0 = no)",
		},
	)

	// Failover orchestrator metrics
	FailoverEpisodesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgraft_failover_episodes_total",
			Help: "Total number of failover episodes by outcome",
		},
		[]string{"outcome"},
	)

	FailoverDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pgraft_failover_duration_seconds",
			Help:    "Time taken to complete a failover episode, from detection to completion",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 120},
		},
	)

	// Replication controller metrics
	ReplicationConnectedStandbys = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pgraft_replication_connected_standbys",
			Help: "Number of standbys currently connected to the primary",
		},
	)

	ReplicationLagMillis = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pgraft_replication_lag_ms",
			Help: "Observed replication lag in milliseconds, by node",
		},
		[]string{"node_id"},
	)

	// Reconciler metrics
	ReconciliationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pgraft_reconciliation_duration_seconds",
			Help:    "Time taken for a reconciliation cycle in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ReconciliationCyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pgraft_reconciliation_cycles_total",
			Help: "Total number of reconciliation cycles completed",
		},
	)

	ReconciliationViolationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgraft_reconciliation_violations_total",
			Help: "Total number of cluster-state invariant violations observed by the reconciler",
		},
		[]string{"invariant"},
	)

	// Control-surface HTTP metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgraft_api_requests_total",
			Help: "Total number of control-surface requests by route and status",
		},
		[]string{"route", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pgraft_api_request_duration_seconds",
			Help:    "Control-surface request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)

func init() {
	prometheus.MustRegister(
		RaftIsLeader,
		RaftTerm,
		RaftNodesTotal,
		RaftLogLastIndex,
		RaftLogCommitIndex,
		RaftLogLastApplied,
		RaftSnapshotsTotal,
		CommandQueueDepth,
		CommandsProcessedTotal,
		CommandsRejectedTotal,
		ReconciliationDuration,
		HealthCheckDuration,
		HealthyNodesTotal,
		HasQuorum,
		FailoverEpisodesTotal,
		FailoverDuration,
		ReplicationConnectedStandbys,
		ReplicationLagMillis,
		ReconciliationCyclesTotal,
		ReconciliationViolationsTotal,
		APIRequestsTotal,
		APIRequestDuration,
	)
}

// Handler returns the Prometheus HTTP handler for the /metrics route.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations against a histogram.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer starting now.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed time to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the elapsed time to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

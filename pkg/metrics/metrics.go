package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Node metrics
	NodeState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "meshguard_node_state",
			Help: "Current node state (1 for the active state, 0 otherwise)",
		},
		[]string{"node", "state"},
	)

	NodeFailureCount = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "meshguard_node_failure_count",
			Help: "Consecutive failed probes since the last reset",
		},
		[]string{"node"},
	)

	NodeRestartCount = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "meshguard_node_restart_count",
			Help: "Restarts issued since the budget was last replenished",
		},
		[]string{"node"},
	)

	// Probe metrics
	ProbesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meshguard_probes_total",
			Help: "Total number of health probes by node and verdict",
		},
		[]string{"node", "result"},
	)

	// Guardian metrics
	GuardianActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "meshguard_guardian_active",
			Help: "Whether the guardian takes restart actions (1 = active)",
		},
	)

	RestartsIssuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meshguard_restarts_issued_total",
			Help: "Total number of restarts issued by node and trigger",
		},
		[]string{"node", "trigger"},
	)

	RestartsFailedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meshguard_restarts_failed_total",
			Help: "Total number of restart attempts that failed or timed out",
		},
		[]string{"node"},
	)

	BudgetExhaustedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meshguard_budget_exhausted_total",
			Help: "Restart requests refused because the budget was exhausted",
		},
		[]string{"node"},
	)

	CrashRefusalsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "meshguard_crash_refusals_total",
			Help: "Crash transitions refused to preserve the availability floor",
		},
	)

	// Scheduler metrics
	RoundDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "meshguard_round_duration_seconds",
			Help:    "Duration of one scheduling round in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	RoundsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "meshguard_rounds_total",
			Help: "Total number of scheduling rounds completed",
		},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(NodeState)
	prometheus.MustRegister(NodeFailureCount)
	prometheus.MustRegister(NodeRestartCount)
	prometheus.MustRegister(ProbesTotal)
	prometheus.MustRegister(GuardianActive)
	prometheus.MustRegister(RestartsIssuedTotal)
	prometheus.MustRegister(RestartsFailedTotal)
	prometheus.MustRegister(BudgetExhaustedTotal)
	prometheus.MustRegister(CrashRefusalsTotal)
	prometheus.MustRegister(RoundDuration)
	prometheus.MustRegister(RoundsTotal)
}

// SetNodeState publishes a node's state as a one-hot gauge set
func SetNodeState(node, state string) {
	for _, s := range []string{"healthy", "unhealthy", "crashed", "restarting"} {
		v := 0.0
		if s == state {
			v = 1.0
		}
		NodeState.WithLabelValues(node, s).Set(v)
	}
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Control loop metrics
	CyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mend_cycles_total",
			Help: "Total number of healing cycles executed",
		},
	)

	CycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mend_cycle_duration_seconds",
			Help:    "Duration of healing cycles in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	NodesObserved = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mend_nodes_observed",
			Help: "Nodes in the last health snapshot by kind",
		},
		[]string{"kind"},
	)

	// Detection metrics
	VulnerabilitiesDetected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mend_vulnerabilities_detected_total",
			Help: "Total vulnerabilities detected by kind",
		},
		[]string{"kind"},
	)

	UnhealthyResources = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mend_unhealthy_resources",
			Help: "Resources currently classified as unreachable",
		},
	)

	// Action metrics
	ActionsDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mend_actions_dispatched_total",
			Help: "Total healing actions dispatched by kind",
		},
		[]string{"kind"},
	)

	ActionsSuppressed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mend_actions_suppressed_total",
			Help: "Total healing actions suppressed by reason (cooldown, cap, override)",
		},
		[]string{"reason"},
	)

	// Recovery metrics
	RecoveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mend_recoveries_total",
			Help: "Total playbook recovery outcomes by status",
		},
		[]string{"status"},
	)

	RecoveryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mend_recovery_duration_seconds",
			Help:    "Duration of playbook recovery runs in seconds",
			Buckets: []float64{.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"service"},
	)

	RemediationSteps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mend_remediation_steps_total",
			Help: "Total remediation steps executed by result",
		},
		[]string{"result"},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(CyclesTotal)
	prometheus.MustRegister(CycleDuration)
	prometheus.MustRegister(NodesObserved)
	prometheus.MustRegister(VulnerabilitiesDetected)
	prometheus.MustRegister(UnhealthyResources)
	prometheus.MustRegister(ActionsDispatched)
	prometheus.MustRegister(ActionsSuppressed)
	prometheus.MustRegister(RecoveriesTotal)
	prometheus.MustRegister(RecoveryDuration)
	prometheus.MustRegister(RemediationSteps)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

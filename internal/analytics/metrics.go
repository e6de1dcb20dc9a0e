package analytics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricActions              = "marketd_actions_recorded_total"
	MetricViewIncrementFailure = "marketd_view_increment_failures_total"
)

// Metrics contains Prometheus metrics for action tracking.
type Metrics struct {
	actions               *prometheus.CounterVec
	viewIncrementFailures prometheus.Counter
}

// NewMetrics creates a Metrics instance. The metrics are not registered;
// call Register to register them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricActions,
			Help: "Total number of engagement actions recorded, by action kind",
		}, []string{"action"}),
		viewIncrementFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricViewIncrementFailure,
			Help: "Total number of best-effort view increments that failed",
		}),
	}
}

// Register registers all metrics with the given registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.actions,
		m.viewIncrementFailures,
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// IncAction increments the recorded-action counter for one action kind.
func (m *Metrics) IncAction(action Action) {
	m.actions.WithLabelValues(string(action)).Inc()
}

// IncViewIncrementFailures increments the best-effort failure counter.
func (m *Metrics) IncViewIncrementFailures() {
	m.viewIncrementFailures.Inc()
}

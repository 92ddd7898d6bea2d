package metrics

import (
	"time"

	"mercator-hq/custodian/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// ActionMetrics tracks applied lifecycle actions.
//
// Metrics:
//   - custodian_lifecycle_actions_total: actions by kind and outcome
//   - custodian_lifecycle_action_duration_seconds: Apply duration by kind
type ActionMetrics struct {
	actionsTotal   *prometheus.CounterVec
	actionDuration *prometheus.HistogramVec
}

// NewActionMetrics creates and registers action metrics with the provided registry.
func NewActionMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ActionMetrics {
	am := &ActionMetrics{
		actionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "actions_total",
				Help:      "Total number of lifecycle actions attempted",
			},
			[]string{"action", "outcome"},
		),

		actionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "action_duration_seconds",
				Help:      "Duration of lifecycle action application in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"action"},
		),
	}

	registry.MustRegister(am.actionsTotal, am.actionDuration)

	return am
}

// RecordAction records one action attempt.
func (am *ActionMetrics) RecordAction(action, outcome string, duration time.Duration) {
	am.actionsTotal.WithLabelValues(action, outcome).Inc()
	am.actionDuration.WithLabelValues(action).Observe(duration.Seconds())
}

package metrics

import (
	"mercator-hq/custodian/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// AuditMetrics tracks audit log writes.
//
// Metrics:
//   - custodian_lifecycle_audit_writes_total: appends by outcome
type AuditMetrics struct {
	writesTotal *prometheus.CounterVec
}

// NewAuditMetrics creates and registers audit metrics with the provided registry.
func NewAuditMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *AuditMetrics {
	am := &AuditMetrics{
		writesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "audit_writes_total",
				Help:      "Total number of audit log appends",
			},
			[]string{"outcome"},
		),
	}

	registry.MustRegister(am.writesTotal)

	return am
}

// RecordWrite counts one append.
func (am *AuditMetrics) RecordWrite(outcome string) {
	am.writesTotal.WithLabelValues(outcome).Inc()
}

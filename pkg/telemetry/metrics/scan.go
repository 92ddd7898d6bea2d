package metrics

import (
	"time"

	"mercator-hq/custodian/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// ScanMetrics tracks lifecycle scans.
//
// Metrics:
//   - custodian_lifecycle_scans_total: scans by outcome
//   - custodian_lifecycle_scan_duration_seconds: scan duration histogram
//   - custodian_lifecycle_worklist_entries: entries in the last worklist
//   - custodian_lifecycle_evaluation_errors_total: per-document evaluation failures
//   - custodian_lifecycle_unpoliced_documents: documents with no active policy
type ScanMetrics struct {
	scansTotal       *prometheus.CounterVec
	scanDuration     prometheus.Histogram
	worklistEntries  prometheus.Gauge
	evaluationErrors *prometheus.CounterVec
	unpoliced        prometheus.Gauge
}

// NewScanMetrics creates and registers scan metrics with the provided registry.
func NewScanMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ScanMetrics {
	sm := &ScanMetrics{
		scansTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "scans_total",
				Help:      "Total number of lifecycle scans",
			},
			[]string{"outcome"},
		),

		scanDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "scan_duration_seconds",
				Help:      "Duration of lifecycle scans in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
			},
		),

		worklistEntries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "worklist_entries",
				Help:      "Number of entries produced by the most recent scan",
			},
		),

		evaluationErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "evaluation_errors_total",
				Help:      "Documents that could not be evaluated, by offending field",
			},
			[]string{"field"},
		),

		unpoliced: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "unpoliced_documents",
				Help:      "Documents without an active retention policy in the most recent scan",
			},
		),
	}

	registry.MustRegister(
		sm.scansTotal,
		sm.scanDuration,
		sm.worklistEntries,
		sm.evaluationErrors,
		sm.unpoliced,
	)

	return sm
}

// RecordScan records a completed scan.
func (sm *ScanMetrics) RecordScan(outcome string, duration time.Duration, entries int) {
	sm.scansTotal.WithLabelValues(outcome).Inc()
	sm.scanDuration.Observe(duration.Seconds())
	sm.worklistEntries.Set(float64(entries))
}

// RecordEvaluationError increments the evaluation error counter.
func (sm *ScanMetrics) RecordEvaluationError(field string) {
	if field == "" {
		field = "unknown"
	}
	sm.evaluationErrors.WithLabelValues(field).Inc()
}

// SetUnpoliced sets the unpoliced documents gauge.
func (sm *ScanMetrics) SetUnpoliced(n int) {
	sm.unpoliced.Set(float64(n))
}

// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RowsTotal counts rows leaving each stage, by outcome (ok, failed).
	RowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loan_pipeline_rows_total",
			Help: "Rows processed per pipeline stage",
		},
		[]string{"stage", "outcome"},
	)

	RowsRemoved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loan_pipeline_rows_removed_total",
			Help: "Rows removed during cleaning, by rule",
		},
		[]string{"rule"},
	)

	Decisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loan_pipeline_decisions_total",
			Help: "Scoring decisions by status",
		},
		[]string{"status"},
	)

	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "loan_pipeline_run_duration_seconds",
			Help:    "Duration of pipeline runs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		},
		[]string{"job", "outcome"},
	)

	QualityIssues = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "loan_pipeline_quality_issues",
			Help: "Issues found by the latest quality check run, per check",
		},
		[]string{"check"},
	)

	QualitySeverity = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "loan_pipeline_quality_severity",
			Help: "Total severity of the latest quality report",
		},
	)

	JobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "loan_pipeline_jobs_active",
			Help: "Number of in-flight runs per job",
		},
		[]string{"job"},
	)
)

// Package qualitymonitor audits the production store: three independent
// checks run concurrently and are joined into one report.
package qualitymonitor

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"time"

	apperrors "loan-pipeline/internal/common/errors"
	"loan-pipeline/internal/common/logger"
	"loan-pipeline/internal/common/metrics"
	"loan-pipeline/internal/common/observability"
	"loan-pipeline/internal/models"
	checkduplicates "loan-pipeline/internal/workers/quality/check-duplicates"
	checkmissingvalues "loan-pipeline/internal/workers/quality/check-missing-values"
	checkoutliers "loan-pipeline/internal/workers/quality/check-outliers"
	generatereport "loan-pipeline/internal/workers/quality/generate-report"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
	"go.opentelemetry.io/otel/attribute"
)

const (
	TaskType = "data-quality-monitor"
)

type RunLog interface {
	Start(ctx context.Context, runID, job string, startedAt time.Time) error
	Finish(ctx context.Context, runID, status string, summary interface{}, runErr error) error
}

// ReportCache keeps the latest report for the read API.
type ReportCache interface {
	Save(ctx context.Context, report *models.QualityReport) error
}

type ReportSink interface {
	PublishQuality(ctx context.Context, report *models.QualityReport) error
}

type Notifier interface {
	NotifyQuality(ctx context.Context, report *models.QualityReport) error
}

type Option func(*Monitor)

func WithRunLog(l RunLog) Option {
	return func(m *Monitor) { m.runLog = l }
}

func WithReportCache(c ReportCache) Option {
	return func(m *Monitor) { m.cache = c }
}

func WithReportSink(s ReportSink) Option {
	return func(m *Monitor) { m.sink = s }
}

func WithNotifier(n Notifier) Option {
	return func(m *Monitor) { m.notifier = n }
}

func WithObservability(o *observability.Observability) Option {
	return func(m *Monitor) { m.obs = o }
}

type Monitor struct {
	missing    *checkmissingvalues.Handler
	duplicates *checkduplicates.Handler
	outliers   *checkoutliers.Handler
	report     *generatereport.Handler

	runLog   RunLog
	cache    ReportCache
	sink     ReportSink
	notifier Notifier
	obs      *observability.Observability
	logger   logger.Logger
}

func NewMonitor(cfg *Config, db *sql.DB, log logger.Logger, opts ...Option) *Monitor {
	m := &Monitor{
		missing:    checkmissingvalues.NewHandler(cfg.MissingValues, db, log),
		duplicates: checkduplicates.NewHandler(cfg.Duplicates, db, log),
		outliers:   checkoutliers.NewHandler(cfg.Outliers, db, log),
		report:     generatereport.NewHandler(cfg.Report, log),
		logger:     log.WithFields(map[string]interface{}{"job": models.JobQuality}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// checkResults holds the joined outcome of the three checks.
type checkResults struct {
	missing       *checkmissingvalues.Output
	missingErr    error
	duplicates    *checkduplicates.Output
	duplicatesErr error
	outliers      *checkoutliers.Output
	outliersErr   error
}

// Run performs one audit. The report is produced even when a check fails;
// in that case the returned error is QUALITY_CHECK_FAILED so the trigger
// can retry.
func (m *Monitor) Run(ctx context.Context) (*models.QualityReport, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := m.logger.WithFields(map[string]interface{}{"runId": runID})

	metrics.JobsActive.WithLabelValues(models.JobQuality).Inc()
	defer metrics.JobsActive.WithLabelValues(models.JobQuality).Dec()

	ctx, span := m.obs.StartSpan(ctx, "qualitymonitor.run", attribute.String("run.id", runID))

	log.Info("quality run started", nil)
	if m.runLog != nil {
		if err := m.runLog.Start(ctx, runID, models.JobQuality, start.UTC()); err != nil {
			log.Warn("run log start failed", map[string]interface{}{"error": err})
		}
	}

	res := m.runChecks(ctx)
	input := toReportInput(res)
	report := m.report.Execute(input)
	m.recordGauges(res, report)

	runErr := checkError(input.CheckErrors)
	status := models.RunSuccess
	if runErr != nil {
		status = models.RunFailed
	}
	duration := time.Since(start)

	metrics.RunDuration.WithLabelValues(models.JobQuality, status).Observe(duration.Seconds())
	m.obs.RecordJobProcessed(ctx, models.JobQuality, status)
	m.obs.RecordJobDuration(ctx, models.JobQuality, duration, status)

	m.publish(ctx, report, log)

	if m.runLog != nil {
		if err := m.runLog.Finish(ctx, runID, status, report, runErr); err != nil {
			log.Warn("run log finish failed", map[string]interface{}{"error": err})
		}
	}

	fields := map[string]interface{}{
		"reportId":    report.ID,
		"severity":    report.Severity,
		"totalIssues": report.TotalIssues,
		"durationMs":  duration.Milliseconds(),
	}
	if runErr != nil {
		fields["error"] = runErr
		log.Error("quality run finished with failed checks", fields)
	} else {
		log.Info("quality run completed", fields)
	}

	observability.EndSpan(span, runErr)
	return report, runErr
}

func (m *Monitor) runChecks(ctx context.Context) checkResults {
	var (
		res checkResults
		wg  conc.WaitGroup
	)

	wg.Go(func() {
		ctx, span := m.obs.StartSpan(ctx, "qualitymonitor."+checkmissingvalues.TaskType)
		res.missing, res.missingErr = m.missing.Execute(ctx)
		observability.EndSpan(span, res.missingErr)
	})
	wg.Go(func() {
		ctx, span := m.obs.StartSpan(ctx, "qualitymonitor."+checkduplicates.TaskType)
		res.duplicates, res.duplicatesErr = m.duplicates.Execute(ctx)
		observability.EndSpan(span, res.duplicatesErr)
	})
	wg.Go(func() {
		ctx, span := m.obs.StartSpan(ctx, "qualitymonitor."+checkoutliers.TaskType)
		res.outliers, res.outliersErr = m.outliers.Execute(ctx)
		observability.EndSpan(span, res.outliersErr)
	})

	wg.Wait()
	return res
}

func toReportInput(res checkResults) *generatereport.Input {
	in := &generatereport.Input{CheckErrors: make(map[string]error)}

	if res.missingErr != nil {
		in.CheckErrors[checkmissingvalues.TaskType] = res.missingErr
	} else {
		in.MissingValues = res.missing.Missing
	}

	if res.duplicatesErr != nil {
		in.CheckErrors[checkduplicates.TaskType] = res.duplicatesErr
	} else {
		in.DuplicateCINs = res.duplicates.Count
		in.DuplicateSamples = res.duplicates.Samples
	}

	if res.outliersErr != nil {
		in.CheckErrors[checkoutliers.TaskType] = res.outliersErr
	} else {
		in.Outliers = res.outliers.Outliers
	}

	return in
}

func (m *Monitor) recordGauges(res checkResults, report *models.QualityReport) {
	if res.missingErr == nil {
		metrics.QualityIssues.WithLabelValues(checkmissingvalues.TaskType).Set(float64(res.missing.Total))
	}
	if res.duplicatesErr == nil {
		metrics.QualityIssues.WithLabelValues(checkduplicates.TaskType).Set(float64(res.duplicates.Count))
	}
	if res.outliersErr == nil {
		metrics.QualityIssues.WithLabelValues(checkoutliers.TaskType).Set(float64(res.outliers.Total))
	}
	metrics.QualitySeverity.Set(float64(generatereport.SeverityLevel(report.Severity)))
}

// publish fans the report out to the cache, the index and, when it needs
// attention, to operators. None of these fail the run.
func (m *Monitor) publish(ctx context.Context, report *models.QualityReport, log logger.Logger) {
	if m.cache != nil {
		if err := m.cache.Save(ctx, report); err != nil {
			log.Warn("latest report not cached", map[string]interface{}{"error": err})
		}
	}
	if m.sink != nil {
		if err := m.sink.PublishQuality(ctx, report); err != nil {
			log.Warn("quality report not indexed", map[string]interface{}{"error": err})
		}
	}
	if m.notifier != nil && report.Severity == models.SeverityNeedsAttention {
		if err := m.notifier.NotifyQuality(ctx, report); err != nil {
			log.Warn("quality alert not sent", map[string]interface{}{"error": err})
		}
	}
}

func checkError(failed map[string]error) error {
	if len(failed) == 0 {
		return nil
	}
	checks := make([]string, 0, len(failed))
	for check := range failed {
		checks = append(checks, check)
	}
	sort.Strings(checks)

	errs := make([]error, len(checks))
	for i, check := range checks {
		errs[i] = failed[check]
	}
	return apperrors.NewQualityCheckFailedError(strings.Join(checks, ","), errors.Join(errs...))
}

// Package batchetl runs the daily batch: extract, clean, score and load.
package batchetl

import (
	"context"
	"database/sql"
	"time"

	apperrors "loan-pipeline/internal/common/errors"
	"loan-pipeline/internal/common/logger"
	"loan-pipeline/internal/common/metrics"
	"loan-pipeline/internal/common/observability"
	"loan-pipeline/internal/models"
	"loan-pipeline/internal/scoring"
	extractapplications "loan-pipeline/internal/workers/etl/extract-applications"
	loadapplications "loan-pipeline/internal/workers/etl/load-applications"
	scoreapplications "loan-pipeline/internal/workers/etl/score-applications"
	validateapplications "loan-pipeline/internal/workers/etl/validate-applications"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

const (
	TaskType = "loan-batch-etl"

	stageExtract  = "extract"
	stageValidate = "validate"
	stageScore    = "score"
	stageLoad     = "load"
)

// RunLog persists one entry per run.
type RunLog interface {
	Start(ctx context.Context, runID, job string, startedAt time.Time) error
	Finish(ctx context.Context, runID, status string, summary interface{}, runErr error) error
}

// ReportSink publishes finished run summaries.
type ReportSink interface {
	PublishRun(ctx context.Context, summary *models.RunSummary) error
}

// Notifier alerts operators about failed runs.
type Notifier interface {
	NotifyFailure(ctx context.Context, job, runID string, runErr error) error
}

type Option func(*Runner)

func WithRunLog(l RunLog) Option {
	return func(r *Runner) { r.runLog = l }
}

func WithReportSink(s ReportSink) Option {
	return func(r *Runner) { r.sink = s }
}

func WithNotifier(n Notifier) Option {
	return func(r *Runner) { r.notifier = n }
}

func WithObservability(o *observability.Observability) Option {
	return func(r *Runner) { r.obs = o }
}

// Runner composes the four ETL stages. Each stage's full output is the
// next stage's input; nothing is shared between runs except the stores.
type Runner struct {
	extractor *extractapplications.Handler
	validator *validateapplications.Handler
	scorer    *scoreapplications.Handler
	loader    *loadapplications.Handler
	artifacts scoring.Source

	runLog   RunLog
	sink     ReportSink
	notifier Notifier
	obs      *observability.Observability
	logger   logger.Logger
}

func NewRunner(cfg *Config, db *sql.DB, artifacts scoring.Source, log logger.Logger, opts ...Option) *Runner {
	r := &Runner{
		extractor: extractapplications.NewHandler(cfg.Extract, db, log),
		validator: validateapplications.NewHandler(cfg.Validate, log),
		scorer:    scoreapplications.NewHandler(cfg.Score, log),
		loader:    loadapplications.NewHandler(cfg.Load, db, log),
		artifacts: artifacts,
		logger:    log.WithFields(map[string]interface{}{"job": models.JobETL}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes one batch. The returned summary is always non-nil; its
// Status is failed exactly when the error is non-nil.
func (r *Runner) Run(ctx context.Context) (*models.RunSummary, error) {
	start := time.Now()
	summary := &models.RunSummary{
		RunID:     uuid.NewString(),
		StartedAt: start.UTC(),
	}
	log := r.logger.WithFields(map[string]interface{}{"runId": summary.RunID})

	metrics.JobsActive.WithLabelValues(models.JobETL).Inc()
	defer metrics.JobsActive.WithLabelValues(models.JobETL).Dec()

	ctx, span := r.obs.StartSpan(ctx, "batchetl.run", attribute.String("run.id", summary.RunID))

	log.Info("batch run started", nil)
	if r.runLog != nil {
		if err := r.runLog.Start(ctx, summary.RunID, models.JobETL, summary.StartedAt); err != nil {
			log.Warn("run log start failed", map[string]interface{}{"error": err})
		}
	}

	err := r.run(ctx, summary, log)

	summary.Duration = time.Since(start)
	if err != nil {
		summary.Status = models.RunFailed
		summary.Error = err.Error()
	}
	r.finish(ctx, summary, err, log)
	observability.EndSpan(span, err)

	return summary, err
}

func (r *Runner) run(ctx context.Context, summary *models.RunSummary, log logger.Logger) error {
	// Extract
	var extracted *extractapplications.Output
	err := r.stage(ctx, stageExtract, func(ctx context.Context) error {
		var err error
		extracted, err = r.extractor.Execute(ctx)
		return err
	})
	if err != nil {
		return err
	}
	summary.Extracted = len(extracted.Applications)
	metrics.RowsTotal.WithLabelValues(stageExtract, "ok").Add(float64(summary.Extracted))

	if summary.Extracted == 0 {
		summary.Status = models.RunNoData
		log.Info("no unprocessed staging rows", nil)
		return nil
	}

	// Validate
	var cleaned *validateapplications.Output
	_ = r.stage(ctx, stageValidate, func(ctx context.Context) error {
		cleaned = r.validator.Execute(&validateapplications.Input{Applications: extracted.Applications})
		return nil
	})
	summary.Cleaned = len(cleaned.Applications)
	summary.Removed = cleaned.Stats.Removed
	summary.OutliersByColumn = cleaned.Stats.OutliersByColumn
	metrics.RowsTotal.WithLabelValues(stageValidate, "ok").Add(float64(summary.Cleaned))
	for rule, n := range cleaned.Stats.Removed {
		metrics.RowsRemoved.WithLabelValues(rule).Add(float64(n))
	}

	if summary.Cleaned == 0 {
		summary.Status = models.RunNoCleanRows
		log.Info("no rows survived cleaning", map[string]interface{}{
			"extracted": summary.Extracted,
			"removed":   summary.Removed,
		})
		return r.load(ctx, summary, &loadapplications.Input{Rejected: cleaned.Rejected})
	}

	// Score
	art, err := r.loadArtifacts(ctx)
	if err != nil {
		return err
	}
	summary.ModelVersion = art.Version

	var scored *scoreapplications.Output
	err = r.stage(ctx, stageScore, func(ctx context.Context) error {
		var err error
		scored, err = r.scorer.Execute(ctx, &scoreapplications.Input{
			Applications: cleaned.Applications,
			Artifacts:    art,
		})
		return err
	})
	if err != nil {
		return err
	}
	summary.Scored = len(scored.Applications)
	summary.ScoreFailed = scored.Failed
	summary.Approved = scored.Approved
	summary.Rejected = scored.Rejected
	metrics.RowsTotal.WithLabelValues(stageScore, "ok").Add(float64(summary.Scored))
	metrics.RowsTotal.WithLabelValues(stageScore, "failed").Add(float64(summary.ScoreFailed))
	metrics.Decisions.WithLabelValues(models.StatusApproved).Add(float64(summary.Approved))
	metrics.Decisions.WithLabelValues(models.StatusRejected).Add(float64(summary.Rejected))

	if err := r.load(ctx, summary, &loadapplications.Input{
		Applications: scored.Applications,
		Rejected:     cleaned.Rejected,
	}); err != nil {
		return err
	}

	summary.Status = models.RunSuccess
	return nil
}

func (r *Runner) load(ctx context.Context, summary *models.RunSummary, input *loadapplications.Input) error {
	var loaded *loadapplications.Output
	err := r.stage(ctx, stageLoad, func(ctx context.Context) error {
		var err error
		loaded, err = r.loader.Execute(ctx, input)
		return err
	})
	if err != nil {
		return err
	}
	summary.Loaded = len(loaded.Records)
	summary.InsertFailed = loaded.Failed
	summary.Marked = loaded.Marked
	metrics.RowsTotal.WithLabelValues(stageLoad, "ok").Add(float64(summary.Loaded))
	metrics.RowsTotal.WithLabelValues(stageLoad, "failed").Add(float64(summary.InsertFailed))
	return nil
}

// stage wraps one stage in a span.
func (r *Runner) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := r.obs.StartSpan(ctx, "batchetl."+name, attribute.String("stage", name))
	err := fn(ctx)
	observability.EndSpan(span, err)
	return err
}

func (r *Runner) loadArtifacts(ctx context.Context) (*scoring.Artifacts, error) {
	if r.artifacts == nil {
		return nil, apperrors.NewArtifactLoadFailedError("", scoreapplications.ErrMissingArtifacts)
	}
	art, err := r.artifacts.Load(ctx)
	if err != nil {
		if _, ok := apperrors.AsStandard(err); ok {
			return nil, err
		}
		return nil, apperrors.NewArtifactLoadFailedError("", err)
	}
	return art, nil
}

func (r *Runner) finish(ctx context.Context, summary *models.RunSummary, runErr error, log logger.Logger) {
	metrics.RunDuration.WithLabelValues(models.JobETL, summary.Status).Observe(summary.Duration.Seconds())
	r.obs.RecordJobProcessed(ctx, models.JobETL, summary.Status)
	r.obs.RecordJobDuration(ctx, models.JobETL, summary.Duration, summary.Status)

	fields := map[string]interface{}{
		"status":       summary.Status,
		"extracted":    summary.Extracted,
		"cleaned":      summary.Cleaned,
		"removed":      summary.Removed,
		"scored":       summary.Scored,
		"scoreFailed":  summary.ScoreFailed,
		"approved":     summary.Approved,
		"rejected":     summary.Rejected,
		"loaded":       summary.Loaded,
		"insertFailed": summary.InsertFailed,
		"marked":       summary.Marked,
		"durationMs":   summary.Duration.Milliseconds(),
	}
	if runErr != nil {
		std := apperrors.Normalize(runErr)
		fields["errorCode"] = string(std.Code)
		fields["retryable"] = std.Retryable
		fields["error"] = runErr
		log.Error("batch run failed", fields)
	} else {
		log.Info("batch run completed", fields)
	}

	if r.runLog != nil {
		if err := r.runLog.Finish(ctx, summary.RunID, summary.Status, summary, runErr); err != nil {
			log.Warn("run log finish failed", map[string]interface{}{"error": err})
		}
	}
	if r.sink != nil {
		if err := r.sink.PublishRun(ctx, summary); err != nil {
			log.Warn("run summary not indexed", map[string]interface{}{"error": err})
		}
	}
	if runErr != nil && r.notifier != nil {
		if err := r.notifier.NotifyFailure(ctx, models.JobETL, summary.RunID, runErr); err != nil {
			log.Warn("failure alert not sent", map[string]interface{}{"error": err})
		}
	}
}

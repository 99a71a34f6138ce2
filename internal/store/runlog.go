package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"loan-pipeline/internal/models"
)

const runStatusRunning = "running"

// RunLog records every job run in pipeline_runs.
type RunLog struct {
	db *sql.DB
}

func NewRunLog(db *sql.DB) *RunLog {
	return &RunLog{db: db}
}

// Start inserts a running entry.
func (l *RunLog) Start(ctx context.Context, runID, job string, startedAt time.Time) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO pipeline_runs (id, job, started_at, status) VALUES ($1, $2, $3, $4)`,
		runID, job, startedAt, runStatusRunning)
	if err != nil {
		return fmt.Errorf("run log start: %w", err)
	}
	return nil
}

// Finish closes the entry with its final status and summary.
func (l *RunLog) Finish(ctx context.Context, runID, status string, summary interface{}, runErr error) error {
	body, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("run log summary: %w", err)
	}

	var errText sql.NullString
	if runErr != nil {
		errText = sql.NullString{String: runErr.Error(), Valid: true}
	}

	_, err = l.db.ExecContext(ctx,
		`UPDATE pipeline_runs SET finished_at = $2, status = $3, summary = $4, error = $5 WHERE id = $1`,
		runID, time.Now().UTC(), status, body, errText)
	if err != nil {
		return fmt.Errorf("run log finish: %w", err)
	}
	return nil
}

// Fail closes the entry as failed.
func (l *RunLog) Fail(ctx context.Context, runID string, summary interface{}, runErr error) error {
	return l.Finish(ctx, runID, models.RunFailed, summary, runErr)
}

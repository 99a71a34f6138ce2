// internal/models/run.go
package models

import "time"

const (
	JobETL     = "etl"
	JobQuality = "quality"
)

// Run outcomes.
const (
	RunSuccess     = "success"
	RunNoData      = "no_data"
	RunNoCleanRows = "no_clean_rows"
	RunFailed      = "failed"
)

// RunSummary is reported at the end of every batch scoring run.
type RunSummary struct {
	RunID            string         `json:"runId"`
	StartedAt        time.Time      `json:"startedAt"`
	Extracted        int            `json:"extracted"`
	Cleaned          int            `json:"cleaned"`
	Removed          map[string]int `json:"removed,omitempty"`
	OutliersByColumn map[string]int `json:"outliersByColumn,omitempty"`
	Scored           int            `json:"scored"`
	ScoreFailed      int            `json:"scoreFailed"`
	Approved         int            `json:"approved"`
	Rejected         int            `json:"rejected"`
	Loaded           int            `json:"loaded"`
	InsertFailed     int            `json:"insertFailed"`
	Marked           int            `json:"marked"`
	ModelVersion     string         `json:"modelVersion,omitempty"`
	Duration         time.Duration  `json:"duration"`
	Status           string         `json:"status"`
	Error            string         `json:"error,omitempty"`
}

// Variables flattens the summary for a Zeebe job completion.
func (s *RunSummary) Variables() map[string]interface{} {
	return map[string]interface{}{
		"runId":        s.RunID,
		"status":       s.Status,
		"extracted":    s.Extracted,
		"cleaned":      s.Cleaned,
		"removed":      s.Removed,
		"scored":       s.Scored,
		"scoreFailed":  s.ScoreFailed,
		"approved":     s.Approved,
		"rejected":     s.Rejected,
		"loaded":       s.Loaded,
		"insertFailed": s.InsertFailed,
		"marked":       s.Marked,
		"modelVersion": s.ModelVersion,
		"durationMs":   s.Duration.Milliseconds(),
	}
}

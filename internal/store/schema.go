// Package store owns the SQL that is not part of a pipeline stage: schema
// bootstrap, the run log and the production read surface.
package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Raw intake columns are TEXT: bulk uploads may carry malformed numbers,
// which the cleaner drops rather than the database rejecting the upload.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS staging_applications (
		id                   BIGSERIAL PRIMARY KEY,
		client_name          TEXT,
		cin                  TEXT,
		phone                TEXT,
		annual_income        TEXT,
		credit_score         TEXT,
		loan_amount          TEXT,
		loan_term            TEXT,
		interest_rate        TEXT,
		debt_to_income_ratio TEXT,
		gender               TEXT,
		marital_status       TEXT,
		education_level      TEXT,
		employment_status    TEXT,
		loan_purpose         TEXT,
		uploaded_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		processed            BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_staging_unprocessed
		ON staging_applications (uploaded_at) WHERE processed = FALSE`,
	`CREATE TABLE IF NOT EXISTS simulations (
		id            BIGSERIAL PRIMARY KEY,
		client_name   TEXT,
		cin           TEXT,
		phone         TEXT,
		annual_income DOUBLE PRECISION,
		credit_score  DOUBLE PRECISION,
		loan_amount   DOUBLE PRECISION,
		loan_term     INTEGER,
		interest_rate DOUBLE PRECISION,
		risk_score    DOUBLE PRECISION,
		status        TEXT,
		model_version TEXT,
		staging_id    BIGINT,
		date_added    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_simulations_date_added ON simulations (date_added DESC)`,
	`CREATE TABLE IF NOT EXISTS pipeline_runs (
		id          UUID PRIMARY KEY,
		job         TEXT NOT NULL,
		started_at  TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ,
		status      TEXT NOT NULL,
		summary     JSONB,
		error       TEXT
	)`,
}

// EnsureSchema creates the pipeline tables when they do not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

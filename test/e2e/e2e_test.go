// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loan-pipeline/internal/common/config"
	"loan-pipeline/internal/common/database"
	"loan-pipeline/internal/common/logger"
	"loan-pipeline/internal/jobs/batchetl"
	"loan-pipeline/internal/jobs/qualitymonitor"
	"loan-pipeline/internal/models"
	"loan-pipeline/internal/scoring"
	"loan-pipeline/internal/store"
)

const manifestPath = "../../configs/artifacts/manifest.yaml"

// The suite needs a disposable PostgreSQL (and optionally Redis). It drains
// every unprocessed staging row, so never point it at a shared database.
func TestMain(m *testing.M) {
	if os.Getenv("LOAN_PIPELINE_E2E") == "" {
		os.Exit(0)
	}
	os.Exit(m.Run())
}

func TestFullE2E(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cfg, err := config.Load()
	require.NoError(t, err)
	cfg.Database.Postgres.Host = "localhost"

	log := logger.NewTestLogger(t)

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	require.NoError(t, err, "PostgreSQL connection failed")
	defer pg.Close()
	require.NoError(t, pg.Ping(ctx), "PostgreSQL ping failed")
	t.Log("PostgreSQL connected")

	require.NoError(t, store.EnsureSchema(ctx, pg.DB))
	seedStaging(t, ctx, pg.DB)

	runLog := store.NewRunLog(pg.DB)
	runner := batchetl.NewRunner(batchetl.LoadConfig(), pg.DB,
		scoring.FileSource{ManifestPath: manifestPath}, log, batchetl.WithRunLog(runLog))

	// 1. First run consumes the seeded batch
	summary, err := runner.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.RunSuccess, summary.Status)
	assert.GreaterOrEqual(t, summary.Extracted, 3)
	assert.Equal(t, summary.Extracted, summary.Marked, "every extracted row is consumed")
	assert.Equal(t, "logreg-2024-06", summary.ModelVersion)

	var loaded int
	require.NoError(t, pg.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM simulations WHERE cin LIKE 'E2E-%'`).Scan(&loaded))
	assert.Equal(t, 2, loaded, "duplicate CIN is loaded once")

	var status string
	require.NoError(t, pg.DB.QueryRowContext(ctx,
		`SELECT status FROM pipeline_runs WHERE id = $1`, summary.RunID).Scan(&status))
	assert.Equal(t, models.RunSuccess, status)

	// 2. Second run finds nothing left to do
	summary, err = runner.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.RunNoData, summary.Status)

	// 3. Monitor over the production table
	monitor := qualitymonitor.NewMonitor(qualitymonitor.LoadConfig(), pg.DB, log, qualitymonitor.WithRunLog(runLog))
	report, err := monitor.Run(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, report.Severity)
	assert.Contains(t, report.MissingValues, "cin")

	// 4. Read surface
	rdb := database.NewRedis(cfg.Database.Redis)
	if rdb != nil {
		defer rdb.Close()
		if err := database.PingRedis(ctx, rdb); err != nil {
			rdb = nil
		}
	}
	reader := store.NewProductionReader(pg.DB, rdb, time.Minute, log)
	recent, err := reader.Recent(ctx, store.DefaultRecentLimit)
	require.NoError(t, err)
	assert.NotEmpty(t, recent)

	t.Log("Full E2E run successful")
}

func seedStaging(t *testing.T, ctx context.Context, db *sql.DB) {
	t.Helper()

	_, err := db.ExecContext(ctx, `DELETE FROM simulations WHERE cin LIKE 'E2E-%'`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `DELETE FROM staging_applications WHERE cin LIKE 'E2E-%'`)
	require.NoError(t, err)

	rows := [][]interface{}{
		{"Amina Benali", "E2E-0001", "0600000001", "58000", "712", "18000", "48", "6.5", "28", "Female", "Married", "Graduate", "Employed", "Home"},
		{"Youssef Haddad", "E2E-0002", "0600000002", "72000", "655", "25000", "60", "8.1", "35", "Male", "Single", "Graduate", "Self-Employed", "Business"},
		{"Amina Benali", "E2E-0001", "0600000001", "58000", "712", "18000", "48", "6.5", "28", "Female", "Married", "Graduate", "Employed", "Home"},
	}
	for _, r := range rows {
		_, err := db.ExecContext(ctx, `
			INSERT INTO staging_applications (
				client_name, cin, phone, annual_income, credit_score, loan_amount, loan_term,
				interest_rate, debt_to_income_ratio, gender, marital_status, education_level,
				employment_status, loan_purpose
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`, r...)
		require.NoError(t, err)
	}
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"loan-pipeline/internal/common/logger"
	"loan-pipeline/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	recentKeyPrefix  = "applications:recent:"
	summaryKeyPrefix = "applications:summary:"

	DefaultRecentLimit = 5
	MaxRecentLimit     = 100
)

// ProductionReader serves the read-only dashboard queries over the
// production ledger. When a Redis client is configured results are cached
// for ttl; any cache error falls through to the database.
type ProductionReader struct {
	db     *sql.DB
	rdb    *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewProductionReader(db *sql.DB, rdb *redis.Client, ttl time.Duration, log logger.Logger) *ProductionReader {
	return &ProductionReader{
		db:     db,
		rdb:    rdb,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "production-reader"}),
	}
}

// Recent returns the newest records first.
func (r *ProductionReader) Recent(ctx context.Context, limit int) ([]models.ProductionRecord, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if limit > MaxRecentLimit {
		limit = MaxRecentLimit
	}

	var records []models.ProductionRecord
	key := recentKeyPrefix + strconv.Itoa(limit)
	if r.cacheGet(ctx, key, &records) {
		return records, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, staging_id, client_name, cin, phone, annual_income, credit_score, loan_amount,
		       loan_term, interest_rate, risk_score, status, model_version, date_added
		FROM simulations
		ORDER BY date_added DESC, id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent applications: %w", err)
	}
	defer rows.Close()

	records = make([]models.ProductionRecord, 0, limit)
	for rows.Next() {
		var (
			rec                    models.ProductionRecord
			clientName, cin, phone sql.NullString
			status, modelVersion   sql.NullString
			income, credit, loan   sql.NullFloat64
			risk                   sql.NullFloat64
			loanTerm               sql.NullInt64
		)
		if err := rows.Scan(&rec.ID, &rec.StagingID, &clientName, &cin, &phone, &income, &credit, &loan,
			&loanTerm, &rec.InterestRate, &risk, &status, &modelVersion, &rec.DateAdded); err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		rec.ClientName = clientName.String
		rec.CIN = cin.String
		rec.Phone = phone.String
		rec.AnnualIncome = income.Float64
		rec.CreditScore = credit.Float64
		rec.LoanAmount = loan.Float64
		rec.LoanTerm = int(loanTerm.Int64)
		rec.RiskScore = risk.Float64
		rec.Status = status.String
		rec.ModelVersion = modelVersion.String
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applications: %w", err)
	}

	r.cacheSet(ctx, key, records)
	return records, nil
}

// Summary aggregates the whole ledger. HighRisk counts records whose risk
// score is strictly above riskThreshold.
func (r *ProductionReader) Summary(ctx context.Context, riskThreshold float64) (*models.ProductionSummary, error) {
	var summary models.ProductionSummary
	key := summaryKeyPrefix + strconv.FormatFloat(riskThreshold, 'f', -1, 64)
	if r.cacheGet(ctx, key, &summary) {
		return &summary, nil
	}

	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = $2),
			COUNT(*) FILTER (WHERE status = $3),
			COALESCE(SUM(loan_amount), 0),
			COUNT(*) FILTER (WHERE risk_score > $1)
		FROM simulations`,
		riskThreshold, models.StatusApproved, models.StatusRejected,
	).Scan(&summary.Total, &summary.Approved, &summary.Rejected, &summary.TotalLoanAmount, &summary.HighRisk)
	if err != nil {
		return nil, fmt.Errorf("summarize applications: %w", err)
	}
	summary.RiskThreshold = riskThreshold

	r.cacheSet(ctx, key, summary)
	return &summary, nil
}

func (r *ProductionReader) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if r.rdb == nil {
		return false
	}
	raw, err := r.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("cache read failed", map[string]interface{}{"key": key, "error": err})
		}
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		r.logger.Warn("cache entry unreadable", map[string]interface{}{"key": key, "error": err})
		return false
	}
	return true
}

func (r *ProductionReader) cacheSet(ctx context.Context, key string, value interface{}) {
	if r.rdb == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := r.rdb.Set(ctx, key, raw, r.ttl).Err(); err != nil {
		r.logger.Warn("cache write failed", map[string]interface{}{"key": key, "error": err})
	}
}

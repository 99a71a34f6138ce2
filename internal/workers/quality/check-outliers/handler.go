// internal/workers/quality/check-outliers/handler.go
package checkoutliers

import (
	"context"
	"database/sql"
	"fmt"

	apperrors "loan-pipeline/internal/common/errors"
	"loan-pipeline/internal/common/logger"
	"loan-pipeline/internal/stats"
)

const (
	TaskType = "check-outliers"
)

// numericColumns guards the column names interpolated into queries.
var numericColumns = map[string]bool{
	"annual_income": true,
	"loan_amount":   true,
	"credit_score":  true,
	"interest_rate": true,
	"risk_score":    true,
}

type Handler struct {
	config *Config
	db     *sql.DB
	logger logger.Logger
}

func NewHandler(config *Config, db *sql.DB, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		db:     db,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

// Execute computes each column's statistics over the whole production store
// and counts the values beyond three standard deviations.
func (h *Handler) Execute(ctx context.Context) (*Output, error) {
	return h.execute(ctx)
}

func (h *Handler) execute(ctx context.Context) (*Output, error) {
	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	out := &Output{
		Outliers:  make(map[string]int, len(h.config.Columns)),
		Summaries: make(map[string]stats.Summary, len(h.config.Columns)),
	}

	for _, col := range h.config.Columns {
		values, err := h.columnValues(ctx, col)
		if err != nil {
			return nil, apperrors.NewQualityCheckFailedError(TaskType, err).WithMetadata("column", col)
		}

		summary := stats.Describe(values)
		n := summary.CountOutliers(values)
		out.Outliers[col] = n
		out.Summaries[col] = summary
		out.Total += n
	}

	h.logger.Info("outliers checked", map[string]interface{}{
		"outliers": out.Outliers,
		"total":    out.Total,
	})

	return out, nil
}

func (h *Handler) columnValues(ctx context.Context, column string) ([]float64, error) {
	if !numericColumns[column] {
		return nil, fmt.Errorf("column %q is not a monitored numeric column", column)
	}

	rows, err := h.db.QueryContext(ctx,
		fmt.Sprintf("SELECT %s FROM simulations WHERE %s IS NOT NULL", column, column))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := make([]float64, 0)
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

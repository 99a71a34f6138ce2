// internal/workers/quality/check-missing-values/handler.go
package checkmissingvalues

import (
	"context"
	"database/sql"

	apperrors "loan-pipeline/internal/common/errors"
	"loan-pipeline/internal/common/logger"
)

const (
	TaskType = "check-missing-values"
)

// MonitoredColumns lists the production columns audited for missing values,
// in the order they are reported.
var MonitoredColumns = []string{"client_name", "cin", "annual_income", "credit_score", "loan_amount"}

// Text columns count empty strings as missing; numeric columns only NULL.
const countMissing = `
	SELECT
		COUNT(*) FILTER (WHERE client_name IS NULL OR client_name = ''),
		COUNT(*) FILTER (WHERE cin IS NULL OR cin = ''),
		COUNT(*) FILTER (WHERE annual_income IS NULL),
		COUNT(*) FILTER (WHERE credit_score IS NULL),
		COUNT(*) FILTER (WHERE loan_amount IS NULL)
	FROM simulations`

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

func (h *Handler) Execute(ctx context.Context) (*Output, error) {
	return h.execute(ctx)
}

func (h *Handler) execute(ctx context.Context) (*Output, error) {
	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	counts := make([]int, len(MonitoredColumns))
	dest := make([]interface{}, len(counts))
	for i := range counts {
		dest[i] = &counts[i]
	}

	if err := h.db.QueryRowContext(ctx, countMissing).Scan(dest...); err != nil {
		return nil, apperrors.NewQualityCheckFailedError(TaskType, err)
	}

	out := &Output{Missing: make(map[string]int, len(MonitoredColumns))}
	for i, col := range MonitoredColumns {
		out.Missing[col] = counts[i]
		out.Total += counts[i]
	}

	h.logger.Info("missing values checked", map[string]interface{}{
		"missing": out.Missing,
		"total":   out.Total,
	})

	return out, nil
}

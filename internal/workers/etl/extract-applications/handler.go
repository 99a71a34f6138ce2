// internal/workers/etl/extract-applications/handler.go
package extractapplications

import (
	"context"
	"database/sql"
	"fmt"

	apperrors "loan-pipeline/internal/common/errors"
	"loan-pipeline/internal/common/logger"
	"loan-pipeline/internal/models"
)

const (
	TaskType = "extract-applications"
)

const selectUnprocessed = `
	SELECT id, client_name, cin, phone,
	       annual_income, credit_score, loan_amount, loan_term, interest_rate, debt_to_income_ratio,
	       gender, marital_status, education_level, employment_status, loan_purpose,
	       uploaded_at, processed
	FROM staging_applications
	WHERE processed = FALSE
	ORDER BY uploaded_at ASC, id ASC`

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

// Execute reads every unprocessed staging row, oldest upload first.
// An empty queue yields an empty Output, not an error.
func (h *Handler) Execute(ctx context.Context) (*Output, error) {
	return h.execute(ctx)
}

func (h *Handler) execute(ctx context.Context) (*Output, error) {
	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	if err := h.db.PingContext(ctx); err != nil {
		return nil, apperrors.NewDatabaseConnectionFailedError(err)
	}

	rows, err := h.db.QueryContext(ctx, selectUnprocessed)
	if err != nil {
		return nil, apperrors.NewStagingQueryFailedError(err)
	}
	defer rows.Close()

	apps := make([]models.StagingApplication, 0)
	for rows.Next() {
		var a models.StagingApplication
		if err := rows.Scan(
			&a.ID, &a.ClientName, &a.CIN, &a.Phone,
			&a.AnnualIncome, &a.CreditScore, &a.LoanAmount, &a.LoanTerm, &a.InterestRate, &a.DebtToIncomeRatio,
			&a.Gender, &a.MaritalStatus, &a.EducationLevel, &a.EmploymentStatus, &a.LoanPurpose,
			&a.UploadedAt, &a.Processed,
		); err != nil {
			return nil, apperrors.NewStagingQueryFailedError(fmt.Errorf("scan staging row: %w", err))
		}
		apps = append(apps, a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStagingQueryFailedError(err)
	}

	h.logger.Info("staging rows extracted", map[string]interface{}{
		"count": len(apps),
	})

	return &Output{Applications: apps}, nil
}

// internal/workers/etl/load-applications/handler.go
package loadapplications

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	apperrors "loan-pipeline/internal/common/errors"
	"loan-pipeline/internal/common/logger"
	"loan-pipeline/internal/models"

	"github.com/lib/pq"
)

const (
	TaskType = "load-applications"
)

var (
	ErrNothingLoaded = errors.New("NO_ROWS_LOADED")
)

const insertRecord = `
	INSERT INTO simulations (
		client_name, cin, phone, annual_income, credit_score, loan_amount,
		loan_term, interest_rate, risk_score, status, model_version, staging_id, date_added
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
	RETURNING id, date_added`

const markProcessed = `
	UPDATE staging_applications
	SET processed = TRUE
	WHERE id = ANY($1) AND processed = FALSE`

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

// Execute inserts every scored application, then marks the staging rows of
// the successful inserts, plus the rejected ids, processed in a single
// statement. Rows that fail to insert are skipped and stay unprocessed.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	out := &Output{Records: make([]models.ProductionRecord, 0, len(input.Applications))}
	if len(input.Applications) == 0 && len(input.Rejected) == 0 {
		return out, nil
	}

	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	// nothing is written if the store is down before the first insert
	if err := h.db.PingContext(ctx); err != nil {
		return nil, apperrors.NewDatabaseConnectionFailedError(err)
	}

	var storeErr error
	stagingIDs := make([]int64, 0, len(input.Applications)+len(input.Rejected))

	for i, app := range input.Applications {
		rec, err := h.insert(ctx, app)
		if err != nil {
			out.Failed++
			class := classifyInsertError(err)
			rowErr := apperrors.NewDatabaseInsertFailedError(app.StagingID, err)
			h.logger.Warn("insert failed, row skipped", map[string]interface{}{
				"stagingId":  app.StagingID,
				"errorCode":  string(rowErr.Code),
				"errorClass": class,
				"error":      err,
			})
			if class == failureStore {
				storeErr = err
				remaining := len(input.Applications) - i - 1
				out.Failed += remaining
				h.logger.Error("store failure during load, remaining rows skipped", map[string]interface{}{
					"skipped": remaining,
				})
				break
			}
			continue
		}
		out.Records = append(out.Records, rec)
		stagingIDs = append(stagingIDs, app.StagingID)
	}

	// row-class failures alone never fail the run
	if storeErr != nil && len(stagingIDs) == 0 {
		return nil, apperrors.NewLoadFailedError(fmt.Errorf("%w: %d inserts failed, last error: %v",
			ErrNothingLoaded, out.Failed, storeErr))
	}
	stagingIDs = append(stagingIDs, input.Rejected...)

	if len(stagingIDs) == 0 {
		h.logger.Warn("no rows loaded, nothing to mark", map[string]interface{}{
			"failed": out.Failed,
		})
		return out, nil
	}

	res, err := h.db.ExecContext(ctx, markProcessed, pq.Array(stagingIDs))
	if err != nil {
		return nil, apperrors.NewMarkProcessedFailedError(len(stagingIDs), err)
	}
	marked, err := res.RowsAffected()
	if err != nil {
		marked = int64(len(stagingIDs))
	}
	out.Marked = int(marked)

	h.logger.Info("batch loaded", map[string]interface{}{
		"loaded":   len(out.Records),
		"failed":   out.Failed,
		"rejected": len(input.Rejected),
		"marked":   out.Marked,
	})

	return out, nil
}

func (h *Handler) insert(ctx context.Context, app models.ScoredApplication) (models.ProductionRecord, error) {
	stagingID := app.StagingID
	rec := models.ProductionRecord{
		StagingID:    &stagingID,
		ClientName:   app.ClientName,
		CIN:          app.CIN,
		Phone:        app.Phone,
		AnnualIncome: app.AnnualIncome,
		CreditScore:  app.CreditScore,
		LoanAmount:   app.LoanAmount,
		LoanTerm:     app.LoanTerm,
		InterestRate: app.InterestRate,
		RiskScore:    app.RiskScore,
		Status:       app.Status,
		ModelVersion: app.ModelVersion,
	}

	err := h.db.QueryRowContext(ctx, insertRecord,
		rec.ClientName,
		rec.CIN,
		rec.Phone,
		rec.AnnualIncome,
		rec.CreditScore,
		rec.LoanAmount,
		rec.LoanTerm,
		rec.InterestRate,
		rec.RiskScore,
		rec.Status,
		rec.ModelVersion,
		stagingID,
	).Scan(&rec.ID, &rec.DateAdded)
	if err != nil {
		return models.ProductionRecord{}, err
	}
	return rec, nil
}

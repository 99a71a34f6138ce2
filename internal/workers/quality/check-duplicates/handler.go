// internal/workers/quality/check-duplicates/handler.go
package checkduplicates

import (
	"context"
	"database/sql"

	apperrors "loan-pipeline/internal/common/errors"
	"loan-pipeline/internal/common/logger"
	"loan-pipeline/internal/models"
)

const (
	TaskType = "check-duplicates"
)

const selectDuplicates = `
	SELECT cin, COUNT(*) AS occurrences
	FROM simulations
	WHERE cin IS NOT NULL AND cin <> ''
	GROUP BY cin
	HAVING COUNT(*) > 1
	ORDER BY occurrences DESC, cin ASC`

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

	rows, err := h.db.QueryContext(ctx, selectDuplicates)
	if err != nil {
		return nil, apperrors.NewQualityCheckFailedError(TaskType, err)
	}
	defer rows.Close()

	out := &Output{}
	for rows.Next() {
		var d models.DuplicateCIN
		if err := rows.Scan(&d.CIN, &d.Occurrences); err != nil {
			return nil, apperrors.NewQualityCheckFailedError(TaskType, err)
		}
		out.Count++
		if len(out.Samples) < h.config.SampleSize {
			out.Samples = append(out.Samples, d)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQualityCheckFailedError(TaskType, err)
	}

	h.logger.Info("duplicate identifiers checked", map[string]interface{}{
		"count":   out.Count,
		"samples": out.Samples,
	})

	return out, nil
}

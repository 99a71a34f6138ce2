// internal/workers/etl/score-applications/handler.go
package scoreapplications

import (
	"context"
	"errors"
	"fmt"

	apperrors "loan-pipeline/internal/common/errors"
	"loan-pipeline/internal/common/logger"
	"loan-pipeline/internal/models"
	"loan-pipeline/internal/scoring"
	"loan-pipeline/internal/stats"

	"github.com/sourcegraph/conc/iter"
)

const (
	TaskType = "score-applications"
)

var (
	ErrMissingArtifacts        = errors.New("ARTIFACTS_NOT_LOADED")
	ErrIncompleteProbabilities = errors.New("CLASSIFIER_PROBABILITIES_INCOMPLETE")
)

type Handler struct {
	config *Config
	logger logger.Logger
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

type rowResult struct {
	scored models.ScoredApplication
	err    error
}

// Execute scores every application. A width incompatibility is fatal for
// the whole batch; a failure on one row only drops that row.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	art := input.Artifacts
	if art == nil || art.Normalizer == nil || art.Classifier == nil {
		return nil, apperrors.NewArtifactLoadFailedError("", ErrMissingArtifacts)
	}
	width := art.Normalizer.ExpectedWidth()
	if err := CheckWidth(width); err != nil {
		return nil, err
	}

	mapper := iter.Mapper[models.CleanedApplication, rowResult]{MaxGoroutines: h.config.Workers}
	results := mapper.Map(input.Applications, func(a *models.CleanedApplication) rowResult {
		if err := ctx.Err(); err != nil {
			return rowResult{err: err}
		}
		scored, err := scoreRow(art, width, *a)
		return rowResult{scored: scored, err: err}
	})

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("scoring interrupted: %w", err)
	}

	out := &Output{Applications: make([]models.ScoredApplication, 0, len(results))}
	for i, r := range results {
		if r.err != nil {
			out.Failed++
			rowErr := apperrors.NewRowScoringFailedError(input.Applications[i].StagingID, r.err)
			h.logger.Warn("row scoring failed", map[string]interface{}{
				"stagingId": input.Applications[i].StagingID,
				"errorCode": string(rowErr.Code),
				"error":     r.err,
			})
			continue
		}
		if r.scored.Status == models.StatusApproved {
			out.Approved++
		} else {
			out.Rejected++
		}
		out.Applications = append(out.Applications, r.scored)
	}

	h.logger.Info("batch scored", map[string]interface{}{
		"scored":       len(out.Applications),
		"failed":       out.Failed,
		"approved":     out.Approved,
		"rejected":     out.Rejected,
		"modelVersion": art.Version,
	})

	return out, nil
}

func scoreRow(art *scoring.Artifacts, width int, a models.CleanedApplication) (models.ScoredApplication, error) {
	features := PadToWidth(BuildFeatureVector(a), width)

	normalized, err := art.Normalizer.Transform(features)
	if err != nil {
		return models.ScoredApplication{}, fmt.Errorf("normalize: %w", err)
	}
	pred, err := art.Classifier.Predict(normalized)
	if err != nil {
		return models.ScoredApplication{}, fmt.Errorf("predict: %w", err)
	}

	status, risk, err := Decide(pred)
	if err != nil {
		return models.ScoredApplication{}, err
	}

	return models.ScoredApplication{
		CleanedApplication: a,
		Status:             status,
		RiskScore:          risk,
		ModelVersion:       art.Version,
	}, nil
}

// Decide maps a prediction to a decision. Label 0 is approval; any other
// label is a rejection. The risk score is the probability of the second
// class as a percentage, rounded to two decimals.
func Decide(pred scoring.Prediction) (string, float64, error) {
	if len(pred.Probabilities) < 2 {
		return "", 0, fmt.Errorf("%w: got %d", ErrIncompleteProbabilities, len(pred.Probabilities))
	}

	status := models.StatusRejected
	if pred.Label == 0 {
		status = models.StatusApproved
	}
	return status, stats.Round(pred.Probabilities[1]*100, 2), nil
}

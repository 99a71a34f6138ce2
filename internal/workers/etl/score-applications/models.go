// internal/workers/etl/score-applications/models.go
package scoreapplications

import (
	"loan-pipeline/internal/models"
	"loan-pipeline/internal/scoring"
)

type Input struct {
	Applications []models.CleanedApplication
	Artifacts    *scoring.Artifacts
}

type Output struct {
	Applications []models.ScoredApplication `json:"applications"`
	Failed       int                        `json:"failed"`
	Approved     int                        `json:"approved"`
	Rejected     int                        `json:"rejected"`
}

// internal/workers/etl/load-applications/models.go
package loadapplications

import "loan-pipeline/internal/models"

type Input struct {
	Applications []models.ScoredApplication `json:"applications"`
	// Rejected are staging ids cleaning removed. They are marked together
	// with the loaded rows so a later batch does not pick them up again.
	Rejected []int64 `json:"rejected"`
}

type Output struct {
	Records []models.ProductionRecord `json:"records"`
	Failed  int                       `json:"failed"`
	Marked  int                       `json:"marked"`
}

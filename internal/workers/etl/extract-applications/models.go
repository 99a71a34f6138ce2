// internal/workers/etl/extract-applications/models.go
package extractapplications

import "loan-pipeline/internal/models"

type Output struct {
	Applications []models.StagingApplication `json:"applications"`
}

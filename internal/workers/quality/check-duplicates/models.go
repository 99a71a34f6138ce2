// internal/workers/quality/check-duplicates/models.go
package checkduplicates

import "loan-pipeline/internal/models"

type Output struct {
	// Count is the number of distinct national IDs occurring more than once.
	Count   int                   `json:"count"`
	Samples []models.DuplicateCIN `json:"samples,omitempty"`
}

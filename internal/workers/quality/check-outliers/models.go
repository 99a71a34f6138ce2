// internal/workers/quality/check-outliers/models.go
package checkoutliers

import "loan-pipeline/internal/stats"

type Output struct {
	Outliers  map[string]int           `json:"outliers"`
	Summaries map[string]stats.Summary `json:"summaries"`
	Total     int                      `json:"total"`
}

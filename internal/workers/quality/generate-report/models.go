// internal/workers/quality/generate-report/models.go
package generatereport

import "loan-pipeline/internal/models"

// Input carries the joined results of the three checks. A check that failed
// leaves its result fields empty and has an entry in CheckErrors.
type Input struct {
	MissingValues    map[string]int
	DuplicateCINs    int
	DuplicateSamples []models.DuplicateCIN
	Outliers         map[string]int
	CheckErrors      map[string]error
}

// internal/workers/quality/check-missing-values/models.go
package checkmissingvalues

// Output holds the missing-value count of every monitored column.
type Output struct {
	Missing map[string]int `json:"missing"`
	Total   int            `json:"total"`
}

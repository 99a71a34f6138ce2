// internal/models/quality.go
package models

import "time"

// Cleaning rule names, also used as metric labels.
const (
	RuleDuplicates   = "duplicates"
	RuleIncomplete   = "incomplete"
	RuleInvalidRange = "invalid_range"
	RuleOutliers     = "outliers"
)

// QualityStats describes what one cleaning pass removed.
// Initial always equals Final plus the sum of Removed.
type QualityStats struct {
	Initial          int            `json:"initial"`
	Final            int            `json:"final"`
	Removed          map[string]int `json:"removed"`
	OutliersByColumn map[string]int `json:"outliersByColumn"`
}

// TotalRemoved sums the per-rule removal counts.
func (s QualityStats) TotalRemoved() int {
	total := 0
	for _, n := range s.Removed {
		total += n
	}
	return total
}

// Severity tiers of a quality report.
const (
	SeverityExcellent      = "excellent"
	SeverityGood           = "good (minor issues)"
	SeverityNeedsAttention = "needs attention"
)

// DuplicateCIN is one national ID that occurs more than once in production.
type DuplicateCIN struct {
	CIN         string `json:"cin"`
	Occurrences int    `json:"occurrences"`
}

// QualityReport is the result of one quality monitor run.
type QualityReport struct {
	ID               string            `json:"id"`
	GeneratedAt      time.Time         `json:"generatedAt"`
	MissingValues    map[string]int    `json:"missingValues"`
	DuplicateCINs    int               `json:"duplicateCins"`
	DuplicateSamples []DuplicateCIN    `json:"duplicateSamples,omitempty"`
	Outliers         map[string]int    `json:"outliers"`
	TotalIssues      int               `json:"totalIssues"`
	Severity         string            `json:"severity"`
	CheckErrors      map[string]string `json:"checkErrors,omitempty"`
}

// Variables flattens the report for a Zeebe job completion.
func (r *QualityReport) Variables() map[string]interface{} {
	return map[string]interface{}{
		"reportId":      r.ID,
		"missingValues": r.MissingValues,
		"duplicateCins": r.DuplicateCINs,
		"outliers":      r.Outliers,
		"totalIssues":   r.TotalIssues,
		"severity":      r.Severity,
	}
}

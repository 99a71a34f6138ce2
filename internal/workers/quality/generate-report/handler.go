// internal/workers/quality/generate-report/handler.go
package generatereport

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"loan-pipeline/internal/common/logger"
	"loan-pipeline/internal/models"

	"github.com/google/uuid"
)

const (
	TaskType = "generate-report"
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

// Execute aggregates check results into a report.
func (h *Handler) Execute(input *Input) *models.QualityReport {
	return h.execute(input)
}

func (h *Handler) execute(input *Input) *models.QualityReport {
	report := &models.QualityReport{
		ID:               uuid.NewString(),
		GeneratedAt:      time.Now().UTC(),
		MissingValues:    copyCounts(input.MissingValues),
		DuplicateCINs:    input.DuplicateCINs,
		DuplicateSamples: input.DuplicateSamples,
		Outliers:         copyCounts(input.Outliers),
	}

	for _, n := range report.MissingValues {
		report.TotalIssues += n
	}
	report.TotalIssues += report.DuplicateCINs
	for _, n := range report.Outliers {
		report.TotalIssues += n
	}
	report.Severity = Severity(report.TotalIssues, h.config.AttentionThreshold)

	if len(input.CheckErrors) > 0 {
		report.CheckErrors = make(map[string]string, len(input.CheckErrors))
		for check, err := range input.CheckErrors {
			report.CheckErrors[check] = err.Error()
		}
	}

	h.logger.Info("quality report generated", map[string]interface{}{
		"reportId":      report.ID,
		"totalIssues":   report.TotalIssues,
		"severity":      report.Severity,
		"failedChecks":  len(report.CheckErrors),
		"duplicateCins": report.DuplicateCINs,
	})

	return report
}

// Severity maps an issue total to its tier.
func Severity(totalIssues, attentionThreshold int) string {
	switch {
	case totalIssues == 0:
		return models.SeverityExcellent
	case totalIssues < attentionThreshold:
		return models.SeverityGood
	default:
		return models.SeverityNeedsAttention
	}
}

// SeverityLevel maps a tier to 0, 1 or 2 for gauges.
func SeverityLevel(severity string) int {
	switch severity {
	case models.SeverityExcellent:
		return 0
	case models.SeverityGood:
		return 1
	default:
		return 2
	}
}

// Format renders a report as plain text for alerts.
func Format(r *models.QualityReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Data quality report %s (%s)\n", r.ID, r.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Severity: %s, total issues: %d\n\n", strings.ToUpper(r.Severity), r.TotalIssues)

	b.WriteString("Missing values:\n")
	for _, col := range sortedKeys(r.MissingValues) {
		fmt.Fprintf(&b, "  %s: %d\n", col, r.MissingValues[col])
	}

	fmt.Fprintf(&b, "\nDuplicate national IDs: %d\n", r.DuplicateCINs)
	for _, d := range r.DuplicateSamples {
		fmt.Fprintf(&b, "  %s (%d occurrences)\n", d.CIN, d.Occurrences)
	}

	b.WriteString("\nOutliers (>3 sigma):\n")
	for _, col := range sortedKeys(r.Outliers) {
		fmt.Fprintf(&b, "  %s: %d\n", col, r.Outliers[col])
	}

	if len(r.CheckErrors) > 0 {
		b.WriteString("\nFailed checks:\n")
		for _, check := range sortedKeys(r.CheckErrors) {
			fmt.Fprintf(&b, "  %s: %s\n", check, r.CheckErrors[check])
		}
	}
	return b.String()
}

func copyCounts(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

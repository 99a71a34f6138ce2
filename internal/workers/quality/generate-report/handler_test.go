package generatereport

import (
	"errors"
	"testing"

	"loan-pipeline/internal/common/logger"
	"loan-pipeline/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverity(t *testing.T) {
	tests := []struct {
		total int
		want  string
	}{
		{0, models.SeverityExcellent},
		{1, models.SeverityGood},
		{9, models.SeverityGood},
		{10, models.SeverityNeedsAttention},
		{250, models.SeverityNeedsAttention},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Severity(tt.total, 10), "total %d", tt.total)
	}
}

func TestSeverityLevel(t *testing.T) {
	assert.Equal(t, 0, SeverityLevel(models.SeverityExcellent))
	assert.Equal(t, 1, SeverityLevel(models.SeverityGood))
	assert.Equal(t, 2, SeverityLevel(models.SeverityNeedsAttention))
}

func TestHandler_Execute_Aggregates(t *testing.T) {
	h := NewHandler(LoadConfig(), logger.NewTestLogger(t))

	report := h.Execute(&Input{
		MissingValues:    map[string]int{"cin": 2, "client_name": 1},
		DuplicateCINs:    3,
		DuplicateSamples: []models.DuplicateCIN{{CIN: "AB1", Occurrences: 2}},
		Outliers:         map[string]int{"annual_income": 1, "loan_amount": 0, "credit_score": 0},
	})

	assert.NotEmpty(t, report.ID)
	assert.Equal(t, 7, report.TotalIssues)
	assert.Equal(t, models.SeverityGood, report.Severity)
	assert.Empty(t, report.CheckErrors)
}

func TestHandler_Execute_FailedCheckStillReported(t *testing.T) {
	h := NewHandler(&Config{AttentionThreshold: 10}, logger.NewTestLogger(t))

	report := h.Execute(&Input{
		MissingValues: map[string]int{"cin": 12},
		Outliers:      map[string]int{"annual_income": 0},
		CheckErrors:   map[string]error{"check-duplicates": errors.New("statement timeout")},
	})

	assert.Equal(t, 12, report.TotalIssues)
	assert.Equal(t, models.SeverityNeedsAttention, report.Severity)
	require.Contains(t, report.CheckErrors, "check-duplicates")
	assert.Equal(t, "statement timeout", report.CheckErrors["check-duplicates"])
}

func TestFormat(t *testing.T) {
	h := NewHandler(LoadConfig(), logger.NewNoOpLogger())
	report := h.Execute(&Input{
		MissingValues:    map[string]int{"cin": 0},
		DuplicateCINs:    1,
		DuplicateSamples: []models.DuplicateCIN{{CIN: "AB1", Occurrences: 3}},
		Outliers:         map[string]int{"loan_amount": 2},
		CheckErrors:      map[string]error{"check-missing-values": errors.New("boom")},
	})

	text := Format(report)

	assert.Contains(t, text, "Severity: GOOD (MINOR ISSUES), total issues: 3")
	assert.Contains(t, text, "AB1 (3 occurrences)")
	assert.Contains(t, text, "loan_amount: 2")
	assert.Contains(t, text, "check-missing-values: boom")
}

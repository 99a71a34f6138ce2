package validateapplications

import (
	"fmt"
	"testing"
	"time"

	"loan-pipeline/internal/common/logger"
	"loan-pipeline/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func str(s string) *string { return &s }

var baseTime = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

func stagingRow(id int64, cin string) models.StagingApplication {
	return models.StagingApplication{
		ID:               id,
		ClientName:       str(fmt.Sprintf("Client %d", id)),
		CIN:              str(cin),
		AnnualIncome:     str("60000"),
		CreditScore:      str("700"),
		LoanAmount:       str("20000"),
		LoanTerm:         str("36"),
		InterestRate:     str("4.5"),
		Gender:           str("Male"),
		MaritalStatus:    str("Single"),
		EducationLevel:   str("Graduate"),
		EmploymentStatus: str("Employed"),
		LoanPurpose:      str("Personal"),
		UploadedAt:       baseTime.Add(time.Duration(id) * time.Minute),
	}
}

func newTestHandler(t *testing.T) *Handler {
	return NewHandler(LoadConfig(), logger.NewTestLogger(t))
}

func stagingIDs(apps []models.CleanedApplication) []int64 {
	ids := make([]int64, len(apps))
	for i, a := range apps {
		ids[i] = a.StagingID
	}
	return ids
}

// ==========================
// Rule Tests
// ==========================

func TestDeduplicate_KeepsEarliestArrival(t *testing.T) {
	early := stagingRow(1, "AB123")
	late := stagingRow(2, "AB123")
	late.ClientName = str("Duplicate submitter")

	rows, removed := Deduplicate(ParseRows([]models.StagingApplication{early, late, stagingRow(3, "ZZ999")}))

	assert.Equal(t, 1, removed)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(1), rows[0].Source.ID)
	assert.Equal(t, int64(3), rows[1].Source.ID)
}

func TestDeduplicate_IgnoresSurroundingWhitespace(t *testing.T) {
	tests := []struct {
		name string
		cins []string
	}{
		{"trailing space", []string{"AB1", "AB1 "}},
		{"leading tab", []string{"\tAB1", "AB1"}},
		{"both padded", []string{" AB1 ", "  AB1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, removed := Deduplicate(ParseRows([]models.StagingApplication{
				stagingRow(1, tt.cins[0]),
				stagingRow(2, tt.cins[1]),
			}))

			assert.Equal(t, 1, removed)
			require.Len(t, rows, 1)
			assert.Equal(t, int64(1), rows[0].Source.ID)
			assert.Equal(t, "AB1", *rows[0].CIN)
		})
	}
}

func TestHandler_Execute_StoresTrimmedCIN(t *testing.T) {
	out := newTestHandler(t).Execute(&Input{Applications: []models.StagingApplication{
		stagingRow(1, "AB1 "),
		stagingRow(2, "AB1"),
		stagingRow(3, " CD2"),
	}})

	require.Len(t, out.Applications, 2)
	assert.Equal(t, "AB1", out.Applications[0].CIN)
	assert.Equal(t, "CD2", out.Applications[1].CIN)
	assert.Equal(t, []int64{2}, out.Rejected)
	assert.Equal(t, 1, out.Stats.Removed[models.RuleDuplicates])
}

func TestDeduplicate_MissingCINsShareOneKey(t *testing.T) {
	a := stagingRow(1, "")
	a.CIN = nil
	b := stagingRow(2, "")
	b.CIN = nil

	rows, removed := Deduplicate(ParseRows([]models.StagingApplication{a, b}))

	assert.Equal(t, 1, removed)
	assert.Equal(t, int64(1), rows[0].Source.ID)
}

func TestDropIncomplete(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.StagingApplication)
		keep   bool
	}{
		{"complete", func(a *models.StagingApplication) {}, true},
		{"missing income", func(a *models.StagingApplication) { a.AnnualIncome = nil }, false},
		{"non-numeric credit score", func(a *models.StagingApplication) { a.CreditScore = str("seven hundred") }, false},
		{"blank loan amount", func(a *models.StagingApplication) { a.LoanAmount = str("  ") }, false},
		{"missing name", func(a *models.StagingApplication) { a.ClientName = nil }, false},
		{"empty name", func(a *models.StagingApplication) { a.ClientName = str("") }, false},
		{"missing optional phone", func(a *models.StagingApplication) { a.Phone = nil }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := stagingRow(1, "AB123")
			tt.mutate(&row)

			rows, removed := DropIncomplete(ParseRows([]models.StagingApplication{row}))

			if tt.keep {
				assert.Len(t, rows, 1)
				assert.Equal(t, 0, removed)
			} else {
				assert.Empty(t, rows)
				assert.Equal(t, 1, removed)
			}
		})
	}
}

func TestFilterRanges(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.StagingApplication)
		keep   bool
	}{
		{"credit 850 kept", func(a *models.StagingApplication) { a.CreditScore = str("850") }, true},
		{"credit 851 removed", func(a *models.StagingApplication) { a.CreditScore = str("851") }, false},
		{"credit 300 kept", func(a *models.StagingApplication) { a.CreditScore = str("300") }, true},
		{"credit 299 removed", func(a *models.StagingApplication) { a.CreditScore = str("299") }, false},
		{"zero income removed", func(a *models.StagingApplication) { a.AnnualIncome = str("0") }, false},
		{"negative loan removed", func(a *models.StagingApplication) { a.LoanAmount = str("-5") }, false},
		{"zero rate removed", func(a *models.StagingApplication) { a.InterestRate = str("0") }, false},
		{"absent rate removed", func(a *models.StagingApplication) { a.InterestRate = nil }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := stagingRow(1, "AB123")
			tt.mutate(&row)

			rows, removed := FilterRanges(ParseRows([]models.StagingApplication{row}), 300, 850)

			if tt.keep {
				assert.Len(t, rows, 1)
			} else {
				assert.Empty(t, rows)
				assert.Equal(t, 1, removed)
			}
		})
	}
}

func TestRemoveOutliers_SingleExtremeIncome(t *testing.T) {
	apps := make([]models.StagingApplication, 0, 100)
	for i := 0; i < 99; i++ {
		a := stagingRow(int64(i+1), fmt.Sprintf("C%03d", i))
		a.AnnualIncome = str(fmt.Sprintf("%d", 49000+(i%3)*1000))
		apps = append(apps, a)
	}
	extreme := stagingRow(100, "C999")
	extreme.AnnualIncome = str("10000000")
	apps = append(apps, extreme)

	rows, removed := RemoveOutliers(ParseRows(apps), ColumnAnnualIncome)

	assert.Equal(t, 1, removed)
	require.Len(t, rows, 99)
	for _, r := range rows {
		assert.NotEqual(t, int64(100), r.Source.ID)
	}
}

func TestRemoveOutliers_Empty(t *testing.T) {
	rows, removed := RemoveOutliers(nil, ColumnLoanAmount)
	assert.Empty(t, rows)
	assert.Equal(t, 0, removed)
}

// ==========================
// Handler Tests
// ==========================

func TestHandler_Execute_StatsBalance(t *testing.T) {
	dup := stagingRow(2, "AB001")
	incomplete := stagingRow(3, "AB003")
	incomplete.LoanAmount = str("abc")
	badCredit := stagingRow(4, "AB004")
	badCredit.CreditScore = str("851")

	input := &Input{Applications: []models.StagingApplication{
		stagingRow(1, "AB001"), dup, incomplete, badCredit, stagingRow(5, "AB005"),
	}}

	out := newTestHandler(t).Execute(input)

	assert.Equal(t, []int64{1, 5}, stagingIDs(out.Applications))
	assert.Equal(t, []int64{2, 3, 4}, out.Rejected)
	assert.Equal(t, 5, out.Stats.Initial)
	assert.Equal(t, 2, out.Stats.Final)
	assert.Equal(t, 1, out.Stats.Removed[models.RuleDuplicates])
	assert.Equal(t, 1, out.Stats.Removed[models.RuleIncomplete])
	assert.Equal(t, 1, out.Stats.Removed[models.RuleInvalidRange])
	assert.Equal(t, 0, out.Stats.Removed[models.RuleOutliers])
	assert.Equal(t, out.Stats.Initial, out.Stats.Final+out.Stats.TotalRemoved())
}

func TestHandler_Execute_OutlierColumnsApplySequentially(t *testing.T) {
	apps := make([]models.StagingApplication, 0, 101)
	for i := 0; i < 99; i++ {
		a := stagingRow(int64(i+1), fmt.Sprintf("C%03d", i))
		a.AnnualIncome = str(fmt.Sprintf("%d", 50000+(i%2)*1000))
		a.LoanAmount = str(fmt.Sprintf("%d", 20000+(i%2)*500))
		apps = append(apps, a)
	}
	rich := stagingRow(100, "RICH")
	rich.AnnualIncome = str("9000000")
	bigLoan := stagingRow(101, "LOAN")
	bigLoan.LoanAmount = str("5000000")
	apps = append(apps, rich, bigLoan)

	out := newTestHandler(t).Execute(&Input{Applications: apps})

	assert.Equal(t, 99, out.Stats.Final)
	assert.Equal(t, 1, out.Stats.OutliersByColumn[ColumnAnnualIncome])
	assert.Equal(t, 1, out.Stats.OutliersByColumn[ColumnLoanAmount])
	assert.Equal(t, 2, out.Stats.Removed[models.RuleOutliers])
	assert.Equal(t, out.Stats.Initial, out.Stats.Final+out.Stats.TotalRemoved())
}

func TestHandler_Execute_EverythingRemovedIsNotAnError(t *testing.T) {
	a := stagingRow(1, "AB001")
	a.CreditScore = str("900")

	out := newTestHandler(t).Execute(&Input{Applications: []models.StagingApplication{a}})

	assert.Empty(t, out.Applications)
	assert.Equal(t, []int64{1}, out.Rejected)
	assert.Equal(t, 1, out.Stats.Initial)
	assert.Equal(t, 0, out.Stats.Final)
}

func TestHandler_Execute_Defaults(t *testing.T) {
	a := stagingRow(7, "AB007")
	a.Phone = nil
	a.LoanTerm = str("not-a-number")
	a.DebtToIncomeRatio = str("42.5")

	out := newTestHandler(t).Execute(&Input{Applications: []models.StagingApplication{a}})

	require.Len(t, out.Applications, 1)
	c := out.Applications[0]
	assert.Equal(t, models.DefaultPhone, c.Phone)
	assert.Equal(t, models.DefaultLoanTerm, c.LoanTerm)
	require.NotNil(t, c.DebtToIncomeRatio)
	assert.Equal(t, 42.5, *c.DebtToIncomeRatio)
	assert.Equal(t, 4.5, *c.InterestRate)
}

// internal/workers/etl/validate-applications/rules.go
package validateapplications

import (
	"math"
	"strconv"
	"strings"

	"loan-pipeline/internal/models"
	"loan-pipeline/internal/stats"
)

// Each rule is a pure filter: it keeps the input order and returns the
// survivors together with the number of rows it removed.

// ParseRows coerces the numeric text of each staging row and trims its
// national ID.
func ParseRows(apps []models.StagingApplication) []Row {
	rows := make([]Row, len(apps))
	for i, a := range apps {
		rows[i] = Row{
			Source:       a,
			CIN:          trimmed(a.CIN),
			AnnualIncome: parseNumber(a.AnnualIncome),
			CreditScore:  parseNumber(a.CreditScore),
			LoanAmount:   parseNumber(a.LoanAmount),
			InterestRate: parseNumber(a.InterestRate),
			DTI:          parseNumber(a.DebtToIncomeRatio),
			LoanTerm:     parseNumber(a.LoanTerm),
		}
	}
	return rows
}

func trimmed(raw *string) *string {
	if raw == nil {
		return nil
	}
	s := strings.TrimSpace(*raw)
	return &s
}

func parseNumber(raw *string) *float64 {
	if raw == nil {
		return nil
	}
	s := strings.TrimSpace(*raw)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Deduplicate keeps the first row for every national ID. Rows without an
// ID share a single key.
func Deduplicate(rows []Row) ([]Row, int) {
	seen := make(map[string]struct{}, len(rows))
	var nullSeen bool
	out := make([]Row, 0, len(rows))

	for _, r := range rows {
		if r.CIN == nil {
			if nullSeen {
				continue
			}
			nullSeen = true
			out = append(out, r)
			continue
		}
		if _, ok := seen[*r.CIN]; ok {
			continue
		}
		seen[*r.CIN] = struct{}{}
		out = append(out, r)
	}
	return out, len(rows) - len(out)
}

// DropIncomplete removes rows missing income, credit score, loan amount
// or client name. Non-numeric values count as missing.
func DropIncomplete(rows []Row) ([]Row, int) {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if r.AnnualIncome == nil || r.CreditScore == nil || r.LoanAmount == nil {
			continue
		}
		if r.Source.ClientName == nil || strings.TrimSpace(*r.Source.ClientName) == "" {
			continue
		}
		out = append(out, r)
	}
	return out, len(rows) - len(out)
}

// FilterRanges keeps rows whose credit score lies in [min, max] and whose
// income, loan amount and interest rate are positive.
func FilterRanges(rows []Row, minCredit, maxCredit float64) ([]Row, int) {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		credit := *r.CreditScore
		if credit < minCredit || credit > maxCredit {
			continue
		}
		if *r.AnnualIncome <= 0 || *r.LoanAmount <= 0 {
			continue
		}
		if r.InterestRate == nil || *r.InterestRate <= 0 {
			continue
		}
		out = append(out, r)
	}
	return out, len(rows) - len(out)
}

// RemoveOutliers drops rows whose value in column lies more than three
// population standard deviations from the mean of rows.
func RemoveOutliers(rows []Row, column string) ([]Row, int) {
	if len(rows) == 0 {
		return rows, 0
	}

	values := make([]float64, len(rows))
	for i, r := range rows {
		values[i] = r.column(column)
	}
	summary := stats.Describe(values)

	out := make([]Row, 0, len(rows))
	for i, r := range rows {
		if summary.IsOutlier(values[i]) {
			continue
		}
		out = append(out, r)
	}
	return out, len(rows) - len(out)
}

// toCleaned converts a surviving row, filling the optional defaults.
func toCleaned(r Row) models.CleanedApplication {
	a := r.Source

	phone := models.DefaultPhone
	if a.Phone != nil && strings.TrimSpace(*a.Phone) != "" {
		phone = *a.Phone
	}
	loanTerm := models.DefaultLoanTerm
	if r.LoanTerm != nil && *r.LoanTerm > 0 {
		loanTerm = int(*r.LoanTerm)
	}

	return models.CleanedApplication{
		StagingID:         a.ID,
		ClientName:        strings.TrimSpace(*a.ClientName),
		CIN:               deref(r.CIN),
		Phone:             phone,
		AnnualIncome:      *r.AnnualIncome,
		CreditScore:       *r.CreditScore,
		LoanAmount:        *r.LoanAmount,
		LoanTerm:          loanTerm,
		InterestRate:      r.InterestRate,
		DebtToIncomeRatio: r.DTI,
		Gender:            deref(a.Gender),
		MaritalStatus:     deref(a.MaritalStatus),
		EducationLevel:    deref(a.EducationLevel),
		EmploymentStatus:  deref(a.EmploymentStatus),
		LoanPurpose:       deref(a.LoanPurpose),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

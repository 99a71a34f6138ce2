// internal/workers/etl/validate-applications/models.go
package validateapplications

import "loan-pipeline/internal/models"

const (
	ColumnAnnualIncome = "annual_income"
	ColumnLoanAmount   = "loan_amount"
)

type Input struct {
	Applications []models.StagingApplication `json:"applications"`
}

type Output struct {
	Applications []models.CleanedApplication `json:"applications"`
	// Rejected lists the staging ids cleaning removed, in input order.
	Rejected     []int64                     `json:"rejected"`
	Stats        models.QualityStats         `json:"stats"`
}

// Row is a staging application with its numeric fields coerced.
// A nil pointer means the value was absent or not a number.
type Row struct {
	Source       models.StagingApplication
	CIN          *string
	AnnualIncome *float64
	CreditScore  *float64
	LoanAmount   *float64
	InterestRate *float64
	DTI          *float64
	LoanTerm     *float64
}

func (r Row) column(name string) float64 {
	switch name {
	case ColumnAnnualIncome:
		return *r.AnnualIncome
	case ColumnLoanAmount:
		return *r.LoanAmount
	}
	return 0
}

// internal/workers/etl/score-applications/features.go
package scoreapplications

import (
	"fmt"

	apperrors "loan-pipeline/internal/common/errors"
	"loan-pipeline/internal/models"
)

const (
	DefaultDebtToIncomeRatio = 30.0
	DefaultInterestRate      = 5.0
)

// FeatureCount is the length of the vector built by BuildFeatureVector.
const FeatureCount = 13

// trailingConstants are part of the layout the artifacts were trained
// against. They do not come from any input field.
var trailingConstants = [3]float64{1, 0, 1}

// BuildFeatureVector maps an application onto the fixed feature layout:
//
//	annual_income, debt_to_income_ratio, credit_score, loan_amount, interest_rate,
//	gender==Male, marital_status==Married, education_level==Graduate,
//	employment_status==Employed, loan_purpose==Business, 1, 0, 1
func BuildFeatureVector(a models.CleanedApplication) []float64 {
	dti := DefaultDebtToIncomeRatio
	if a.DebtToIncomeRatio != nil {
		dti = *a.DebtToIncomeRatio
	}
	rate := DefaultInterestRate
	if a.InterestRate != nil {
		rate = *a.InterestRate
	}

	v := make([]float64, 0, FeatureCount)
	v = append(v,
		a.AnnualIncome,
		dti,
		a.CreditScore,
		a.LoanAmount,
		rate,
		indicator(a.Gender == "Male"),
		indicator(a.MaritalStatus == "Married"),
		indicator(a.EducationLevel == "Graduate"),
		indicator(a.EmploymentStatus == "Employed"),
		indicator(a.LoanPurpose == "Business"),
	)
	return append(v, trailingConstants[:]...)
}

func indicator(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// CheckWidth verifies a vector of FeatureCount features can be fed to an
// artifact expecting width inputs.
func CheckWidth(width int) error {
	if width < FeatureCount {
		return apperrors.NewArtifactWidthMismatchError(fmt.Sprintf(
			"artifact expects %d features, feature layout has %d", width, FeatureCount))
	}
	return nil
}

// PadToWidth right-pads features with zeros up to width.
func PadToWidth(features []float64, width int) []float64 {
	if len(features) >= width {
		return features
	}
	padded := make([]float64, width)
	copy(padded, features)
	return padded
}

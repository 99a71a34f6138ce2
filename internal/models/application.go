// internal/models/application.go
package models

import "time"

const (
	StatusApproved = "Approved"
	StatusRejected = "Rejected"

	DefaultPhone    = "N/A"
	DefaultLoanTerm = 60
)

// StagingApplication is a raw intake row. Numeric fields are kept as the
// text the intake collaborator wrote; coercion happens during cleaning.
type StagingApplication struct {
	ID                int64     `json:"id"`
	ClientName        *string   `json:"clientName"`
	CIN               *string   `json:"cin"`
	Phone             *string   `json:"phone"`
	AnnualIncome      *string   `json:"annualIncome"`
	CreditScore       *string   `json:"creditScore"`
	LoanAmount        *string   `json:"loanAmount"`
	LoanTerm          *string   `json:"loanTerm"`
	InterestRate      *string   `json:"interestRate"`
	DebtToIncomeRatio *string   `json:"debtToIncomeRatio"`
	Gender            *string   `json:"gender"`
	MaritalStatus     *string   `json:"maritalStatus"`
	EducationLevel    *string   `json:"educationLevel"`
	EmploymentStatus  *string   `json:"employmentStatus"`
	LoanPurpose       *string   `json:"loanPurpose"`
	UploadedAt        time.Time `json:"uploadedAt"`
	Processed         bool      `json:"processed"`
}

// CleanedApplication is a staging row that survived every cleaning rule.
// DebtToIncomeRatio and InterestRate stay optional; feature building
// supplies their defaults.
type CleanedApplication struct {
	StagingID         int64    `json:"stagingId"`
	ClientName        string   `json:"clientName"`
	CIN               string   `json:"cin"`
	Phone             string   `json:"phone"`
	AnnualIncome      float64  `json:"annualIncome"`
	CreditScore       float64  `json:"creditScore"`
	LoanAmount        float64  `json:"loanAmount"`
	LoanTerm          int      `json:"loanTerm"`
	InterestRate      *float64 `json:"interestRate,omitempty"`
	DebtToIncomeRatio *float64 `json:"debtToIncomeRatio,omitempty"`
	Gender            string   `json:"gender"`
	MaritalStatus     string   `json:"maritalStatus"`
	EducationLevel    string   `json:"educationLevel"`
	EmploymentStatus  string   `json:"employmentStatus"`
	LoanPurpose       string   `json:"loanPurpose"`
}

// ScoredApplication is a cleaned row plus its decision.
type ScoredApplication struct {
	CleanedApplication
	Status       string  `json:"status"`
	RiskScore    float64 `json:"riskScore"`
	ModelVersion string  `json:"modelVersion"`
}

// ProductionRecord is a row of the production ledger.
type ProductionRecord struct {
	ID           int64     `json:"id"`
	StagingID    *int64    `json:"stagingId,omitempty"`
	ClientName   string    `json:"clientName"`
	CIN          string    `json:"cin"`
	Phone        string    `json:"phone"`
	AnnualIncome float64   `json:"annualIncome"`
	CreditScore  float64   `json:"creditScore"`
	LoanAmount   float64   `json:"loanAmount"`
	LoanTerm     int       `json:"loanTerm"`
	InterestRate *float64  `json:"interestRate,omitempty"`
	RiskScore    float64   `json:"riskScore"`
	Status       string    `json:"status"`
	ModelVersion string    `json:"modelVersion,omitempty"`
	DateAdded    time.Time `json:"dateAdded"`
}

// ProductionSummary aggregates the production ledger for dashboards.
type ProductionSummary struct {
	Total           int     `json:"total"`
	Approved        int     `json:"approved"`
	Rejected        int     `json:"rejected"`
	TotalLoanAmount float64 `json:"totalLoanAmount"`
	HighRisk        int     `json:"highRisk"`
	RiskThreshold   float64 `json:"riskThreshold"`
}

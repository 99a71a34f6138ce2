package scoreapplications

import (
	"context"
	"errors"
	"testing"

	apperrors "loan-pipeline/internal/common/errors"
	"loan-pipeline/internal/common/logger"
	"loan-pipeline/internal/models"
	"loan-pipeline/internal/scoring"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func f64(v float64) *float64 { return &v }

// identityNormalizer passes features through unchanged.
type identityNormalizer struct{ width int }

func (n identityNormalizer) ExpectedWidth() int { return n.width }
func (n identityNormalizer) Transform(x []float64) ([]float64, error) {
	if len(x) != n.width {
		return nil, errors.New("width")
	}
	return x, nil
}

// scriptedClassifier returns a fixed prediction, or fails for one income value.
type scriptedClassifier struct {
	width      int
	pred       scoring.Prediction
	failIncome float64
}

func (c *scriptedClassifier) ExpectedWidth() int { return c.width }
func (c *scriptedClassifier) Predict(x []float64) (scoring.Prediction, error) {
	if c.failIncome != 0 && x[0] == c.failIncome {
		return scoring.Prediction{}, errors.New("predict_proba failed")
	}
	return c.pred, nil
}

func cleanedRow(id int64, income float64) models.CleanedApplication {
	return models.CleanedApplication{
		StagingID:        id,
		ClientName:       "Client",
		CIN:              "AB123",
		Phone:            models.DefaultPhone,
		AnnualIncome:     income,
		CreditScore:      700,
		LoanAmount:       200000,
		LoanTerm:         60,
		InterestRate:     f64(4.5),
		Gender:           "Female",
		MaritalStatus:    "Married",
		EducationLevel:   "Graduate",
		EmploymentStatus: "Employed",
		LoanPurpose:      "Business",
	}
}

func newTestHandler(t *testing.T) *Handler {
	return NewHandler(&Config{Workers: 3}, logger.NewTestLogger(t))
}

// ==========================
// Feature Vector Tests
// ==========================

func TestBuildFeatureVector_ExactLayout(t *testing.T) {
	app := models.CleanedApplication{
		AnnualIncome:     500000,
		CreditScore:      700,
		LoanAmount:       200000,
		Gender:           "Male",
		MaritalStatus:    "Single",
		EducationLevel:   "Graduate",
		EmploymentStatus: "Employed",
		LoanPurpose:      "Personal",
	}

	got := BuildFeatureVector(app)

	assert.Equal(t, []float64{500000, 30, 700, 200000, 5.0, 1, 0, 1, 1, 0, 1, 0, 1}, got)
	assert.Len(t, got, FeatureCount)
}

func TestBuildFeatureVector_PresentOptionals(t *testing.T) {
	app := cleanedRow(1, 80000)
	app.DebtToIncomeRatio = f64(12.5)

	got := BuildFeatureVector(app)

	assert.Equal(t, []float64{80000, 12.5, 700, 200000, 4.5, 0, 1, 1, 1, 1, 1, 0, 1}, got)
}

func TestPadToWidth(t *testing.T) {
	base := BuildFeatureVector(cleanedRow(1, 1000))

	padded := PadToWidth(base, 16)
	assert.Len(t, padded, 16)
	assert.Equal(t, base, padded[:FeatureCount])
	assert.Equal(t, []float64{0, 0, 0}, padded[FeatureCount:])

	assert.Equal(t, base, PadToWidth(base, FeatureCount))
}

func TestCheckWidth(t *testing.T) {
	assert.NoError(t, CheckWidth(13))
	assert.NoError(t, CheckWidth(20))

	err := CheckWidth(12)
	stdErr, ok := apperrors.AsStandard(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeArtifactWidthMismatch, stdErr.Code)
}

// ==========================
// Decision Tests
// ==========================

func TestDecide(t *testing.T) {
	tests := []struct {
		name       string
		pred       scoring.Prediction
		wantStatus string
		wantRisk   float64
	}{
		{"label 0 approves even with high reject mass", scoring.Prediction{Label: 0, Probabilities: []float64{0.1, 0.9}}, models.StatusApproved, 90},
		{"label 1 rejects", scoring.Prediction{Label: 1, Probabilities: []float64{0.26543, 0.73457}}, models.StatusRejected, 73.46},
		{"any non-zero label rejects", scoring.Prediction{Label: 7, Probabilities: []float64{0.99, 0.01}}, models.StatusRejected, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, risk, err := Decide(tt.pred)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantRisk, risk)
		})
	}
}

func TestDecide_IncompleteProbabilities(t *testing.T) {
	_, _, err := Decide(scoring.Prediction{Label: 0, Probabilities: []float64{1}})
	assert.ErrorIs(t, err, ErrIncompleteProbabilities)
}

// ==========================
// Handler Tests
// ==========================

func TestHandler_Execute_PadsAndScores(t *testing.T) {
	clf := &scriptedClassifier{width: 15, pred: scoring.Prediction{Label: 0, Probabilities: []float64{0.8, 0.2}}}
	input := &Input{
		Applications: []models.CleanedApplication{cleanedRow(1, 1000), cleanedRow(2, 2000)},
		Artifacts:    &scoring.Artifacts{Version: "v7", Normalizer: identityNormalizer{width: 15}, Classifier: clf},
	}

	out, err := newTestHandler(t).Execute(context.Background(), input)

	require.NoError(t, err)
	require.Len(t, out.Applications, 2)
	assert.Equal(t, int64(1), out.Applications[0].StagingID)
	assert.Equal(t, int64(2), out.Applications[1].StagingID)
	assert.Equal(t, models.StatusApproved, out.Applications[0].Status)
	assert.Equal(t, 20.0, out.Applications[0].RiskScore)
	assert.Equal(t, "v7", out.Applications[0].ModelVersion)
	assert.Equal(t, 2, out.Approved)
	assert.Equal(t, 0, out.Failed)
}

func TestHandler_Execute_RowFailureDoesNotAbort(t *testing.T) {
	clf := &scriptedClassifier{
		width:      13,
		pred:       scoring.Prediction{Label: 1, Probabilities: []float64{0.3, 0.7}},
		failIncome: 2000,
	}
	input := &Input{
		Applications: []models.CleanedApplication{cleanedRow(1, 1000), cleanedRow(2, 2000), cleanedRow(3, 3000)},
		Artifacts:    &scoring.Artifacts{Normalizer: identityNormalizer{width: 13}, Classifier: clf},
	}

	out, err := newTestHandler(t).Execute(context.Background(), input)

	require.NoError(t, err)
	assert.Equal(t, 1, out.Failed)
	assert.Equal(t, 2, out.Rejected)
	require.Len(t, out.Applications, 2)
	assert.Equal(t, int64(1), out.Applications[0].StagingID)
	assert.Equal(t, int64(3), out.Applications[1].StagingID)
}

func TestHandler_Execute_NarrowArtifactIsFatal(t *testing.T) {
	input := &Input{
		Applications: []models.CleanedApplication{cleanedRow(1, 1000)},
		Artifacts: &scoring.Artifacts{
			Normalizer: identityNormalizer{width: 10},
			Classifier: &scriptedClassifier{width: 10},
		},
	}

	_, err := newTestHandler(t).Execute(context.Background(), input)

	stdErr, ok := apperrors.AsStandard(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeArtifactWidthMismatch, stdErr.Code)
}

func TestHandler_Execute_MissingArtifacts(t *testing.T) {
	_, err := newTestHandler(t).Execute(context.Background(), &Input{})
	assert.ErrorIs(t, err, ErrMissingArtifacts)
}

func TestHandler_Execute_WithRealArtifacts(t *testing.T) {
	width := FeatureCount
	scaler := &scoring.StandardScaler{NFeaturesIn: width, Mean: make([]float64, width), Scale: make([]float64, width)}
	coef := make([]float64, width)
	coef[2] = 0.01 // credit score pushes towards the reject class
	clf := &scoring.LogisticRegression{NFeaturesIn: width, Classes: []int{0, 1}, Coef: coef, Intercept: -7}

	art, err := scoring.NewArtifacts("lr-1", scaler, clf)
	require.NoError(t, err)

	out, err := newTestHandler(t).Execute(context.Background(), &Input{
		Applications: []models.CleanedApplication{cleanedRow(1, 1000)},
		Artifacts:    art,
	})

	require.NoError(t, err)
	require.Len(t, out.Applications, 1)
	// z = -7 + 0.01*700 = 0, a tie resolved to class 0
	assert.Equal(t, models.StatusApproved, out.Applications[0].Status)
	assert.Equal(t, 50.0, out.Applications[0].RiskScore)
}

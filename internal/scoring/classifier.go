package scoring

import (
	"fmt"
	"math"

	apperrors "loan-pipeline/internal/common/errors"
	"loan-pipeline/internal/common/validation"
)

var logisticSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["kind", "n_features_in", "classes", "coef", "intercept"],
	"properties": {
		"kind": {"type": "string", "enum": ["logistic_regression"]},
		"n_features_in": {"type": "integer", "minimum": 1},
		"classes": {"type": "array", "items": {"type": "integer"}, "minItems": 2, "maxItems": 2},
		"coef": {"type": "array", "items": {"type": "number"}},
		"intercept": {"type": "number"}
	}
}`)

// LogisticRegression is a binary logistic classifier. Probabilities are
// ordered like Classes; Probabilities[1] belongs to Classes[1].
type LogisticRegression struct {
	NFeaturesIn int       `json:"n_features_in"`
	Classes     []int     `json:"classes"`
	Coef        []float64 `json:"coef"`
	Intercept   float64   `json:"intercept"`
}

// LoadLogisticRegression reads a logistic_regression document.
func LoadLogisticRegression(path string) (*LogisticRegression, error) {
	var c LogisticRegression
	if err := readDocument(path, logisticSchema, &c); err != nil {
		return nil, err
	}
	if len(c.Coef) != c.NFeaturesIn {
		return nil, apperrors.NewArtifactSchemaInvalidError(path, fmt.Sprintf(
			"coef length %d does not match n_features_in %d", len(c.Coef), c.NFeaturesIn))
	}
	return &c, nil
}

func (c *LogisticRegression) ExpectedWidth() int {
	return c.NFeaturesIn
}

func (c *LogisticRegression) Predict(features []float64) (Prediction, error) {
	if len(features) != c.NFeaturesIn {
		return Prediction{}, fmt.Errorf("classifier expects %d features, got %d", c.NFeaturesIn, len(features))
	}

	z := c.Intercept
	for i, x := range features {
		z += c.Coef[i] * x
	}
	if math.IsNaN(z) || math.IsInf(z, 0) {
		return Prediction{}, fmt.Errorf("decision function is not finite")
	}

	p1 := 1 / (1 + math.Exp(-z))
	probs := []float64{1 - p1, p1}

	// ties go to the first class
	label := c.Classes[0]
	if probs[1] > probs[0] {
		label = c.Classes[1]
	}
	return Prediction{Label: label, Probabilities: probs}, nil
}

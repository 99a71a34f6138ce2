package scoring

import (
	"fmt"

	apperrors "loan-pipeline/internal/common/errors"
	"loan-pipeline/internal/common/validation"
)

var scalerSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["kind", "n_features_in", "mean", "scale"],
	"properties": {
		"kind": {"type": "string", "enum": ["standard_scaler"]},
		"n_features_in": {"type": "integer", "minimum": 1},
		"mean": {"type": "array", "items": {"type": "number"}},
		"scale": {"type": "array", "items": {"type": "number"}}
	}
}`)

// StandardScaler computes (x - mean) / scale per feature.
type StandardScaler struct {
	NFeaturesIn int       `json:"n_features_in"`
	Mean        []float64 `json:"mean"`
	Scale       []float64 `json:"scale"`
}

// LoadStandardScaler reads a standard_scaler document.
func LoadStandardScaler(path string) (*StandardScaler, error) {
	var s StandardScaler
	if err := readDocument(path, scalerSchema, &s); err != nil {
		return nil, err
	}
	if len(s.Mean) != s.NFeaturesIn || len(s.Scale) != s.NFeaturesIn {
		return nil, apperrors.NewArtifactSchemaInvalidError(path, fmt.Sprintf(
			"mean/scale lengths %d/%d do not match n_features_in %d",
			len(s.Mean), len(s.Scale), s.NFeaturesIn))
	}
	return &s, nil
}

func (s *StandardScaler) ExpectedWidth() int {
	return s.NFeaturesIn
}

func (s *StandardScaler) Transform(features []float64) ([]float64, error) {
	if len(features) != s.NFeaturesIn {
		return nil, fmt.Errorf("normalizer expects %d features, got %d", s.NFeaturesIn, len(features))
	}
	out := make([]float64, len(features))
	for i, x := range features {
		scale := s.Scale[i]
		if scale == 0 {
			scale = 1
		}
		out[i] = (x - s.Mean[i]) / scale
	}
	return out, nil
}

// Package scoring loads the versioned classifier and normalizer artifacts
// the batch job scores applications with.
package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	apperrors "loan-pipeline/internal/common/errors"
	"loan-pipeline/internal/common/validation"

	"gopkg.in/yaml.v3"
)

// Normalizer scales a feature vector before classification.
type Normalizer interface {
	ExpectedWidth() int
	Transform(features []float64) ([]float64, error)
}

// Prediction is a classifier's output for one row.
type Prediction struct {
	Label         int       `json:"label"`
	Probabilities []float64 `json:"probabilities"`
}

// Classifier maps a normalized feature vector to a label and class probabilities.
type Classifier interface {
	ExpectedWidth() int
	Predict(features []float64) (Prediction, error)
}

// Artifacts is an immutable, paired classifier and normalizer.
type Artifacts struct {
	Version    string
	Normalizer Normalizer
	Classifier Classifier
}

// Manifest names the artifact files of one model version. Relative paths
// are resolved against the manifest's directory.
type Manifest struct {
	Version    string `yaml:"version"`
	Classifier string `yaml:"classifier"`
	Normalizer string `yaml:"normalizer"`
}

// Source supplies the artifacts for one job invocation.
type Source interface {
	Load(ctx context.Context) (*Artifacts, error)
}

// FileSource reads artifacts from a manifest on disk each time Load is called.
type FileSource struct {
	ManifestPath string
}

func (s FileSource) Load(ctx context.Context) (*Artifacts, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return LoadFromManifest(s.ManifestPath)
}

// StaticSource always returns the same artifacts.
type StaticSource struct {
	Artifacts *Artifacts
}

func (s StaticSource) Load(ctx context.Context) (*Artifacts, error) {
	return s.Artifacts, nil
}

// LoadManifest reads and checks an artifact manifest.
func LoadManifest(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewArtifactLoadFailedError(path, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, apperrors.NewArtifactSchemaInvalidError(path, err.Error())
	}

	var missing []string
	if m.Version == "" {
		missing = append(missing, "version")
	}
	if m.Classifier == "" {
		missing = append(missing, "classifier")
	}
	if m.Normalizer == "" {
		missing = append(missing, "normalizer")
	}
	if len(missing) > 0 {
		return nil, apperrors.NewArtifactSchemaInvalidError(path, "missing "+strings.Join(missing, ", "))
	}

	dir := filepath.Dir(path)
	if !filepath.IsAbs(m.Classifier) {
		m.Classifier = filepath.Join(dir, m.Classifier)
	}
	if !filepath.IsAbs(m.Normalizer) {
		m.Normalizer = filepath.Join(dir, m.Normalizer)
	}
	return &m, nil
}

// LoadFromManifest loads both artifacts named by the manifest and checks
// they agree on the feature width.
func LoadFromManifest(path string) (*Artifacts, error) {
	m, err := LoadManifest(path)
	if err != nil {
		return nil, err
	}

	normalizer, err := LoadStandardScaler(m.Normalizer)
	if err != nil {
		return nil, err
	}
	classifier, err := LoadLogisticRegression(m.Classifier)
	if err != nil {
		return nil, err
	}

	return NewArtifacts(m.Version, normalizer, classifier)
}

// NewArtifacts pairs a normalizer and classifier. Their widths must match.
func NewArtifacts(version string, normalizer Normalizer, classifier Classifier) (*Artifacts, error) {
	if normalizer.ExpectedWidth() != classifier.ExpectedWidth() {
		return nil, apperrors.NewArtifactWidthMismatchError(fmt.Sprintf(
			"normalizer expects %d features, classifier expects %d",
			normalizer.ExpectedWidth(), classifier.ExpectedWidth()))
	}
	return &Artifacts{
		Version:    version,
		Normalizer: normalizer,
		Classifier: classifier,
	}, nil
}

// readDocument reads a JSON artifact, validates it and decodes it into out.
func readDocument(path string, schema *validation.Schema, out interface{}) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return apperrors.NewArtifactLoadFailedError(path, err)
	}

	if res := schema.Validate(raw); !res.Valid {
		return apperrors.NewArtifactSchemaInvalidError(path, strings.Join(res.GetErrorMessages(), "; "))
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return apperrors.NewArtifactSchemaInvalidError(path, err.Error())
	}
	return nil
}

package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"exohunt/internal/features"
	"exohunt/internal/fileutil"
	"exohunt/internal/logging"
	"exohunt/internal/services"
)

// FormatVersion identifies the artifact layout.
const FormatVersion = 1

// Metadata records how a model was trained.
type Metadata struct {
	Seed        uint64    `json:"seed"`
	NEstimators int       `json:"n_estimators"`
	Accuracy    float64   `json:"accuracy"`
	TrainRows   int       `json:"train_rows"`
	TestRows    int       `json:"test_rows"`
	TrainedAt   time.Time `json:"trained_at"`
}

// Model is a fitted imputer, scaler and forest together with the feature
// schema they were fitted on.
type Model struct {
	Version  int             `json:"format_version"`
	Schema   features.Schema `json:"schema"`
	Classes  []string        `json:"classes"`
	Imputer  Imputer         `json:"imputer"`
	Scaler   Scaler          `json:"scaler"`
	Forest   Forest          `json:"forest"`
	Metadata Metadata        `json:"metadata"`
}

// Predict returns the class label for x, given in schema order. Missing
// values are imputed with the training means.
func (m *Model) Predict(x []float64) (string, error) {
	if m == nil {
		return "", services.Wrap(services.ErrClassifierUnavailable, "classify", "predict", "no model loaded", nil)
	}
	if len(x) != m.Schema.Len() {
		return "", services.Wrap(services.ErrValidation, "classify", "predict",
			fmt.Sprintf("feature vector has %d values, model expects %d", len(x), m.Schema.Len()), nil)
	}
	return m.Classes[m.predictIndex(m.Imputer.Apply(x))], nil
}

func (m *Model) predictIndex(x []float64) int {
	return m.Forest.Predict(m.Scaler.Transform(x), len(m.Classes))
}

// Save writes the artifact atomically.
func (m *Model) Save(path string) error {
	m.Version = FormatVersion
	return fileutil.WriteAtomic(path, 0o644, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		if err := enc.Encode(m); err != nil {
			return fmt.Errorf("encode classifier: %w", err)
		}
		return nil
	})
}

// Load reads an artifact and rejects it unless its schema matches the
// feature schema of this build.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrClassifierUnavailable, "classify", "load", "model file not found: "+path, err)
		}
		return nil, services.Wrap(services.ErrClassifierUnavailable, "classify", "load", path, err)
	}
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, services.Wrap(services.ErrClassifierUnavailable, "classify", "decode", path, err)
	}
	if m.Version != FormatVersion {
		return nil, services.Wrap(services.ErrClassifierUnavailable, "classify", "load",
			fmt.Sprintf("unsupported artifact version %d", m.Version), nil)
	}
	expected, _ := features.NewSchema(nil)
	if !m.Schema.Compatible(expected) {
		return nil, services.Wrap(services.ErrClassifierUnavailable, "classify", "load",
			fmt.Sprintf("artifact features %v do not match %v", m.Schema.Names(), expected.Names()), nil)
	}
	if err := m.validate(); err != nil {
		return nil, services.Wrap(services.ErrClassifierUnavailable, "classify", "load", path, err)
	}
	return &m, nil
}

func (m *Model) validate() error {
	n := m.Schema.Len()
	if len(m.Classes) < 2 {
		return fmt.Errorf("artifact has %d classes", len(m.Classes))
	}
	if len(m.Scaler.Mean) != n || len(m.Scaler.Scale) != n || len(m.Imputer.Means) != n {
		return fmt.Errorf("scaler or imputer width does not match %d features", n)
	}
	if len(m.Forest.Trees) == 0 {
		return fmt.Errorf("artifact has no trees")
	}
	for ti, t := range m.Forest.Trees {
		if len(t.Nodes) == 0 {
			return fmt.Errorf("tree %d is empty", ti)
		}
		for ni, node := range t.Nodes {
			if node.Feature < 0 {
				if len(node.Value) != len(m.Classes) {
					return fmt.Errorf("tree %d leaf %d has %d class weights", ti, ni, len(node.Value))
				}
				continue
			}
			if node.Feature >= n || node.Left <= ni || node.Right <= ni || node.Left >= len(t.Nodes) || node.Right >= len(t.Nodes) {
				return fmt.Errorf("tree %d node %d is malformed", ti, ni)
			}
		}
	}
	return nil
}

// LoadOptional loads the artifact for the analysis pipeline. A missing or
// unreadable artifact is logged once and yields a nil model, which
// classifies every record as N/A.
func LoadOptional(path string, logger *slog.Logger) *Model {
	model, err := Load(path)
	if err != nil {
		logging.WarnWithContext(logging.NewComponentLogger(logger, "classifier"), "classifier unavailable", "classifier_unavailable",
			logging.String("model_path", path),
			logging.Error(err),
			logging.String(logging.FieldErrorCategory, services.Category(err)),
			logging.String(logging.FieldImpact, "records classified as N/A"),
		)
		return nil
	}
	return model
}

// Classify labels a record. A nil model or a failed fit yields N/A.
func Classify(m *Model, rec features.Record) string {
	if m == nil || rec.Failed() {
		return features.NotAvailable
	}
	label, err := m.Predict(m.Schema.Vector(rec))
	if err != nil {
		return features.NotAvailable
	}
	return label
}

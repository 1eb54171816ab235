package features

import (
	"fmt"
	"math"

	"exohunt/internal/config"
)

// Feature is one classifier input: its name, unit and the training-table
// column it is read from.
type Feature struct {
	Name   string `json:"name"`
	Unit   string `json:"unit"`
	Column string `json:"column"`
}

// Schema is the ordered list of classifier inputs.
type Schema struct {
	Features []Feature `json:"features"`
}

var baseFeatures = []Feature{
	{Name: "period", Unit: "days"},
	{Name: "depth", Unit: "ppm"},
	{Name: "duration", Unit: "hours"},
	{Name: "inclination", Unit: "deg"},
	{Name: "rp_rs", Unit: ""},
	{Name: "snr", Unit: ""},
}

// DefaultColumns are the training-table columns of the exoplanet archive
// export the classifier was first trained on.
var DefaultColumns = []string{
	"OrbitalPeriod[days",
	"TransitDepth[ppm",
	"TransitDuration[hrs",
	"ImpactParamete",
	"PlanetaryRadius[Earthradii",
	"TransitSignal-to-Nois",
}

// NewSchema pairs the fixed feature list with training columns. A nil
// columns slice selects DefaultColumns.
func NewSchema(columns []string) (Schema, error) {
	if columns == nil {
		columns = DefaultColumns
	}
	if len(columns) != len(baseFeatures) {
		return Schema{}, fmt.Errorf("schema needs %d feature columns, got %d", len(baseFeatures), len(columns))
	}
	s := Schema{Features: make([]Feature, len(baseFeatures))}
	for i, f := range baseFeatures {
		f.Column = columns[i]
		s.Features[i] = f
	}
	return s, nil
}

// SchemaFromConfig reads classifier.feature_columns.
func SchemaFromConfig(cfg *config.Config) (Schema, error) {
	return NewSchema(cfg.Classifier.FeatureColumns)
}

// Len is the number of features.
func (s Schema) Len() int { return len(s.Features) }

// Names lists feature names in order.
func (s Schema) Names() []string {
	out := make([]string, len(s.Features))
	for i, f := range s.Features {
		out[i] = f.Name
	}
	return out
}

// Columns lists training-table columns in order.
func (s Schema) Columns() []string {
	out := make([]string, len(s.Features))
	for i, f := range s.Features {
		out[i] = f.Column
	}
	return out
}

// Compatible reports whether other has the same names and units in the same
// order. Training columns do not affect compatibility.
func (s Schema) Compatible(other Schema) bool {
	if len(s.Features) != len(other.Features) {
		return false
	}
	for i := range s.Features {
		if s.Features[i].Name != other.Features[i].Name || s.Features[i].Unit != other.Features[i].Unit {
			return false
		}
	}
	return true
}

// Vector converts a record into classifier inputs: depth in ppm and duration
// in hours.
func (s Schema) Vector(r Record) []float64 {
	out := make([]float64, len(s.Features))
	for i, f := range s.Features {
		out[i] = r.value(f.Name)
	}
	return out
}

func (r Record) value(name string) float64 {
	switch name {
	case "period":
		return r.Period
	case "depth":
		return r.Depth * 1e6
	case "duration":
		return r.Duration * 24
	case "inclination":
		return r.Inc
	case "rp_rs":
		return r.RpRs
	case "snr":
		return r.SNR
	default:
		return math.NaN()
	}
}

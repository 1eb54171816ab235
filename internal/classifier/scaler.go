package classifier

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Scaler standardises each feature to zero mean and unit variance using the
// population standard deviation. Constant features keep a scale of 1.
type Scaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// FitScaler computes per-column statistics of X.
func FitScaler(X [][]float64) (Scaler, error) {
	if len(X) == 0 {
		return Scaler{}, fmt.Errorf("scaler: no rows")
	}
	cols := len(X[0])
	s := Scaler{Mean: make([]float64, cols), Scale: make([]float64, cols)}
	column := make([]float64, len(X))
	for j := 0; j < cols; j++ {
		for i, row := range X {
			column[i] = row[j]
		}
		mean, std := stat.PopMeanStdDev(column, nil)
		if math.IsNaN(mean) {
			return Scaler{}, fmt.Errorf("scaler: column %d has non-finite values", j)
		}
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		s.Mean[j], s.Scale[j] = mean, std
	}
	return s, nil
}

// Transform returns a standardised copy of x.
func (s Scaler) Transform(x []float64) []float64 {
	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = (v - s.Mean[j]) / s.Scale[j]
	}
	return out
}

// TransformAll standardises every row.
func (s Scaler) TransformAll(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		out[i] = s.Transform(row)
	}
	return out
}

// Imputer replaces missing values with per-column means.
type Imputer struct {
	Means []float64 `json:"means"`
}

// FitImputer computes the mean of the finite values in each column. A column
// with no finite values imputes 0.
func FitImputer(X [][]float64) Imputer {
	if len(X) == 0 {
		return Imputer{}
	}
	cols := len(X[0])
	imp := Imputer{Means: make([]float64, cols)}
	for j := 0; j < cols; j++ {
		var sum float64
		var n int
		for _, row := range X {
			if v := row[j]; !math.IsNaN(v) && !math.IsInf(v, 0) {
				sum += v
				n++
			}
		}
		if n > 0 {
			imp.Means[j] = sum / float64(n)
		}
	}
	return imp
}

// Apply returns x with missing values filled.
func (imp Imputer) Apply(x []float64) []float64 {
	out := append([]float64(nil), x...)
	for j, v := range out {
		if (math.IsNaN(v) || math.IsInf(v, 0)) && j < len(imp.Means) {
			out[j] = imp.Means[j]
		}
	}
	return out
}

// ApplyAll fills every row.
func (imp Imputer) ApplyAll(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		out[i] = imp.Apply(row)
	}
	return out
}

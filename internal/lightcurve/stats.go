package lightcurve

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Median returns the median of values, averaging the two central elements for
// even lengths. It returns NaN for an empty slice.
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

const maxClipIterations = 5

// SigmaClip returns a mask that is true for values within sigma population
// standard deviations of the median, iterating until the mask is stable.
// Non-finite values are always clipped.
func SigmaClip(values []float64, sigma float64) []bool {
	return SigmaClipBounds(values, sigma, sigma)
}

// SigmaClipBounds is SigmaClip with separate thresholds below and above the
// median. An infinite bound disables clipping on that side.
func SigmaClipBounds(values []float64, lower, upper float64) []bool {
	keep := make([]bool, len(values))
	for i, v := range values {
		keep[i] = finite(v)
	}
	for iter := 0; iter < maxClipIterations; iter++ {
		kept := make([]float64, 0, len(values))
		for i, v := range values {
			if keep[i] {
				kept = append(kept, v)
			}
		}
		if len(kept) < 2 {
			return keep
		}
		center := Median(kept)
		_, std := stat.PopMeanStdDev(kept, nil)
		if std == 0 {
			return keep
		}
		changed := false
		for i, v := range values {
			if !keep[i] {
				continue
			}
			if v-center > upper*std || center-v > lower*std {
				keep[i] = false
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return keep
}

// medianCadence is the median positive spacing between consecutive samples.
func medianCadence(time []float64) float64 {
	diffs := make([]float64, 0, len(time))
	for i := 1; i < len(time); i++ {
		if d := time[i] - time[i-1]; d > 0 {
			diffs = append(diffs, d)
		}
	}
	return Median(diffs)
}

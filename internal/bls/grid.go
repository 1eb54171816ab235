package bls

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"exohunt/internal/config"
	"exohunt/internal/lightcurve"
)

// Grid strategies.
const (
	StrategyLinear = "linear"
	StrategyArray  = "array"
	StrategyAuto   = "auto"
)

const maxAutoPeriods = 200000

// GridOptions holds the parameters of every strategy.
type GridOptions struct {
	MinPeriod       float64
	MaxPeriod       float64
	NumPeriods      int
	ArrayStart      float64
	ArrayStop       float64
	ArrayStep       float64
	FrequencyFactor float64
	Durations       []float64
}

// GridOptionsFromConfig reads the search section.
func GridOptionsFromConfig(cfg *config.Config) GridOptions {
	s := cfg.Search
	return GridOptions{
		MinPeriod:       s.MinPeriod,
		MaxPeriod:       s.MaxPeriod,
		NumPeriods:      s.NumPeriods,
		ArrayStart:      s.ArrayStart,
		ArrayStop:       s.ArrayStop,
		ArrayStep:       s.ArrayStep,
		FrequencyFactor: s.FrequencyFactor,
		Durations:       append([]float64(nil), s.Durations...),
	}
}

// Periods builds the trial period grid for strategy. The auto strategy needs
// the light curve to size the grid.
func Periods(strategy string, opts GridOptions, lc *lightcurve.LightCurve) ([]float64, error) {
	switch strings.ToLower(strings.TrimSpace(strategy)) {
	case StrategyLinear:
		return Linear(opts.MinPeriod, opts.MaxPeriod, opts.NumPeriods)
	case StrategyArray:
		return Arange(opts.ArrayStart, opts.ArrayStop, opts.ArrayStep)
	case StrategyAuto:
		return Auto(lc, opts.Durations, opts.FrequencyFactor)
	default:
		return nil, fmt.Errorf("unknown period grid strategy %q", strategy)
	}
}

// Linear returns n evenly spaced periods in [min, max], endpoints included.
func Linear(min, max float64, n int) ([]float64, error) {
	if min <= 0 || max <= min || n < 2 {
		return nil, fmt.Errorf("linear grid needs 0 < min < max and n >= 2 (got %g, %g, %d)", min, max, n)
	}
	out := make([]float64, n)
	step := (max - min) / float64(n-1)
	for i := range out {
		out[i] = min + float64(i)*step
	}
	out[n-1] = max
	return out, nil
}

// Arange returns start, start+step, ... up to but excluding stop.
func Arange(start, stop, step float64) ([]float64, error) {
	if start <= 0 || step <= 0 || stop <= start {
		return nil, fmt.Errorf("array grid needs 0 < start < stop and step > 0 (got %g, %g, %g)", start, stop, step)
	}
	n := int(math.Ceil((stop - start) / step))
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out, nil
}

// Auto derives a grid uniform in frequency from the light curve: periods run
// from max(4 cadences, longest duration + 1 cadence) to a third of the
// baseline with frequency spacing factor·min(duration)/baseline².
func Auto(lc *lightcurve.LightCurve, durations []float64, factor float64) ([]float64, error) {
	if lc.Len() < 2 {
		return nil, ErrNoSignal
	}
	if len(durations) == 0 || factor <= 0 {
		return nil, fmt.Errorf("auto grid needs durations and a positive frequency factor")
	}
	sorted := lc.SortByTime()
	baseline := sorted.Baseline()
	if baseline <= 0 {
		return nil, ErrNoSignal
	}
	diffs := make([]float64, 0, sorted.Len()-1)
	for i := 1; i < sorted.Len(); i++ {
		if d := sorted.Time[i] - sorted.Time[i-1]; d > 0 {
			diffs = append(diffs, d)
		}
	}
	cadence := lightcurve.Median(diffs)
	if math.IsNaN(cadence) {
		return nil, ErrNoSignal
	}
	minDur, maxDur := slices.Min(durations), slices.Max(durations)
	minPeriod := math.Max(4*cadence, maxDur+cadence)
	maxPeriod := baseline / 3
	if maxPeriod <= minPeriod {
		return nil, fmt.Errorf("%w: baseline %.3g d too short for an auto grid", ErrNoSignal, baseline)
	}
	df := factor * minDur / (baseline * baseline)
	fMin, fMax := 1/maxPeriod, 1/minPeriod
	n := int(math.Ceil((fMax-fMin)/df)) + 1
	if n < 2 {
		n = 2
	}
	if n > maxAutoPeriods {
		n = maxAutoPeriods
	}
	out := make([]float64, n)
	step := (fMax - fMin) / float64(n-1)
	for i := range out {
		out[n-1-i] = 1 / (fMin + float64(i)*step)
	}
	return out, nil
}

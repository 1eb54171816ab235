package bls

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"exohunt/internal/lightcurve"
)

// ErrNoSignal is returned when the input cannot yield a transit candidate:
// too few samples, a flat light curve, or no box with positive depth.
var ErrNoSignal = errors.New("no transit signal")

// Options controls the box search.
type Options struct {
	// Durations are the trial transit durations in days.
	Durations []float64
	// Oversample is the number of phase bins per minimum duration.
	Oversample int
}

// Result describes the strongest box found.
type Result struct {
	Period   float64
	Epoch    float64
	Duration float64
	Depth    float64
	// Power is the log-likelihood of the best box; the pipeline reports it
	// as the signal-to-noise proxy.
	Power float64

	// Periods and Powers form the periodogram, best box per period.
	Periods []float64
	Powers  []float64
}

type candidate struct {
	power, depth, duration, epoch float64
}

// Search evaluates the periodogram over periods and returns the period with
// the highest power.
func Search(lc *lightcurve.LightCurve, periods []float64, opts Options) (Result, error) {
	if len(opts.Durations) == 0 {
		return Result{}, fmt.Errorf("bls: at least one duration required")
	}
	if opts.Oversample <= 0 {
		opts.Oversample = 10
	}
	for _, d := range opts.Durations {
		if d <= 0 || math.IsNaN(d) {
			return Result{}, fmt.Errorf("bls: invalid duration %g", d)
		}
	}
	clean := lc.RemoveNaNs()
	if clean.Len() < 2 || len(periods) == 0 {
		return Result{}, ErrNoSignal
	}
	span := floats.Max(clean.Flux) - floats.Min(clean.Flux)
	if span == 0 {
		return Result{}, ErrNoSignal
	}

	t := clean.Time
	mean := stat.Mean(clean.Flux, nil)
	y := make([]float64, len(clean.Flux))
	for i, f := range clean.Flux {
		y[i] = f - mean
	}
	tRef := floats.Min(t)
	durations := slices.Clone(opts.Durations)
	slices.Sort(durations)
	binWidth := durations[0] / float64(opts.Oversample)
	minDepth := 1e-9 * span

	res := Result{
		Periods: slices.Clone(periods),
		Powers:  make([]float64, len(periods)),
	}
	best := candidate{power: -1}
	bestIdx := -1
	for i, period := range periods {
		c := searchPeriod(t, y, tRef, period, durations, binWidth, minDepth)
		res.Powers[i] = c.power
		if c.power > best.power {
			best = c
			bestIdx = i
		}
	}
	if bestIdx < 0 || best.power <= 0 {
		return res, ErrNoSignal
	}
	res.Period = periods[bestIdx]
	res.Epoch = best.epoch
	res.Duration = best.duration
	res.Depth = best.depth
	res.Power = best.power
	return res, nil
}

// searchPeriod bins the folded curve at one period and slides every duration
// across the bins, wrapping around phase zero.
func searchPeriod(t, y []float64, tRef, period float64, durations []float64, binWidth, minDepth float64) candidate {
	best := candidate{}
	if period <= 0 || math.IsNaN(period) {
		return best
	}
	nBins := int(math.Ceil(period / binWidth))
	if nBins < 2 {
		return best
	}
	width := period / float64(nBins)
	weight := make([]float64, nBins)
	sum := make([]float64, nBins)
	for i, ti := range t {
		phase := math.Mod(ti-tRef, period)
		if phase < 0 {
			phase += period
		}
		b := int(phase / width)
		if b >= nBins {
			b = nBins - 1
		}
		weight[b]++
		sum[b] += y[i]
	}
	totalW := float64(len(t))
	totalY := floats.Sum(sum)

	for _, duration := range durations {
		if duration >= period {
			continue
		}
		nDur := int(math.Round(duration / width))
		if nDur < 1 {
			nDur = 1
		}
		if nDur >= nBins {
			continue
		}
		var wIn, yIn float64
		for k := 0; k < nDur; k++ {
			wIn += weight[k]
			yIn += sum[k]
		}
		for start := 0; start < nBins; start++ {
			if start > 0 {
				out := start - 1
				in := (start + nDur - 1) % nBins
				wIn += weight[in] - weight[out]
				yIn += sum[in] - sum[out]
			}
			wOut := totalW - wIn
			if wIn < 1 || wOut < 1 {
				continue
			}
			meanIn := yIn / wIn
			meanOut := (totalY - yIn) / wOut
			depth := meanOut - meanIn
			if depth <= minDepth {
				continue
			}
			depthIvar := 1 / (1/wIn + 1/wOut)
			power := 0.5 * depth * depth * depthIvar
			if power > best.power {
				epoch := tRef + math.Mod((float64(start)+0.5*float64(nDur))*width, period)
				best = candidate{power: power, depth: depth, duration: duration, epoch: epoch}
			}
		}
	}
	return best
}

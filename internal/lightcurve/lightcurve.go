package lightcurve

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrEmpty is returned by operations that need at least one sample.
var ErrEmpty = errors.New("light curve has no samples")

// LightCurve is an ordered series of (time, flux) samples. Time is in days
// (BTJD for TESS, BKJD for Kepler); flux is in arbitrary units until
// normalised.
type LightCurve struct {
	Time []float64
	Flux []float64
}

// New validates that time and flux are aligned and returns a LightCurve that
// owns copies of both slices.
func New(time, flux []float64) (*LightCurve, error) {
	if len(time) != len(flux) {
		return nil, fmt.Errorf("time has %d samples but flux has %d", len(time), len(flux))
	}
	return &LightCurve{
		Time: append([]float64(nil), time...),
		Flux: append([]float64(nil), flux...),
	}, nil
}

// Len returns the number of samples.
func (lc *LightCurve) Len() int {
	if lc == nil {
		return 0
	}
	return len(lc.Time)
}

// Copy returns a deep copy.
func (lc *LightCurve) Copy() *LightCurve {
	out, _ := New(lc.Time, lc.Flux)
	return out
}

// RemoveNaNs drops samples whose time or flux is not finite.
func (lc *LightCurve) RemoveNaNs() *LightCurve {
	keep := make([]bool, lc.Len())
	for i := range keep {
		keep[i] = finite(lc.Time[i]) && finite(lc.Flux[i])
	}
	return lc.selectSamples(keep)
}

// Normalize divides the flux by its median. A light curve with a zero or
// non-finite median is returned unchanged.
func (lc *LightCurve) Normalize() *LightCurve {
	out := lc.Copy()
	m := Median(finiteValues(lc.Flux))
	if m == 0 || !finite(m) {
		return out
	}
	for i := range out.Flux {
		out.Flux[i] /= m
	}
	return out
}

// SortByTime returns the samples ordered by increasing time.
func (lc *LightCurve) SortByTime() *LightCurve {
	idx := make([]int, lc.Len())
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return lc.Time[idx[a]] < lc.Time[idx[b]] })
	return lc.permute(idx)
}

// Baseline returns the time span covered by the samples.
func (lc *LightCurve) Baseline() float64 {
	if lc.Len() == 0 {
		return 0
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, t := range lc.Time {
		if t < lo {
			lo = t
		}
		if t > hi {
			hi = t
		}
	}
	return hi - lo
}

// Stitch normalises each curve by its median and concatenates them in the
// order given. Empty curves are skipped.
func Stitch(curves ...*LightCurve) *LightCurve {
	out := &LightCurve{}
	for _, lc := range curves {
		if lc.Len() == 0 {
			continue
		}
		norm := lc.Normalize()
		out.Time = append(out.Time, norm.Time...)
		out.Flux = append(out.Flux, norm.Flux...)
	}
	return out
}

func (lc *LightCurve) selectSamples(keep []bool) *LightCurve {
	out := &LightCurve{
		Time: make([]float64, 0, len(keep)),
		Flux: make([]float64, 0, len(keep)),
	}
	for i, ok := range keep {
		if ok {
			out.Time = append(out.Time, lc.Time[i])
			out.Flux = append(out.Flux, lc.Flux[i])
		}
	}
	return out
}

func (lc *LightCurve) permute(idx []int) *LightCurve {
	out := &LightCurve{Time: make([]float64, len(idx)), Flux: make([]float64, len(idx))}
	for i, j := range idx {
		out.Time[i] = lc.Time[j]
		out.Flux[i] = lc.Flux[j]
	}
	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func finiteValues(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if finite(v) {
			out = append(out, v)
		}
	}
	return out
}

package transit

import (
	"math"
)

// Derived holds the physical quantities reported for a fit.
type Derived struct {
	// Depth is rp_rs², a fraction of the stellar flux.
	Depth float64
	// Duration is in days: the span of folded sample times whose model flux
	// lies below 1 - depth/2. It is exactly 0 when fewer than two samples
	// qualify.
	Duration float64
	// SNR is the BLS power at the chosen period.
	SNR float64
}

// Derive computes depth, duration and SNR from fitted parameters. phaseTimes
// are sample times folded on p.Period around p.T0.
func Derive(m Model, p Params, phaseTimes []float64, power float64) Derived {
	depth := p.RpRs * p.RpRs
	folded := p
	folded.T0 = 0
	threshold := 1 - depth/2

	lo, hi := math.Inf(1), math.Inf(-1)
	count := 0
	for _, t := range phaseTimes {
		if math.IsNaN(t) {
			continue
		}
		if m.Flux(t, folded) < threshold {
			count++
			lo = math.Min(lo, t)
			hi = math.Max(hi, t)
		}
	}
	duration := 0.0
	if count >= 2 {
		duration = hi - lo
	}
	return Derived{Depth: depth, Duration: duration, SNR: power}
}

package lightcurve

import "math"

// PhaseTime maps t onto [-period/2, period/2) relative to the transit epoch.
func PhaseTime(t, period, epoch float64) float64 {
	half := period / 2
	p := math.Mod(t-epoch+half, period)
	if p < 0 {
		p += period
	}
	return p - half
}

// Fold returns the curve with time replaced by phase time, sorted by phase.
func (lc *LightCurve) Fold(period, epoch float64) *LightCurve {
	folded := lc.Copy()
	for i, t := range folded.Time {
		folded.Time[i] = PhaseTime(t, period, epoch)
	}
	return folded.SortByTime()
}

package lightcurve

import "math"

// RemoveOutliers drops samples more than sigma standard deviations from the
// median flux (iterative clipping). The count of removed samples is returned
// alongside the cleaned curve.
func (lc *LightCurve) RemoveOutliers(sigma float64) (*LightCurve, int) {
	return lc.RemoveOutliersBounds(sigma, sigma)
}

// RemoveOutliersBounds clips below and above the median with separate
// thresholds.
func (lc *LightCurve) RemoveOutliersBounds(lower, upper float64) (*LightCurve, int) {
	keep := SigmaClipBounds(lc.Flux, lower, upper)
	out := lc.selectSamples(keep)
	return out, lc.Len() - out.Len()
}

// RemoveFlares clips only positive excursions, keeping transit dips.
func (lc *LightCurve) RemoveFlares(sigma float64) (*LightCurve, int) {
	return lc.RemoveOutliersBounds(math.Inf(1), sigma)
}

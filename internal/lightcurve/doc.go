// Package lightcurve holds the time-series type shared by the fetch and
// analysis stages together with the preprocessing steps applied before a
// period search: NaN removal, sigma-clipped outlier removal, Savitzky–Golay
// flattening, median normalisation, stitching and phase folding.
//
// Every operation returns a new LightCurve; inputs are never modified.
package lightcurve

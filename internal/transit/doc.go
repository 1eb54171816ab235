// Package transit models a planet crossing a limb-darkened star and fits the
// model to a light curve.
//
// The orbit is circular; the five free parameters are period, mid-transit
// epoch, planet-to-star radius ratio, scaled semi-major axis and inclination.
// Quadratic limb-darkening coefficients are fixed. Fit is a bounded
// Levenberg–Marquardt solver on the gonum normal equations.
package transit

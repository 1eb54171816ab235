// Package plot renders diagnostic PNGs for analysed light curves: the BLS
// periodogram above the phase-folded curve with the fitted transit model and
// an optional polynomial trend.
package plot

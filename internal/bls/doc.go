// Package bls implements the box-least-squares periodogram.
//
// For each trial period the light curve is phase-binned at a resolution of
// min(duration)/oversample, every trial duration is slid across the bins and
// the log-likelihood power 0.5·depth²·depth_ivar of the best box is kept.
// Samples carry unit weight because the per-segment CSVs hold no flux
// uncertainties.
package bls

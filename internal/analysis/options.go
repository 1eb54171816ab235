package analysis

import (
	"exohunt/internal/bls"
	"exohunt/internal/config"
	"exohunt/internal/lightcurve"
	"exohunt/internal/plot"
	"exohunt/internal/transit"
)

const stageName = "analyze"

// minObservableDepth is the smallest dip, as a flux fraction, treated as a
// transit rather than round-off in the detrended curve.
const minObservableDepth = 1e-6

// Options configures an Analyzer.
type Options struct {
	Strategies   []string
	Grid         bls.GridOptions
	Search       bls.Options
	Flatten      lightcurve.FlattenOptions
	OutlierSigma float64
	ClipDips     bool
	Fit          transit.FitOptions
	FoldedDir    string
	PlotDir      string
	Plots        bool
	Plot         plot.Options
	// Force reprocesses files already present in the index.
	Force bool
	RunID string
}

// OptionsFromConfig assembles analyzer options from the validated config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Strategies: append([]string(nil), cfg.Search.Strategies...),
		Grid:       bls.GridOptionsFromConfig(cfg),
		Search: bls.Options{
			Durations:  append([]float64(nil), cfg.Search.Durations...),
			Oversample: cfg.Search.Oversample,
		},
		Flatten: lightcurve.FlattenOptions{
			WindowLength:   cfg.Detrend.WindowLength,
			PolyOrder:      cfg.Detrend.PolyOrder,
			BreakTolerance: cfg.Detrend.BreakTolerance,
			Iterations:     cfg.Detrend.Iterations,
			Sigma:          cfg.Detrend.Sigma,
		},
		OutlierSigma: cfg.Detrend.OutlierSigma,
		ClipDips:     cfg.Detrend.ClipDips,
		Fit:          transit.FitOptionsFromConfig(cfg),
		FoldedDir:    cfg.FoldedDir(),
		PlotDir:      cfg.Paths.PlotDir,
		Plots:        cfg.Plots.Enabled,
		Plot:         plot.OptionsFromConfig(cfg),
	}
}

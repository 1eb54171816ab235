package preflight

import (
	"context"

	"exohunt/internal/config"
)

// Result reports the outcome of a single preflight check. Optional checks
// never block a run.
type Result struct {
	Name     string `json:"name"`
	Passed   bool   `json:"passed"`
	Optional bool   `json:"optional"`
	Detail   string `json:"detail"`
}

// minFreeBytes is the free space required under the data directory.
const minFreeBytes = 512 << 20

// RunAll executes every applicable preflight check for the given config.
// The archive check is skipped when offline is set.
func RunAll(ctx context.Context, cfg *config.Config, offline bool) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Light-curve directory", cfg.Paths.LightcurveDir),
		CheckDirectoryAccess("Results directory", cfg.Paths.ResultsDir),
		CheckDiskSpace("Free space", cfg.Paths.DataDir, minFreeBytes),
	}
	if cfg.Plots.Enabled {
		results = append(results, CheckDirectoryAccess("Plot directory", cfg.Paths.PlotDir))
	}
	if !offline {
		results = append(results, CheckArchive(ctx, cfg.Archive.BaseURL))
	}
	results = append(results, CheckModel(cfg.Paths.ModelPath))
	if cfg.Run.UseIndex {
		results = append(results, CheckIndex(cfg.Paths.IndexPath))
	}
	return results
}

// Failed returns the required checks that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed && !r.Optional {
			out = append(out, r)
		}
	}
	return out
}

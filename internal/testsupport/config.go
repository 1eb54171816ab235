package testsupport

import (
	"path/filepath"
	"testing"

	"exohunt/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config whose data tree lives in a per-test temp
// directory. Search and detrend defaults are shrunk so analysis tests run
// quickly.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = base
	cfgVal.Paths.TargetsFile = filepath.Join(base, "targets.csv")
	cfgVal.Paths.LightcurveDir = filepath.Join(base, "lightcurves")
	cfgVal.Paths.ResultsDir = filepath.Join(base, "results")
	cfgVal.Paths.PlotDir = filepath.Join(base, "plots")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.FeatureCSV = filepath.Join(base, "results", "features.csv")
	cfgVal.Paths.IndexPath = filepath.Join(base, "exohunt.db")
	cfgVal.Paths.ModelPath = filepath.Join(base, "model", "classifier.json")
	cfgVal.Archive.BaseURL = "https://mast.test"
	cfgVal.Detrend.WindowLength = 301
	cfgVal.Search.NumPeriods = 2000
	cfgVal.Plots.Enabled = false

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithPlots enables diagnostic plot output.
func WithPlots() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Plots.Enabled = true
	}
}

// WithStrategies sets the BLS grid strategies.
func WithStrategies(names ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Search.Strategies = names
	}
}

// WithIndex toggles the processed index.
func WithIndex(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Run.UseIndex = enabled
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return cfg.Paths.DataDir
}

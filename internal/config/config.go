package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the data directory layout. Empty entries are derived from DataDir.
type Paths struct {
	DataDir          string `toml:"data_dir"`
	TargetsFile      string `toml:"targets_file"`
	LightcurveDir    string `toml:"lightcurve_dir"`
	ResultsDir       string `toml:"results_dir"`
	PlotDir          string `toml:"plot_dir"`
	LogDir           string `toml:"log_dir"`
	FeatureCSV       string `toml:"feature_csv"`
	IndexPath        string `toml:"index_path"`
	ModelPath        string `toml:"model_path"`
	TrainingFeatures string `toml:"training_features"`
	TrainingLabels   string `toml:"training_labels"`
}

// Archive contains MAST portal settings used by the fetch stage.
type Archive struct {
	BaseURL                string  `toml:"base_url"`
	APIToken               string  `toml:"api_token"`
	Mission                string  `toml:"mission"`
	NameMission            string  `toml:"name_mission"`
	Author                 string  `toml:"author"`
	ExposureTime           float64 `toml:"exposure_time"`
	RequestTimeout         int     `toml:"request_timeout"`
	DownloadTimeout        int     `toml:"download_timeout"`
	SearchCacheMinutes     int     `toml:"search_cache_minutes"`
	ConeRadiusArcsec       float64 `toml:"cone_radius_arcsec"`
	MaxConsecutiveFailures int     `toml:"max_consecutive_failures"`
	QualityBitmask         string  `toml:"quality_bitmask"`
}

// Targets controls how the target spreadsheet is parsed.
type Targets struct {
	Strategy   string `toml:"strategy"`
	HeaderLine int    `toml:"header_line"`
	SkipRows   int    `toml:"skip_rows"`
	IDColumn   string `toml:"id_column"`
	Catalog    string `toml:"catalog"`
}

// Detrend contains cleaning and flattening parameters.
type Detrend struct {
	WindowLength   int     `toml:"window_length"`
	PolyOrder      int     `toml:"polyorder"`
	BreakTolerance int     `toml:"break_tolerance"`
	Iterations     int     `toml:"iterations"`
	Sigma          float64 `toml:"sigma"`
	OutlierSigma   float64 `toml:"outlier_sigma"`
	ClipDips       bool    `toml:"clip_dips"`
}

// Search contains the BLS grid strategies and their parameters.
type Search struct {
	Strategies      []string  `toml:"strategies"`
	MinPeriod       float64   `toml:"min_period"`
	MaxPeriod       float64   `toml:"max_period"`
	NumPeriods      int       `toml:"num_periods"`
	ArrayStart      float64   `toml:"array_start"`
	ArrayStop       float64   `toml:"array_stop"`
	ArrayStep       float64   `toml:"array_step"`
	FrequencyFactor float64   `toml:"frequency_factor"`
	Durations       []float64 `toml:"durations"`
	Oversample      int       `toml:"oversample"`
}

// Fit contains transit model priors and solver limits.
type Fit struct {
	LimbDarkening []float64 `toml:"limb_darkening"`
	ARsPrior      float64   `toml:"a_rs_prior"`
	IncPrior      float64   `toml:"inc_prior"`
	MaxIterations int       `toml:"max_iterations"`
	Tolerance     float64   `toml:"tolerance"`
}

// Classifier contains training and inference settings.
type Classifier struct {
	FeatureColumns []string `toml:"feature_columns"`
	NEstimators    int      `toml:"n_estimators"`
	MaxDepth       int      `toml:"max_depth"`
	MinSamplesLeaf int      `toml:"min_samples_leaf"`
	TestFraction   float64  `toml:"test_fraction"`
	Seed           uint64   `toml:"seed"`
}

// Plots controls diagnostic plot output.
type Plots struct {
	Enabled    bool    `toml:"enabled"`
	Width      float64 `toml:"width_cm"`
	Height     float64 `toml:"height_cm"`
	PolyDegree int     `toml:"poly_degree"`
}

// Run controls batch behaviour shared by every stage.
type Run struct {
	InterruptPolicy string `toml:"interrupt_policy"`
	HardStopWindow  int    `toml:"hard_stop_window"`
	UseIndex        bool   `toml:"use_index"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for exohunt.
//
// Configuration sections by stage:
//   - Paths: data directory layout and artifact locations
//   - Archive: MAST queries and downloads
//   - Targets: spreadsheet parsing
//   - Detrend: outlier removal and flattening
//   - Search: BLS period grids
//   - Fit: transit model priors and solver limits
//   - Classifier: training split and forest shape
//   - Plots: diagnostic PNG output
//   - Run: interrupt policy and processed index
//   - Logging: log format, level, and retention
type Config struct {
	Paths      Paths      `toml:"paths"`
	Archive    Archive    `toml:"archive"`
	Targets    Targets    `toml:"targets"`
	Detrend    Detrend    `toml:"detrend"`
	Search     Search     `toml:"search"`
	Fit        Fit        `toml:"fit"`
	Classifier Classifier `toml:"classifier"`
	Plots      Plots      `toml:"plots"`
	Run        Run        `toml:"run"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := loadDotEnv(resolvedPath); err != nil {
		return nil, "", false, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("exohunt.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// loadDotEnv reads .env files next to the config and in the working directory.
// Variables already present in the environment win.
func loadDotEnv(configPath string) error {
	candidates := make([]string, 0, 2)
	if configPath != "" {
		candidates = append(candidates, filepath.Join(filepath.Dir(configPath), ".env"))
	}
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, ".env"))
	}
	seen := make(map[string]struct{}, len(candidates))
	for _, candidate := range candidates {
		if _, dup := seen[candidate]; dup {
			continue
		}
		seen[candidate] = struct{}{}
		info, err := os.Stat(candidate)
		if err != nil || info.IsDir() {
			continue
		}
		if err := godotenv.Load(candidate); err != nil {
			return fmt.Errorf("load env file %q: %w", candidate, err)
		}
	}
	return nil
}

// EnsureDirectories creates the output tree every stage writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Paths.DataDir,
		c.Paths.LightcurveDir,
		c.Paths.ResultsDir,
		c.FoldedDir(),
		c.Paths.PlotDir,
		c.Paths.LogDir,
		filepath.Dir(c.Paths.FeatureCSV),
		filepath.Dir(c.Paths.IndexPath),
		filepath.Dir(c.Paths.ModelPath),
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FoldedDir is where folded light curves are written.
func (c *Config) FoldedDir() string {
	return filepath.Join(c.Paths.ResultsDir, "folded")
}

// LockPath is the run lock guarding the output tree.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "exohunt.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

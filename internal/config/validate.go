package config

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const featureCount = 6

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateArchive(); err != nil {
		return err
	}
	if err := c.validateTargets(); err != nil {
		return err
	}
	if err := c.validateDetrend(); err != nil {
		return err
	}
	if err := c.validateSearch(); err != nil {
		return err
	}
	if err := c.validateFit(); err != nil {
		return err
	}
	if err := c.validateClassifier(); err != nil {
		return err
	}
	if err := c.validatePlots(); err != nil {
		return err
	}
	if err := c.validateRun(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateArchive() error {
	if err := ensurePositiveMap(map[string]int{
		"archive.request_timeout":          c.Archive.RequestTimeout,
		"archive.download_timeout":         c.Archive.DownloadTimeout,
		"archive.max_consecutive_failures": c.Archive.MaxConsecutiveFailures,
	}); err != nil {
		return err
	}
	if c.Archive.ExposureTime < 0 {
		return errors.New("archive.exposure_time must be >= 0 (0 disables the filter)")
	}
	if c.Archive.ConeRadiusArcsec <= 0 {
		return errors.New("archive.cone_radius_arcsec must be positive")
	}
	switch strings.ToLower(c.Archive.NameMission) {
	case "all", "tess", "kepler", "k2":
	default:
		return fmt.Errorf("archive.name_mission must be all, TESS, Kepler or K2, got %q", c.Archive.NameMission)
	}
	switch c.Archive.QualityBitmask {
	case "none", "default", "hard", "hardest":
	default:
		if _, err := strconv.ParseUint(c.Archive.QualityBitmask, 10, 32); err != nil {
			return fmt.Errorf("archive.quality_bitmask must be none, default, hard, hardest or an integer, got %q", c.Archive.QualityBitmask)
		}
	}
	return nil
}

func (c *Config) validateTargets() error {
	switch c.Targets.Strategy {
	case "fixed_offset":
		if c.Targets.HeaderLine < 1 {
			return errors.New("targets.header_line must be >= 1")
		}
	case "skip_rows":
		if c.Targets.SkipRows < 0 {
			return errors.New("targets.skip_rows must be >= 0")
		}
	default:
		return fmt.Errorf("targets.strategy must be fixed_offset or skip_rows, got %q", c.Targets.Strategy)
	}
	return nil
}

func (c *Config) validateDetrend() error {
	if c.Detrend.WindowLength < 3 || c.Detrend.WindowLength%2 == 0 {
		return errors.New("detrend.window_length must be an odd number >= 3")
	}
	if c.Detrend.PolyOrder < 0 || c.Detrend.PolyOrder >= c.Detrend.WindowLength {
		return errors.New("detrend.polyorder must be >= 0 and smaller than detrend.window_length")
	}
	if err := ensurePositiveMap(map[string]int{
		"detrend.break_tolerance": c.Detrend.BreakTolerance,
		"detrend.iterations":      c.Detrend.Iterations,
	}); err != nil {
		return err
	}
	if c.Detrend.Sigma <= 0 {
		return errors.New("detrend.sigma must be positive")
	}
	if c.Detrend.OutlierSigma <= 0 {
		return errors.New("detrend.outlier_sigma must be positive")
	}
	return nil
}

func (c *Config) validateSearch() error {
	for _, name := range c.Search.Strategies {
		switch name {
		case "linear":
			if c.Search.MinPeriod <= 0 || c.Search.MaxPeriod <= c.Search.MinPeriod {
				return errors.New("search.min_period must be positive and below search.max_period")
			}
			if c.Search.NumPeriods < 2 {
				return errors.New("search.num_periods must be >= 2")
			}
		case "array":
			if c.Search.ArrayStart <= 0 || c.Search.ArrayStop <= c.Search.ArrayStart {
				return errors.New("search.array_start must be positive and below search.array_stop")
			}
			if c.Search.ArrayStep <= 0 {
				return errors.New("search.array_step must be positive")
			}
		case "auto":
			if c.Search.FrequencyFactor <= 0 {
				return errors.New("search.frequency_factor must be positive")
			}
		default:
			return fmt.Errorf("search.strategies entries must be linear, array or auto, got %q", name)
		}
	}
	for _, d := range c.Search.Durations {
		if d <= 0 || math.IsNaN(d) {
			return errors.New("search.durations must all be positive")
		}
	}
	if c.Search.Oversample <= 0 {
		return errors.New("search.oversample must be positive")
	}
	return nil
}

func (c *Config) validateFit() error {
	if len(c.Fit.LimbDarkening) != 2 {
		return errors.New("fit.limb_darkening must hold exactly two coefficients (u1, u2)")
	}
	if c.Fit.ARsPrior < 1.5 || c.Fit.ARsPrior > 200 {
		return errors.New("fit.a_rs_prior must be between 1.5 and 200")
	}
	if c.Fit.IncPrior < 60 || c.Fit.IncPrior > 90 {
		return errors.New("fit.inc_prior must be between 60 and 90")
	}
	if c.Fit.MaxIterations <= 0 {
		return errors.New("fit.max_iterations must be positive")
	}
	if c.Fit.Tolerance <= 0 {
		return errors.New("fit.tolerance must be positive")
	}
	return nil
}

func (c *Config) validateClassifier() error {
	if len(c.Classifier.FeatureColumns) != featureCount {
		return fmt.Errorf("classifier.feature_columns must list %d columns, got %d", featureCount, len(c.Classifier.FeatureColumns))
	}
	for i, column := range c.Classifier.FeatureColumns {
		if column == "" {
			return fmt.Errorf("classifier.feature_columns[%d] must not be empty", i)
		}
	}
	if c.Classifier.NEstimators <= 0 {
		return errors.New("classifier.n_estimators must be positive")
	}
	if c.Classifier.MaxDepth < 0 {
		return errors.New("classifier.max_depth must be >= 0 (0 means unlimited)")
	}
	if c.Classifier.MinSamplesLeaf < 1 {
		return errors.New("classifier.min_samples_leaf must be >= 1")
	}
	if c.Classifier.TestFraction <= 0 || c.Classifier.TestFraction >= 1 {
		return errors.New("classifier.test_fraction must be between 0 and 1 (exclusive)")
	}
	return nil
}

func (c *Config) validatePlots() error {
	if !c.Plots.Enabled {
		return nil
	}
	if c.Plots.Width <= 0 || c.Plots.Height <= 0 {
		return errors.New("plots.width_cm and plots.height_cm must be positive")
	}
	if c.Plots.PolyDegree < 0 || c.Plots.PolyDegree > 30 {
		return fmt.Errorf("plots.poly_degree must be between 0 and 30, got %d", c.Plots.PolyDegree)
	}
	return nil
}

func (c *Config) validateRun() error {
	switch c.Run.InterruptPolicy {
	case "skip_item", "stop":
	default:
		return fmt.Errorf("run.interrupt_policy must be skip_item or stop, got %q", c.Run.InterruptPolicy)
	}
	if c.Run.HardStopWindow <= 0 {
		return errors.New("run.hard_stop_window must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

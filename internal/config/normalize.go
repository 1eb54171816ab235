package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeArchive()
	c.normalizeTargets()
	c.normalizeSearch()
	c.normalizeFit()
	c.normalizeClassifier()
	c.normalizeRun()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		if value, ok := os.LookupEnv("EXOHUNT_DATA_DIR"); ok && strings.TrimSpace(value) != "" {
			c.Paths.DataDir = strings.TrimSpace(value)
		} else {
			c.Paths.DataDir = defaultDataDir
		}
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}

	derived := []struct {
		key   string
		value *string
		leaf  string
	}{
		{"paths.lightcurve_dir", &c.Paths.LightcurveDir, defaultLightcurveLeaf},
		{"paths.results_dir", &c.Paths.ResultsDir, defaultResultsLeaf},
		{"paths.plot_dir", &c.Paths.PlotDir, defaultPlotLeaf},
		{"paths.log_dir", &c.Paths.LogDir, defaultLogLeaf},
		{"paths.index_path", &c.Paths.IndexPath, defaultIndexLeaf},
		{"paths.model_path", &c.Paths.ModelPath, defaultModelLeaf},
	}
	for _, entry := range derived {
		if strings.TrimSpace(*entry.value) == "" {
			*entry.value = filepath.Join(c.Paths.DataDir, entry.leaf)
		}
		if *entry.value, err = expandPath(strings.TrimSpace(*entry.value)); err != nil {
			return fmt.Errorf("%s: %w", entry.key, err)
		}
	}

	if strings.TrimSpace(c.Paths.FeatureCSV) == "" {
		c.Paths.FeatureCSV = filepath.Join(c.Paths.ResultsDir, defaultFeatureCSVLeaf)
	}
	if c.Paths.FeatureCSV, err = expandPath(strings.TrimSpace(c.Paths.FeatureCSV)); err != nil {
		return fmt.Errorf("paths.feature_csv: %w", err)
	}

	optional := []struct {
		key   string
		value *string
	}{
		{"paths.targets_file", &c.Paths.TargetsFile},
		{"paths.training_features", &c.Paths.TrainingFeatures},
		{"paths.training_labels", &c.Paths.TrainingLabels},
	}
	for _, entry := range optional {
		if *entry.value, err = expandPath(strings.TrimSpace(*entry.value)); err != nil {
			return fmt.Errorf("%s: %w", entry.key, err)
		}
	}
	return nil
}

func (c *Config) normalizeArchive() {
	c.Archive.BaseURL = strings.TrimRight(strings.TrimSpace(c.Archive.BaseURL), "/")
	if c.Archive.BaseURL == "" {
		c.Archive.BaseURL = defaultArchiveBaseURL
	}
	c.Archive.APIToken = strings.TrimSpace(c.Archive.APIToken)
	if c.Archive.APIToken == "" {
		if value, ok := os.LookupEnv("MAST_API_TOKEN"); ok {
			c.Archive.APIToken = strings.TrimSpace(value)
		}
	}
	c.Archive.Mission = strings.TrimSpace(c.Archive.Mission)
	if c.Archive.Mission == "" {
		c.Archive.Mission = defaultArchiveMission
	}
	c.Archive.NameMission = strings.TrimSpace(c.Archive.NameMission)
	if c.Archive.NameMission == "" {
		c.Archive.NameMission = defaultArchiveNameMission
	}
	c.Archive.Author = strings.TrimSpace(c.Archive.Author)
	c.Archive.QualityBitmask = strings.ToLower(strings.TrimSpace(c.Archive.QualityBitmask))
	if c.Archive.QualityBitmask == "" {
		c.Archive.QualityBitmask = defaultQualityBitmask
	}
	if c.Archive.SearchCacheMinutes < 0 {
		c.Archive.SearchCacheMinutes = 0
	}
}

func (c *Config) normalizeTargets() {
	c.Targets.Strategy = strings.ToLower(strings.TrimSpace(c.Targets.Strategy))
	if c.Targets.Strategy == "" {
		c.Targets.Strategy = defaultTargetsStrategy
	}
	c.Targets.IDColumn = strings.TrimSpace(c.Targets.IDColumn)
	if c.Targets.IDColumn == "" {
		c.Targets.IDColumn = defaultTargetsIDColumn
	}
	c.Targets.Catalog = strings.ToUpper(strings.TrimSpace(c.Targets.Catalog))
	if c.Targets.Catalog == "" {
		c.Targets.Catalog = defaultTargetsCatalog
	}
}

func (c *Config) normalizeSearch() {
	strategies := make([]string, 0, len(c.Search.Strategies))
	seen := make(map[string]struct{}, len(c.Search.Strategies))
	for _, name := range c.Search.Strategies {
		normalized := strings.ToLower(strings.TrimSpace(name))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		strategies = append(strategies, normalized)
	}
	if len(strategies) == 0 {
		strategies = defaultStrategies()
	}
	c.Search.Strategies = strategies
	if len(c.Search.Durations) == 0 {
		c.Search.Durations = defaultDurations()
	}
}

func (c *Config) normalizeFit() {
	if len(c.Fit.LimbDarkening) == 0 {
		c.Fit.LimbDarkening = defaultLimbDarkening()
	}
}

func (c *Config) normalizeClassifier() {
	if len(c.Classifier.FeatureColumns) == 0 {
		c.Classifier.FeatureColumns = defaultFeatureColumns()
	}
	for i, column := range c.Classifier.FeatureColumns {
		c.Classifier.FeatureColumns[i] = strings.TrimSpace(column)
	}
}

func (c *Config) normalizeRun() {
	c.Run.InterruptPolicy = strings.ToLower(strings.TrimSpace(c.Run.InterruptPolicy))
	if c.Run.InterruptPolicy == "" {
		c.Run.InterruptPolicy = defaultInterruptPolicy
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

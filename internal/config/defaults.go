package config

const (
	defaultConfigPath = "~/.config/exohunt/config.toml"
	defaultDataDir    = "~/.local/share/exohunt"

	defaultLightcurveLeaf = "lightcurves"
	defaultResultsLeaf    = "results"
	defaultPlotLeaf       = "plots"
	defaultLogLeaf        = "logs"
	defaultFeatureCSVLeaf = "features.csv"
	defaultIndexLeaf      = "exohunt.db"
	defaultModelLeaf      = "exoplanet_classifier.json"

	defaultArchiveBaseURL         = "https://mast.stsci.edu"
	defaultArchiveMission         = "TESS"
	defaultArchiveNameMission     = "all"
	defaultArchiveAuthor          = "SPOC"
	defaultArchiveExposureTime    = 120.0
	defaultArchiveRequestTimeout  = 60
	defaultArchiveDownloadTimeout = 300
	defaultSearchCacheMinutes     = 30
	defaultConeRadiusArcsec       = 10.0
	defaultMaxConsecutiveFailures = 3
	defaultQualityBitmask         = "default"

	defaultTargetsStrategy   = "fixed_offset"
	defaultTargetsHeaderLine = 5
	defaultTargetsSkipRows   = 4
	defaultTargetsIDColumn   = "ID"
	defaultTargetsCatalog    = "TIC"

	defaultWindowLength   = 901
	defaultPolyOrder      = 2
	defaultBreakTolerance = 5
	defaultFlattenIters   = 3
	defaultFlattenSigma   = 3.0
	defaultOutlierSigma   = 4.0

	defaultMinPeriod       = 1.0
	defaultMaxPeriod       = 20.0
	defaultNumPeriods      = 10000
	defaultArrayStart      = 1.0
	defaultArrayStop       = 16.0
	defaultArrayStep       = 0.01
	defaultFrequencyFactor = 500.0
	defaultOversample      = 10

	defaultARsPrior      = 15.0
	defaultIncPrior      = 89.0
	defaultMaxIterations = 200
	defaultTolerance     = 1e-8

	defaultNEstimators    = 100
	defaultMinSamplesLeaf = 1
	defaultTestFraction   = 0.2
	defaultSeed           = 42

	defaultPlotWidth  = 20.0
	defaultPlotHeight = 12.0
	defaultPolyDegree = 18

	defaultInterruptPolicy = "skip_item"
	defaultHardStopWindow  = 3

	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 30
)

func defaultStrategies() []string {
	return []string{"linear"}
}

// Trial transit durations in days.
func defaultDurations() []float64 {
	return []float64{0.05, 0.08, 0.1, 0.125, 0.15, 0.2, 0.25, 0.33}
}

func defaultLimbDarkening() []float64 {
	return []float64{0.1, 0.3}
}

// Column names of the training feature table, in classification order.
func defaultFeatureColumns() []string {
	return []string{
		"OrbitalPeriod[days",
		"TransitDepth[ppm",
		"TransitDuration[hrs",
		"ImpactParamete",
		"PlanetaryRadius[Earthradii",
		"TransitSignal-to-Nois",
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Archive: Archive{
			BaseURL:                defaultArchiveBaseURL,
			Mission:                defaultArchiveMission,
			NameMission:            defaultArchiveNameMission,
			Author:                 defaultArchiveAuthor,
			ExposureTime:           defaultArchiveExposureTime,
			RequestTimeout:         defaultArchiveRequestTimeout,
			DownloadTimeout:        defaultArchiveDownloadTimeout,
			SearchCacheMinutes:     defaultSearchCacheMinutes,
			ConeRadiusArcsec:       defaultConeRadiusArcsec,
			MaxConsecutiveFailures: defaultMaxConsecutiveFailures,
			QualityBitmask:         defaultQualityBitmask,
		},
		Targets: Targets{
			Strategy:   defaultTargetsStrategy,
			HeaderLine: defaultTargetsHeaderLine,
			SkipRows:   defaultTargetsSkipRows,
			IDColumn:   defaultTargetsIDColumn,
			Catalog:    defaultTargetsCatalog,
		},
		Detrend: Detrend{
			WindowLength:   defaultWindowLength,
			PolyOrder:      defaultPolyOrder,
			BreakTolerance: defaultBreakTolerance,
			Iterations:     defaultFlattenIters,
			Sigma:          defaultFlattenSigma,
			OutlierSigma:   defaultOutlierSigma,
		},
		Search: Search{
			Strategies:      defaultStrategies(),
			MinPeriod:       defaultMinPeriod,
			MaxPeriod:       defaultMaxPeriod,
			NumPeriods:      defaultNumPeriods,
			ArrayStart:      defaultArrayStart,
			ArrayStop:       defaultArrayStop,
			ArrayStep:       defaultArrayStep,
			FrequencyFactor: defaultFrequencyFactor,
			Durations:       defaultDurations(),
			Oversample:      defaultOversample,
		},
		Fit: Fit{
			LimbDarkening: defaultLimbDarkening(),
			ARsPrior:      defaultARsPrior,
			IncPrior:      defaultIncPrior,
			MaxIterations: defaultMaxIterations,
			Tolerance:     defaultTolerance,
		},
		Classifier: Classifier{
			FeatureColumns: defaultFeatureColumns(),
			NEstimators:    defaultNEstimators,
			MinSamplesLeaf: defaultMinSamplesLeaf,
			TestFraction:   defaultTestFraction,
			Seed:           defaultSeed,
		},
		Plots: Plots{
			Enabled:    true,
			Width:      defaultPlotWidth,
			Height:     defaultPlotHeight,
			PolyDegree: defaultPolyDegree,
		},
		Run: Run{
			InterruptPolicy: defaultInterruptPolicy,
			HardStopWindow:  defaultHardStopWindow,
			UseIndex:        true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}

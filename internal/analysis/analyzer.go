package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"strings"

	"exohunt/internal/bls"
	"exohunt/internal/classifier"
	"exohunt/internal/features"
	"exohunt/internal/lightcurve"
	"exohunt/internal/logging"
	"exohunt/internal/plot"
	"exohunt/internal/runctl"
	"exohunt/internal/services"
	"exohunt/internal/store"
	"exohunt/internal/textutil"
	"exohunt/internal/transit"
)

// Index is the processed-file index.
type Index interface {
	Has(ctx context.Context, filename string) (bool, error)
	Upsert(ctx context.Context, e store.Entry) error
	Records(ctx context.Context) ([]features.Record, error)
}

// Sink receives feature records.
type Sink interface {
	Append(rec features.Record) error
	Merge(recs []features.Record, drop ...string) error
}

// Analyzer processes saved light curves one file at a time.
type Analyzer struct {
	opts   Options
	model  *classifier.Model
	index  Index
	sink   Sink
	logger *slog.Logger
}

// New builds an Analyzer. model may be nil (every record is classified N/A)
// and index may be nil (no skip-if-processed, plain appends).
func New(opts Options, model *classifier.Model, index Index, sink Sink, logger *slog.Logger) *Analyzer {
	if len(opts.Strategies) == 0 {
		opts.Strategies = []string{bls.StrategyLinear}
	}
	return &Analyzer{
		opts:   opts,
		model:  model,
		index:  index,
		sink:   sink,
		logger: logging.NewComponentLogger(logger, "analysis"),
	}
}

// Search is the periodogram of one grid strategy.
type Search struct {
	Strategy string
	Result   bls.Result
	Err      error
	Plot     string
}

// Outcome describes what AnalyzeFile did with one file.
type Outcome struct {
	Path     string
	Record   features.Record
	Strategy string
	Searches []Search
	Fit      *transit.FitResult
	Folded   string
	Plots    []string
	// Skipped is set when the file was already in the index.
	Skipped bool
	// Failure is the search or fit error behind a sentinel record.
	Failure error
}

// AnalyzeFile runs the pipeline on the light-curve CSV at path. Search and
// fit failures produce a sentinel record and a nil error; read, write and
// interrupt failures are returned.
func (a *Analyzer) AnalyzeFile(ctx context.Context, path string) (Outcome, error) {
	ctx = services.WithFile(services.WithStage(ctx, stageName), path)
	logger := logging.WithContext(ctx, a.logger)
	filename := filepath.Base(path)
	out := Outcome{Path: path}
	if err := runctl.Check(ctx, stageName, "start"); err != nil {
		return out, err
	}

	if a.index != nil && !a.opts.Force {
		done, err := a.index.Has(ctx, filename)
		if err != nil {
			return out, services.Wrap(services.ErrTransient, stageName, "index lookup", filename, err)
		}
		if done {
			logger.Info("already processed; skipping", logging.String(logging.FieldImpact, "use --force to reprocess"))
			out.Skipped = true
			return out, nil
		}
	}

	raw, err := lightcurve.ReadCSV(path)
	if err != nil {
		return out, services.Wrap(services.ErrValidation, stageName, "read", filename, err)
	}
	if err := runctl.Check(ctx, stageName, "preprocess"); err != nil {
		return out, err
	}

	flat, err := a.preprocess(raw, logger)
	if err != nil {
		out.Failure = err
		out.Record = features.Sentinel(filename)
		return a.finish(ctx, logger, out, nil, nil)
	}

	best := -1
	for _, strategy := range a.opts.Strategies {
		if err := runctl.Check(ctx, stageName, "search"); err != nil {
			return out, err
		}
		s := a.search(flat, strategy)
		out.Searches = append(out.Searches, s)
		if s.Err != nil {
			logging.WarnWithContext(logger, "period search failed", "search_failed",
				logging.String("strategy", strategy),
				logging.Error(s.Err),
				logging.String(logging.FieldImpact, "strategy skipped"),
			)
			continue
		}
		logger.Info("period search complete",
			logging.String("strategy", strategy),
			logging.Float64("period", s.Result.Period),
			logging.Float64("power", s.Result.Power),
			logging.Int("trial_periods", len(s.Result.Periods)),
		)
		if best < 0 || s.Result.Power > out.Searches[best].Result.Power {
			best = len(out.Searches) - 1
		}
	}
	if best < 0 {
		out.Failure = services.Wrap(services.ErrFitNonConvergent, stageName, "search", "no strategy found a transit signal", out.Searches[0].Err)
		out.Record = features.Sentinel(filename)
		return a.finish(ctx, logger, out, flat, nil)
	}
	if err := runctl.Check(ctx, stageName, "fit"); err != nil {
		return out, err
	}

	chosen := out.Searches[best].Result
	out.Strategy = out.Searches[best].Strategy
	seedFold := flat.Fold(chosen.Period, chosen.Epoch)
	depth := observedDepth(seedFold, chosen.Duration)
	if math.IsNaN(depth) {
		depth = chosen.Depth
	}
	if depth < minObservableDepth {
		depth = 0
	}

	fit, err := transit.Fit(flat, transit.Seed{Period: chosen.Period, T0: chosen.Epoch, Depth: depth, Duration: chosen.Duration}, a.opts.Fit)
	if err != nil {
		out.Failure = err
		out.Record = features.Sentinel(filename)
		return a.finish(ctx, logger, out, flat, nil)
	}
	out.Fit = &fit
	p := fit.Params
	folded := flat.Fold(p.Period, p.T0)
	derived := transit.Derive(a.opts.Fit.Model, p, folded.Time, chosen.Power)
	out.Record = features.Record{
		Filename: filename,
		Period:   p.Period,
		T0:       p.T0,
		RpRs:     p.RpRs,
		ARs:      p.ARs,
		Inc:      p.Inc,
		Duration: derived.Duration,
		Depth:    derived.Depth,
		SNR:      derived.SNR,
	}
	logger.Debug("transit fit converged",
		logging.Int("iterations", fit.Iterations),
		logging.Float64("chi_square", fit.ChiSquare),
	)
	return a.finish(ctx, logger, out, flat, &p)
}

func (a *Analyzer) preprocess(raw *lightcurve.LightCurve, logger *slog.Logger) (*lightcurve.LightCurve, error) {
	clean := raw.RemoveNaNs()
	if clean.Len() < 3 {
		return nil, services.Wrap(services.ErrFitNonConvergent, stageName, "preprocess",
			fmt.Sprintf("%d finite samples", clean.Len()), nil)
	}
	var removed int
	if a.opts.ClipDips {
		clean, removed = clean.RemoveOutliers(a.opts.OutlierSigma)
	} else {
		clean, removed = clean.RemoveFlares(a.opts.OutlierSigma)
	}
	flat, _, err := clean.SortByTime().Flatten(a.opts.Flatten)
	if err != nil {
		return nil, services.Wrap(services.ErrFitNonConvergent, stageName, "flatten", "", err)
	}
	logger.Debug("light curve prepared",
		logging.Int("samples", raw.Len()),
		logging.Int("kept", flat.Len()),
		logging.Int("outliers", removed),
	)
	return flat, nil
}

func (a *Analyzer) search(lc *lightcurve.LightCurve, strategy string) Search {
	s := Search{Strategy: strings.ToLower(strings.TrimSpace(strategy))}
	periods, err := bls.Periods(s.Strategy, a.opts.Grid, lc)
	if err != nil {
		s.Err = err
		return s
	}
	s.Result, s.Err = bls.Search(lc, periods, a.opts.Search)
	return s
}

// finish classifies the record and writes every artifact. flat is nil when
// preprocessing failed; fitted is nil for sentinel records.
func (a *Analyzer) finish(ctx context.Context, logger *slog.Logger, out Outcome, flat *lightcurve.LightCurve, fitted *transit.Params) (Outcome, error) {
	if err := runctl.Check(ctx, stageName, "persist"); err != nil {
		return out, err
	}
	stem := textutil.Stem(out.Path)

	if flat != nil {
		if folded := a.foldFor(flat, out, fitted); folded != nil {
			path := filepath.Join(a.opts.FoldedDir, stem+"_folded.csv")
			if err := folded.WriteCSV(path); err != nil {
				return out, services.Wrap(services.ErrTransient, stageName, "write folded", path, err)
			}
			out.Folded = path
		}
		if a.opts.Plots {
			out.Plots = a.plotAll(logger, stem, flat, &out, fitted)
		}
	}

	out.Record.Classification = classifier.Classify(a.model, out.Record)
	if err := a.persist(ctx, out); err != nil {
		return out, err
	}

	if out.Failure != nil {
		logging.WarnWithContext(logger, "analysis produced no fit", "fit_failed",
			logging.Error(out.Failure),
			logging.String(logging.FieldErrorCategory, services.Category(out.Failure)),
			logging.String(logging.FieldImpact, "sentinel record written"),
		)
		return out, nil
	}
	logger.Info("analysis complete",
		logging.String("strategy", out.Strategy),
		logging.Float64("period", out.Record.Period),
		logging.Float64("depth", out.Record.Depth),
		logging.Float64("duration", out.Record.Duration),
		logging.String("classification", out.Record.Classification),
	)
	return out, nil
}

// foldFor folds on the fitted ephemeris, or on the strongest BLS candidate
// when the fit failed.
func (a *Analyzer) foldFor(flat *lightcurve.LightCurve, out Outcome, fitted *transit.Params) *lightcurve.LightCurve {
	if fitted != nil {
		return flat.Fold(fitted.Period, fitted.T0)
	}
	for _, s := range out.Searches {
		if s.Strategy == out.Strategy && s.Err == nil {
			return flat.Fold(s.Result.Period, s.Result.Epoch)
		}
	}
	return nil
}

func (a *Analyzer) plotAll(logger *slog.Logger, stem string, flat *lightcurve.LightCurve, out *Outcome, fitted *transit.Params) []string {
	var paths []string
	for i := range out.Searches {
		s := &out.Searches[i]
		if s.Err != nil {
			continue
		}
		fig := plot.Figure{
			Title:   fmt.Sprintf("%s (%s)", stem, s.Strategy),
			Period:  s.Result.Period,
			Folded:  flat.Fold(s.Result.Period, s.Result.Epoch),
			Periods: s.Result.Periods,
			Powers:  s.Result.Powers,
		}
		if fitted != nil && s.Strategy == out.Strategy {
			fig.Period = fitted.Period
			fig.Folded = flat.Fold(fitted.Period, fitted.T0)
			fig.Model = modelCurve(a.opts.Fit.Model, *fitted)
		}
		path := filepath.Join(a.opts.PlotDir, stem+"_"+s.Strategy+".png")
		if err := plot.Save(path, fig, a.opts.Plot); err != nil {
			logging.WarnWithContext(logger, "plot failed", "plot_failed",
				logging.String("strategy", s.Strategy),
				logging.Error(err),
				logging.String(logging.FieldImpact, "plot skipped"),
			)
			continue
		}
		s.Plot = path
		paths = append(paths, path)
	}
	return paths
}

// persist records the outcome in the index and the feature CSV. A file that
// was already indexed has its row replaced, so the CSV is regenerated from
// the index rather than appended to.
func (a *Analyzer) persist(ctx context.Context, out Outcome) error {
	rec := out.Record
	if a.index == nil {
		if err := a.sink.Append(rec); err != nil {
			return services.Wrap(services.ErrTransient, stageName, "append record", rec.Filename, err)
		}
		return nil
	}

	existed, err := a.index.Has(ctx, rec.Filename)
	if err != nil {
		return services.Wrap(services.ErrTransient, stageName, "index lookup", rec.Filename, err)
	}
	entry := store.Entry{
		Record:        rec,
		Strategy:      out.Strategy,
		ErrorCategory: services.Category(out.Failure),
		RunID:         a.opts.RunID,
	}
	if err := a.index.Upsert(ctx, entry); err != nil {
		return services.Wrap(services.ErrTransient, stageName, "index upsert", rec.Filename, err)
	}
	if !existed {
		if err := a.sink.Append(rec); err != nil {
			return services.Wrap(services.ErrTransient, stageName, "append record", rec.Filename, err)
		}
		return nil
	}
	all, err := a.index.Records(ctx)
	if err != nil {
		return services.Wrap(services.ErrTransient, stageName, "read index", "", err)
	}
	if err := a.sink.Merge(all); err != nil {
		return services.Wrap(services.ErrTransient, stageName, "rewrite records", "", err)
	}
	return nil
}

// observedDepth is the drop of the in-transit median below the
// out-of-transit median, as a fraction. NaN when either side is empty.
func observedDepth(folded *lightcurve.LightCurve, duration float64) float64 {
	var in, outside []float64
	for i, t := range folded.Time {
		switch {
		case math.Abs(t) < duration/2:
			in = append(in, folded.Flux[i])
		case math.Abs(t) > duration:
			outside = append(outside, folded.Flux[i])
		}
	}
	if len(in) == 0 || len(outside) == 0 {
		return math.NaN()
	}
	base := lightcurve.Median(outside)
	if base == 0 {
		return math.NaN()
	}
	return (base - lightcurve.Median(in)) / base
}

func modelCurve(m transit.Model, p transit.Params) *lightcurve.LightCurve {
	const samples = 600
	p.T0 = 0
	times := make([]float64, samples)
	for i := range times {
		times[i] = -p.Period/2 + p.Period*float64(i)/float64(samples-1)
	}
	lc, _ := lightcurve.New(times, m.Fluxes(times, p))
	return lc
}

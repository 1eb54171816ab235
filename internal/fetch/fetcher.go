package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"exohunt/internal/archive"
	"exohunt/internal/config"
	"exohunt/internal/fileutil"
	"exohunt/internal/lightcurve"
	"exohunt/internal/logging"
	"exohunt/internal/runctl"
	"exohunt/internal/services"
	"exohunt/internal/textutil"
)

const stageName = "fetch"

// Archive is the subset of the archive client used by the fetcher.
type Archive interface {
	Search(ctx context.Context, q archive.Query) ([]archive.Segment, error)
	Download(ctx context.Context, seg archive.Segment) (*lightcurve.LightCurve, error)
}

var _ Archive = (*archive.Client)(nil)

// Options controls where and what the fetcher writes.
type Options struct {
	OutputDir              string
	Mission                string
	NameMission            string
	Author                 string
	ExposureTime           float64
	Catalog                string
	MaxConsecutiveFailures int
	Overwrite              bool
}

// OptionsFromConfig reads the archive, targets and paths sections.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		OutputDir:              cfg.Paths.LightcurveDir,
		Mission:                cfg.Archive.Mission,
		NameMission:            cfg.Archive.NameMission,
		Author:                 cfg.Archive.Author,
		ExposureTime:           cfg.Archive.ExposureTime,
		Catalog:                cfg.Targets.Catalog,
		MaxConsecutiveFailures: cfg.Archive.MaxConsecutiveFailures,
	}
}

// Report summarises one target.
type Report struct {
	Target   string
	Segments int
	Written  []string
	Existing []string
	Empty    int
	Failed   int
	// Skipped counts segments never attempted because the circuit breaker
	// opened.
	Skipped int
}

// Files returns every CSV available for the target after the fetch, written
// or pre-existing.
func (r Report) Files() []string {
	out := make([]string, 0, len(r.Written)+len(r.Existing))
	out = append(out, r.Written...)
	return append(out, r.Existing...)
}

// Fetcher coordinates archive searches and per-segment CSV output.
type Fetcher struct {
	archive Archive
	opts    Options
	logger  *slog.Logger
}

// New constructs a fetcher.
func New(client Archive, opts Options, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.MaxConsecutiveFailures <= 0 {
		opts.MaxConsecutiveFailures = 3
	}
	if opts.Catalog == "" {
		opts.Catalog = archive.CatalogFor(opts.Mission)
	}
	return &Fetcher{archive: client, opts: opts, logger: logging.NewComponentLogger(logger, stageName)}
}

// TargetName formats a catalog identifier as the archive expects it.
func (f *Fetcher) TargetName(id int64) string {
	return f.opts.Catalog + " " + strconv.FormatInt(id, 10)
}

// SegmentPath is the CSV location of one segment of target.
func (f *Fetcher) SegmentPath(target string, seg archive.Segment) string {
	name := fmt.Sprintf("%s_%s_lightcurve.csv", textutil.CleanTarget(target), seg.UniqueID())
	return filepath.Join(f.opts.OutputDir, textutil.MissionLabel(seg.Mission), name)
}

// query builds the archive search for target. Catalog ids use the configured
// author and cadence; free-form names search opts.NameMission, and searching
// every mission drops both filters.
func (f *Fetcher) query(target string) archive.Query {
	q := archive.Query{
		Target:       target,
		Author:       f.opts.Author,
		ExposureTime: f.opts.ExposureTime,
		Mission:      f.opts.Mission,
	}
	if _, _, ok := archive.ParseCatalogID(target); ok {
		return q
	}
	q.Mission = f.opts.NameMission
	if archive.AllMissions(q.Mission) {
		q.Mission = archive.MissionAll
		q.Author = ""
		q.ExposureTime = 0
	}
	return q
}

// FetchTarget downloads every segment of target. A target without segments
// returns an empty report and a nil error. Cancellation of ctx abandons the
// remaining segments and returns ErrInterrupted.
func (f *Fetcher) FetchTarget(ctx context.Context, target string) (Report, error) {
	ctx = services.WithStage(services.WithTarget(ctx, target), stageName)
	logger := logging.WithContext(ctx, f.logger)
	report := Report{Target: target}

	if err := runctl.Check(ctx, stageName, "search"); err != nil {
		return report, err
	}
	segments, err := f.archive.Search(ctx, f.query(target))
	if err != nil {
		if ctx.Err() != nil {
			return report, runctl.Check(ctx, stageName, "search")
		}
		return report, err
	}
	report.Segments = len(segments)
	if len(segments) == 0 {
		logger.Info("no light curves found", logging.String("mission", f.opts.Mission))
		return report, nil
	}
	logger.Info("light curves found", logging.Int("segments", len(segments)))

	consecutive := 0
	for i, seg := range segments {
		if err := runctl.Check(ctx, stageName, "download"); err != nil {
			logger.Info("target abandoned", logging.Int("remaining", len(segments)-i))
			return report, err
		}
		path := f.SegmentPath(target, seg)
		segLogger := logger.With(logging.String("segment", seg.UniqueID()), logging.String(logging.FieldFile, path))
		if !f.opts.Overwrite && fileutil.Exists(path) {
			segLogger.Debug("light curve already on disk")
			report.Existing = append(report.Existing, path)
			continue
		}

		lc, err := f.archive.Download(ctx, seg)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("target abandoned", logging.Int("remaining", len(segments)-i))
				return report, runctl.Check(ctx, stageName, "download")
			}
			report.Failed++
			consecutive++
			logging.WarnWithContext(segLogger, "segment download failed", "segment_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorCategory, services.Category(err)),
				logging.String(logging.FieldImpact, "segment skipped"),
			)
			if consecutive >= f.opts.MaxConsecutiveFailures {
				report.Skipped = len(segments) - i - 1
				logging.WarnWithContext(logger, "too many consecutive download failures", "circuit_open",
					logging.Int("failures", consecutive),
					logging.Int("skipped", report.Skipped),
					logging.String(logging.FieldImpact, "remaining segments of this target skipped"),
				)
				break
			}
			continue
		}
		consecutive = 0

		if lc.Len() == 0 {
			report.Empty++
			segLogger.Info("segment has no samples; skipping")
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return report, fmt.Errorf("create light curve directory: %w", err)
		}
		if err := lc.WriteCSV(path); err != nil {
			return report, fmt.Errorf("write %s: %w", path, err)
		}
		report.Written = append(report.Written, path)
		segLogger.Info("light curve saved", logging.Int("samples", lc.Len()))
	}
	return report, nil
}

// StitchReport reads the CSVs a FetchTarget call left on disk, normalises
// each by its median and concatenates them in time order. Unreadable and
// empty files are skipped.
func (f *Fetcher) StitchReport(ctx context.Context, report Report) (*lightcurve.LightCurve, error) {
	ctx = services.WithStage(services.WithTarget(ctx, report.Target), stageName)
	logger := logging.WithContext(ctx, f.logger)

	var parts []*lightcurve.LightCurve
	for _, path := range report.Files() {
		if err := runctl.Check(ctx, stageName, "stitch"); err != nil {
			return nil, err
		}
		lc, err := lightcurve.ReadCSV(path)
		if err != nil {
			logging.WarnWithContext(logger, "segment unreadable", "segment_unreadable",
				logging.String(logging.FieldFile, path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "segment left out of stitched curve"),
			)
			continue
		}
		if clean := lc.RemoveNaNs(); clean.Len() > 0 {
			parts = append(parts, clean)
		}
	}
	if len(parts) == 0 {
		return nil, services.Wrap(services.ErrNotFound, stageName, "stitch", "no usable segments for "+report.Target, nil)
	}
	sort.SliceStable(parts, func(i, j int) bool { return parts[i].Time[0] < parts[j].Time[0] })
	stitched := lightcurve.Stitch(parts...)
	logger.Info("light curves stitched", logging.Int("segments", len(parts)), logging.Int("samples", stitched.Len()))
	return stitched, nil
}

// Batch runs loop items under the run's cancellation contract.
type Batch interface {
	ForEach(n int, fn func(ctx context.Context, index int) error) error
}

// Summary totals a batch of targets.
type Summary struct {
	Targets     int
	WithData    int
	Written     int
	Failed      int
	Interrupted int
	Files       []string
	// Reports holds one entry per target attempted, in batch order.
	Reports []Report
}

// FetchAll runs FetchTarget for every target in order. Per-target failures are
// logged and the batch continues.
func (f *Fetcher) FetchAll(batch Batch, targets []string) (Summary, error) {
	summary := Summary{Targets: len(targets)}
	progress := logging.NewBatchProgress(len(targets), 10)
	err := batch.ForEach(len(targets), func(ctx context.Context, i int) error {
		target := targets[i]
		ctx = services.WithTarget(ctx, target)
		logger := logging.WithContext(ctx, f.logger)
		logger.Info("fetching target")

		report, err := f.FetchTarget(ctx, target)
		summary.Written += len(report.Written)
		summary.Reports = append(summary.Reports, report)
		summary.Files = append(summary.Files, report.Files()...)
		if len(report.Files()) > 0 {
			summary.WithData++
		}
		switch {
		case runctl.IsInterrupt(err):
			summary.Interrupted++
		case err != nil:
			summary.Failed++
			logging.ErrorWithContext(logger, "target fetch failed", "target_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorCategory, services.Category(err)),
			)
		}
		if done := i + 1; progress.ShouldLog(done) {
			f.logger.Info("fetch progress",
				logging.Int("done", done),
				logging.Int("total", len(targets)),
				logging.Float64("percent", progress.Percent(done)),
			)
		}
		return err
	})
	return summary, err
}

// TargetNames formats catalog identifiers for FetchAll.
func (f *Fetcher) TargetNames(ids []int64) []string {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = f.TargetName(id)
	}
	return names
}

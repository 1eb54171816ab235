package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"exohunt/internal/archive"
	"exohunt/internal/fetch"
	"exohunt/internal/logging"
	"exohunt/internal/runctl"
	"exohunt/internal/services"
	"exohunt/internal/targets"
	"exohunt/internal/textutil"
)

type fetchFlags struct {
	targetsFile string
	names       []string
	overwrite   bool
	author      string
	exptime     float64
	stitch      bool
}

func (f *fetchFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.targetsFile, "targets", "", "Star table to read identifiers from (defaults to paths.targets_file)")
	cmd.Flags().StringSliceVar(&f.names, "target", nil, "Fetch these targets by name instead of reading the star table (repeatable)")
	cmd.Flags().BoolVar(&f.overwrite, "overwrite", false, "Replace light-curve files that already exist")
	cmd.Flags().StringVar(&f.author, "author", "", "Pipeline provenance filter (defaults to archive.author)")
	cmd.Flags().Float64Var(&f.exptime, "exptime", 0, "Exposure time filter in seconds, 0 disables (defaults to archive.exposure_time)")
	cmd.Flags().BoolVar(&f.stitch, "stitch", false, "Also write one median-normalised stitched curve per target")
}

func (f *fetchFlags) options(cmd *cobra.Command, sess *runSession) fetch.Options {
	opts := fetch.OptionsFromConfig(sess.cfg)
	opts.Overwrite = f.overwrite
	if author := strings.TrimSpace(f.author); author != "" {
		opts.Author = author
	}
	if cmd.Flags().Changed("exptime") {
		opts.ExposureTime = f.exptime
	}
	return opts
}

func newFetchCommand(ctx *commandContext) *cobra.Command {
	var flags fetchFlags

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download light curves for every target",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := ctx.startRun(cmd, "fetch")
			if err != nil {
				return err
			}
			defer sess.Close()

			fetcher := newFetcher(sess, flags.options(cmd, sess))
			names, err := flags.resolveTargets(sess, fetcher)
			if err != nil {
				return err
			}
			summary, err := runFetch(sess, fetcher, names, flags.stitch)
			printFetchSummary(cmd.OutOrStdout(), summary)
			return err
		},
	}
	flags.register(cmd)
	return cmd
}

func newFetcher(sess *runSession, opts fetch.Options) *fetch.Fetcher {
	client := archive.New(archive.OptionsFromConfig(sess.cfg), archive.WithLogger(sess.logger))
	return fetch.New(client, opts, sess.logger)
}

func (f *fetchFlags) resolveTargets(sess *runSession, fetcher *fetch.Fetcher) ([]string, error) {
	if len(f.names) > 0 {
		names := make([]string, 0, len(f.names))
		for _, name := range f.names {
			if trimmed := strings.TrimSpace(name); trimmed != "" {
				names = append(names, trimmed)
			}
		}
		return names, nil
	}
	path, err := resolveTargetsFile(sess.cfg, f.targetsFile)
	if err != nil {
		return nil, err
	}
	result, err := targets.Load(path, targetOptions(sess.cfg, sess.logger))
	if err != nil {
		return nil, err
	}
	sess.logger.Info("targets loaded",
		logging.String(logging.FieldFile, path),
		logging.Int("ids", len(result.IDs)),
		logging.Int("skipped_rows", len(result.Skipped)),
	)
	return fetcher.TargetNames(result.IDs), nil
}

// runFetch downloads every target and, when stitch is set, writes a stitched
// curve per target with data under <lightcurve_dir>/stitched, built from the
// segment CSVs just fetched.
func runFetch(sess *runSession, fetcher *fetch.Fetcher, names []string, stitch bool) (fetch.Summary, error) {
	if len(names) == 0 {
		sess.logger.Warn("no targets to fetch",
			logging.String(logging.FieldEventType, "targets_empty"),
			logging.String(logging.FieldImpact, "nothing downloaded"),
		)
		return fetch.Summary{}, nil
	}
	summary, err := fetcher.FetchAll(sess.ctrl, names)
	if err != nil || !stitch {
		return summary, err
	}

	dir := filepath.Join(sess.cfg.Paths.LightcurveDir, "stitched")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return summary, fmt.Errorf("create stitched directory: %w", err)
	}
	reports := make([]fetch.Report, 0, len(summary.Reports))
	for _, r := range summary.Reports {
		if len(r.Files()) > 0 {
			reports = append(reports, r)
		}
	}
	err = sess.ctrl.ForEach(len(reports), func(itemCtx context.Context, i int) error {
		report := reports[i]
		logger := logging.WithContext(services.WithTarget(itemCtx, report.Target), sess.logger)
		lc, err := fetcher.StitchReport(itemCtx, report)
		if err != nil {
			if !runctl.IsInterrupt(err) {
				logging.WarnWithContext(logger, "stitch failed", "stitch_failed",
					logging.Error(err),
					logging.String(logging.FieldErrorCategory, services.Category(err)),
				)
			}
			return err
		}
		path := filepath.Join(dir, textutil.CleanTarget(report.Target)+"_stitched_lightcurve.csv")
		if err := lc.WriteCSV(path); err != nil {
			logging.ErrorWithContext(logger, "write stitched curve failed", "stitch_write_failed",
				logging.String(logging.FieldFile, path),
				logging.Error(err),
			)
			return fmt.Errorf("write stitched curve: %w", err)
		}
		summary.Files = append(summary.Files, path)
		logger.Info("stitched curve written", logging.String(logging.FieldFile, path))
		return nil
	})
	return summary, err
}

func printFetchSummary(out io.Writer, summary fetch.Summary) {
	fmt.Fprintf(out, "Targets: %d  with data: %d  files written: %d  failed: %d  interrupted: %d\n",
		summary.Targets, summary.WithData, summary.Written, summary.Failed, summary.Interrupted)
}

package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"exohunt/internal/analysis"
	"exohunt/internal/classifier"
	"exohunt/internal/logging"
	"exohunt/internal/results"
)

type analyzeFlags struct {
	force      bool
	strategies []string
	noPlots    bool
}

func (f *analyzeFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.force, "force", false, "Reprocess files already recorded in the index")
	cmd.Flags().StringSliceVar(&f.strategies, "strategy", nil, "Period grid strategies to run: linear, array, auto (defaults to search.strategies)")
	cmd.Flags().BoolVar(&f.noPlots, "no-plots", false, "Skip diagnostic plots for this run")
}

func (f *analyzeFlags) options(sess *runSession) (analysis.Options, error) {
	opts := analysis.OptionsFromConfig(sess.cfg)
	opts.Force = f.force
	opts.RunID = sess.runID
	if f.noPlots {
		opts.Plots = false
	}
	if len(f.strategies) > 0 {
		strategies := make([]string, 0, len(f.strategies))
		for _, raw := range f.strategies {
			name := strings.ToLower(strings.TrimSpace(raw))
			switch name {
			case "linear", "array", "auto":
				strategies = append(strategies, name)
			default:
				return analysis.Options{}, fmt.Errorf("unknown --strategy %q (want linear, array or auto)", raw)
			}
		}
		opts.Strategies = strategies
	}
	return opts, nil
}

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var flags analyzeFlags

	cmd := &cobra.Command{
		Use:   "analyze [file-or-dir...]",
		Short: "Search, fit and classify saved light curves",
		Long: "Analyze every light-curve CSV under the given files or directories " +
			"(default: paths.lightcurve_dir). Each file gets a folded curve, plots, " +
			"and one row in the feature CSV.",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := ctx.startRun(cmd, "analyze")
			if err != nil {
				return err
			}
			defer sess.Close()

			roots := args
			if len(roots) == 0 {
				roots = []string{sess.cfg.Paths.LightcurveDir}
			}
			files, err := collectLightCurves(roots)
			if err != nil {
				return err
			}
			summary, err := runAnalyze(sess, &flags, files)
			printAnalyzeSummary(cmd.OutOrStdout(), summary, sess.cfg.Paths.FeatureCSV)
			return err
		},
	}
	flags.register(cmd)
	return cmd
}

func collectLightCurves(roots []string) ([]string, error) {
	var files []string
	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("light-curve input %s: %w", root, err)
		}
		if !info.IsDir() {
			files = append(files, root)
			continue
		}
		found, err := analysis.DiscoverFiles(root)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	return files, nil
}

func runAnalyze(sess *runSession, flags *analyzeFlags, files []string) (analysis.Summary, error) {
	opts, err := flags.options(sess)
	if err != nil {
		return analysis.Summary{}, err
	}
	if len(files) == 0 {
		sess.logger.Warn("no light curves to analyze",
			logging.String(logging.FieldEventType, "files_empty"),
			logging.String(logging.FieldImpact, "nothing analyzed"),
		)
		return analysis.Summary{}, nil
	}

	model := classifier.LoadOptional(sess.cfg.Paths.ModelPath, sess.logger)
	st, err := openIndex(sess.cfg)
	if err != nil {
		return analysis.Summary{}, err
	}
	var index analysis.Index
	if st != nil {
		defer st.Close()
		index = st
	}
	writer := results.NewWriter(sess.cfg.Paths.FeatureCSV)

	analyzer := analysis.New(opts, model, index, writer, sess.logger)
	return analyzer.AnalyzeAll(sess.ctrl, files)
}

func printAnalyzeSummary(out io.Writer, summary analysis.Summary, featureCSV string) {
	fmt.Fprintf(out, "Files: %d  analyzed: %d  skipped: %d  failed fits: %d  errors: %d  interrupted: %d\n",
		summary.Files, summary.Analyzed, summary.Skipped, summary.Sentinels, summary.Failed, summary.Interrupted)
	if len(summary.Classes) == 0 {
		return
	}
	fmt.Fprintf(out, "Feature CSV: %s\n", featureCSV)
	fmt.Fprintln(out, renderClassCounts(summary.Classes))
}

func renderClassCounts(counts map[string]int) string {
	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	rows := make([][]string, 0, len(labels))
	for _, label := range labels {
		rows = append(rows, []string{label, strconv.Itoa(counts[label])})
	}
	return renderTable([]string{"Classification", "Files"}, rows, []columnAlignment{alignLeft, alignRight})
}

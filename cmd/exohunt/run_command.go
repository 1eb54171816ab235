package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"exohunt/internal/logging"
	"exohunt/internal/runctl"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var fetchOpts fetchFlags
	var analyzeOpts analyzeFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Load targets, fetch their light curves and analyze them in one pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := ctx.startRun(cmd, "run")
			if err != nil {
				return err
			}
			defer sess.Close()
			out := cmd.OutOrStdout()

			fetcher := newFetcher(sess, fetchOpts.options(cmd, sess))
			names, err := fetchOpts.resolveTargets(sess, fetcher)
			if err != nil {
				return err
			}
			fetched, err := runFetch(sess, fetcher, names, fetchOpts.stitch)
			printFetchSummary(out, fetched)
			if err != nil && !runctl.IsInterrupt(err) {
				return err
			}
			if sess.ctrl.Stopped() {
				return err
			}

			files := dedupe(fetched.Files)
			sess.logger.Info("analysis queued", logging.Int("files", len(files)))
			analyzed, err := runAnalyze(sess, &analyzeOpts, files)
			printAnalyzeSummary(out, analyzed, sess.cfg.Paths.FeatureCSV)
			if err != nil {
				return fmt.Errorf("analyze: %w", err)
			}
			return nil
		},
	}
	fetchOpts.register(cmd)
	analyzeOpts.register(cmd)
	return cmd
}

func dedupe(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

package main

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"exohunt/internal/config"
	"exohunt/internal/targets"
)

func targetOptions(cfg *config.Config, logger *slog.Logger) targets.Options {
	return targets.Options{
		Strategy:   targets.Strategy(cfg.Targets.Strategy),
		HeaderLine: cfg.Targets.HeaderLine,
		SkipRows:   cfg.Targets.SkipRows,
		IDColumn:   cfg.Targets.IDColumn,
		Logger:     logger,
	}
}

// resolveTargetsFile prefers the flag over paths.targets_file.
func resolveTargetsFile(cfg *config.Config, flag string) (string, error) {
	path := strings.TrimSpace(flag)
	if path == "" {
		path = cfg.Paths.TargetsFile
	}
	if path == "" {
		return "", fmt.Errorf("no targets file: pass --targets or set paths.targets_file")
	}
	return config.ExpandPath(path)
}

type targetsJSON struct {
	File     string               `json:"file"`
	IDColumn string               `json:"id_column"`
	IDs      []int64              `json:"ids"`
	Skipped  []targets.SkippedRow `json:"skipped"`
}

func newTargetsCommand(ctx *commandContext) *cobra.Command {
	var targetsFile string
	var jsonOut bool
	var showAll bool

	cmd := &cobra.Command{
		Use:   "targets",
		Short: "Parse the star table and report valid catalog identifiers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path, err := resolveTargetsFile(cfg, targetsFile)
			if err != nil {
				return err
			}
			result, err := targets.Load(path, targetOptions(cfg, ctx.quietLogger()))
			if err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd, targetsJSON{
					File:     path,
					IDColumn: result.IDColumn,
					IDs:      result.IDs,
					Skipped:  result.Skipped,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Loaded %d target IDs from %s (column %q, %d rows skipped)\n",
				len(result.IDs), path, result.IDColumn, len(result.Skipped))
			if showAll && len(result.IDs) > 0 {
				rows := make([][]string, 0, len(result.IDs))
				for i, id := range result.IDs {
					rows = append(rows, []string{strconv.Itoa(i + 1), strconv.FormatInt(id, 10)})
				}
				fmt.Fprintln(out, renderTable([]string{"#", "ID"}, rows, []columnAlignment{alignRight, alignRight}))
			}
			if len(result.Skipped) > 0 {
				rows := make([][]string, 0, len(result.Skipped))
				for _, skipped := range result.Skipped {
					rows = append(rows, []string{
						strconv.Itoa(skipped.Line),
						skipped.Reason,
						truncate(skipped.Raw, 60),
					})
				}
				fmt.Fprintln(out, "Skipped rows:")
				fmt.Fprintln(out, renderTable([]string{"Line", "Reason", "Row"}, rows, []columnAlignment{alignRight, alignLeft, alignLeft}))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&targetsFile, "targets", "", "Star table to parse (defaults to paths.targets_file)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of tables")
	cmd.Flags().BoolVar(&showAll, "all", false, "List every parsed identifier")
	return cmd
}

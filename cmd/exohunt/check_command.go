package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"exohunt/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var offline bool
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run preflight checks against the archive, directories and artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			checks := preflight.RunAll(cmd.Context(), cfg, offline)
			failed := preflight.Failed(checks)

			if jsonOut {
				if err := writeJSON(cmd, checks); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				rows := make([][]string, 0, len(checks))
				for _, r := range checks {
					rows = append(rows, []string{r.Name, statusLabel(r.Passed, colorize), yesNo(r.Optional), r.Detail})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Check", "Status", "Optional", "Detail"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
				))
			}
			if len(failed) > 0 {
				return fmt.Errorf("%d required check(s) failed", len(failed))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the archive reachability check")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON")
	return cmd
}

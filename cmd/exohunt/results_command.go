package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"exohunt/internal/results"
	"exohunt/internal/store"
)

// resultJSON mirrors store.Entry with NaN fields as null.
type resultJSON struct {
	Filename       string    `json:"filename"`
	Period         jsonFloat `json:"period"`
	T0             jsonFloat `json:"t0"`
	RpRs           jsonFloat `json:"rp_rs"`
	ARs            jsonFloat `json:"a_rs"`
	Inc            jsonFloat `json:"inc"`
	Duration       jsonFloat `json:"duration"`
	Depth          jsonFloat `json:"depth"`
	SNR            jsonFloat `json:"snr"`
	Classification string    `json:"classification"`
	Strategy       string    `json:"strategy,omitempty"`
	ErrorCategory  string    `json:"error_category,omitempty"`
	RunID          string    `json:"run_id,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toResultJSON(e store.Entry) resultJSON {
	r := e.Record
	return resultJSON{
		Filename:       r.Filename,
		Period:         jsonFloat(r.Period),
		T0:             jsonFloat(r.T0),
		RpRs:           jsonFloat(r.RpRs),
		ARs:            jsonFloat(r.ARs),
		Inc:            jsonFloat(r.Inc),
		Duration:       jsonFloat(r.Duration),
		Depth:          jsonFloat(r.Depth),
		SNR:            jsonFloat(r.SNR),
		Classification: r.Classification,
		Strategy:       e.Strategy,
		ErrorCategory:  e.ErrorCategory,
		RunID:          e.RunID,
		UpdatedAt:      e.UpdatedAt,
	}
}

func newResultsCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	var class string
	var rebuild bool
	var remove []string

	cmd := &cobra.Command{
		Use:   "results",
		Short: "Show processed light curves from the index",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.Run.UseIndex {
				return fmt.Errorf("the results index is disabled (run.use_index = false)")
			}
			st, err := store.Open(cfg)
			if err != nil {
				return fmt.Errorf("open index: %w", err)
			}
			defer st.Close()

			out := cmd.OutOrStdout()
			c := cmd.Context()
			dropped := make([]string, 0, len(remove))
			for _, name := range remove {
				dropped = append(dropped, filepath.Base(name))
				removed, err := st.Remove(c, filepath.Base(name))
				if err != nil {
					return err
				}
				if removed {
					fmt.Fprintf(out, "Removed %s from the index\n", name)
				} else {
					fmt.Fprintf(out, "%s was not in the index\n", name)
				}
			}
			if rebuild || len(remove) > 0 {
				recs, err := st.Records(c)
				if err != nil {
					return err
				}
				writer := results.NewWriter(cfg.Paths.FeatureCSV)
				if rebuild {
					err = writer.Rewrite(recs)
				} else {
					err = writer.Merge(recs, dropped...)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Rewrote %s from %d indexed rows\n", cfg.Paths.FeatureCSV, len(recs))
			}

			entries, err := st.List(c)
			if err != nil {
				return err
			}
			if class = strings.TrimSpace(class); class != "" {
				filtered := entries[:0]
				for _, e := range entries {
					if strings.EqualFold(e.Record.Classification, class) {
						filtered = append(filtered, e)
					}
				}
				entries = filtered
			}

			if jsonOut {
				view := make([]resultJSON, 0, len(entries))
				for _, e := range entries {
					view = append(view, toResultJSON(e))
				}
				return writeJSON(cmd, view)
			}

			if len(entries) == 0 {
				fmt.Fprintln(out, "No processed light curves")
				return nil
			}
			colorize := shouldColorize(out)
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				r := e.Record
				rows = append(rows, []string{
					truncate(r.Filename, 48),
					formatFloat(r.Period, 4),
					formatFloat(r.Depth*1e6, 0),
					formatFloat(r.Duration*24, 2),
					formatFloat(r.RpRs, 3),
					formatFloat(r.SNR, 1),
					classLabel(r.Classification, colorize),
					e.Strategy,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"File", "Period [d]", "Depth [ppm]", "Duration [h]", "Rp/Rs", "SNR", "Class", "Strategy"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft, alignLeft},
			))

			counts, err := st.ClassCounts(c)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, renderClassCounts(counts))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON")
	cmd.Flags().StringVar(&class, "class", "", "Only show entries with this classification")
	cmd.Flags().BoolVar(&rebuild, "rebuild-csv", false, "Regenerate the feature CSV from the index alone, dropping rows for files it does not hold")
	cmd.Flags().StringSliceVar(&remove, "remove", nil, "Drop these filenames from the index so the next analyze reprocesses them")
	return cmd
}

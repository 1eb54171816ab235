package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"exohunt/internal/classifier"
	"exohunt/internal/config"
	"exohunt/internal/features"
	"exohunt/internal/logging"
)

type trainOutput struct {
	Model   string            `json:"model"`
	Classes []string          `json:"classes"`
	Report  classifier.Report `json:"report"`
}

func newTrainCommand(ctx *commandContext) *cobra.Command {
	var featuresPath, labelsPath, outputPath string
	var seed uint64
	var estimators int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the random-forest classifier from labelled features",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			featuresFile, err := pathOr(featuresPath, cfg.Paths.TrainingFeatures, "--features", "paths.training_features")
			if err != nil {
				return err
			}
			labelsFile, err := pathOr(labelsPath, cfg.Paths.TrainingLabels, "--labels", "paths.training_labels")
			if err != nil {
				return err
			}
			output, err := pathOr(outputPath, cfg.Paths.ModelPath, "--output", "paths.model_path")
			if err != nil {
				return err
			}

			schema, err := features.SchemaFromConfig(cfg)
			if err != nil {
				return err
			}
			opts := classifier.TrainOptionsFromConfig(cfg)
			if cmd.Flags().Changed("seed") {
				opts.Seed = seed
			}
			if cmd.Flags().Changed("estimators") {
				opts.NEstimators = estimators
			}

			logger := ctx.quietLogger()
			ds, err := classifier.LoadDataset(featuresFile, labelsFile, schema)
			if err != nil {
				return err
			}
			model, report, err := classifier.Train(cmd.Context(), ds, schema, opts, logger)
			if err != nil {
				return err
			}
			if err := model.Save(output); err != nil {
				return err
			}
			logger.Info("classifier saved", logging.String(logging.FieldFile, output))

			if jsonOut {
				return writeJSON(cmd, trainOutput{Model: output, Classes: model.Classes, Report: report})
			}
			printTrainReport(cmd.OutOrStdout(), report, output)
			return nil
		},
	}

	cmd.Flags().StringVar(&featuresPath, "features", "", "Training feature table (defaults to paths.training_features)")
	cmd.Flags().StringVar(&labelsPath, "labels", "", "Training label table (defaults to paths.training_labels)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Artifact destination (defaults to paths.model_path)")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Override classifier.seed")
	cmd.Flags().IntVar(&estimators, "estimators", 0, "Override classifier.n_estimators")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the report as JSON")
	return cmd
}

func pathOr(flag, fallback, flagName, key string) (string, error) {
	path := strings.TrimSpace(flag)
	if path == "" {
		path = fallback
	}
	if path == "" {
		return "", fmt.Errorf("no path given: pass %s or set %s", flagName, key)
	}
	return config.ExpandPath(path)
}

func printTrainReport(out io.Writer, report classifier.Report, output string) {
	fmt.Fprintf(out, "Accuracy: %.2f\n", report.Accuracy)
	fmt.Fprintf(out, "Train rows: %d  test rows: %d\n", report.TrainRows, report.TestRows)

	rows := make([][]string, 0, len(report.Classes)+2)
	for _, c := range report.Classes {
		rows = append(rows, metricsRow(c.Label, c))
	}
	rows = append(rows, metricsRow("macro avg", report.MacroAvg))
	rows = append(rows, metricsRow("weighted avg", report.WeightedAvg))
	fmt.Fprintln(out, renderTable(
		[]string{"Class", "Precision", "Recall", "F1", "Support"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight},
	))
	fmt.Fprintf(out, "Model saved to %s\n", output)
}

func metricsRow(label string, m classifier.ClassMetrics) []string {
	return []string{
		label,
		formatFloat(m.Precision, 2),
		formatFloat(m.Recall, 2),
		formatFloat(m.F1, 2),
		strconv.Itoa(m.Support),
	}
}

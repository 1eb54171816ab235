package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/spf13/cobra"

	"exohunt/internal/classifier"
	"exohunt/internal/features"
)

type classifyResult struct {
	Label    string             `json:"label"`
	Features map[string]float64 `json:"features"`
	Model    string             `json:"model"`
}

func newClassifyCommand(ctx *commandContext) *cobra.Command {
	var modelPath string
	var jsonOut bool
	values := map[string]*float64{}

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify one feature vector with the trained model",
		Long: "Predict a label for a single candidate. Features are given in classifier " +
			"units (period days, depth ppm, duration hours, inclination degrees, " +
			"radius ratio, snr); omitted features are imputed with training means.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := strings.TrimSpace(modelPath)
			if path == "" {
				path = cfg.Paths.ModelPath
			}
			model, err := classifier.Load(path)
			if err != nil {
				return err
			}

			schema := model.Schema
			x := make([]float64, schema.Len())
			given := make(map[string]float64, schema.Len())
			for i, name := range schema.Names() {
				x[i] = math.NaN()
				if flag := cmd.Flags().Lookup(flagName(name)); flag != nil && flag.Changed {
					x[i] = *values[name]
					given[name] = x[i]
				}
			}
			label, err := model.Predict(x)
			if err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd, classifyResult{Label: label, Features: given, Model: path})
			}
			fmt.Fprintln(cmd.OutOrStdout(), classLabel(label, shouldColorize(cmd.OutOrStdout())))
			return nil
		},
	}

	schema, _ := features.NewSchema(nil)
	for _, f := range schema.Features {
		v := new(float64)
		values[f.Name] = v
		usage := f.Name
		if f.Unit != "" {
			usage += " [" + f.Unit + "]"
		}
		cmd.Flags().Float64Var(v, flagName(f.Name), 0, usage)
	}
	cmd.Flags().StringVar(&modelPath, "model", "", "Classifier artifact (defaults to paths.model_path)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON")
	return cmd
}

func flagName(feature string) string {
	return strings.ReplaceAll(feature, "_", "-")
}

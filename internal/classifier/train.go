package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"exohunt/internal/config"
	"exohunt/internal/features"
	"exohunt/internal/logging"
	"exohunt/internal/services"
)

// TrainOptions controls the split and the forest.
type TrainOptions struct {
	NEstimators    int
	MaxDepth       int
	MinSamplesLeaf int
	TestFraction   float64
	Seed           uint64
}

// TrainOptionsFromConfig reads the classifier section.
func TrainOptionsFromConfig(cfg *config.Config) TrainOptions {
	return TrainOptions{
		NEstimators:    cfg.Classifier.NEstimators,
		MaxDepth:       cfg.Classifier.MaxDepth,
		MinSamplesLeaf: cfg.Classifier.MinSamplesLeaf,
		TestFraction:   cfg.Classifier.TestFraction,
		Seed:           cfg.Classifier.Seed,
	}
}

// Train imputes column means, splits, fits the scaler and forest on the
// training half and evaluates on the held-out half.
func Train(ctx context.Context, ds Dataset, schema features.Schema, opts TrainOptions, logger *slog.Logger) (*Model, Report, error) {
	logger = logging.NewComponentLogger(logger, "classifier")
	if ds.Len() == 0 {
		return nil, Report{}, services.Wrap(services.ErrValidation, "train", "fit", "training table has no rows", nil)
	}

	imputer := FitImputer(ds.X)
	X := imputer.ApplyAll(ds.X)

	classes := slices.Clone(ds.Labels)
	slices.Sort(classes)
	classes = slices.Compact(classes)
	if len(classes) < 2 {
		return nil, Report{}, services.Wrap(services.ErrValidation, "train", "fit",
			fmt.Sprintf("need at least two classes, got %v", classes), nil)
	}
	y := make([]int, len(ds.Labels))
	for i, label := range ds.Labels {
		y[i], _ = slices.BinarySearch(classes, label)
	}

	trainIdx, testIdx, err := Split(ds.Len(), opts.TestFraction, opts.Seed)
	if err != nil {
		return nil, Report{}, services.Wrap(services.ErrValidation, "train", "split", "", err)
	}
	Xtrain, ytrain := gather(X, y, trainIdx)
	Xtest, ytest := gather(X, y, testIdx)

	scaler, err := FitScaler(Xtrain)
	if err != nil {
		return nil, Report{}, services.Wrap(services.ErrValidation, "train", "scale", "", err)
	}

	logger.Info("fitting random forest",
		logging.Int("train_rows", len(trainIdx)),
		logging.Int("test_rows", len(testIdx)),
		logging.Int("n_estimators", opts.NEstimators),
		logging.Int("classes", len(classes)),
	)
	forest, err := FitForest(ctx, scaler.TransformAll(Xtrain), ytrain, len(classes), ForestOptions{
		NEstimators:    opts.NEstimators,
		MaxDepth:       opts.MaxDepth,
		MinSamplesLeaf: opts.MinSamplesLeaf,
		Seed:           opts.Seed,
	})
	if err != nil {
		return nil, Report{}, services.Wrap(services.ErrTransient, "train", "fit forest", "", err)
	}

	model := &Model{
		Schema:  schema,
		Classes: classes,
		Imputer: imputer,
		Scaler:  scaler,
		Forest:  forest,
	}
	predicted := make([]int, len(Xtest))
	for i, x := range Xtest {
		predicted[i] = model.predictIndex(x)
	}
	report := Evaluate(classes, ytest, predicted)
	report.TrainRows, report.TestRows = len(trainIdx), len(testIdx)

	model.Metadata = Metadata{
		Seed:        opts.Seed,
		NEstimators: opts.NEstimators,
		Accuracy:    report.Accuracy,
		TrainRows:   len(trainIdx),
		TestRows:    len(testIdx),
		TrainedAt:   time.Now().UTC(),
	}
	logger.Info("classifier trained", logging.String("accuracy", fmt.Sprintf("%.2f", report.Accuracy)))
	return model, report, nil
}

func gather(X [][]float64, y []int, idx []int) ([][]float64, []int) {
	xs := make([][]float64, len(idx))
	ys := make([]int, len(idx))
	for i, k := range idx {
		xs[i], ys[i] = X[k], y[k]
	}
	return xs, ys
}

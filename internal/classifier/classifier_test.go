package classifier_test

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exohunt/internal/classifier"
	"exohunt/internal/features"
	"exohunt/internal/services"
)

func defaultSchema(t *testing.T) features.Schema {
	t.Helper()
	schema, err := features.NewSchema(nil)
	require.NoError(t, err)
	return schema
}

// writeTraining writes a feature table where planets have long periods and
// deep transits, plus a matching label table.
func writeTraining(t *testing.T, n int) (string, string) {
	t.Helper()
	dir := t.TempDir()
	rng := rand.New(rand.NewPCG(7, 7))

	var feats, labels strings.Builder
	feats.WriteString("# exported table\n")
	feats.WriteString("kepid,OrbitalPeriod[days,TransitDepth[ppm,TransitDuration[hrs,ImpactParamete,PlanetaryRadius[Earthradii,TransitSignal-to-Nois\n")
	labels.WriteString("disposition\n")
	for i := 0; i < n; i++ {
		planet := i%2 == 0
		period := 2 + rng.Float64()*3
		depth := 200 + rng.Float64()*300
		label := "FALSE POSITIVE"
		if planet {
			period += 10
			depth += 2000
			label = "CONFIRMED"
		}
		impact := fmt.Sprintf("%.3f", rng.Float64())
		if i%11 == 0 {
			impact = ""
		}
		fmt.Fprintf(&feats, "%d,%.4f,%.1f,%.2f,%s,%.2f,%.1f\n",
			1000+i, period, depth, 2+rng.Float64(), impact, 1+rng.Float64()*3, 10+rng.Float64()*20)
		fmt.Fprintf(&labels, "%s\n", label)
	}
	fp := filepath.Join(dir, "features.csv")
	lp := filepath.Join(dir, "labels.csv")
	require.NoError(t, os.WriteFile(fp, []byte(feats.String()), 0o644))
	require.NoError(t, os.WriteFile(lp, []byte(labels.String()), 0o644))
	return fp, lp
}

func trainOptions() classifier.TrainOptions {
	return classifier.TrainOptions{NEstimators: 25, MinSamplesLeaf: 1, TestFraction: 0.2, Seed: 42}
}

func TestLoadDatasetSelectsSchemaColumns(t *testing.T) {
	fp, lp := writeTraining(t, 22)
	ds, err := classifier.LoadDataset(fp, lp, defaultSchema(t))
	require.NoError(t, err)
	require.Equal(t, 22, ds.Len())
	assert.Len(t, ds.X[0], 6)
	assert.Equal(t, "CONFIRMED", ds.Labels[0])
	assert.Equal(t, "FALSE POSITIVE", ds.Labels[1])
	assert.True(t, math.IsNaN(ds.X[0][3]), "empty cell reads as NaN")
	assert.Greater(t, ds.X[0][0], 10.0)
}

func TestLoadDatasetRowMismatch(t *testing.T) {
	fp, _ := writeTraining(t, 10)
	lp := filepath.Join(t.TempDir(), "labels.csv")
	require.NoError(t, os.WriteFile(lp, []byte("label\nCONFIRMED\n"), 0o644))
	_, err := classifier.LoadDataset(fp, lp, defaultSchema(t))
	require.ErrorIs(t, err, services.ErrValidation)
}

func TestLoadDatasetMissingColumn(t *testing.T) {
	fp, lp := writeTraining(t, 4)
	schema, err := features.NewSchema([]string{"a", "b", "c", "d", "e", "f"})
	require.NoError(t, err)
	_, err = classifier.LoadDataset(fp, lp, schema)
	require.ErrorIs(t, err, services.ErrValidation)
}

func TestSplitIsDeterministic(t *testing.T) {
	trainA, testA, err := classifier.Split(50, 0.2, 42)
	require.NoError(t, err)
	trainB, testB, err := classifier.Split(50, 0.2, 42)
	require.NoError(t, err)
	assert.Equal(t, trainA, trainB)
	assert.Equal(t, testA, testB)
	assert.Len(t, testA, 10)
	assert.Len(t, trainA, 40)

	_, testC, err := classifier.Split(50, 0.2, 43)
	require.NoError(t, err)
	assert.NotEqual(t, testA, testC)

	_, _, err = classifier.Split(1, 0.2, 42)
	assert.Error(t, err)
	_, _, err = classifier.Split(10, 1.5, 42)
	assert.Error(t, err)
}

func TestTrainSeparableData(t *testing.T) {
	fp, lp := writeTraining(t, 120)
	schema := defaultSchema(t)
	ds, err := classifier.LoadDataset(fp, lp, schema)
	require.NoError(t, err)

	model, report, err := classifier.Train(context.Background(), ds, schema, trainOptions(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"CONFIRMED", "FALSE POSITIVE"}, model.Classes)
	assert.Equal(t, 24, report.TestRows)
	assert.Equal(t, 96, report.TrainRows)
	assert.GreaterOrEqual(t, report.Accuracy, 0.95)
	require.Len(t, report.Classes, 2)
	assert.Equal(t, report.TestRows, report.MacroAvg.Support)
	assert.Len(t, model.Forest.Trees, 25)

	label, err := model.Predict([]float64{14, 2400, 2.5, 0.3, 2, 20})
	require.NoError(t, err)
	assert.Equal(t, "CONFIRMED", label)
	label, err = model.Predict([]float64{3, 300, 2.5, math.NaN(), 2, 20})
	require.NoError(t, err)
	assert.Equal(t, "FALSE POSITIVE", label)

	_, err = model.Predict([]float64{1, 2})
	assert.ErrorIs(t, err, services.ErrValidation)
}

func TestTrainIsReproducible(t *testing.T) {
	fp, lp := writeTraining(t, 80)
	schema := defaultSchema(t)
	ds, err := classifier.LoadDataset(fp, lp, schema)
	require.NoError(t, err)

	a, reportA, err := classifier.Train(context.Background(), ds, schema, trainOptions(), nil)
	require.NoError(t, err)
	b, reportB, err := classifier.Train(context.Background(), ds, schema, trainOptions(), nil)
	require.NoError(t, err)
	assert.Equal(t, reportA, reportB)
	assert.Equal(t, a.Forest, b.Forest)
	assert.Equal(t, a.Scaler, b.Scaler)
}

func TestTrainRejectsSingleClass(t *testing.T) {
	ds := classifier.Dataset{
		X:      [][]float64{{1, 2, 3, 4, 5, 6}, {2, 3, 4, 5, 6, 7}, {3, 4, 5, 6, 7, 8}},
		Labels: []string{"CONFIRMED", "CONFIRMED", "CONFIRMED"},
	}
	_, _, err := classifier.Train(context.Background(), ds, defaultSchema(t), trainOptions(), nil)
	require.ErrorIs(t, err, services.ErrValidation)
}

func TestSaveLoadPredictsIdentically(t *testing.T) {
	fp, lp := writeTraining(t, 60)
	schema := defaultSchema(t)
	ds, err := classifier.LoadDataset(fp, lp, schema)
	require.NoError(t, err)
	model, _, err := classifier.Train(context.Background(), ds, schema, trainOptions(), nil)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "model", "classifier.json")
	require.NoError(t, model.Save(path))
	loaded, err := classifier.Load(path)
	require.NoError(t, err)
	assert.Equal(t, model.Metadata.Seed, loaded.Metadata.Seed)

	x := []float64{9, 1500, 2.2, 0.5, 1.7, 15}
	want, err := model.Predict(x)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		got, err := loaded.Predict(x)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestLoadRejectsForeignSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	doc := `{"format_version":1,"schema":{"features":[{"name":"period","unit":"days"}]},"classes":["a","b"]}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	_, err := classifier.Load(path)
	require.ErrorIs(t, err, services.ErrClassifierUnavailable)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := classifier.Load(filepath.Join(t.TempDir(), "absent.json"))
	require.ErrorIs(t, err, services.ErrClassifierUnavailable)
	assert.Nil(t, classifier.LoadOptional(filepath.Join(t.TempDir(), "absent.json"), nil))
}

func TestClassifyFallsBackToNotAvailable(t *testing.T) {
	rec := features.Record{Filename: "a.csv", Period: 3, T0: 0.1, RpRs: 0.1, ARs: 10, Inc: 89, Duration: 0.1, Depth: 0.01, SNR: 12}
	assert.Equal(t, features.NotAvailable, classifier.Classify(nil, rec))

	fp, lp := writeTraining(t, 40)
	schema := defaultSchema(t)
	ds, err := classifier.LoadDataset(fp, lp, schema)
	require.NoError(t, err)
	model, _, err := classifier.Train(context.Background(), ds, schema, trainOptions(), nil)
	require.NoError(t, err)

	assert.Equal(t, features.NotAvailable, classifier.Classify(model, features.Sentinel("b.csv")))
	first := classifier.Classify(model, rec)
	assert.NotEqual(t, features.NotAvailable, first)
	assert.Equal(t, first, classifier.Classify(model, rec))
}

func TestEvaluate(t *testing.T) {
	classes := []string{"a", "b"}
	truth := []int{0, 0, 0, 1}
	pred := []int{0, 0, 1, 1}
	r := classifier.Evaluate(classes, truth, pred)
	assert.InDelta(t, 0.75, r.Accuracy, 1e-12)
	assert.InDelta(t, 1.0, r.Classes[0].Precision, 1e-12)
	assert.InDelta(t, 2.0/3.0, r.Classes[0].Recall, 1e-12)
	assert.InDelta(t, 0.5, r.Classes[1].Precision, 1e-12)
	assert.InDelta(t, 1.0, r.Classes[1].Recall, 1e-12)
	assert.Equal(t, 3, r.Classes[0].Support)
	assert.InDelta(t, (1.0+0.5)/2, r.MacroAvg.Precision, 1e-12)
	assert.InDelta(t, (3*1.0+1*0.5)/4, r.WeightedAvg.Precision, 1e-12)
}

func TestScalerConstantColumn(t *testing.T) {
	s, err := classifier.FitScaler([][]float64{{1, 5}, {3, 5}})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 5}, s.Mean)
	assert.Equal(t, []float64{1, 1}, s.Scale)
	assert.Equal(t, []float64{-1, 0}, s.Transform([]float64{1, 5}))
}

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"exohunt/internal/runctl"
	"exohunt/internal/testsupport"
)

func TestTargetsCommandReportsSkippedRows(t *testing.T) {
	env := setupCLITestEnv(t)
	table := "# exported\n# columns\n# ID: TIC\n#\nID,Name\n390,alpha\nabc,beta\n1234,gamma\n"
	if err := os.WriteFile(env.cfg.Paths.TargetsFile, []byte(table), 0o644); err != nil {
		t.Fatalf("write targets: %v", err)
	}

	out, _, err := runCLI(t, []string{"targets", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("targets: %v", err)
	}
	var got targetsJSON
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode targets output: %v\n%s", err, out)
	}
	if diff := cmp.Diff([]int64{390, 1234}, got.IDs); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}
	if len(got.Skipped) != 1 || got.Skipped[0].Line != 7 {
		t.Fatalf("expected line 7 to be skipped, got %+v", got.Skipped)
	}

	out, _, err = runCLI(t, []string{"targets"}, env.configPath)
	if err != nil {
		t.Fatalf("targets table: %v", err)
	}
	requireContains(t, out, "Loaded 2 target IDs")
	requireContains(t, out, "Skipped rows:")
}

func TestAnalyzeIndexesAndSkipsProcessedFiles(t *testing.T) {
	env := setupCLITestEnv(t)
	lc := testsupport.SyntheticCurve(2000, 0.015, 5e-4, testsupport.Transit{Period: 3.5, Epoch: 1.2, Duration: 0.15, Depth: 0.01}, 11)
	path := filepath.Join(env.cfg.Paths.LightcurveDir, "TESS", "TIC_1_s1_lightcurve.csv")
	testsupport.WriteLightCurve(t, path, lc)

	out, _, err := runCLI(t, []string{"analyze", "--no-plots"}, env.configPath)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	requireContains(t, out, "analyzed: 1")

	out, _, err = runCLI(t, []string{"results", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	var entries []resultJSON
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode results: %v\n%s", err, out)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one indexed entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Filename != "TIC_1_s1_lightcurve.csv" {
		t.Fatalf("unexpected filename %q", entry.Filename)
	}
	if !(math.Abs(float64(entry.Period)-3.5) <= 0.05) {
		t.Fatalf("expected period near 3.5, got %v", entry.Period)
	}
	if entry.Classification != "N/A" {
		t.Fatalf("expected N/A without a model, got %q", entry.Classification)
	}
	if entry.RunID == "" {
		t.Fatal("expected run id on the index entry")
	}

	out, _, err = runCLI(t, []string{"analyze", "--no-plots"}, env.configPath)
	if err != nil {
		t.Fatalf("second analyze: %v", err)
	}
	requireContains(t, out, "skipped: 1")

	out, _, err = runCLI(t, []string{"results", "--remove", path}, env.configPath)
	if err != nil {
		t.Fatalf("results --remove: %v", err)
	}
	requireContains(t, out, "Removed")
	requireContains(t, out, "No processed light curves")

	data, err := os.ReadFile(env.cfg.Paths.FeatureCSV)
	if err != nil {
		t.Fatalf("read feature csv: %v", err)
	}
	if lines := strings.Count(strings.TrimSpace(string(data)), "\n"); lines != 0 {
		t.Fatalf("expected header-only feature csv after removal, got:\n%s", data)
	}
}

func TestAnalyzeRejectsUnknownStrategy(t *testing.T) {
	env := setupCLITestEnv(t)
	lc := testsupport.SyntheticCurve(500, 0.02, 0, testsupport.Transit{}, 1)
	testsupport.WriteLightCurve(t, filepath.Join(env.cfg.Paths.LightcurveDir, "a_lightcurve.csv"), lc)

	_, _, err := runCLI(t, []string{"analyze", "--strategy", "quadratic"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "quadratic") {
		t.Fatalf("expected strategy error, got %v", err)
	}
}

func TestRunLockBlocksConcurrentPipelines(t *testing.T) {
	env := setupCLITestEnv(t)
	lock, err := runctl.AcquireLock(env.cfg.LockPath())
	if err != nil {
		t.Fatalf("acquire lock: %v", err)
	}
	defer lock.Release()

	_, _, err = runCLI(t, []string{"analyze"}, env.configPath)
	if !errors.Is(err, runctl.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestTrainThenClassify(t *testing.T) {
	env := setupCLITestEnv(t)
	featuresPath, labelsPath := writeTrainingTables(t, 120)

	out, _, err := runCLI(t, []string{"train", "--features", featuresPath, "--labels", labelsPath, "--estimators", "25"}, env.configPath)
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	requireContains(t, out, "Accuracy: ")
	requireContains(t, out, "weighted avg")
	requireContains(t, out, env.cfg.Paths.ModelPath)

	out, _, err = runCLI(t, []string{"classify",
		"--period", "13.5", "--depth", "2350", "--duration", "2.5",
		"--inclination", "0.5", "--rp-rs", "2", "--snr", "20",
	}, env.configPath)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if got := strings.TrimSpace(out); got != "CONFIRMED" {
		t.Fatalf("expected CONFIRMED, got %q", got)
	}

	out, _, err = runCLI(t, []string{"classify", "--period", "3", "--depth", "300", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("classify partial: %v", err)
	}
	var res classifyResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode classify output: %v\n%s", err, out)
	}
	if res.Label != "FALSE POSITIVE" {
		t.Fatalf("expected FALSE POSITIVE, got %q", res.Label)
	}
	if len(res.Features) != 2 {
		t.Fatalf("expected two given features, got %v", res.Features)
	}
}

func TestClassifyWithoutModelFails(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"classify", "--period", "3"}, env.configPath)
	if err == nil {
		t.Fatal("expected classify to fail without a trained model")
	}
}

func writeTrainingTables(t *testing.T, n int) (string, string) {
	t.Helper()
	dir := t.TempDir()
	rng := rand.New(rand.NewPCG(3, 3))

	var feats, labels strings.Builder
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
		fmt.Fprintf(&feats, "%d,%.4f,%.1f,%.2f,%.3f,%.2f,%.1f\n",
			1000+i, period, depth, 2+rng.Float64(), rng.Float64(), 1+rng.Float64()*3, 10+rng.Float64()*20)
		fmt.Fprintf(&labels, "%s\n", label)
	}
	fp := filepath.Join(dir, "features.csv")
	lp := filepath.Join(dir, "labels.csv")
	if err := os.WriteFile(fp, []byte(feats.String()), 0o644); err != nil {
		t.Fatalf("write features: %v", err)
	}
	if err := os.WriteFile(lp, []byte(labels.String()), 0o644); err != nil {
		t.Fatalf("write labels: %v", err)
	}
	return fp, lp
}

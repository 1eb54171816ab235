package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"exohunt/internal/services"
	"exohunt/internal/testsupport"
)

func TestExecuteExitCodes(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		code   int
		stderr string
	}{
		{"success", nil, 0, ""},
		{"interrupted", services.Wrap(services.ErrInterrupted, "fetch", "download", "cancelled", nil), exitInterrupted, "interrupted"},
		{"failure", errors.New("index locked"), 1, "exohunt: index locked"},
	}
	for _, tc := range cases {
		cmd := &cobra.Command{
			Use:           "exohunt",
			SilenceUsage:  true,
			SilenceErrors: true,
			RunE:          func(*cobra.Command, []string) error { return tc.err },
		}
		cmd.SetArgs([]string{})
		var stderr bytes.Buffer
		if got := execute(cmd, &stderr); got != tc.code {
			t.Fatalf("%s: exit code %d, want %d", tc.name, got, tc.code)
		}
		if tc.stderr == "" && stderr.Len() != 0 {
			t.Fatalf("%s: unexpected stderr %q", tc.name, stderr.String())
		}
		if !strings.Contains(stderr.String(), tc.stderr) {
			t.Fatalf("%s: stderr %q lacks %q", tc.name, stderr.String(), tc.stderr)
		}
	}
}

func TestJSONFloatEncodesNonFiniteAsNull(t *testing.T) {
	data, err := json.Marshal([]jsonFloat{1.5, jsonFloat(math.NaN()), jsonFloat(math.Inf(-1))})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != "[1.5,null,null]" {
		t.Fatalf("unexpected encoding %s", data)
	}

	var back []jsonFloat
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back[0] != 1.5 || !math.IsNaN(float64(back[1])) {
		t.Fatalf("unexpected decode %v", back)
	}
}

func TestWriteJSONReportsNonFiniteFloat(t *testing.T) {
	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetOut(&out)
	err := writeJSON(cmd, map[string]float64{"depth": math.NaN()})
	if err == nil || !strings.Contains(err.Error(), "non-finite") {
		t.Fatalf("expected non-finite error, got %v", err)
	}
}

func TestResultsJSONShowsSentinelAsNull(t *testing.T) {
	env := setupCLITestEnv(t)
	lc := testsupport.SyntheticCurve(1000, 0.02, 0, testsupport.Transit{}, 1)
	testsupport.WriteLightCurve(t, filepath.Join(env.cfg.Paths.LightcurveDir, "TESS", "flat_lightcurve.csv"), lc)

	if _, _, err := runCLI(t, []string{"analyze", "--no-plots"}, env.configPath); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	out, _, err := runCLI(t, []string{"results", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	requireContains(t, out, `"period": null`)

	var entries []resultJSON
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode results: %v\n%s", err, out)
	}
	if len(entries) != 1 || !math.IsNaN(float64(entries[0].SNR)) {
		t.Fatalf("expected one sentinel entry, got %+v", entries)
	}
}

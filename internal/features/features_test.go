package features_test

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"exohunt/internal/features"
)

func TestSentinelRow(t *testing.T) {
	rec := features.Sentinel("TIC_1_x_lightcurve.csv")
	if !rec.Failed() {
		t.Fatal("sentinel record must report failure")
	}
	want := []string{"TIC_1_x_lightcurve.csv", "", "", "", "", "", "", "", "", "N/A"}
	if diff := cmp.Diff(want, rec.Row()); diff != "" {
		t.Fatalf("sentinel row mismatch (-want +got):\n%s", diff)
	}
}

func TestRowRoundTrip(t *testing.T) {
	rec := features.Record{
		Filename: "a.csv", Period: 3.5, T0: 1.25, RpRs: 0.1, ARs: 12, Inc: 89.5,
		Duration: 0.1, Depth: 0.01, SNR: 0.0014, Classification: "CONFIRMED",
	}
	parsed, err := features.ParseRow(rec.Row())
	if err != nil {
		t.Fatalf("ParseRow: %v", err)
	}
	if diff := cmp.Diff(rec, parsed); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}

	sentinel, err := features.ParseRow(features.Sentinel("b.csv").Row())
	if err != nil {
		t.Fatalf("ParseRow sentinel: %v", err)
	}
	if diff := cmp.Diff(features.Sentinel("b.csv"), sentinel, cmpopts.EquateNaNs()); diff != "" {
		t.Fatalf("sentinel round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSchemaVectorUnits(t *testing.T) {
	schema, err := features.NewSchema(nil)
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}
	rec := features.Record{Period: 2, Depth: 0.0025, Duration: 0.125, Inc: 88, RpRs: 0.05, SNR: 9}
	got := schema.Vector(rec)
	want := []float64{2, 2500, 3, 88, 0.05, 9}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Fatalf("vector mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"period", "depth", "duration", "inclination", "rp_rs", "snr"}, schema.Names()); diff != "" {
		t.Fatalf("names mismatch:\n%s", diff)
	}
}

func TestSchemaCompatibility(t *testing.T) {
	a, _ := features.NewSchema(nil)
	b, _ := features.NewSchema([]string{"p", "d", "t", "i", "r", "s"})
	if !a.Compatible(b) {
		t.Fatal("schemas differing only in training columns must be compatible")
	}
	c := features.Schema{Features: a.Features[:5]}
	if a.Compatible(c) {
		t.Fatal("schemas with different lengths must not be compatible")
	}
	if _, err := features.NewSchema([]string{"only-one"}); err == nil {
		t.Fatal("expected error for wrong column count")
	}
}

func TestParseValue(t *testing.T) {
	v, err := features.ParseValue("")
	if err != nil || !math.IsNaN(v) {
		t.Fatalf("empty cell should be NaN, got %v %v", v, err)
	}
	if _, err := features.ParseValue("abc"); err == nil {
		t.Fatal("expected parse error")
	}
}

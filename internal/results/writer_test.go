package results_test

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"exohunt/internal/features"
	"exohunt/internal/results"
)

func sample(name string) features.Record {
	return features.Record{
		Filename: name, Period: 3.5, T0: 0.01, RpRs: 0.1, ARs: 12, Inc: 88.5,
		Duration: 0.11, Depth: 0.01, SNR: 14.2, Classification: "CONFIRMED",
	}
}

func TestAppendWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "features.csv")
	w := results.NewWriter(path)
	if err := w.Append(sample("a.csv")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := w.Append(features.Sentinel("b.csv")); err != nil {
		t.Fatalf("append: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), data)
	}
	if lines[0] != strings.Join(features.Header, ",") {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if lines[2] != "b.csv,,,,,,,,,N/A" {
		t.Fatalf("unexpected sentinel row %q", lines[2])
	}
}

func TestAppendToEmptyFileWritesHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "features.csv")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := results.NewWriter(path).Append(sample("a.csv")); err != nil {
		t.Fatalf("append: %v", err)
	}
	recs, err := results.Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if diff := cmp.Diff([]features.Record{sample("a.csv")}, recs); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestConcurrentAppendsStayWhole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "features.csv")
	w := results.NewWriter(path)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.Append(sample("x.csv")); err != nil {
				t.Errorf("append: %v", err)
			}
		}()
	}
	wg.Wait()
	recs, err := results.Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(recs) != 8 {
		t.Fatalf("expected 8 records, got %d", len(recs))
	}
}

func TestRewriteReplacesContents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "features.csv")
	w := results.NewWriter(path)
	for _, name := range []string{"a.csv", "a.csv", "b.csv"} {
		if err := w.Append(sample(name)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	want := []features.Record{sample("a.csv"), features.Sentinel("b.csv")}
	if err := w.Rewrite(want); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	got, err := results.Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateNaNs()); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
	if !math.IsNaN(got[1].Period) {
		t.Fatalf("sentinel period should be NaN")
	}
}

func TestMergeKeepsRowsMissingFromRecs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "features.csv")
	w := results.NewWriter(path)
	for _, name := range []string{"legacy.csv", "a.csv", "gone.csv", "a.csv"} {
		if err := w.Append(sample(name)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	updated := features.Sentinel("a.csv")
	if err := w.Merge([]features.Record{updated}, "gone.csv"); err != nil {
		t.Fatalf("merge: %v", err)
	}
	got, err := results.Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := []features.Record{sample("legacy.csv"), updated}
	if diff := cmp.Diff(want, got, cmpopts.EquateNaNs()); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeCreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "features.csv")
	if err := results.NewWriter(path).Merge([]features.Record{sample("a.csv")}); err != nil {
		t.Fatalf("merge: %v", err)
	}
	got, err := results.Read(path)
	if err != nil || len(got) != 1 {
		t.Fatalf("expected one record, got %v %v", got, err)
	}
}

func TestReadMissingFile(t *testing.T) {
	recs, err := results.Read(filepath.Join(t.TempDir(), "absent.csv"))
	if err != nil || recs != nil {
		t.Fatalf("expected no records and no error, got %v %v", recs, err)
	}
}

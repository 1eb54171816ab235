package logging_test

import (
	"testing"

	"exohunt/internal/logging"
)

func TestBatchProgressSamplesBuckets(t *testing.T) {
	p := logging.NewBatchProgress(100, 25)
	var logged []int
	for done := 1; done <= 100; done++ {
		if p.ShouldLog(done) {
			logged = append(logged, done)
		}
	}
	want := []int{1, 25, 50, 75, 100}
	if len(logged) != len(want) {
		t.Fatalf("logged %v, want %v", logged, want)
	}
	for i := range want {
		if logged[i] != want[i] {
			t.Fatalf("logged %v, want %v", logged, want)
		}
	}
}

func TestBatchProgressNilAlwaysLogs(t *testing.T) {
	var p *logging.BatchProgress
	if !p.ShouldLog(5) {
		t.Fatal("nil sampler should always log")
	}
}

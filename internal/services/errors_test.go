package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"exohunt/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrDownload, "fetch", "download", "segment 3", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrDownload) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"fetch", "download", "segment 3"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "pipeline failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestCategoryMapping(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{services.Wrap(services.ErrValidation, "targets", "parse", "bad id", nil), "input-malformed"},
		{services.Wrap(services.ErrNotFound, "fetch", "search", "", nil), "no-data-found"},
		{fmt.Errorf("outer: %w", services.ErrFitNonConvergent), "fit-non-convergent"},
		{services.Wrap(services.ErrInterrupted, "analyze", "", "", nil), "user-interrupt"},
		{services.Wrap(services.ErrClassifierUnavailable, "classify", "", "", nil), "classifier-unavailable"},
		{errors.New("something else"), "internal"},
	}
	for _, tc := range cases {
		if got := services.Category(tc.err); got != tc.want {
			t.Fatalf("Category(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestFatalOnlyForConfiguration(t *testing.T) {
	if !services.Fatal(services.Wrap(services.ErrConfiguration, "config", "load", "", nil)) {
		t.Fatal("expected configuration error to be fatal")
	}
	if services.Fatal(services.Wrap(services.ErrDownload, "fetch", "", "", nil)) {
		t.Fatal("expected download error to be non-fatal")
	}
}

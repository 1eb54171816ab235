package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"exohunt/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckDiskSpace(t *testing.T) {
	dir := t.TempDir()
	if result := CheckDiskSpace("disk", dir, 1); !result.Passed {
		t.Fatalf("expected pass with 1 byte requirement, got: %s", result.Detail)
	}
	if result := CheckDiskSpace("disk", dir, 1<<62); result.Passed {
		t.Fatal("expected failure with huge requirement")
	}
	if result := CheckDiskSpace("disk", filepath.Join(dir, "missing"), 1); result.Passed {
		t.Fatal("expected failure for missing path")
	}
}

func TestCheckArchive_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v0/" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	result := CheckArchive(context.Background(), srv.URL)
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckArchive_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if result := CheckArchive(context.Background(), srv.URL); result.Passed {
		t.Fatal("expected failure for 503")
	}
}

func TestCheckArchive_MissingURL(t *testing.T) {
	if result := CheckArchive(context.Background(), " "); result.Passed {
		t.Fatal("expected failure for missing URL")
	}
}

func TestCheckModel_MissingIsOptional(t *testing.T) {
	result := CheckModel(filepath.Join(t.TempDir(), "absent.json"))
	if result.Passed || !result.Optional {
		t.Fatalf("expected optional failure, got %#v", result)
	}
}

func TestRunAllOffline(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	results := RunAll(context.Background(), cfg, true)
	for _, r := range results {
		if r.Name == "MAST archive" {
			t.Fatal("archive check should be skipped offline")
		}
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("expected no required failures, got %#v", failed)
	}
}

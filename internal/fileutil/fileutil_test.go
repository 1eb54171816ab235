package fileutil_test

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"exohunt/internal/fileutil"
)

func TestWriteAtomicReplacesContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.csv")
	for _, body := range []string{"first\n", "second\n"} {
		err := fileutil.WriteAtomic(path, 0o644, func(w io.Writer) error {
			_, err := io.WriteString(w, body)
			return err
		})
		if err != nil {
			t.Fatalf("WriteAtomic: %v", err)
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "second\n" {
		t.Fatalf("unexpected content %q", data)
	}
}

func TestWriteAtomicLeavesNothingOnFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")
	boom := errors.New("boom")
	err := fileutil.WriteAtomic(path, 0o644, func(w io.Writer) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected write error, got %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no files left behind, found %d", len(entries))
	}
	if fileutil.Exists(path) {
		t.Fatal("expected target to be absent")
	}
}

func TestIsEmpty(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing")
	if empty, err := fileutil.IsEmpty(missing); err != nil || !empty {
		t.Fatalf("missing file: empty=%v err=%v", empty, err)
	}
	full := filepath.Join(dir, "full")
	if err := os.WriteFile(full, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if empty, err := fileutil.IsEmpty(full); err != nil || empty {
		t.Fatalf("full file: empty=%v err=%v", empty, err)
	}
}

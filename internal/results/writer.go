package results

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"exohunt/internal/features"
	"exohunt/internal/fileutil"
)

// Writer owns the feature CSV at Path.
type Writer struct {
	path string
}

// NewWriter returns a writer for path. Nothing is created until the first
// Append.
func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

// Path is the feature CSV location.
func (w *Writer) Path() string { return w.path }

func (w *Writer) lockPath() string { return w.path + ".lock" }

func (w *Writer) withLock(fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return fmt.Errorf("create results directory: %w", err)
	}
	lock := flock.New(w.lockPath())
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", w.lockPath(), err)
	}
	defer func() { _ = lock.Unlock() }()
	return fn()
}

// Append writes rec as one row, preceded by the header when the file is new
// or empty. The file is flushed and closed before returning.
func (w *Writer) Append(rec features.Record) error {
	return w.withLock(func() error {
		empty, err := fileutil.IsEmpty(w.path)
		if err != nil {
			return fmt.Errorf("stat %s: %w", w.path, err)
		}
		file, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open %s: %w", w.path, err)
		}
		cw := csv.NewWriter(file)
		if empty {
			_ = cw.Write(features.Header)
		}
		_ = cw.Write(rec.Row())
		cw.Flush()
		if err := cw.Error(); err != nil {
			_ = file.Close()
			return fmt.Errorf("write %s: %w", w.path, err)
		}
		if err := file.Sync(); err != nil {
			_ = file.Close()
			return fmt.Errorf("sync %s: %w", w.path, err)
		}
		return file.Close()
	})
}

// Rewrite replaces the file with exactly recs, atomically.
func (w *Writer) Rewrite(recs []features.Record) error {
	return w.withLock(func() error { return w.write(recs) })
}

// Merge rewrites the file as its existing rows followed by recs. Existing rows
// whose filename appears in recs or in drop are discarded; the rest, such as
// rows appended while the index was disabled, are kept in their order.
func (w *Writer) Merge(recs []features.Record, drop ...string) error {
	return w.withLock(func() error {
		existing, err := Read(w.path)
		if err != nil {
			return err
		}
		skip := make(map[string]struct{}, len(recs)+len(drop))
		for _, rec := range recs {
			skip[rec.Filename] = struct{}{}
		}
		for _, name := range drop {
			skip[name] = struct{}{}
		}
		merged := make([]features.Record, 0, len(existing)+len(recs))
		for _, rec := range existing {
			if _, ok := skip[rec.Filename]; !ok {
				merged = append(merged, rec)
			}
		}
		return w.write(append(merged, recs...))
	})
}

func (w *Writer) write(recs []features.Record) error {
	return fileutil.WriteAtomic(w.path, 0o644, func(out io.Writer) error {
		cw := csv.NewWriter(out)
		if err := cw.Write(features.Header); err != nil {
			return err
		}
		for _, rec := range recs {
			if err := cw.Write(rec.Row()); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

// Read returns every record in the file. A missing file has no records.
func Read(path string) ([]features.Record, error) {
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	cr := csv.NewReader(file)
	cr.FieldsPerRecord = len(features.Header)
	var out []features.Record
	first := true
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if first {
			first = false
			if row[0] == features.Header[0] {
				continue
			}
		}
		rec, err := features.ParseRow(row)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		out = append(out, rec)
	}
}

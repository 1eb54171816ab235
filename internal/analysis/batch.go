package analysis

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"exohunt/internal/logging"
	"exohunt/internal/runctl"
	"exohunt/internal/services"
)

// Batch runs loop items under the run's cancellation contract.
type Batch interface {
	ForEach(n int, fn func(ctx context.Context, index int) error) error
}

// Summary totals a batch of files.
type Summary struct {
	Files       int
	Analyzed    int
	Skipped     int
	Sentinels   int
	Failed      int
	Interrupted int
	Classes     map[string]int
}

// AnalyzeAll runs AnalyzeFile over files in order. Per-file failures are
// logged and the batch continues.
func (a *Analyzer) AnalyzeAll(batch Batch, files []string) (Summary, error) {
	summary := Summary{Files: len(files), Classes: make(map[string]int)}
	progress := logging.NewBatchProgress(len(files), 10)
	err := batch.ForEach(len(files), func(ctx context.Context, i int) error {
		out, err := a.AnalyzeFile(ctx, files[i])
		switch {
		case runctl.IsInterrupt(err):
			summary.Interrupted++
		case err != nil:
			summary.Failed++
			logging.ErrorWithContext(logging.WithContext(services.WithFile(ctx, files[i]), a.logger),
				"analysis failed", "file_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorCategory, services.Category(err)),
			)
		case out.Skipped:
			summary.Skipped++
		default:
			summary.Analyzed++
			if out.Failure != nil {
				summary.Sentinels++
			}
			summary.Classes[out.Record.Classification]++
		}
		if done := i + 1; progress.ShouldLog(done) {
			a.logger.Info("analysis progress",
				logging.Int("done", done),
				logging.Int("total", len(files)),
				logging.Float64("percent", progress.Percent(done)),
			)
		}
		return err
	})
	return summary, err
}

// DiscoverFiles lists the light-curve CSVs under root, sorted by path.
// Folded outputs are excluded.
func DiscoverFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := strings.ToLower(d.Name())
		if strings.HasSuffix(name, ".csv") && !strings.HasSuffix(name, "_folded.csv") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

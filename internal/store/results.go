package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"exohunt/internal/features"
)

// Entry is one processed light curve.
type Entry struct {
	Record        features.Record
	Strategy      string
	ErrorCategory string
	RunID         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

const selectColumns = `filename, period, t0, rp_rs, a_rs, inc, duration, depth, snr,
    classification, strategy, error_category, run_id, created_at, updated_at`

// Upsert inserts or replaces the row for e.Record.Filename. CreatedAt is
// preserved across replacements.
func (s *Store) Upsert(ctx context.Context, e Entry) error {
	if e.Record.Filename == "" {
		return fmt.Errorf("upsert: filename is required")
	}
	ctx = ensureContext(ctx)
	now := time.Now().UTC().Format(time.RFC3339Nano)
	r := e.Record
	classification := r.Classification
	if classification == "" {
		classification = features.NotAvailable
	}
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO results (`+selectColumns+`)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
            ON CONFLICT(filename) DO UPDATE SET
                period = excluded.period,
                t0 = excluded.t0,
                rp_rs = excluded.rp_rs,
                a_rs = excluded.a_rs,
                inc = excluded.inc,
                duration = excluded.duration,
                depth = excluded.depth,
                snr = excluded.snr,
                classification = excluded.classification,
                strategy = excluded.strategy,
                error_category = excluded.error_category,
                run_id = excluded.run_id,
                updated_at = excluded.updated_at`,
			r.Filename,
			nullableFloat(r.Period),
			nullableFloat(r.T0),
			nullableFloat(r.RpRs),
			nullableFloat(r.ARs),
			nullableFloat(r.Inc),
			nullableFloat(r.Duration),
			nullableFloat(r.Depth),
			nullableFloat(r.SNR),
			classification,
			nullableString(e.Strategy),
			nullableString(e.ErrorCategory),
			nullableString(e.RunID),
			now,
			now,
		)
		return err
	})
}

// Get returns the entry for filename, or nil when it has not been processed.
func (s *Store) Get(ctx context.Context, filename string) (*Entry, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM results WHERE filename = ?", filename)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", filename, err)
	}
	return e, nil
}

// Has reports whether filename has been processed.
func (s *Store) Has(ctx context.Context, filename string) (bool, error) {
	ctx = ensureContext(ctx)
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM results WHERE filename = ?", filename).Scan(&n); err != nil {
		return false, fmt.Errorf("lookup %s: %w", filename, err)
	}
	return n > 0, nil
}

// List returns every entry ordered by filename.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, "SELECT "+selectColumns+" FROM results ORDER BY filename")
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// Records returns the feature records of every entry, ordered by filename.
func (s *Store) Records(ctx context.Context) ([]features.Record, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]features.Record, len(entries))
	for i, e := range entries {
		out[i] = e.Record
	}
	return out, nil
}

// ClassCounts tallies entries by classification.
func (s *Store) ClassCounts(ctx context.Context) (map[string]int, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, "SELECT classification, COUNT(1) FROM results GROUP BY classification")
	if err != nil {
		return nil, fmt.Errorf("count results: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var label string
		var n int
		if err := rows.Scan(&label, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[label] = n
	}
	return counts, rows.Err()
}

// Remove deletes the entry for filename.
func (s *Store) Remove(ctx context.Context, filename string) (bool, error) {
	ctx = ensureContext(ctx)
	var affected int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx, "DELETE FROM results WHERE filename = ?", filename)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return false, fmt.Errorf("remove %s: %w", filename, err)
	}
	return affected > 0, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*Entry, error) {
	var (
		e                                                Entry
		period, t0, rpRs, aRs, inc, duration, depth, snr sql.NullFloat64
		strategy, category, runID                        sql.NullString
		created, updated                                 string
	)
	if err := row.Scan(&e.Record.Filename, &period, &t0, &rpRs, &aRs, &inc, &duration, &depth, &snr,
		&e.Record.Classification, &strategy, &category, &runID, &created, &updated); err != nil {
		return nil, err
	}
	e.Record.Period = floatOrNaN(period)
	e.Record.T0 = floatOrNaN(t0)
	e.Record.RpRs = floatOrNaN(rpRs)
	e.Record.ARs = floatOrNaN(aRs)
	e.Record.Inc = floatOrNaN(inc)
	e.Record.Duration = floatOrNaN(duration)
	e.Record.Depth = floatOrNaN(depth)
	e.Record.SNR = floatOrNaN(snr)
	e.Strategy = strategy.String
	e.ErrorCategory = category.String
	e.RunID = runID.String
	e.CreatedAt = parseTime(created)
	e.UpdatedAt = parseTime(updated)
	return &e, nil
}

func nullableFloat(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func nullableString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func floatOrNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

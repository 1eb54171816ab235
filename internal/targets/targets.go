package targets

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	"exohunt/internal/logging"
	"exohunt/internal/services"
)

// Strategy selects how the header row is located.
type Strategy string

const (
	StrategyFixedOffset Strategy = "fixed_offset"
	StrategySkipRows    Strategy = "skip_rows"
)

const (
	defaultHeaderLine = 5
	defaultSkipRows   = 4
	defaultIDColumn   = "ID"
	maxLineBytes      = 1 << 20
)

// Options configures Load.
type Options struct {
	Strategy   Strategy
	HeaderLine int
	SkipRows   int
	IDColumn   string
	Logger     *slog.Logger
}

// SkippedRow records a data row that did not yield an identifier.
type SkippedRow struct {
	Line   int    `json:"line"`
	Raw    string `json:"raw"`
	Reason string `json:"reason"`
}

// Result is the outcome of parsing a target table.
type Result struct {
	IDs      []int64
	Skipped  []SkippedRow
	Header   []string
	IDColumn string
}

// Load opens path and parses it with Parse.
func Load(path string, opts Options) (Result, error) {
	file, err := os.Open(path)
	if err != nil {
		return Result{}, services.Wrap(services.ErrValidation, "targets", "open", path, err)
	}
	defer file.Close()
	return Parse(file, opts)
}

// Parse reads a target table. Only I/O failures and structural problems with
// the header are returned as errors; malformed data rows are reported in
// Result.Skipped.
func Parse(r io.Reader, opts Options) (Result, error) {
	opts = withDefaults(opts)
	logger := logging.NewComponentLogger(opts.Logger, "targets")

	lines, err := readLines(r)
	if err != nil {
		return Result{}, services.Wrap(services.ErrValidation, "targets", "read", "", err)
	}

	headerIdx, err := locateHeader(lines, opts)
	if err != nil {
		return Result{}, err
	}
	header, err := splitRow(lines[headerIdx])
	if err != nil {
		return Result{}, services.Wrap(services.ErrValidation, "targets", "parse header",
			fmt.Sprintf("line %d", headerIdx+1), err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	col, found := columnIndex(header, opts.IDColumn)
	if !found {
		if opts.Strategy == StrategyFixedOffset {
			return Result{}, services.Wrap(services.ErrValidation, "targets", "parse header",
				fmt.Sprintf("line %d has no %q column", headerIdx+1, opts.IDColumn), nil)
		}
		col = 0
		logger.Debug("identifier column not found; using first column",
			logging.String("wanted", opts.IDColumn),
			logging.String("column", firstOr(header, "")),
		)
	}

	result := Result{Header: header, IDColumn: firstOr(header[col:], opts.IDColumn)}
	for idx := headerIdx + 1; idx < len(lines); idx++ {
		raw := lines[idx]
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		id, reason := parseRow(raw, col)
		if reason != "" {
			row := SkippedRow{Line: idx + 1, Raw: raw, Reason: reason}
			result.Skipped = append(result.Skipped, row)
			logging.WarnWithContext(logger, "target row dropped", "target_row_dropped",
				logging.Int("line", row.Line),
				logging.String("raw", row.Raw),
				logging.String("reason", row.Reason),
				logging.String(logging.FieldImpact, "star not fetched"),
			)
			continue
		}
		result.IDs = append(result.IDs, id)
	}
	return result, nil
}

func withDefaults(opts Options) Options {
	if opts.Strategy == "" {
		opts.Strategy = StrategyFixedOffset
	}
	if opts.HeaderLine <= 0 {
		opts.HeaderLine = defaultHeaderLine
	}
	if opts.SkipRows < 0 {
		opts.SkipRows = defaultSkipRows
	}
	if strings.TrimSpace(opts.IDColumn) == "" {
		opts.IDColumn = defaultIDColumn
	}
	return opts
}

func readLines(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(lines) > 0 {
		lines[0] = strings.TrimPrefix(lines[0], "\ufeff")
	}
	return lines, nil
}

func locateHeader(lines []string, opts Options) (int, error) {
	switch opts.Strategy {
	case StrategyFixedOffset:
		if len(lines) < opts.HeaderLine {
			return 0, services.Wrap(services.ErrValidation, "targets", "locate header",
				fmt.Sprintf("expected header on line %d but file has %d lines", opts.HeaderLine, len(lines)), nil)
		}
		return opts.HeaderLine - 1, nil
	case StrategySkipRows:
		for idx := opts.SkipRows; idx < len(lines); idx++ {
			if strings.TrimSpace(lines[idx]) != "" {
				return idx, nil
			}
		}
		return 0, services.Wrap(services.ErrValidation, "targets", "locate header",
			fmt.Sprintf("no header after skipping %d rows", opts.SkipRows), nil)
	default:
		return 0, services.Wrap(services.ErrConfiguration, "targets", "locate header",
			fmt.Sprintf("unknown strategy %q", opts.Strategy), nil)
	}
}

func splitRow(line string) ([]string, error) {
	reader := csv.NewReader(strings.NewReader(line))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	fields, err := reader.Read()
	if err == io.EOF {
		return []string{""}, nil
	}
	return fields, err
}

func columnIndex(header []string, name string) (int, bool) {
	for i, column := range header {
		if strings.EqualFold(strings.TrimSpace(column), strings.TrimSpace(name)) {
			return i, true
		}
	}
	return 0, false
}

func parseRow(raw string, col int) (int64, string) {
	fields, err := splitRow(raw)
	if err != nil {
		return 0, "unparseable row: " + err.Error()
	}
	if col >= len(fields) {
		return 0, "row has no identifier column"
	}
	value := strings.TrimSpace(fields[col])
	if value == "" {
		return 0, "identifier is empty"
	}
	id, ok := coerceID(value)
	if !ok {
		return 0, fmt.Sprintf("identifier %q is not a positive integer", value)
	}
	return id, ""
}

// coerceID accepts integer spellings and integral floats such as "390.0".
func coerceID(value string) (int64, bool) {
	if id, err := strconv.ParseInt(value, 10, 64); err == nil {
		return id, id > 0
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || f <= 0 || f > math.MaxInt64/2 {
		return 0, false
	}
	return int64(f), true
}

func firstOr(values []string, fallback string) string {
	if len(values) == 0 {
		return fallback
	}
	return values[0]
}

package lightcurve

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"exohunt/internal/fileutil"
)

// Header is the column header of every light-curve CSV written by the pipeline.
var Header = []string{"time", "flux"}

// ReadCSV loads a light curve from a CSV file with time and flux columns.
// Column order is taken from the header; extra columns are ignored and empty
// or unparseable cells become NaN.
func ReadCSV(path string) (*LightCurve, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return DecodeCSV(file)
}

// DecodeCSV reads a light curve from r; see ReadCSV.
func DecodeCSV(r io.Reader) (*LightCurve, error) {
	reader := csv.NewReader(bufio.NewReader(r))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("light curve csv: missing header")
	}
	if err != nil {
		return nil, fmt.Errorf("light curve csv: read header: %w", err)
	}
	timeCol, fluxCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))) {
		case "time":
			timeCol = i
		case "flux", "pdcsap_flux":
			if fluxCol < 0 {
				fluxCol = i
			}
		}
	}
	if timeCol < 0 || fluxCol < 0 {
		return nil, fmt.Errorf("light curve csv: header %v lacks time and flux columns", header)
	}

	lc := &LightCurve{}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("light curve csv: %w", err)
		}
		lc.Time = append(lc.Time, parseCell(record, timeCol))
		lc.Flux = append(lc.Flux, parseCell(record, fluxCol))
	}
	return lc, nil
}

// WriteCSV writes the curve atomically with a time,flux header. Non-finite
// values are written as empty cells.
func (lc *LightCurve) WriteCSV(path string) error {
	return fileutil.WriteAtomic(path, 0o644, lc.EncodeCSV)
}

// EncodeCSV writes the curve to w; see WriteCSV.
func (lc *LightCurve) EncodeCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Header); err != nil {
		return err
	}
	row := make([]string, 2)
	for i := range lc.Time {
		row[0] = FormatFloat(lc.Time[i])
		row[1] = FormatFloat(lc.Flux[i])
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// FormatFloat renders v with the shortest round-tripping representation and
// NaN/Inf as an empty cell.
func FormatFloat(v float64) string {
	if !finite(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func parseCell(record []string, col int) float64 {
	if col >= len(record) {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(record[col]), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

package features

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// NotAvailable is the classification of records that could not be classified.
const NotAvailable = "N/A"

// Header is the feature CSV header.
var Header = []string{"filename", "period", "t0", "rp_rs", "a_rs", "inc", "duration", "depth", "snr", "classification"}

// Record is one analysed light curve. Duration is in days and depth is a
// fraction; failed fits carry NaN in every numeric field.
type Record struct {
	Filename       string
	Period         float64
	T0             float64
	RpRs           float64
	ARs            float64
	Inc            float64
	Duration       float64
	Depth          float64
	SNR            float64
	Classification string
}

// Sentinel returns the record written for a failed fit.
func Sentinel(filename string) Record {
	nan := math.NaN()
	return Record{
		Filename:       filename,
		Period:         nan,
		T0:             nan,
		RpRs:           nan,
		ARs:            nan,
		Inc:            nan,
		Duration:       nan,
		Depth:          nan,
		SNR:            nan,
		Classification: NotAvailable,
	}
}

func (r Record) numbers() []float64 {
	return []float64{r.Period, r.T0, r.RpRs, r.ARs, r.Inc, r.Duration, r.Depth, r.SNR}
}

// Failed reports whether any numeric field is missing.
func (r Record) Failed() bool {
	for _, v := range r.numbers() {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

// Row renders the record in Header order. NaN becomes an empty cell.
func (r Record) Row() []string {
	row := make([]string, 0, len(Header))
	row = append(row, r.Filename)
	for _, v := range r.numbers() {
		row = append(row, FormatValue(v))
	}
	classification := r.Classification
	if classification == "" {
		classification = NotAvailable
	}
	return append(row, classification)
}

// ParseRow is the inverse of Row.
func ParseRow(row []string) (Record, error) {
	if len(row) != len(Header) {
		return Record{}, fmt.Errorf("feature row has %d fields, want %d", len(row), len(Header))
	}
	values := make([]float64, 8)
	for i := range values {
		v, err := ParseValue(row[i+1])
		if err != nil {
			return Record{}, fmt.Errorf("feature row column %s: %w", Header[i+1], err)
		}
		values[i] = v
	}
	return Record{
		Filename:       row[0],
		Period:         values[0],
		T0:             values[1],
		RpRs:           values[2],
		ARs:            values[3],
		Inc:            values[4],
		Duration:       values[5],
		Depth:          values[6],
		SNR:            values[7],
		Classification: row[9],
	}, nil
}

// FormatValue writes v with full precision; non-finite values are empty.
func FormatValue(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// ParseValue reads a cell written by FormatValue; empty means NaN.
func ParseValue(cell string) (float64, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" || strings.EqualFold(cell, "nan") {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(cell, 64)
}

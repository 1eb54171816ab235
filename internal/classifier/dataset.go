package classifier

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"

	"exohunt/internal/features"
	"exohunt/internal/services"
)

// Dataset is a labelled feature matrix in schema column order. Missing cells
// are NaN.
type Dataset struct {
	X      [][]float64
	Labels []string
}

// Len is the number of rows.
func (d Dataset) Len() int { return len(d.X) }

// LoadDataset reads the training feature table and the row-aligned label
// table. Feature columns are selected by exact header name from schema; the
// label is the first column of the label table.
func LoadDataset(featuresPath, labelsPath string, schema features.Schema) (Dataset, error) {
	header, rows, err := readTable(featuresPath)
	if err != nil {
		return Dataset{}, err
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	cols := make([]int, schema.Len())
	for i, col := range schema.Columns() {
		pos, ok := index[col]
		if !ok {
			return Dataset{}, services.Wrap(services.ErrValidation, "train", "read features",
				fmt.Sprintf("column %q not found in %s", col, featuresPath), nil)
		}
		cols[i] = pos
	}

	_, labelRows, err := readTable(labelsPath)
	if err != nil {
		return Dataset{}, err
	}
	if len(labelRows) != len(rows) {
		return Dataset{}, services.Wrap(services.ErrValidation, "train", "read labels",
			fmt.Sprintf("%d feature rows but %d label rows", len(rows), len(labelRows)), nil)
	}

	ds := Dataset{X: make([][]float64, len(rows)), Labels: make([]string, len(rows))}
	for r, row := range rows {
		x := make([]float64, len(cols))
		for i, pos := range cols {
			x[i] = parseCell(row, pos)
		}
		ds.X[r] = x
		if len(labelRows[r]) == 0 || strings.TrimSpace(labelRows[r][0]) == "" {
			return Dataset{}, services.Wrap(services.ErrValidation, "train", "read labels",
				fmt.Sprintf("label row %d is empty", r+1), nil)
		}
		ds.Labels[r] = strings.TrimSpace(labelRows[r][0])
	}
	return ds, nil
}

func readTable(path string) ([]string, [][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, services.Wrap(services.ErrValidation, "train", "open table", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, services.Wrap(services.ErrValidation, "train", "read table", path+" is empty", nil)
	}
	if err != nil {
		return nil, nil, services.Wrap(services.ErrValidation, "train", "read table", path, err)
	}
	var rows [][]string
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, services.Wrap(services.ErrValidation, "train", "read table", path, err)
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}

func parseCell(row []string, pos int) float64 {
	if pos >= len(row) {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(row[pos]), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// Split shuffles row indices with seed and holds out ceil(testFraction*n)
// rows. Both halves keep at least one row.
func Split(n int, testFraction float64, seed uint64) (train, test []int, err error) {
	if n < 2 {
		return nil, nil, fmt.Errorf("split: need at least 2 rows, got %d", n)
	}
	if testFraction <= 0 || testFraction >= 1 {
		return nil, nil, fmt.Errorf("split: test fraction %v outside (0, 1)", testFraction)
	}
	nTest := int(math.Ceil(testFraction * float64(n)))
	nTest = min(max(nTest, 1), n-1)
	perm := rand.New(rand.NewPCG(seed, seed)).Perm(n)
	return perm[nTest:], perm[:nTest], nil
}

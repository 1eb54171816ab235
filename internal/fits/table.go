package fits

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Column describes one field of a binary table row.
type Column struct {
	Name   string
	Format string
	Type   byte
	Repeat int
	Offset int

	scale   float64
	zero    float64
	null    int64
	hasNull bool
}

// Table is a decoded BINTABLE extension.
type Table struct {
	Name    string
	Header  Header
	Columns []Column

	rows   int
	rowLen int
	data   []byte
}

var typeWidth = map[byte]int{
	'L': 1, 'B': 1, 'I': 2, 'J': 4, 'K': 8, 'A': 1, 'E': 4, 'D': 8, 'C': 8, 'M': 16,
}

// NewTable interprets a BINTABLE HDU.
func NewTable(hdu HDU) (*Table, error) {
	if !hdu.IsBinTable() {
		return nil, fmt.Errorf("fits: HDU is not a binary table")
	}
	h := hdu.Header
	rowLen, err := h.Int("NAXIS1")
	if err != nil {
		return nil, err
	}
	rows, err := h.Int("NAXIS2")
	if err != nil {
		return nil, err
	}
	fields, err := h.Int("TFIELDS")
	if err != nil {
		return nil, err
	}
	if rowLen*rows > len(hdu.Data) {
		return nil, fmt.Errorf("fits: table needs %d bytes, data unit has %d", rowLen*rows, len(hdu.Data))
	}

	t := &Table{Name: h.String("EXTNAME"), Header: h, rows: rows, rowLen: rowLen, data: hdu.Data}
	offset := 0
	for i := 1; i <= fields; i++ {
		n := strconv.Itoa(i)
		col := Column{Name: h.String("TTYPE" + n), Format: h.String("TFORM" + n), Offset: offset, scale: 1}
		col.Repeat, col.Type, err = parseFormat(col.Format)
		if err != nil {
			return nil, fmt.Errorf("fits: column %d (%s): %w", i, col.Name, err)
		}
		if col.Repeat < 1 && col.numeric() {
			return nil, fmt.Errorf("fits: column %d (%s) has no elements (TFORM %q)", i, col.Name, col.Format)
		}
		if v, ok, err := h.Float("TSCAL" + n); err != nil {
			return nil, err
		} else if ok {
			col.scale = v
		}
		if v, ok, err := h.Float("TZERO" + n); err != nil {
			return nil, err
		} else if ok {
			col.zero = v
		}
		if _, ok := h.Get("TNULL" + n); ok {
			v, err := h.Int("TNULL" + n)
			if err != nil {
				return nil, err
			}
			col.null, col.hasNull = int64(v), true
		}
		offset += col.width()
		t.Columns = append(t.Columns, col)
	}
	if offset > rowLen {
		return nil, fmt.Errorf("fits: columns span %d bytes but rows are %d", offset, rowLen)
	}
	return t, nil
}

// Rows returns the number of rows.
func (t *Table) Rows() int { return t.rows }

// Column finds a column by name, ignoring case.
func (t *Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Column{}, false
}

// HasColumn reports whether a column named name exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.Column(name)
	return ok
}

// Float64s returns the first element of column name for every row, scaled by
// TSCAL/TZERO. Integer cells equal to TNULL become NaN.
func (t *Table) Float64s(name string) ([]float64, error) {
	col, ok := t.Column(name)
	if !ok {
		return nil, fmt.Errorf("fits: table %s has no column %s", t.Name, name)
	}
	out := make([]float64, t.rows)
	for r := 0; r < t.rows; r++ {
		cell, err := t.cell(r, col)
		if err != nil {
			return nil, err
		}
		switch col.Type {
		case 'E':
			out[r] = float64(math.Float32frombits(binary.BigEndian.Uint32(cell)))*col.scale + col.zero
		case 'D':
			out[r] = math.Float64frombits(binary.BigEndian.Uint64(cell))*col.scale + col.zero
		case 'B', 'I', 'J', 'K':
			raw := readInt(col.Type, cell)
			if col.hasNull && raw == col.null {
				out[r] = math.NaN()
				continue
			}
			out[r] = float64(raw)*col.scale + col.zero
		default:
			return nil, fmt.Errorf("fits: column %s has non-numeric type %c", col.Name, col.Type)
		}
	}
	return out, nil
}

// Int64s returns the first element of an integer column for every row.
func (t *Table) Int64s(name string) ([]int64, error) {
	col, ok := t.Column(name)
	if !ok {
		return nil, fmt.Errorf("fits: table %s has no column %s", t.Name, name)
	}
	switch col.Type {
	case 'B', 'I', 'J', 'K':
	default:
		return nil, fmt.Errorf("fits: column %s has non-integer type %c", col.Name, col.Type)
	}
	out := make([]int64, t.rows)
	for r := 0; r < t.rows; r++ {
		cell, err := t.cell(r, col)
		if err != nil {
			return nil, err
		}
		out[r] = readInt(col.Type, cell)
		if col.zero != 0 || col.scale != 1 {
			out[r] = int64(float64(out[r])*col.scale + col.zero)
		}
	}
	return out, nil
}

// cell returns the bytes of the first element of col in row r.
func (t *Table) cell(r int, col Column) ([]byte, error) {
	start := r*t.rowLen + col.Offset
	end := start + typeWidth[col.Type]
	if col.Repeat < 1 || end > len(t.data) || col.Offset+typeWidth[col.Type] > t.rowLen {
		return nil, fmt.Errorf("fits: column %s row %d lies outside the table", col.Name, r)
	}
	return t.data[start:end], nil
}

func readInt(kind byte, cell []byte) int64 {
	switch kind {
	case 'B':
		return int64(cell[0])
	case 'I':
		return int64(int16(binary.BigEndian.Uint16(cell)))
	case 'J':
		return int64(int32(binary.BigEndian.Uint32(cell)))
	default:
		return int64(binary.BigEndian.Uint64(cell))
	}
}

func (c Column) numeric() bool {
	switch c.Type {
	case 'B', 'I', 'J', 'K', 'E', 'D':
		return true
	}
	return false
}

func (c Column) width() int {
	if c.Type == 'X' {
		return (c.Repeat + 7) / 8
	}
	return c.Repeat * typeWidth[c.Type]
}

// parseFormat splits a TFORM value such as "D", "1J" or "16A".
func parseFormat(format string) (int, byte, error) {
	format = strings.TrimSpace(format)
	i := 0
	for i < len(format) && format[i] >= '0' && format[i] <= '9' {
		i++
	}
	if i == len(format) {
		return 0, 0, fmt.Errorf("invalid TFORM %q", format)
	}
	repeat := 1
	if i > 0 {
		n, err := strconv.Atoi(format[:i])
		if err != nil {
			return 0, 0, fmt.Errorf("invalid TFORM %q", format)
		}
		repeat = n
	}
	kind := format[i]
	if kind == 'P' || kind == 'Q' {
		return 0, 0, fmt.Errorf("variable-length arrays are not supported (%q)", format)
	}
	if _, ok := typeWidth[kind]; !ok && kind != 'X' {
		return 0, 0, fmt.Errorf("unknown TFORM type %q", format)
	}
	return repeat, kind, nil
}

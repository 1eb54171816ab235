package fits

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// ColumnData is one column handed to WriteTable. Exactly one of Float64 or
// Int32 must be set.
type ColumnData struct {
	Name    string
	Float64 []float64
	Int32   []int32
}

func (c ColumnData) rows() int {
	if c.Float64 != nil {
		return len(c.Float64)
	}
	return len(c.Int32)
}

// WriteTable encodes an empty primary HDU followed by a single BINTABLE
// extension named extname. Float columns are written as 'D', integer columns
// as 'J'.
func WriteTable(w io.Writer, extname string, cols []ColumnData, extra map[string]string) error {
	if len(cols) == 0 {
		return fmt.Errorf("fits: no columns")
	}
	rows := cols[0].rows()
	rowLen := 0
	for _, c := range cols {
		if (c.Float64 == nil) == (c.Int32 == nil) {
			return fmt.Errorf("fits: column %s must hold exactly one of Float64 or Int32", c.Name)
		}
		if c.rows() != rows {
			return fmt.Errorf("fits: column %s has %d rows, want %d", c.Name, c.rows(), rows)
		}
		if c.Float64 != nil {
			rowLen += 8
		} else {
			rowLen += 4
		}
	}

	var buf bytes.Buffer
	primary := [][2]string{{"SIMPLE", "T"}, {"BITPIX", "8"}, {"NAXIS", "0"}, {"EXTEND", "T"}}
	for k, v := range extra {
		primary = append(primary, [2]string{k, quote(v)})
	}
	writeHeader(&buf, primary)

	ext := [][2]string{
		{"XTENSION", quote("BINTABLE")},
		{"BITPIX", "8"},
		{"NAXIS", "2"},
		{"NAXIS1", strconv.Itoa(rowLen)},
		{"NAXIS2", strconv.Itoa(rows)},
		{"PCOUNT", "0"},
		{"GCOUNT", "1"},
		{"TFIELDS", strconv.Itoa(len(cols))},
	}
	for i, c := range cols {
		n := strconv.Itoa(i + 1)
		form := "D"
		if c.Int32 != nil {
			form = "J"
		}
		ext = append(ext, [2]string{"TTYPE" + n, quote(c.Name)}, [2]string{"TFORM" + n, quote(form)})
	}
	ext = append(ext, [2]string{"EXTNAME", quote(extname)})
	writeHeader(&buf, ext)

	start := buf.Len()
	var scratch [8]byte
	for r := 0; r < rows; r++ {
		for _, c := range cols {
			if c.Float64 != nil {
				binary.BigEndian.PutUint64(scratch[:], math.Float64bits(c.Float64[r]))
				buf.Write(scratch[:8])
				continue
			}
			binary.BigEndian.PutUint32(scratch[:], uint32(c.Int32[r]))
			buf.Write(scratch[:4])
		}
	}
	buf.Write(make([]byte, padding(buf.Len()-start)))
	_, err := w.Write(buf.Bytes())
	return err
}

func writeHeader(buf *bytes.Buffer, cards [][2]string) {
	start := buf.Len()
	for _, kv := range cards {
		card := fmt.Sprintf("%-8s= %20s", kv[0], kv[1])
		if len(card) > cardSize {
			card = card[:cardSize]
		}
		buf.WriteString(fmt.Sprintf("%-80s", card))
	}
	buf.WriteString(fmt.Sprintf("%-80s", "END"))
	buf.WriteString(strings.Repeat(" ", padding(buf.Len()-start)))
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

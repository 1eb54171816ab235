package fits_test

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exohunt/internal/fits"
)

func encode(t *testing.T, cols []fits.ColumnData) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, fits.WriteTable(&buf, "LIGHTCURVE", cols, map[string]string{"OBJECT": "TIC 12345"}))
	require.Zero(t, buf.Len()%2880, "file must be block aligned")
	return buf.Bytes()
}

func TestReadTableDecodesColumns(t *testing.T) {
	data := encode(t, []fits.ColumnData{
		{Name: "TIME", Float64: []float64{1.5, 1.52, math.NaN()}},
		{Name: "PDCSAP_FLUX", Float64: []float64{100, 101.25, 99}},
		{Name: "QUALITY", Int32: []int32{0, 128, 4096}},
	})

	table, err := fits.ReadTableBytes(data, "lightcurve")
	require.NoError(t, err)
	assert.Equal(t, "LIGHTCURVE", table.Name)
	assert.Equal(t, 3, table.Rows())
	assert.True(t, table.HasColumn("pdcsap_flux"))
	assert.False(t, table.HasColumn("SAP_FLUX"))

	times, err := table.Float64s("TIME")
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 1.52}, times[:2])
	assert.True(t, math.IsNaN(times[2]))

	quality, err := table.Int64s("QUALITY")
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 128, 4096}, quality)

	asFloat, err := table.Float64s("QUALITY")
	require.NoError(t, err)
	assert.Equal(t, 128.0, asFloat[1])
}

func TestReadAllExposesPrimaryHeader(t *testing.T) {
	data := encode(t, []fits.ColumnData{{Name: "TIME", Float64: []float64{1}}})
	hdus, err := fits.ReadAll(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, hdus, 2)
	assert.Equal(t, "TIC 12345", hdus[0].Header.String("OBJECT"))
	assert.False(t, hdus[0].IsBinTable())
	assert.True(t, hdus[1].IsBinTable())
}

func TestReadTableMissingExtension(t *testing.T) {
	data := encode(t, []fits.ColumnData{{Name: "TIME", Float64: []float64{1}}})
	_, err := fits.ReadTableBytes(data, "APERTURE")
	require.True(t, errors.Is(err, fits.ErrTableNotFound))
}

func TestReadAllRejectsGarbage(t *testing.T) {
	_, err := fits.ReadAll(bytes.NewReader(nil))
	require.Error(t, err)

	_, err = fits.ReadAll(bytes.NewReader(bytes.Repeat([]byte("x"), 2880)))
	require.Error(t, err)
}

func TestUnknownColumn(t *testing.T) {
	data := encode(t, []fits.ColumnData{{Name: "TIME", Float64: []float64{1}}})
	table, err := fits.ReadTableBytes(data, "")
	require.NoError(t, err)
	_, err = table.Float64s("FLUX")
	require.Error(t, err)
	_, err = table.Int64s("TIME")
	require.Error(t, err)
}

func TestWriteTableValidatesColumns(t *testing.T) {
	var buf bytes.Buffer
	err := fits.WriteTable(&buf, "X", []fits.ColumnData{
		{Name: "A", Float64: []float64{1, 2}},
		{Name: "B", Int32: []int32{1}},
	}, nil)
	require.Error(t, err)
}

// rawFile assembles an empty primary HDU and one BINTABLE with the given
// cards and data, bypassing WriteTable's validation.
func rawFile(cards [][2]string, data []byte) []byte {
	var buf bytes.Buffer
	header := func(cards [][2]string) {
		start := buf.Len()
		for _, kv := range cards {
			buf.WriteString(fmt.Sprintf("%-80s", fmt.Sprintf("%-8s= %20s", kv[0], kv[1])))
		}
		buf.WriteString(fmt.Sprintf("%-80s", "END"))
		if r := (buf.Len() - start) % 2880; r != 0 {
			buf.WriteString(strings.Repeat(" ", 2880-r))
		}
	}
	header([][2]string{{"SIMPLE", "T"}, {"BITPIX", "8"}, {"NAXIS", "0"}})
	header(cards)
	buf.Write(data)
	if r := len(data) % 2880; r != 0 {
		buf.Write(make([]byte, 2880-r))
	}
	return buf.Bytes()
}

func TestNewTableRejectsEmptyNumericColumn(t *testing.T) {
	data := rawFile([][2]string{
		{"XTENSION", "'BINTABLE'"}, {"BITPIX", "8"}, {"NAXIS", "2"},
		{"NAXIS1", "8"}, {"NAXIS2", "2"}, {"PCOUNT", "0"}, {"GCOUNT", "1"},
		{"TFIELDS", "2"},
		{"TTYPE1", "'FLUX'"}, {"TFORM1", "'1D'"},
		{"TTYPE2", "'TIME'"}, {"TFORM2", "'0D'"},
	}, make([]byte, 16))

	require.NotPanics(t, func() {
		_, err := fits.ReadTableBytes(data, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "TIME")
	})
}

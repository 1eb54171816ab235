package plot_test

import (
	"bytes"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/vg"

	"exohunt/internal/lightcurve"
	"exohunt/internal/plot"
)

func folded(t *testing.T) *lightcurve.LightCurve {
	t.Helper()
	n := 300
	times := make([]float64, n)
	flux := make([]float64, n)
	for i := range times {
		x := -1.5 + 3*float64(i)/float64(n-1)
		times[i] = x
		flux[i] = 1
		if math.Abs(x) < 0.05 {
			flux[i] = 0.99
		}
	}
	flux[10] = math.NaN()
	lc, err := lightcurve.New(times, flux)
	require.NoError(t, err)
	return lc
}

func TestRenderWritesPNG(t *testing.T) {
	lc := folded(t)
	periods := []float64{1, 2, 3, 4}
	powers := []float64{0.1, 0.2, 0.9, 0.3}
	var buf bytes.Buffer
	err := plot.Render(&buf, plot.Figure{
		Title:   "TIC 1",
		Period:  3,
		Folded:  lc,
		Model:   lc,
		Periods: periods,
		Powers:  powers,
	}, plot.Options{Width: 10 * vg.Centimeter, Height: 8 * vg.Centimeter, PolyDegree: 18})
	require.NoError(t, err)
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Greater(t, img.Bounds().Dx(), 0)
}

func TestSaveWithoutModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plots", "a_linear.png")
	require.NoError(t, plot.Save(path, plot.Figure{Title: "a", Folded: folded(t)}, plot.Options{}))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestRenderNoFiniteData(t *testing.T) {
	lc, err := lightcurve.New([]float64{math.NaN()}, []float64{1})
	require.NoError(t, err)
	err = plot.Render(&bytes.Buffer{}, plot.Figure{Folded: lc}, plot.Options{})
	assert.ErrorIs(t, err, plot.ErrNoData)
}

func TestFitPolynomialRecoversQuadratic(t *testing.T) {
	x := make([]float64, 50)
	y := make([]float64, 50)
	for i := range x {
		x[i] = float64(i) / 10
		y[i] = 2 - 3*x[i] + 0.5*x[i]*x[i]
	}
	p, err := plot.FitPolynomial(x, y, 2)
	require.NoError(t, err)
	for _, v := range []float64{0, 1.7, 4.9} {
		assert.InDelta(t, 2-3*v+0.5*v*v, p.Eval(v), 1e-9)
	}

	_, err = plot.FitPolynomial(x[:3], y[:3], 5)
	assert.Error(t, err)
}

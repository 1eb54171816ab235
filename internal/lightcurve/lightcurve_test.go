package lightcurve_test

import (
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exohunt/internal/lightcurve"
)

func uniformCurve(n int, cadence float64, flux func(t float64) float64) *lightcurve.LightCurve {
	lc := &lightcurve.LightCurve{Time: make([]float64, n), Flux: make([]float64, n)}
	for i := 0; i < n; i++ {
		t := float64(i) * cadence
		lc.Time[i] = t
		lc.Flux[i] = flux(t)
	}
	return lc
}

func TestNewRejectsMismatchedLengths(t *testing.T) {
	_, err := lightcurve.New([]float64{1, 2}, []float64{1})
	require.Error(t, err)
}

func TestRemoveNaNs(t *testing.T) {
	lc, err := lightcurve.New([]float64{1, 2, math.NaN(), 4}, []float64{1, math.NaN(), 3, math.Inf(1)})
	require.NoError(t, err)
	clean := lc.RemoveNaNs()
	assert.Equal(t, []float64{1}, clean.Time)
	assert.Equal(t, 4, lc.Len(), "input must not be modified")
}

func TestRemoveOutliersDropsSpike(t *testing.T) {
	lc := uniformCurve(200, 0.02, func(t float64) float64 { return 1 + 0.001*math.Sin(t*40) })
	lc.Flux[50] = 1.5
	clean, removed := lc.RemoveOutliers(4)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 199, clean.Len())
	for _, f := range clean.Flux {
		assert.Less(t, f, 1.01)
	}
}

func TestRemoveFlaresKeepsDips(t *testing.T) {
	lc := uniformCurve(200, 0.02, func(t float64) float64 { return 1 + 0.001*math.Sin(t*40) })
	lc.Flux[50] = 1.5
	lc.Flux[120] = 0.5
	clean, removed := lc.RemoveFlares(4)
	assert.Equal(t, 1, removed)
	assert.Contains(t, clean.Flux, 0.5)

	_, removed = lc.RemoveOutliers(4)
	assert.Equal(t, 2, removed)
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 2.0, lightcurve.Median([]float64{3, 1, 2}))
	assert.Equal(t, 2.5, lightcurve.Median([]float64{4, 1, 3, 2}))
	assert.True(t, math.IsNaN(lightcurve.Median(nil)))
}

func TestFlattenRemovesLinearTrend(t *testing.T) {
	lc := uniformCurve(2000, 0.02, func(t float64) float64 { return 100 + 2*t })
	flat, trend, err := lc.Flatten(lightcurve.FlattenOptions{WindowLength: 101, PolyOrder: 2, BreakTolerance: 5, Iterations: 3, Sigma: 3})
	require.NoError(t, err)
	require.Len(t, trend, lc.Len())
	for i, f := range flat.Flux {
		require.InDelta(t, 1.0, f, 1e-9, "sample %d", i)
	}
}

func TestFlattenSplitsAtGaps(t *testing.T) {
	first := uniformCurve(300, 0.02, func(float64) float64 { return 10 })
	second := uniformCurve(300, 0.02, func(float64) float64 { return 20 })
	for i := range second.Time {
		second.Time[i] += 100
	}
	lc, err := lightcurve.New(append(first.Time, second.Time...), append(first.Flux, second.Flux...))
	require.NoError(t, err)

	flat, _, err := lc.Flatten(lightcurve.DefaultFlattenOptions())
	require.NoError(t, err)
	for _, f := range flat.Flux {
		require.InDelta(t, 1.0, f, 1e-9)
	}
}

func TestFlattenShrinksWindowForShortChunks(t *testing.T) {
	lc := uniformCurve(50, 0.02, func(t float64) float64 { return 5 + t })
	flat, _, err := lc.Flatten(lightcurve.FlattenOptions{WindowLength: 901, PolyOrder: 2, BreakTolerance: 5, Iterations: 2, Sigma: 3})
	require.NoError(t, err)
	for _, f := range flat.Flux {
		require.InDelta(t, 1.0, f, 1e-9)
	}
}

func TestFlattenPreservesTransitDip(t *testing.T) {
	lc := uniformCurve(2000, 0.02, func(t float64) float64 { return 1 + 0.0005*t })
	for i := 1000; i < 1010; i++ {
		lc.Flux[i] *= 0.99
	}
	flat, _, err := lc.Flatten(lightcurve.FlattenOptions{WindowLength: 401, PolyOrder: 2, BreakTolerance: 5, Iterations: 3, Sigma: 3})
	require.NoError(t, err)
	for i := 1000; i < 1010; i++ {
		assert.InDelta(t, 0.99, flat.Flux[i], 0.002)
	}
	assert.InDelta(t, 1.0, flat.Flux[200], 1e-3)
}

func TestFlattenValidatesOptions(t *testing.T) {
	lc := uniformCurve(10, 0.02, func(float64) float64 { return 1 })
	_, _, err := lc.Flatten(lightcurve.FlattenOptions{WindowLength: 100, PolyOrder: 2, BreakTolerance: 5, Iterations: 1, Sigma: 3})
	require.Error(t, err)

	_, _, err = (&lightcurve.LightCurve{}).Flatten(lightcurve.DefaultFlattenOptions())
	require.ErrorIs(t, err, lightcurve.ErrEmpty)
}

func TestPhaseTimeRange(t *testing.T) {
	cases := []struct{ t, want float64 }{
		{10, 0},
		{11, 1},
		{12.5, -0.5},
		{11.5, -1.5},
		{7, 0},
		{-2, 0},
	}
	for _, tc := range cases {
		assert.InDelta(t, tc.want, lightcurve.PhaseTime(tc.t, 3, 10), 1e-12, "t=%v", tc.t)
	}
}

func TestFoldSortsByPhase(t *testing.T) {
	lc := uniformCurve(500, 0.05, func(float64) float64 { return 1 })
	folded := lc.Fold(2.5, 1.0)
	require.Equal(t, lc.Len(), folded.Len())
	for i, ph := range folded.Time {
		assert.GreaterOrEqual(t, ph, -1.25)
		assert.Less(t, ph, 1.25)
		if i > 0 {
			assert.GreaterOrEqual(t, ph, folded.Time[i-1])
		}
	}
}

func TestStitchNormalisesSegments(t *testing.T) {
	a := uniformCurve(10, 1, func(float64) float64 { return 50 })
	b := uniformCurve(5, 1, func(float64) float64 { return 200 })
	stitched := lightcurve.Stitch(a, &lightcurve.LightCurve{}, b)
	assert.Equal(t, 15, stitched.Len())
	for _, f := range stitched.Flux {
		assert.InDelta(t, 1.0, f, 1e-12)
	}
}

func TestCSVRoundTripPreservesMissingValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lc.csv")
	lc, err := lightcurve.New([]float64{1.5, 2.25, 3}, []float64{0.999, math.NaN(), 1.0001})
	require.NoError(t, err)
	require.NoError(t, lc.WriteCSV(path))

	read, err := lightcurve.ReadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, lc.Time, read.Time)
	assert.Equal(t, 0.999, read.Flux[0])
	assert.True(t, math.IsNaN(read.Flux[1]))
}

func TestDecodeCSVRequiresColumns(t *testing.T) {
	_, err := lightcurve.DecodeCSV(strings.NewReader("a,b\n1,2\n"))
	require.Error(t, err)

	lc, err := lightcurve.DecodeCSV(strings.NewReader("flux_err,flux,time\n0.1,2,3\n"))
	require.NoError(t, err)
	assert.Equal(t, []float64{3}, lc.Time)
	assert.Equal(t, []float64{2}, lc.Flux)
}

package bls_test

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exohunt/internal/bls"
	"exohunt/internal/lightcurve"
)

var defaultDurations = []float64{0.05, 0.08, 0.1, 0.125, 0.15, 0.2, 0.25, 0.33}

// syntheticTransit returns n samples at 0.05 d cadence with a box dip of the
// given depth and duration repeating every period days.
func syntheticTransit(n int, period, epoch, depth, duration, noise float64) *lightcurve.LightCurve {
	rng := rand.New(rand.NewPCG(1, 2))
	lc := &lightcurve.LightCurve{Time: make([]float64, n), Flux: make([]float64, n)}
	for i := 0; i < n; i++ {
		t := float64(i) * 0.05
		f := 1.0
		if math.Abs(lightcurve.PhaseTime(t, period, epoch)) < duration/2 {
			f -= depth
		}
		lc.Time[i] = t
		lc.Flux[i] = f + noise*rng.NormFloat64()
	}
	return lc
}

func TestSearchRecoversPeriod(t *testing.T) {
	lc := syntheticTransit(500, 3.5, 1.2, 0.01, 0.2, 0.001)
	periods, err := bls.Linear(1, 20, 10000)
	require.NoError(t, err)

	res, err := bls.Search(lc, periods, bls.Options{Durations: defaultDurations, Oversample: 10})
	require.NoError(t, err)
	assert.InDelta(t, 3.5, res.Period, 0.02)
	assert.InDelta(t, 0.01, res.Depth, 0.003)
	assert.InDelta(t, 0, lightcurve.PhaseTime(res.Epoch, res.Period, 1.2), 0.15)
	assert.Greater(t, res.Power, 0.0)
	assert.Len(t, res.Powers, len(periods))
}

func TestSearchFlatCurveHasNoSignal(t *testing.T) {
	lc := syntheticTransit(300, 3, 0, 0, 0.1, 0)
	periods, err := bls.Linear(1, 5, 100)
	require.NoError(t, err)
	_, err = bls.Search(lc, periods, bls.Options{Durations: defaultDurations})
	require.ErrorIs(t, err, bls.ErrNoSignal)
}

func TestSearchEmptyInput(t *testing.T) {
	_, err := bls.Search(&lightcurve.LightCurve{}, []float64{1, 2}, bls.Options{Durations: defaultDurations})
	require.ErrorIs(t, err, bls.ErrNoSignal)

	lc := syntheticTransit(100, 2, 0, 0.01, 0.1, 0)
	_, err = bls.Search(lc, nil, bls.Options{Durations: defaultDurations})
	require.ErrorIs(t, err, bls.ErrNoSignal)

	_, err = bls.Search(lc, []float64{1}, bls.Options{})
	require.Error(t, err)
}

func TestLinearGrid(t *testing.T) {
	periods, err := bls.Linear(1, 20, 10000)
	require.NoError(t, err)
	require.Len(t, periods, 10000)
	assert.Equal(t, 1.0, periods[0])
	assert.Equal(t, 20.0, periods[len(periods)-1])

	_, err = bls.Linear(5, 1, 10)
	require.Error(t, err)
}

func TestArangeGrid(t *testing.T) {
	periods, err := bls.Arange(1, 16, 0.01)
	require.NoError(t, err)
	require.Len(t, periods, 1500)
	assert.InDelta(t, 15.99, periods[len(periods)-1], 1e-9)
}

func TestAutoGrid(t *testing.T) {
	lc := syntheticTransit(1000, 3, 0, 0.01, 0.1, 0)
	periods, err := bls.Auto(lc, defaultDurations, 500)
	require.NoError(t, err)
	require.NotEmpty(t, periods)
	for i := 1; i < len(periods); i++ {
		require.Greater(t, periods[i], periods[i-1])
	}
	assert.InDelta(t, lc.Baseline()/3, periods[len(periods)-1], 1e-9)
	assert.GreaterOrEqual(t, periods[0], 0.33)
}

func TestPeriodsRejectsUnknownStrategy(t *testing.T) {
	_, err := bls.Periods("fancy", bls.GridOptions{}, nil)
	require.Error(t, err)

	periods, err := bls.Periods("ARRAY", bls.GridOptions{ArrayStart: 1, ArrayStop: 2, ArrayStep: 0.5}, nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1.5}, periods)
}

package transit_test

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exohunt/internal/lightcurve"
	"exohunt/internal/services"
	"exohunt/internal/transit"
)

var truth = transit.Params{Period: 3.5, T0: 1.2, RpRs: 0.1, ARs: 12, Inc: 89.5}

func simulate(n int, cadence, noise float64, p transit.Params) *lightcurve.LightCurve {
	rng := rand.New(rand.NewPCG(7, 11))
	m := transit.NewModel(nil)
	lc := &lightcurve.LightCurve{Time: make([]float64, n), Flux: make([]float64, n)}
	for i := range lc.Time {
		t := float64(i) * cadence
		lc.Time[i] = t
		lc.Flux[i] = m.Flux(t, p) + noise*rng.NormFloat64()
	}
	return lc
}

func TestModelOutOfTransitIsUnity(t *testing.T) {
	m := transit.NewModel([]float64{0.1, 0.3})
	assert.Equal(t, 1.0, m.Flux(truth.T0+truth.Period/2, truth))
	assert.Equal(t, 1.0, m.Flux(truth.T0+0.3, truth))
}

func TestModelCentralDepth(t *testing.T) {
	uniform := transit.Model{}
	p := transit.Params{Period: 10, T0: 0, RpRs: 0.1, ARs: 20, Inc: 90}
	assert.InDelta(t, 1-0.01, uniform.Flux(0, p), 1e-4)

	darkened := transit.NewModel(nil)
	centre := darkened.Flux(0, p)
	assert.Less(t, centre, 1-0.01, "limb darkening deepens a central transit")
	assert.Greater(t, centre, 1-0.02)
}

func TestSeparationBehindStar(t *testing.T) {
	assert.True(t, math.IsInf(transit.Separation(truth.T0+truth.Period/2, truth), 1))
	assert.InDelta(t, 12*math.Cos(89.5*math.Pi/180), transit.Separation(truth.T0, truth), 1e-9)
}

func TestFitRecoversInjectedTransit(t *testing.T) {
	lc := simulate(4000, 0.005, 2e-4, truth)
	seed := transit.Seed{Period: 3.51, T0: 1.21, Depth: 0.011}

	res, err := transit.Fit(lc, seed, transit.FitOptions{})
	require.NoError(t, err)
	p := res.Params
	assert.GreaterOrEqual(t, p.RpRs, 0.01)
	assert.LessOrEqual(t, p.RpRs, 0.5)
	assert.InDelta(t, truth.RpRs, p.RpRs, 0.01)
	assert.InDelta(t, truth.Period, p.Period, 0.01)
	assert.InDelta(t, truth.T0, p.T0, 0.01)
	assert.LessOrEqual(t, p.Inc, 90.0)
}

func TestFitRespectsBounds(t *testing.T) {
	lc := simulate(2000, 0.01, 1e-4, transit.Params{Period: 3.5, T0: 1.2, RpRs: 0.7, ARs: 12, Inc: 90})
	res, err := transit.Fit(lc, transit.Seed{Period: 3.5, T0: 1.2, Depth: 0.4}, transit.FitOptions{MaxIterations: 1000})
	require.NoError(t, err)
	b := transit.BoundsFor(transit.Params{Period: 3.5, T0: 1.2})
	assert.LessOrEqual(t, res.Params.RpRs, b.Upper.RpRs)
	assert.GreaterOrEqual(t, res.Params.Period, b.Lower.Period)
	assert.LessOrEqual(t, res.Params.Period, b.Upper.Period)
}

func TestFitLeavesGrazingStart(t *testing.T) {
	lc := simulate(500, 0.05, 5e-4, truth)
	// a_rs·cos(inc) = 1.46 puts the seed well outside a full transit.
	opts := transit.FitOptions{ARsPrior: 20, IncPrior: 85.8}
	res, err := transit.Fit(lc, transit.Seed{Period: 3.5, T0: 1.2, Depth: 0.01, Duration: 0.11}, opts)
	require.NoError(t, err)

	p := res.Params
	b := p.ARs * math.Cos(p.Inc*math.Pi/180)
	assert.Less(t, b, 1-p.RpRs, "fit should describe a full transit: %+v", p)
	assert.InDelta(t, truth.RpRs, p.RpRs, 0.05)

	folded := lc.Fold(p.Period, p.T0)
	derived := transit.Derive(transit.NewModel(nil), p, folded.Time, 1)
	assert.Greater(t, derived.Duration, 0.0)
}

func TestFitWithoutDipFails(t *testing.T) {
	lc := simulate(200, 0.05, 0, transit.Params{Period: 3, T0: 0, RpRs: 0, ARs: 10, Inc: 90})
	for _, depth := range []float64{0, -0.01, math.NaN()} {
		_, err := transit.Fit(lc, transit.Seed{Period: 3, T0: 0, Depth: depth}, transit.FitOptions{})
		require.True(t, errors.Is(err, services.ErrFitNonConvergent), "depth %v: %v", depth, err)
	}
}

func TestFitIterationBudget(t *testing.T) {
	lc := simulate(2000, 0.01, 1e-3, truth)
	_, err := transit.Fit(lc, transit.Seed{Period: 3.4, T0: 1.1, Depth: 0.01}, transit.FitOptions{MaxIterations: 1, Tolerance: 1e-30})
	require.ErrorIs(t, err, services.ErrFitNonConvergent)
}

func TestDeriveDuration(t *testing.T) {
	m := transit.NewModel(nil)
	phase := make([]float64, 0, 701)
	for i := -350; i <= 350; i++ {
		phase = append(phase, float64(i)*0.001)
	}
	derived := transit.Derive(m, truth, phase, 0.42)
	assert.InDelta(t, 0.01, derived.Depth, 1e-12)
	assert.Equal(t, 0.42, derived.SNR)
	assert.Greater(t, derived.Duration, 0.05)
	assert.Less(t, derived.Duration, 0.12)
}

func TestDeriveDurationNeedsTwoSamples(t *testing.T) {
	m := transit.NewModel(nil)
	derived := transit.Derive(m, truth, []float64{0, 1.0, -1.0}, 1)
	assert.Equal(t, 0.0, derived.Duration)

	derived = transit.Derive(m, truth, []float64{1.0, -1.5}, 1)
	assert.Equal(t, 0.0, derived.Duration)
}

package transit

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"exohunt/internal/config"
	"exohunt/internal/lightcurve"
	"exohunt/internal/services"
)

const (
	lambdaInit = 1e-3
	lambdaMax  = 1e12
	stallLimit = 3
)

// Bounds are the inclusive parameter limits enforced during the fit.
type Bounds struct {
	Lower, Upper Params
}

// BoundsFor returns the fit box around a seed: period and epoch within 10%
// of the period, radius ratio in [0.01, 0.5], scaled semi-major axis in
// [1.5, 200] and inclination in [60, 90] degrees.
func BoundsFor(seed Params) Bounds {
	span := 0.1 * seed.Period
	return Bounds{
		Lower: Params{Period: seed.Period - span, T0: seed.T0 - span, RpRs: 0.01, ARs: 1.5, Inc: 60},
		Upper: Params{Period: seed.Period + span, T0: seed.T0 + span, RpRs: 0.5, ARs: 200, Inc: 90},
	}
}

func (b Bounds) clamp(x []float64) {
	lo, hi := b.Lower.vector(), b.Upper.vector()
	for i := range x {
		x[i] = math.Max(lo[i], math.Min(hi[i], x[i]))
	}
}

// FitOptions controls the solver.
type FitOptions struct {
	Model         Model
	ARsPrior      float64
	IncPrior      float64
	MaxIterations int
	Tolerance     float64
}

// FitOptionsFromConfig reads the fit section.
func FitOptionsFromConfig(cfg *config.Config) FitOptions {
	return FitOptions{
		Model:         NewModel(cfg.Fit.LimbDarkening),
		ARsPrior:      cfg.Fit.ARsPrior,
		IncPrior:      cfg.Fit.IncPrior,
		MaxIterations: cfg.Fit.MaxIterations,
		Tolerance:     cfg.Fit.Tolerance,
	}
}

func (o *FitOptions) defaults() {
	if o.Model == (Model{}) {
		o.Model = NewModel(nil)
	}
	if o.ARsPrior <= 0 {
		o.ARsPrior = 15
	}
	if o.IncPrior <= 0 {
		o.IncPrior = 89
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = 200
	}
	if o.Tolerance <= 0 {
		o.Tolerance = 1e-8
	}
}

// Seed is the starting point of a fit, usually taken from the BLS result.
type Seed struct {
	Period float64
	T0     float64
	// Depth is the observed fractional dip depth.
	Depth float64
	// Duration is the box duration in days; zero keeps opts.ARsPrior for the
	// central restart.
	Duration float64
}

// FitResult is a converged fit.
type FitResult struct {
	Params     Params
	Iterations int
	// ChiSquare is the sum of squared residuals at the solution.
	ChiSquare float64
}

// Fit adjusts the five model parameters to lc by bounded Levenberg–Marquardt.
// It fails with services.ErrFitNonConvergent when there is no observable dip,
// a residual becomes non-finite, or the iteration budget runs out.
func Fit(lc *lightcurve.LightCurve, seed Seed, opts FitOptions) (FitResult, error) {
	opts.defaults()
	if math.IsNaN(seed.Depth) || math.IsInf(seed.Depth, 0) || seed.Depth <= 0 {
		return FitResult{}, nonConvergent("no observable dip (depth %g)", seed.Depth)
	}
	if !(seed.Period > 0) || math.IsInf(seed.Period, 0) || math.IsNaN(seed.T0) {
		return FitResult{}, nonConvergent("invalid seed period %g epoch %g", seed.Period, seed.T0)
	}
	clean := lc.RemoveNaNs()
	if clean.Len() < 6 {
		return FitResult{}, nonConvergent("%d samples cannot constrain five parameters", clean.Len())
	}

	start := Params{
		Period: seed.Period,
		T0:     seed.T0,
		RpRs:   math.Sqrt(seed.Depth),
		ARs:    opts.ARsPrior,
		Inc:    opts.IncPrior,
	}
	bounds := BoundsFor(start)
	s := solver{model: opts.Model, t: clean.Time, y: clean.Flux, bounds: bounds, steps: stepSizes(start)}

	res, err := s.minimize(start, opts)
	if err == nil && !res.Params.grazing() {
		return res, nil
	}

	// Grazing or failed fits restart from a central transit matching the
	// seed duration; the lower chi-square wins.
	central := start
	central.Inc = 90
	if seed.Duration > 0 {
		central.ARs = seed.Period / (math.Pi * seed.Duration)
	}
	alt, altErr := s.minimize(central, opts)
	switch {
	case altErr != nil:
		return res, err
	case err != nil || alt.ChiSquare < res.ChiSquare:
		return alt, nil
	}
	return res, nil
}

// minimize runs bounded Levenberg–Marquardt from start. It stops once
// stallLimit consecutive accepted steps each change the cost or the
// parameters by less than opts.Tolerance, or when no downhill step exists.
func (s solver) minimize(start Params, opts FitOptions) (FitResult, error) {
	x := start.vector()
	s.bounds.clamp(x)
	r, cost, ok := s.residuals(x)
	if !ok {
		return FitResult{}, nonConvergent("non-finite residual at the seed")
	}

	lambda := lambdaInit
	stalled := 0
	for iter := 1; iter <= opts.MaxIterations; iter++ {
		jac, ok := s.jacobian(x, r)
		if !ok {
			return FitResult{}, nonConvergent("non-finite jacobian at iteration %d", iter)
		}
		var jtj mat.Dense
		jtj.Mul(jac.T(), jac)
		var jtr mat.VecDense
		jtr.MulVec(jac.T(), mat.NewVecDense(len(r), r))

		accepted := false
		for !accepted {
			delta, solved := solveDamped(&jtj, &jtr, lambda)
			if !solved {
				lambda *= 10
				if lambda > lambdaMax {
					return s.result(x, cost, iter), nil
				}
				continue
			}
			trial := make([]float64, len(x))
			floats.AddTo(trial, x, delta)
			s.bounds.clamp(trial)
			trialR, trialCost, finite := s.residuals(trial)
			if !finite {
				return FitResult{}, nonConvergent("non-finite residual at iteration %d", iter)
			}
			if trialCost < cost {
				improvement := cost - trialCost
				stepSize := relativeStep(x, trial)
				x, r, cost = trial, trialR, trialCost
				lambda = math.Max(lambda/10, 1e-12)
				accepted = true
				if improvement <= opts.Tolerance*math.Max(cost, 1e-300) || stepSize <= opts.Tolerance {
					stalled++
				} else {
					stalled = 0
				}
				if stalled >= stallLimit {
					return s.result(x, cost, iter), nil
				}
				continue
			}
			lambda *= 10
			if lambda > lambdaMax {
				// No downhill step exists: x is a (bounded) minimum.
				return s.result(x, cost, iter), nil
			}
		}
	}
	return FitResult{}, nonConvergent("iteration budget of %d exhausted", opts.MaxIterations)
}

type solver struct {
	model  Model
	t, y   []float64
	bounds Bounds
	steps  []float64
}

func (s solver) residuals(x []float64) ([]float64, float64, bool) {
	p := paramsFrom(x)
	r := make([]float64, len(s.t))
	var cost float64
	for i, ti := range s.t {
		r[i] = s.y[i] - s.model.Flux(ti, p)
		if math.IsNaN(r[i]) || math.IsInf(r[i], 0) {
			return nil, 0, false
		}
		cost += r[i] * r[i]
	}
	return r, cost, true
}

// jacobian returns d(model)/d(param) by forward differences, stepping inward
// at an upper bound.
func (s solver) jacobian(x, r []float64) (*mat.Dense, bool) {
	n := len(s.t)
	jac := mat.NewDense(n, len(x), nil)
	upper := s.bounds.Upper.vector()
	for j := range x {
		h := s.steps[j]
		if x[j]+h > upper[j] {
			h = -h
		}
		shifted := append([]float64(nil), x...)
		shifted[j] += h
		rj, _, ok := s.residuals(shifted)
		if !ok {
			return nil, false
		}
		for i := 0; i < n; i++ {
			// residual = y - model, so model difference is r - rj.
			jac.Set(i, j, (r[i]-rj[i])/h)
		}
	}
	return jac, true
}

func (s solver) result(x []float64, cost float64, iter int) FitResult {
	return FitResult{Params: paramsFrom(x), Iterations: iter, ChiSquare: cost}
}

// solveDamped solves (JᵀJ + λ·diag(JᵀJ)) δ = Jᵀr.
func solveDamped(jtj *mat.Dense, jtr *mat.VecDense, lambda float64) ([]float64, bool) {
	n, _ := jtj.Dims()
	var maxDiag float64
	for i := 0; i < n; i++ {
		maxDiag = math.Max(maxDiag, jtj.At(i, i))
	}
	floor := 1e-12 * math.Max(maxDiag, 1e-300)
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := jtj.At(i, j)
			if i == j {
				v += lambda * math.Max(v, floor)
			}
			sym.SetSym(i, j, v)
		}
	}
	var chol mat.Cholesky
	if !chol.Factorize(sym) {
		return nil, false
	}
	var delta mat.VecDense
	if err := chol.SolveVecTo(&delta, jtr); err != nil {
		return nil, false
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = delta.AtVec(i)
		if math.IsNaN(out[i]) || math.IsInf(out[i], 0) {
			return nil, false
		}
	}
	return out, true
}

func stepSizes(p Params) []float64 {
	return []float64{
		1e-7 * p.Period,
		1e-5 * p.Period,
		1e-5,
		1e-4 * math.Max(p.ARs, 1),
		1e-4,
	}
}

func relativeStep(a, b []float64) float64 {
	var worst float64
	for i := range a {
		worst = math.Max(worst, math.Abs(b[i]-a[i])/math.Max(math.Abs(a[i]), 1e-12))
	}
	return worst
}

func nonConvergent(format string, args ...any) error {
	return services.Wrap(services.ErrFitNonConvergent, "analyze", "fit", fmt.Sprintf(format, args...), nil)
}

package plot

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Polynomial is a least-squares fit in a scaled abscissa u = (x-Center)/Scale,
// which keeps high degrees well conditioned.
type Polynomial struct {
	Coeffs []float64
	Center float64
	Scale  float64
}

// FitPolynomial fits y ≈ Σ c_k u^k of the given degree.
func FitPolynomial(x, y []float64, degree int) (Polynomial, error) {
	if len(x) != len(y) {
		return Polynomial{}, fmt.Errorf("polyfit: %d x values but %d y values", len(x), len(y))
	}
	if degree < 0 || len(x) <= degree {
		return Polynomial{}, fmt.Errorf("polyfit: degree %d needs more than %d samples", degree, len(x))
	}
	lo, hi := x[0], x[0]
	for _, v := range x {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	p := Polynomial{Center: (lo + hi) / 2, Scale: (hi - lo) / 2}
	if p.Scale == 0 {
		p.Scale = 1
	}

	cols := degree + 1
	a := mat.NewDense(len(x), cols, nil)
	for i, v := range x {
		u := (v - p.Center) / p.Scale
		pow := 1.0
		for k := 0; k < cols; k++ {
			a.Set(i, k, pow)
			pow *= u
		}
	}
	var c mat.VecDense
	if err := c.SolveVec(a, mat.NewVecDense(len(y), append([]float64(nil), y...))); err != nil {
		return Polynomial{}, fmt.Errorf("polyfit: %w", err)
	}
	p.Coeffs = make([]float64, cols)
	for k := range p.Coeffs {
		p.Coeffs[k] = c.AtVec(k)
	}
	return p, nil
}

// Eval evaluates the polynomial at x by Horner's rule.
func (p Polynomial) Eval(x float64) float64 {
	u := (x - p.Center) / p.Scale
	var v float64
	for k := len(p.Coeffs) - 1; k >= 0; k-- {
		v = v*u + p.Coeffs[k]
	}
	return v
}

package lightcurve

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// FlattenOptions controls the Savitzky–Golay detrending performed by Flatten.
type FlattenOptions struct {
	// WindowLength is the filter length in samples; it must be odd.
	WindowLength int
	// PolyOrder is the order of the local polynomial.
	PolyOrder int
	// BreakTolerance splits the series wherever the gap between samples exceeds
	// this many median cadences; each chunk is filtered independently.
	BreakTolerance int
	// Iterations is the number of trend fits, each masking the previous
	// iteration's outliers.
	Iterations int
	// Sigma is the clipping threshold used to build the mask.
	Sigma float64
}

// DefaultFlattenOptions mirrors the common library defaults (window 101).
func DefaultFlattenOptions() FlattenOptions {
	return FlattenOptions{WindowLength: 101, PolyOrder: 2, BreakTolerance: 5, Iterations: 3, Sigma: 3}
}

func (o FlattenOptions) validate() error {
	if o.WindowLength < 3 || o.WindowLength%2 == 0 {
		return fmt.Errorf("window length %d must be odd and >= 3", o.WindowLength)
	}
	if o.PolyOrder < 0 || o.PolyOrder >= o.WindowLength {
		return fmt.Errorf("polyorder %d must be in [0, window length)", o.PolyOrder)
	}
	if o.BreakTolerance <= 0 || o.Iterations <= 0 || o.Sigma <= 0 {
		return fmt.Errorf("break tolerance, iterations and sigma must be positive")
	}
	return nil
}

// Flatten removes long-term trends by dividing the flux by a Savitzky–Golay
// trend. The returned curve is normalised to 1; trend holds the divisor for
// every sample. Samples must be finite (call RemoveNaNs first).
func (lc *LightCurve) Flatten(opts FlattenOptions) (*LightCurve, []float64, error) {
	if err := opts.validate(); err != nil {
		return nil, nil, err
	}
	n := lc.Len()
	if n == 0 {
		return nil, nil, ErrEmpty
	}

	chunks := splitChunks(lc.Time, opts.BreakTolerance)
	mask := make([]bool, n)
	for i := range mask {
		mask[i] = true
	}

	// Residuals at rounding level are not clipped.
	floor := 1e-9 * math.Abs(Median(finiteValues(lc.Flux)))
	trend := make([]float64, n)
	for iter := 0; iter < opts.Iterations; iter++ {
		for _, c := range chunks {
			fitChunkTrend(lc.Time[c.lo:c.hi], lc.Flux[c.lo:c.hi], mask[c.lo:c.hi], trend[c.lo:c.hi], opts)
		}
		residual := make([]float64, n)
		for i := range residual {
			residual[i] = lc.Flux[i] - trend[i]
		}
		if negligible(residual, floor) {
			break
		}
		mask = SigmaClip(residual, opts.Sigma)
	}

	out := lc.Copy()
	for i := range out.Flux {
		if trend[i] == 0 || !finite(trend[i]) {
			out.Flux[i] = math.NaN()
			continue
		}
		out.Flux[i] = lc.Flux[i] / trend[i]
	}
	return out, trend, nil
}

// negligible reports whether the spread of the finite residuals is at or
// below floor.
func negligible(residual []float64, floor float64) bool {
	vals := finiteValues(residual)
	if len(vals) < 2 {
		return true
	}
	_, std := stat.PopMeanStdDev(vals, nil)
	return std <= floor
}

type chunk struct{ lo, hi int }

// splitChunks breaks the series at gaps wider than tolerance median cadences
// and wherever time runs backwards (stitched segments).
func splitChunks(time []float64, tolerance int) []chunk {
	n := len(time)
	cadence := medianCadence(time)
	limit := math.Inf(1)
	if finite(cadence) && cadence > 0 {
		limit = float64(tolerance) * cadence
	}
	var chunks []chunk
	start := 0
	for i := 1; i < n; i++ {
		dt := time[i] - time[i-1]
		if dt > limit || dt < 0 {
			chunks = append(chunks, chunk{start, i})
			start = i
		}
	}
	return append(chunks, chunk{start, n})
}

// fitChunkTrend fills dst with the filtered trend of one contiguous chunk.
// Masked-out samples are excluded from the fit and interpolated afterwards.
func fitChunkTrend(time, flux []float64, mask []bool, dst []float64, opts FlattenOptions) {
	t := make([]float64, 0, len(time))
	y := make([]float64, 0, len(time))
	for i := range time {
		if mask[i] {
			t = append(t, time[i])
			y = append(y, flux[i])
		}
	}
	if len(t) < opts.PolyOrder+2 {
		level := Median(y)
		if len(y) == 0 {
			level = Median(flux)
		}
		for i := range dst {
			dst[i] = level
		}
		return
	}

	window := opts.WindowLength
	if window > len(t) {
		window = len(t)
		if window%2 == 0 {
			window--
		}
	}
	order := opts.PolyOrder
	if order >= window {
		order = window - 1
	}
	smooth := savgol(y, window, order)
	for i := range time {
		dst[i] = interpolate(time[i], t, smooth)
	}
}

// savgol applies a Savitzky–Golay filter. Interior samples use the convolution
// coefficients; the first and last half-windows are evaluated from a
// polynomial fitted to the first and last full window.
func savgol(y []float64, window, order int) []float64 {
	n := len(y)
	half := window / 2
	design := vandermonde(window, order)

	var normal mat.Dense
	normal.Mul(design.T(), design)
	e0 := mat.NewVecDense(order+1, nil)
	e0.SetVec(0, 1)
	var c mat.VecDense
	if err := c.SolveVec(&normal, e0); err != nil {
		return append([]float64(nil), y...)
	}
	var weights mat.VecDense
	weights.MulVec(design, &c)

	w := weights.RawVector().Data
	out := make([]float64, n)
	for i := half; i < n-half; i++ {
		var acc float64
		for k, wk := range w {
			acc += wk * y[i-half+k]
		}
		out[i] = acc
	}

	fitEdge := func(start int, positions []int) {
		var coef mat.VecDense
		if err := coef.SolveVec(design, mat.NewVecDense(window, append([]float64(nil), y[start:start+window]...))); err != nil {
			for _, k := range positions {
				out[start+k] = y[start+k]
			}
			return
		}
		for _, k := range positions {
			x := float64(k - half)
			var v, p float64 = 0, 1
			for j := 0; j <= order; j++ {
				v += coef.AtVec(j) * p
				p *= x
			}
			out[start+k] = v
		}
	}
	head := make([]int, 0, half)
	tail := make([]int, 0, half)
	for k := 0; k < half; k++ {
		head = append(head, k)
		tail = append(tail, half+1+k)
	}
	fitEdge(0, head)
	fitEdge(n-window, tail)
	return out
}

// vandermonde returns the window×(order+1) design matrix of offsets from the
// window centre.
func vandermonde(window, order int) *mat.Dense {
	half := window / 2
	a := mat.NewDense(window, order+1, nil)
	for i := 0; i < window; i++ {
		x := float64(i - half)
		p := 1.0
		for j := 0; j <= order; j++ {
			a.Set(i, j, p)
			p *= x
		}
	}
	return a
}

// interpolate evaluates the piecewise-linear function through (xs, ys) at x,
// clamping outside the sampled range. xs must be non-decreasing.
func interpolate(x float64, xs, ys []float64) float64 {
	n := len(xs)
	if x <= xs[0] {
		return ys[0]
	}
	if x >= xs[n-1] {
		return ys[n-1]
	}
	lo, hi := 0, n-1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if xs[mid] <= x {
			lo = mid
		} else {
			hi = mid
		}
	}
	span := xs[hi] - xs[lo]
	if span == 0 {
		return ys[lo]
	}
	frac := (x - xs[lo]) / span
	return ys[lo] + frac*(ys[hi]-ys[lo])
}

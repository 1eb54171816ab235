package transit

import (
	"math"
)

const annuli = 100

// Params are the free parameters of the transit model. Inc is in degrees.
type Params struct {
	Period float64 `json:"period"`
	T0     float64 `json:"t0"`
	RpRs   float64 `json:"rp_rs"`
	ARs    float64 `json:"a_rs"`
	Inc    float64 `json:"inc"`
}

func (p Params) vector() []float64 {
	return []float64{p.Period, p.T0, p.RpRs, p.ARs, p.Inc}
}

// grazing reports whether the planet disk never lies fully inside the
// stellar disk, i.e. the impact parameter exceeds 1 - rp_rs.
func (p Params) grazing() bool {
	return p.ARs*math.Cos(p.Inc*math.Pi/180) > 1-p.RpRs
}

func paramsFrom(x []float64) Params {
	return Params{Period: x[0], T0: x[1], RpRs: x[2], ARs: x[3], Inc: x[4]}
}

// Model evaluates normalised flux for fixed quadratic limb darkening.
type Model struct {
	U1, U2 float64
}

// NewModel builds a model from a coefficient slice; missing entries default
// to (0.1, 0.3).
func NewModel(u []float64) Model {
	m := Model{U1: 0.1, U2: 0.3}
	if len(u) > 0 {
		m.U1 = u[0]
	}
	if len(u) > 1 {
		m.U2 = u[1]
	}
	return m
}

// Separation returns the sky-projected centre distance in stellar radii at
// time t, or +Inf while the planet is behind the star.
func Separation(t float64, p Params) float64 {
	phase := math.Mod((t-p.T0)/p.Period, 1)
	angle := 2 * math.Pi * phase
	cosA := math.Cos(angle)
	if cosA <= 0 {
		return math.Inf(1)
	}
	sinA := math.Sin(angle)
	cosI := math.Cos(p.Inc * math.Pi / 180)
	return p.ARs * math.Sqrt(sinA*sinA+(cosI*cosA)*(cosI*cosA))
}

// Flux returns the normalised stellar flux at time t.
func (m Model) Flux(t float64, p Params) float64 {
	return 1 - m.blocked(Separation(t, p), p.RpRs)
}

// Fluxes evaluates Flux for every time.
func (m Model) Fluxes(times []float64, p Params) []float64 {
	out := make([]float64, len(times))
	for i, t := range times {
		out[i] = m.Flux(t, p)
	}
	return out
}

// blocked integrates the limb-darkened intensity hidden by a planet of radius
// rp at separation z, as a fraction of the total stellar flux.
func (m Model) blocked(z, rp float64) float64 {
	if rp <= 0 || math.IsInf(z, 1) || z >= 1+rp {
		return 0
	}
	lo := math.Max(0, z-rp)
	hi := math.Min(1, z+rp)
	if hi <= lo {
		return 0
	}
	norm := math.Pi * (1 - m.U1/3 - m.U2/6)
	if norm <= 0 {
		return 0
	}
	dr := (hi - lo) / annuli
	var total float64
	for k := 0; k < annuli; k++ {
		r := lo + (float64(k)+0.5)*dr
		total += m.intensity(r) * 2 * math.Pi * r * dr * coveredFraction(r, z, rp)
	}
	return total / norm
}

func (m Model) intensity(r float64) float64 {
	mu := math.Sqrt(math.Max(0, 1-r*r))
	x := 1 - mu
	return 1 - m.U1*x - m.U2*x*x
}

// coveredFraction is the fraction of the circle of radius r (centred on the
// star) that lies inside the planet disk.
func coveredFraction(r, z, rp float64) float64 {
	if z <= 0 {
		if r < rp {
			return 1
		}
		return 0
	}
	if r <= rp-z {
		return 1
	}
	if r >= z+rp || r <= z-rp {
		return 0
	}
	c := (r*r + z*z - rp*rp) / (2 * r * z)
	c = math.Max(-1, math.Min(1, c))
	return math.Acos(c) / math.Pi
}

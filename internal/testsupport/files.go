package testsupport

import (
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"exohunt/internal/lightcurve"
)

// Transit describes a synthetic box-shaped dip.
type Transit struct {
	Period   float64
	Epoch    float64
	Duration float64
	Depth    float64
}

// SyntheticCurve samples n points at cadence days starting at t=0 with
// Gaussian noise of the given amplitude. A zero Transit yields flat flux.
func SyntheticCurve(n int, cadence, noise float64, tr Transit, seed uint64) *lightcurve.LightCurve {
	rng := rand.New(rand.NewPCG(seed, seed))
	times := make([]float64, n)
	flux := make([]float64, n)
	for i := range times {
		t := float64(i) * cadence
		f := 1.0
		if tr.Period > 0 {
			phase := math.Mod(t-tr.Epoch, tr.Period)
			if phase < 0 {
				phase += tr.Period
			}
			if phase < tr.Duration/2 || phase > tr.Period-tr.Duration/2 {
				f -= tr.Depth
			}
		}
		times[i] = t
		flux[i] = f + noise*rng.NormFloat64()
	}
	lc, _ := lightcurve.New(times, flux)
	return lc
}

// WriteLightCurve writes lc as a light-curve CSV at path.
func WriteLightCurve(t testing.TB, path string, lc *lightcurve.LightCurve) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := lc.WriteCSV(path); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

package classifier

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Forest is a bagged ensemble of CART trees. Prediction averages the class
// distributions of every tree.
type Forest struct {
	Trees []Tree `json:"trees"`
}

// ForestOptions shapes the ensemble.
type ForestOptions struct {
	NEstimators    int
	MaxDepth       int
	MinSamplesLeaf int
	Seed           uint64
}

// FitForest grows opts.NEstimators trees concurrently. Each tree draws its
// own seed from a generator seeded with opts.Seed before any work starts, so
// the forest does not depend on scheduling.
func FitForest(ctx context.Context, X [][]float64, y []int, nClasses int, opts ForestOptions) (Forest, error) {
	if len(X) == 0 || len(X) != len(y) {
		return Forest{}, fmt.Errorf("forest: %d rows and %d labels", len(X), len(y))
	}
	if opts.NEstimators <= 0 {
		return Forest{}, fmt.Errorf("forest: n_estimators must be positive")
	}
	minLeaf := max(opts.MinSamplesLeaf, 1)
	nFeatures := len(X[0])
	params := treeParams{
		maxFeatures:    max(1, int(math.Sqrt(float64(nFeatures)))),
		maxDepth:       opts.MaxDepth,
		minSamplesLeaf: minLeaf,
	}

	master := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	seeds := make([]uint64, opts.NEstimators)
	for i := range seeds {
		seeds[i] = master.Uint64()
	}

	trees := make([]Tree, opts.NEstimators)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range trees {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewPCG(seeds[i], uint64(i)))
			sample := make([]int, len(X))
			for k := range sample {
				sample[k] = rng.IntN(len(X))
			}
			trees[i] = buildTree(X, y, nClasses, sample, params, rng)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Forest{}, err
	}
	return Forest{Trees: trees}, nil
}

// Proba averages the class distributions of every tree.
func (f Forest) Proba(x []float64, nClasses int) []float64 {
	out := make([]float64, nClasses)
	for _, t := range f.Trees {
		for i, p := range t.Proba(x) {
			out[i] += p
		}
	}
	if n := float64(len(f.Trees)); n > 0 {
		for i := range out {
			out[i] /= n
		}
	}
	return out
}

// Predict returns the index of the most probable class. Ties go to the lower
// index.
func (f Forest) Predict(x []float64, nClasses int) int {
	proba := f.Proba(x, nClasses)
	best := 0
	for i, p := range proba {
		if p > proba[best] {
			best = i
		}
	}
	return best
}

package classifier

import (
	"math/rand/v2"
	"sort"
)

// Node is one entry of a flattened CART tree. Leaves have Feature -1 and
// carry the class distribution of their training samples in Value.
type Node struct {
	Feature   int       `json:"f"`
	Threshold float64   `json:"t,omitempty"`
	Left      int       `json:"l,omitempty"`
	Right     int       `json:"r,omitempty"`
	Value     []float64 `json:"v,omitempty"`
}

// Tree is a decision tree stored as a node slice rooted at index 0.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Proba walks x down the tree and returns the leaf's class distribution.
func (t Tree) Proba(x []float64) []float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Feature < 0 {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

type treeParams struct {
	maxFeatures    int
	maxDepth       int
	minSamplesLeaf int
}

type treeBuilder struct {
	X        [][]float64
	y        []int
	nClasses int
	params   treeParams
	rng      *rand.Rand
	nodes    []Node
}

// buildTree grows a Gini tree on the samples listed in idx (duplicates allowed
// for bootstrap draws).
func buildTree(X [][]float64, y []int, nClasses int, idx []int, params treeParams, rng *rand.Rand) Tree {
	b := &treeBuilder{X: X, y: y, nClasses: nClasses, params: params, rng: rng}
	b.grow(idx, 0)
	return Tree{Nodes: b.nodes}
}

func (b *treeBuilder) grow(idx []int, depth int) int {
	counts := b.counts(idx)
	id := len(b.nodes)
	b.nodes = append(b.nodes, Node{Feature: -1})

	if b.isLeaf(idx, counts, depth) {
		b.nodes[id].Value = distribution(counts, len(idx))
		return id
	}
	feature, threshold, ok := b.bestSplit(idx, counts)
	if !ok {
		b.nodes[id].Value = distribution(counts, len(idx))
		return id
	}
	var left, right []int
	for _, i := range idx {
		if b.X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[id] = Node{Feature: feature, Threshold: threshold, Left: l, Right: r}
	return id
}

func (b *treeBuilder) isLeaf(idx []int, counts []float64, depth int) bool {
	if b.params.maxDepth > 0 && depth >= b.params.maxDepth {
		return true
	}
	if len(idx) < 2*b.params.minSamplesLeaf || len(idx) < 2 {
		return true
	}
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

func (b *treeBuilder) counts(idx []int) []float64 {
	counts := make([]float64, b.nClasses)
	for _, i := range idx {
		counts[b.y[i]]++
	}
	return counts
}

// bestSplit searches a random subset of maxFeatures features for the
// threshold with the largest Gini decrease.
func (b *treeBuilder) bestSplit(idx []int, counts []float64) (int, float64, bool) {
	n := float64(len(idx))
	parent := gini(counts, n)
	nFeatures := len(b.X[idx[0]])
	candidates := b.rng.Perm(nFeatures)[:b.params.maxFeatures]

	bestGain := 1e-12
	bestFeature, bestThreshold := -1, 0.0
	order := make([]int, len(idx))
	left := make([]float64, b.nClasses)
	right := make([]float64, b.nClasses)
	for _, f := range candidates {
		copy(order, idx)
		sort.SliceStable(order, func(a, c int) bool { return b.X[order[a]][f] < b.X[order[c]][f] })
		clear(left)
		copy(right, counts)
		for k := 0; k < len(order)-1; k++ {
			cls := b.y[order[k]]
			left[cls]++
			right[cls]--
			lo, hi := b.X[order[k]][f], b.X[order[k+1]][f]
			if lo == hi {
				continue
			}
			nl := float64(k + 1)
			nr := n - nl
			if int(nl) < b.params.minSamplesLeaf || int(nr) < b.params.minSamplesLeaf {
				continue
			}
			impurity := (nl*gini(left, nl) + nr*gini(right, nr)) / n
			if gain := parent - impurity; gain > bestGain {
				bestGain = gain
				bestFeature = f
				bestThreshold = lo + (hi-lo)/2
				if bestThreshold >= hi {
					bestThreshold = lo
				}
			}
		}
	}
	return bestFeature, bestThreshold, bestFeature >= 0
}

func gini(counts []float64, n float64) float64 {
	if n == 0 {
		return 0
	}
	sum := 1.0
	for _, c := range counts {
		p := c / n
		sum -= p * p
	}
	return sum
}

func distribution(counts []float64, n int) []float64 {
	out := make([]float64, len(counts))
	if n == 0 {
		return out
	}
	for i, c := range counts {
		out[i] = c / float64(n)
	}
	return out
}

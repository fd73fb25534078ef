package forest

import (
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"
)

type node struct {
	feature   int
	threshold float64
	left      int
	right     int
	value     float64
	leaf      bool
}

// Tree is a CART regression tree minimising squared error.
type Tree struct {
	nodes      []node
	importance []float64
}

type treeBuilder struct {
	x           *mat.Dense
	y           []float64
	cfg         Config
	maxFeatures int
	rng         *rand.Rand
	tree        *Tree
	features    []int
	order       []int
}

func fitTree(x *mat.Dense, y []float64, idx []int, cfg Config, rng *rand.Rand) *Tree {
	_, nf := x.Dims()
	b := &treeBuilder{
		x:           x,
		y:           y,
		cfg:         cfg,
		maxFeatures: cfg.featuresPerSplit(nf),
		rng:         rng,
		tree:        &Tree{importance: make([]float64, nf)},
		features:    make([]int, nf),
	}
	for i := range b.features {
		b.features[i] = i
	}
	b.build(idx, 0)
	return b.tree
}

func (b *treeBuilder) mean(idx []int) (mean, sse float64) {
	var sum, sq float64
	for _, i := range idx {
		sum += b.y[i]
		sq += b.y[i] * b.y[i]
	}
	n := float64(len(idx))
	mean = sum / n
	return mean, sq - sum*sum/n
}

func (b *treeBuilder) leaf(value float64) int {
	b.tree.nodes = append(b.tree.nodes, node{leaf: true, value: value})
	return len(b.tree.nodes) - 1
}

// build grows the subtree for idx and returns its node index.
func (b *treeBuilder) build(idx []int, depth int) int {
	if len(idx) == 0 {
		return b.leaf(0)
	}
	mean, sse := b.mean(idx)
	if len(idx) < b.cfg.MinSamplesSplit || len(idx) < 2*b.cfg.MinSamplesLeaf ||
		(b.cfg.MaxDepth > 0 && depth >= b.cfg.MaxDepth) || sse <= 1e-12 {
		return b.leaf(mean)
	}
	feature, threshold, gain, ok := b.bestSplit(idx, sse)
	if !ok {
		return b.leaf(mean)
	}
	var left, right []int
	for _, i := range idx {
		if b.x.At(i, feature) <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	b.tree.importance[feature] += gain
	self := len(b.tree.nodes)
	b.tree.nodes = append(b.tree.nodes, node{feature: feature, threshold: threshold, value: mean})
	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	b.tree.nodes[self].left = l
	b.tree.nodes[self].right = r
	return self
}

func (b *treeBuilder) bestSplit(idx []int, parentSSE float64) (feature int, threshold, gain float64, ok bool) {
	b.rng.Shuffle(len(b.features), func(i, j int) {
		b.features[i], b.features[j] = b.features[j], b.features[i]
	})
	if cap(b.order) < len(idx) {
		b.order = make([]int, len(idx))
	}
	order := b.order[:len(idx)]
	n := len(idx)
	minLeaf := b.cfg.MinSamplesLeaf
	for _, f := range b.features[:b.maxFeatures] {
		copy(order, idx)
		sort.Slice(order, func(i, j int) bool { return b.x.At(order[i], f) < b.x.At(order[j], f) })

		var totalSum, totalSq float64
		for _, i := range order {
			totalSum += b.y[i]
			totalSq += b.y[i] * b.y[i]
		}
		var lSum, lSq float64
		for k := 0; k < n-1; k++ {
			yi := b.y[order[k]]
			lSum += yi
			lSq += yi * yi
			lo, hi := b.x.At(order[k], f), b.x.At(order[k+1], f)
			if lo == hi {
				continue
			}
			nl, nr := float64(k+1), float64(n-k-1)
			if k+1 < minLeaf || n-k-1 < minLeaf {
				continue
			}
			rSum, rSq := totalSum-lSum, totalSq-lSq
			sse := (lSq - lSum*lSum/nl) + (rSq - rSum*rSum/nr)
			if g := parentSSE - sse; g > gain+1e-12 {
				// the midpoint of adjacent floats rounds to one of them
				mid := lo + (hi-lo)/2
				if mid >= hi {
					mid = lo
				}
				feature, threshold, gain, ok = f, mid, g, true
			}
		}
	}
	return feature, threshold, gain, ok
}

// Predict returns the leaf value reached by x.
func (t *Tree) Predict(x []float64) float64 {
	i := 0
	for {
		n := &t.nodes[i]
		if n.leaf {
			return n.value
		}
		if x[n.feature] <= n.threshold {
			i = n.left
		} else {
			i = n.right
		}
	}
}

// Depth returns the length of the longest root-to-leaf path.
func (t *Tree) Depth() int {
	var walk func(i int) int
	walk = func(i int) int {
		n := t.nodes[i]
		if n.leaf {
			return 0
		}
		return 1 + max(walk(n.left), walk(n.right))
	}
	return walk(0)
}

// NumLeaves returns the number of leaves.
func (t *Tree) NumLeaves() int {
	c := 0
	for _, n := range t.nodes {
		if n.leaf {
			c++
		}
	}
	return c
}

package forecast

import (
	"math/rand"
	"sort"
)

// treeNode is one node of a regression tree; leaves have nil children.
type treeNode struct {
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
	value     float64
}

func (n *treeNode) leaf() bool { return n.left == nil }

// treeParams bound the growth of a single regression tree.
type treeParams struct {
	maxDepth    int // <= 0 grows until pure
	minSplit    int // samples required to attempt a split
	minLeaf     int // samples required on each side of a split
	maxFeatures int // features tried per split; <= 0 tries all
}

// regTree is a CART regression tree splitting on squared-error reduction.
type regTree struct {
	root       *treeNode
	importance []float64 // per-feature SSE decrease accumulated over splits
}

type treeBuilder struct {
	x      [][]float64
	y      []float64
	params treeParams
	rng    *rand.Rand
	imp    []float64
}

// fitTree grows a regression tree over the rows selected by idx. rng drives
// per-split feature subsampling and may be nil when all features are tried.
func fitTree(x [][]float64, y []float64, idx []int, params treeParams, rng *rand.Rand) *regTree {
	b := &treeBuilder{x: x, y: y, params: params, rng: rng, imp: make([]float64, len(x[0]))}
	return &regTree{root: b.build(idx, 0), importance: b.imp}
}

func (b *treeBuilder) build(idx []int, depth int) *treeNode {
	sum, sumSq := 0.0, 0.0
	for _, i := range idx {
		sum += b.y[i]
		sumSq += b.y[i] * b.y[i]
	}
	n := float64(len(idx))
	mean := sum / n
	sse := sumSq - sum*sum/n
	node := &treeNode{value: mean}

	if len(idx) < b.params.minSplit || sse <= 1e-12 {
		return node
	}
	if b.params.maxDepth > 0 && depth >= b.params.maxDepth {
		return node
	}

	feature, threshold, gain, ok := b.bestSplit(idx, sse)
	if !ok {
		return node
	}

	left := make([]int, 0, len(idx))
	right := make([]int, 0, len(idx))
	for _, i := range idx {
		if b.x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	b.imp[feature] += gain
	node.feature = feature
	node.threshold = threshold
	node.left = b.build(left, depth+1)
	node.right = b.build(right, depth+1)
	return node
}

// bestSplit scans candidate features for the split minimizing the summed
// left/right SSE. Returns the achieved SSE decrease as gain.
func (b *treeBuilder) bestSplit(idx []int, nodeSSE float64) (feature int, threshold float64, gain float64, ok bool) {
	p := len(b.x[0])
	features := b.candidateFeatures(p)

	bestCost := nodeSSE
	order := make([]int, len(idx))
	for _, f := range features {
		copy(order, idx)
		sort.Slice(order, func(a, c int) bool { return b.x[order[a]][f] < b.x[order[c]][f] })

		totalSum, totalSumSq := 0.0, 0.0
		for _, i := range order {
			totalSum += b.y[i]
			totalSumSq += b.y[i] * b.y[i]
		}

		leftSum, leftSumSq := 0.0, 0.0
		for k := 1; k < len(order); k++ {
			yi := b.y[order[k-1]]
			leftSum += yi
			leftSumSq += yi * yi

			lo, hi := b.x[order[k-1]][f], b.x[order[k]][f]
			if lo == hi {
				continue
			}
			if k < b.params.minLeaf || len(order)-k < b.params.minLeaf {
				continue
			}
			nl, nr := float64(k), float64(len(order)-k)
			rightSum := totalSum - leftSum
			rightSumSq := totalSumSq - leftSumSq
			cost := (leftSumSq - leftSum*leftSum/nl) + (rightSumSq - rightSum*rightSum/nr)
			if cost < bestCost-1e-12 {
				bestCost = cost
				feature = f
				threshold = lo + (hi-lo)/2
				ok = true
			}
		}
	}
	return feature, threshold, nodeSSE - bestCost, ok
}

func (b *treeBuilder) candidateFeatures(p int) []int {
	if b.params.maxFeatures <= 0 || b.params.maxFeatures >= p || b.rng == nil {
		all := make([]int, p)
		for i := range all {
			all[i] = i
		}
		return all
	}
	return b.rng.Perm(p)[:b.params.maxFeatures]
}

func (t *regTree) predict(x []float64) float64 {
	node := t.root
	for !node.leaf() {
		if x[node.feature] <= node.threshold {
			node = node.left
		} else {
			node = node.right
		}
	}
	return node.value
}

package forecast

import (
	"fmt"
	"math/rand"
)

// boostingModel is a stagewise ensemble of shallow regression trees fitted to
// the residuals of the running prediction, shrunk by the learning rate.
type boostingModel struct {
	base       float64
	rate       float64
	trees      []*regTree
	importance map[string]float64
}

func fitGradientBoosting(x [][]float64, y []float64, estimators int, rate float64, seed int64) (Model, error) {
	if len(x) == 0 {
		return nil, fmt.Errorf("empty design matrix")
	}
	if estimators <= 0 {
		return nil, fmt.Errorf("estimators must be positive, got %d", estimators)
	}
	if rate <= 0 {
		return nil, fmt.Errorf("learning rate must be positive, got %v", rate)
	}

	n := len(x)
	p := len(x[0])
	params := treeParams{maxDepth: 3, minSplit: 2, minLeaf: 1}

	base := 0.0
	for _, v := range y {
		base += v
	}
	base /= float64(n)

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}

	current := make([]float64, n)
	for i := range current {
		current[i] = base
	}
	residual := make([]float64, n)

	rng := rand.New(rand.NewSource(seed))
	trees := make([]*regTree, 0, estimators)
	accum := make([]float64, p)
	for t := 0; t < estimators; t++ {
		for i := range residual {
			residual[i] = y[i] - current[i]
		}
		tree := fitTree(x, residual, idx, params, rng)
		trees = append(trees, tree)
		for j, g := range tree.importance {
			accum[j] += g
		}
		for i := range current {
			current[i] += rate * tree.predict(x[i])
		}
	}

	return &boostingModel{base: base, rate: rate, trees: trees, importance: importanceMap(accum)}, nil
}

func (m *boostingModel) Family() Family { return FamilyGradientBoosting }

func (m *boostingModel) Predict(x []float64) float64 {
	v := m.base
	for _, t := range m.trees {
		v += m.rate * t.predict(x)
	}
	return v
}

func (m *boostingModel) Importances() map[string]float64 { return m.importance }

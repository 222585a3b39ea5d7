package forecast

import (
	"fmt"
	"math/rand"
)

// forestModel is a bagging ensemble of regression trees: each tree sees a
// bootstrap resample of the rows and a random subset of features per split.
type forestModel struct {
	trees      []*regTree
	importance map[string]float64
}

func fitRandomForest(x [][]float64, y []float64, estimators int, seed int64) (Model, error) {
	if len(x) == 0 {
		return nil, fmt.Errorf("empty design matrix")
	}
	if estimators <= 0 {
		return nil, fmt.Errorf("estimators must be positive, got %d", estimators)
	}

	n := len(x)
	p := len(x[0])
	params := treeParams{
		maxDepth:    0, // grow until pure
		minSplit:    2,
		minLeaf:     1,
		maxFeatures: maxInt(1, p/3),
	}

	master := rand.New(rand.NewSource(seed))
	trees := make([]*regTree, 0, estimators)
	accum := make([]float64, p)
	for t := 0; t < estimators; t++ {
		rng := rand.New(rand.NewSource(master.Int63()))
		idx := make([]int, n)
		for i := range idx {
			idx[i] = rng.Intn(n)
		}
		tree := fitTree(x, y, idx, params, rng)
		trees = append(trees, tree)

		total := 0.0
		for _, g := range tree.importance {
			total += g
		}
		if total > 0 {
			for j, g := range tree.importance {
				accum[j] += g / total
			}
		}
	}

	return &forestModel{trees: trees, importance: importanceMap(accum)}, nil
}

func (m *forestModel) Family() Family { return FamilyRandomForest }

func (m *forestModel) Predict(x []float64) float64 {
	sum := 0.0
	for _, t := range m.trees {
		sum += t.predict(x)
	}
	return sum / float64(len(m.trees))
}

func (m *forestModel) Importances() map[string]float64 { return m.importance }

// importanceMap normalizes accumulated gains to sum to one and keys them by
// feature name.
func importanceMap(gains []float64) map[string]float64 {
	total := 0.0
	for _, g := range gains {
		total += g
	}
	out := make(map[string]float64, len(gains))
	for j, g := range gains {
		v := 0.0
		if total > 0 {
			v = g / total
		}
		out[featureName(j)] = v
	}
	return out
}

func featureName(j int) string {
	if j < len(FeatureNames) {
		return FeatureNames[j]
	}
	return fmt.Sprintf("feature_%d", j)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

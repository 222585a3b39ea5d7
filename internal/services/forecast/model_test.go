package forecast

import (
	"math"
	"testing"
)

func TestFitLinearRecoversPlane(t *testing.T) {
	var x [][]float64
	var y []float64
	for a := 0; a < 6; a++ {
		for b := 0; b < 4; b++ {
			x = append(x, []float64{float64(a), float64(b)})
			y = append(y, 2+3*float64(a)-float64(b))
		}
	}
	m, err := fitLinear(x, y)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	if got := m.Predict([]float64{10, 4}); !almostEqual(got, 28, 1e-6) {
		t.Fatalf("predict = %v, want 28", got)
	}
	if m.Importances() != nil {
		t.Fatalf("linear model must not report importances")
	}
	if m.Family() != FamilyLinear {
		t.Fatalf("family = %s", m.Family())
	}
}

func TestRegressionTreeSplitsStep(t *testing.T) {
	var x [][]float64
	var y []float64
	for i := 1; i <= 10; i++ {
		x = append(x, []float64{float64(i)})
		if i <= 5 {
			y = append(y, 10)
		} else {
			y = append(y, 20)
		}
	}
	idx := make([]int, len(x))
	for i := range idx {
		idx[i] = i
	}
	tree := fitTree(x, y, idx, treeParams{minSplit: 2, minLeaf: 1}, nil)

	if got := tree.predict([]float64{3}); got != 10 {
		t.Fatalf("predict(3) = %v, want 10", got)
	}
	if got := tree.predict([]float64{8}); got != 20 {
		t.Fatalf("predict(8) = %v, want 20", got)
	}
	if tree.importance[0] <= 0 {
		t.Fatalf("split feature importance must be positive")
	}
}

func syntheticRows(n int) ([][]float64, []float64) {
	x := make([][]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = []float64{float64(i % 7), float64((i * 3) % 5), float64(i)}
		y[i] = 2*x[i][0] + x[i][1] - 0.5*x[i][2]
	}
	return x, y
}

func TestRandomForestSeededDeterminism(t *testing.T) {
	x, y := syntheticRows(40)

	m1, err := fitRandomForest(x, y, 25, 42)
	if err != nil {
		t.Fatalf("fit 1: %v", err)
	}
	m2, err := fitRandomForest(x, y, 25, 42)
	if err != nil {
		t.Fatalf("fit 2: %v", err)
	}
	for _, probe := range x {
		if m1.Predict(probe) != m2.Predict(probe) {
			t.Fatalf("same seed produced different predictions")
		}
	}

	sum := 0.0
	for _, v := range m1.Importances() {
		if v < 0 {
			t.Fatalf("negative importance %v", v)
		}
		sum += v
	}
	if !almostEqual(sum, 1, 1e-9) {
		t.Fatalf("importances sum = %v, want 1", sum)
	}
}

func TestGradientBoostingBeatsConstantBaseline(t *testing.T) {
	x, y := syntheticRows(60)

	m, err := fitGradientBoosting(x, y, 100, 0.1, 42)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}

	meanY := meanOf(y)
	baseline, fitted := 0.0, 0.0
	for i := range y {
		baseline += math.Abs(y[i] - meanY)
		fitted += math.Abs(y[i] - m.Predict(x[i]))
	}
	if fitted >= baseline {
		t.Fatalf("boosting MAE %v not better than baseline %v", fitted, baseline)
	}
	if len(m.Importances()) != 3 {
		t.Fatalf("importances = %v", m.Importances())
	}
}

func TestPoissonGLMConstantRate(t *testing.T) {
	var x [][]float64
	var y []float64
	for i := 0; i < 25; i++ {
		x = append(x, []float64{float64(i % 5), float64(i % 3)})
		y = append(y, 7)
	}
	m, err := fitPoissonGLM(x, y)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	if got := m.Predict([]float64{2, 1}); !almostEqual(got, 7, 1e-2) {
		t.Fatalf("predict = %v, want ~7", got)
	}
}

func TestPoissonGLMRejectsNegativeCounts(t *testing.T) {
	if _, err := fitPoissonGLM([][]float64{{1}, {2}}, []float64{3, -1}); err == nil {
		t.Fatalf("expected error for negative response")
	}
}

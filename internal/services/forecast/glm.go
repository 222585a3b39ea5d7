package forecast

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	glmMaxIter  = 25
	glmTol      = 1e-8
	glmEtaBound = 30 // keeps exp(eta) finite during iteration
)

// poissonModel is a Poisson GLM with log link, fitted by iteratively
// reweighted least squares. Counts are its native family, which makes it a
// useful contrast to the squared-loss candidates.
type poissonModel struct {
	beta []float64 // intercept first
}

func fitPoissonGLM(x [][]float64, y []float64) (Model, error) {
	n := len(x)
	if n == 0 {
		return nil, fmt.Errorf("empty design matrix")
	}
	p := len(x[0])
	for _, v := range y {
		if v < 0 {
			return nil, fmt.Errorf("poisson response must be non-negative, got %v", v)
		}
	}

	mean := 0.0
	for _, v := range y {
		mean += v
	}
	mean /= float64(n)

	beta := make([]float64, p+1)
	beta[0] = math.Log(mean + 1e-8)

	a := mat.NewDense(n, p+1, nil)
	b := mat.NewVecDense(n, nil)
	next := mat.NewVecDense(p+1, nil)

	for iter := 0; iter < glmMaxIter; iter++ {
		for i := 0; i < n; i++ {
			eta := linearPredictor(beta, x[i])
			mu := math.Exp(eta)
			if mu < 1e-10 {
				mu = 1e-10
			}
			z := eta + (y[i]-mu)/mu
			w := math.Sqrt(mu)

			a.Set(i, 0, w)
			for j := 0; j < p; j++ {
				a.Set(i, j+1, w*x[i][j])
			}
			b.SetVec(i, w*z)
		}

		var qr mat.QR
		qr.Factorize(a)
		if err := qr.SolveVecTo(next, false, b); err != nil {
			if _, ok := err.(mat.Condition); !ok {
				return nil, fmt.Errorf("irls solve: %w", err)
			}
		}

		delta := 0.0
		for j := range beta {
			d := math.Abs(next.AtVec(j) - beta[j])
			if d > delta {
				delta = d
			}
			beta[j] = next.AtVec(j)
		}
		if delta < glmTol {
			break
		}
	}

	return &poissonModel{beta: beta}, nil
}

// linearPredictor evaluates intercept + x.beta, bounded so the mean stays
// representable.
func linearPredictor(beta []float64, x []float64) float64 {
	eta := beta[0]
	for j, v := range x {
		eta += beta[j+1] * v
	}
	if eta > glmEtaBound {
		return glmEtaBound
	}
	if eta < -glmEtaBound {
		return -glmEtaBound
	}
	return eta
}

func (m *poissonModel) Family() Family { return FamilyPoissonGLM }

func (m *poissonModel) Predict(x []float64) float64 {
	return math.Exp(linearPredictor(m.beta, x))
}

func (m *poissonModel) Importances() map[string]float64 { return nil }

package forecast

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// linearModel is an ordinary least squares fit with intercept.
type linearModel struct {
	intercept float64
	coef      []float64
}

// fitLinear solves min ||y - Xb|| via QR on the design matrix with a leading
// intercept column. An ill-conditioned system still yields a usable solution;
// only an exactly singular factorization fails the candidate.
func fitLinear(x [][]float64, y []float64) (Model, error) {
	n := len(x)
	if n == 0 {
		return nil, fmt.Errorf("empty design matrix")
	}
	p := len(x[0])

	a := mat.NewDense(n, p+1, nil)
	b := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		a.Set(i, 0, 1)
		for j := 0; j < p; j++ {
			a.Set(i, j+1, x[i][j])
		}
		b.SetVec(i, y[i])
	}

	var qr mat.QR
	qr.Factorize(a)
	beta := mat.NewVecDense(p+1, nil)
	if err := qr.SolveVecTo(beta, false, b); err != nil {
		if _, ok := err.(mat.Condition); !ok {
			return nil, fmt.Errorf("solve least squares: %w", err)
		}
	}

	m := &linearModel{intercept: beta.AtVec(0), coef: make([]float64, p)}
	for j := 0; j < p; j++ {
		m.coef[j] = beta.AtVec(j + 1)
	}
	return m, nil
}

func (m *linearModel) Family() Family { return FamilyLinear }

func (m *linearModel) Predict(x []float64) float64 {
	v := m.intercept
	for j, c := range m.coef {
		v += c * x[j]
	}
	return v
}

func (m *linearModel) Importances() map[string]float64 { return nil }

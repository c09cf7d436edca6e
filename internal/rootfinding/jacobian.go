// Package rootfinding solves square systems of nonlinear equations f(x) = 0.
package rootfinding

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/rzzdr/quant-curve-engine/pkg/utils/errors"
)

// Function maps a point to its residual vector. The residual must have the same
// length as the point.
type Function func(x []float64) ([]float64, error)

// DefaultJacobianStep is the relative bump of the finite difference Jacobian
const DefaultJacobianStep = 1e-6

// CentralDifferenceJacobian estimates J[i][j] = dF_i/dx_j by bumping each
// coordinate up and down by step·max(1, |x_j|)
func CentralDifferenceJacobian(f Function, x []float64, step float64) (*mat.Dense, error) {
	if step <= 0 {
		step = DefaultJacobianStep
	}
	n := len(x)
	jac := mat.NewDense(n, n, nil)
	bumped := append([]float64(nil), x...)
	for j := 0; j < n; j++ {
		h := step * math.Max(1, math.Abs(x[j]))

		bumped[j] = x[j] + h
		up, err := f(bumped)
		if err != nil {
			return nil, errors.Wrapf(err, "jacobian column %d", j)
		}
		bumped[j] = x[j] - h
		down, err := f(bumped)
		if err != nil {
			return nil, errors.Wrapf(err, "jacobian column %d", j)
		}
		bumped[j] = x[j]

		if len(up) != n || len(down) != n {
			return nil, errors.InvalidArgumentf("residual has %d entries for %d unknowns", len(up), n)
		}
		for i := 0; i < n; i++ {
			jac.Set(i, j, (up[i]-down[i])/(2*h))
		}
	}
	return jac, nil
}

func allFinite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

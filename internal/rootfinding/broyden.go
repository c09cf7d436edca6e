package rootfinding

import (
	"context"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/rzzdr/quant-curve-engine/pkg/utils/errors"
	"github.com/rzzdr/quant-curve-engine/pkg/utils/logger"
)

// Default solver settings
const (
	DefaultAbsoluteTolerance = 1e-8
	DefaultRelativeTolerance = 1e-8
	DefaultMaxSteps          = 100

	// conditionLimit is the LU condition number above which the Jacobian is singular
	conditionLimit = 1e16
	// maxHalvings bounds the backtracking line search
	maxHalvings = 20
)

// Broyden is a quasi-Newton solver. It starts from a finite difference Jacobian and
// keeps it current with rank-one updates, recomputing it only when a step fails to
// reduce the residual.
type Broyden struct {
	AbsoluteTolerance float64
	RelativeTolerance float64
	MaxSteps          int
	JacobianStep      float64
	log               *logger.Logger
}

// Result is a solution, or on failure the work done before giving up (X nil)
type Result struct {
	X              []float64
	Residual       []float64
	ResidualNorm   float64
	Steps          int
	JacobianResets int
	FunctionCalls  int
	// StoppedOnStep is set when the solver stopped on a Newton step below the
	// relative tolerance with the residual norm still above the absolute one
	StoppedOnStep bool
}

// NewBroyden creates a solver; non-positive settings take the defaults
func NewBroyden(absTol, relTol float64, maxSteps int) *Broyden {
	if absTol <= 0 {
		absTol = DefaultAbsoluteTolerance
	}
	if relTol <= 0 {
		relTol = DefaultRelativeTolerance
	}
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	return &Broyden{
		AbsoluteTolerance: absTol,
		RelativeTolerance: relTol,
		MaxSteps:          maxSteps,
		JacobianStep:      DefaultJacobianStep,
		log:               logger.GetLogger("rootfinding.broyden"),
	}
}

// Solve finds x with f(x) = 0 starting from x0. It stops when the residual norm is
// within the absolute tolerance or the full Newton step is within the relative
// tolerance of x. The second stop guarantees only that the residual norm is no
// larger than at the previous step; StoppedOnStep marks it when that norm is
// above the absolute tolerance. A singular Jacobian, a non-finite residual or an
// exhausted step budget fail with a non-convergence error. Apart from a nil
// function or an empty start a failed Solve still returns the Result, with Steps
// counting the completed steps.
func (b *Broyden) Solve(ctx context.Context, f Function, x0 []float64) (*Result, error) {
	if f == nil {
		return nil, errors.InvalidArgument("nil residual function")
	}
	n := len(x0)
	if n == 0 {
		return nil, errors.InvalidArgument("empty starting point")
	}
	if b.log == nil {
		b.log = logger.GetLogger("rootfinding.broyden")
	}

	res := &Result{}
	fail := func(steps int, err error) (*Result, error) {
		res.Steps = steps
		return res, err
	}
	eval := func(x []float64) ([]float64, error) {
		res.FunctionCalls++
		r, err := f(x)
		if err != nil {
			return nil, err
		}
		if len(r) != n {
			return nil, errors.InvalidArgumentf("residual has %d entries for %d unknowns", len(r), n)
		}
		return r, nil
	}

	x := mat.NewVecDense(n, append([]float64(nil), x0...))
	r0, err := eval(x.RawVector().Data)
	if err != nil {
		return fail(0, err)
	}
	if !allFinite(r0) {
		return fail(0, errors.NonConvergence("residual is not finite at the starting point", nil))
	}
	r := mat.NewVecDense(n, r0)
	norm := mat.Norm(r, 2)
	if norm <= b.AbsoluteTolerance {
		return b.done(res, x, r, norm), nil
	}

	jac, err := CentralDifferenceJacobian(eval, x.RawVector().Data, b.JacobianStep)
	if err != nil {
		return fail(0, err)
	}
	fresh := true

	dx := mat.NewVecDense(n, nil)
	negR := mat.NewVecDense(n, nil)
	for res.Steps = 1; res.Steps <= b.MaxSteps; res.Steps++ {
		if err := ctx.Err(); err != nil {
			return fail(res.Steps-1, errors.Wrap(err, "root finding cancelled"))
		}

		var lu mat.LU
		lu.Factorize(jac)
		if cond := lu.Cond(); math.IsInf(cond, 0) || math.IsNaN(cond) || cond > conditionLimit {
			return fail(res.Steps-1, errors.NonConvergence("jacobian is singular", errors.Newf("condition number %g after %d steps", cond, res.Steps-1)))
		}
		negR.ScaleVec(-1, r)
		if err := lu.SolveVecTo(dx, false, negR); err != nil {
			return fail(res.Steps-1, errors.NonConvergence("solving the newton step", err))
		}

		// a step this small is below what the residual can resolve: take it if it
		// helps and stop
		if mat.Norm(dx, 2) <= b.RelativeTolerance*(1+mat.Norm(x, 2)) {
			xNew := mat.NewVecDense(n, nil)
			xNew.AddVec(x, dx)
			rv, err := eval(xNew.RawVector().Data)
			if err != nil {
				return fail(res.Steps-1, err)
			}
			if allFinite(rv) {
				rNew := mat.NewVecDense(n, rv)
				if newNorm := mat.Norm(rNew, 2); newNorm < norm {
					x, r, norm = xNew, rNew, newNorm
				}
			}
			res.StoppedOnStep = norm > b.AbsoluteTolerance
			return b.done(res, x, r, norm), nil
		}

		xNew, rNew, newNorm, accepted, err := b.lineSearch(eval, x, dx, norm)
		if err != nil {
			return fail(res.Steps-1, err)
		}
		if !accepted {
			if fresh {
				return fail(res.Steps-1, errors.NonConvergence("no step reduces the residual", errors.Newf("residual norm %g after %d steps", norm, res.Steps-1)))
			}
			b.log.Debugw("resetting jacobian", "step", res.Steps, "residual", norm)
			jac, err = CentralDifferenceJacobian(eval, x.RawVector().Data, b.JacobianStep)
			if err != nil {
				return fail(res.Steps-1, err)
			}
			fresh = true
			res.JacobianResets++
			continue
		}

		// s = xNew - x, y = rNew - r
		s := mat.NewVecDense(n, nil)
		s.SubVec(xNew, x)
		y := mat.NewVecDense(n, nil)
		y.SubVec(rNew, r)

		x, r, norm = xNew, rNew, newNorm
		b.log.Debugw("broyden step", "step", res.Steps, "residual", norm)
		if norm <= b.AbsoluteTolerance {
			return b.done(res, x, r, norm), nil
		}

		// J += (y - J s) s^T / (s^T s)
		ss := mat.Dot(s, s)
		if ss == 0 {
			return b.done(res, x, r, norm), nil
		}
		js := mat.NewVecDense(n, nil)
		js.MulVec(jac, s)
		y.SubVec(y, js)
		jac.RankOne(jac, 1/ss, y, s)
		fresh = false
	}

	return fail(b.MaxSteps, errors.NonConvergence("step budget exhausted", errors.Newf("residual norm %g after %d steps", norm, b.MaxSteps)))
}

// lineSearch halves the step until the residual norm decreases
func (b *Broyden) lineSearch(eval Function, x, dx *mat.VecDense, norm float64) (*mat.VecDense, *mat.VecDense, float64, bool, error) {
	n := x.Len()
	lambda := 1.0
	for i := 0; i < maxHalvings; i++ {
		xNew := mat.NewVecDense(n, nil)
		xNew.AddScaledVec(x, lambda, dx)
		rv, err := eval(xNew.RawVector().Data)
		if err != nil {
			return nil, nil, 0, false, err
		}
		if allFinite(rv) {
			rNew := mat.NewVecDense(n, rv)
			if newNorm := mat.Norm(rNew, 2); newNorm < norm {
				return xNew, rNew, newNorm, true, nil
			}
		}
		lambda /= 2
	}
	return nil, nil, 0, false, nil
}

func (b *Broyden) done(res *Result, x, r *mat.VecDense, norm float64) *Result {
	res.X = append([]float64(nil), x.RawVector().Data...)
	res.Residual = append([]float64(nil), r.RawVector().Data...)
	res.ResidualNorm = norm
	return res
}

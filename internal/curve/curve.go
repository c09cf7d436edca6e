// Package curve holds the interpolated discount and price curves the market
// bundle is built from. Curves are immutable once constructed; bumping a node
// returns a new curve.
package curve

import (
	"math"

	"github.com/rzzdr/quant-curve-engine/pkg/utils/errors"
)

// Curve is a discounting or forward-projection curve
type Curve interface {
	Name() string
	// DiscountFactor is the value today of one unit paid at time t (year fraction)
	DiscountFactor(t float64) float64
	// InterestRate is the continuously compounded zero rate to time t
	InterestRate(t float64) float64
}

// Kind tells how the node values of a curve are read
type Kind string

const (
	// KindZeroRate nodes are continuously compounded zero rates
	KindZeroRate Kind = "zero_rate"
	// KindDiscountFactor nodes are discount factors
	KindDiscountFactor Kind = "discount_factor"
	// KindPriceIndex nodes are price index levels
	KindPriceIndex Kind = "price_index"
)

// nodes is the shared node storage of every interpolated curve
type nodes struct {
	name         string
	times        []float64
	values       []float64
	interpolator Interpolator
	fn           Function
}

func newNodes(name string, times, values []float64, ip Interpolator) (nodes, error) {
	if name == "" {
		return nodes{}, errors.InvalidArgument("curve name is required")
	}
	fn, err := ip.Interpolate(times, values)
	if err != nil {
		return nodes{}, errors.Wrapf(err, "building curve %s", name)
	}
	return nodes{
		name:         name,
		times:        append([]float64(nil), times...),
		values:       append([]float64(nil), values...),
		interpolator: ip,
		fn:           fn,
	}, nil
}

// Name returns the curve name
func (n nodes) Name() string { return n.name }

// NodeTimes returns a copy of the node times
func (n nodes) NodeTimes() []float64 { return append([]float64(nil), n.times...) }

// NodeValues returns a copy of the node values
func (n nodes) NodeValues() []float64 { return append([]float64(nil), n.values...) }

// Interpolator returns the interpolation rule
func (n nodes) Interpolator() Interpolator { return n.interpolator }

func (n nodes) bumpedValues(index int, shift float64) ([]float64, error) {
	if index < 0 || index >= len(n.values) {
		return nil, errors.InvalidArgumentf("node %d out of range for curve %s with %d nodes", index, n.name, len(n.values))
	}
	values := n.NodeValues()
	values[index] += shift
	return values, nil
}

// YieldCurve interpolates continuously compounded zero rates
type YieldCurve struct {
	nodes
}

// NewYieldCurve builds a zero-rate curve
func NewYieldCurve(name string, times, rates []float64, ip Interpolator) (*YieldCurve, error) {
	n, err := newNodes(name, times, rates, ip)
	if err != nil {
		return nil, err
	}
	return &YieldCurve{nodes: n}, nil
}

// NewFlatYieldCurve builds a curve with a single constant zero rate
func NewFlatYieldCurve(name string, rate float64) *YieldCurve {
	c, err := NewYieldCurve(name, []float64{1}, []float64{rate}, DefaultInterpolator)
	if err != nil {
		// a single finite node cannot fail
		panic(err)
	}
	return c
}

// InterestRate returns the interpolated zero rate
func (c *YieldCurve) InterestRate(t float64) float64 {
	return c.fn.Value(t)
}

// DiscountFactor returns exp(-r(t)·t)
func (c *YieldCurve) DiscountFactor(t float64) float64 {
	return math.Exp(-c.fn.Value(t) * t)
}

// WithNodeValues rebuilds the curve on the same grid with new node values
func (c *YieldCurve) WithNodeValues(values []float64) (*YieldCurve, error) {
	return NewYieldCurve(c.name, c.times, values, c.interpolator)
}

// Bumped returns a copy with one node shifted
func (c *YieldCurve) Bumped(index int, shift float64) (*YieldCurve, error) {
	values, err := c.bumpedValues(index, shift)
	if err != nil {
		return nil, err
	}
	return c.WithNodeValues(values)
}

// ParallelShifted returns a copy with every node shifted
func (c *YieldCurve) ParallelShifted(shift float64) (*YieldCurve, error) {
	values := c.NodeValues()
	for i := range values {
		values[i] += shift
	}
	return c.WithNodeValues(values)
}

// DiscountFactorCurve interpolates discount factors directly
type DiscountFactorCurve struct {
	nodes
}

// NewDiscountFactorCurve builds a curve from discount factor nodes; all must be positive
func NewDiscountFactorCurve(name string, times, dfs []float64, ip Interpolator) (*DiscountFactorCurve, error) {
	for i, df := range dfs {
		if df <= 0 {
			return nil, errors.InvalidArgumentf("discount factor node %d of curve %s is not positive: %g", i, name, df)
		}
	}
	n, err := newNodes(name, times, dfs, ip)
	if err != nil {
		return nil, err
	}
	return &DiscountFactorCurve{nodes: n}, nil
}

// DiscountFactor returns the interpolated discount factor
func (c *DiscountFactorCurve) DiscountFactor(t float64) float64 {
	if t == 0 {
		return 1
	}
	return c.fn.Value(t)
}

// InterestRate returns -ln(DF(t))/t
func (c *DiscountFactorCurve) InterestRate(t float64) float64 {
	if t == 0 {
		t = 1e-6
	}
	return -math.Log(c.DiscountFactor(t)) / t
}

// PriceIndexCurve interpolates projected price index levels
type PriceIndexCurve struct {
	nodes
}

// NewPriceIndexCurve builds a price index curve
func NewPriceIndexCurve(name string, times, levels []float64, ip Interpolator) (*PriceIndexCurve, error) {
	n, err := newNodes(name, times, levels, ip)
	if err != nil {
		return nil, err
	}
	return &PriceIndexCurve{nodes: n}, nil
}

// IndexValue returns the projected index level at time t
func (c *PriceIndexCurve) IndexValue(t float64) float64 {
	return c.fn.Value(t)
}

// Bumped returns a copy with one node shifted
func (c *PriceIndexCurve) Bumped(index int, shift float64) (*PriceIndexCurve, error) {
	values, err := c.bumpedValues(index, shift)
	if err != nil {
		return nil, err
	}
	return NewPriceIndexCurve(c.name, c.times, values, c.interpolator)
}

// Build creates a curve of the given kind. Price index curves are not Curves and
// go through NewPriceIndexCurve.
func Build(kind Kind, name string, times, values []float64, ip Interpolator) (Curve, error) {
	switch kind {
	case KindZeroRate, "":
		return NewYieldCurve(name, times, values, ip)
	case KindDiscountFactor:
		return NewDiscountFactorCurve(name, times, values, ip)
	default:
		return nil, errors.InvalidArgumentf("curve kind %q is not a discounting curve", kind)
	}
}

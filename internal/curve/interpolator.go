package curve

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/interp"

	"github.com/rzzdr/quant-curve-engine/pkg/utils/errors"
)

// InterpolatorKind selects the interpolation scheme between nodes
type InterpolatorKind string

const (
	InterpolatorLinear         InterpolatorKind = "linear"
	InterpolatorConstant       InterpolatorKind = "constant"
	InterpolatorNaturalCubic   InterpolatorKind = "natural_cubic"
	InterpolatorAkima          InterpolatorKind = "akima"
	InterpolatorFritschButland InterpolatorKind = "fritsch_butland"
)

// Extrapolation selects how a function behaves outside its node range
type Extrapolation string

const (
	// ExtrapolationFlat holds the first/last node value
	ExtrapolationFlat Extrapolation = "flat"
	// ExtrapolationLinear extends the first/last segment
	ExtrapolationLinear Extrapolation = "linear"
)

// Function is an evaluable one-dimensional curve function
type Function interface {
	Value(t float64) float64
}

// Interpolator builds a Function from node pairs
type Interpolator struct {
	Kind          InterpolatorKind `json:"kind" yaml:"kind"`
	Extrapolation Extrapolation    `json:"extrapolation" yaml:"extrapolation"`
}

// DefaultInterpolator is linear with flat extrapolation
var DefaultInterpolator = Interpolator{Kind: InterpolatorLinear, Extrapolation: ExtrapolationFlat}

// ParseInterpolator parses "kind" or "kind/extrapolation", e.g. "natural_cubic/linear"
func ParseInterpolator(s string) (Interpolator, error) {
	if s == "" {
		return DefaultInterpolator, nil
	}
	parts := strings.SplitN(strings.ToLower(strings.TrimSpace(s)), "/", 2)
	ip := Interpolator{Kind: InterpolatorKind(parts[0]), Extrapolation: ExtrapolationFlat}
	if len(parts) == 2 {
		ip.Extrapolation = Extrapolation(parts[1])
	}
	if err := ip.Validate(); err != nil {
		return Interpolator{}, err
	}
	return ip, nil
}

// Validate checks that kind and extrapolation are known
func (ip Interpolator) Validate() error {
	switch ip.Kind {
	case InterpolatorLinear, InterpolatorConstant, InterpolatorNaturalCubic, InterpolatorAkima, InterpolatorFritschButland:
	default:
		return errors.InvalidArgumentf("unknown interpolator %q", ip.Kind)
	}
	switch ip.Extrapolation {
	case ExtrapolationFlat, ExtrapolationLinear, "":
	default:
		return errors.InvalidArgumentf("unknown extrapolation %q", ip.Extrapolation)
	}
	return nil
}

// String returns "kind/extrapolation"
func (ip Interpolator) String() string {
	ext := ip.Extrapolation
	if ext == "" {
		ext = ExtrapolationFlat
	}
	return fmt.Sprintf("%s/%s", ip.Kind, ext)
}

func (ip Interpolator) predictor(n int) interp.FittablePredictor {
	// Splines need three points; two nodes are joined by a straight line
	if n < 3 {
		if ip.Kind == InterpolatorConstant {
			return &interp.PiecewiseConstant{}
		}
		return &interp.PiecewiseLinear{}
	}
	switch ip.Kind {
	case InterpolatorConstant:
		return &interp.PiecewiseConstant{}
	case InterpolatorNaturalCubic:
		return &interp.NaturalCubic{}
	case InterpolatorAkima:
		return &interp.AkimaSpline{}
	case InterpolatorFritschButland:
		return &interp.FritschButland{}
	default:
		return &interp.PiecewiseLinear{}
	}
}

// Interpolate fits the node pairs. Times must be finite and strictly increasing.
func (ip Interpolator) Interpolate(times, values []float64) (Function, error) {
	if err := ip.Validate(); err != nil {
		return nil, err
	}
	if len(times) == 0 {
		return nil, errors.InvalidArgument("interpolation needs at least one node")
	}
	if len(times) != len(values) {
		return nil, errors.InvalidArgumentf("node times (%d) and values (%d) differ in length", len(times), len(values))
	}
	for i := range times {
		if math.IsNaN(times[i]) || math.IsInf(times[i], 0) || math.IsNaN(values[i]) || math.IsInf(values[i], 0) {
			return nil, errors.InvalidArgumentf("node %d is not finite", i)
		}
		if i > 0 && times[i] <= times[i-1] {
			return nil, errors.InvalidArgumentf("node times must be strictly increasing: t[%d]=%g, t[%d]=%g", i-1, times[i-1], i, times[i])
		}
	}

	fn := &nodeFunction{
		xs:            append([]float64(nil), times...),
		ys:            append([]float64(nil), values...),
		extrapolation: ip.Extrapolation,
	}
	if len(times) == 1 {
		return fn, nil
	}

	pred := ip.predictor(len(times))
	if err := pred.Fit(fn.xs, fn.ys); err != nil {
		return nil, errors.Wrapf(errors.InvalidArgument(err.Error()), "fitting %s interpolator", ip.Kind)
	}
	fn.pred = pred
	return fn, nil
}

type nodeFunction struct {
	xs, ys        []float64
	pred          interp.Predictor
	extrapolation Extrapolation
}

func (f *nodeFunction) Value(t float64) float64 {
	n := len(f.xs)
	if n == 1 {
		return f.ys[0]
	}
	if t < f.xs[0] {
		if f.extrapolation == ExtrapolationLinear {
			slope := (f.ys[1] - f.ys[0]) / (f.xs[1] - f.xs[0])
			return f.ys[0] + slope*(t-f.xs[0])
		}
		return f.ys[0]
	}
	if t > f.xs[n-1] {
		if f.extrapolation == ExtrapolationLinear {
			slope := (f.ys[n-1] - f.ys[n-2]) / (f.xs[n-1] - f.xs[n-2])
			return f.ys[n-1] + slope*(t-f.xs[n-1])
		}
		return f.ys[n-1]
	}
	return f.pred.Predict(t)
}

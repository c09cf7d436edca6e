package pricing

import (
	"github.com/rzzdr/quant-curve-engine/internal/curve"
	"github.com/rzzdr/quant-curve-engine/internal/sensitivity"
)

// dfRead is a discount factor read off a curve during the forward sweep. Bar
// accumulates dPV/dDF during the backward sweep.
type dfRead struct {
	Time float64
	DF   float64
	Bar  float64
}

func readDF(c curve.Curve, t float64) *dfRead {
	return &dfRead{Time: t, DF: c.DiscountFactor(t)}
}

// forwardRead is (DF(t1)/DF(t2) - 1)/af on a single curve
type forwardRead struct {
	start *dfRead
	end   *dfRead
	af    float64
	Value float64
}

func readForward(c curve.Curve, t1, t2, af float64) *forwardRead {
	start := readDF(c, t1)
	end := readDF(c, t2)
	return &forwardRead{
		start: start,
		end:   end,
		af:    af,
		Value: (start.DF/end.DF - 1) / af,
	}
}

// backward pushes dPV/dForward onto the two discount factors
func (f *forwardRead) backward(bar float64) {
	f.start.Bar += bar / (f.af * f.end.DF)
	f.end.Bar -= bar * f.start.DF / (f.af * f.end.DF * f.end.DF)
}

// reads returns the discount factors the forward depends on
func (f *forwardRead) reads() []*dfRead {
	return []*dfRead{f.start, f.end}
}

// yieldPoints converts discount factor adjoints into zero-rate node sensitivities,
// using dDF(t)/dr = -t·DF(t)
func yieldPoints(reads ...*dfRead) []sensitivity.Point {
	points := make([]sensitivity.Point, 0, len(reads))
	for _, r := range reads {
		points = append(points, sensitivity.Point{Time: r.Time, Value: -r.Time * r.DF * r.Bar})
	}
	return points
}

// yieldSensitivity is the sensitivity to one curve from its discount factor reads
func yieldSensitivity(c curve.Curve, reads ...*dfRead) sensitivity.Sensitivity {
	return sensitivity.OfYield(c.Name(), yieldPoints(reads...)...)
}

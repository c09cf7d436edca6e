// Package calibration bootstraps curves from market instruments. The unknowns
// are the node values of every curve group; a quasi-Newton root finder moves
// them until each instrument reprices to its target.
package calibration

import (
	"math"
	"sort"

	"github.com/rzzdr/quant-curve-engine/internal/calculator"
	"github.com/rzzdr/quant-curve-engine/internal/curve"
	"github.com/rzzdr/quant-curve-engine/internal/instrument"
	"github.com/rzzdr/quant-curve-engine/internal/market"
	"github.com/rzzdr/quant-curve-engine/pkg/models"
	"github.com/rzzdr/quant-curve-engine/pkg/utils/errors"
)

// DefaultRate is the flat starting zero rate of every node
const DefaultRate = 0.025

// ResidualMode selects what an instrument is repriced to
type ResidualMode string

const (
	// ResidualPresentValue targets the present value, usually zero for par instruments
	ResidualPresentValue ResidualMode = "present_value"
	// ResidualParRate targets the market quote
	ResidualParRate ResidualMode = "par_rate"
)

// CurveGroup is one curve under construction and the bundle keys it serves. A
// group may serve several keys, e.g. a EUR discount curve that is also the ESTR
// forward curve.
type CurveGroup struct {
	Name string `json:"name" yaml:"name"`
	// Kind is zero_rate (default), discount_factor or price_index
	Kind         curve.Kind         `json:"kind" yaml:"kind"`
	NodeTimes    []float64          `json:"node_times" yaml:"node_times"`
	Interpolator curve.Interpolator `json:"interpolator" yaml:"interpolator"`

	Currencies   []models.Currency   `json:"currencies,omitempty" yaml:"currencies,omitempty"`
	RateIndices  []models.RateIndex  `json:"rate_indices,omitempty" yaml:"rate_indices,omitempty"`
	PriceIndices []models.PriceIndex `json:"price_indices,omitempty" yaml:"price_indices,omitempty"`
	Issuers      []string            `json:"issuers,omitempty" yaml:"issuers,omitempty"`
}

func (g CurveGroup) isPrice() bool {
	return g.Kind == curve.KindPriceIndex
}

// DataBundle is everything one calibration run needs. It is built once per call
// and read concurrently by residual workers.
type DataBundle struct {
	instruments []instrument.Derivative
	targets     []float64
	groups      []CurveGroup
	offsets     []int
	known       *market.Bundle
	mode        ResidualMode

	discount map[models.Currency]int
	forward  map[models.RateIndex]int
	price    map[models.PriceIndex]int
	issuer   map[string]int
}

// NewDataBundle validates the inputs of a calibration. The system must be
// square: as many nodes across all groups as there are instruments. Known may be
// nil; its curves sit underneath the calibrated ones and must not overlap them.
func NewDataBundle(instruments []instrument.Derivative, targets []float64, groups []CurveGroup, known *market.Bundle, mode ResidualMode) (*DataBundle, error) {
	if len(instruments) == 0 {
		return nil, errors.InvalidArgument("no calibration instruments")
	}
	if len(targets) != len(instruments) {
		return nil, errors.InvalidArgumentf("%d targets for %d instruments", len(targets), len(instruments))
	}
	for i, inst := range instruments {
		if inst == nil {
			return nil, errors.InvalidArgumentf("instrument %d is nil", i)
		}
		if math.IsNaN(targets[i]) || math.IsInf(targets[i], 0) {
			return nil, errors.InvalidArgumentf("target %d is not finite", i)
		}
	}
	if len(groups) == 0 {
		return nil, errors.InvalidArgument("no curve groups")
	}
	switch mode {
	case "":
		mode = ResidualPresentValue
	case ResidualPresentValue, ResidualParRate:
	default:
		return nil, errors.InvalidArgumentf("unknown residual mode %q", mode)
	}
	if known == nil {
		known = market.NewBundle()
	}

	d := &DataBundle{
		instruments: append([]instrument.Derivative(nil), instruments...),
		targets:     append([]float64(nil), targets...),
		groups:      make([]CurveGroup, len(groups)),
		offsets:     make([]int, len(groups)+1),
		known:       known,
		mode:        mode,
		discount:    make(map[models.Currency]int),
		forward:     make(map[models.RateIndex]int),
		price:       make(map[models.PriceIndex]int),
		issuer:      make(map[string]int),
	}

	names := make(map[string]struct{}, len(groups))
	for gi, g := range groups {
		g, err := normalizeGroup(g)
		if err != nil {
			return nil, errors.Wrapf(err, "curve group %d", gi)
		}
		if _, dup := names[g.Name]; dup {
			return nil, errors.InvalidArgumentf("curve group %s is defined twice", g.Name)
		}
		names[g.Name] = struct{}{}
		if known.HasCurve(g.Name) {
			return nil, errors.InvalidArgumentf("curve %s is already in the known market", g.Name)
		}
		if err := d.register(gi, g); err != nil {
			return nil, err
		}
		d.groups[gi] = g
		d.offsets[gi+1] = d.offsets[gi] + len(g.NodeTimes)
	}

	if nodes := d.offsets[len(groups)]; nodes != len(instruments) {
		return nil, errors.InvalidArgumentf("calibration system is not square: %d nodes for %d instruments", nodes, len(instruments))
	}
	return d, nil
}

func normalizeGroup(g CurveGroup) (CurveGroup, error) {
	if g.Name == "" {
		return g, errors.InvalidArgument("group name is required")
	}
	if g.Kind == "" {
		g.Kind = curve.KindZeroRate
	}
	switch g.Kind {
	case curve.KindZeroRate, curve.KindDiscountFactor, curve.KindPriceIndex:
	default:
		return g, errors.InvalidArgumentf("unknown curve kind %q", g.Kind)
	}
	if g.Interpolator.Kind == "" {
		g.Interpolator = curve.DefaultInterpolator
	}
	if err := g.Interpolator.Validate(); err != nil {
		return g, err
	}
	if len(g.NodeTimes) == 0 {
		return g, errors.InvalidArgumentf("group %s has no nodes", g.Name)
	}
	for i, t := range g.NodeTimes {
		if math.IsNaN(t) || t <= 0 {
			return g, errors.InvalidArgumentf("group %s node %d has time %g", g.Name, i, t)
		}
		if i > 0 && t <= g.NodeTimes[i-1] {
			return g, errors.InvalidArgumentf("group %s node times must be strictly increasing", g.Name)
		}
	}
	keys := len(g.Currencies) + len(g.RateIndices) + len(g.Issuers)
	if g.isPrice() {
		if keys > 0 || len(g.PriceIndices) == 0 {
			return g, errors.InvalidArgumentf("price index group %s must serve price indices only", g.Name)
		}
	} else {
		if len(g.PriceIndices) > 0 {
			return g, errors.InvalidArgumentf("yield group %s cannot serve price indices", g.Name)
		}
		if keys == 0 {
			return g, errors.InvalidArgumentf("group %s serves no curve", g.Name)
		}
	}
	g.NodeTimes = append([]float64(nil), g.NodeTimes...)
	return g, nil
}

func (d *DataBundle) register(gi int, g CurveGroup) error {
	for _, ccy := range g.Currencies {
		if _, dup := d.discount[ccy]; dup {
			return errors.InvalidArgumentf("discount curve %s is calibrated twice", ccy)
		}
		if _, err := d.known.DiscountCurve(ccy); err == nil {
			return errors.InvalidArgumentf("discount curve %s is already known", ccy)
		}
		d.discount[ccy] = gi
	}
	for _, idx := range g.RateIndices {
		if _, dup := d.forward[idx]; dup {
			return errors.InvalidArgumentf("forward curve %s is calibrated twice", idx)
		}
		if _, err := d.known.ForwardCurve(idx); err == nil {
			return errors.InvalidArgumentf("forward curve %s is already known", idx)
		}
		d.forward[idx] = gi
	}
	for _, idx := range g.PriceIndices {
		if _, dup := d.price[idx]; dup {
			return errors.InvalidArgumentf("price index curve %s is calibrated twice", idx)
		}
		if _, err := d.known.PriceIndexCurve(idx); err == nil {
			return errors.InvalidArgumentf("price index curve %s is already known", idx)
		}
		d.price[idx] = gi
	}
	for _, name := range g.Issuers {
		if _, dup := d.issuer[name]; dup {
			return errors.InvalidArgumentf("issuer curve %s is calibrated twice", name)
		}
		if _, err := d.known.IssuerCurve(name); err == nil {
			return errors.InvalidArgumentf("issuer curve %s is already known", name)
		}
		d.issuer[name] = gi
	}
	return nil
}

// Size is the number of unknowns, equal to the number of instruments
func (d *DataBundle) Size() int { return len(d.instruments) }

// Instruments returns the calibration instruments in residual order
func (d *DataBundle) Instruments() []instrument.Derivative {
	return append([]instrument.Derivative(nil), d.instruments...)
}

// Targets returns the target values in residual order
func (d *DataBundle) Targets() []float64 { return append([]float64(nil), d.targets...) }

// Groups returns the curve groups in unknown-vector order
func (d *DataBundle) Groups() []CurveGroup { return append([]CurveGroup(nil), d.groups...) }

// Known returns the market the calibrated curves are layered on
func (d *DataBundle) Known() *market.Bundle { return d.known }

// Mode returns the residual mode
func (d *DataBundle) Mode() ResidualMode { return d.mode }

// DiscountGroup returns the group index that calibrates a currency's discount curve
func (d *DataBundle) DiscountGroup(ccy models.Currency) (int, bool) {
	gi, ok := d.discount[ccy]
	return gi, ok
}

// ForwardGroup returns the group index that calibrates an index's forward curve
func (d *DataBundle) ForwardGroup(index models.RateIndex) (int, bool) {
	gi, ok := d.forward[index]
	return gi, ok
}

// PriceIndexGroup returns the group index that calibrates a price index curve
func (d *DataBundle) PriceIndexGroup(index models.PriceIndex) (int, bool) {
	gi, ok := d.price[index]
	return gi, ok
}

// IssuerGroup returns the group index that calibrates an issuer curve
func (d *DataBundle) IssuerGroup(name string) (int, bool) {
	gi, ok := d.issuer[name]
	return gi, ok
}

// GroupValues returns the slice of x holding a group's node values
func (d *DataBundle) GroupValues(x []float64, gi int) []float64 {
	return x[d.offsets[gi]:d.offsets[gi+1]]
}

// InitialGuess is a flat 2.5% for yield groups. Discount factor groups start at
// exp(-2.5%·t) and price groups at 100 growing 2.5% a year.
func (d *DataBundle) InitialGuess() []float64 {
	x := make([]float64, 0, d.Size())
	for _, g := range d.groups {
		for _, t := range g.NodeTimes {
			switch g.Kind {
			case curve.KindDiscountFactor:
				x = append(x, math.Exp(-DefaultRate*t))
			case curve.KindPriceIndex:
				x = append(x, 100*math.Pow(1+DefaultRate, t))
			default:
				x = append(x, DefaultRate)
			}
		}
	}
	return x
}

// Market builds the trial market for node values x: the known bundle plus one
// curve per group under every key the group serves.
func (d *DataBundle) Market(x []float64) (*market.Bundle, error) {
	if len(x) != d.Size() {
		return nil, errors.InvalidArgumentf("%d node values for %d nodes", len(x), d.Size())
	}

	yields := make([]curve.Curve, len(d.groups))
	prices := make([]*curve.PriceIndexCurve, len(d.groups))
	for gi, g := range d.groups {
		values := d.GroupValues(x, gi)
		var err error
		if g.isPrice() {
			prices[gi], err = curve.NewPriceIndexCurve(g.Name, g.NodeTimes, values, g.Interpolator)
		} else {
			yields[gi], err = curve.Build(g.Kind, g.Name, g.NodeTimes, values, g.Interpolator)
		}
		if err != nil {
			return nil, err
		}
	}

	b := d.known.Duplicate()
	for ccy, gi := range d.discount {
		if err := b.SetDiscountCurve(ccy, yields[gi]); err != nil {
			return nil, err
		}
	}
	for idx, gi := range d.forward {
		if err := b.SetForwardCurve(idx, yields[gi]); err != nil {
			return nil, err
		}
	}
	for idx, gi := range d.price {
		if err := b.SetPriceIndexCurve(idx, prices[gi]); err != nil {
			return nil, err
		}
	}
	for name, gi := range d.issuer {
		if err := b.SetIssuerCurve(name, yields[gi]); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// residual reprices instrument i on a trial market
func (d *DataBundle) residual(i int, m *market.Bundle) (float64, error) {
	var (
		v   float64
		err error
	)
	switch d.mode {
	case ResidualParRate:
		v, err = calculator.ParRate(d.instruments[i], m)
	default:
		v, err = calculator.PresentValueAmount(d.instruments[i], m)
	}
	if err != nil {
		return 0, errors.Wrapf(err, "instrument %d (%s)", i, instrument.KindOf(d.instruments[i]))
	}
	return v - d.targets[i], nil
}

// NodeTimesFromInstruments returns the sorted distinct last times of the
// instruments, the usual one-node-per-pillar grid.
func NodeTimesFromInstruments(instruments ...instrument.Derivative) ([]float64, error) {
	seen := make(map[float64]struct{}, len(instruments))
	times := make([]float64, 0, len(instruments))
	for i, inst := range instruments {
		t, err := calculator.LastTime(inst)
		if err != nil {
			return nil, errors.Wrapf(err, "instrument %d", i)
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		times = append(times, t)
	}
	sort.Float64s(times)
	return times, nil
}

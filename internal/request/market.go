package request

import (
	"sort"

	"github.com/rzzdr/quant-curve-engine/internal/curve"
	"github.com/rzzdr/quant-curve-engine/internal/market"
	"github.com/rzzdr/quant-curve-engine/pkg/models"
	"github.com/rzzdr/quant-curve-engine/pkg/utils/errors"
)

// CurveSpec is an interpolated curve and the bundle keys it is stored under
type CurveSpec struct {
	Name         string    `json:"name" yaml:"name"`
	Kind         string    `json:"kind,omitempty" yaml:"kind,omitempty"`
	Interpolator string    `json:"interpolator,omitempty" yaml:"interpolator,omitempty"`
	Times        []float64 `json:"times" yaml:"times"`
	Values       []float64 `json:"values" yaml:"values"`
	Currencies   []string  `json:"currencies,omitempty" yaml:"currencies,omitempty"`
	RateIndices  []string  `json:"rate_indices,omitempty" yaml:"rate_indices,omitempty"`
	PriceIndices []string  `json:"price_indices,omitempty" yaml:"price_indices,omitempty"`
	Issuers      []string  `json:"issuers,omitempty" yaml:"issuers,omitempty"`
}

// FXSpec says one unit of From is worth Rate units of To
type FXSpec struct {
	From string  `json:"from" yaml:"from"`
	To   string  `json:"to" yaml:"to"`
	Rate float64 `json:"rate" yaml:"rate"`
}

// MarketSpec is a serialisable market bundle
type MarketSpec struct {
	Curves []CurveSpec `json:"curves" yaml:"curves"`
	FX     []FXSpec    `json:"fx,omitempty" yaml:"fx,omitempty"`
}

// Build assembles the market bundle
func (m *MarketSpec) Build() (*market.Bundle, error) {
	b := market.NewBundle()
	if m == nil {
		return b, nil
	}
	names := make(map[string]struct{}, len(m.Curves))
	for _, cs := range m.Curves {
		if _, dup := names[cs.Name]; dup {
			return nil, errors.InvalidArgumentf("curve %s is defined twice", cs.Name)
		}
		names[cs.Name] = struct{}{}
		if err := cs.addTo(b); err != nil {
			return nil, errors.Wrapf(err, "curve %s", cs.Name)
		}
	}
	for _, fx := range m.FX {
		from, err := models.ParseCurrency(fx.From)
		if err != nil {
			return nil, errors.InvalidArgument(err.Error())
		}
		to, err := models.ParseCurrency(fx.To)
		if err != nil {
			return nil, errors.InvalidArgument(err.Error())
		}
		if err := b.FX().SetRate(from, to, fx.Rate); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (cs CurveSpec) addTo(b *market.Bundle) error {
	ip, err := curve.ParseInterpolator(cs.Interpolator)
	if err != nil {
		return err
	}
	kind := curve.Kind(cs.Kind)
	if kind == curve.KindPriceIndex {
		if len(cs.Currencies)+len(cs.RateIndices)+len(cs.Issuers) > 0 {
			return errors.InvalidArgument("a price index curve serves price indices only")
		}
		c, err := curve.NewPriceIndexCurve(cs.Name, cs.Times, cs.Values, ip)
		if err != nil {
			return err
		}
		indices, err := parsePriceIndices(cs.PriceIndices)
		if err != nil {
			return err
		}
		for _, idx := range indices {
			if err := b.SetPriceIndexCurve(idx, c); err != nil {
				return err
			}
		}
		return nil
	}

	if len(cs.PriceIndices) > 0 {
		return errors.InvalidArgument("a yield curve cannot serve price indices")
	}
	c, err := curve.Build(kind, cs.Name, cs.Times, cs.Values, ip)
	if err != nil {
		return err
	}
	currencies, err := parseCurrencies(cs.Currencies)
	if err != nil {
		return err
	}
	for _, ccy := range currencies {
		if err := b.SetDiscountCurve(ccy, c); err != nil {
			return err
		}
	}
	indices, err := parseRateIndices(cs.RateIndices)
	if err != nil {
		return err
	}
	for _, idx := range indices {
		if err := b.SetForwardCurve(idx, c); err != nil {
			return err
		}
	}
	for _, name := range cs.Issuers {
		if err := b.SetIssuerCurve(name, c); err != nil {
			return err
		}
	}
	return nil
}

// nodeCurve is what every interpolated curve exposes about its nodes
type nodeCurve interface {
	Name() string
	NodeTimes() []float64
	NodeValues() []float64
	Interpolator() curve.Interpolator
}

// ExportMarket serialises a bundle, one entry per distinct curve. A curve
// stored under several keys is exported once; two different curves sharing a
// name cannot be told apart in a document and fail with InvalidArgument.
func ExportMarket(b *market.Bundle) (*MarketSpec, error) {
	specs := make(map[nodeCurve]*CurveSpec)
	owners := make(map[string]nodeCurve)
	entry := func(c nodeCurve, kind curve.Kind) (*CurveSpec, error) {
		if cs, ok := specs[c]; ok {
			return cs, nil
		}
		if _, taken := owners[c.Name()]; taken {
			return nil, errors.InvalidArgumentf("two different curves are named %s", c.Name())
		}
		cs := &CurveSpec{
			Name:         c.Name(),
			Kind:         string(kind),
			Interpolator: c.Interpolator().String(),
			Times:        c.NodeTimes(),
			Values:       c.NodeValues(),
		}
		specs[c] = cs
		owners[c.Name()] = c
		return cs, nil
	}
	yield := func(c curve.Curve) (*CurveSpec, error) {
		switch yc := c.(type) {
		case *curve.YieldCurve:
			return entry(yc, curve.KindZeroRate)
		case *curve.DiscountFactorCurve:
			return entry(yc, curve.KindDiscountFactor)
		default:
			return nil, errors.Internal("curve " + c.Name() + " has no node representation")
		}
	}

	for _, ccy := range b.Currencies() {
		c, err := b.DiscountCurve(ccy)
		if err != nil {
			return nil, err
		}
		cs, err := yield(c)
		if err != nil {
			return nil, err
		}
		cs.Currencies = append(cs.Currencies, ccy.String())
	}
	for _, idx := range b.RateIndices() {
		c, err := b.ForwardCurve(idx)
		if err != nil {
			return nil, err
		}
		cs, err := yield(c)
		if err != nil {
			return nil, err
		}
		cs.RateIndices = append(cs.RateIndices, idx.Name)
	}
	for _, idx := range b.PriceIndices() {
		c, err := b.PriceIndexCurve(idx)
		if err != nil {
			return nil, err
		}
		cs, err := entry(c, curve.KindPriceIndex)
		if err != nil {
			return nil, err
		}
		cs.PriceIndices = append(cs.PriceIndices, idx.Name)
	}
	for _, name := range b.Issuers() {
		c, err := b.IssuerCurve(name)
		if err != nil {
			return nil, err
		}
		cs, err := yield(c)
		if err != nil {
			return nil, err
		}
		cs.Issuers = append(cs.Issuers, name)
	}

	out := &MarketSpec{Curves: make([]CurveSpec, 0, len(specs))}
	for _, cs := range specs {
		out.Curves = append(out.Curves, *cs)
	}
	sort.Slice(out.Curves, func(i, j int) bool { return out.Curves[i].Name < out.Curves[j].Name })

	if ccys := b.FX().Currencies(); len(ccys) > 1 {
		base := ccys[0]
		for _, ccy := range ccys[1:] {
			rate, err := b.FX().Rate(base, ccy)
			if err != nil {
				return nil, err
			}
			out.FX = append(out.FX, FXSpec{From: base.String(), To: ccy.String(), Rate: rate})
		}
	}
	return out, nil
}

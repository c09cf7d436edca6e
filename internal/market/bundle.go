// Package market holds the curve bundle every pricing method and calculator reads from.
package market

import (
	"sort"

	"github.com/rzzdr/quant-curve-engine/internal/curve"
	"github.com/rzzdr/quant-curve-engine/pkg/models"
	"github.com/rzzdr/quant-curve-engine/pkg/utils/errors"
)

// Bundle is a keyed collection of curves: discounting curves by currency, forward
// curves by rate index, price curves by price index and issuer curves by name.
// A Bundle is not safe for concurrent mutation; branch with Duplicate instead.
type Bundle struct {
	discount map[models.Currency]curve.Curve
	forward  map[models.RateIndex]curve.Curve
	price    map[models.PriceIndex]*curve.PriceIndexCurve
	issuer   map[string]curve.Curve
	fx       *FXMatrix
}

// NewBundle creates an empty bundle
func NewBundle() *Bundle {
	return &Bundle{
		discount: make(map[models.Currency]curve.Curve),
		forward:  make(map[models.RateIndex]curve.Curve),
		price:    make(map[models.PriceIndex]*curve.PriceIndexCurve),
		issuer:   make(map[string]curve.Curve),
		fx:       NewFXMatrix(),
	}
}

// Duplicate returns a bundle with fresh maps holding the same curve objects
func (b *Bundle) Duplicate() *Bundle {
	out := &Bundle{
		discount: make(map[models.Currency]curve.Curve, len(b.discount)),
		forward:  make(map[models.RateIndex]curve.Curve, len(b.forward)),
		price:    make(map[models.PriceIndex]*curve.PriceIndexCurve, len(b.price)),
		issuer:   make(map[string]curve.Curve, len(b.issuer)),
		fx:       b.fx.Duplicate(),
	}
	for k, v := range b.discount {
		out.discount[k] = v
	}
	for k, v := range b.forward {
		out.forward[k] = v
	}
	for k, v := range b.price {
		out.price[k] = v
	}
	for k, v := range b.issuer {
		out.issuer[k] = v
	}
	return out
}

// DiscountCurve returns the discounting curve of a currency
func (b *Bundle) DiscountCurve(ccy models.Currency) (curve.Curve, error) {
	c, ok := b.discount[ccy]
	if !ok {
		return nil, errors.MissingCurve("no discounting curve for " + ccy.String())
	}
	return c, nil
}

// ForwardCurve returns the projection curve of a rate index
func (b *Bundle) ForwardCurve(index models.RateIndex) (curve.Curve, error) {
	c, ok := b.forward[index]
	if !ok {
		return nil, errors.MissingCurve("no forward curve for " + index.Name)
	}
	return c, nil
}

// PriceIndexCurve returns the projection curve of a price index
func (b *Bundle) PriceIndexCurve(index models.PriceIndex) (*curve.PriceIndexCurve, error) {
	c, ok := b.price[index]
	if !ok {
		return nil, errors.MissingCurve("no price index curve for " + index.Name)
	}
	return c, nil
}

// IssuerCurve returns a named auxiliary curve
func (b *Bundle) IssuerCurve(name string) (curve.Curve, error) {
	c, ok := b.issuer[name]
	if !ok {
		return nil, errors.MissingCurve("no issuer curve named " + name)
	}
	return c, nil
}

// CurveByName finds a discounting, forward or issuer curve by its own name
func (b *Bundle) CurveByName(name string) (curve.Curve, error) {
	for _, c := range b.discount {
		if c.Name() == name {
			return c, nil
		}
	}
	for _, c := range b.forward {
		if c.Name() == name {
			return c, nil
		}
	}
	for _, c := range b.issuer {
		if c.Name() == name {
			return c, nil
		}
	}
	return nil, errors.MissingCurve("no curve named " + name)
}

// HasCurve reports whether any curve in the bundle, price curves included,
// is called name
func (b *Bundle) HasCurve(name string) bool {
	if _, err := b.CurveByName(name); err == nil {
		return true
	}
	for _, c := range b.price {
		if c.Name() == name {
			return true
		}
	}
	return false
}

// DiscountFactor returns DF(t) on the currency's discounting curve
func (b *Bundle) DiscountFactor(ccy models.Currency, t float64) (float64, error) {
	c, err := b.DiscountCurve(ccy)
	if err != nil {
		return 0, err
	}
	return c.DiscountFactor(t), nil
}

// ForwardRate returns (DF(t1)/DF(t2) - 1)/af on the index's forward curve
func (b *Bundle) ForwardRate(index models.RateIndex, t1, t2, af float64) (float64, error) {
	if af == 0 {
		return 0, errors.InvalidArgumentf("zero accrual factor for forward rate on %s", index.Name)
	}
	c, err := b.ForwardCurve(index)
	if err != nil {
		return 0, err
	}
	return (c.DiscountFactor(t1)/c.DiscountFactor(t2) - 1) / af, nil
}

// SetDiscountCurve adds a discounting curve; the currency must not have one yet
func (b *Bundle) SetDiscountCurve(ccy models.Currency, c curve.Curve) error {
	if c == nil {
		return errors.InvalidArgument("nil discounting curve for " + ccy.String())
	}
	if _, ok := b.discount[ccy]; ok {
		return errors.InvalidArgument("discounting curve already set for " + ccy.String())
	}
	b.discount[ccy] = c
	return nil
}

// ReplaceDiscountCurve overwrites an existing discounting curve
func (b *Bundle) ReplaceDiscountCurve(ccy models.Currency, c curve.Curve) error {
	if c == nil {
		return errors.InvalidArgument("nil discounting curve for " + ccy.String())
	}
	if _, ok := b.discount[ccy]; !ok {
		return errors.MissingCurve("no discounting curve to replace for " + ccy.String())
	}
	b.discount[ccy] = c
	return nil
}

// SetForwardCurve adds a forward curve; the index must not have one yet
func (b *Bundle) SetForwardCurve(index models.RateIndex, c curve.Curve) error {
	if c == nil {
		return errors.InvalidArgument("nil forward curve for " + index.Name)
	}
	if _, ok := b.forward[index]; ok {
		return errors.InvalidArgument("forward curve already set for " + index.Name)
	}
	b.forward[index] = c
	return nil
}

// ReplaceForwardCurve overwrites an existing forward curve
func (b *Bundle) ReplaceForwardCurve(index models.RateIndex, c curve.Curve) error {
	if c == nil {
		return errors.InvalidArgument("nil forward curve for " + index.Name)
	}
	if _, ok := b.forward[index]; !ok {
		return errors.MissingCurve("no forward curve to replace for " + index.Name)
	}
	b.forward[index] = c
	return nil
}

// SetPriceIndexCurve adds a price curve; the index must not have one yet
func (b *Bundle) SetPriceIndexCurve(index models.PriceIndex, c *curve.PriceIndexCurve) error {
	if c == nil {
		return errors.InvalidArgument("nil price index curve for " + index.Name)
	}
	if _, ok := b.price[index]; ok {
		return errors.InvalidArgument("price index curve already set for " + index.Name)
	}
	b.price[index] = c
	return nil
}

// ReplacePriceIndexCurve overwrites an existing price curve
func (b *Bundle) ReplacePriceIndexCurve(index models.PriceIndex, c *curve.PriceIndexCurve) error {
	if c == nil {
		return errors.InvalidArgument("nil price index curve for " + index.Name)
	}
	if _, ok := b.price[index]; !ok {
		return errors.MissingCurve("no price index curve to replace for " + index.Name)
	}
	b.price[index] = c
	return nil
}

// SetIssuerCurve adds a named curve; the name must not be taken
func (b *Bundle) SetIssuerCurve(name string, c curve.Curve) error {
	if c == nil || name == "" {
		return errors.InvalidArgument("issuer curve needs a name and a curve")
	}
	if _, ok := b.issuer[name]; ok {
		return errors.InvalidArgument("issuer curve already set for " + name)
	}
	b.issuer[name] = c
	return nil
}

// ReplaceIssuerCurve overwrites an existing named curve
func (b *Bundle) ReplaceIssuerCurve(name string, c curve.Curve) error {
	if c == nil {
		return errors.InvalidArgument("nil issuer curve for " + name)
	}
	if _, ok := b.issuer[name]; !ok {
		return errors.MissingCurve("no issuer curve to replace for " + name)
	}
	b.issuer[name] = c
	return nil
}

// FX returns the bundle's FX matrix
func (b *Bundle) FX() *FXMatrix {
	return b.fx
}

// SetFXMatrix replaces the FX matrix
func (b *Bundle) SetFXMatrix(fx *FXMatrix) {
	if fx == nil {
		fx = NewFXMatrix()
	}
	b.fx = fx
}

// Convert expresses a multi-currency amount in one currency through the FX matrix
func (b *Bundle) Convert(mca models.MultipleCurrencyAmount, ccy models.Currency) (models.CurrencyAmount, error) {
	return b.fx.Convert(mca, ccy)
}

// Currencies returns the currencies with a discounting curve, sorted
func (b *Bundle) Currencies() []models.Currency {
	out := make([]models.Currency, 0, len(b.discount))
	for ccy := range b.discount {
		out = append(out, ccy)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// RateIndices returns the indices with a forward curve, sorted by name
func (b *Bundle) RateIndices() []models.RateIndex {
	out := make([]models.RateIndex, 0, len(b.forward))
	for idx := range b.forward {
		out = append(out, idx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// PriceIndices returns the indices with a price curve, sorted by name
func (b *Bundle) PriceIndices() []models.PriceIndex {
	out := make([]models.PriceIndex, 0, len(b.price))
	for idx := range b.price {
		out = append(out, idx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Issuers returns the issuer curve keys, sorted
func (b *Bundle) Issuers() []string {
	out := make([]string, 0, len(b.issuer))
	for name := range b.issuer {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// CurveNames returns the distinct names of all curves in the bundle, sorted
func (b *Bundle) CurveNames() []string {
	seen := make(map[string]struct{})
	for _, c := range b.discount {
		seen[c.Name()] = struct{}{}
	}
	for _, c := range b.forward {
		seen[c.Name()] = struct{}{}
	}
	for _, c := range b.price {
		seen[c.Name()] = struct{}{}
	}
	for _, c := range b.issuer {
		seen[c.Name()] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

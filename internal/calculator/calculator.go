// Package calculator exposes a uniform present value, curve sensitivity and par
// rate API over every instrument variant. Composite instruments are aggregated
// here; atomic ones delegate to the pricing methods unchanged.
package calculator

import (
	"sort"

	"github.com/rzzdr/quant-curve-engine/internal/instrument"
	"github.com/rzzdr/quant-curve-engine/internal/market"
	"github.com/rzzdr/quant-curve-engine/internal/sensitivity"
	"github.com/rzzdr/quant-curve-engine/pkg/models"
	"github.com/rzzdr/quant-curve-engine/pkg/utils/errors"
)

// BasisPoint is the shift PV01 is expressed in
const BasisPoint = 1e-4

// PresentValue values a derivative, one amount per payment currency
func PresentValue(d instrument.Derivative, bundle *market.Bundle) (models.MultipleCurrencyAmount, error) {
	return instrument.Dispatch[*market.Bundle, models.MultipleCurrencyAmount](d, bundle, PresentValueCalculator{})
}

// PresentValueInCurrency values a derivative and converts every currency at spot
func PresentValueInCurrency(d instrument.Derivative, bundle *market.Bundle, ccy models.Currency) (models.CurrencyAmount, error) {
	pv, err := PresentValue(d, bundle)
	if err != nil {
		return models.CurrencyAmount{}, err
	}
	if pv.Size() == 0 {
		return models.NewCurrencyAmount(ccy, 0), nil
	}
	if pv.Size() == 1 && pv.Contains(ccy) {
		return models.NewCurrencyAmount(ccy, pv.Amount(ccy)), nil
	}
	return bundle.Convert(pv, ccy)
}

// PresentValueAmount values a derivative as a single number: the amount of a
// single-currency value, or the value converted into its first currency
func PresentValueAmount(d instrument.Derivative, bundle *market.Bundle) (float64, error) {
	pv, err := PresentValue(d, bundle)
	if err != nil {
		return 0, err
	}
	switch pv.Size() {
	case 0:
		return 0, nil
	case 1:
		return pv.Amounts()[0].Amount, nil
	}
	total, err := bundle.Convert(pv, pv.Currencies()[0])
	if err != nil {
		return 0, errors.Wrap(err, "converting multi-currency value")
	}
	return total.Amount, nil
}

// PresentValueCurveSensitivity returns the analytic curve sensitivity per currency
func PresentValueCurveSensitivity(d instrument.Derivative, bundle *market.Bundle) (sensitivity.MultiCurrency, error) {
	return instrument.Dispatch[*market.Bundle, sensitivity.MultiCurrency](d, bundle, PresentValueCurveSensitivityCalculator{})
}

// ParRate returns the market quote of a rate instrument
func ParRate(d instrument.Derivative, bundle *market.Bundle) (float64, error) {
	return instrument.Dispatch[*market.Bundle, float64](d, bundle, ParRateCalculator{})
}

// LastTime returns the maturity an instrument contributes to a curve node grid
func LastTime(d instrument.Derivative) (float64, error) {
	return instrument.Dispatch[struct{}, float64](d, struct{}{}, LastTimeCalculator{})
}

// CurvePV01 is the value change of a one basis point parallel move of one curve
type CurvePV01 struct {
	Curve string  `json:"curve"`
	PV01  float64 `json:"pv01"`
}

// PV01 aggregates a sensitivity per yield curve, sorted by curve name
func PV01(s sensitivity.Sensitivity) []CurvePV01 {
	out := make([]CurvePV01, 0, len(s.Yield))
	for name := range s.Yield {
		out = append(out, CurvePV01{Curve: name, PV01: s.Total(name) * BasisPoint})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Curve < out[j].Curve })
	return out
}

package pricing

import (
	"github.com/rzzdr/quant-curve-engine/internal/instrument"
	"github.com/rzzdr/quant-curve-engine/internal/market"
	"github.com/rzzdr/quant-curve-engine/internal/sensitivity"
	"github.com/rzzdr/quant-curve-engine/pkg/models"
)

// ForexMethod discounts each leg of an FX exchange in its own currency
type ForexMethod struct{}

// PresentValue returns one amount per currency
func (ForexMethod) PresentValue(f *instrument.Forex, bundle *market.Bundle) (models.MultipleCurrencyAmount, error) {
	if err := checkInputs("forex", f == nil, bundle); err != nil {
		return models.MultipleCurrencyAmount{}, err
	}
	pv1, err := PaymentFixedMethod{}.PresentValue(f.PaymentCurrency1, bundle)
	if err != nil {
		return models.MultipleCurrencyAmount{}, err
	}
	pv2, err := PaymentFixedMethod{}.PresentValue(f.PaymentCurrency2, bundle)
	if err != nil {
		return models.MultipleCurrencyAmount{}, err
	}
	return models.NewMultipleCurrencyAmount(pv1, pv2), nil
}

// PresentValueCurveSensitivity returns each leg's discounting sensitivity under its currency
func (ForexMethod) PresentValueCurveSensitivity(f *instrument.Forex, bundle *market.Bundle) (sensitivity.MultiCurrency, error) {
	if err := checkInputs("forex", f == nil, bundle); err != nil {
		return sensitivity.MultiCurrency{}, err
	}
	s1, err := PaymentFixedMethod{}.PresentValueCurveSensitivity(f.PaymentCurrency1, bundle)
	if err != nil {
		return sensitivity.MultiCurrency{}, err
	}
	s2, err := PaymentFixedMethod{}.PresentValueCurveSensitivity(f.PaymentCurrency2, bundle)
	if err != nil {
		return sensitivity.MultiCurrency{}, err
	}
	return sensitivity.Of(f.PaymentCurrency1.Currency, s1).PlusCurrency(f.PaymentCurrency2.Currency, s2), nil
}

// ForexSwapMethod values both exchanges of an FX swap
type ForexSwapMethod struct{}

// PresentValue sums the near and far exchanges per currency
func (ForexSwapMethod) PresentValue(s *instrument.ForexSwap, bundle *market.Bundle) (models.MultipleCurrencyAmount, error) {
	if err := checkInputs("forex swap", s == nil, bundle); err != nil {
		return models.MultipleCurrencyAmount{}, err
	}
	near, err := ForexMethod{}.PresentValue(s.NearLeg, bundle)
	if err != nil {
		return models.MultipleCurrencyAmount{}, err
	}
	far, err := ForexMethod{}.PresentValue(s.FarLeg, bundle)
	if err != nil {
		return models.MultipleCurrencyAmount{}, err
	}
	return near.Plus(far), nil
}

// PresentValueCurveSensitivity sums the near and far sensitivities per currency
func (ForexSwapMethod) PresentValueCurveSensitivity(s *instrument.ForexSwap, bundle *market.Bundle) (sensitivity.MultiCurrency, error) {
	if err := checkInputs("forex swap", s == nil, bundle); err != nil {
		return sensitivity.MultiCurrency{}, err
	}
	near, err := ForexMethod{}.PresentValueCurveSensitivity(s.NearLeg, bundle)
	if err != nil {
		return sensitivity.MultiCurrency{}, err
	}
	far, err := ForexMethod{}.PresentValueCurveSensitivity(s.FarLeg, bundle)
	if err != nil {
		return sensitivity.MultiCurrency{}, err
	}
	return near.Plus(far), nil
}

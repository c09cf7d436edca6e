package calculator

import (
	"github.com/rzzdr/quant-curve-engine/internal/instrument"
	"github.com/rzzdr/quant-curve-engine/internal/market"
	"github.com/rzzdr/quant-curve-engine/internal/pricing"
	"github.com/rzzdr/quant-curve-engine/internal/sensitivity"
	"github.com/rzzdr/quant-curve-engine/pkg/models"
)

// PresentValueCurveSensitivityCalculator returns the analytic curve sensitivity of
// any derivative, keyed by the currency each part of the value is paid in
type PresentValueCurveSensitivityCalculator struct{}

var _ instrument.Visitor[*market.Bundle, sensitivity.MultiCurrency] = PresentValueCurveSensitivityCalculator{}

func inCurrency(ccy models.Currency) func(sensitivity.Sensitivity, error) (sensitivity.MultiCurrency, error) {
	return func(s sensitivity.Sensitivity, err error) (sensitivity.MultiCurrency, error) {
		if err != nil {
			return sensitivity.MultiCurrency{}, err
		}
		return sensitivity.Of(ccy, s), nil
	}
}

func (PresentValueCurveSensitivityCalculator) VisitCash(c *instrument.Cash, b *market.Bundle) (sensitivity.MultiCurrency, error) {
	return inCurrency(c.Currency)(pricing.CashMethod{}.PresentValueCurveSensitivity(c, b))
}

func (PresentValueCurveSensitivityCalculator) VisitDepositIbor(d *instrument.DepositIbor, b *market.Bundle) (sensitivity.MultiCurrency, error) {
	return inCurrency(d.Currency)(pricing.DepositIborMethod{}.PresentValueCurveSensitivity(d, b))
}

func (PresentValueCurveSensitivityCalculator) VisitForwardRateAgreement(f *instrument.ForwardRateAgreement, b *market.Bundle) (sensitivity.MultiCurrency, error) {
	return inCurrency(f.Currency)(pricing.ForwardRateAgreementMethod{}.PresentValueCurveSensitivity(f, b))
}

func (PresentValueCurveSensitivityCalculator) VisitInterestRateFuture(f *instrument.InterestRateFuture, b *market.Bundle) (sensitivity.MultiCurrency, error) {
	return inCurrency(f.Currency)(pricing.InterestRateFutureMethod{}.PresentValueCurveSensitivity(f, b))
}

func (PresentValueCurveSensitivityCalculator) VisitPaymentFixed(p *instrument.PaymentFixed, b *market.Bundle) (sensitivity.MultiCurrency, error) {
	return inCurrency(p.Currency)(pricing.PaymentFixedMethod{}.PresentValueCurveSensitivity(p, b))
}

func (PresentValueCurveSensitivityCalculator) VisitCouponFixed(c *instrument.CouponFixed, b *market.Bundle) (sensitivity.MultiCurrency, error) {
	return inCurrency(c.Currency)(pricing.CouponFixedMethod{}.PresentValueCurveSensitivity(c, b))
}

func (PresentValueCurveSensitivityCalculator) VisitCouponIbor(c *instrument.CouponIbor, b *market.Bundle) (sensitivity.MultiCurrency, error) {
	return inCurrency(c.Currency)(pricing.CouponIborMethod{}.PresentValueCurveSensitivity(c, b))
}

func (PresentValueCurveSensitivityCalculator) VisitCouponIborGearing(c *instrument.CouponIborGearing, b *market.Bundle) (sensitivity.MultiCurrency, error) {
	return inCurrency(c.Currency)(pricing.CouponIborGearingMethod{}.PresentValueCurveSensitivity(c, b))
}

func (PresentValueCurveSensitivityCalculator) VisitCouponOIS(c *instrument.CouponOIS, b *market.Bundle) (sensitivity.MultiCurrency, error) {
	return inCurrency(c.Currency)(pricing.CouponOISMethod{}.PresentValueCurveSensitivity(c, b))
}

// VisitAnnuity adds the payment sensitivities
func (sc PresentValueCurveSensitivityCalculator) VisitAnnuity(a *instrument.Annuity, b *market.Bundle) (sensitivity.MultiCurrency, error) {
	parts := make([]instrument.Derivative, len(a.Payments))
	for i, p := range a.Payments {
		parts[i] = p
	}
	return sc.sum(b, parts...)
}

// VisitFixedAnnuity adds the coupon sensitivities
func (sc PresentValueCurveSensitivityCalculator) VisitFixedAnnuity(a *instrument.FixedAnnuity, b *market.Bundle) (sensitivity.MultiCurrency, error) {
	parts := make([]instrument.Derivative, len(a.Coupons))
	for i, c := range a.Coupons {
		parts[i] = c
	}
	return sc.sum(b, parts...)
}

func (sc PresentValueCurveSensitivityCalculator) VisitSwap(s *instrument.Swap, b *market.Bundle) (sensitivity.MultiCurrency, error) {
	return sc.sum(b, s.FirstLeg, s.SecondLeg)
}

func (sc PresentValueCurveSensitivityCalculator) VisitFixedCouponSwap(s *instrument.FixedCouponSwap, b *market.Bundle) (sensitivity.MultiCurrency, error) {
	return sc.sum(b, s.FixedLeg, s.SecondLeg)
}

func (sc PresentValueCurveSensitivityCalculator) sum(b *market.Bundle, parts ...instrument.Derivative) (sensitivity.MultiCurrency, error) {
	total := sensitivity.NewMultiCurrency()
	for _, p := range parts {
		s, err := instrument.Dispatch[*market.Bundle, sensitivity.MultiCurrency](p, b, sc)
		if err != nil {
			return sensitivity.MultiCurrency{}, err
		}
		total = total.Plus(s)
	}
	return total, nil
}

func (PresentValueCurveSensitivityCalculator) VisitForex(f *instrument.Forex, b *market.Bundle) (sensitivity.MultiCurrency, error) {
	return pricing.ForexMethod{}.PresentValueCurveSensitivity(f, b)
}

func (PresentValueCurveSensitivityCalculator) VisitForexSwap(s *instrument.ForexSwap, b *market.Bundle) (sensitivity.MultiCurrency, error) {
	return pricing.ForexSwapMethod{}.PresentValueCurveSensitivity(s, b)
}

func (PresentValueCurveSensitivityCalculator) VisitBondFixed(bond *instrument.BondFixed, b *market.Bundle) (sensitivity.MultiCurrency, error) {
	return inCurrency(bond.Currency)(pricing.BondFixedMethod{}.PresentValueCurveSensitivity(bond, b))
}

func (PresentValueCurveSensitivityCalculator) VisitCapitalIndexedBond(bond *instrument.CapitalIndexedBond, b *market.Bundle) (sensitivity.MultiCurrency, error) {
	return inCurrency(bond.Currency)(pricing.CapitalIndexedBondMethod{}.PresentValueCurveSensitivity(bond, b))
}

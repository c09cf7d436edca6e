package calculator

import (
	"github.com/rzzdr/quant-curve-engine/internal/instrument"
	"github.com/rzzdr/quant-curve-engine/internal/market"
	"github.com/rzzdr/quant-curve-engine/internal/pricing"
	"github.com/rzzdr/quant-curve-engine/pkg/models"
)

// PresentValueCalculator values any derivative, recursing into annuities and swaps
type PresentValueCalculator struct{}

var _ instrument.Visitor[*market.Bundle, models.MultipleCurrencyAmount] = PresentValueCalculator{}

func single(a models.CurrencyAmount, err error) (models.MultipleCurrencyAmount, error) {
	if err != nil {
		return models.MultipleCurrencyAmount{}, err
	}
	return models.NewMultipleCurrencyAmount(a), nil
}

func (PresentValueCalculator) VisitCash(c *instrument.Cash, b *market.Bundle) (models.MultipleCurrencyAmount, error) {
	return single(pricing.CashMethod{}.PresentValue(c, b))
}

func (PresentValueCalculator) VisitDepositIbor(d *instrument.DepositIbor, b *market.Bundle) (models.MultipleCurrencyAmount, error) {
	return single(pricing.DepositIborMethod{}.PresentValue(d, b))
}

func (PresentValueCalculator) VisitForwardRateAgreement(f *instrument.ForwardRateAgreement, b *market.Bundle) (models.MultipleCurrencyAmount, error) {
	return single(pricing.ForwardRateAgreementMethod{}.PresentValue(f, b))
}

func (PresentValueCalculator) VisitInterestRateFuture(f *instrument.InterestRateFuture, b *market.Bundle) (models.MultipleCurrencyAmount, error) {
	return single(pricing.InterestRateFutureMethod{}.PresentValue(f, b))
}

func (PresentValueCalculator) VisitPaymentFixed(p *instrument.PaymentFixed, b *market.Bundle) (models.MultipleCurrencyAmount, error) {
	return single(pricing.PaymentFixedMethod{}.PresentValue(p, b))
}

func (PresentValueCalculator) VisitCouponFixed(c *instrument.CouponFixed, b *market.Bundle) (models.MultipleCurrencyAmount, error) {
	return single(pricing.CouponFixedMethod{}.PresentValue(c, b))
}

func (PresentValueCalculator) VisitCouponIbor(c *instrument.CouponIbor, b *market.Bundle) (models.MultipleCurrencyAmount, error) {
	return single(pricing.CouponIborMethod{}.PresentValue(c, b))
}

func (PresentValueCalculator) VisitCouponIborGearing(c *instrument.CouponIborGearing, b *market.Bundle) (models.MultipleCurrencyAmount, error) {
	return single(pricing.CouponIborGearingMethod{}.PresentValue(c, b))
}

func (PresentValueCalculator) VisitCouponOIS(c *instrument.CouponOIS, b *market.Bundle) (models.MultipleCurrencyAmount, error) {
	return single(pricing.CouponOISMethod{}.PresentValue(c, b))
}

// VisitAnnuity sums the payments
func (pc PresentValueCalculator) VisitAnnuity(a *instrument.Annuity, b *market.Bundle) (models.MultipleCurrencyAmount, error) {
	var total models.MultipleCurrencyAmount
	for _, p := range a.Payments {
		pv, err := instrument.Dispatch[*market.Bundle, models.MultipleCurrencyAmount](p, b, pc)
		if err != nil {
			return models.MultipleCurrencyAmount{}, err
		}
		total = total.Plus(pv)
	}
	return total, nil
}

// VisitFixedAnnuity sums the coupons
func (pc PresentValueCalculator) VisitFixedAnnuity(a *instrument.FixedAnnuity, b *market.Bundle) (models.MultipleCurrencyAmount, error) {
	var total models.MultipleCurrencyAmount
	for _, c := range a.Coupons {
		pv, err := pc.VisitCouponFixed(c, b)
		if err != nil {
			return models.MultipleCurrencyAmount{}, err
		}
		total = total.Plus(pv)
	}
	return total, nil
}

// VisitSwap sums both legs per currency
func (pc PresentValueCalculator) VisitSwap(s *instrument.Swap, b *market.Bundle) (models.MultipleCurrencyAmount, error) {
	return pc.legs(b, s.FirstLeg, s.SecondLeg)
}

func (pc PresentValueCalculator) VisitFixedCouponSwap(s *instrument.FixedCouponSwap, b *market.Bundle) (models.MultipleCurrencyAmount, error) {
	return pc.legs(b, s.FixedLeg, s.SecondLeg)
}

func (pc PresentValueCalculator) legs(b *market.Bundle, legs ...instrument.Derivative) (models.MultipleCurrencyAmount, error) {
	var total models.MultipleCurrencyAmount
	for _, leg := range legs {
		pv, err := instrument.Dispatch[*market.Bundle, models.MultipleCurrencyAmount](leg, b, pc)
		if err != nil {
			return models.MultipleCurrencyAmount{}, err
		}
		total = total.Plus(pv)
	}
	return total, nil
}

func (PresentValueCalculator) VisitForex(f *instrument.Forex, b *market.Bundle) (models.MultipleCurrencyAmount, error) {
	return pricing.ForexMethod{}.PresentValue(f, b)
}

func (PresentValueCalculator) VisitForexSwap(s *instrument.ForexSwap, b *market.Bundle) (models.MultipleCurrencyAmount, error) {
	return pricing.ForexSwapMethod{}.PresentValue(s, b)
}

func (PresentValueCalculator) VisitBondFixed(bond *instrument.BondFixed, b *market.Bundle) (models.MultipleCurrencyAmount, error) {
	return single(pricing.BondFixedMethod{}.PresentValue(bond, b))
}

func (PresentValueCalculator) VisitCapitalIndexedBond(bond *instrument.CapitalIndexedBond, b *market.Bundle) (models.MultipleCurrencyAmount, error) {
	return single(pricing.CapitalIndexedBondMethod{}.PresentValue(bond, b))
}

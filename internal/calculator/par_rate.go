package calculator

import (
	"math"

	"github.com/rzzdr/quant-curve-engine/internal/instrument"
	"github.com/rzzdr/quant-curve-engine/internal/market"
	"github.com/rzzdr/quant-curve-engine/internal/pricing"
	"github.com/rzzdr/quant-curve-engine/pkg/utils/errors"
)

// ParRateCalculator returns the market quote that makes a rate instrument worth
// zero. Instruments without such a quote fail with a type mismatch.
type ParRateCalculator struct{}

var _ instrument.Visitor[*market.Bundle, float64] = ParRateCalculator{}

func noParRate(kind instrument.Kind) (float64, error) {
	return 0, errors.TypeMismatchf("par rate is not defined for %s", kind)
}

func (ParRateCalculator) VisitCash(c *instrument.Cash, b *market.Bundle) (float64, error) {
	return pricing.CashMethod{}.ParRate(c, b)
}

func (ParRateCalculator) VisitDepositIbor(d *instrument.DepositIbor, b *market.Bundle) (float64, error) {
	return pricing.DepositIborMethod{}.ParRate(d, b)
}

func (ParRateCalculator) VisitForwardRateAgreement(f *instrument.ForwardRateAgreement, b *market.Bundle) (float64, error) {
	return pricing.ForwardRateAgreementMethod{}.ParRate(f, b)
}

func (ParRateCalculator) VisitInterestRateFuture(f *instrument.InterestRateFuture, b *market.Bundle) (float64, error) {
	return pricing.InterestRateFutureMethod{}.ParRate(f, b)
}

func (ParRateCalculator) VisitPaymentFixed(*instrument.PaymentFixed, *market.Bundle) (float64, error) {
	return noParRate(instrument.KindPaymentFixed)
}

func (ParRateCalculator) VisitCouponFixed(*instrument.CouponFixed, *market.Bundle) (float64, error) {
	return noParRate(instrument.KindCouponFixed)
}

// VisitCouponIbor returns the forward of the fixing period
func (ParRateCalculator) VisitCouponIbor(c *instrument.CouponIbor, b *market.Bundle) (float64, error) {
	if b == nil {
		return 0, errors.InvalidArgument("nil market bundle")
	}
	return b.ForwardRate(c.Index, c.FixingPeriodStartTime, c.FixingPeriodEndTime, c.FixingAccrualFactor)
}

func (ParRateCalculator) VisitCouponIborGearing(c *instrument.CouponIborGearing, b *market.Bundle) (float64, error) {
	if b == nil {
		return 0, errors.InvalidArgument("nil market bundle")
	}
	return b.ForwardRate(c.Index, c.FixingPeriodStartTime, c.FixingPeriodEndTime, c.FixingAccrualFactor)
}

func (ParRateCalculator) VisitCouponOIS(c *instrument.CouponOIS, b *market.Bundle) (float64, error) {
	return pricing.CouponOISMethod{}.ParRate(c, b)
}

func (ParRateCalculator) VisitAnnuity(*instrument.Annuity, *market.Bundle) (float64, error) {
	return noParRate(instrument.KindAnnuity)
}

func (ParRateCalculator) VisitFixedAnnuity(*instrument.FixedAnnuity, *market.Bundle) (float64, error) {
	return noParRate(instrument.KindFixedAnnuity)
}

// VisitSwap supports swaps whose first leg is made of fixed coupons only
func (pr ParRateCalculator) VisitSwap(s *instrument.Swap, b *market.Bundle) (float64, error) {
	if s.FirstLeg == nil {
		return 0, errors.InvalidArgument("swap without first leg")
	}
	coupons := make([]*instrument.CouponFixed, 0, len(s.FirstLeg.Payments))
	for _, p := range s.FirstLeg.Payments {
		c, ok := p.(*instrument.CouponFixed)
		if !ok {
			return 0, errors.TypeMismatchf("par rate needs a fixed first leg, found %s", instrument.KindOf(p))
		}
		coupons = append(coupons, c)
	}
	return pr.VisitFixedCouponSwap(&instrument.FixedCouponSwap{
		FixedLeg:  &instrument.FixedAnnuity{Coupons: coupons},
		SecondLeg: s.SecondLeg,
	}, b)
}

// VisitFixedCouponSwap returns -PV(second leg)/PV(fixed leg paying a unit coupon)
func (ParRateCalculator) VisitFixedCouponSwap(s *instrument.FixedCouponSwap, b *market.Bundle) (float64, error) {
	if s.FixedLeg == nil || s.SecondLeg == nil {
		return 0, errors.InvalidArgument("swap needs two legs")
	}
	ccy := s.FixedLeg.Currency()
	unit, err := PresentValueInCurrency(s.FixedLeg.WithUnitCoupon(), b, ccy)
	if err != nil {
		return 0, err
	}
	if unit.Amount == 0 || math.IsNaN(unit.Amount) {
		return 0, errors.InvalidArgument("fixed leg annuity is zero")
	}
	second, err := PresentValueInCurrency(s.SecondLeg, b, ccy)
	if err != nil {
		return 0, err
	}
	return -second.Amount / unit.Amount, nil
}

func (ParRateCalculator) VisitForex(*instrument.Forex, *market.Bundle) (float64, error) {
	return noParRate(instrument.KindForex)
}

func (ParRateCalculator) VisitForexSwap(*instrument.ForexSwap, *market.Bundle) (float64, error) {
	return noParRate(instrument.KindForexSwap)
}

func (ParRateCalculator) VisitBondFixed(*instrument.BondFixed, *market.Bundle) (float64, error) {
	return noParRate(instrument.KindBondFixed)
}

func (ParRateCalculator) VisitCapitalIndexedBond(*instrument.CapitalIndexedBond, *market.Bundle) (float64, error) {
	return noParRate(instrument.KindCapitalIndexedBond)
}

package calculator

import (
	"math"

	"github.com/rzzdr/quant-curve-engine/internal/instrument"
)

// LastTimeCalculator returns the last time an instrument depends on: its last
// payment or the end of its last fixing period, whichever is later
type LastTimeCalculator struct{}

var _ instrument.Visitor[struct{}, float64] = LastTimeCalculator{}

func (LastTimeCalculator) VisitCash(c *instrument.Cash, _ struct{}) (float64, error) {
	return c.EndTime, nil
}

func (LastTimeCalculator) VisitDepositIbor(d *instrument.DepositIbor, _ struct{}) (float64, error) {
	return d.EndTime, nil
}

func (LastTimeCalculator) VisitForwardRateAgreement(f *instrument.ForwardRateAgreement, _ struct{}) (float64, error) {
	return math.Max(f.PaymentTime, f.FixingPeriodEndTime), nil
}

func (LastTimeCalculator) VisitInterestRateFuture(f *instrument.InterestRateFuture, _ struct{}) (float64, error) {
	return f.FixingPeriodEndTime, nil
}

func (LastTimeCalculator) VisitPaymentFixed(p *instrument.PaymentFixed, _ struct{}) (float64, error) {
	return p.PaymentTime, nil
}

func (LastTimeCalculator) VisitCouponFixed(c *instrument.CouponFixed, _ struct{}) (float64, error) {
	return c.PaymentTime, nil
}

func (LastTimeCalculator) VisitCouponIbor(c *instrument.CouponIbor, _ struct{}) (float64, error) {
	return math.Max(c.PaymentTime, c.FixingPeriodEndTime), nil
}

func (LastTimeCalculator) VisitCouponIborGearing(c *instrument.CouponIborGearing, _ struct{}) (float64, error) {
	return math.Max(c.PaymentTime, c.FixingPeriodEndTime), nil
}

func (LastTimeCalculator) VisitCouponOIS(c *instrument.CouponOIS, _ struct{}) (float64, error) {
	return math.Max(c.PaymentTime, c.FixingPeriodEndTime), nil
}

func (lt LastTimeCalculator) VisitAnnuity(a *instrument.Annuity, _ struct{}) (float64, error) {
	parts := make([]instrument.Derivative, len(a.Payments))
	for i, p := range a.Payments {
		parts[i] = p
	}
	return lt.max(parts...)
}

func (lt LastTimeCalculator) VisitFixedAnnuity(a *instrument.FixedAnnuity, _ struct{}) (float64, error) {
	parts := make([]instrument.Derivative, len(a.Coupons))
	for i, c := range a.Coupons {
		parts[i] = c
	}
	return lt.max(parts...)
}

func (lt LastTimeCalculator) VisitSwap(s *instrument.Swap, _ struct{}) (float64, error) {
	return lt.max(s.FirstLeg, s.SecondLeg)
}

func (lt LastTimeCalculator) VisitFixedCouponSwap(s *instrument.FixedCouponSwap, _ struct{}) (float64, error) {
	return lt.max(s.FixedLeg, s.SecondLeg)
}

func (lt LastTimeCalculator) VisitForex(f *instrument.Forex, _ struct{}) (float64, error) {
	return lt.max(f.PaymentCurrency1, f.PaymentCurrency2)
}

func (lt LastTimeCalculator) VisitForexSwap(s *instrument.ForexSwap, _ struct{}) (float64, error) {
	return lt.max(s.NearLeg, s.FarLeg)
}

func (lt LastTimeCalculator) VisitBondFixed(b *instrument.BondFixed, _ struct{}) (float64, error) {
	parts := make([]instrument.Derivative, 0, len(b.Nominal)+1)
	if b.Coupons != nil {
		parts = append(parts, b.Coupons)
	}
	for _, p := range b.Nominal {
		parts = append(parts, p)
	}
	return lt.max(parts...)
}

func (LastTimeCalculator) VisitCapitalIndexedBond(b *instrument.CapitalIndexedBond, _ struct{}) (float64, error) {
	last := 0.0
	for _, f := range b.Flows {
		last = math.Max(last, f.PaymentTime)
	}
	return last, nil
}

func (lt LastTimeCalculator) max(parts ...instrument.Derivative) (float64, error) {
	last := 0.0
	for _, p := range parts {
		t, err := instrument.Dispatch[struct{}, float64](p, struct{}{}, lt)
		if err != nil {
			return 0, err
		}
		last = math.Max(last, t)
	}
	return last, nil
}

package instrument

import (
	"github.com/rzzdr/quant-curve-engine/pkg/models"
	"github.com/rzzdr/quant-curve-engine/pkg/utils/errors"
)

// Annuity is an ordered stream of payments in one currency
type Annuity struct {
	Payments []Payment
}

// NewAnnuity creates an annuity; all payments must share a currency
func NewAnnuity(payments ...Payment) (*Annuity, error) {
	if len(payments) == 0 {
		return nil, errors.InvalidArgument("annuity needs at least one payment")
	}
	ccy := models.Currency("")
	for i, p := range payments {
		if p == nil {
			return nil, errors.InvalidArgumentf("payment %d of annuity is nil", i)
		}
		if i == 0 {
			ccy = p.Base().Currency
		} else if p.Base().Currency != ccy {
			return nil, errors.InvalidArgumentf("annuity mixes currencies %s and %s", ccy, p.Base().Currency)
		}
	}
	return &Annuity{Payments: payments}, nil
}

// Currency returns the currency of the first payment
func (a *Annuity) Currency() models.Currency {
	if len(a.Payments) == 0 {
		return ""
	}
	return a.Payments[0].Base().Currency
}

// FixedAnnuity is a stream of fixed coupons
type FixedAnnuity struct {
	Coupons []*CouponFixed
}

// NewFixedAnnuity creates a fixed annuity; all coupons must share a currency
func NewFixedAnnuity(coupons ...*CouponFixed) (*FixedAnnuity, error) {
	payments := make([]Payment, len(coupons))
	for i, c := range coupons {
		if c == nil {
			return nil, errors.InvalidArgumentf("coupon %d of fixed annuity is nil", i)
		}
		payments[i] = c
	}
	if _, err := NewAnnuity(payments...); err != nil {
		return nil, err
	}
	return &FixedAnnuity{Coupons: coupons}, nil
}

// Currency returns the currency of the first coupon
func (a *FixedAnnuity) Currency() models.Currency {
	if len(a.Coupons) == 0 {
		return ""
	}
	return a.Coupons[0].Currency
}

// WithRate returns a copy with every coupon paying rate
func (a *FixedAnnuity) WithRate(rate float64) *FixedAnnuity {
	out := make([]*CouponFixed, len(a.Coupons))
	for i, c := range a.Coupons {
		out[i] = c.WithRate(rate)
	}
	return &FixedAnnuity{Coupons: out}
}

// WithUnitCoupon returns a copy paying a rate of 1
func (a *FixedAnnuity) WithUnitCoupon() *FixedAnnuity {
	return a.WithRate(1)
}

// Swap exchanges two annuities
type Swap struct {
	FirstLeg  *Annuity
	SecondLeg *Annuity
}

// NewSwap creates a swap of two legs
func NewSwap(first, second *Annuity) (*Swap, error) {
	if first == nil || second == nil {
		return nil, errors.InvalidArgument("swap needs two legs")
	}
	return &Swap{FirstLeg: first, SecondLeg: second}, nil
}

// FixedCouponSwap exchanges a fixed annuity for a floating one
type FixedCouponSwap struct {
	FixedLeg  *FixedAnnuity
	SecondLeg *Annuity
}

// NewFixedCouponSwap creates a fixed versus floating swap
func NewFixedCouponSwap(fixed *FixedAnnuity, second *Annuity) (*FixedCouponSwap, error) {
	if fixed == nil || second == nil {
		return nil, errors.InvalidArgument("fixed coupon swap needs two legs")
	}
	return &FixedCouponSwap{FixedLeg: fixed, SecondLeg: second}, nil
}

func checkSchedule(times []float64) error {
	if len(times) < 2 {
		return errors.InvalidArgumentf("schedule needs a start and at least one payment time, got %d times", len(times))
	}
	for i := 1; i < len(times); i++ {
		if times[i] <= times[i-1] {
			return errors.InvalidArgumentf("schedule times must increase: %g then %g", times[i-1], times[i])
		}
	}
	return nil
}

// FixedLeg builds coupons on a schedule: times[0] is the start, each later time a
// payment date accruing from the previous one.
func FixedLeg(ccy models.Currency, notional, rate float64, times []float64) (*FixedAnnuity, error) {
	if err := checkSchedule(times); err != nil {
		return nil, err
	}
	coupons := make([]*CouponFixed, 0, len(times)-1)
	for i := 1; i < len(times); i++ {
		coupons = append(coupons, NewCouponFixed(ccy, times[i], times[i]-times[i-1], notional, rate))
	}
	return NewFixedAnnuity(coupons...)
}

// IborLeg builds ibor coupons fixing at the start of each schedule period
func IborLeg(index models.RateIndex, notional, spread float64, times []float64) (*Annuity, error) {
	if err := checkSchedule(times); err != nil {
		return nil, err
	}
	payments := make([]Payment, 0, len(times)-1)
	for i := 1; i < len(times); i++ {
		af := times[i] - times[i-1]
		c, err := NewCouponIbor(IborFixing{
			Index:                 index,
			FixingTime:            times[i-1],
			FixingPeriodStartTime: times[i-1],
			FixingPeriodEndTime:   times[i],
			FixingAccrualFactor:   af,
		}, times[i], af, notional, spread)
		if err != nil {
			return nil, err
		}
		payments = append(payments, c)
	}
	return NewAnnuity(payments...)
}

// OISLeg builds overnight compounded coupons on a schedule
func OISLeg(index models.RateIndex, notional float64, times []float64) (*Annuity, error) {
	if err := checkSchedule(times); err != nil {
		return nil, err
	}
	payments := make([]Payment, 0, len(times)-1)
	for i := 1; i < len(times); i++ {
		af := times[i] - times[i-1]
		payments = append(payments, NewCouponOIS(index, times[i], af, notional, times[i-1], times[i], af))
	}
	return NewAnnuity(payments...)
}

// NewFixedIborSwap builds a vanilla swap. A payer swap pays the fixed rate.
func NewFixedIborSwap(index models.RateIndex, notional, rate float64, fixedTimes, iborTimes []float64, payer bool) (*FixedCouponSwap, error) {
	sign := 1.0
	if payer {
		sign = -1
	}
	fixed, err := FixedLeg(index.Currency, sign*notional, rate, fixedTimes)
	if err != nil {
		return nil, errors.Wrap(err, "fixed leg")
	}
	ibor, err := IborLeg(index, -sign*notional, 0, iborTimes)
	if err != nil {
		return nil, errors.Wrap(err, "ibor leg")
	}
	return NewFixedCouponSwap(fixed, ibor)
}

// NewFixedOISSwap builds an overnight indexed swap with matching schedules
func NewFixedOISSwap(index models.RateIndex, notional, rate float64, times []float64, payer bool) (*FixedCouponSwap, error) {
	sign := 1.0
	if payer {
		sign = -1
	}
	fixed, err := FixedLeg(index.Currency, sign*notional, rate, times)
	if err != nil {
		return nil, errors.Wrap(err, "fixed leg")
	}
	ois, err := OISLeg(index, -sign*notional, times)
	if err != nil {
		return nil, errors.Wrap(err, "ois leg")
	}
	return NewFixedCouponSwap(fixed, ois)
}

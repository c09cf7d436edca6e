package instrument

import (
	"github.com/rzzdr/quant-curve-engine/pkg/models"
)

// Payment is a single cash flow usable as an element of an annuity
type Payment interface {
	Derivative
	Base() PaymentBase
}

// PaymentBase is the currency and time of a cash flow
type PaymentBase struct {
	Currency    models.Currency
	PaymentTime float64
}

// Base returns the payment currency and time
func (p PaymentBase) Base() PaymentBase {
	return p
}

// CouponBase adds the accrual factor and notional of a coupon
type CouponBase struct {
	PaymentBase
	PaymentAccrualFactor float64
	Notional             float64
}

// PaymentFixed is a known amount paid at PaymentTime
type PaymentFixed struct {
	PaymentBase
	Amount float64
}

// NewPaymentFixed creates a fixed payment
func NewPaymentFixed(ccy models.Currency, t, amount float64) *PaymentFixed {
	return &PaymentFixed{PaymentBase: PaymentBase{Currency: ccy, PaymentTime: t}, Amount: amount}
}

// CouponFixed pays Notional·PaymentAccrualFactor·FixedRate
type CouponFixed struct {
	CouponBase
	FixedRate float64
}

// NewCouponFixed creates a fixed coupon
func NewCouponFixed(ccy models.Currency, t, af, notional, rate float64) *CouponFixed {
	return &CouponFixed{
		CouponBase: CouponBase{PaymentBase: PaymentBase{Currency: ccy, PaymentTime: t}, PaymentAccrualFactor: af, Notional: notional},
		FixedRate:  rate,
	}
}

// Amount returns the coupon cash amount
func (c *CouponFixed) Amount() float64 {
	return c.Notional * c.PaymentAccrualFactor * c.FixedRate
}

// WithRate returns a copy paying another fixed rate
func (c *CouponFixed) WithRate(rate float64) *CouponFixed {
	out := *c
	out.FixedRate = rate
	return &out
}

// CouponIbor pays the ibor fixing plus Spread on Notional over PaymentAccrualFactor
type CouponIbor struct {
	CouponBase
	IborFixing
	Spread float64
}

// NewCouponIbor creates an ibor coupon paid in the index currency
func NewCouponIbor(fixing IborFixing, t, af, notional, spread float64) (*CouponIbor, error) {
	if err := fixing.validate(); err != nil {
		return nil, err
	}
	return &CouponIbor{
		CouponBase: CouponBase{PaymentBase: PaymentBase{Currency: fixing.Index.Currency, PaymentTime: t}, PaymentAccrualFactor: af, Notional: notional},
		IborFixing: fixing,
		Spread:     spread,
	}, nil
}

// SpreadAmount returns Notional·PaymentAccrualFactor·Spread
func (c *CouponIbor) SpreadAmount() float64 {
	return c.Notional * c.PaymentAccrualFactor * c.Spread
}

// CouponIborGearing pays Factor times the ibor fixing plus Spread
type CouponIborGearing struct {
	CouponBase
	IborFixing
	Factor float64
	Spread float64
}

// NewCouponIborGearing creates a geared ibor coupon
func NewCouponIborGearing(fixing IborFixing, t, af, notional, factor, spread float64) (*CouponIborGearing, error) {
	if err := fixing.validate(); err != nil {
		return nil, err
	}
	return &CouponIborGearing{
		CouponBase: CouponBase{PaymentBase: PaymentBase{Currency: fixing.Index.Currency, PaymentTime: t}, PaymentAccrualFactor: af, Notional: notional},
		IborFixing: fixing,
		Factor:     factor,
		Spread:     spread,
	}, nil
}

// CouponOIS pays the compounded overnight rate over the fixing period.
// NotionalAccrued includes interest from fixings already published.
type CouponOIS struct {
	CouponBase
	Index                 models.RateIndex
	FixingPeriodStartTime float64
	FixingPeriodEndTime   float64
	FixingAccrualFactor   float64
	NotionalAccrued       float64
}

// NewCouponOIS creates an OIS coupon with nothing fixed yet
func NewCouponOIS(index models.RateIndex, t, af, notional, start, end, fixingAF float64) *CouponOIS {
	return &CouponOIS{
		CouponBase:            CouponBase{PaymentBase: PaymentBase{Currency: index.Currency, PaymentTime: t}, PaymentAccrualFactor: af, Notional: notional},
		Index:                 index,
		FixingPeriodStartTime: start,
		FixingPeriodEndTime:   end,
		FixingAccrualFactor:   fixingAF,
		NotionalAccrued:       notional,
	}
}

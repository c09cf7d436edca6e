package instrument

import (
	"github.com/rzzdr/quant-curve-engine/pkg/models"
	"github.com/rzzdr/quant-curve-engine/pkg/utils/errors"
)

// Cash is a deposit: notional paid at StartTime, notional plus interest received at EndTime
type Cash struct {
	Currency      models.Currency
	StartTime     float64
	EndTime       float64
	Notional      float64
	Rate          float64
	AccrualFactor float64
}

// NewCash creates a cash deposit
func NewCash(ccy models.Currency, start, end, notional, rate, af float64) (*Cash, error) {
	if end <= start {
		return nil, errors.InvalidArgumentf("cash end time %g must be after start time %g", end, start)
	}
	if af <= 0 {
		return nil, errors.InvalidArgumentf("cash accrual factor must be positive, got %g", af)
	}
	return &Cash{Currency: ccy, StartTime: start, EndTime: end, Notional: notional, Rate: rate, AccrualFactor: af}, nil
}

// DepositIbor is a deposit fixing an ibor index; it is valued on the index forward curve
type DepositIbor struct {
	Cash
	Index models.RateIndex
}

// NewDepositIbor creates an ibor deposit
func NewDepositIbor(index models.RateIndex, start, end, notional, rate, af float64) (*DepositIbor, error) {
	c, err := NewCash(index.Currency, start, end, notional, rate, af)
	if err != nil {
		return nil, err
	}
	return &DepositIbor{Cash: *c, Index: index}, nil
}

// IborFixing describes the period over which an ibor index is fixed
type IborFixing struct {
	Index                 models.RateIndex
	FixingTime            float64
	FixingPeriodStartTime float64
	FixingPeriodEndTime   float64
	FixingAccrualFactor   float64
}

func (f IborFixing) validate() error {
	if f.FixingPeriodEndTime <= f.FixingPeriodStartTime {
		return errors.InvalidArgumentf("fixing period end %g must be after start %g", f.FixingPeriodEndTime, f.FixingPeriodStartTime)
	}
	if f.FixingAccrualFactor <= 0 {
		return errors.InvalidArgumentf("fixing accrual factor must be positive, got %g", f.FixingAccrualFactor)
	}
	return nil
}

// ForwardRateAgreement pays the discounted difference between the fixed ibor rate and Rate
type ForwardRateAgreement struct {
	CouponBase
	IborFixing
	Rate float64
}

// NewForwardRateAgreement creates an FRA
func NewForwardRateAgreement(base CouponBase, fixing IborFixing, rate float64) (*ForwardRateAgreement, error) {
	if err := fixing.validate(); err != nil {
		return nil, err
	}
	return &ForwardRateAgreement{CouponBase: base, IborFixing: fixing, Rate: rate}, nil
}

// InterestRateFuture is a margined future on an ibor rate, quoted as 1 - rate
type InterestRateFuture struct {
	IborFixing
	Name                 string
	Currency             models.Currency
	LastTradingTime      float64
	ReferencePrice       float64
	PaymentAccrualFactor float64
	Notional             float64
	Quantity             float64
}

// NewInterestRateFuture creates a future position
func NewInterestRateFuture(name string, fixing IborFixing, referencePrice, paymentAF, notional, quantity float64) (*InterestRateFuture, error) {
	if err := fixing.validate(); err != nil {
		return nil, err
	}
	if quantity == 0 {
		quantity = 1
	}
	return &InterestRateFuture{
		Name:                 name,
		Currency:             fixing.Index.Currency,
		LastTradingTime:      fixing.FixingTime,
		IborFixing:           fixing,
		ReferencePrice:       referencePrice,
		PaymentAccrualFactor: paymentAF,
		Notional:             notional,
		Quantity:             quantity,
	}, nil
}

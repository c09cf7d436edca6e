package instrument

import (
	"github.com/rzzdr/quant-curve-engine/pkg/models"
	"github.com/rzzdr/quant-curve-engine/pkg/utils/errors"
)

// BondFixed is a fixed coupon bond discounted on the curve of its issuer
type BondFixed struct {
	IssuerName string
	Currency   models.Currency
	Coupons    *FixedAnnuity
	Nominal    []*PaymentFixed
}

// NewBondFixed builds a bullet bond on a schedule (times[0] is the accrual start)
func NewBondFixed(issuer string, ccy models.Currency, notional, coupon float64, times []float64) (*BondFixed, error) {
	if issuer == "" {
		return nil, errors.InvalidArgument("bond issuer is required")
	}
	coupons, err := FixedLeg(ccy, notional, coupon, times)
	if err != nil {
		return nil, errors.Wrap(err, "bond coupons")
	}
	return &BondFixed{
		IssuerName: issuer,
		Currency:   ccy,
		Coupons:    coupons,
		Nominal:    []*PaymentFixed{NewPaymentFixed(ccy, times[len(times)-1], notional)},
	}, nil
}

// IndexedFlow pays Notional·Factor·I(ReferenceTime)/I0 at PaymentTime
type IndexedFlow struct {
	PaymentTime   float64
	ReferenceTime float64
	Notional      float64
	Factor        float64
}

// CapitalIndexedBond pays coupons and principal scaled by a price index
type CapitalIndexedBond struct {
	Currency        models.Currency
	PriceIndex      models.PriceIndex
	IndexStartValue float64
	Flows           []IndexedFlow
}

// NewCapitalIndexedBond builds an inflation-linked bond paying realRate on an indexed
// notional; each flow references the index lag years before payment
func NewCapitalIndexedBond(index models.PriceIndex, indexStart, notional, realRate, lag float64, times []float64) (*CapitalIndexedBond, error) {
	if indexStart <= 0 {
		return nil, errors.InvalidArgumentf("index start value must be positive, got %g", indexStart)
	}
	if err := checkSchedule(times); err != nil {
		return nil, err
	}
	flows := make([]IndexedFlow, 0, len(times))
	for i := 1; i < len(times); i++ {
		flows = append(flows, IndexedFlow{
			PaymentTime:   times[i],
			ReferenceTime: times[i] - lag,
			Notional:      notional,
			Factor:        (times[i] - times[i-1]) * realRate,
		})
	}
	last := times[len(times)-1]
	flows = append(flows, IndexedFlow{PaymentTime: last, ReferenceTime: last - lag, Notional: notional, Factor: 1})
	return &CapitalIndexedBond{
		Currency:        index.Currency,
		PriceIndex:      index,
		IndexStartValue: indexStart,
		Flows:           flows,
	}, nil
}

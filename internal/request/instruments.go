// Package request maps calibration and pricing documents, JSON or YAML, onto
// instruments, curve groups and market bundles.
package request

import (
	"strings"

	"github.com/rzzdr/quant-curve-engine/internal/instrument"
	"github.com/rzzdr/quant-curve-engine/pkg/models"
	"github.com/rzzdr/quant-curve-engine/pkg/utils/errors"
)

// Instrument types accepted in documents besides the variant kinds themselves
const (
	TypeIborSwap = "ibor_swap"
	TypeOISSwap  = "ois_swap"
)

// InstrumentSpec describes one instrument. Which fields matter depends on Type.
// Times are year fractions from the valuation date.
type InstrumentSpec struct {
	Type  string `json:"type" yaml:"type"`
	Group string `json:"group,omitempty" yaml:"group,omitempty"`
	// Target is the present value or par rate the instrument is calibrated to
	Target float64 `json:"target,omitempty" yaml:"target,omitempty"`

	Currency   string `json:"currency,omitempty" yaml:"currency,omitempty"`
	Currency2  string `json:"currency2,omitempty" yaml:"currency2,omitempty"`
	Index      string `json:"index,omitempty" yaml:"index,omitempty"`
	PriceIndex string `json:"price_index,omitempty" yaml:"price_index,omitempty"`
	Issuer     string `json:"issuer,omitempty" yaml:"issuer,omitempty"`
	Name       string `json:"name,omitempty" yaml:"name,omitempty"`

	Start         float64 `json:"start,omitempty" yaml:"start,omitempty"`
	End           float64 `json:"end,omitempty" yaml:"end,omitempty"`
	PaymentTime   float64 `json:"payment_time,omitempty" yaml:"payment_time,omitempty"`
	FixingTime    float64 `json:"fixing_time,omitempty" yaml:"fixing_time,omitempty"`
	FarTime       float64 `json:"far_time,omitempty" yaml:"far_time,omitempty"`
	AccrualFactor float64 `json:"accrual_factor,omitempty" yaml:"accrual_factor,omitempty"`

	Notional       float64 `json:"notional,omitempty" yaml:"notional,omitempty"`
	Amount         float64 `json:"amount,omitempty" yaml:"amount,omitempty"`
	Rate           float64 `json:"rate,omitempty" yaml:"rate,omitempty"`
	Spread         float64 `json:"spread,omitempty" yaml:"spread,omitempty"`
	Factor         float64 `json:"factor,omitempty" yaml:"factor,omitempty"`
	ForwardPoints  float64 `json:"forward_points,omitempty" yaml:"forward_points,omitempty"`
	ReferencePrice float64 `json:"reference_price,omitempty" yaml:"reference_price,omitempty"`
	Quantity       float64 `json:"quantity,omitempty" yaml:"quantity,omitempty"`
	IndexStart     float64 `json:"index_start,omitempty" yaml:"index_start,omitempty"`
	Lag            float64 `json:"lag,omitempty" yaml:"lag,omitempty"`

	Times      []float64 `json:"times,omitempty" yaml:"times,omitempty"`
	FixedTimes []float64 `json:"fixed_times,omitempty" yaml:"fixed_times,omitempty"`
	FloatTimes []float64 `json:"float_times,omitempty" yaml:"float_times,omitempty"`
	Payer      bool      `json:"payer,omitempty" yaml:"payer,omitempty"`
}

// Build creates the instrument described by s
func (s InstrumentSpec) Build() (instrument.Derivative, error) {
	switch strings.ToLower(s.Type) {
	case string(instrument.KindCash):
		ccy, err := s.currency()
		if err != nil {
			return nil, err
		}
		return instrument.NewCash(ccy, s.Start, s.End, s.notional(), s.Rate, s.accrual())

	case string(instrument.KindDepositIbor):
		idx, err := s.rateIndex()
		if err != nil {
			return nil, err
		}
		return instrument.NewDepositIbor(idx, s.Start, s.End, s.notional(), s.Rate, s.accrual())

	case string(instrument.KindForwardRateAgreement):
		fixing, err := s.fixing()
		if err != nil {
			return nil, err
		}
		base := instrument.CouponBase{
			PaymentBase:          instrument.PaymentBase{Currency: fixing.Index.Currency, PaymentTime: s.paymentTime()},
			PaymentAccrualFactor: s.accrual(),
			Notional:             s.notional(),
		}
		return instrument.NewForwardRateAgreement(base, fixing, s.Rate)

	case string(instrument.KindInterestRateFuture):
		fixing, err := s.fixing()
		if err != nil {
			return nil, err
		}
		return instrument.NewInterestRateFuture(s.Name, fixing, s.ReferencePrice, s.accrual(), s.notional(), s.Quantity)

	case string(instrument.KindPaymentFixed):
		ccy, err := s.currency()
		if err != nil {
			return nil, err
		}
		return instrument.NewPaymentFixed(ccy, s.PaymentTime, s.Amount), nil

	case string(instrument.KindCouponFixed):
		ccy, err := s.currency()
		if err != nil {
			return nil, err
		}
		return instrument.NewCouponFixed(ccy, s.paymentTime(), s.accrual(), s.notional(), s.Rate), nil

	case string(instrument.KindCouponIbor):
		fixing, err := s.fixing()
		if err != nil {
			return nil, err
		}
		return instrument.NewCouponIbor(fixing, s.paymentTime(), s.accrual(), s.notional(), s.Spread)

	case string(instrument.KindCouponIborGearing):
		fixing, err := s.fixing()
		if err != nil {
			return nil, err
		}
		return instrument.NewCouponIborGearing(fixing, s.paymentTime(), s.accrual(), s.notional(), s.Factor, s.Spread)

	case string(instrument.KindCouponOIS):
		idx, err := s.rateIndex()
		if err != nil {
			return nil, err
		}
		if s.End <= s.Start {
			return nil, errors.InvalidArgumentf("ois coupon end %g must be after start %g", s.End, s.Start)
		}
		return instrument.NewCouponOIS(idx, s.paymentTime(), s.accrual(), s.notional(), s.Start, s.End, s.accrual()), nil

	case TypeIborSwap:
		idx, err := s.rateIndex()
		if err != nil {
			return nil, err
		}
		return instrument.NewFixedIborSwap(idx, s.notional(), s.Rate, s.FixedTimes, s.FloatTimes, s.Payer)

	case TypeOISSwap:
		idx, err := s.rateIndex()
		if err != nil {
			return nil, err
		}
		return instrument.NewFixedOISSwap(idx, s.notional(), s.Rate, s.Times, s.Payer)

	case string(instrument.KindBondFixed):
		ccy, err := s.currency()
		if err != nil {
			return nil, err
		}
		return instrument.NewBondFixed(s.Issuer, ccy, s.notional(), s.Rate, s.Times)

	case string(instrument.KindCapitalIndexedBond):
		idx, err := models.LookupPriceIndex(s.PriceIndex)
		if err != nil {
			return nil, errors.InvalidArgument(err.Error())
		}
		return instrument.NewCapitalIndexedBond(idx, s.IndexStart, s.notional(), s.Rate, s.Lag, s.Times)

	case string(instrument.KindForex):
		c1, c2, err := s.currencyPair()
		if err != nil {
			return nil, err
		}
		return instrument.NewForex(c1, c2, s.PaymentTime, s.Amount, s.Rate)

	case string(instrument.KindForexSwap):
		c1, c2, err := s.currencyPair()
		if err != nil {
			return nil, err
		}
		return instrument.NewForexSwap(c1, c2, s.PaymentTime, s.FarTime, s.Amount, s.Rate, s.ForwardPoints)

	default:
		return nil, errors.InvalidArgumentf("unknown instrument type %q", s.Type)
	}
}

func (s InstrumentSpec) notional() float64 {
	if s.Notional == 0 {
		return 1
	}
	return s.Notional
}

func (s InstrumentSpec) accrual() float64 {
	if s.AccrualFactor != 0 {
		return s.AccrualFactor
	}
	if s.End > s.Start {
		return s.End - s.Start
	}
	return 0
}

func (s InstrumentSpec) paymentTime() float64 {
	if s.PaymentTime != 0 {
		return s.PaymentTime
	}
	if s.End != 0 {
		return s.End
	}
	return s.Start
}

func (s InstrumentSpec) currency() (models.Currency, error) {
	ccy, err := models.ParseCurrency(s.Currency)
	if err != nil {
		return "", errors.InvalidArgument(err.Error())
	}
	return ccy, nil
}

func (s InstrumentSpec) currencyPair() (models.Currency, models.Currency, error) {
	c1, err := s.currency()
	if err != nil {
		return "", "", err
	}
	c2, err := models.ParseCurrency(s.Currency2)
	if err != nil {
		return "", "", errors.InvalidArgument(err.Error())
	}
	return c1, c2, nil
}

func (s InstrumentSpec) rateIndex() (models.RateIndex, error) {
	idx, err := models.LookupRateIndex(s.Index)
	if err != nil {
		return models.RateIndex{}, errors.InvalidArgument(err.Error())
	}
	return idx, nil
}

// fixing reads an ibor fixing over [Start, End], fixing at FixingTime or Start
func (s InstrumentSpec) fixing() (instrument.IborFixing, error) {
	idx, err := s.rateIndex()
	if err != nil {
		return instrument.IborFixing{}, err
	}
	fixingTime := s.FixingTime
	if fixingTime == 0 {
		fixingTime = s.Start
	}
	return instrument.IborFixing{
		Index:                 idx,
		FixingTime:            fixingTime,
		FixingPeriodStartTime: s.Start,
		FixingPeriodEndTime:   s.End,
		FixingAccrualFactor:   s.accrual(),
	}, nil
}

// BuildAll builds instruments in order, naming the failing position
func BuildAll(specs []InstrumentSpec) ([]instrument.Derivative, error) {
	out := make([]instrument.Derivative, len(specs))
	for i, s := range specs {
		d, err := s.Build()
		if err != nil {
			return nil, errors.Wrapf(err, "instrument %d (%s)", i, s.Type)
		}
		out[i] = d
	}
	return out, nil
}

package pricing

import (
	"github.com/rzzdr/quant-curve-engine/internal/curve"
	"github.com/rzzdr/quant-curve-engine/internal/instrument"
	"github.com/rzzdr/quant-curve-engine/internal/market"
	"github.com/rzzdr/quant-curve-engine/internal/sensitivity"
	"github.com/rzzdr/quant-curve-engine/pkg/models"
)

// PaymentFixedMethod discounts a known amount
type PaymentFixedMethod struct{}

// PresentValue returns amount·DF(t)
func (m PaymentFixedMethod) PresentValue(p *instrument.PaymentFixed, bundle *market.Bundle) (models.CurrencyAmount, error) {
	if err := checkInputs("fixed payment", p == nil, bundle); err != nil {
		return models.CurrencyAmount{}, err
	}
	dsc, err := bundle.DiscountCurve(p.Currency)
	if err != nil {
		return models.CurrencyAmount{}, err
	}
	return models.NewCurrencyAmount(p.Currency, m.PresentValueOnCurve(p, dsc)), nil
}

// PresentValueOnCurve discounts on an explicit curve, e.g. an issuer curve
func (PaymentFixedMethod) PresentValueOnCurve(p *instrument.PaymentFixed, dsc curve.Curve) float64 {
	return p.Amount * dsc.DiscountFactor(p.PaymentTime)
}

// PresentValueCurveSensitivity returns the single point (t, -t·DF·amount)
func (m PaymentFixedMethod) PresentValueCurveSensitivity(p *instrument.PaymentFixed, bundle *market.Bundle) (sensitivity.Sensitivity, error) {
	if err := checkInputs("fixed payment", p == nil, bundle); err != nil {
		return sensitivity.Sensitivity{}, err
	}
	dsc, err := bundle.DiscountCurve(p.Currency)
	if err != nil {
		return sensitivity.Sensitivity{}, err
	}
	return m.SensitivityOnCurve(p, dsc), nil
}

// SensitivityOnCurve is PresentValueCurveSensitivity on an explicit curve
func (PaymentFixedMethod) SensitivityOnCurve(p *instrument.PaymentFixed, dsc curve.Curve) sensitivity.Sensitivity {
	pay := readDF(dsc, p.PaymentTime)
	pay.Bar = p.Amount
	return yieldSensitivity(dsc, pay)
}

// CouponFixedMethod discounts a fixed coupon
type CouponFixedMethod struct{}

// PresentValue returns N·af·rate·DF(t)
func (m CouponFixedMethod) PresentValue(c *instrument.CouponFixed, bundle *market.Bundle) (models.CurrencyAmount, error) {
	if err := checkInputs("fixed coupon", c == nil, bundle); err != nil {
		return models.CurrencyAmount{}, err
	}
	dsc, err := bundle.DiscountCurve(c.Currency)
	if err != nil {
		return models.CurrencyAmount{}, err
	}
	return models.NewCurrencyAmount(c.Currency, m.PresentValueOnCurve(c, dsc)), nil
}

// PresentValueOnCurve discounts on an explicit curve
func (CouponFixedMethod) PresentValueOnCurve(c *instrument.CouponFixed, dsc curve.Curve) float64 {
	return c.Amount() * dsc.DiscountFactor(c.PaymentTime)
}

// PresentValueCurveSensitivity returns the sensitivity to the discounting curve
func (m CouponFixedMethod) PresentValueCurveSensitivity(c *instrument.CouponFixed, bundle *market.Bundle) (sensitivity.Sensitivity, error) {
	if err := checkInputs("fixed coupon", c == nil, bundle); err != nil {
		return sensitivity.Sensitivity{}, err
	}
	dsc, err := bundle.DiscountCurve(c.Currency)
	if err != nil {
		return sensitivity.Sensitivity{}, err
	}
	return m.SensitivityOnCurve(c, dsc), nil
}

// SensitivityOnCurve is PresentValueCurveSensitivity on an explicit curve
func (CouponFixedMethod) SensitivityOnCurve(c *instrument.CouponFixed, dsc curve.Curve) sensitivity.Sensitivity {
	pay := readDF(dsc, c.PaymentTime)
	pay.Bar = c.Amount()
	return yieldSensitivity(dsc, pay)
}

// iborSweep holds the forward sweep of any coupon paying a function of one ibor fixing
type iborSweep struct {
	dsc      curve.Curve
	fwdCurve curve.Curve
	pay      *dfRead
	forward  *forwardRead
}

func sweepIbor(base instrument.CouponBase, fixing instrument.IborFixing, bundle *market.Bundle) (*iborSweep, error) {
	dsc, err := bundle.DiscountCurve(base.Currency)
	if err != nil {
		return nil, err
	}
	fwdCurve, err := bundle.ForwardCurve(fixing.Index)
	if err != nil {
		return nil, err
	}
	return &iborSweep{
		dsc:      dsc,
		fwdCurve: fwdCurve,
		pay:      readDF(dsc, base.PaymentTime),
		forward:  readForward(fwdCurve, fixing.FixingPeriodStartTime, fixing.FixingPeriodEndTime, fixing.FixingAccrualFactor),
	}, nil
}

func (s *iborSweep) sensitivity() sensitivity.Sensitivity {
	return yieldSensitivity(s.dsc, s.pay).Plus(yieldSensitivity(s.fwdCurve, s.forward.reads()...))
}

// CouponIborMethod discounts the projected ibor coupon
type CouponIborMethod struct{}

// PresentValue returns DF(pay)·(N·af·F + N·af·spread)
func (CouponIborMethod) PresentValue(c *instrument.CouponIbor, bundle *market.Bundle) (models.CurrencyAmount, error) {
	if err := checkInputs("ibor coupon", c == nil, bundle); err != nil {
		return models.CurrencyAmount{}, err
	}
	s, err := sweepIbor(c.CouponBase, c.IborFixing, bundle)
	if err != nil {
		return models.CurrencyAmount{}, err
	}
	pv := s.pay.DF * (c.Notional*c.PaymentAccrualFactor*s.forward.Value + c.SpreadAmount())
	return models.NewCurrencyAmount(c.Currency, pv), nil
}

// PresentValueCurveSensitivity returns the merged discounting and forward curve sensitivity
func (CouponIborMethod) PresentValueCurveSensitivity(c *instrument.CouponIbor, bundle *market.Bundle) (sensitivity.Sensitivity, error) {
	if err := checkInputs("ibor coupon", c == nil, bundle); err != nil {
		return sensitivity.Sensitivity{}, err
	}
	s, err := sweepIbor(c.CouponBase, c.IborFixing, bundle)
	if err != nil {
		return sensitivity.Sensitivity{}, err
	}
	s.pay.Bar = c.Notional*c.PaymentAccrualFactor*s.forward.Value + c.SpreadAmount()
	s.forward.backward(s.pay.DF * c.Notional * c.PaymentAccrualFactor)
	return s.sensitivity(), nil
}

// CouponIborGearingMethod discounts a geared ibor coupon
type CouponIborGearingMethod struct{}

// PresentValue returns DF(pay)·N·af·(factor·F + spread)
func (CouponIborGearingMethod) PresentValue(c *instrument.CouponIborGearing, bundle *market.Bundle) (models.CurrencyAmount, error) {
	if err := checkInputs("geared ibor coupon", c == nil, bundle); err != nil {
		return models.CurrencyAmount{}, err
	}
	s, err := sweepIbor(c.CouponBase, c.IborFixing, bundle)
	if err != nil {
		return models.CurrencyAmount{}, err
	}
	pv := s.pay.DF * c.Notional * c.PaymentAccrualFactor * (c.Factor*s.forward.Value + c.Spread)
	return models.NewCurrencyAmount(c.Currency, pv), nil
}

// PresentValueCurveSensitivity returns the merged discounting and forward curve sensitivity
func (CouponIborGearingMethod) PresentValueCurveSensitivity(c *instrument.CouponIborGearing, bundle *market.Bundle) (sensitivity.Sensitivity, error) {
	if err := checkInputs("geared ibor coupon", c == nil, bundle); err != nil {
		return sensitivity.Sensitivity{}, err
	}
	s, err := sweepIbor(c.CouponBase, c.IborFixing, bundle)
	if err != nil {
		return sensitivity.Sensitivity{}, err
	}
	s.pay.Bar = c.Notional * c.PaymentAccrualFactor * (c.Factor*s.forward.Value + c.Spread)
	s.forward.backward(s.pay.DF * c.Notional * c.PaymentAccrualFactor * c.Factor)
	return s.sensitivity(), nil
}

// CouponOISMethod discounts the compounded overnight coupon
type CouponOISMethod struct{}

type oisSweep struct {
	dsc      curve.Curve
	fwdCurve curve.Curve
	pay      *dfRead
	start    *dfRead
	end      *dfRead
}

func (CouponOISMethod) sweep(c *instrument.CouponOIS, bundle *market.Bundle) (*oisSweep, error) {
	dsc, err := bundle.DiscountCurve(c.Currency)
	if err != nil {
		return nil, err
	}
	fwdCurve, err := bundle.ForwardCurve(c.Index)
	if err != nil {
		return nil, err
	}
	return &oisSweep{
		dsc:      dsc,
		fwdCurve: fwdCurve,
		pay:      readDF(dsc, c.PaymentTime),
		start:    readDF(fwdCurve, c.FixingPeriodStartTime),
		end:      readDF(fwdCurve, c.FixingPeriodEndTime),
	}, nil
}

// PresentValue returns (notionalAccrued·DF(start)/DF(end) - N)·DF(pay)
func (m CouponOISMethod) PresentValue(c *instrument.CouponOIS, bundle *market.Bundle) (models.CurrencyAmount, error) {
	if err := checkInputs("ois coupon", c == nil, bundle); err != nil {
		return models.CurrencyAmount{}, err
	}
	s, err := m.sweep(c, bundle)
	if err != nil {
		return models.CurrencyAmount{}, err
	}
	pv := (c.NotionalAccrued*s.start.DF/s.end.DF - c.Notional) * s.pay.DF
	return models.NewCurrencyAmount(c.Currency, pv), nil
}

// PresentValueCurveSensitivity returns the merged discounting and forward curve sensitivity
func (m CouponOISMethod) PresentValueCurveSensitivity(c *instrument.CouponOIS, bundle *market.Bundle) (sensitivity.Sensitivity, error) {
	if err := checkInputs("ois coupon", c == nil, bundle); err != nil {
		return sensitivity.Sensitivity{}, err
	}
	s, err := m.sweep(c, bundle)
	if err != nil {
		return sensitivity.Sensitivity{}, err
	}
	ratio := s.start.DF / s.end.DF
	s.pay.Bar = c.NotionalAccrued*ratio - c.Notional
	ratioBar := s.pay.DF * c.NotionalAccrued
	s.start.Bar = ratioBar / s.end.DF
	s.end.Bar = -ratioBar * ratio / s.end.DF
	return yieldSensitivity(s.dsc, s.pay).Plus(yieldSensitivity(s.fwdCurve, s.start, s.end)), nil
}

// ParRate returns the compounded overnight rate over the fixing period
func (CouponOISMethod) ParRate(c *instrument.CouponOIS, bundle *market.Bundle) (float64, error) {
	if err := checkInputs("ois coupon", c == nil, bundle); err != nil {
		return 0, err
	}
	return bundle.ForwardRate(c.Index, c.FixingPeriodStartTime, c.FixingPeriodEndTime, c.FixingAccrualFactor)
}

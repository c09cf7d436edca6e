package pricing

import (
	"github.com/rzzdr/quant-curve-engine/internal/curve"
	"github.com/rzzdr/quant-curve-engine/internal/instrument"
	"github.com/rzzdr/quant-curve-engine/internal/market"
	"github.com/rzzdr/quant-curve-engine/internal/sensitivity"
	"github.com/rzzdr/quant-curve-engine/pkg/models"
)

// CashMethod prices deposits on the currency's discounting curve
type CashMethod struct{}

func cashPV(c *instrument.Cash, dsc curve.Curve) (float64, *dfRead, *dfRead) {
	start := readDF(dsc, c.StartTime)
	end := readDF(dsc, c.EndTime)
	pv := -c.Notional*start.DF + c.Notional*(1+c.AccrualFactor*c.Rate)*end.DF
	return pv, start, end
}

// PresentValue returns -N·DF(start) + N·(1+af·rate)·DF(end)
func (CashMethod) PresentValue(c *instrument.Cash, bundle *market.Bundle) (models.CurrencyAmount, error) {
	if err := checkInputs("cash", c == nil, bundle); err != nil {
		return models.CurrencyAmount{}, err
	}
	dsc, err := bundle.DiscountCurve(c.Currency)
	if err != nil {
		return models.CurrencyAmount{}, err
	}
	pv, _, _ := cashPV(c, dsc)
	return models.NewCurrencyAmount(c.Currency, pv), nil
}

// PresentValueCurveSensitivity returns the sensitivity to the discounting curve
func (CashMethod) PresentValueCurveSensitivity(c *instrument.Cash, bundle *market.Bundle) (sensitivity.Sensitivity, error) {
	if err := checkInputs("cash", c == nil, bundle); err != nil {
		return sensitivity.Sensitivity{}, err
	}
	dsc, err := bundle.DiscountCurve(c.Currency)
	if err != nil {
		return sensitivity.Sensitivity{}, err
	}
	return cashSensitivity(c, dsc), nil
}

func cashSensitivity(c *instrument.Cash, dsc curve.Curve) sensitivity.Sensitivity {
	_, start, end := cashPV(c, dsc)
	start.Bar = -c.Notional
	end.Bar = c.Notional * (1 + c.AccrualFactor*c.Rate)
	return yieldSensitivity(dsc, start, end)
}

// ParRate returns the deposit rate with zero present value, (DF(start)/DF(end) - 1)/af
func (CashMethod) ParRate(c *instrument.Cash, bundle *market.Bundle) (float64, error) {
	if err := checkInputs("cash", c == nil, bundle); err != nil {
		return 0, err
	}
	dsc, err := bundle.DiscountCurve(c.Currency)
	if err != nil {
		return 0, err
	}
	return (dsc.DiscountFactor(c.StartTime)/dsc.DiscountFactor(c.EndTime) - 1) / c.AccrualFactor, nil
}

// DepositIborMethod prices ibor deposits on the index forward curve
type DepositIborMethod struct{}

// PresentValue applies the cash formula on the forward curve of the index
func (DepositIborMethod) PresentValue(d *instrument.DepositIbor, bundle *market.Bundle) (models.CurrencyAmount, error) {
	if err := checkInputs("ibor deposit", d == nil, bundle); err != nil {
		return models.CurrencyAmount{}, err
	}
	fwd, err := bundle.ForwardCurve(d.Index)
	if err != nil {
		return models.CurrencyAmount{}, err
	}
	pv, _, _ := cashPV(&d.Cash, fwd)
	return models.NewCurrencyAmount(d.Currency, pv), nil
}

// PresentValueCurveSensitivity returns the sensitivity to the forward curve
func (DepositIborMethod) PresentValueCurveSensitivity(d *instrument.DepositIbor, bundle *market.Bundle) (sensitivity.Sensitivity, error) {
	if err := checkInputs("ibor deposit", d == nil, bundle); err != nil {
		return sensitivity.Sensitivity{}, err
	}
	fwd, err := bundle.ForwardCurve(d.Index)
	if err != nil {
		return sensitivity.Sensitivity{}, err
	}
	return cashSensitivity(&d.Cash, fwd), nil
}

// ParRate returns the deposit rate implied by the forward curve
func (DepositIborMethod) ParRate(d *instrument.DepositIbor, bundle *market.Bundle) (float64, error) {
	if err := checkInputs("ibor deposit", d == nil, bundle); err != nil {
		return 0, err
	}
	return bundle.ForwardRate(d.Index, d.StartTime, d.EndTime, d.AccrualFactor)
}

// ForwardRateAgreementMethod discounts FRAs on the currency curve and projects on the index curve
type ForwardRateAgreementMethod struct{}

type fraReads struct {
	pay     *dfRead
	forward *forwardRead
	pv      float64
}

func (ForwardRateAgreementMethod) sweep(f *instrument.ForwardRateAgreement, bundle *market.Bundle) (fraReads, curve.Curve, curve.Curve, error) {
	dsc, err := bundle.DiscountCurve(f.Currency)
	if err != nil {
		return fraReads{}, nil, nil, err
	}
	fwdCurve, err := bundle.ForwardCurve(f.Index)
	if err != nil {
		return fraReads{}, nil, nil, err
	}
	pay := readDF(dsc, f.PaymentTime)
	fwd := readForward(fwdCurve, f.FixingPeriodStartTime, f.FixingPeriodEndTime, f.FixingAccrualFactor)
	af := f.PaymentAccrualFactor
	pv := pay.DF * af * f.Notional * (fwd.Value - f.Rate) / (1 + af*fwd.Value)
	return fraReads{pay: pay, forward: fwd, pv: pv}, dsc, fwdCurve, nil
}

// PresentValue returns DF(pay)·af·N·(F - K)/(1 + af·F)
func (m ForwardRateAgreementMethod) PresentValue(f *instrument.ForwardRateAgreement, bundle *market.Bundle) (models.CurrencyAmount, error) {
	if err := checkInputs("fra", f == nil, bundle); err != nil {
		return models.CurrencyAmount{}, err
	}
	r, _, _, err := m.sweep(f, bundle)
	if err != nil {
		return models.CurrencyAmount{}, err
	}
	return models.NewCurrencyAmount(f.Currency, r.pv), nil
}

// PresentValueCurveSensitivity returns the merged discounting and forward curve sensitivity
func (m ForwardRateAgreementMethod) PresentValueCurveSensitivity(f *instrument.ForwardRateAgreement, bundle *market.Bundle) (sensitivity.Sensitivity, error) {
	if err := checkInputs("fra", f == nil, bundle); err != nil {
		return sensitivity.Sensitivity{}, err
	}
	r, dsc, fwdCurve, err := m.sweep(f, bundle)
	if err != nil {
		return sensitivity.Sensitivity{}, err
	}
	af := f.PaymentAccrualFactor
	fwd := r.forward.Value
	denom := 1 + af*fwd
	r.pay.Bar = af * f.Notional * (fwd - f.Rate) / denom
	r.forward.backward(r.pay.DF * af * f.Notional * (1 + af*f.Rate) / (denom * denom))
	return yieldSensitivity(dsc, r.pay).Plus(yieldSensitivity(fwdCurve, r.forward.reads()...)), nil
}

// ParRate returns the forward rate of the fixing period
func (ForwardRateAgreementMethod) ParRate(f *instrument.ForwardRateAgreement, bundle *market.Bundle) (float64, error) {
	if err := checkInputs("fra", f == nil, bundle); err != nil {
		return 0, err
	}
	return bundle.ForwardRate(f.Index, f.FixingPeriodStartTime, f.FixingPeriodEndTime, f.FixingAccrualFactor)
}

// InterestRateFutureMethod values futures off the forward curve. Futures are
// margined daily so the price is not discounted.
type InterestRateFutureMethod struct{}

func (InterestRateFutureMethod) forward(f *instrument.InterestRateFuture, bundle *market.Bundle) (*forwardRead, curve.Curve, error) {
	fwdCurve, err := bundle.ForwardCurve(f.Index)
	if err != nil {
		return nil, nil, err
	}
	return readForward(fwdCurve, f.FixingPeriodStartTime, f.FixingPeriodEndTime, f.FixingAccrualFactor), fwdCurve, nil
}

// Price returns 1 - F
func (m InterestRateFutureMethod) Price(f *instrument.InterestRateFuture, bundle *market.Bundle) (float64, error) {
	if err := checkInputs("ir future", f == nil, bundle); err != nil {
		return 0, err
	}
	fwd, _, err := m.forward(f, bundle)
	if err != nil {
		return 0, err
	}
	return 1 - fwd.Value, nil
}

// PresentValue returns (price - reference price)·af·N·quantity
func (m InterestRateFutureMethod) PresentValue(f *instrument.InterestRateFuture, bundle *market.Bundle) (models.CurrencyAmount, error) {
	price, err := m.Price(f, bundle)
	if err != nil {
		return models.CurrencyAmount{}, err
	}
	pv := (price - f.ReferencePrice) * f.PaymentAccrualFactor * f.Notional * f.Quantity
	return models.NewCurrencyAmount(f.Currency, pv), nil
}

// PresentValueCurveSensitivity returns the sensitivity to the forward curve
func (m InterestRateFutureMethod) PresentValueCurveSensitivity(f *instrument.InterestRateFuture, bundle *market.Bundle) (sensitivity.Sensitivity, error) {
	if err := checkInputs("ir future", f == nil, bundle); err != nil {
		return sensitivity.Sensitivity{}, err
	}
	fwd, fwdCurve, err := m.forward(f, bundle)
	if err != nil {
		return sensitivity.Sensitivity{}, err
	}
	fwd.backward(-f.PaymentAccrualFactor * f.Notional * f.Quantity)
	return yieldSensitivity(fwdCurve, fwd.reads()...), nil
}

// ParRate returns the forward rate, i.e. 1 - price
func (m InterestRateFutureMethod) ParRate(f *instrument.InterestRateFuture, bundle *market.Bundle) (float64, error) {
	price, err := m.Price(f, bundle)
	if err != nil {
		return 0, err
	}
	return 1 - price, nil
}

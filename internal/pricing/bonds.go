package pricing

import (
	"github.com/rzzdr/quant-curve-engine/internal/instrument"
	"github.com/rzzdr/quant-curve-engine/internal/market"
	"github.com/rzzdr/quant-curve-engine/internal/sensitivity"
	"github.com/rzzdr/quant-curve-engine/pkg/models"
	"github.com/rzzdr/quant-curve-engine/pkg/utils/errors"
)

// BondFixedMethod discounts every bond flow on the issuer curve
type BondFixedMethod struct{}

// PresentValue returns the dirty value of coupons and nominal
func (BondFixedMethod) PresentValue(b *instrument.BondFixed, bundle *market.Bundle) (models.CurrencyAmount, error) {
	if err := checkInputs("fixed bond", b == nil, bundle); err != nil {
		return models.CurrencyAmount{}, err
	}
	issuer, err := bundle.IssuerCurve(b.IssuerName)
	if err != nil {
		return models.CurrencyAmount{}, errors.Wrapf(err, "pricing bond of %s", b.IssuerName)
	}
	pv := 0.0
	if b.Coupons != nil {
		for _, c := range b.Coupons.Coupons {
			pv += CouponFixedMethod{}.PresentValueOnCurve(c, issuer)
		}
	}
	for _, p := range b.Nominal {
		pv += PaymentFixedMethod{}.PresentValueOnCurve(p, issuer)
	}
	return models.NewCurrencyAmount(b.Currency, pv), nil
}

// PresentValueCurveSensitivity returns the sensitivity to the issuer curve
func (BondFixedMethod) PresentValueCurveSensitivity(b *instrument.BondFixed, bundle *market.Bundle) (sensitivity.Sensitivity, error) {
	if err := checkInputs("fixed bond", b == nil, bundle); err != nil {
		return sensitivity.Sensitivity{}, err
	}
	issuer, err := bundle.IssuerCurve(b.IssuerName)
	if err != nil {
		return sensitivity.Sensitivity{}, errors.Wrapf(err, "pricing bond of %s", b.IssuerName)
	}
	out := sensitivity.New()
	if b.Coupons != nil {
		for _, c := range b.Coupons.Coupons {
			out = out.Plus(CouponFixedMethod{}.SensitivityOnCurve(c, issuer))
		}
	}
	for _, p := range b.Nominal {
		out = out.Plus(PaymentFixedMethod{}.SensitivityOnCurve(p, issuer))
	}
	return out, nil
}

// CapitalIndexedBondMethod projects indexed flows on the price curve and discounts them
type CapitalIndexedBondMethod struct{}

// PresentValue returns the sum of DF(pay)·N·factor·I(ref)/I0
func (CapitalIndexedBondMethod) PresentValue(b *instrument.CapitalIndexedBond, bundle *market.Bundle) (models.CurrencyAmount, error) {
	if err := checkInputs("capital indexed bond", b == nil, bundle); err != nil {
		return models.CurrencyAmount{}, err
	}
	dsc, err := bundle.DiscountCurve(b.Currency)
	if err != nil {
		return models.CurrencyAmount{}, err
	}
	price, err := bundle.PriceIndexCurve(b.PriceIndex)
	if err != nil {
		return models.CurrencyAmount{}, err
	}
	pv := 0.0
	for _, f := range b.Flows {
		pv += dsc.DiscountFactor(f.PaymentTime) * f.Notional * f.Factor * price.IndexValue(f.ReferenceTime) / b.IndexStartValue
	}
	return models.NewCurrencyAmount(b.Currency, pv), nil
}

// PresentValueCurveSensitivity returns the discounting sensitivity in the yield
// part and dPV/dI(ref) in the price part
func (CapitalIndexedBondMethod) PresentValueCurveSensitivity(b *instrument.CapitalIndexedBond, bundle *market.Bundle) (sensitivity.Sensitivity, error) {
	if err := checkInputs("capital indexed bond", b == nil, bundle); err != nil {
		return sensitivity.Sensitivity{}, err
	}
	dsc, err := bundle.DiscountCurve(b.Currency)
	if err != nil {
		return sensitivity.Sensitivity{}, err
	}
	price, err := bundle.PriceIndexCurve(b.PriceIndex)
	if err != nil {
		return sensitivity.Sensitivity{}, err
	}
	reads := make([]*dfRead, 0, len(b.Flows))
	pricePoints := make([]sensitivity.Point, 0, len(b.Flows))
	for _, f := range b.Flows {
		pay := readDF(dsc, f.PaymentTime)
		scale := f.Notional * f.Factor / b.IndexStartValue
		pay.Bar = scale * price.IndexValue(f.ReferenceTime)
		reads = append(reads, pay)
		pricePoints = append(pricePoints, sensitivity.Point{Time: f.ReferenceTime, Value: pay.DF * scale})
	}
	return yieldSensitivity(dsc, reads...).Plus(sensitivity.OfPrice(price.Name(), pricePoints...)), nil
}

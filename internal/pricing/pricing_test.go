package pricing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzzdr/quant-curve-engine/internal/curve"
	"github.com/rzzdr/quant-curve-engine/internal/instrument"
	"github.com/rzzdr/quant-curve-engine/internal/market"
	"github.com/rzzdr/quant-curve-engine/internal/sensitivity"
	"github.com/rzzdr/quant-curve-engine/pkg/models"
	"github.com/rzzdr/quant-curve-engine/pkg/utils/errors"
)

const (
	notional  = 100_000_000.0
	bump      = 1e-6
	fdTol     = 1.0
	dscName   = "EUR-DSC"
	e3mName   = "EUR-E3M"
	estrName  = "EUR-ESTR"
	cpiName   = "EU-CPI"
	issuerKey = "ACME"
)

// upwardCurve puts a node at every given time with an upward sloping zero rate
func upwardCurve(t *testing.T, name string, times []float64, base float64) *curve.YieldCurve {
	t.Helper()
	rates := make([]float64, len(times))
	for i, tm := range times {
		rates[i] = base + 0.002*tm
	}
	c, err := curve.NewYieldCurve(name, times, rates, curve.DefaultInterpolator)
	require.NoError(t, err)
	return c
}

func buildBundle(t *testing.T, curves map[string]*curve.YieldCurve) *market.Bundle {
	t.Helper()
	b := market.NewBundle()
	if c, ok := curves[dscName]; ok {
		require.NoError(t, b.SetDiscountCurve(models.EUR, c))
	}
	if c, ok := curves[e3mName]; ok {
		require.NoError(t, b.SetForwardCurve(models.EURIBOR3M, c))
	}
	if c, ok := curves[estrName]; ok {
		require.NoError(t, b.SetForwardCurve(models.ESTR, c))
	}
	if c, ok := curves[issuerKey]; ok {
		require.NoError(t, b.SetIssuerCurve(issuerKey, c))
	}
	return b
}

// assertMatchesFiniteDifference bumps every node of every curve by ±bump and compares
// the centred difference of pv with the analytic sensitivity summed at that node time.
func assertMatchesFiniteDifference(t *testing.T, curves map[string]*curve.YieldCurve, pv func(*market.Bundle) float64, analytic sensitivity.Sensitivity) {
	t.Helper()
	clean := analytic.Clean()
	for name, c := range curves {
		for i, node := range c.NodeTimes() {
			up, err := c.Bumped(i, bump)
			require.NoError(t, err)
			down, err := c.Bumped(i, -bump)
			require.NoError(t, err)

			bumped := make(map[string]*curve.YieldCurve, len(curves))
			for k, v := range curves {
				bumped[k] = v
			}
			bumped[name] = up
			pvUp := pv(buildBundle(t, bumped))
			bumped[name] = down
			pvDown := pv(buildBundle(t, bumped))
			fd := (pvUp - pvDown) / (2 * bump)

			got := 0.0
			for _, p := range clean.Yield[name] {
				if p.Time == node {
					got += p.Value
				}
			}
			assert.InDeltaf(t, fd, got, fdTol, "curve %s node %g", name, node)
		}
	}
}

func TestCashConcreteScenario(t *testing.T) {
	b := market.NewBundle()
	require.NoError(t, b.SetDiscountCurve(models.EUR, curve.NewFlatYieldCurve(dscName, 0.04)))

	n, rate, af := notional, 0.0225, 1.0
	cash, err := instrument.NewCash(models.EUR, 0, 1, n, rate, af)
	require.NoError(t, err)

	pv, err := CashMethod{}.PresentValue(cash, b)
	require.NoError(t, err)
	want := -n*math.Exp(-0.04*0) + n*(1+af*rate)*math.Exp(-0.04*1)
	assert.Equal(t, models.EUR, pv.Currency)
	assert.Equal(t, want, pv.Amount)
}

func TestCashSensitivityMatchesFiniteDifference(t *testing.T) {
	curves := map[string]*curve.YieldCurve{dscName: upwardCurve(t, dscName, []float64{0.5, 1.5}, 0.02)}
	cash, err := instrument.NewCash(models.EUR, 0.5, 1.5, notional, 0.03, 1)
	require.NoError(t, err)

	sens, err := CashMethod{}.PresentValueCurveSensitivity(cash, buildBundle(t, curves))
	require.NoError(t, err)
	assertMatchesFiniteDifference(t, curves, func(b *market.Bundle) float64 {
		pv, err := CashMethod{}.PresentValue(cash, b)
		require.NoError(t, err)
		return pv.Amount
	}, sens)
}

func TestFRASensitivityMatchesFiniteDifference(t *testing.T) {
	curves := map[string]*curve.YieldCurve{
		dscName: upwardCurve(t, dscName, []float64{0.5}, 0.02),
		e3mName: upwardCurve(t, e3mName, []float64{0.5, 0.75}, 0.025),
	}
	fra, err := instrument.NewForwardRateAgreement(
		instrument.CouponBase{PaymentBase: instrument.PaymentBase{Currency: models.EUR, PaymentTime: 0.5}, PaymentAccrualFactor: 0.25, Notional: notional},
		instrument.IborFixing{Index: models.EURIBOR3M, FixingTime: 0.5, FixingPeriodStartTime: 0.5, FixingPeriodEndTime: 0.75, FixingAccrualFactor: 0.25},
		0.02,
	)
	require.NoError(t, err)

	b := buildBundle(t, curves)
	sens, err := ForwardRateAgreementMethod{}.PresentValueCurveSensitivity(fra, b)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{dscName, e3mName}, sens.CurveNames())
	assertMatchesFiniteDifference(t, curves, func(b *market.Bundle) float64 {
		pv, err := ForwardRateAgreementMethod{}.PresentValue(fra, b)
		require.NoError(t, err)
		return pv.Amount
	}, sens)

	fwd, err := ForwardRateAgreementMethod{}.ParRate(fra, b)
	require.NoError(t, err)
	atPar := *fra
	atPar.Rate = fwd
	pv, err := ForwardRateAgreementMethod{}.PresentValue(&atPar, b)
	require.NoError(t, err)
	assert.InDelta(t, 0, pv.Amount, 1e-6)
}

func TestCouponIborSensitivityMatchesFiniteDifference(t *testing.T) {
	curves := map[string]*curve.YieldCurve{
		dscName: upwardCurve(t, dscName, []float64{1.25}, 0.02),
		e3mName: upwardCurve(t, e3mName, []float64{1, 1.25}, 0.025),
	}
	coupon, err := instrument.NewCouponIbor(
		instrument.IborFixing{Index: models.EURIBOR3M, FixingTime: 1, FixingPeriodStartTime: 1, FixingPeriodEndTime: 1.25, FixingAccrualFactor: 0.25},
		1.25, 0.25, notional, 0.001,
	)
	require.NoError(t, err)

	sens, err := CouponIborMethod{}.PresentValueCurveSensitivity(coupon, buildBundle(t, curves))
	require.NoError(t, err)
	assertMatchesFiniteDifference(t, curves, func(b *market.Bundle) float64 {
		pv, err := CouponIborMethod{}.PresentValue(coupon, b)
		require.NoError(t, err)
		return pv.Amount
	}, sens)
}

func TestCouponIborGearingReducesToIborCoupon(t *testing.T) {
	curves := map[string]*curve.YieldCurve{
		dscName: upwardCurve(t, dscName, []float64{1.25}, 0.02),
		e3mName: upwardCurve(t, e3mName, []float64{1, 1.25}, 0.025),
	}
	b := buildBundle(t, curves)
	fixing := instrument.IborFixing{Index: models.EURIBOR3M, FixingTime: 1, FixingPeriodStartTime: 1, FixingPeriodEndTime: 1.25, FixingAccrualFactor: 0.25}

	plain, err := instrument.NewCouponIbor(fixing, 1.25, 0.25, notional, 0.002)
	require.NoError(t, err)
	geared, err := instrument.NewCouponIborGearing(fixing, 1.25, 0.25, notional, 1, 0.002)
	require.NoError(t, err)

	pvPlain, err := CouponIborMethod{}.PresentValue(plain, b)
	require.NoError(t, err)
	pvGeared, err := CouponIborGearingMethod{}.PresentValue(geared, b)
	require.NoError(t, err)
	assert.InDelta(t, pvPlain.Amount, pvGeared.Amount, 1e-6)

	sPlain, err := CouponIborMethod{}.PresentValueCurveSensitivity(plain, b)
	require.NoError(t, err)
	sGeared, err := CouponIborGearingMethod{}.PresentValueCurveSensitivity(geared, b)
	require.NoError(t, err)
	assert.True(t, sPlain.Equal(sGeared, 1e-6))

	twice := *geared
	twice.Factor = 2
	twice.Spread = 0
	sTwice, err := CouponIborGearingMethod{}.PresentValueCurveSensitivity(&twice, b)
	require.NoError(t, err)
	assertMatchesFiniteDifference(t, curves, func(b *market.Bundle) float64 {
		pv, err := CouponIborGearingMethod{}.PresentValue(&twice, b)
		require.NoError(t, err)
		return pv.Amount
	}, sTwice)
}

func TestCouponOISSensitivityMatchesFiniteDifference(t *testing.T) {
	curves := map[string]*curve.YieldCurve{
		dscName:  upwardCurve(t, dscName, []float64{1.01}, 0.02),
		estrName: upwardCurve(t, estrName, []float64{0.5, 1}, 0.018),
	}
	coupon := instrument.NewCouponOIS(models.ESTR, 1.01, 0.5, notional, 0.5, 1, 0.5)
	coupon.NotionalAccrued = notional * 1.0001

	sens, err := CouponOISMethod{}.PresentValueCurveSensitivity(coupon, buildBundle(t, curves))
	require.NoError(t, err)
	assertMatchesFiniteDifference(t, curves, func(b *market.Bundle) float64 {
		pv, err := CouponOISMethod{}.PresentValue(coupon, b)
		require.NoError(t, err)
		return pv.Amount
	}, sens)
}

func TestInterestRateFutureSensitivityMatchesFiniteDifference(t *testing.T) {
	curves := map[string]*curve.YieldCurve{e3mName: upwardCurve(t, e3mName, []float64{1, 1.25}, 0.025)}
	fut, err := instrument.NewInterestRateFuture("ERH7",
		instrument.IborFixing{Index: models.EURIBOR3M, FixingTime: 1, FixingPeriodStartTime: 1, FixingPeriodEndTime: 1.25, FixingAccrualFactor: 0.25},
		0.97, 0.25, 1_000_000, 100,
	)
	require.NoError(t, err)

	b := buildBundle(t, curves)
	sens, err := InterestRateFutureMethod{}.PresentValueCurveSensitivity(fut, b)
	require.NoError(t, err)
	assert.Equal(t, []string{e3mName}, sens.CurveNames(), "futures are not discounted")
	assertMatchesFiniteDifference(t, curves, func(b *market.Bundle) float64 {
		pv, err := InterestRateFutureMethod{}.PresentValue(fut, b)
		require.NoError(t, err)
		return pv.Amount
	}, sens)

	price, err := InterestRateFutureMethod{}.Price(fut, b)
	require.NoError(t, err)
	fwd, err := b.ForwardRate(models.EURIBOR3M, 1, 1.25, 0.25)
	require.NoError(t, err)
	assert.InDelta(t, 1-fwd, price, 1e-15)
}

func TestBondFixedOnIssuerCurve(t *testing.T) {
	curves := map[string]*curve.YieldCurve{issuerKey: upwardCurve(t, issuerKey, []float64{1, 2}, 0.05)}
	bond, err := instrument.NewBondFixed(issuerKey, models.EUR, notional, 0.04, []float64{0, 1, 2})
	require.NoError(t, err)

	b := buildBundle(t, curves)
	pv, err := BondFixedMethod{}.PresentValue(bond, b)
	require.NoError(t, err)
	c := curves[issuerKey]
	want := notional*0.04*c.DiscountFactor(1) + notional*1.04*c.DiscountFactor(2)
	assert.InDelta(t, want, pv.Amount, 1e-6)

	sens, err := BondFixedMethod{}.PresentValueCurveSensitivity(bond, b)
	require.NoError(t, err)
	assertMatchesFiniteDifference(t, curves, func(b *market.Bundle) float64 {
		pv, err := BondFixedMethod{}.PresentValue(bond, b)
		require.NoError(t, err)
		return pv.Amount
	}, sens)

	_, err = BondFixedMethod{}.PresentValue(bond, market.NewBundle())
	assert.True(t, errors.Is(err, errors.ErrMissingCurve))
}

func TestCapitalIndexedBondPriceSensitivity(t *testing.T) {
	b := market.NewBundle()
	require.NoError(t, b.SetDiscountCurve(models.EUR, curve.NewFlatYieldCurve(dscName, 0.02)))
	price, err := curve.NewPriceIndexCurve(cpiName, []float64{0.75, 1.75}, []float64{102, 104}, curve.DefaultInterpolator)
	require.NoError(t, err)
	require.NoError(t, b.SetPriceIndexCurve(models.EUHICPX, price))

	linker, err := instrument.NewCapitalIndexedBond(models.EUHICPX, 100, notional, 0.01, 0.25, []float64{0, 1, 2})
	require.NoError(t, err)
	sens, err := CapitalIndexedBondMethod{}.PresentValueCurveSensitivity(linker, b)
	require.NoError(t, err)
	clean := sens.Clean().Price[cpiName]
	require.Len(t, clean, 2)

	for i := range price.NodeTimes() {
		const shift = 1e-3
		up, err := price.Bumped(i, shift)
		require.NoError(t, err)
		down, err := price.Bumped(i, -shift)
		require.NoError(t, err)

		bu := b.Duplicate()
		require.NoError(t, bu.ReplacePriceIndexCurve(models.EUHICPX, up))
		bd := b.Duplicate()
		require.NoError(t, bd.ReplacePriceIndexCurve(models.EUHICPX, down))
		pvUp, err := CapitalIndexedBondMethod{}.PresentValue(linker, bu)
		require.NoError(t, err)
		pvDown, err := CapitalIndexedBondMethod{}.PresentValue(linker, bd)
		require.NoError(t, err)
		assert.InDelta(t, (pvUp.Amount-pvDown.Amount)/(2*shift), clean[i].Value, 1e-3)
	}
}

func TestForexCurrencyDirectionInvariance(t *testing.T) {
	b := market.NewBundle()
	require.NoError(t, b.SetDiscountCurve(models.EUR, curve.NewFlatYieldCurve(dscName, 0.02)))
	require.NoError(t, b.SetDiscountCurve(models.USD, curve.NewFlatYieldCurve("USD-DSC", 0.045)))

	const rate = 1.2
	fx, err := instrument.NewForex(models.EUR, models.USD, 1.5, notional, rate)
	require.NoError(t, err)
	rev, err := instrument.NewForex(models.USD, models.EUR, 1.5, -notional*rate, 1/rate)
	require.NoError(t, err)

	pv, err := ForexMethod{}.PresentValue(fx, b)
	require.NoError(t, err)
	pvRev, err := ForexMethod{}.PresentValue(rev, b)
	require.NoError(t, err)
	for _, ccy := range []models.Currency{models.EUR, models.USD} {
		assert.InDelta(t, pv.Amount(ccy), pvRev.Amount(ccy), 1e-2)
	}

	sens, err := ForexMethod{}.PresentValueCurveSensitivity(fx, b)
	require.NoError(t, err)
	assert.Equal(t, []models.Currency{models.EUR, models.USD}, sens.Currencies())
	eur := sens.Sensitivity(models.EUR).Yield[dscName]
	require.Len(t, eur, 1)
	assert.InDelta(t, -1.5*notional*math.Exp(-0.02*1.5), eur[0].Value, 1e-6)

	swap, err := instrument.NewForexSwap(models.EUR, models.USD, 0.5, 1.5, notional, rate, 0.01)
	require.NoError(t, err)
	pvSwap, err := ForexSwapMethod{}.PresentValue(swap, b)
	require.NoError(t, err)
	near, _ := ForexMethod{}.PresentValue(swap.NearLeg, b)
	far, _ := ForexMethod{}.PresentValue(swap.FarLeg, b)
	assert.InDelta(t, near.Amount(models.USD)+far.Amount(models.USD), pvSwap.Amount(models.USD), 1e-6)
}

func TestMethodsFailFast(t *testing.T) {
	b := market.NewBundle()
	cash, err := instrument.NewCash(models.EUR, 0, 1, notional, 0.01, 1)
	require.NoError(t, err)

	_, err = CashMethod{}.PresentValue(nil, b)
	assert.True(t, errors.Is(err, errors.ErrInvalidArgument))
	_, err = CashMethod{}.PresentValue(cash, nil)
	assert.True(t, errors.Is(err, errors.ErrInvalidArgument))
	_, err = CashMethod{}.PresentValue(cash, b)
	assert.True(t, errors.Is(err, errors.ErrMissingCurve))
	_, err = CouponOISMethod{}.PresentValueCurveSensitivity(nil, b)
	assert.True(t, errors.Is(err, errors.ErrInvalidArgument))
}

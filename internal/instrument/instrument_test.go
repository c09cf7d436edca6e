package instrument

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzzdr/quant-curve-engine/pkg/models"
	"github.com/rzzdr/quant-curve-engine/pkg/utils/errors"
)

func e3mFixing(start, end float64) IborFixing {
	return IborFixing{
		Index:                 models.EURIBOR3M,
		FixingTime:            start,
		FixingPeriodStartTime: start,
		FixingPeriodEndTime:   end,
		FixingAccrualFactor:   end - start,
	}
}

func allVariants(t *testing.T) map[Kind]Derivative {
	t.Helper()
	cash, err := NewCash(models.EUR, 0, 1, 1e6, 0.02, 1)
	require.NoError(t, err)
	dep, err := NewDepositIbor(models.EURIBOR3M, 0, 0.25, 1e6, 0.02, 0.25)
	require.NoError(t, err)
	fra, err := NewForwardRateAgreement(CouponBase{PaymentBase{models.EUR, 0.5}, 0.25, 1e6}, e3mFixing(0.5, 0.75), 0.02)
	require.NoError(t, err)
	fut, err := NewInterestRateFuture("ERZ6", e3mFixing(1, 1.25), 0.98, 0.25, 1e6, 10)
	require.NoError(t, err)
	ibor, err := NewCouponIbor(e3mFixing(0, 0.25), 0.25, 0.25, 1e6, 0)
	require.NoError(t, err)
	gearing, err := NewCouponIborGearing(e3mFixing(0, 0.25), 0.25, 0.25, 1e6, 2, 0.001)
	require.NoError(t, err)
	fixedLeg, err := FixedLeg(models.EUR, 1e6, 0.02, []float64{0, 1, 2})
	require.NoError(t, err)
	iborLeg, err := IborLeg(models.EURIBOR3M, -1e6, 0, []float64{0, 0.5, 1})
	require.NoError(t, err)
	swap, err := NewSwap(iborLeg, iborLeg)
	require.NoError(t, err)
	fcs, err := NewFixedIborSwap(models.EURIBOR3M, 1e6, 0.02, []float64{0, 1}, []float64{0, 0.5, 1}, true)
	require.NoError(t, err)
	fx, err := NewForex(models.EUR, models.USD, 0.5, 1e6, 1.1)
	require.NoError(t, err)
	fxSwap, err := NewForexSwap(models.EUR, models.USD, 0, 1, 1e6, 1.1, 0.01)
	require.NoError(t, err)
	bond, err := NewBondFixed("ACME", models.EUR, 1e6, 0.04, []float64{0, 1, 2})
	require.NoError(t, err)
	linker, err := NewCapitalIndexedBond(models.EUHICPX, 100, 1e6, 0.01, 0.25, []float64{0, 1, 2})
	require.NoError(t, err)

	return map[Kind]Derivative{
		KindCash:                 cash,
		KindDepositIbor:          dep,
		KindForwardRateAgreement: fra,
		KindInterestRateFuture:   fut,
		KindPaymentFixed:         NewPaymentFixed(models.EUR, 1, 100),
		KindCouponFixed:          NewCouponFixed(models.EUR, 1, 1, 1e6, 0.02),
		KindCouponIbor:           ibor,
		KindCouponIborGearing:    gearing,
		KindCouponOIS:            NewCouponOIS(models.ESTR, 1, 1, 1e6, 0, 1, 1),
		KindAnnuity:              iborLeg,
		KindFixedAnnuity:         fixedLeg,
		KindSwap:                 swap,
		KindFixedCouponSwap:      fcs,
		KindForex:                fx,
		KindForexSwap:            fxSwap,
		KindBondFixed:            bond,
		KindCapitalIndexedBond:   linker,
	}
}

func TestDispatchRoutesEveryVariant(t *testing.T) {
	for want, d := range allVariants(t) {
		assert.Equal(t, want, KindOf(d))
	}
}

func TestDispatchRejectsNil(t *testing.T) {
	_, err := Dispatch[struct{}, Kind](nil, struct{}{}, kindVisitor{})
	assert.True(t, errors.Is(err, errors.ErrInvalidArgument))

	var cash *Cash
	_, err = Dispatch[struct{}, Kind](cash, struct{}{}, kindVisitor{})
	assert.True(t, errors.Is(err, errors.ErrInvalidArgument))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestConstructorsValidate(t *testing.T) {
	_, err := NewCash(models.EUR, 1, 1, 1, 0.01, 1)
	assert.Error(t, err)
	_, err = NewCash(models.EUR, 0, 1, 1, 0.01, 0)
	assert.Error(t, err)
	_, err = NewCouponIbor(e3mFixing(1, 0.5), 1, 0.5, 1, 0)
	assert.Error(t, err)
	_, err = NewForex(models.EUR, models.EUR, 1, 1, 1)
	assert.Error(t, err)
	_, err = FixedLeg(models.EUR, 1, 0.01, []float64{1})
	assert.Error(t, err)
	_, err = NewAnnuity(NewPaymentFixed(models.EUR, 1, 1), NewPaymentFixed(models.USD, 2, 1))
	assert.True(t, errors.Is(err, errors.ErrInvalidArgument))
	_, err = NewBondFixed("", models.EUR, 1, 0.01, []float64{0, 1})
	assert.Error(t, err)
}

func TestLegBuilders(t *testing.T) {
	fixed, err := FixedLeg(models.USD, 100, 0.03, []float64{0, 0.5, 1.5})
	require.NoError(t, err)
	require.Len(t, fixed.Coupons, 2)
	assert.Equal(t, 1.5, fixed.Coupons[1].PaymentTime)
	assert.Equal(t, 1.0, fixed.Coupons[1].PaymentAccrualFactor)
	assert.InDelta(t, 3, fixed.Coupons[1].Amount(), 1e-12)

	unit := fixed.WithUnitCoupon()
	assert.Equal(t, 1.0, unit.Coupons[0].FixedRate)
	assert.Equal(t, 0.03, fixed.Coupons[0].FixedRate, "original keeps its rate")

	swap, err := NewFixedOISSwap(models.SOFR, 100, 0.04, []float64{0, 1, 2}, true)
	require.NoError(t, err)
	assert.Equal(t, -100.0, swap.FixedLeg.Coupons[0].Notional)
	ois := swap.SecondLeg.Payments[1].(*CouponOIS)
	assert.Equal(t, 100.0, ois.Notional)
	assert.Equal(t, 1.0, ois.FixingPeriodStartTime)
	assert.Equal(t, models.USD, swap.SecondLeg.Currency())
}

func TestForexReversed(t *testing.T) {
	fx, err := NewForex(models.EUR, models.USD, 1, 100, 1.25)
	require.NoError(t, err)
	rev, err := NewForex(models.USD, models.EUR, 1, -125, 0.8)
	require.NoError(t, err)

	assert.Equal(t, fx.PaymentCurrency2.Amount, rev.PaymentCurrency1.Amount)
	assert.InDelta(t, fx.PaymentCurrency1.Amount, rev.PaymentCurrency2.Amount, 1e-12)
	assert.Equal(t, fx.PaymentCurrency2, fx.Reversed().PaymentCurrency1)
}

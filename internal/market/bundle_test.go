package market

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzzdr/quant-curve-engine/internal/curve"
	"github.com/rzzdr/quant-curve-engine/pkg/models"
	"github.com/rzzdr/quant-curve-engine/pkg/utils/errors"
)

func testBundle(t *testing.T) *Bundle {
	t.Helper()
	b := NewBundle()
	require.NoError(t, b.SetDiscountCurve(models.EUR, curve.NewFlatYieldCurve("EUR-DSC", 0.02)))
	require.NoError(t, b.SetForwardCurve(models.EURIBOR3M, curve.NewFlatYieldCurve("EUR-E3M", 0.03)))
	return b
}

func TestDiscountFactorAndForwardRate(t *testing.T) {
	b := testBundle(t)

	df, err := b.DiscountFactor(models.EUR, 2)
	require.NoError(t, err)
	assert.InDelta(t, math.Exp(-0.04), df, 1e-15)

	fwd, err := b.ForwardRate(models.EURIBOR3M, 1, 1.25, 0.25)
	require.NoError(t, err)
	want := (math.Exp(-0.03*1)/math.Exp(-0.03*1.25) - 1) / 0.25
	assert.InDelta(t, want, fwd, 1e-14)

	_, err = b.ForwardRate(models.EURIBOR3M, 1, 1.25, 0)
	assert.True(t, errors.Is(err, errors.ErrInvalidArgument))
}

func TestMissingCurves(t *testing.T) {
	b := testBundle(t)

	_, err := b.DiscountFactor(models.USD, 1)
	assert.True(t, errors.Is(err, errors.ErrMissingCurve))
	_, err = b.ForwardCurve(models.EURIBOR6M)
	assert.True(t, errors.Is(err, errors.ErrMissingCurve))
	_, err = b.PriceIndexCurve(models.EUHICPX)
	assert.True(t, errors.Is(err, errors.ErrMissingCurve))
	_, err = b.IssuerCurve("ACME")
	assert.True(t, errors.Is(err, errors.ErrMissingCurve))
	_, err = b.CurveByName("nope")
	assert.True(t, errors.Is(err, errors.ErrMissingCurve))
}

func TestSetAndReplace(t *testing.T) {
	b := testBundle(t)

	err := b.SetDiscountCurve(models.EUR, curve.NewFlatYieldCurve("EUR-DSC-2", 0.01))
	assert.True(t, errors.Is(err, errors.ErrInvalidArgument), "set on an existing key")

	err = b.ReplaceDiscountCurve(models.USD, curve.NewFlatYieldCurve("USD-DSC", 0.01))
	assert.True(t, errors.Is(err, errors.ErrMissingCurve), "replace on an absent key")

	require.NoError(t, b.ReplaceDiscountCurve(models.EUR, curve.NewFlatYieldCurve("EUR-DSC-2", 0.01)))
	c, err := b.DiscountCurve(models.EUR)
	require.NoError(t, err)
	assert.Equal(t, "EUR-DSC-2", c.Name())

	require.NoError(t, b.SetIssuerCurve("ACME", curve.NewFlatYieldCurve("ACME-EUR", 0.05)))
	c, err = b.CurveByName("ACME-EUR")
	require.NoError(t, err)
	assert.Equal(t, 0.05, c.InterestRate(1))
}

func TestDuplicateSharesCurvesButNotMaps(t *testing.T) {
	b := testBundle(t)
	dup := b.Duplicate()

	orig, _ := b.DiscountCurve(models.EUR)
	shared, _ := dup.DiscountCurve(models.EUR)
	assert.Same(t, orig, shared)

	require.NoError(t, dup.ReplaceDiscountCurve(models.EUR, curve.NewFlatYieldCurve("BUMPED", 0.03)))
	require.NoError(t, dup.SetDiscountCurve(models.USD, curve.NewFlatYieldCurve("USD-DSC", 0.04)))

	c, _ := b.DiscountCurve(models.EUR)
	assert.Equal(t, "EUR-DSC", c.Name())
	assert.Equal(t, []models.Currency{models.EUR}, b.Currencies())
	assert.Equal(t, []models.Currency{models.EUR, models.USD}, dup.Currencies())
}

func TestCurveNames(t *testing.T) {
	b := testBundle(t)
	pc, err := curve.NewPriceIndexCurve("EU-CPI", []float64{1, 2}, []float64{101, 103}, curve.DefaultInterpolator)
	require.NoError(t, err)
	require.NoError(t, b.SetPriceIndexCurve(models.EUHICPX, pc))
	// OIS discounting on the forward curve of the overnight index
	dsc, _ := b.DiscountCurve(models.EUR)
	require.NoError(t, b.SetForwardCurve(models.ESTR, dsc))

	assert.Equal(t, []string{"EU-CPI", "EUR-DSC", "EUR-E3M"}, b.CurveNames())
	assert.True(t, b.HasCurve("EU-CPI"))
	assert.True(t, b.HasCurve("EUR-E3M"))
	assert.False(t, b.HasCurve("USD-DSC"))
	_, err = b.CurveByName("EU-CPI")
	assert.True(t, errors.IsType(err, errors.ErrorTypeMissingCurve), "price curves are not yield curves")
	assert.Equal(t, []models.RateIndex{models.ESTR, models.EURIBOR3M}, b.RateIndices())
}

func TestFXMatrix(t *testing.T) {
	fx := NewFXMatrix()
	require.NoError(t, fx.SetRate(models.EUR, models.USD, 1.25))
	require.NoError(t, fx.SetRate(models.GBP, models.EUR, 1.15))

	r, err := fx.Rate(models.EUR, models.USD)
	require.NoError(t, err)
	assert.InDelta(t, 1.25, r, 1e-12)
	r, err = fx.Rate(models.USD, models.EUR)
	require.NoError(t, err)
	assert.InDelta(t, 0.8, r, 1e-12)
	r, err = fx.Rate(models.GBP, models.USD)
	require.NoError(t, err)
	assert.InDelta(t, 1.15*1.25, r, 1e-12)

	_, err = fx.Rate(models.JPY, models.USD)
	assert.True(t, errors.Is(err, errors.ErrMissingCurve))
	assert.Error(t, fx.SetRate(models.JPY, models.KRW, 9))
	assert.Error(t, fx.SetRate(models.EUR, models.USD, -1))

	mca := models.NewMultipleCurrencyAmount(
		models.NewCurrencyAmount(models.EUR, 100),
		models.NewCurrencyAmount(models.USD, 50),
	)
	total, err := fx.Convert(mca, models.USD)
	require.NoError(t, err)
	assert.Equal(t, models.USD, total.Currency)
	assert.InDelta(t, 175, total.Amount, 1e-9)
}

package market

import (
	"math"
	"sort"

	"github.com/rzzdr/quant-curve-engine/pkg/models"
	"github.com/rzzdr/quant-curve-engine/pkg/utils/errors"
)

// FXMatrix holds spot FX rates as the value of one unit of each currency in a
// common base currency (the first currency added).
type FXMatrix struct {
	base   models.Currency
	values map[models.Currency]float64
}

// NewFXMatrix creates an empty FX matrix
func NewFXMatrix() *FXMatrix {
	return &FXMatrix{values: make(map[models.Currency]float64)}
}

// Duplicate returns an independent copy
func (m *FXMatrix) Duplicate() *FXMatrix {
	out := &FXMatrix{base: m.base, values: make(map[models.Currency]float64, len(m.values))}
	for k, v := range m.values {
		out.values[k] = v
	}
	return out
}

// SetRate records that one unit of ccy1 is worth rate units of ccy2. One of the two
// currencies must already be known unless the matrix is empty.
func (m *FXMatrix) SetRate(ccy1, ccy2 models.Currency, rate float64) error {
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return errors.InvalidArgumentf("fx rate %s/%s must be positive and finite, got %g", ccy1, ccy2, rate)
	}
	if ccy1 == ccy2 {
		return errors.InvalidArgumentf("fx rate needs two distinct currencies, got %s twice", ccy1)
	}

	if len(m.values) == 0 {
		m.base = ccy1
		m.values[ccy1] = 1
		m.values[ccy2] = 1 / rate
		return nil
	}

	v1, ok1 := m.values[ccy1]
	v2, ok2 := m.values[ccy2]
	switch {
	case ok1 && ok2:
		// re-anchor whichever side is not the base
		if ccy1 == m.base {
			m.values[ccy2] = v1 / rate
		} else {
			m.values[ccy1] = v2 * rate
		}
	case ok1:
		m.values[ccy2] = v1 / rate
	case ok2:
		m.values[ccy1] = v2 * rate
	default:
		return errors.InvalidArgumentf("fx rate %s/%s is not linked to any currency in the matrix", ccy1, ccy2)
	}
	return nil
}

// Rate returns the number of ccy2 units worth one ccy1 unit
func (m *FXMatrix) Rate(ccy1, ccy2 models.Currency) (float64, error) {
	if ccy1 == ccy2 {
		return 1, nil
	}
	v1, ok1 := m.values[ccy1]
	v2, ok2 := m.values[ccy2]
	if !ok1 || !ok2 {
		return 0, errors.MissingCurve("no fx rate for " + ccy1.String() + "/" + ccy2.String())
	}
	return v1 / v2, nil
}

// Convert sums a multi-currency amount into one currency
func (m *FXMatrix) Convert(mca models.MultipleCurrencyAmount, ccy models.Currency) (models.CurrencyAmount, error) {
	total := 0.0
	for _, a := range mca.Amounts() {
		rate, err := m.Rate(a.Currency, ccy)
		if err != nil {
			return models.CurrencyAmount{}, err
		}
		total += a.Amount * rate
	}
	return models.NewCurrencyAmount(ccy, total), nil
}

// Currencies returns the known currencies, sorted
func (m *FXMatrix) Currencies() []models.Currency {
	out := make([]models.Currency, 0, len(m.values))
	for ccy := range m.values {
		out = append(out, ccy)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

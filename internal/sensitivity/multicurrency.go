package sensitivity

import (
	"github.com/rzzdr/quant-curve-engine/pkg/models"
)

// RateSource supplies spot FX rates: units of ccy2 worth one unit of ccy1
type RateSource interface {
	Rate(ccy1, ccy2 models.Currency) (float64, error)
}

// CurrencySensitivity is the sensitivity of the part of a present value paid in one currency
type CurrencySensitivity struct {
	Currency    models.Currency `json:"currency"`
	Sensitivity Sensitivity     `json:"sensitivity"`
}

// MultiCurrency holds one Sensitivity per currency in first-insertion order
type MultiCurrency struct {
	entries []CurrencySensitivity
}

// NewMultiCurrency returns an empty multi-currency sensitivity
func NewMultiCurrency() MultiCurrency {
	return MultiCurrency{}
}

// Of returns a multi-currency sensitivity with a single currency
func Of(ccy models.Currency, s Sensitivity) MultiCurrency {
	return MultiCurrency{entries: []CurrencySensitivity{{Currency: ccy, Sensitivity: s}}}
}

// PlusCurrency adds a sensitivity under the given currency
func (m MultiCurrency) PlusCurrency(ccy models.Currency, s Sensitivity) MultiCurrency {
	out := make([]CurrencySensitivity, len(m.entries), len(m.entries)+1)
	copy(out, m.entries)
	for i := range out {
		if out[i].Currency == ccy {
			out[i].Sensitivity = out[i].Sensitivity.Plus(s)
			return MultiCurrency{entries: out}
		}
	}
	return MultiCurrency{entries: append(out, CurrencySensitivity{Currency: ccy, Sensitivity: s})}
}

// Plus adds every currency of other
func (m MultiCurrency) Plus(other MultiCurrency) MultiCurrency {
	out := m
	for _, e := range other.entries {
		out = out.PlusCurrency(e.Currency, e.Sensitivity)
	}
	return out
}

// MultipliedBy scales every currency
func (m MultiCurrency) MultipliedBy(factor float64) MultiCurrency {
	out := make([]CurrencySensitivity, len(m.entries))
	for i, e := range m.entries {
		out[i] = CurrencySensitivity{Currency: e.Currency, Sensitivity: e.Sensitivity.MultipliedBy(factor)}
	}
	return MultiCurrency{entries: out}
}

// Clean cleans every currency's sensitivity
func (m MultiCurrency) Clean() MultiCurrency {
	out := make([]CurrencySensitivity, len(m.entries))
	for i, e := range m.entries {
		out[i] = CurrencySensitivity{Currency: e.Currency, Sensitivity: e.Sensitivity.Clean()}
	}
	return MultiCurrency{entries: out}
}

// Sensitivity returns the sensitivity in one currency, empty when absent
func (m MultiCurrency) Sensitivity(ccy models.Currency) Sensitivity {
	for _, e := range m.entries {
		if e.Currency == ccy {
			return e.Sensitivity
		}
	}
	return New()
}

// Currencies returns the currencies in insertion order
func (m MultiCurrency) Currencies() []models.Currency {
	out := make([]models.Currency, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.Currency
	}
	return out
}

// Entries returns a copy of the per-currency entries
func (m MultiCurrency) Entries() []CurrencySensitivity {
	return append([]CurrencySensitivity(nil), m.entries...)
}

// Converted expresses every currency's sensitivity in ccy at spot FX
func (m MultiCurrency) Converted(ccy models.Currency, fx RateSource) (Sensitivity, error) {
	out := New()
	for _, e := range m.entries {
		rate, err := fx.Rate(e.Currency, ccy)
		if err != nil {
			return Sensitivity{}, err
		}
		out = out.Plus(e.Sensitivity.MultipliedBy(rate))
	}
	return out, nil
}

// Equal compares currency by currency, ignoring order
func (m MultiCurrency) Equal(other MultiCurrency, tol float64) bool {
	for _, e := range m.entries {
		if !e.Sensitivity.Equal(other.Sensitivity(e.Currency), tol) {
			return false
		}
	}
	for _, e := range other.entries {
		if !e.Sensitivity.Equal(m.Sensitivity(e.Currency), tol) {
			return false
		}
	}
	return true
}

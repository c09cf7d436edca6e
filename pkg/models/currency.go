package models

import (
	"fmt"
	"strings"
)

// Currency is an ISO 4217 currency code
type Currency string

// Common currencies
const (
	EUR Currency = "EUR"
	USD Currency = "USD"
	GBP Currency = "GBP"
	JPY Currency = "JPY"
	KRW Currency = "KRW"
)

// ParseCurrency normalises a currency code
func ParseCurrency(code string) (Currency, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 3 {
		return "", fmt.Errorf("invalid currency code %q", code)
	}
	return Currency(code), nil
}

// String returns the currency code
func (c Currency) String() string {
	return string(c)
}

// CurrencyAmount is an amount in a single currency
type CurrencyAmount struct {
	Currency Currency `json:"currency"`
	Amount   float64  `json:"amount"`
}

// NewCurrencyAmount creates a CurrencyAmount
func NewCurrencyAmount(ccy Currency, amount float64) CurrencyAmount {
	return CurrencyAmount{Currency: ccy, Amount: amount}
}

// MultipleCurrencyAmount holds at most one amount per currency, in first-insertion order
type MultipleCurrencyAmount struct {
	amounts []CurrencyAmount
}

// NewMultipleCurrencyAmount creates a MultipleCurrencyAmount from the given amounts
func NewMultipleCurrencyAmount(amounts ...CurrencyAmount) MultipleCurrencyAmount {
	var mca MultipleCurrencyAmount
	for _, a := range amounts {
		mca = mca.PlusAmount(a)
	}
	return mca
}

// PlusAmount returns a new value with the amount added to its currency
func (m MultipleCurrencyAmount) PlusAmount(a CurrencyAmount) MultipleCurrencyAmount {
	out := make([]CurrencyAmount, len(m.amounts), len(m.amounts)+1)
	copy(out, m.amounts)
	for i := range out {
		if out[i].Currency == a.Currency {
			out[i].Amount += a.Amount
			return MultipleCurrencyAmount{amounts: out}
		}
	}
	return MultipleCurrencyAmount{amounts: append(out, a)}
}

// Plus returns the currency-wise sum of both values
func (m MultipleCurrencyAmount) Plus(other MultipleCurrencyAmount) MultipleCurrencyAmount {
	out := m
	for _, a := range other.amounts {
		out = out.PlusAmount(a)
	}
	return out
}

// MultipliedBy scales every amount
func (m MultipleCurrencyAmount) MultipliedBy(factor float64) MultipleCurrencyAmount {
	out := make([]CurrencyAmount, len(m.amounts))
	for i, a := range m.amounts {
		out[i] = CurrencyAmount{Currency: a.Currency, Amount: a.Amount * factor}
	}
	return MultipleCurrencyAmount{amounts: out}
}

// Amount returns the amount in the currency, zero when absent
func (m MultipleCurrencyAmount) Amount(ccy Currency) float64 {
	for _, a := range m.amounts {
		if a.Currency == ccy {
			return a.Amount
		}
	}
	return 0
}

// Contains reports whether the currency has an entry
func (m MultipleCurrencyAmount) Contains(ccy Currency) bool {
	for _, a := range m.amounts {
		if a.Currency == ccy {
			return true
		}
	}
	return false
}

// Currencies returns the currencies in insertion order
func (m MultipleCurrencyAmount) Currencies() []Currency {
	out := make([]Currency, len(m.amounts))
	for i, a := range m.amounts {
		out[i] = a.Currency
	}
	return out
}

// Amounts returns a copy of the entries in insertion order
func (m MultipleCurrencyAmount) Amounts() []CurrencyAmount {
	out := make([]CurrencyAmount, len(m.amounts))
	copy(out, m.amounts)
	return out
}

// Size returns the number of currencies
func (m MultipleCurrencyAmount) Size() int {
	return len(m.amounts)
}

// String formats the amounts as "EUR 1.00, USD -2.00"
func (m MultipleCurrencyAmount) String() string {
	parts := make([]string, len(m.amounts))
	for i, a := range m.amounts {
		parts[i] = fmt.Sprintf("%s %.2f", a.Currency, a.Amount)
	}
	return strings.Join(parts, ", ")
}

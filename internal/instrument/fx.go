package instrument

import (
	"github.com/rzzdr/quant-curve-engine/pkg/models"
	"github.com/rzzdr/quant-curve-engine/pkg/utils/errors"
)

// Forex exchanges two fixed amounts in different currencies at the same time
type Forex struct {
	PaymentCurrency1 *PaymentFixed
	PaymentCurrency2 *PaymentFixed
}

// NewForex creates a spot or forward exchange of amount1 of ccy1 against
// -amount1·rate of ccy2, rate being ccy2 per ccy1
func NewForex(ccy1, ccy2 models.Currency, t, amount1, rate float64) (*Forex, error) {
	if ccy1 == ccy2 {
		return nil, errors.InvalidArgumentf("forex needs two currencies, got %s twice", ccy1)
	}
	if rate <= 0 {
		return nil, errors.InvalidArgumentf("forex rate must be positive, got %g", rate)
	}
	return &Forex{
		PaymentCurrency1: NewPaymentFixed(ccy1, t, amount1),
		PaymentCurrency2: NewPaymentFixed(ccy2, t, -amount1*rate),
	}, nil
}

// Reversed returns the same exchange with the currencies swapped
func (f *Forex) Reversed() *Forex {
	return &Forex{PaymentCurrency1: f.PaymentCurrency2, PaymentCurrency2: f.PaymentCurrency1}
}

// ForexSwap is a near exchange unwound by an opposite far exchange
type ForexSwap struct {
	NearLeg *Forex
	FarLeg  *Forex
}

// NewForexSwap creates an FX swap; the far leg trades at spot plus forward points
func NewForexSwap(ccy1, ccy2 models.Currency, nearTime, farTime, amount1, spot, forwardPoints float64) (*ForexSwap, error) {
	if farTime <= nearTime {
		return nil, errors.InvalidArgumentf("forex swap far time %g must be after near time %g", farTime, nearTime)
	}
	near, err := NewForex(ccy1, ccy2, nearTime, amount1, spot)
	if err != nil {
		return nil, errors.Wrap(err, "near leg")
	}
	far, err := NewForex(ccy1, ccy2, farTime, -amount1, spot+forwardPoints)
	if err != nil {
		return nil, errors.Wrap(err, "far leg")
	}
	return &ForexSwap{NearLeg: near, FarLeg: far}, nil
}

// Package pricing has one stateless method per instrument variant. Each method
// returns a present value and its analytic curve sensitivity, computed by a
// backward sweep over the discount factors and forward rates the price reads.
package pricing

import (
	"github.com/rzzdr/quant-curve-engine/internal/market"
	"github.com/rzzdr/quant-curve-engine/pkg/utils/errors"
)

// checkInputs fails fast on a nil instrument or market
func checkInputs(kind string, instIsNil bool, bundle *market.Bundle) error {
	if instIsNil {
		return errors.InvalidArgumentf("nil %s", kind)
	}
	if bundle == nil {
		return errors.InvalidArgumentf("nil market bundle pricing %s", kind)
	}
	return nil
}

package request

import (
	"time"

	"github.com/rzzdr/quant-curve-engine/internal/calculator"
	"github.com/rzzdr/quant-curve-engine/internal/instrument"
	"github.com/rzzdr/quant-curve-engine/internal/market"
	"github.com/rzzdr/quant-curve-engine/pkg/metrics"
	"github.com/rzzdr/quant-curve-engine/pkg/models"
	"github.com/rzzdr/quant-curve-engine/pkg/utils/errors"
)

// Price values every instrument of the request on the bundle. Instruments
// without a par rate are reported without one; any other failure fails the
// whole request.
func Price(req *PriceRequest, bundle *market.Bundle) (*PriceResponse, error) {
	if req == nil || bundle == nil {
		return nil, errors.InvalidArgument("price request and market are required")
	}
	insts, err := BuildAll(req.Instruments)
	if err != nil {
		return nil, err
	}
	var report *models.Currency
	if req.Currency != "" {
		ccy, err := models.ParseCurrency(req.Currency)
		if err != nil {
			return nil, errors.InvalidArgument(err.Error())
		}
		report = &ccy
	}

	resp := &PriceResponse{Values: make([]InstrumentValue, len(insts))}
	for i, inst := range insts {
		start := time.Now()
		v, err := value(req.Instruments[i].Type, inst, bundle, report)
		metrics.RecordPricing(req.Instruments[i].Type, err, time.Since(start))
		if err != nil {
			return nil, errors.Wrapf(err, "instrument %d (%s)", i, req.Instruments[i].Type)
		}
		resp.Values[i] = *v
	}
	return resp, nil
}

func value(typ string, d instrument.Derivative, bundle *market.Bundle, report *models.Currency) (*InstrumentValue, error) {
	pv, err := calculator.PresentValue(d, bundle)
	if err != nil {
		return nil, err
	}
	out := &InstrumentValue{Type: typ, PresentValue: pv.Amounts()}

	if report != nil {
		converted, err := calculator.PresentValueInCurrency(d, bundle, *report)
		if err != nil {
			return nil, err
		}
		out.Converted = &converted
	}

	rate, err := calculator.ParRate(d, bundle)
	switch {
	case err == nil:
		out.ParRate = &rate
	case !errors.IsType(err, errors.ErrorTypeTypeMismatch):
		return nil, err
	}

	sens, err := calculator.PresentValueCurveSensitivity(d, bundle)
	if err != nil {
		return nil, err
	}
	out.PV01 = []CurvePV01{}
	for _, entry := range sens.Clean().Entries() {
		for _, c := range calculator.PV01(entry.Sensitivity) {
			out.PV01 = append(out.PV01, CurvePV01{Currency: entry.Currency.String(), Curve: c.Curve, PV01: c.PV01})
		}
	}
	return out, nil
}

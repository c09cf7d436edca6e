package request

import (
	"bytes"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rzzdr/quant-curve-engine/internal/calibration"
	"github.com/rzzdr/quant-curve-engine/internal/curve"
	"github.com/rzzdr/quant-curve-engine/internal/instrument"
	"github.com/rzzdr/quant-curve-engine/pkg/models"
	"github.com/rzzdr/quant-curve-engine/pkg/utils/errors"
)

// GroupSpec is a curve group in a calibration document. Empty NodeTimes are
// taken from the maturities of the instruments assigned to the group.
type GroupSpec struct {
	Name         string    `json:"name" yaml:"name"`
	Kind         string    `json:"kind,omitempty" yaml:"kind,omitempty"`
	Interpolator string    `json:"interpolator,omitempty" yaml:"interpolator,omitempty"`
	NodeTimes    []float64 `json:"node_times,omitempty" yaml:"node_times,omitempty"`
	Currencies   []string  `json:"currencies,omitempty" yaml:"currencies,omitempty"`
	RateIndices  []string  `json:"rate_indices,omitempty" yaml:"rate_indices,omitempty"`
	PriceIndices []string  `json:"price_indices,omitempty" yaml:"price_indices,omitempty"`
	Issuers      []string  `json:"issuers,omitempty" yaml:"issuers,omitempty"`
}

// StageSpec is one calibration in a chain
type StageSpec struct {
	Name        string           `json:"name" yaml:"name"`
	Mode        string           `json:"mode,omitempty" yaml:"mode,omitempty"`
	Groups      []GroupSpec      `json:"groups" yaml:"groups"`
	Instruments []InstrumentSpec `json:"instruments" yaml:"instruments"`
	Guess       []float64        `json:"guess,omitempty" yaml:"guess,omitempty"`
}

// CalibrationRequest calibrates stages in order on top of an optional known market
type CalibrationRequest struct {
	Name   string      `json:"name" yaml:"name"`
	Known  *MarketSpec `json:"known,omitempty" yaml:"known,omitempty"`
	Stages []StageSpec `json:"stages" yaml:"stages"`
}

// PriceRequest values instruments on a market
type PriceRequest struct {
	// Snapshot names a stored calibration; Market is used when it is empty
	Snapshot    string           `json:"snapshot,omitempty" yaml:"snapshot,omitempty"`
	Market      *MarketSpec      `json:"market,omitempty" yaml:"market,omitempty"`
	Currency    string           `json:"currency,omitempty" yaml:"currency,omitempty"`
	Instruments []InstrumentSpec `json:"instruments" yaml:"instruments"`
}

// CalibrationResponse reports the calibrated curves of a request
type CalibrationResponse struct {
	Name         string     `json:"name" yaml:"name"`
	Market       MarketSpec `json:"market" yaml:"market"`
	Steps        []int      `json:"steps" yaml:"steps"`
	ResidualNorm []float64  `json:"residual_norm" yaml:"residual_norm"`
	DurationMs   float64    `json:"duration_ms" yaml:"duration_ms"`
	CalibratedAt time.Time  `json:"calibrated_at" yaml:"calibrated_at"`
}

// InstrumentValue is the valuation of one instrument
type InstrumentValue struct {
	Type         string                  `json:"type" yaml:"type"`
	PresentValue []models.CurrencyAmount `json:"present_value" yaml:"present_value"`
	Converted    *models.CurrencyAmount  `json:"converted,omitempty" yaml:"converted,omitempty"`
	ParRate      *float64                `json:"par_rate,omitempty" yaml:"par_rate,omitempty"`
	PV01         []CurvePV01             `json:"pv01" yaml:"pv01"`
}

// CurvePV01 is the value of a one basis point move of a curve
type CurvePV01 struct {
	Currency string  `json:"currency" yaml:"currency"`
	Curve    string  `json:"curve" yaml:"curve"`
	PV01     float64 `json:"pv01" yaml:"pv01"`
}

// PriceResponse is the valuation of a price request, in instrument order
type PriceResponse struct {
	Values []InstrumentValue `json:"values" yaml:"values"`
}

// ParseCalibrationRequest decodes a YAML or JSON calibration document
func ParseCalibrationRequest(data []byte) (*CalibrationRequest, error) {
	var req CalibrationRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	if len(req.Stages) == 0 {
		return nil, errors.InvalidArgument("calibration request has no stages")
	}
	return &req, nil
}

// ParsePriceRequest decodes a YAML or JSON pricing document
func ParsePriceRequest(data []byte) (*PriceRequest, error) {
	var req PriceRequest
	if err := decode(data, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// decode reads YAML, which also covers JSON documents. Unknown fields are rejected.
func decode(data []byte, v interface{}) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(errors.InvalidArgument(err.Error()), "decoding request")
	}
	return nil
}

// BuildStages builds the calibration stages of the request
func (r *CalibrationRequest) BuildStages() ([]calibration.Stage, error) {
	stages := make([]calibration.Stage, len(r.Stages))
	for i, spec := range r.Stages {
		st, err := spec.build()
		if err != nil {
			return nil, errors.Wrapf(err, "stage %d %s", i, spec.Name)
		}
		stages[i] = st
	}
	return stages, nil
}

func (s StageSpec) build() (calibration.Stage, error) {
	insts, err := BuildAll(s.Instruments)
	if err != nil {
		return calibration.Stage{}, err
	}
	targets := make([]float64, len(s.Instruments))
	for i, spec := range s.Instruments {
		targets[i] = spec.Target
	}

	groups := make([]calibration.CurveGroup, len(s.Groups))
	for gi, g := range s.Groups {
		cg, err := g.build()
		if err != nil {
			return calibration.Stage{}, errors.Wrapf(err, "group %s", g.Name)
		}
		if len(cg.NodeTimes) == 0 {
			if cg.NodeTimes, err = s.nodeTimes(g.Name, insts); err != nil {
				return calibration.Stage{}, errors.Wrapf(err, "group %s", g.Name)
			}
		}
		groups[gi] = cg
	}

	return calibration.Stage{
		Name:        s.Name,
		Instruments: insts,
		Targets:     targets,
		Groups:      groups,
		Mode:        calibration.ResidualMode(s.Mode),
		Guess:       s.Guess,
	}, nil
}

// nodeTimes takes the instruments assigned to a group, or all of them when the
// stage has a single group
func (s StageSpec) nodeTimes(group string, insts []instrument.Derivative) ([]float64, error) {
	if len(s.Groups) == 1 {
		return calibration.NodeTimesFromInstruments(insts...)
	}
	var assigned []instrument.Derivative
	for i, spec := range s.Instruments {
		if spec.Group == group {
			assigned = append(assigned, insts[i])
		}
	}
	if len(assigned) == 0 {
		return nil, errors.InvalidArgument("no node times and no instruments assigned")
	}
	return calibration.NodeTimesFromInstruments(assigned...)
}

func (g GroupSpec) build() (calibration.CurveGroup, error) {
	ip, err := curve.ParseInterpolator(g.Interpolator)
	if err != nil {
		return calibration.CurveGroup{}, err
	}
	cg := calibration.CurveGroup{
		Name:         g.Name,
		Kind:         curve.Kind(g.Kind),
		NodeTimes:    g.NodeTimes,
		Interpolator: ip,
		Issuers:      g.Issuers,
	}
	if cg.Currencies, err = parseCurrencies(g.Currencies); err != nil {
		return cg, err
	}
	if cg.RateIndices, err = parseRateIndices(g.RateIndices); err != nil {
		return cg, err
	}
	if cg.PriceIndices, err = parsePriceIndices(g.PriceIndices); err != nil {
		return cg, err
	}
	return cg, nil
}

func parseCurrencies(codes []string) ([]models.Currency, error) {
	out := make([]models.Currency, 0, len(codes))
	for _, code := range codes {
		ccy, err := models.ParseCurrency(code)
		if err != nil {
			return nil, errors.InvalidArgument(err.Error())
		}
		out = append(out, ccy)
	}
	return out, nil
}

func parseRateIndices(names []string) ([]models.RateIndex, error) {
	out := make([]models.RateIndex, 0, len(names))
	for _, name := range names {
		idx, err := models.LookupRateIndex(name)
		if err != nil {
			return nil, errors.InvalidArgument(err.Error())
		}
		out = append(out, idx)
	}
	return out, nil
}

func parsePriceIndices(names []string) ([]models.PriceIndex, error) {
	out := make([]models.PriceIndex, 0, len(names))
	for _, name := range names {
		idx, err := models.LookupPriceIndex(name)
		if err != nil {
			return nil, errors.InvalidArgument(err.Error())
		}
		out = append(out, idx)
	}
	return out, nil
}

// NewCalibrationResponse collects the calibrated curves of every stage
func NewCalibrationResponse(name string, stages []calibration.Stage, results []*calibration.Result) (*CalibrationResponse, error) {
	if len(stages) != len(results) || len(results) == 0 {
		return nil, errors.InvalidArgumentf("%d stages for %d results", len(stages), len(results))
	}
	resp := &CalibrationResponse{
		Name:         name,
		Steps:        make([]int, len(results)),
		ResidualNorm: make([]float64, len(results)),
		CalibratedAt: time.Now().UTC(),
	}
	var elapsed time.Duration
	for i, res := range results {
		resp.Steps[i] = res.Steps
		resp.ResidualNorm[i] = res.ResidualNorm
		elapsed += res.Duration
	}
	resp.DurationMs = float64(elapsed.Microseconds()) / 1000

	market, err := ExportMarket(results[len(results)-1].Market)
	if err != nil {
		return nil, err
	}
	resp.Market = *market
	return resp, nil
}

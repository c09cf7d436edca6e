package calibration

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rzzdr/quant-curve-engine/internal/instrument"
	"github.com/rzzdr/quant-curve-engine/internal/market"
	"github.com/rzzdr/quant-curve-engine/internal/rootfinding"
	"github.com/rzzdr/quant-curve-engine/pkg/metrics"
	"github.com/rzzdr/quant-curve-engine/pkg/utils/errors"
	"github.com/rzzdr/quant-curve-engine/pkg/utils/logger"
)

// State is the lifecycle of one calibration run
type State int

const (
	StateSetup State = iota
	StateIterating
	StateConverged
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateSetup:
		return "setup"
	case StateIterating:
		return "iterating"
	case StateConverged:
		return "converged"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// EngineConfig contains configuration for the calibration engine
type EngineConfig struct {
	// AbsoluteTolerance is the residual norm accepted as converged
	AbsoluteTolerance float64
	// RelativeTolerance stops the solver once a Newton step is this small relative to the nodes
	RelativeTolerance float64
	MaxSteps          int
	// WorkerCount above one reprices instruments in parallel
	WorkerCount int
	// Source labels metrics, e.g. api or processor
	Source string
}

// DefaultEngineConfig returns the standard settings: 1e-8 residual tolerance and
// 100 root finder steps.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		AbsoluteTolerance: 1e-8,
		RelativeTolerance: 1e-12,
		MaxSteps:          100,
		WorkerCount:       1,
		Source:            "engine",
	}
}

// Engine calibrates curve groups against instruments
type Engine struct {
	config   EngineConfig
	recorder metrics.Recorder
	log      *logger.Logger
}

// Result is a converged calibration
type Result struct {
	Market       *market.Bundle
	NodeValues   []float64
	Residuals    []float64
	ResidualNorm float64
	Steps        int
	// StoppedOnStep marks a run the solver ended on a negligible Newton step
	// while the residual norm was still above the absolute tolerance
	StoppedOnStep bool
	State         State
	Duration      time.Duration
}

// NewEngine creates a calibration engine; zero config values take the defaults
func NewEngine(config EngineConfig, recorder metrics.Recorder) *Engine {
	defaults := DefaultEngineConfig()
	if config.AbsoluteTolerance <= 0 {
		config.AbsoluteTolerance = defaults.AbsoluteTolerance
	}
	if config.RelativeTolerance <= 0 {
		config.RelativeTolerance = defaults.RelativeTolerance
	}
	if config.MaxSteps <= 0 {
		config.MaxSteps = defaults.MaxSteps
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = defaults.WorkerCount
	}
	if config.Source == "" {
		config.Source = defaults.Source
	}
	if recorder == nil {
		recorder = metrics.NopRecorder{}
	}
	return &Engine{
		config:   config,
		recorder: recorder,
		log:      logger.GetLogger("calibration.engine"),
	}
}

// Config returns the effective configuration
func (e *Engine) Config() EngineConfig { return e.config }

type run struct {
	engine *Engine
	data   *DataBundle
	state  State
	start  time.Time
	log    *logger.Logger
}

func (r *run) transition(to State) {
	r.log.Debugw("calibration state", "from", r.state.String(), "to", to.String())
	r.state = to
}

func (r *run) fail(err error, steps int) error {
	r.transition(StateFailed)
	elapsed := time.Since(r.start)
	r.engine.recorder.RecordCalibration(r.engine.config.Source, StateFailed.String(), steps, 0, elapsed)
	r.log.Warnw("calibration failed", "error", err, "duration", elapsed)
	return err
}

// Calibrate solves for the node values of every group. Guess may be nil for the
// default start. The run either converges and returns a complete market, or fails
// with no market at all.
func (e *Engine) Calibrate(ctx context.Context, data *DataBundle, guess []float64) (*Result, error) {
	if data == nil {
		return nil, errors.InvalidArgument("nil calibration data")
	}
	r := &run{
		engine: e,
		data:   data,
		state:  StateSetup,
		start:  time.Now(),
		log:    e.log.With("groups", len(data.groups), "instruments", data.Size()),
	}

	if guess == nil {
		guess = data.InitialGuess()
	}
	if len(guess) != data.Size() {
		return nil, r.fail(errors.InvalidArgumentf("initial guess has %d values for %d nodes", len(guess), data.Size()), 0)
	}

	r.transition(StateIterating)
	solver := rootfinding.NewBroyden(e.config.AbsoluteTolerance, e.config.RelativeTolerance, e.config.MaxSteps)
	sol, err := solver.Solve(ctx, func(x []float64) ([]float64, error) {
		return r.residuals(ctx, x)
	}, guess)
	if err != nil {
		steps := 0
		if sol != nil {
			steps = sol.Steps
		}
		return nil, r.fail(err, steps)
	}

	m, err := data.Market(sol.X)
	if err != nil {
		return nil, r.fail(errors.Wrap(err, "building calibrated market"), sol.Steps)
	}

	r.transition(StateConverged)
	res := &Result{
		Market:        m,
		NodeValues:    sol.X,
		Residuals:     sol.Residual,
		ResidualNorm:  sol.ResidualNorm,
		Steps:         sol.Steps,
		StoppedOnStep: sol.StoppedOnStep,
		State:         StateConverged,
		Duration:      time.Since(r.start),
	}
	e.recorder.RecordCalibration(e.config.Source, StateConverged.String(), res.Steps, res.ResidualNorm, res.Duration)
	if res.StoppedOnStep {
		r.log.Warnw("calibration stopped on a negligible step above the residual tolerance",
			"residual", res.ResidualNorm, "tolerance", e.config.AbsoluteTolerance)
	}
	r.log.Infow("calibration converged", "steps", res.Steps, "residual", res.ResidualNorm, "duration", res.Duration)
	return res, nil
}

// residuals reprices every instrument on the trial market built from x. The
// result is in instrument order whatever the worker count.
func (r *run) residuals(ctx context.Context, x []float64) ([]float64, error) {
	m, err := r.data.Market(x)
	if err != nil {
		return nil, err
	}
	out := make([]float64, r.data.Size())

	if r.engine.config.WorkerCount <= 1 {
		for i := range out {
			if out[i], err = r.data.residual(i, m); err != nil {
				return nil, err
			}
		}
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.engine.config.WorkerCount)
	for i := range out {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			v, err := r.data.residual(i, m)
			if err != nil {
				return err
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Stage is one step of a chained calibration
type Stage struct {
	Name        string
	Instruments []instrument.Derivative
	Targets     []float64
	Groups      []CurveGroup
	Mode        ResidualMode
	// Guess may be nil
	Guess []float64
}

// CalibrateChain runs stages in order, each on top of the market the previous
// one produced, e.g. a discount curve first and then a forward curve projected
// off it. Known may be nil. The last result's market holds every curve.
func (e *Engine) CalibrateChain(ctx context.Context, known *market.Bundle, stages ...Stage) ([]*Result, error) {
	if len(stages) == 0 {
		return nil, errors.InvalidArgument("no calibration stages")
	}
	results := make([]*Result, 0, len(stages))
	for i, st := range stages {
		data, err := NewDataBundle(st.Instruments, st.Targets, st.Groups, known, st.Mode)
		if err != nil {
			return nil, errors.Wrapf(err, "stage %d %s", i, st.Name)
		}
		res, err := e.Calibrate(ctx, data, st.Guess)
		if err != nil {
			return nil, errors.Wrapf(err, "stage %d %s", i, st.Name)
		}
		e.log.Debugw("stage calibrated", "stage", st.Name, "curves", res.Market.CurveNames())
		results = append(results, res)
		known = res.Market
	}
	return results, nil
}

// Package service ties calibration, pricing and the snapshot store together
// for the delivery layers (HTTP, kafka, command line).
package service

import (
	"context"

	"github.com/rzzdr/quant-curve-engine/internal/calibration"
	"github.com/rzzdr/quant-curve-engine/internal/market"
	"github.com/rzzdr/quant-curve-engine/internal/request"
	"github.com/rzzdr/quant-curve-engine/internal/store"
	"github.com/rzzdr/quant-curve-engine/pkg/utils/errors"
	"github.com/rzzdr/quant-curve-engine/pkg/utils/logger"
)

// Notifier is told about snapshot changes
type Notifier interface {
	PublishSnapshot(snap *store.Snapshot)
	PublishDeleted(name string)
}

// CurveService calibrates requests into stored snapshots and prices against them
type CurveService struct {
	engine    *calibration.Engine
	snapshots store.SnapshotStore
	notifiers []Notifier
	log       *logger.Logger
}

// New creates a curve service
func New(engine *calibration.Engine, snapshots store.SnapshotStore, notifiers ...Notifier) *CurveService {
	return &CurveService{
		engine:    engine,
		snapshots: snapshots,
		notifiers: notifiers,
		log:       logger.GetLogger("service.curves"),
	}
}

// Calibrate runs every stage of the request and saves the final market under
// the request name
func (s *CurveService) Calibrate(ctx context.Context, req *request.CalibrationRequest) (*store.Snapshot, error) {
	if req == nil {
		return nil, errors.InvalidArgument("calibration request is required")
	}
	if req.Name == "" {
		return nil, errors.InvalidArgument("calibration request needs a name")
	}

	known, err := req.Known.Build()
	if err != nil {
		return nil, errors.Wrap(err, "known market")
	}
	stages, err := req.BuildStages()
	if err != nil {
		return nil, err
	}

	results, err := s.engine.CalibrateChain(ctx, known, stages...)
	if err != nil {
		return nil, errors.Wrapf(err, "calibrating %s", req.Name)
	}
	resp, err := request.NewCalibrationResponse(req.Name, stages, results)
	if err != nil {
		return nil, err
	}

	snap, err := s.snapshots.Save(req.Name, results[len(results)-1].Market, resp)
	if err != nil {
		return nil, err
	}
	for _, n := range s.notifiers {
		n.PublishSnapshot(snap)
	}

	s.log.Infow("Calibration stored",
		"name", snap.Name,
		"version", snap.Version,
		"stages", len(stages),
		"duration_ms", resp.DurationMs,
	)
	return snap, nil
}

// Price values the request instruments on a stored snapshot or an inline market
func (s *CurveService) Price(ctx context.Context, req *request.PriceRequest) (*request.PriceResponse, error) {
	if req == nil {
		return nil, errors.InvalidArgument("price request is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var bundle *market.Bundle
	switch {
	case req.Snapshot != "" && req.Market != nil:
		return nil, errors.InvalidArgument("give either a snapshot or a market, not both")
	case req.Snapshot != "":
		snap, err := s.snapshots.Get(req.Snapshot)
		if err != nil {
			return nil, err
		}
		bundle = snap.Market
	case req.Market != nil:
		b, err := req.Market.Build()
		if err != nil {
			return nil, errors.Wrap(err, "market")
		}
		bundle = b
	default:
		return nil, errors.InvalidArgument("price request needs a snapshot or a market")
	}
	return request.Price(req, bundle)
}

// Snapshot returns the latest snapshot of a name
func (s *CurveService) Snapshot(name string) (*store.Snapshot, error) {
	return s.snapshots.Get(name)
}

// SnapshotVersion returns one version of a snapshot
func (s *CurveService) SnapshotVersion(name string, version int) (*store.Snapshot, error) {
	return s.snapshots.GetVersion(name, version)
}

// Snapshots lists the stored snapshots
func (s *CurveService) Snapshots() []store.Info {
	return s.snapshots.List()
}

// History lists the retained versions of a snapshot
func (s *CurveService) History(name string) ([]store.Info, error) {
	return s.snapshots.History(name)
}

// Delete removes a snapshot
func (s *CurveService) Delete(name string) error {
	if err := s.snapshots.Delete(name); err != nil {
		return err
	}
	for _, n := range s.notifiers {
		n.PublishDeleted(name)
	}
	return nil
}

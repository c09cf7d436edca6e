package kafka

import (
	"context"
	"time"

	"github.com/rzzdr/quant-curve-engine/internal/request"
	"github.com/rzzdr/quant-curve-engine/internal/store"
	"github.com/rzzdr/quant-curve-engine/pkg/utils/errors"
	"github.com/rzzdr/quant-curve-engine/pkg/utils/logger"
)

// Result statuses
const (
	StatusConverged = "converged"
	StatusFailed    = "failed"
)

// HeaderRequestID is copied from a request onto its result
const HeaderRequestID = "request_id"

// Calibrator turns a request into a stored snapshot
type Calibrator interface {
	Calibrate(ctx context.Context, req *request.CalibrationRequest) (*store.Snapshot, error)
}

// Publisher sends a result message
type Publisher interface {
	ProduceJSON(ctx context.Context, key []byte, value interface{}, headers []MessageHeader) error
}

// CalibrationResult is what the processor publishes for every request
type CalibrationResult struct {
	Status    string                       `json:"status"`
	Name      string                       `json:"name,omitempty"`
	Version   int                          `json:"version,omitempty"`
	Response  *request.CalibrationResponse `json:"response,omitempty"`
	Error     string                       `json:"error,omitempty"`
	ErrorType string                       `json:"error_type,omitempty"`
	Offset    int64                        `json:"offset"`
	Processed time.Time                    `json:"processed_at"`
}

// CalibrationProcessor calibrates requests read from kafka and publishes the results
type CalibrationProcessor struct {
	calibrator Calibrator
	results    Publisher
	log        *logger.Logger
}

// NewCalibrationProcessor creates a processor
func NewCalibrationProcessor(calibrator Calibrator, results Publisher) *CalibrationProcessor {
	return &CalibrationProcessor{
		calibrator: calibrator,
		results:    results,
		log:        logger.GetLogger("kafka.processor"),
	}
}

// Handle processes one request message. Request failures are published as
// failed results; only a failure to publish is returned.
func (p *CalibrationProcessor) Handle(ctx context.Context, msg *Message) error {
	start := time.Now()
	res := CalibrationResult{Offset: msg.Offset}

	snap, err := p.calibrate(ctx, msg)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		res.Status = StatusFailed
		res.Name = string(msg.Key)
		res.Error = err.Error()
		res.ErrorType = errors.TypeOf(err).String()
		p.log.Warnw("Calibration request failed", "key", res.Name, "offset", msg.Offset, "error", err)
	} else {
		res.Status = StatusConverged
		res.Name = snap.Name
		res.Version = snap.Version
		res.Response = snap.Response
		p.log.Infow("Calibration request processed",
			"name", snap.Name,
			"version", snap.Version,
			"duration", time.Since(start),
		)
	}
	res.Processed = time.Now().UTC()

	var headers []MessageHeader
	if id, ok := msg.Header(HeaderRequestID); ok {
		headers = []MessageHeader{{Key: HeaderRequestID, Value: []byte(id)}}
	}
	return p.results.ProduceJSON(ctx, []byte(res.Name), res, headers)
}

func (p *CalibrationProcessor) calibrate(ctx context.Context, msg *Message) (*store.Snapshot, error) {
	req, err := request.ParseCalibrationRequest(msg.Value)
	if err != nil {
		return nil, err
	}
	if req.Name == "" {
		req.Name = string(msg.Key)
	}
	return p.calibrator.Calibrate(ctx, req)
}

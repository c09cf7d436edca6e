package api

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rzzdr/quant-curve-engine/internal/request"
	"github.com/rzzdr/quant-curve-engine/internal/store"
	"github.com/rzzdr/quant-curve-engine/pkg/utils/errors"
	"github.com/rzzdr/quant-curve-engine/pkg/utils/logger"
)

// CurveService is what the handlers need from the curve service
type CurveService interface {
	Calibrate(ctx context.Context, req *request.CalibrationRequest) (*store.Snapshot, error)
	Price(ctx context.Context, req *request.PriceRequest) (*request.PriceResponse, error)
	Snapshot(name string) (*store.Snapshot, error)
	SnapshotVersion(name string, version int) (*store.Snapshot, error)
	Snapshots() []store.Info
	History(name string) ([]store.Info, error)
	Delete(name string) error
}

// SnapshotView is the JSON form of a stored calibration
type SnapshotView struct {
	Name        string                       `json:"name"`
	Version     int                          `json:"version"`
	SavedAt     time.Time                    `json:"saved_at"`
	Calibration *request.CalibrationResponse `json:"calibration"`
}

func viewOf(snap *store.Snapshot) SnapshotView {
	return SnapshotView{
		Name:        snap.Name,
		Version:     snap.Version,
		SavedAt:     snap.SavedAt,
		Calibration: snap.Response,
	}
}

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	curves             CurveService
	calibrationTimeout time.Duration
	maxBodyBytes       int64
	started            time.Time
	log                *logger.Logger
}

// NewHandlers creates the API handlers
func NewHandlers(curves CurveService, calibrationTimeout time.Duration, maxBodyBytes int64) *Handlers {
	return &Handlers{
		curves:             curves,
		calibrationTimeout: calibrationTimeout,
		maxBodyBytes:       maxBodyBytes,
		started:            time.Now(),
		log:                logger.GetLogger("api.handlers"),
	}
}

// HealthCheckHandler handles health check requests
func (h *Handlers) HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(h.started).Round(time.Second).String(),
		"snapshots": len(h.curves.Snapshots()),
	})
}

// readBody reads a JSON or YAML document, bounded by maxBodyBytes
func (h *Handlers) readBody(c *gin.Context) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodyBytes))
	if err != nil {
		return nil, errors.Wrap(errors.InvalidArgument(err.Error()), "reading request body")
	}
	if len(body) == 0 {
		return nil, errors.InvalidArgument("request body is empty")
	}
	return body, nil
}

// CalibrateHandler calibrates a request document and stores the result
func (h *Handlers) CalibrateHandler(c *gin.Context) {
	body, err := h.readBody(c)
	if err != nil {
		writeError(c, err)
		return
	}
	req, err := request.ParseCalibrationRequest(body)
	if err != nil {
		writeError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.calibrationTimeout)
	defer cancel()

	snap, err := h.curves.Calibrate(ctx, req)
	if err != nil {
		h.log.Warnw("Calibration request failed", "name", req.Name, "error", err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, viewOf(snap))
}

// PriceHandler values instruments on a stored or inline market
func (h *Handlers) PriceHandler(c *gin.Context) {
	body, err := h.readBody(c)
	if err != nil {
		writeError(c, err)
		return
	}
	req, err := request.ParsePriceRequest(body)
	if err != nil {
		writeError(c, err)
		return
	}

	resp, err := h.curves.Price(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListCurvesHandler lists stored snapshots
func (h *Handlers) ListCurvesHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"snapshots": h.curves.Snapshots()})
}

// GetCurveHandler returns a snapshot, the latest unless ?version= is given
func (h *Handlers) GetCurveHandler(c *gin.Context) {
	name := c.Param("name")

	var (
		snap *store.Snapshot
		err  error
	)
	if v := c.Query("version"); v != "" {
		version, convErr := strconv.Atoi(v)
		if convErr != nil || version <= 0 {
			writeError(c, errors.InvalidArgumentf("version must be a positive integer, got %q", v))
			return
		}
		snap, err = h.curves.SnapshotVersion(name, version)
	} else {
		snap, err = h.curves.Snapshot(name)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(snap))
}

// CurveHistoryHandler lists the retained versions of a snapshot
func (h *Handlers) CurveHistoryHandler(c *gin.Context) {
	hist, err := h.curves.History(c.Param("name"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"versions": hist})
}

// DeleteCurveHandler removes a snapshot
func (h *Handlers) DeleteCurveHandler(c *gin.Context) {
	if err := h.curves.Delete(c.Param("name")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

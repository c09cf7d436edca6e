// Package api serves calibration, pricing and stored curves over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rzzdr/quant-curve-engine/internal/websocket"
	"github.com/rzzdr/quant-curve-engine/pkg/utils/backpressure"
	"github.com/rzzdr/quant-curve-engine/pkg/utils/logger"
)

// Config holds the configuration for the API server
type Config struct {
	Host               string
	Port               int
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	CalibrationTimeout time.Duration
	MaxBodyBytes       int64
	AllowedOrigins     []string
	RateLimit          float64 // requests per second per client, 0 disables
	RateBurst          int
}

// Server represents the API server
type Server struct {
	config     Config
	engine     *gin.Engine
	httpServer *http.Server
	log        *logger.Logger
}

// NewServer creates a new API server. The hub may be nil, which disables /ws.
func NewServer(config Config, curves CurveService, hub *websocket.Hub) *Server {
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = 10 * time.Second
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 60 * time.Second
	}
	if config.CalibrationTimeout <= 0 {
		config.CalibrationTimeout = 30 * time.Second
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = 4 << 20
	}
	if len(config.AllowedOrigins) == 0 {
		config.AllowedOrigins = []string{"*"}
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(RecoveryMiddleware())
	engine.Use(LoggingMiddleware())
	engine.Use(MetricsMiddleware())
	engine.Use(CORSMiddleware(config.AllowedOrigins))
	if config.RateLimit > 0 {
		engine.Use(RateLimitMiddleware(backpressure.NewKeyedLimiter(config.RateLimit, config.RateBurst, 0)))
	}

	handlers := NewHandlers(curves, config.CalibrationTimeout, config.MaxBodyBytes)
	SetupRoutes(engine, handlers, hub)

	return &Server{
		config: config,
		engine: engine,
		log:    logger.GetLogger("api.server"),
	}
}

// Handler returns the routed gin engine
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves until Stop is called
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.log.Infow("Starting API server", "addr", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop stops the API server gracefully
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer != nil {
		s.log.Info("Stopping API server")
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

package metrics

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rzzdr/quant-curve-engine/pkg/utils/logger"
)

var (
	// Calibration metrics
	calibrationRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qce_calibration_runs_total",
		Help: "The total number of calibration runs by outcome",
	}, []string{"source", "status"})

	calibrationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "qce_calibration_duration_seconds",
		Help:    "The time taken by a calibration run",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
	}, []string{"source", "status"})

	calibrationSteps = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "qce_calibration_steps",
		Help:    "Root finder steps per calibration run",
		Buckets: prometheus.LinearBuckets(0, 5, 21),
	}, []string{"source"})

	calibrationResidual = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "qce_calibration_residual_norm",
		Help: "Residual norm of the last converged calibration",
	}, []string{"source"})

	// Pricing metrics
	pricingRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qce_pricing_requests_total",
		Help: "The total number of instruments priced",
	}, []string{"instrument", "status"})

	pricingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "qce_pricing_duration_seconds",
		Help:    "The time taken to price one instrument",
		Buckets: prometheus.ExponentialBuckets(0.00001, 2, 14),
	}, []string{"instrument"})

	// Delivery metrics
	kafkaMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qce_kafka_messages_total",
		Help: "Kafka messages handled by topic and outcome",
	}, []string{"topic", "outcome"})

	websocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "qce_websocket_clients",
		Help: "Connected curve stream clients",
	})

	storedSnapshots = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "qce_curve_snapshots",
		Help: "Calibrated market snapshots held in the store",
	})

	// System metrics
	goroutinesGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "qce_goroutines",
		Help: "The total number of goroutines",
	})

	memoryUsage = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "qce_memory_usage_bytes",
		Help: "Current memory usage of the application",
	})

	// API metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qce_http_requests_total",
		Help: "Total HTTP requests processed",
	}, []string{"method", "endpoint", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "qce_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{"method", "endpoint"})
)

// PrometheusServer is a server that exposes Prometheus metrics
type PrometheusServer struct {
	server *http.Server
	log    *logger.Logger
}

// NewPrometheusServer creates a new Prometheus metrics server
func NewPrometheusServer(port int, path string) *PrometheusServer {
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())

	return &PrometheusServer{
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: logger.GetLogger("metrics.prometheus"),
	}
}

// Start serves metrics until Stop is called
func (p *PrometheusServer) Start() error {
	p.log.Infof("Starting Prometheus metrics server on %s", p.server.Addr)
	if err := p.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop shuts the metrics server down
func (p *PrometheusServer) Stop(ctx context.Context) error {
	p.log.Info("Stopping Prometheus metrics server")
	return p.server.Shutdown(ctx)
}

// RecordCalibration records the outcome of one calibration run
func RecordCalibration(source, status string, steps int, residual float64, duration time.Duration) {
	calibrationRuns.WithLabelValues(source, status).Inc()
	calibrationDuration.WithLabelValues(source, status).Observe(duration.Seconds())
	calibrationSteps.WithLabelValues(source).Observe(float64(steps))
	if status == "converged" {
		calibrationResidual.WithLabelValues(source).Set(residual)
	}
}

// RecordPricing records one priced instrument
func RecordPricing(instrument string, err error, duration time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	pricingRequests.WithLabelValues(instrument, status).Inc()
	pricingDuration.WithLabelValues(instrument).Observe(duration.Seconds())
}

// RecordKafkaMessage records a consumed or produced kafka message
func RecordKafkaMessage(topic, outcome string) {
	kafkaMessages.WithLabelValues(topic, outcome).Inc()
}

// SetWebsocketClients sets the number of connected stream clients
func SetWebsocketClients(n int) {
	websocketClients.Set(float64(n))
}

// SetStoredSnapshots sets the number of snapshots in the curve store
func SetStoredSnapshots(n int) {
	storedSnapshots.Set(float64(n))
}

// RecordHTTPRequest records an HTTP request
func RecordHTTPRequest(method, endpoint string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// UpdateSystemMetrics updates system-level metrics
func UpdateSystemMetrics(numGoroutines int, memBytes float64) {
	goroutinesGauge.Set(float64(numGoroutines))
	memoryUsage.Set(memBytes)
}

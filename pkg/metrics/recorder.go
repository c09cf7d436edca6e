package metrics

import (
	"runtime"
	"time"
)

// Recorder receives calibration outcomes. The engine takes one so tests and
// embedded uses can run without touching the global registry.
type Recorder interface {
	RecordCalibration(source, status string, steps int, residual float64, duration time.Duration)
}

// PrometheusRecorder forwards to the package-level collectors
type PrometheusRecorder struct{}

// RecordCalibration implements Recorder
func (PrometheusRecorder) RecordCalibration(source, status string, steps int, residual float64, duration time.Duration) {
	RecordCalibration(source, status, steps, residual, duration)
}

// NopRecorder drops everything
type NopRecorder struct{}

// RecordCalibration implements Recorder
func (NopRecorder) RecordCalibration(string, string, int, float64, time.Duration) {}

// CollectSystemMetrics samples goroutine and heap usage until done is closed
func CollectSystemMetrics(interval time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var mem runtime.MemStats
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			runtime.ReadMemStats(&mem)
			UpdateSystemMetrics(runtime.NumGoroutine(), float64(mem.Alloc))
		}
	}
}

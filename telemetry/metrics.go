// Package telemetry provides Prometheus metrics, OpenTelemetry tracing setup,
// and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	ScansTotal      prometheus.Counter
	ScanErrors      prometheus.Counter
	SamplesTotal    prometheus.Counter
	SampleErrors    prometheus.Counter
	PersistFailures prometheus.Counter

	// Histograms (seconds)
	ScanDuration   prometheus.Observer
	SampleDuration prometheus.Observer

	// Gauges
	TrackedStreamsGauge prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		ScansTotal = promauto.NewCounter(prometheus.CounterOpts{Name: "tracker_channel_scans_total", Help: "Number of channel discovery scans attempted"})
		ScanErrors = promauto.NewCounter(prometheus.CounterOpts{Name: "tracker_channel_scan_errors_total", Help: "Number of channel discovery scans that failed"})
		SamplesTotal = promauto.NewCounter(prometheus.CounterOpts{Name: "tracker_samples_total", Help: "Number of metric samples collected"})
		SampleErrors = promauto.NewCounter(prometheus.CounterOpts{Name: "tracker_sample_errors_total", Help: "Number of metric fetches that failed"})
		PersistFailures = promauto.NewCounter(prometheus.CounterOpts{Name: "tracker_persist_failures_total", Help: "Number of sink writes that failed (either sink)"})
		ScanDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "tracker_scan_duration_seconds", Help: "Channel scan duration seconds", Buckets: prometheus.DefBuckets})
		SampleDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "tracker_sample_duration_seconds", Help: "Metrics fetch duration seconds", Buckets: prometheus.DefBuckets})
		TrackedStreamsGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "tracker_tracked_streams", Help: "Current number of tracked streams (live + upcoming)"})
	})
}

// ObserveScan records one channel scan attempt.
func ObserveScan(d time.Duration, err error) {
	if ScansTotal == nil {
		return
	}
	ScansTotal.Inc()
	ScanDuration.Observe(d.Seconds())
	if err != nil {
		ScanErrors.Inc()
	}
}

// ObserveSample records one metrics fetch attempt.
func ObserveSample(d time.Duration, err error) {
	if SampleDuration == nil {
		return
	}
	SampleDuration.Observe(d.Seconds())
	if err != nil {
		SampleErrors.Inc()
	}
}

// IncSamples records one collected sample.
func IncSamples() {
	if SamplesTotal != nil {
		SamplesTotal.Inc()
	}
}

// IncPersistFailure records one failed sink write.
func IncPersistFailure() {
	if PersistFailures != nil {
		PersistFailures.Inc()
	}
}

// SetTrackedStreams records the current registry size.
func SetTrackedStreams(n int) {
	if TrackedStreamsGauge != nil {
		TrackedStreamsGauge.Set(float64(n))
	}
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns the correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey).(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger carrying the corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}

// Package metrics defines the Prometheus instrumentation for the
// record-and-transcribe service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the service
type Metrics struct {
	// Recording session metrics
	RecordingsStarted  prometheus.Counter
	RecordingsStopped  prometheus.Counter
	RecordingDuration  prometheus.Histogram
	RecordingActive    prometheus.Gauge

	// File store metrics
	FilesSaved prometheus.Counter
	BytesSaved prometheus.Counter

	// Transcription metrics
	TranscriptionRequests  prometheus.Counter
	TranscriptionSuccesses prometheus.Counter
	TranscriptionFailures  prometheus.Counter
	TranscriptionRetries   prometheus.Counter
	TranscriptionDuration  prometheus.Histogram

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		RecordingsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rts_recordings_started_total",
			Help: "Total number of recording sessions started",
		}),
		RecordingsStopped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rts_recordings_stopped_total",
			Help: "Total number of recording sessions stopped",
		}),
		RecordingDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "rts_recording_duration_seconds",
			Help:    "Duration of recording sessions in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s to ~17 minutes
		}),
		RecordingActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "rts_recording_active",
			Help: "Whether a recording session is currently active (0 or 1)",
		}),

		FilesSaved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rts_files_saved_total",
			Help: "Total number of files written to the download directory",
		}),
		BytesSaved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rts_bytes_saved_total",
			Help: "Total number of payload bytes written to the download directory",
		}),

		TranscriptionRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rts_transcription_requests_total",
			Help: "Total number of transcription requests sent",
		}),
		TranscriptionSuccesses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rts_transcription_successes_total",
			Help: "Total number of successful transcription requests",
		}),
		TranscriptionFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rts_transcription_failures_total",
			Help: "Total number of failed transcription requests",
		}),
		TranscriptionRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rts_transcription_retries_total",
			Help: "Total number of transcription request retries",
		}),
		TranscriptionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "rts_transcription_duration_seconds",
			Help:    "Duration of transcription requests",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~2 minutes
		}),

		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rts_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rts_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rts_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordRecordingStarted marks a recording session as started
func (m *Metrics) RecordRecordingStarted() {
	m.RecordingsStarted.Inc()
	m.RecordingActive.Set(1)
}

// RecordRecordingStopped marks a recording session as stopped and records its duration
func (m *Metrics) RecordRecordingStopped(durationSeconds float64) {
	m.RecordingsStopped.Inc()
	m.RecordingDuration.Observe(durationSeconds)
	m.RecordingActive.Set(0)
}

// RecordFileSaved records a file written to the download directory
func (m *Metrics) RecordFileSaved(sizeBytes int) {
	m.FilesSaved.Inc()
	m.BytesSaved.Add(float64(sizeBytes))
}

// RecordTranscriptionRequest increments the transcription request counter
func (m *Metrics) RecordTranscriptionRequest() {
	m.TranscriptionRequests.Inc()
}

// RecordTranscriptionSuccess records a successful transcription
func (m *Metrics) RecordTranscriptionSuccess(durationSeconds float64) {
	m.TranscriptionSuccesses.Inc()
	m.TranscriptionDuration.Observe(durationSeconds)
}

// RecordTranscriptionFailure records a failed transcription
func (m *Metrics) RecordTranscriptionFailure(durationSeconds float64) {
	m.TranscriptionFailures.Inc()
	m.TranscriptionDuration.Observe(durationSeconds)
}

// RecordTranscriptionRetry increments the retry counter
func (m *Metrics) RecordTranscriptionRetry() {
	m.TranscriptionRetries.Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}

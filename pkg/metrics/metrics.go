// Package metrics holds the Prometheus collectors of the upload service
package metrics

import (
	"net/http"
	"time"

	// Packages
	prometheus "github.com/prometheus/client_golang/prometheus"
	promauto "github.com/prometheus/client_golang/prometheus/promauto"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

var (
	uploadsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "upload_created_total",
		Help: "Uploads accepted at creation",
	})

	uploadsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "upload_rejected_total",
		Help: "Uploads rejected at creation, by status code",
	}, []string{"code"})

	chunkBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "upload_chunk_bytes_total",
		Help: "Bytes stored from accepted chunks",
	})

	uploadsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "upload_completed_total",
		Help: "Uploads which received every declared byte",
	})

	finalizeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "upload_finalize_total",
		Help: "Finalization runs by outcome",
	}, []string{"outcome"})

	finalizeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "upload_finalize_duration_seconds",
		Help:    "Duration of the Processing Service call made on finalization",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	})

	outcomeWriteErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "upload_outcome_write_errors_total",
		Help: "Finalization outcomes which could not be recorded",
	})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "upload_http_requests_total",
		Help: "HTTP requests by method, route and status",
	}, []string{"method", "route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "upload_http_request_duration_seconds",
		Help:    "HTTP request duration by method and route",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Handler returns the exposition handler for the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}

func UploadCreated() {
	uploadsCreated.Inc()
}

func UploadRejected(code string) {
	uploadsRejected.WithLabelValues(code).Inc()
}

func ChunkStored(n int64) {
	chunkBytes.Add(float64(n))
}

func UploadCompleted() {
	uploadsCompleted.Inc()
}

// Finalized records one finalization run with its outcome label
func Finalized(outcome string, d time.Duration) {
	finalizeTotal.WithLabelValues(outcome).Inc()
	finalizeDuration.Observe(d.Seconds())
}

func OutcomeWriteFailed() {
	outcomeWriteErrors.Inc()
}

// Request records one HTTP request
func Request(method, route string, status int, d time.Duration) {
	httpRequests.WithLabelValues(method, route, statusClass(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// statusClass keeps label cardinality low
func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

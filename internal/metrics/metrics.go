// Package metrics defines the Prometheus collectors exported on the metrics
// endpoint.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sledilnik_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sledilnik_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	HTTPInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sledilnik_http_inflight_requests",
			Help: "Number of HTTP requests currently being served",
		},
	)

	// Items

	ItemOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sledilnik_item_operations_total",
			Help: "Item lifecycle operations by outcome",
		},
		[]string{"operation", "outcome"}, // create|update|delete, ok|validation|conflict|storage
	)

	TrackingVisits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sledilnik_tracking_visits_total",
			Help: "Tracking page visits by result",
		},
		[]string{"result"}, // found, not_found, forbidden, error
	)

	// Capture

	CapturesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sledilnik_captures_total",
			Help: "Location capture calls by result",
		},
		[]string{"result"}, // stored, dropped, failed
	)

	CapturesWithCoordinates = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sledilnik_captures_with_coordinates_total",
			Help: "Stored captures that carried browser coordinates",
		},
	)

	// Cleanup

	CleanupRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sledilnik_cleanup_runs_total",
			Help: "Cleanup passes by outcome",
		},
		[]string{"outcome"}, // ok, error
	)

	CleanupAffected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sledilnik_cleanup_affected_total",
			Help: "Rows and files affected by cleanup passes",
		},
		[]string{"kind"}, // locations_deleted, items_deactivated, files_removed
	)

	CleanupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sledilnik_cleanup_duration_seconds",
			Help:    "Duration of cleanup passes in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	CleanupLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sledilnik_cleanup_last_success_timestamp_seconds",
			Help: "Unix time of the last cleanup pass without errors",
		},
	)
)

// RecordHTTPRequest records one served request. route should be the matched
// pattern, never the raw path.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

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
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "citypulse_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "citypulse_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "citypulse_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// Catalog metrics
	catalogRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "citypulse_catalog_requests_total",
			Help: "Outbound event catalog requests by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	catalogRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "citypulse_catalog_request_duration_seconds",
			Help:    "Outbound event catalog request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	eventCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "citypulse_event_cache_total",
			Help: "Event detail cache lookups by result",
		},
		[]string{"result"},
	)

	// Business logic metrics
	favoriteTogglesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "citypulse_favorite_toggles_total",
			Help: "Favorite toggles by outcome (applied, reverted, skipped)",
		},
		[]string{"outcome"},
	)

	searchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "citypulse_searches_total",
			Help: "Search requests by outcome (fetched, baseline, superseded, stale)",
		},
		[]string{"outcome"},
	)

	activeStores = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "citypulse_active_device_stores",
			Help: "Number of device state stores held in memory",
		},
	)

	authLoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "citypulse_auth_logins_total",
			Help: "Sign-ins by method and outcome",
		},
		[]string{"method", "outcome"},
	)

	// Dependency health metrics
	dependencyHealth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "citypulse_dependency_health",
			Help: "Health status of dependencies (1 = healthy, 0 = unhealthy)",
		},
		[]string{"dependency"},
	)
)

// RecordHTTPRequest records HTTP request metrics
func RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func IncInFlight() { httpRequestsInFlight.Inc() }
func DecInFlight() { httpRequestsInFlight.Dec() }

// RecordCatalogRequest records one outbound catalog call.
func RecordCatalogRequest(operation string, err error, duration time.Duration) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	catalogRequestsTotal.WithLabelValues(operation, outcome).Inc()
	catalogRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func RecordCacheHit()  { eventCacheTotal.WithLabelValues("hit").Inc() }
func RecordCacheMiss() { eventCacheTotal.WithLabelValues("miss").Inc() }

func RecordFavoriteToggle(outcome string) {
	favoriteTogglesTotal.WithLabelValues(outcome).Inc()
}

func RecordSearch(outcome string) {
	searchesTotal.WithLabelValues(outcome).Inc()
}

func SetActiveStores(n int) {
	activeStores.Set(float64(n))
}

func RecordLogin(method string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	authLoginsTotal.WithLabelValues(method, outcome).Inc()
}

// SetDependencyHealth sets the health status of a dependency
func SetDependencyHealth(dependency string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	dependencyHealth.WithLabelValues(dependency).Set(value)
}

// Handler returns the Prometheus metrics handler
func Handler() http.Handler {
	return promhttp.Handler()
}

package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or spikes (traffic surge).
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request. Watch for: p95/p99 increases on refresh-triggering routes.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight.
	HTTPRequestsInFlight prometheus.Gauge

	// Upstream call rate per service (weather, geocoder, knowledge). Watch for: error vs success ratio.
	UpstreamCallsTotal *prometheus.CounterVec

	// Upstream latency. Watch for: p95 approaching the configured client timeout.
	UpstreamDuration *prometheus.HistogramVec

	// Upstream breaker state (0 closed, 1 open, 2 half_open). Watch for: sustained 1.
	UpstreamBreakerState *prometheus.GaugeVec

	// Upstream breaker transitions.
	UpstreamBreakerTransitionsTotal *prometheus.CounterVec

	// Widget refresh outcomes. outcome=fallback means the widget showed static content.
	WidgetRefreshesTotal *prometheus.CounterVec

	// Widget refresh latency including fallback rendering.
	WidgetRefreshDuration *prometheus.HistogramVec

	// Fallback reasons per widget (error category, or "offline").
	WidgetFallbacksTotal *prometheus.CounterVec

	// Effective connectivity mode transitions.
	ConnectivityTransitionsTotal *prometheus.CounterVec

	// User toggles to Online rejected while the device was unreachable.
	ConnectivityToggleRejectedTotal prometheus.Counter

	// Current effective mode (1 online, 0 offline).
	ConnectivityOnline prometheus.Gauge

	// Display language changes by new language.
	LocaleChangesTotal *prometheus.CounterVec

	// Location resolutions by source (geolocation, reverse_geocode, default, manual).
	LocationResolutionsTotal *prometheus.CounterVec

	// Lazy sub-page fetches by page and reason (first_visit, invalidated).
	LazyPageLoadsTotal *prometheus.CounterVec

	// Rate limit denials on the API surface.
	RateLimitDeniedTotal prometheus.Counter
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	UpstreamCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstreamCallsTotal",
			Help: "Total number of upstream API calls",
		},
		[]string{"upstream", "status"},
	)
	UpstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstreamDurationSeconds",
			Help:    "Upstream API latency in seconds (per request)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"upstream", "status"},
	)
	UpstreamBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "upstreamBreakerState",
			Help: "Upstream circuit breaker state (0 closed, 1 open, 2 half_open)",
		},
		[]string{"upstream"},
	)
	UpstreamBreakerTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstreamBreakerTransitionsTotal",
			Help: "Upstream circuit breaker state transitions",
		},
		[]string{"upstream", "from", "to"},
	)
	WidgetRefreshesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "widgetRefreshesTotal",
			Help: "Total number of widget refreshes by trigger and outcome",
		},
		[]string{"widget", "trigger", "outcome"},
	)
	WidgetRefreshDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "widgetRefreshDurationSeconds",
			Help:    "Widget refresh latency in seconds, fallback included",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"widget"},
	)
	WidgetFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "widgetFallbacksTotal",
			Help: "Widget fallbacks by reason category",
		},
		[]string{"widget", "category"},
	)
	ConnectivityTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connectivityTransitionsTotal",
			Help: "Effective connectivity mode transitions",
		},
		[]string{"from", "to"},
	)
	ConnectivityToggleRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "connectivityToggleRejectedTotal",
			Help: "User requests to go online rejected while unreachable",
		},
	)
	ConnectivityOnline = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "connectivityOnline",
			Help: "Effective connectivity mode (1 online, 0 offline)",
		},
	)
	LocaleChangesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "localeChangesTotal",
			Help: "Display language changes",
		},
		[]string{"language"},
	)
	LocationResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "locationResolutionsTotal",
			Help: "Location resolutions by source",
		},
		[]string{"source"},
	)
	LazyPageLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lazyPageLoadsTotal",
			Help: "Lazy sub-page content fetches",
		},
		[]string{"page", "reason"},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		UpstreamCallsTotal, UpstreamDuration,
		UpstreamBreakerState, UpstreamBreakerTransitionsTotal,
		WidgetRefreshesTotal, WidgetRefreshDuration, WidgetFallbacksTotal,
		ConnectivityTransitionsTotal, ConnectivityToggleRejectedTotal, ConnectivityOnline,
		LocaleChangesTotal, LocationResolutionsTotal, LazyPageLoadsTotal,
		RateLimitDeniedTotal,
	)
}

// RecordWidgetRefresh records one widget refresh and, for fallbacks, its reason.
func RecordWidgetRefresh(widget, trigger string, fallback bool, category string, seconds float64) {
	outcome := "success"
	if fallback {
		outcome = "fallback"
		WidgetFallbacksTotal.WithLabelValues(widget, category).Inc()
	}
	WidgetRefreshesTotal.WithLabelValues(widget, trigger, outcome).Inc()
	WidgetRefreshDuration.WithLabelValues(widget).Observe(seconds)
}

// RecordBreakerTransition records an upstream breaker state change. state is
// the numeric value of the new state.
func RecordBreakerTransition(upstream, from, to string, state int) {
	UpstreamBreakerTransitionsTotal.WithLabelValues(upstream, from, to).Inc()
	UpstreamBreakerState.WithLabelValues(upstream).Set(float64(state))
}

// RecordConnectivityTransition records an effective mode change.
func RecordConnectivityTransition(from, to string) {
	ConnectivityTransitionsTotal.WithLabelValues(from, to).Inc()
	if to == "online" {
		ConnectivityOnline.Set(1)
	} else {
		ConnectivityOnline.Set(0)
	}
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	NotificationsDispatched *prometheus.CounterVec
	NotificationsDropped    prometheus.Counter

	WebSocketConnections prometheus.Gauge
	WebSocketEvents      *prometheus.CounterVec

	CacheRequests     *prometheus.CounterVec
	RateLimitExceeded prometheus.Counter
}

var (
	instance *Metrics
	once     sync.Once
)

// Initialize creates and registers all Prometheus metrics
func Initialize() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			HTTPRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"method", "path", "status"},
			),
			NotificationsDispatched: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "notifications_dispatched_total",
					Help: "Notifications processed by the dispatcher, by type and result",
				},
				[]string{"type", "result"},
			),
			NotificationsDropped: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "notifications_dropped_total",
					Help: "Notifications dropped because the queue was full",
				},
			),
			WebSocketConnections: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "websocket_active_connections",
					Help: "Currently connected websocket clients",
				},
			),
			WebSocketEvents: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "websocket_events_total",
					Help: "Events emitted to websocket rooms",
				},
				[]string{"event"},
			),
			CacheRequests: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cache_requests_total",
					Help: "Cache lookups by result",
				},
				[]string{"result"},
			),
			RateLimitExceeded: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "rate_limit_exceeded_total",
					Help: "Requests rejected by the rate limiter",
				},
			),
		}
	})
	return instance
}

// Get returns the metrics, registering them on first use.
func Get() *Metrics {
	return Initialize()
}

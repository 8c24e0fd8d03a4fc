// Package metrics provides the centralized Prometheus registry for the vault.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "backtest_vault"

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// HTTP metrics
var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of API requests by route and status",
	}, []string{"method", "route", "status"})
	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Latency of API requests in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
	HTTPRequestBodyBytes = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_body_bytes",
		Help:      "Size of accepted request bodies in bytes",
		Buckets:   prometheus.ExponentialBuckets(1024, 4, 10),
	})
)

// Store metrics
var (
	StoreOperationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_operations_total",
		Help:      "Total number of record store operations by outcome",
	}, []string{"entity", "operation", "result"})
	StoreOperationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "store_operation_duration_seconds",
		Help:      "Duration of record store operations in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"entity", "operation"})
)

// Event metrics
var (
	EventSubscribers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "event_subscribers",
		Help:      "Number of connected collection-change subscribers",
	})
	EventsPublishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_published_total",
		Help:      "Total number of collection-change events published",
	}, []string{"collection", "action"})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(collectors.NewGoCollector())
		registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		registry.MustRegister(HTTPRequestsTotal)
		registry.MustRegister(HTTPRequestDuration)
		registry.MustRegister(HTTPRequestBodyBytes)

		registry.MustRegister(StoreOperationsTotal)
		registry.MustRegister(StoreOperationDuration)

		registry.MustRegister(EventSubscribers)
		registry.MustRegister(EventsPublishedTotal)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	return InitRegistry()
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RegisterPoolStats exposes connection pool gauges sampled from stat on scrape.
func RegisterPoolStats(stat func() (acquired, idle, total int32)) {
	reg := GetRegistry()
	gauge := func(name, help string, pick func(a, i, t int32) int32) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, func() float64 {
			a, i, t := stat()
			return float64(pick(a, i, t))
		})
	}
	reg.MustRegister(
		gauge("db_pool_acquired_connections", "Connections currently in use", func(a, _, _ int32) int32 { return a }),
		gauge("db_pool_idle_connections", "Idle connections in the pool", func(_, i, _ int32) int32 { return i }),
		gauge("db_pool_total_connections", "Total connections in the pool", func(_, _, t int32) int32 { return t }),
	)
}

// RecordHTTPRequest records one served API request.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordRequestBody records the size of an accepted request body.
func RecordRequestBody(size int64) {
	if size > 0 {
		HTTPRequestBodyBytes.Observe(float64(size))
	}
}

// RecordStoreOperation records a record store call and its outcome.
func RecordStoreOperation(entity, operation string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	StoreOperationsTotal.WithLabelValues(entity, operation, result).Inc()
	StoreOperationDuration.WithLabelValues(entity, operation).Observe(time.Since(start).Seconds())
}

// RecordEventPublished records a published collection-change event.
func RecordEventPublished(collection, action string) {
	EventsPublishedTotal.WithLabelValues(collection, action).Inc()
}

// UpdateEventSubscribers sets the subscriber gauge.
func UpdateEventSubscribers(count int) {
	EventSubscribers.Set(float64(count))
}

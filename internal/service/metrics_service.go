package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the desk.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	complaintsCreated  *prometheus.CounterVec
	statusTransitions  *prometheus.CounterVec
	storageFailures    *prometheus.CounterVec
	notificationQueued prometheus.GaugeFunc

	cacheHitCount  uint64
	cacheMissCount uint64
}

// NewMetricsService registers the collectors. pending may be nil.
func NewMetricsService(pending func() int) *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	complaintsCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "complaints_created_total",
		Help: "Complaints submitted by category and urgency",
	}, []string{"category", "urgency"})

	statusTransitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "complaint_status_transitions_total",
		Help: "Complaint status changes by source and target status",
	}, []string{"from", "to"})

	storageFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storage_failures_total",
		Help: "Persistence gateway failures by operation",
	}, []string{"operation"})

	if pending == nil {
		pending = func() int { return 0 }
	}
	notificationQueued := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "notification_queue_pending",
		Help: "Notifications waiting for a worker",
	}, func() float64 {
		return float64(pending())
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		complaintsCreated, statusTransitions, storageFailures, notificationQueued, goroutines)

	return &MetricsService{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		cacheLatency:       cacheLatency,
		cacheWrite:         cacheWrite,
		cacheHitRatio:      cacheHitRatio,
		cacheHits:          cacheHits,
		cacheMisses:        cacheMisses,
		complaintsCreated:  complaintsCreated,
		statusTransitions:  statusTransitions,
		storageFailures:    storageFailures,
		notificationQueued: notificationQueued,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry exposes the underlying registry for tests and custom collectors.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordComplaintCreated counts a submitted complaint.
func (m *MetricsService) RecordComplaintCreated(category, urgency string) {
	if m == nil {
		return
	}
	m.complaintsCreated.WithLabelValues(category, urgency).Inc()
}

// RecordStatusTransition counts a status change.
func (m *MetricsService) RecordStatusTransition(from, to string) {
	if m == nil {
		return
	}
	m.statusTransitions.WithLabelValues(from, to).Inc()
}

// RecordStorageFailure counts a persistence gateway failure.
func (m *MetricsService) RecordStorageFailure(operation string) {
	if m == nil {
		return
	}
	m.storageFailures.WithLabelValues(operation).Inc()
}

package service

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation: the standard
// HTTP metrics plus counters for the cancellation/makeup workflow.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter

	cancellationsRequested prometheus.Counter
	cancellationsApproved  prometheus.Counter
	cancellationsRejected  prometheus.Counter
	makeupCreated          prometheus.Counter
	quotaExhaustedHits     prometheus.Counter
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
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

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})
	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	cancellationsRequested := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cancellations_requested_total",
		Help: "Total session cancellation requests opened",
	})
	cancellationsApproved := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cancellations_approved_total",
		Help: "Total session cancellations approved",
	})
	cancellationsRejected := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cancellations_rejected_total",
		Help: "Total session cancellations rejected",
	})
	makeupCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "makeup_sessions_created_total",
		Help: "Total makeup sessions created",
	})
	quotaExhaustedHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "makeup_quota_exhausted_total",
		Help: "Total operations rejected because the makeup quota was exhausted",
	})

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		requestDuration, requestTotal,
		cacheHits, cacheMisses,
		cancellationsRequested, cancellationsApproved, cancellationsRejected,
		makeupCreated, quotaExhaustedHits,
	)

	return &MetricsService{
		registry:               registry,
		handler:                promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:        requestDuration,
		requestTotal:           requestTotal,
		cacheHits:              cacheHits,
		cacheMisses:            cacheMisses,
		cancellationsRequested: cancellationsRequested,
		cancellationsApproved:  cancellationsApproved,
		cancellationsRejected:  cancellationsRejected,
		makeupCreated:          makeupCreated,
		quotaExhaustedHits:     quotaExhaustedHits,
	}
}

// Handler serves the /metrics scrape endpoint.
func (m *MetricsService) Handler() http.Handler { return m.handler }

// ObserveRequest records one completed HTTP request.
func (m *MetricsService) ObserveRequest(method, path, status string, seconds float64) {
	m.requestDuration.WithLabelValues(method, path, status).Observe(seconds)
	m.requestTotal.WithLabelValues(method, path, status).Inc()
}

// CacheHit and CacheMiss record cache lookup outcomes.
func (m *MetricsService) CacheHit()  { m.cacheHits.Inc() }
func (m *MetricsService) CacheMiss() { m.cacheMisses.Inc() }

// Workflow counters.
func (m *MetricsService) CancellationRequested() { m.cancellationsRequested.Inc() }
func (m *MetricsService) CancellationApproved()  { m.cancellationsApproved.Inc() }
func (m *MetricsService) CancellationRejected()  { m.cancellationsRejected.Inc() }
func (m *MetricsService) MakeupCreated()         { m.makeupCreated.Inc() }
func (m *MetricsService) QuotaExhausted()        { m.quotaExhaustedHits.Inc() }

package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the dashboard service.
type Metrics struct {
	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPLatency  *prometheus.HistogramVec

	// KPI pipeline metrics
	KPIRequests      *prometheus.CounterVec
	ResolutionErrors *prometheus.CounterVec
	GroupsReported   *prometheus.HistogramVec
	ActiveAlerts     *prometheus.GaugeVec

	// Store metrics
	StoreFetchLatency *prometheus.HistogramVec
	StoreRecords      *prometheus.CounterVec
	CacheRequests     *prometheus.CounterVec

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// NewMetrics creates and registers all metrics with reg. A nil reg uses
// the default registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests by route and status",
			},
			[]string{"route", "method", "status"},
		),
		HTTPLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"route"},
		),

		KPIRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "kpi_requests_total",
				Help:      "KPI computations by endpoint and result",
			},
			[]string{"endpoint", "result"},
		),
		ResolutionErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "period_resolution_errors_total",
				Help:      "Rejected period selections by kind",
			},
			[]string{"kind"},
		),
		GroupsReported: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "kpi_groups",
				Help:      "Number of groups in grouped KPI reports",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 7),
			},
			[]string{"group_by"},
		),
		ActiveAlerts: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "alerts_active",
				Help:      "Alerts returned by the last alert evaluation",
			},
			[]string{"level"},
		),

		StoreFetchLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "store_fetch_duration_seconds",
				Help:      "Record store fetch latency in seconds",
				Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 20},
			},
			[]string{"store", "result"},
		),
		StoreRecords: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_records_total",
				Help:      "Records returned by the record store",
			},
			[]string{"store"},
		),
		CacheRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "record_cache_requests_total",
				Help:      "Record cache lookups by result",
			},
			[]string{"store", "result"},
		),

		RateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_hits_total",
				Help:      "Requests rejected by the rate limiter",
			},
			[]string{"path"},
		),

		gatherer: gatherer,
	}
}

// Handler returns the Prometheus metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// RecordRequest records a completed HTTP request.
func (m *Metrics) RecordRequest(route, method string, status int, latency time.Duration) {
	m.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.HTTPLatency.WithLabelValues(route).Observe(latency.Seconds())
}

// RecordKPIRequest records the outcome of a KPI computation.
func (m *Metrics) RecordKPIRequest(endpoint, result string) {
	m.KPIRequests.WithLabelValues(endpoint, result).Inc()
}

// RecordResolutionError records a rejected selection.
func (m *Metrics) RecordResolutionError(kind string) {
	m.ResolutionErrors.WithLabelValues(kind).Inc()
}

// RecordGroups records the size of a grouped report.
func (m *Metrics) RecordGroups(groupBy string, n int) {
	m.GroupsReported.WithLabelValues(groupBy).Observe(float64(n))
}

// SetActiveAlerts updates the alert gauges.
func (m *Metrics) SetActiveAlerts(critical, warning, info int) {
	m.ActiveAlerts.WithLabelValues("critical").Set(float64(critical))
	m.ActiveAlerts.WithLabelValues("warning").Set(float64(warning))
	m.ActiveAlerts.WithLabelValues("info").Set(float64(info))
}

// ObserveStoreFetch records one record store fetch.
func (m *Metrics) ObserveStoreFetch(store string, d time.Duration, records int, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.StoreFetchLatency.WithLabelValues(store, result).Observe(d.Seconds())
	if err == nil {
		m.StoreRecords.WithLabelValues(store).Add(float64(records))
	}
}

// RecordCacheHit records a record cache hit.
func (m *Metrics) RecordCacheHit(store string) {
	m.CacheRequests.WithLabelValues(store, "hit").Inc()
}

// RecordCacheMiss records a record cache miss.
func (m *Metrics) RecordCacheMiss(store string) {
	m.CacheRequests.WithLabelValues(store, "miss").Inc()
}

// RecordRateLimitHit records a rate limit hit.
func (m *Metrics) RecordRateLimitHit(path string) {
	m.RateLimitHits.WithLabelValues(path).Inc()
}

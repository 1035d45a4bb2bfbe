package service

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/sma-merit/internal/models"
)

const metricsNamespace = "merit"

// MetricsService owns the ledger's Prometheus registry and the counters behind
// the JSON snapshot. A nil *MetricsService ignores every observation.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	summaryLookups  *prometheus.CounterVec
	invalidations   prometheus.Counter
	droppedKeys     prometheus.Counter
	dbQueryDuration *prometheus.HistogramVec
	mutations       *prometheus.CounterVec

	mutationMu     sync.Mutex
	mutationCounts map[string]uint64

	requestCount      atomic.Uint64
	requestNanos      atomic.Uint64
	summaryHits       atomic.Uint64
	summaryMisses     atomic.Uint64
	invalidationCount atomic.Uint64
	dbQueryCount      atomic.Uint64
	dbQueryNanos      atomic.Uint64
}

// NewMetricsService registers the ledger collectors plus the Go runtime and process collectors.
func NewMetricsService() *MetricsService {
	m := &MetricsService{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "API requests by method, matched route and status code.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "API request latency by method and matched route.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"method", "route"}),
		summaryLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "summary_cache",
			Name:      "lookups_total",
			Help:      "Summary cache lookups by result (hit or miss).",
		}, []string{"result"}),
		invalidations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "summary_cache",
			Name:      "invalidations_total",
			Help:      "Times the summary cache was cleared after a mutation.",
		}),
		droppedKeys: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "summary_cache",
			Name:      "dropped_keys_total",
			Help:      "Cached summary listings removed by invalidation.",
		}),
		dbQueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Ledger query latency by repository operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"query"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "mutations_total",
			Help:      "Ledger mutations by operation.",
		}, []string{"operation"}),
		mutationCounts: make(map[string]uint64),
	}

	m.registry.MustRegister(
		m.requests,
		m.requestDuration,
		m.summaryLookups,
		m.invalidations,
		m.droppedKeys,
		m.dbQueryDuration,
		m.mutations,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m.handler = promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveRequest records one API request against its matched route.
func (m *MetricsService) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(d.Seconds())
	m.requestCount.Add(1)
	m.requestNanos.Add(uint64(d.Nanoseconds()))
}

// ObserveSummaryLookup counts a summary cache hit or miss.
func (m *MetricsService) ObserveSummaryLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.summaryLookups.WithLabelValues("hit").Inc()
		m.summaryHits.Add(1)
		return
	}
	m.summaryLookups.WithLabelValues("miss").Inc()
	m.summaryMisses.Add(1)
}

// ObserveSummaryInvalidation counts one cache clear that removed keys entries.
func (m *MetricsService) ObserveSummaryInvalidation(keys int) {
	if m == nil {
		return
	}
	m.invalidations.Inc()
	m.invalidationCount.Add(1)
	if keys > 0 {
		m.droppedKeys.Add(float64(keys))
	}
}

// ObserveDBQuery records the latency of one repository query.
func (m *MetricsService) ObserveDBQuery(label string, d time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(d.Seconds())
	m.dbQueryCount.Add(1)
	m.dbQueryNanos.Add(uint64(d.Nanoseconds()))
}

// ObserveMutation counts one ledger mutation under its operation label.
func (m *MetricsService) ObserveMutation(operation string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(operation).Inc()
	m.mutationMu.Lock()
	m.mutationCounts[operation]++
	m.mutationMu.Unlock()
}

// Snapshot returns the counters served by GET /system/metrics.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	snap := models.SystemMetrics{
		RequestsTotal:        m.requestCount.Load(),
		SummaryCacheHits:     m.summaryHits.Load(),
		SummaryCacheMisses:   m.summaryMisses.Load(),
		SummaryInvalidations: m.invalidationCount.Load(),
		DBQueryCount:         m.dbQueryCount.Load(),
		GeneratedAt:          time.Now().UTC(),
	}
	snap.AverageRequestDurationMs = averageMillis(m.requestNanos.Load(), snap.RequestsTotal)
	snap.AverageDBQueryDurationMs = averageMillis(m.dbQueryNanos.Load(), snap.DBQueryCount)
	if lookups := snap.SummaryCacheHits + snap.SummaryCacheMisses; lookups > 0 {
		snap.SummaryCacheHitRatio = float64(snap.SummaryCacheHits) / float64(lookups)
	}

	m.mutationMu.Lock()
	snap.Mutations = make(map[string]uint64, len(m.mutationCounts))
	for op, n := range m.mutationCounts {
		snap.Mutations[op] = n
	}
	m.mutationMu.Unlock()
	return snap
}

func averageMillis(totalNanos, count uint64) float64 {
	if count == 0 {
		return 0
	}
	return float64(totalNanos) / float64(count) / float64(time.Millisecond)
}

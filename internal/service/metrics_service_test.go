package service

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsSnapshotAggregates(t *testing.T) {
	m := NewMetricsService()
	m.ObserveRequest("GET", "/api/v1/summaries", 200, 10*time.Millisecond)
	m.ObserveRequest("GET", "/api/v1/summaries", 200, 30*time.Millisecond)
	m.ObserveSummaryLookup(true)
	m.ObserveSummaryLookup(false)
	m.ObserveSummaryLookup(true)
	m.ObserveSummaryInvalidation(4)
	m.ObserveDBQuery("records.list", 4*time.Millisecond)
	m.ObserveMutation("create")
	m.ObserveMutation("create")
	m.ObserveMutation("reset")

	snap := m.Snapshot()
	assert.Equal(t, uint64(2), snap.RequestsTotal)
	assert.InDelta(t, 20.0, snap.AverageRequestDurationMs, 0.001)
	assert.Equal(t, uint64(2), snap.SummaryCacheHits)
	assert.Equal(t, uint64(1), snap.SummaryCacheMisses)
	assert.InDelta(t, 2.0/3.0, snap.SummaryCacheHitRatio, 0.0001)
	assert.Equal(t, uint64(1), snap.SummaryInvalidations)
	assert.Equal(t, uint64(1), snap.DBQueryCount)
	assert.InDelta(t, 4.0, snap.AverageDBQueryDurationMs, 0.001)
	assert.Equal(t, map[string]uint64{"create": 2, "reset": 1}, snap.Mutations)
}

func TestMetricsHandlerUsesLedgerNames(t *testing.T) {
	m := NewMetricsService()
	m.ObserveMutation("delete")
	m.ObserveRequest("POST", "/api/v1/records", 201, time.Millisecond)
	m.ObserveSummaryLookup(false)
	m.ObserveSummaryInvalidation(2)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	text := string(body)
	assert.Contains(t, text, `merit_mutations_total{operation="delete"} 1`)
	assert.Contains(t, text, `merit_http_requests_total{method="POST",route="/api/v1/records",status="201"} 1`)
	assert.Contains(t, text, `merit_summary_cache_lookups_total{result="miss"} 1`)
	assert.Contains(t, text, "merit_summary_cache_invalidations_total 1")
	assert.Contains(t, text, "merit_summary_cache_dropped_keys_total 2")
	assert.Contains(t, text, "go_goroutines")
	assert.NotContains(t, text, "cache_hit_ratio")
}

func TestNilMetricsServiceIsSafe(t *testing.T) {
	var m *MetricsService
	m.ObserveMutation("create")
	m.ObserveDBQuery("x", time.Millisecond)
	m.ObserveRequest("GET", "/", 200, time.Millisecond)
	m.ObserveSummaryLookup(true)
	m.ObserveSummaryInvalidation(1)
	assert.Empty(t, m.Snapshot().Mutations)
}

package models

import "time"

// SystemMetrics is a JSON snapshot of the in-process counters.
type SystemMetrics struct {
	RequestsTotal            uint64            `json:"requests_total"`
	AverageRequestDurationMs float64           `json:"average_request_duration_ms"`
	SummaryCacheHits         uint64            `json:"summary_cache_hits"`
	SummaryCacheMisses       uint64            `json:"summary_cache_misses"`
	SummaryCacheHitRatio     float64           `json:"summary_cache_hit_ratio"`
	SummaryInvalidations     uint64            `json:"summary_invalidations"`
	DBQueryCount             uint64            `json:"db_query_count"`
	AverageDBQueryDurationMs float64           `json:"average_db_query_duration_ms"`
	Mutations                map[string]uint64 `json:"mutations"`
	GeneratedAt              time.Time         `json:"generated_at"`
}

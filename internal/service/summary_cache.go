package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-merit/internal/models"
	appErrors "github.com/noah-isme/sma-merit/pkg/errors"
)

type summaryStore interface {
	GetSummaries(ctx context.Context, term string) ([]models.Summary, error)
	SetSummaries(ctx context.Context, term string, summaries []models.Summary, ttl time.Duration) error
	InvalidateSummaries(ctx context.Context) (int, error)
}

// SummaryCache holds summary listings keyed by the normalised search term.
// Store failures degrade to misses; the ledger stays the source of truth.
type SummaryCache struct {
	store   summaryStore
	metrics *MetricsService
	ttl     time.Duration
	logger  *zap.Logger
	enabled bool
}

// NewSummaryCache constructs a cache over store. A disabled cache never hits.
func NewSummaryCache(store summaryStore, metrics *MetricsService, ttl time.Duration, logger *zap.Logger, enabled bool) *SummaryCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SummaryCache{store: store, metrics: metrics, ttl: ttl, logger: logger, enabled: enabled}
}

// Enabled reports whether lookups can hit.
func (c *SummaryCache) Enabled() bool {
	return c != nil && c.enabled && c.store != nil
}

// Lookup returns the cached listing for term, if any.
func (c *SummaryCache) Lookup(ctx context.Context, term string) ([]models.Summary, bool) {
	if !c.Enabled() {
		return nil, false
	}
	term = models.RecordFilter{Term: term}.Normalized()
	summaries, err := c.store.GetSummaries(ctx, term)
	if err != nil {
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			c.logger.Warn("summary cache read failed", zap.String("term", term), zap.Error(err))
		}
		c.metrics.ObserveSummaryLookup(false)
		return nil, false
	}
	c.metrics.ObserveSummaryLookup(true)
	return summaries, true
}

// Store caches summaries for term. Failures are logged only.
func (c *SummaryCache) Store(ctx context.Context, term string, summaries []models.Summary) {
	if !c.Enabled() {
		return
	}
	term = models.RecordFilter{Term: term}.Normalized()
	if err := c.store.SetSummaries(ctx, term, summaries, c.ttl); err != nil {
		c.logger.Warn("summary cache write failed", zap.String("term", term), zap.Error(err))
	}
}

// Invalidate drops every cached listing. Called after each ledger mutation.
func (c *SummaryCache) Invalidate(ctx context.Context) {
	if !c.Enabled() {
		return
	}
	n, err := c.store.InvalidateSummaries(ctx)
	if err != nil {
		c.logger.Warn("summary cache invalidation failed", zap.Error(err))
	}
	c.metrics.ObserveSummaryInvalidation(n)
}

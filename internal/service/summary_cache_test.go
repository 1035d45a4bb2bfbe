package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-merit/internal/models"
)

func TestSummaryCacheStoreFailureIsMiss(t *testing.T) {
	store := &memorySummaryStore{getErr: errors.New("redis down")}
	metrics := NewMetricsService()
	cache := NewSummaryCache(store, metrics, time.Minute, zap.NewNop(), true)

	got, ok := cache.Lookup(context.Background(), "Kim")
	assert.False(t, ok)
	assert.Nil(t, got)
	assert.Equal(t, uint64(1), metrics.Snapshot().SummaryCacheMisses)
}

func TestSummaryCacheKeysByNormalisedTerm(t *testing.T) {
	store := &memorySummaryStore{}
	cache := NewSummaryCache(store, nil, 0, nil, true)
	ctx := context.Background()

	cache.Store(ctx, "  KIM ", []models.Summary{{StudentID: "1"}})
	got, ok := cache.Lookup(ctx, "kim")
	assert.True(t, ok)
	assert.Len(t, got, 1)

	_, ok = cache.Lookup(ctx, "")
	assert.False(t, ok)

	cache.Invalidate(ctx)
	_, ok = cache.Lookup(ctx, "kim")
	assert.False(t, ok)
}

func TestSummaryCacheDisabledNeverTouchesStore(t *testing.T) {
	store := &memorySummaryStore{}
	cache := NewSummaryCache(store, nil, time.Minute, zap.NewNop(), false)
	ctx := context.Background()

	cache.Store(ctx, "kim", []models.Summary{{StudentID: "1"}})
	_, ok := cache.Lookup(ctx, "kim")
	cache.Invalidate(ctx)

	assert.False(t, ok)
	assert.Empty(t, store.values)
	assert.Empty(t, store.terms)
	assert.Zero(t, store.invalidations)

	var none *SummaryCache
	_, ok = none.Lookup(ctx, "kim")
	assert.False(t, ok)
	none.Store(ctx, "kim", nil)
	none.Invalidate(ctx)
}

package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-merit/internal/models"
	appErrors "github.com/noah-isme/sma-merit/pkg/errors"
)

const (
	summaryKeyPrefix   = "merit:summaries:"
	summaryScanBatch   = 100
	unfilteredTermSlot = "all"
)

// SummaryStore keeps summary listings in redis, one JSON value per search term.
// A store without a client behaves as permanently empty.
type SummaryStore struct {
	client *redis.Client
	logger *zap.Logger
}

// NewSummaryStore constructs a store. client may be nil.
func NewSummaryStore(client *redis.Client, logger *zap.Logger) *SummaryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SummaryStore{client: client, logger: logger}
}

// summaryKey maps an already normalised term to its key. Terms live under "q:" so
// no search can collide with the unfiltered slot.
func summaryKey(term string) string {
	if term == "" {
		return summaryKeyPrefix + unfilteredTermSlot
	}
	return summaryKeyPrefix + "q:" + term
}

// GetSummaries loads the listing cached for term. Returns ErrCacheMiss when absent.
func (s *SummaryStore) GetSummaries(ctx context.Context, term string) ([]models.Summary, error) {
	if s.client == nil {
		return nil, appErrors.ErrCacheMiss
	}
	key := summaryKey(term)
	raw, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, appErrors.ErrCacheMiss
		}
		return nil, fmt.Errorf("get summaries %s: %w", key, err)
	}
	var summaries []models.Summary
	if err := json.Unmarshal(raw, &summaries); err != nil {
		return nil, fmt.Errorf("decode summaries %s: %w", key, err)
	}
	return summaries, nil
}

// SetSummaries caches the listing for term until ttl passes.
func (s *SummaryStore) SetSummaries(ctx context.Context, term string, summaries []models.Summary, ttl time.Duration) error {
	if s.client == nil {
		return nil
	}
	if summaries == nil {
		summaries = []models.Summary{}
	}
	payload, err := json.Marshal(summaries)
	if err != nil {
		return fmt.Errorf("encode summaries: %w", err)
	}
	key := summaryKey(term)
	if err := s.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("set summaries %s: %w", key, err)
	}
	return nil
}

// InvalidateSummaries drops every cached listing and reports how many keys went.
func (s *SummaryStore) InvalidateSummaries(ctx context.Context) (int, error) {
	if s.client == nil {
		return 0, nil
	}
	removed := 0
	batch := make([]string, 0, summaryScanBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := s.client.Del(ctx, batch...).Result()
		if err != nil {
			return fmt.Errorf("delete summaries: %w", err)
		}
		removed += int(n)
		batch = batch[:0]
		return nil
	}

	iter := s.client.Scan(ctx, 0, summaryKeyPrefix+"*", summaryScanBatch).Iterator()
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == summaryScanBatch {
			if err := flush(); err != nil {
				return removed, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("scan summaries: %w", err)
	}
	if err := flush(); err != nil {
		return removed, err
	}
	s.logger.Debug("summary cache cleared", zap.Int("keys", removed))
	return removed, nil
}

// Close releases the redis connection if there is one.
func (s *SummaryStore) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"goldtrade/internal/domain"
)

// DefaultQuoteKey is where the latest quotes are stored
const DefaultQuoteKey = "gold:quote"

// QuoteCache stores the latest quotes in Redis as JSON
type QuoteCache struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

// NewQuoteCache creates a new QuoteCache
func NewQuoteCache(rdb *redis.Client, ttl time.Duration) *QuoteCache {
	return &QuoteCache{rdb: rdb, key: DefaultQuoteKey, ttl: ttl}
}

// Get returns the cached quotes or domain.ErrNotFound
func (c *QuoteCache) Get(ctx context.Context) ([]domain.Quote, error) {
	raw, err := c.rdb.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read quotes: %w", err)
	}

	var quotes []domain.Quote
	if err := json.Unmarshal(raw, &quotes); err != nil {
		return nil, fmt.Errorf("failed to decode quotes: %w", err)
	}
	return quotes, nil
}

// Set replaces the cached quotes
func (c *QuoteCache) Set(ctx context.Context, quotes []domain.Quote) error {
	raw, err := json.Marshal(quotes)
	if err != nil {
		return fmt.Errorf("failed to encode quotes: %w", err)
	}
	if err := c.rdb.Set(ctx, c.key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write quotes: %w", err)
	}
	return nil
}

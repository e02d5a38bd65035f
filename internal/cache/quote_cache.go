// Package cache keeps the latest quote per (ASIN, marketplace) in Redis so
// repeated evaluations do not hit Postgres for the hot pointer. The cache
// is strictly an accelerator: any Redis failure reads through to the store.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/quantrail/merchantiq/internal/models"
)

const keyPrefix = "latest_quote:"

// QuoteCache is a read-through Redis cache for latest quotes.
type QuoteCache struct {
	redis  *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

// NewQuoteCache creates a cache with the given TTL.
func NewQuoteCache(client *redis.Client, ttl time.Duration, logger *logrus.Logger) *QuoteCache {
	return &QuoteCache{redis: client, ttl: ttl, logger: logger}
}

func key(asin, marketplace string) string {
	return keyPrefix + asin + ":" + marketplace
}

// Get returns the cached quote and whether it was present.
func (c *QuoteCache) Get(ctx context.Context, asin, marketplace string) (models.Quote, bool) {
	data, err := c.redis.Get(ctx, key(asin, marketplace)).Result()
	if err == redis.Nil {
		return models.Quote{}, false
	}
	if err != nil {
		c.logger.WithError(err).Debug("Quote cache read failed")
		return models.Quote{}, false
	}

	var q models.Quote
	if err := json.Unmarshal([]byte(data), &q); err != nil {
		c.logger.WithError(err).Warn("Dropping undecodable quote cache entry")
		c.Invalidate(ctx, asin, marketplace)
		return models.Quote{}, false
	}
	return q, true
}

// Set stores a quote under the configured TTL.
func (c *QuoteCache) Set(ctx context.Context, quote models.Quote) {
	data, err := json.Marshal(quote)
	if err != nil {
		c.logger.WithError(err).Warn("Failed to encode quote for cache")
		return
	}
	if err := c.redis.Set(ctx, key(quote.ASIN, quote.Marketplace), data, c.ttl).Err(); err != nil {
		c.logger.WithError(err).Debug("Quote cache write failed")
	}
}

// Invalidate drops a cached quote.
func (c *QuoteCache) Invalidate(ctx context.Context, asin, marketplace string) {
	if err := c.redis.Del(ctx, key(asin, marketplace)).Err(); err != nil {
		c.logger.WithError(err).Debug("Quote cache invalidation failed")
	}
}

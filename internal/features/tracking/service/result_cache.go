package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"trackbot/internal/core/cache"
	"trackbot/internal/core/logger"
	"trackbot/internal/features/tracking/domain"

	"go.uber.org/zap"
)

// ResultCache stores normalized tracking results keyed by carrier and
// tracking number, shielding carrier APIs from repeated lookups.
type ResultCache struct {
	cache cache.Cache
	ttl   time.Duration
}

// NewResultCache creates a ResultCache over a cache backend.
func NewResultCache(c cache.Cache, ttl time.Duration) *ResultCache {
	return &ResultCache{cache: c, ttl: ttl}
}

func resultKey(carrier, trackingNumber string) string {
	return "tracking:" + carrier + ":" + trackingNumber
}

// Get returns a cached result and whether one was present. Cache backend
// failures degrade to a miss; the carrier lookup still happens.
func (c *ResultCache) Get(carrier, trackingNumber string) (domain.Result, bool) {
	data, err := c.cache.Get(context.Background(), resultKey(carrier, trackingNumber))
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			logger.Get().Warn("Result cache read failed", zap.Error(err))
		}
		return domain.Result{}, false
	}

	var result domain.Result
	if err := json.Unmarshal(data, &result); err != nil {
		logger.Get().Warn("Result cache entry corrupt", zap.Error(err))
		return domain.Result{}, false
	}
	return result, true
}

// Put stores a result. Backend failures are logged and swallowed.
func (c *ResultCache) Put(carrier, trackingNumber string, result domain.Result) {
	data, err := json.Marshal(result)
	if err != nil {
		logger.Get().Warn("Failed to marshal result for cache", zap.Error(err))
		return
	}
	if err := c.cache.Set(context.Background(), resultKey(carrier, trackingNumber), data, c.ttl); err != nil {
		logger.Get().Warn("Result cache write failed", zap.Error(err))
	}
}

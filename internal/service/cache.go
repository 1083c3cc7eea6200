package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const analyticsCacheKey = "analytics:tutorials"

func studentDashboardKey(studentID uint) string {
	return fmt.Sprintf("dashboard:student:%d", studentID)
}

func executiveDashboardKey(userID uint) string {
	return fmt.Sprintf("dashboard:executive:%d", userID)
}

// readCache decodes a cached JSON value. Misses and decode failures report false.
func readCache(ctx context.Context, cache *redis.Client, logger zerolog.Logger, key string, target interface{}) bool {
	if cache == nil {
		return false
	}

	cached, err := cache.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			logger.Warn().Err(err).Str("cache_key", key).Msg("failed to read cache")
		}
		return false
	}

	if err := json.Unmarshal([]byte(cached), target); err != nil {
		logger.Warn().Err(err).Str("cache_key", key).Msg("discarding malformed cache entry")
		return false
	}
	return true
}

func writeCache(ctx context.Context, cache *redis.Client, logger zerolog.Logger, key string, value interface{}, ttl time.Duration) {
	if cache == nil {
		return
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := cache.Set(ctx, key, payload, ttl).Err(); err != nil {
		logger.Warn().Err(err).Str("cache_key", key).Msg("failed to store cache")
	}
}

func invalidateCache(ctx context.Context, cache *redis.Client, logger zerolog.Logger, keys ...string) {
	if cache == nil || len(keys) == 0 {
		return
	}
	if err := cache.Del(ctx, keys...).Err(); err != nil {
		logger.Warn().Err(err).Strs("cache_keys", keys).Msg("failed to invalidate cache")
	}
}

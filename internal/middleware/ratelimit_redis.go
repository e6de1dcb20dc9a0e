package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRateLimitStore implements RateLimitStore backed by Redis, allowing
// rate limits to be shared across server instances. It uses a fixed window
// counter (INCR with an expiry set on the first hit of each window).
//
// The store fails open: if Redis is unreachable, requests are allowed and
// the failure is logged and counted, so a cache outage never takes the API
// down with it.
type RedisRateLimitStore struct {
	client  *redis.Client
	logger  *slog.Logger
	metrics *Metrics
}

// NewRedisRateLimitStore creates a Redis-backed rate limit store. logger and
// metrics may be nil.
func NewRedisRateLimitStore(client *redis.Client, logger *slog.Logger, metrics *Metrics) *RedisRateLimitStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisRateLimitStore{
		client:  client,
		logger:  logger,
		metrics: metrics,
	}
}

// Allow checks if a request from the given key should be allowed.
// Implements the RateLimitStore interface.
func (s *RedisRateLimitStore) Allow(ctx context.Context, key string, config RateLimitConfig) (bool, int) {
	redisKey := "ratelimit:" + key

	count, err := s.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return s.failOpen(err)
	}

	if count == 1 {
		// First hit of this window; start the clock.
		if err := s.client.Expire(ctx, redisKey, config.WindowDuration).Err(); err != nil {
			return s.failOpen(err)
		}
	}

	if count <= int64(config.RequestsPerWindow) {
		return true, 0
	}

	ttl, err := s.client.TTL(ctx, redisKey).Result()
	if err != nil || ttl < 0 {
		// Treat a missing expiry as a fresh window to avoid locking the key
		// out forever.
		return true, 0
	}

	retryAfter := int(ttl / time.Second)
	if retryAfter <= 0 {
		retryAfter = 1
	}
	return false, retryAfter
}

func (s *RedisRateLimitStore) failOpen(err error) (bool, int) {
	s.logger.Warn("redis rate limit check failed, allowing request", "error", err)
	if s.metrics != nil {
		s.metrics.IncRateLimitRedisErrors()
	}
	return true, 0
}

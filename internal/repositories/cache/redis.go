package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient builds a client from a redis:// or rediss:// URL.
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	return redis.NewClient(opts), nil
}

// HealthCheck pings redis. A disabled cache is always healthy.
func (s *CacheService) HealthCheck(ctx context.Context) error {
	if s == nil {
		return nil
	}
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	return nil
}

// GetStats exposes the connection pool counters.
func (s *CacheService) GetStats(ctx context.Context) *redis.PoolStats {
	if s == nil {
		return &redis.PoolStats{}
	}
	return s.client.PoolStats()
}

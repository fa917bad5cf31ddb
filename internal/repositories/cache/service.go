package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"smartcoffee/internal/models"

	"github.com/redis/go-redis/v9"
)

// CacheService stores JSON values in redis. A nil *CacheService is a valid
// disabled cache: reads miss and writes are dropped.
type CacheService struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCacheService(client *redis.Client, defaultTTL time.Duration) *CacheService {
	return &CacheService{
		client: client,
		ttl:    defaultTTL,
	}
}

// Base operations
func (s *CacheService) Set(ctx context.Context, key string, value interface{}) error {
	if s == nil {
		return nil
	}
	return s.SetWithTTL(ctx, key, value, s.ttl)
}

func (s *CacheService) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if s == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if s == nil {
		return false, nil
	}
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get cache value: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return true, nil
}

func (s *CacheService) Delete(ctx context.Context, keys ...string) error {
	if s == nil {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

// Key generation
func (s *CacheService) GenerateKey(entityType, keyType string, value interface{}) string {
	return fmt.Sprintf("%s:%s:%v", entityType, keyType, value)
}

// Catalog caching
func (s *CacheService) GetClientData(ctx context.Context) (*models.ClientData, bool, error) {
	var data models.ClientData
	found, err := s.Get(ctx, s.GenerateKey("catalog", "client", "data"), &data)
	if err != nil || !found {
		return nil, false, err
	}
	return &data, true, nil
}

func (s *CacheService) SetClientData(ctx context.Context, data *models.ClientData) error {
	return s.SetWithTTL(ctx, s.GenerateKey("catalog", "client", "data"), data, 10*time.Minute)
}

func (s *CacheService) InvalidateClientData(ctx context.Context) error {
	return s.Delete(ctx, s.GenerateKey("catalog", "client", "data"))
}

// Sale status caching. Only terminal statuses are stored, so a cached value
// never goes stale.
func (s *CacheService) GetSaleStatus(ctx context.Context, chargeID int64) (string, bool, error) {
	var status string
	found, err := s.Get(ctx, s.GenerateKey("sale", "status", chargeID), &status)
	if err != nil || !found {
		return "", false, err
	}
	return status, true, nil
}

func (s *CacheService) SetSaleStatus(ctx context.Context, chargeID int64, status string) error {
	if !models.IsTerminalSaleStatus(status) {
		return nil
	}
	return s.Set(ctx, s.GenerateKey("sale", "status", chargeID), status)
}

// AcquireLock takes a best-effort distributed lock. Without redis every
// caller gets the lock.
func (s *CacheService) AcquireLock(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	if s == nil {
		return true, nil
	}
	return s.client.SetNX(ctx, s.GenerateKey("lock", "name", name), time.Now().UnixNano(), ttl).Result()
}

func (s *CacheService) ReleaseLock(ctx context.Context, name string) error {
	return s.Delete(ctx, s.GenerateKey("lock", "name", name))
}

// Close closes the Redis client connection
func (s *CacheService) Close() error {
	if s == nil {
		return nil
	}
	return s.client.Close()
}

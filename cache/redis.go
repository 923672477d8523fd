package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"critiq/logger"
	"critiq/metrics"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// ReviewFeedTTL bounds how stale the public review feed may be.
	ReviewFeedTTL = 30 * time.Second

	ReviewFeedPrefix = "reviews:feed:"
)

// Store is a small JSON cache on top of redis. A nil *Store is valid and
// behaves as an always-missing cache.
type Store struct {
	client *redis.Client
}

// NewRedis connects to addr and verifies the connection.
func NewRedis(ctx context.Context, addr, password string, db int) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		MaxRetries:   3,
		PoolSize:     10,
		MinIdleConns: 2,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	logger.Log.Info("✅ Redis client connected", zap.String("address", addr))
	return &Store{client: client}, nil
}

// NewFromClient wraps an existing client.
func NewFromClient(client *redis.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Enabled() bool {
	return s != nil && s.client != nil
}

func (s *Store) Close() error {
	if !s.Enabled() {
		return nil
	}
	return s.client.Close()
}

// GetJSON decodes the value at key into dst. It reports false on a miss.
func (s *Store) GetJSON(ctx context.Context, key string, dst interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}

	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.Get().CacheRequests.WithLabelValues("miss").Inc()
		return false, nil
	}
	if err != nil {
		metrics.Get().CacheRequests.WithLabelValues("error").Inc()
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		metrics.Get().CacheRequests.WithLabelValues("error").Inc()
		return false, err
	}

	metrics.Get().CacheRequests.WithLabelValues("hit").Inc()
	return true, nil
}

func (s *Store) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, raw, ttl).Err()
}

// DelPrefix deletes every key starting with prefix.
func (s *Store) DelPrefix(ctx context.Context, prefix string) error {
	if !s.Enabled() {
		return nil
	}

	iter := s.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

// Incr increments key and starts its expiry window on the first hit,
// returning the new value.
func (s *Store) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	n, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		if err := s.client.Expire(ctx, key, window).Err(); err != nil {
			logger.Log.Warn("Failed to set counter expiration", zap.String("key", key), zap.Error(err))
		}
	}
	return n, nil
}

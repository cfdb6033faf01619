// Package cache provides the raw key/value stores backing the layered cache
// service: a Redis-backed store for production and an in-memory store for
// development and tests.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// RedisStore implements ports.CacheStore on top of Redis. Every call carries
// a bounded timeout and runs through a circuit breaker so a degraded backend
// fails fast instead of stalling the read-path fallback chain.
type RedisStore struct {
	client  *redis.Client
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration
	logger  *zap.Logger
}

// RedisOptions configures the Redis store.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Timeout  time.Duration
}

// NewRedisStore creates a Redis-backed cache store.
func NewRedisStore(opts RedisOptions, logger *zap.Logger) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return NewRedisStoreWithClient(client, opts.Timeout, logger)
}

// NewRedisStoreWithClient wraps an existing client. Used by tests that back
// the store with miniredis.
func NewRedisStoreWithClient(client *redis.Client, timeout time.Duration, logger *zap.Logger) *RedisStore {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "redis-cache",
		Timeout: 10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Cache circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &RedisStore{
		client:  client,
		breaker: breaker,
		timeout: timeout,
		logger:  logger,
	}
}

// Get returns the stored bytes and whether the key was present. Backend
// failures are returned as errors; the layered cache treats them as misses.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	result, err := s.breaker.Execute(func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		return s.client.Get(ctx, key).Bytes()
	})
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return result.([]byte), true, nil
}

// Set stores value under key with the given TTL.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		return nil, s.client.Set(ctx, key, value, ttl).Err()
	})
	return err
}

// Delete removes key. Deleting a missing key is not an error.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		return nil, s.client.Del(ctx, key).Err()
	})
	return err
}

// Ping verifies connectivity, used by the readiness check.
func (s *RedisStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

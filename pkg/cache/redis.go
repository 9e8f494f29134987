package cache

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const backendRedis = "redis"

// RedisBackend stores counts in Redis.
type RedisBackend struct {
	redis *redis.Client
}

var (
	_ Backend = (*RedisBackend)(nil)
	_ Atomic  = (*RedisBackend)(nil)
)

// NewRedisClient creates a Redis client from a redis:// URL or a plain
// host:port address.
func NewRedisClient(addr string) (*redis.Client, error) {
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		opts, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return redis.NewClient(opts), nil
	}
	return redis.NewClient(&redis.Options{Addr: addr}), nil
}

// NewRedisBackend creates a backend on top of redisClient.
func NewRedisBackend(redisClient *redis.Client) *RedisBackend {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisBackend{
		redis: redisClient,
	}
}

// Get returns the count stored under key.
func (b *RedisBackend) Get(ctx context.Context, key string) (int64, error) {
	value, err := b.redis.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			CacheMisses.WithLabelValues(backendRedis).Inc()
			return 0, ErrCacheMiss
		}
		CacheErrors.WithLabelValues(backendRedis, "get").Inc()
		return 0, fmt.Errorf("redis get: %w", err)
	}
	return parseCount(value, "get")
}

// Set stores value under key with ttl.
func (b *RedisBackend) Set(ctx context.Context, key string, value int64, ttl time.Duration) error {
	if err := b.redis.Set(ctx, key, value, ttl).Err(); err != nil {
		CacheErrors.WithLabelValues(backendRedis, "set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes key.
func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	if err := b.redis.Del(ctx, key).Err(); err != nil {
		CacheErrors.WithLabelValues(backendRedis, "delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// IncrBy increments key by delta and refreshes its ttl in one transaction.
func (b *RedisBackend) IncrBy(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	pipe := b.redis.TxPipeline()
	incr := pipe.IncrBy(ctx, key, delta)
	if ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		CacheErrors.WithLabelValues(backendRedis, "incr").Inc()
		return 0, fmt.Errorf("redis incrby: %w", err)
	}
	return incr.Val(), nil
}

// GetDel returns the count under key and deletes it (Redis >= 6.2).
func (b *RedisBackend) GetDel(ctx context.Context, key string) (int64, error) {
	value, err := b.redis.GetDel(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			CacheMisses.WithLabelValues(backendRedis).Inc()
			return 0, ErrCacheMiss
		}
		CacheErrors.WithLabelValues(backendRedis, "getdel").Inc()
		return 0, fmt.Errorf("redis getdel: %w", err)
	}
	return parseCount(value, "getdel")
}

// Ping checks the Redis connection.
func (b *RedisBackend) Ping(ctx context.Context) error {
	if err := b.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Client returns the underlying Redis client.
func (b *RedisBackend) Client() *redis.Client {
	return b.redis
}

func parseCount(value, operation string) (int64, error) {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		CacheErrors.WithLabelValues(backendRedis, operation).Inc()
		return 0, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	return n, nil
}

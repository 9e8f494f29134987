// Package cache provides the shared, TTL-capable key/value store that holds
// buffered counter state between requests.
//
// Two backends are available:
//
// - RedisBackend: shared by every process that talks to the same Redis.
// Implements Atomic with INCRBY/EXPIRE in a MULTI block and GETDEL.
// - MemoryBackend: in-process LRU with a fixed expiry. Only shared between
// requests of one process.
//
// # Basic Usage
//
//	// Create Redis client
//	redisClient, err := cache.NewRedisClient("redis://localhost:6379/0")
//	if err != nil {
//		return err
//	}
//
//	backend := cache.NewRedisBackend(redisClient)
//
//	// Wait for Redis to come up
//	if err := cache.PingWithRetry(ctx, backend, cache.DefaultRetryConfig(), logger); err != nil {
//		return err
//	}
//
//	key := cache.Key{Group: "metrics", Name: "save_post"}
//	n, err := backend.IncrBy(ctx, key.String(), 1, 0)
//
// # Missing Values
//
// Get and GetDel return ErrCacheMiss for absent or expired keys. Callers that
// count treat a miss as 0.
//
// # Metrics
//
// The backends export Prometheus metrics about themselves:
//
//   - wpexporter_cache_misses_total{backend} - Cache misses
//   - wpexporter_cache_errors_total{backend,operation} - Cache operation errors
//   - wpexporter_cache_connect_retries_total - Startup ping retries
package cache

package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheMisses tracks reads of absent or expired keys by backend
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wpexporter_cache_misses_total",
			Help: "Total number of buffered counter cache misses",
		},
		[]string{"backend"}, // "redis", "memory"
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wpexporter_cache_errors_total",
			Help: "Total number of buffered counter cache operation errors",
		},
		[]string{"backend", "operation"}, // "get", "set", "delete", "incr", "getdel"
	)

	// ConnectRetries tracks startup ping retries
	ConnectRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wpexporter_cache_connect_retries_total",
			Help: "Total number of cache connection retries",
		},
	)
)

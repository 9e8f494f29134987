package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/axelspringer/wp-mu-prometheus/pkg/cache"
	"github.com/axelspringer/wp-mu-prometheus/pkg/config"
	"github.com/axelspringer/wp-mu-prometheus/pkg/counter"
	"github.com/axelspringer/wp-mu-prometheus/pkg/events"
	"github.com/axelspringer/wp-mu-prometheus/pkg/exporter"
	"github.com/axelspringer/wp-mu-prometheus/pkg/labels"
	"github.com/axelspringer/wp-mu-prometheus/pkg/logging"
	"github.com/axelspringer/wp-mu-prometheus/pkg/metrics"
	"github.com/axelspringer/wp-mu-prometheus/pkg/route"
	"github.com/axelspringer/wp-mu-prometheus/pkg/site"
)

// Cache backend names.
const (
	backendRedis  = "redis"
	backendMemory = "memory"
)

// app wires the site, the exporter plugin and their shared state.
type app struct {
	cfg    config.Config
	logger zerolog.Logger

	redis       *redis.Client
	backend     cache.Backend
	backendName string

	rules    route.RuleStore
	store    *counter.Store
	host     exporter.HostState
	exporter *exporter.Exporter
	bus      *events.Bus
	site     *site.Site
}

// newApp builds the application for cfg. host may be nil to read the state
// file named in cfg.
func newApp(ctx context.Context, cfg config.Config, host exporter.HostState, retry cache.RetryConfig) (*app, error) {
	a := &app{
		cfg:    cfg,
		logger: logging.NewLogger("app"),
		host:   host,
	}
	if a.host == nil {
		a.host = site.NewStateFile(cfg.StateFile)
	}

	if cfg.RedisURL != "" {
		client, err := cache.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		a.redis = client
		a.backend = cache.NewRedisBackend(client)
		a.backendName = backendRedis
		a.rules = route.NewRedisRuleStore(client, route.DefaultRulesKey)

		if err := cache.PingWithRetry(ctx, a.backend, retry, logging.NewLogger("cache")); err != nil {
			client.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
	} else {
		a.backend = cache.NewMemoryBackend(cache.DefaultMemorySize, cfg.CacheTTL)
		a.backendName = backendMemory
		a.rules = route.NewMemoryRuleStore()
	}
	a.logger.Info().Str("backend", a.backendName).Msg("Cache backend selected")

	counterLogger := logging.NewLogger("counter")
	a.store = counter.New(a.backend, counter.Options{
		Namespace: cfg.CacheGroup,
		TTL:       cfg.CacheTTL,
		Logger:    &counterLogger,
	})

	a.exporter = exporter.New(
		exporter.OptionsFromConfig(cfg),
		a.host,
		a.store,
		labels.FromConfig(cfg.Env),
		logging.NewLogger("exporter"),
	)

	a.bus = events.NewBus()
	a.exporter.Attach(a.bus)

	a.site = site.New(route.NewTable(), a.rules, a.bus, logging.NewLogger("site"))
	a.site.Use(a.exporter)

	// A failed init leaves the metrics route unreachable but the site up.
	if err := a.site.Init(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("Site initialization incomplete")
	}

	metrics.SetBuildInfo(version, a.backendName)
	return a, nil
}

// Close releases the Redis connection, if any.
func (a *app) Close() error {
	if a.redis != nil {
		return a.redis.Close()
	}
	return nil
}

// Package config holds the exporter configuration.
//
// The configuration is built once at startup (see Load) and passed down to
// the components that need it. No other package reads the process
// environment.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/common/model"
)

// Environment variable names.
const (
	EnvLayer         = "WP_LAYER"
	EnvProject       = "PROJECT"
	EnvEnvironment   = "ENVIRONMENT"
	EnvListenAddr    = "LISTEN_ADDR"
	EnvAdminAddr     = "ADMIN_ADDR"
	EnvRedisURL      = "REDIS_URL"
	EnvCacheGroup    = "CACHE_GROUP"
	EnvCacheTTL      = "CACHE_TTL"
	EnvMetricsPath   = "METRICS_PATH"
	EnvMetricsPrefix = "METRICS_PREFIX"
	EnvTrackedEvents = "TRACKED_EVENTS"
	EnvStateFile     = "STATE_FILE"
	EnvLogLevel      = "LOG_LEVEL"
	EnvLogPretty     = "LOG_PRETTY"
)

// Environment describes where this process is deployed.
// All values are optional.
type Environment struct {
	Layer   string `yaml:"layer"`
	Project string `yaml:"project"`
	Name    string `yaml:"name"`
}

// Config holds the exporter configuration.
type Config struct {
	// Env supplies the uniform metric labels.
	Env Environment `yaml:"env"`

	// ListenAddr is the address of the host site.
	ListenAddr string `yaml:"listen_addr"`

	// AdminAddr serves self-telemetry and health checks. Empty disables it.
	AdminAddr string `yaml:"admin_addr"`

	// RedisURL selects the Redis cache backend (redis://... or host:port).
	// Empty means the in-process memory backend.
	RedisURL string `yaml:"redis_url"`

	// CacheGroup namespaces the buffered counter keys.
	CacheGroup string `yaml:"cache_group"`

	// CacheTTL expires buffered counters. 0 never expires.
	CacheTTL time.Duration `yaml:"cache_ttl"`

	// MetricsPath is the public path of the exposition endpoint.
	MetricsPath string `yaml:"metrics_path"`

	// MetricsPrefix is prepended to every exported metric name.
	MetricsPrefix string `yaml:"metrics_prefix"`

	// TrackedEvents are the domain events counted between scrapes.
	TrackedEvents []string `yaml:"tracked_events"`

	// StateFile is the YAML file describing the host state.
	StateFile string `yaml:"state_file"`

	LogLevel  string `yaml:"log_level"`
	LogPretty bool   `yaml:"log_pretty"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		ListenAddr:    ":8080",
		AdminAddr:     ":9090",
		CacheGroup:    "metrics",
		MetricsPath:   "/metrics",
		MetricsPrefix: "wp",
		TrackedEvents: []string{"save_post"},
		StateFile:     "state.yaml",
		LogLevel:      "info",
	}
}

// LookupFunc returns the value of a configuration key, like os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Load builds a Config from lookup, falling back to Default for unset keys.
// Missing label values resolve to empty strings.
func Load(lookup LookupFunc) (Config, error) {
	cfg := Default()

	get := func(key, defaultValue string) string {
		if value, ok := lookup(key); ok && value != "" {
			return value
		}
		return defaultValue
	}

	cfg.Env = Environment{
		Layer:   get(EnvLayer, ""),
		Project: get(EnvProject, ""),
		Name:    get(EnvEnvironment, ""),
	}
	cfg.ListenAddr = get(EnvListenAddr, cfg.ListenAddr)
	if value, ok := lookup(EnvAdminAddr); ok {
		cfg.AdminAddr = value
	}
	cfg.RedisURL = get(EnvRedisURL, "")
	cfg.CacheGroup = get(EnvCacheGroup, cfg.CacheGroup)
	cfg.MetricsPath = get(EnvMetricsPath, cfg.MetricsPath)
	cfg.MetricsPrefix = get(EnvMetricsPrefix, cfg.MetricsPrefix)
	cfg.StateFile = get(EnvStateFile, cfg.StateFile)
	cfg.LogLevel = get(EnvLogLevel, cfg.LogLevel)

	if events := get(EnvTrackedEvents, ""); events != "" {
		cfg.TrackedEvents = SplitList(events)
	}

	if ttl := get(EnvCacheTTL, ""); ttl != "" {
		d, err := ParseTTL(ttl)
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", EnvCacheTTL, err)
		}
		cfg.CacheTTL = d
	}

	if pretty := get(EnvLogPretty, ""); pretty != "" {
		b, err := strconv.ParseBool(pretty)
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", EnvLogPretty, err)
		}
		cfg.LogPretty = b
	}

	return cfg, cfg.Validate()
}

// Validate checks values that would make the exporter unusable.
func (c Config) Validate() error {
	if !strings.HasPrefix(c.MetricsPath, "/") || len(c.MetricsPath) < 2 {
		return fmt.Errorf("metrics path must start with / and not be the root (got %q)", c.MetricsPath)
	}
	if c.MetricsPrefix == "" {
		return fmt.Errorf("metrics prefix is required")
	}
	// Gauge suffixes are fixed lower-case words, so a valid prefix keeps
	// every gauge name inside the text format's name grammar.
	if !model.IsValidLegacyMetricName(c.MetricsPrefix) {
		return fmt.Errorf("invalid metrics prefix %q: must match [a-zA-Z_:][a-zA-Z0-9_:]*", c.MetricsPrefix)
	}
	if c.CacheGroup == "" {
		return fmt.Errorf("cache group is required")
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("cache ttl must be >= 0 (got %s)", c.CacheTTL)
	}
	for _, event := range c.TrackedEvents {
		if strings.ContainsAny(event, " :") {
			return fmt.Errorf("invalid tracked event %q", event)
		}
		if name := CounterName(c.MetricsPrefix, event); !model.IsValidLegacyMetricName(name) {
			return fmt.Errorf("invalid tracked event %q: metric name %q is not valid", event, name)
		}
	}
	return nil
}

// CounterName is the exported counter name of a tracked event.
func CounterName(prefix, event string) string {
	return prefix + "_" + event + "_count"
}

// ParseTTL accepts a Go duration ("90s") or a plain number of seconds ("90").
func ParseTTL(s string) (time.Duration, error) {
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(s)
}

// SplitList splits a comma separated list and drops empty items.
func SplitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Package metrics exposes the exporter's own telemetry.
//
// The wp_* metrics served on the host route are built per scrape and never
// touch this registry. The wpexporter_* metrics below describe the exporter
// itself; they are registered via promauto in their packages and served on
// the admin listener.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Gatherer collects the promauto metrics of every package.
var Gatherer = prometheus.DefaultGatherer

// BuildInfo reports the running version, always 1.
var BuildInfo = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "wpexporter_build_info",
		Help: "Build information of the running exporter",
	},
	[]string{"version", "cache_backend"},
)

// SetBuildInfo records the version and the selected cache backend.
func SetBuildInfo(version, cacheBackend string) {
	BuildInfo.Reset()
	BuildInfo.WithLabelValues(version, cacheBackend).Set(1)
}

// Handler serves Gatherer in the text exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Exporter Metrics (pkg/exporter):
//   - wpexporter_scrapes_total{result} (Counter): Scrapes by result (success, error)
//   - wpexporter_scrape_duration_seconds (Histogram): Time to build and render one scrape
//   - wpexporter_rule_flushes_total{result} (Counter): Rewrite rule flushes by result
//
// Buffered Counter Metrics (pkg/counter):
//   - wpexporter_events_buffered_total{event} (Counter): Events written to the cache
//   - wpexporter_events_drained_total{event} (Counter): Buffered events moved into scrapes
//
// Cache Metrics (pkg/cache):
//   - wpexporter_cache_misses_total{backend} (Counter): Reads of missing keys
//   - wpexporter_cache_errors_total{backend, operation} (Counter): Failed cache operations
//   - wpexporter_cache_connect_retries_total (Counter): Startup connection retries
//
// Build Metrics (pkg/metrics):
//   - wpexporter_build_info{version, cache_backend} (Gauge): Always 1
//
// Example Prometheus Queries:
//
//   # Events lost between buffering and scraping
//   sum(rate(wpexporter_events_buffered_total[5m])) - sum(rate(wpexporter_events_drained_total[5m]))
//
//   # Scrape error ratio
//   rate(wpexporter_scrapes_total{result="error"}[5m]) / rate(wpexporter_scrapes_total[5m])
//
//   # P95 scrape latency
//   histogram_quantile(0.95, rate(wpexporter_scrape_duration_seconds_bucket[5m]))
//
//   # Cache error rate
//   rate(wpexporter_cache_errors_total[5m])

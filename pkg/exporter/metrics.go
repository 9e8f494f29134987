package exporter

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ScrapesTotal tracks scrapes by result (success, error)
	ScrapesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wpexporter_scrapes_total",
			Help: "Total number of scrapes by result",
		},
		[]string{"result"},
	)

	// ScrapeDuration tracks the time to build and render one scrape
	ScrapeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wpexporter_scrape_duration_seconds",
			Help:    "Scrape duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
	)

	// RuleFlushes tracks rewrite rule flushes by result (success, error)
	RuleFlushes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wpexporter_rule_flushes_total",
			Help: "Total number of rewrite rule flushes by result",
		},
		[]string{"result"},
	)
)

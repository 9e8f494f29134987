package counter

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsBuffered tracks increments written to the cache by event
	EventsBuffered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wpexporter_events_buffered_total",
			Help: "Total number of domain events buffered in the cache",
		},
		[]string{"event"},
	)

	// EventsDrained tracks counts moved from the cache into a scrape
	EventsDrained = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wpexporter_events_drained_total",
			Help: "Total number of buffered domain events drained by scrapes",
		},
		[]string{"event"},
	)
)

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/axelspringer/wp-mu-prometheus/pkg/counter"
	"github.com/axelspringer/wp-mu-prometheus/pkg/metrics"
)

const readyTimeout = 2 * time.Second

// adminHandler serves self-telemetry, health checks and buffered counters.
func (a *app) adminHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /health", healthHandler)
	mux.HandleFunc("GET /ready", a.readyHandler)
	mux.HandleFunc("GET /debug/counters", a.countersHandler)
	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// readyHandler reports whether the cache backend answers.
func (a *app) readyHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := a.backend.Ping(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("Readiness check failed")
		http.Error(w, fmt.Sprintf("cache unavailable: %v", err), http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "READY")
}

type countersResponse struct {
	Backend   string          `json:"backend"`
	Namespace string          `json:"namespace"`
	Entries   []counter.Entry `json:"entries"`
}

// countersHandler lists the buffered counts without draining them.
func (a *app) countersHandler(w http.ResponseWriter, r *http.Request) {
	entries, err := a.store.Pending(r.Context(), a.exporter.Options().Events...)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(countersResponse{
		Backend:   a.backendName,
		Namespace: a.store.Namespace(),
		Entries:   entries,
	}); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to write counters")
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/axelspringer/wp-mu-prometheus/pkg/cache"
	"github.com/axelspringer/wp-mu-prometheus/pkg/config"
	"github.com/axelspringer/wp-mu-prometheus/pkg/logging"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 15 * time.Second
)

func newServeCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the site and the admin listener",
		Example: `  # In-memory counters, metrics on :8080/metrics
  wp-exporter serve --state-file state.yaml

  # Shared counters in Redis
  REDIS_URL=redis://localhost:6379/0 wp-exporter serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, *cfg)
		},
	}
}

// serve runs the site and admin servers until ctx is done.
func serve(ctx context.Context, cfg config.Config) error {
	a, err := newApp(ctx, cfg, nil, cache.DefaultRetryConfig())
	if err != nil {
		return err
	}
	defer a.Close()

	httpLogger := logging.NewLogger("http")
	servers := []*http.Server{{
		Addr:              cfg.ListenAddr,
		Handler:           logging.AccessLog(httpLogger, a.site),
		ReadHeaderTimeout: readHeaderTimeout,
	}}
	if cfg.AdminAddr != "" {
		servers = append(servers, &http.Server{
			Addr:              cfg.AdminAddr,
			Handler:           logging.AccessLog(httpLogger.With().Str("listener", "admin").Logger(), a.adminHandler()),
			ReadHeaderTimeout: readHeaderTimeout,
		})
	}

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		go func(srv *http.Server) {
			a.logger.Info().Str("addr", srv.Addr).Msg("Starting server")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("server %s: %w", srv.Addr, err)
			}
		}(srv)
	}

	select {
	case <-ctx.Done():
		a.logger.Info().Msg("Shutting down")
	case err = <-errCh:
		a.logger.Error().Err(err).Msg("Server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, srv := range servers {
		if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
			a.logger.Warn().Err(shutdownErr).Str("addr", srv.Addr).Msg("Shutdown failed")
		}
	}
	return err
}

package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/axelspringer/wp-mu-prometheus/pkg/config"
	"github.com/axelspringer/wp-mu-prometheus/pkg/logging"
	"github.com/axelspringer/wp-mu-prometheus/pkg/site"
)

// flagValues is bound to the command line flags. A flag only overrides the
// environment when it was set explicitly.
type flagValues struct {
	listenAddr    string
	adminAddr     string
	redisURL      string
	cacheGroup    string
	cacheTTL      string
	metricsPath   string
	metricsPrefix string
	events        []string
	stateFile     string
	logLevel      string
	logPretty     bool
}

func newRootCmd(lookup config.LookupFunc) *cobra.Command {
	var flags flagValues
	var cfg config.Config

	root := &cobra.Command{
		Use:   "wp-exporter",
		Short: "Serve host metrics in the Prometheus text format",
		Long: `wp-exporter runs a host site with the metrics exporter installed.

GET /metrics renders the host state and the domain events counted since the
last scrape. Events are buffered in Redis (REDIS_URL) or in process memory.

Configuration comes from environment variables; flags override them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(lookup)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := flags.apply(cmd, &loaded); err != nil {
				return err
			}
			if err := loaded.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			cfg = loaded

			logging.Setup(logging.FromSettings(cfg.LogLevel, cfg.LogPretty, cmd.ErrOrStderr()))
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.listenAddr, "listen", "", "Site listen address (env "+config.EnvListenAddr+")")
	pf.StringVar(&flags.adminAddr, "admin", "", "Admin listen address, empty disables (env "+config.EnvAdminAddr+")")
	pf.StringVar(&flags.redisURL, "redis-url", "", "Redis URL for buffered counters (env "+config.EnvRedisURL+")")
	pf.StringVar(&flags.cacheGroup, "cache-group", "", "Cache group of buffered counters (env "+config.EnvCacheGroup+")")
	pf.StringVar(&flags.cacheTTL, "cache-ttl", "", "Expiry of buffered counters, 0 never expires (env "+config.EnvCacheTTL+")")
	pf.StringVar(&flags.metricsPath, "metrics-path", "", "Path of the metrics route (env "+config.EnvMetricsPath+")")
	pf.StringVar(&flags.metricsPrefix, "prefix", "", "Metric name prefix (env "+config.EnvMetricsPrefix+")")
	pf.StringSliceVar(&flags.events, "events", nil, "Tracked domain events (env "+config.EnvTrackedEvents+")")
	pf.StringVar(&flags.stateFile, "state-file", "", "YAML file with the host state (env "+config.EnvStateFile+")")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error (env "+config.EnvLogLevel+")")
	pf.BoolVar(&flags.logPretty, "log-pretty", false, "Human readable logs (env "+config.EnvLogPretty+")")

	root.AddCommand(
		newServeCmd(&cfg),
		newConfigCmd(&cfg),
		newInitStateCmd(&cfg),
		newVersionCmd(),
	)
	return root
}

func (f *flagValues) apply(cmd *cobra.Command, cfg *config.Config) error {
	changed := cmd.Flags().Changed

	if changed("listen") {
		cfg.ListenAddr = f.listenAddr
	}
	if changed("admin") {
		cfg.AdminAddr = f.adminAddr
	}
	if changed("redis-url") {
		cfg.RedisURL = f.redisURL
	}
	if changed("cache-group") {
		cfg.CacheGroup = f.cacheGroup
	}
	if changed("cache-ttl") {
		ttl, err := config.ParseTTL(f.cacheTTL)
		if err != nil {
			return fmt.Errorf("--cache-ttl: %w", err)
		}
		cfg.CacheTTL = ttl
	}
	if changed("metrics-path") {
		cfg.MetricsPath = f.metricsPath
	}
	if changed("prefix") {
		cfg.MetricsPrefix = f.metricsPrefix
	}
	if changed("events") {
		cfg.TrackedEvents = f.events
	}
	if changed("state-file") {
		cfg.StateFile = f.stateFile
	}
	if changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if changed("log-pretty") {
		cfg.LogPretty = f.logPretty
	}
	return nil
}

func newConfigCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := *cfg
			out.RedisURL = redactURL(out.RedisURL)

			data, err := yaml.Marshal(out)
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

// redactURL hides the password of a redis:// URL.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	return u.Redacted()
}

func newInitStateCmd(cfg *config.Config) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init-state",
		Short: "Write an example host state file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(cfg.StateFile); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", cfg.StateFile)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}

			state := &site.State{
				Users:         1,
				ActivePlugins: []string{"wp-mu-prometheus/wp-mu-prometheus.php"},
				Posts:         map[string]int{"publish": 1, "draft": 0},
				Attachments:   0,
			}
			if err := site.NewStateFile(cfg.StateFile).Write(state); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", cfg.StateFile)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), version)
			return nil
		},
	}
}

// Package exporter serves the host's metrics on a dedicated route.
//
// An Exporter is a route.Plugin. During initialization it claims its path
// with a top priority rewrite rule; on every request it checks the rewrite
// query var and, when set, answers with a fresh exposition of the host state
// and the buffered event counters. The produced route.Response ends request
// handling in the host.
package exporter

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/axelspringer/wp-mu-prometheus/pkg/config"
	"github.com/axelspringer/wp-mu-prometheus/pkg/counter"
	"github.com/axelspringer/wp-mu-prometheus/pkg/events"
	"github.com/axelspringer/wp-mu-prometheus/pkg/exposition"
	"github.com/axelspringer/wp-mu-prometheus/pkg/labels"
	"github.com/axelspringer/wp-mu-prometheus/pkg/route"
)

// Defaults of Options.
const (
	DefaultPath     = "/metrics"
	DefaultPattern  = "metrics/?$"
	DefaultQueryVar = "metrics"
	DefaultPrefix   = "wp"
)

// State is the outcome of matching a request.
type State int

const (
	// Unmatched lets the host handle the request.
	Unmatched State = iota
	// Matched marks a scrape request.
	Matched
)

func (s State) String() string {
	if s == Matched {
		return "matched"
	}
	return "unmatched"
}

// Options configures an Exporter. Zero values take the defaults.
type Options struct {
	// Path is the public path, used to suppress canonical redirects.
	Path string

	// Pattern is the rewrite rule regex claiming Path.
	Pattern string

	// QueryVar is set to "true" by the rewrite rule.
	QueryVar string

	// Prefix is prepended to every metric name.
	Prefix string

	// Events are the tracked domain events, one counter each.
	Events []string
}

// DefaultEvents returns the events tracked when none are configured.
func DefaultEvents() []string {
	return []string{events.SavePost}
}

// OptionsFromConfig derives Options from the process configuration.
func OptionsFromConfig(cfg config.Config) Options {
	opts := Options{
		Path:   cfg.MetricsPath,
		Prefix: cfg.MetricsPrefix,
		Events: append([]string(nil), cfg.TrackedEvents...),
	}
	if p := strings.Trim(cfg.MetricsPath, "/"); p != "" {
		opts.Pattern = regexp.QuoteMeta(p) + "/?$"
	}
	return opts
}

func (o Options) withDefaults() Options {
	if o.Path == "" {
		o.Path = DefaultPath
	}
	if o.Pattern == "" {
		o.Pattern = DefaultPattern
	}
	if o.QueryVar == "" {
		o.QueryVar = DefaultQueryVar
	}
	if o.Prefix == "" {
		o.Prefix = DefaultPrefix
	}
	if len(o.Events) == 0 {
		o.Events = DefaultEvents()
	}
	return o
}

// HostState reads the host's domain counts. Every call reads current state.
type HostState interface {
	CountUsers(ctx context.Context) (int, error)
	ActivePluginList(ctx context.Context) ([]string, error)
	CountPosts(ctx context.Context) (map[string]int, error)
	CountAttachments(ctx context.Context) (int, error)
}

// Exporter claims the metrics route and renders scrapes.
type Exporter struct {
	opts   Options
	host   HostState
	store  *counter.Store
	labels labels.Context
	logger zerolog.Logger
}

var _ route.Plugin = (*Exporter)(nil)

// New creates an Exporter reading gauges from host and counters from store.
func New(opts Options, host HostState, store *counter.Store, lc labels.Context, logger zerolog.Logger) *Exporter {
	if host == nil {
		panic("host state cannot be nil")
	}
	if store == nil {
		panic("counter store cannot be nil")
	}
	return &Exporter{
		opts:   opts.withDefaults(),
		host:   host,
		store:  store,
		labels: lc,
		logger: logger,
	}
}

// Options returns the effective options.
func (e *Exporter) Options() Options {
	o := e.opts
	o.Events = append([]string(nil), e.opts.Events...)
	return o
}

// Init adds the exporter's rewrite rule on top of the host's rules. When the
// persisted rules lack it, the table is flushed once so the route becomes
// reachable. A failed flush leaves the route unreachable until the next Init.
func (e *Exporter) Init(ctx context.Context, table *route.Table, store route.RuleStore) error {
	query := "index.php?" + e.opts.QueryVar + "=true"
	if err := table.AddRule(e.opts.Pattern, query, route.Top); err != nil {
		e.logger.Error().Err(err).Str("pattern", e.opts.Pattern).Msg("Failed to add rewrite rule")
		return fmt.Errorf("add rewrite rule: %w", err)
	}

	rules, err := store.Load(ctx)
	if err != nil {
		RuleFlushes.WithLabelValues("error").Inc()
		e.logger.Error().Err(err).Msg("Failed to load persisted rewrite rules")
		return fmt.Errorf("load rewrite rules: %w", err)
	}
	if route.Has(rules, e.opts.Pattern) {
		return nil
	}

	if err := route.Flush(ctx, table, store); err != nil {
		RuleFlushes.WithLabelValues("error").Inc()
		e.logger.Error().Err(err).Str("pattern", e.opts.Pattern).Msg("Failed to flush rewrite rules")
		return err
	}
	RuleFlushes.WithLabelValues("success").Inc()
	e.logger.Info().Str("pattern", e.opts.Pattern).Msg("Flushed rewrite rules")
	return nil
}

// QueryVars adds the exporter's query var to the host's allowlist.
func (e *Exporter) QueryVars(vars []string) []string {
	return append(vars, e.opts.QueryVar)
}

// Match reports whether req is a scrape request.
func (e *Exporter) Match(req *route.Request) State {
	matched, err := strconv.ParseBool(req.Var(e.opts.QueryVar))
	if err != nil || !matched {
		return Unmatched
	}
	return Matched
}

// TemplateRedirect answers scrape requests with the rendered exposition.
// Other requests get a nil response.
func (e *Exporter) TemplateRedirect(ctx context.Context, req *route.Request) (*route.Response, error) {
	if e.Match(req) == Unmatched {
		return nil, nil
	}

	body, err := e.Scrape(ctx)
	if err != nil {
		return nil, err
	}
	return &route.Response{
		Status:      http.StatusOK,
		ContentType: exposition.ContentType,
		Body:        body,
	}, nil
}

// RedirectCanonical cancels canonical redirects pointing into the
// exporter's path.
func (e *Exporter) RedirectCanonical(redirectURL string) (string, bool) {
	if strings.Contains(redirectURL, e.opts.Path) {
		e.logger.Debug().Str("redirect_url", redirectURL).Msg("Suppressed canonical redirect")
		return "", false
	}
	return redirectURL, true
}

// Attach subscribes one buffering callback per tracked event on bus.
func (e *Exporter) Attach(bus *events.Bus) {
	for _, event := range e.opts.Events {
		bus.Subscribe(event, bufferEvent(event, e.store, e.logger))
	}
}

// bufferEvent returns a handler recording event in store. Cache failures are
// logged and the occurrence is dropped.
func bufferEvent(event string, store *counter.Store, logger zerolog.Logger) events.Handler {
	return func(ctx context.Context, _ events.Event) {
		if err := store.Increment(ctx, event); err != nil {
			logger.Warn().Err(err).Str("event", event).Msg("Failed to buffer event")
		}
	}
}

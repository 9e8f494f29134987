package exporter

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/axelspringer/wp-mu-prometheus/pkg/config"
	"github.com/axelspringer/wp-mu-prometheus/pkg/exposition"
	"github.com/axelspringer/wp-mu-prometheus/pkg/registry"
)

// Metric help texts.
const (
	gaugeHelp   = "it sets"
	counterHelp = "it increases"
)

// Gauge names without prefix, in exposition order.
const (
	UserSum            = "user_sum"
	PluginsActiveSum   = "plugins_active_sum"
	ArticlesPublishSum = "articles_publish_sum"
	ArticlesDraftSum   = "articles_draft_sum"
	AttachmentsSum     = "attachments_sum"
)

// Post statuses read from the host.
const (
	StatusPublish = "publish"
	StatusDraft   = "draft"
)

// scrape holds the descriptors of one scrape's registry.
type scrape struct {
	reg      *registry.Registry
	gauges   map[string]*registry.Descriptor
	counters map[string]*registry.Descriptor
}

// Scrape builds a fresh registry, samples the host state, drains the
// buffered counters and renders the result.
//
// Host state errors fail the scrape before any counter is drained. Cache
// errors only lose the affected counter's increments.
func (e *Exporter) Scrape(ctx context.Context) ([]byte, error) {
	start := time.Now()
	logger := e.logger.With().Str("scrape_id", uuid.NewString()).Logger()

	s := e.register()
	if err := e.setGauges(ctx, s); err != nil {
		ScrapesTotal.WithLabelValues("error").Inc()
		logger.Error().Err(err).Msg("Failed to read host state")
		return nil, err
	}
	e.drainCounters(ctx, s, logger)

	families, err := s.reg.Gather()
	if err != nil {
		ScrapesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("gather: %w", err)
	}
	body, err := exposition.Render(families)
	if err != nil {
		ScrapesTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	duration := time.Since(start)
	ScrapesTotal.WithLabelValues("success").Inc()
	ScrapeDuration.Observe(duration.Seconds())
	logger.Debug().
		Int("families", len(families)).
		Dur("duration", duration).
		Msg("Scrape rendered")

	return body, nil
}

// register declares every metric on a new registry. Gauges come first, then
// one counter per tracked event.
func (e *Exporter) register() *scrape {
	names := e.labels.Names()
	s := &scrape{
		reg:      registry.New(),
		gauges:   make(map[string]*registry.Descriptor),
		counters: make(map[string]*registry.Descriptor),
	}

	for _, name := range []string{UserSum, PluginsActiveSum, ArticlesPublishSum, ArticlesDraftSum, AttachmentsSum} {
		s.gauges[name] = s.reg.GetOrRegisterGauge(e.metricName(name), gaugeHelp, names)
	}
	for _, event := range e.opts.Events {
		s.counters[event] = s.reg.GetOrRegisterCounter(config.CounterName(e.opts.Prefix, event), counterHelp, names)
	}
	return s
}

func (e *Exporter) setGauges(ctx context.Context, s *scrape) error {
	values := e.labels.Values()

	users, err := e.host.CountUsers(ctx)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	plugins, err := e.host.ActivePluginList(ctx)
	if err != nil {
		return fmt.Errorf("active plugins: %w", err)
	}
	posts, err := e.host.CountPosts(ctx)
	if err != nil {
		return fmt.Errorf("count posts: %w", err)
	}
	attachments, err := e.host.CountAttachments(ctx)
	if err != nil {
		return fmt.Errorf("count attachments: %w", err)
	}

	s.reg.SetGauge(s.gauges[UserSum], float64(users), values...)
	s.reg.SetGauge(s.gauges[PluginsActiveSum], float64(len(plugins)), values...)
	s.reg.SetGauge(s.gauges[ArticlesPublishSum], float64(posts[StatusPublish]), values...)
	s.reg.SetGauge(s.gauges[ArticlesDraftSum], float64(posts[StatusDraft]), values...)
	s.reg.SetGauge(s.gauges[AttachmentsSum], float64(attachments), values...)
	return nil
}

func (e *Exporter) drainCounters(ctx context.Context, s *scrape, logger zerolog.Logger) {
	values := e.labels.Values()

	for _, event := range e.opts.Events {
		count, err := e.store.DrainAndReset(ctx, event)
		if err != nil {
			logger.Warn().Err(err).Str("event", event).Msg("Failed to drain buffered counter")
			count = 0
		}
		s.reg.IncrementCounter(s.counters[event], float64(count), values...)
	}
}

func (e *Exporter) metricName(name string) string {
	return e.opts.Prefix + "_" + name
}

// Package site is a minimal host application that runs route plugins.
//
// A request goes through the same phases a plugin expects from its host:
// canonical redirect, rewrite resolution against the persisted rules, and the
// template redirect phase. The first plugin returning a route.Response ends
// the request; otherwise the site renders its own page.
package site

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"path"
	"strings"

	"github.com/rs/zerolog"

	"github.com/axelspringer/wp-mu-prometheus/pkg/events"
	"github.com/axelspringer/wp-mu-prometheus/pkg/route"
)

// Query vars and rules of the host itself.
const (
	QueryPost = "p"
	QueryPage = "pagename"
)

// DefaultRules returns the host's own rewrite rules, added at the bottom.
func DefaultRules() []route.Rule {
	return []route.Rule{
		{Pattern: `posts/([0-9]+)/?$`, Query: "index.php?" + QueryPost + "=$matches[1]"},
		{Pattern: `([^/]+)/?$`, Query: "index.php?" + QueryPage + "=$matches[1]"},
	}
}

// Site dispatches requests through its plugins.
type Site struct {
	table   *route.Table
	rules   route.RuleStore
	bus     *events.Bus
	logger  zerolog.Logger
	plugins []route.Plugin
	mux     *http.ServeMux
}

// New creates a site resolving requests against the rules in store.
func New(table *route.Table, store route.RuleStore, bus *events.Bus, logger zerolog.Logger) *Site {
	if table == nil || store == nil || bus == nil {
		panic("site requires a route table, a rule store and an event bus")
	}

	s := &Site{
		table:  table,
		rules:  store,
		bus:    bus,
		logger: logger,
		mux:    http.NewServeMux(),
	}
	s.mux.HandleFunc("POST /posts/{id}", s.handleSavePost)
	s.mux.HandleFunc("/", s.handlePage)
	return s
}

// Use registers a plugin. Plugins run in registration order.
func (s *Site) Use(p route.Plugin) {
	s.plugins = append(s.plugins, p)
}

// Init registers the host's rules and query vars, then initializes every
// plugin. A failing plugin is logged and skipped; the returned error joins
// all failures.
func (s *Site) Init(ctx context.Context) error {
	for _, rule := range DefaultRules() {
		if err := s.table.AddRule(rule.Pattern, rule.Query, route.Bottom); err != nil {
			return fmt.Errorf("add host rule: %w", err)
		}
	}
	s.table.AddQueryVar(QueryPost)
	s.table.AddQueryVar(QueryPage)

	var errs []error
	for _, p := range s.plugins {
		if err := p.Init(ctx, s.table, s.rules); err != nil {
			s.logger.Warn().Err(err).Msg("Plugin initialization failed")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ServeHTTP implements http.Handler.
func (s *Site) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// queryVars returns the public query vars after every plugin's filter.
func (s *Site) queryVars() []string {
	vars := s.table.QueryVars()
	for _, p := range s.plugins {
		vars = p.QueryVars(vars)
	}
	return vars
}

// resolve builds the route.Request for r. Query string values of public vars
// override values from the rewrite rule.
func (s *Site) resolve(ctx context.Context, r *http.Request) (*route.Request, bool) {
	rules, err := s.rules.Load(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to load rewrite rules")
	}

	allowed := s.queryVars()
	vars, matched := route.Resolve(rules, r.URL.Path, allowed)

	query := r.URL.Query()
	for _, name := range allowed {
		if v, ok := query[name]; ok {
			vars[name] = v
		}
	}

	return &route.Request{HTTP: r, Path: r.URL.Path, Vars: vars}, matched
}

// canonical returns the redirect target for r, if any. Only GET requests for
// paths without a trailing slash and without a file extension are redirected.
func (s *Site) canonical(r *http.Request) (string, bool) {
	p := r.URL.Path
	if r.Method != http.MethodGet || p == "" || strings.HasSuffix(p, "/") || strings.Contains(path.Base(p), ".") {
		return "", false
	}

	target := p + "/"
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	for _, plugin := range s.plugins {
		var ok bool
		if target, ok = plugin.RedirectCanonical(target); !ok {
			return "", false
		}
	}
	return target, true
}

func (s *Site) handlePage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := s.logger.With().Str("path", r.URL.Path).Logger()

	if target, ok := s.canonical(r); ok {
		logger.Debug().Str("redirect_url", target).Msg("Canonical redirect")
		http.Redirect(w, r, target, http.StatusMovedPermanently)
		return
	}

	req, matched := s.resolve(ctx, r)

	for _, p := range s.plugins {
		resp, err := p.TemplateRedirect(ctx, req)
		if err != nil {
			logger.Error().Err(err).Msg("Template redirect failed")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if resp != nil {
			if err := resp.Send(w); err != nil {
				logger.Warn().Err(err).Msg("Failed to write response")
			}
			return
		}
	}

	s.renderPage(w, r, req, matched)
}

func (s *Site) renderPage(w http.ResponseWriter, r *http.Request, req *route.Request, matched bool) {
	var title string
	switch {
	case r.URL.Path == "/":
		title = "Home"
	case req.Var(QueryPost) != "":
		title = "Post " + req.Var(QueryPost)
	case req.Var(QueryPage) != "":
		title = req.Var(QueryPage)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if title == "" || (!matched && r.URL.Path != "/") {
		w.WriteHeader(http.StatusNotFound)
		title = "Page not found"
	}
	fmt.Fprintf(w, "<!DOCTYPE html><html><head><title>%s</title></head><body><h1>%s</h1></body></html>\n",
		html.EscapeString(title), html.EscapeString(title))
}

// handleSavePost publishes events.SavePost for the post.
func (s *Site) handleSavePost(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	n := s.bus.Publish(r.Context(), events.Event{Name: events.SavePost, Payload: id})

	s.logger.Debug().Str("post_id", id).Int("handlers", n).Msg("Post saved")
	w.WriteHeader(http.StatusNoContent)
}

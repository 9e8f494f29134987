// Package route models the host's rewrite rules.
//
// A rule maps a path regex to an internal query string such as
// "index.php?metrics=true". Rules registered during initialization live in a
// Table; the host resolves requests against the persisted copy held by a
// RuleStore, so a rule only becomes reachable once the table was flushed.
package route

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// Position orders a rule relative to the host's own rules.
type Position int

const (
	// Bottom appends the rule after the host's rules.
	Bottom Position = iota
	// Top places the rule before every Bottom rule.
	Top
)

// Rule maps a path pattern to an internal query. The query may reference
// submatches of the pattern as $matches[N].
type Rule struct {
	Pattern string `json:"pattern"`
	Query   string `json:"query"`
}

// Table collects rules and public query vars during initialization.
type Table struct {
	mu        sync.RWMutex
	top       []Rule
	bottom    []Rule
	queryVars []string
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{}
}

// AddRule adds or replaces the rule for pattern at pos.
func (t *Table) AddRule(pattern, query string, pos Position) error {
	if _, err := Compile(pattern); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.top = removePattern(t.top, pattern)
	t.bottom = removePattern(t.bottom, pattern)

	rule := Rule{Pattern: pattern, Query: query}
	if pos == Top {
		t.top = append(t.top, rule)
	} else {
		t.bottom = append(t.bottom, rule)
	}
	return nil
}

// Rules returns Top rules followed by Bottom rules, each in insertion order.
func (t *Table) Rules() []Rule {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rules := make([]Rule, 0, len(t.top)+len(t.bottom))
	rules = append(rules, t.top...)
	return append(rules, t.bottom...)
}

// AddQueryVar allows name to be set by rewrite rules.
func (t *Table) AddQueryVar(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, v := range t.queryVars {
		if v == name {
			return
		}
	}
	t.queryVars = append(t.queryVars, name)
}

// QueryVars returns the allowed query vars.
func (t *Table) QueryVars() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]string(nil), t.queryVars...)
}

func removePattern(rules []Rule, pattern string) []Rule {
	out := rules[:0]
	for _, r := range rules {
		if r.Pattern != pattern {
			out = append(out, r)
		}
	}
	return out
}

// Has reports whether rules contains pattern.
func Has(rules []Rule, pattern string) bool {
	for _, r := range rules {
		if r.Pattern == pattern {
			return true
		}
	}
	return false
}

var compiled sync.Map // map[string]*regexp.Regexp

// Compile compiles a rule pattern. Patterns are anchored at the start of the
// path (without its leading slash).
func Compile(pattern string) (*regexp.Regexp, error) {
	if re, ok := compiled.Load(pattern); ok {
		return re.(*regexp.Regexp), nil
	}

	expr := pattern
	if !strings.HasPrefix(expr, "^") {
		expr = "^" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid rule pattern %q: %w", pattern, err)
	}
	compiled.Store(pattern, re)
	return re, nil
}

// expandMatches replaces $matches[N] in query with the escaped submatch N.
func expandMatches(query string, matches []string) string {
	for i := len(matches) - 1; i > 0; i-- {
		query = strings.ReplaceAll(query, "$matches["+strconv.Itoa(i)+"]", url.QueryEscape(matches[i]))
	}
	return query
}

// Resolve matches path against rules in order and returns the query vars of
// the first match, restricted to allowed. Rules with invalid patterns are
// skipped. ok is false when no rule matched.
func Resolve(rules []Rule, path string, allowed []string) (vars url.Values, ok bool) {
	path = strings.TrimPrefix(path, "/")

	for _, rule := range rules {
		re, err := Compile(rule.Pattern)
		if err != nil {
			continue
		}
		matches := re.FindStringSubmatch(path)
		if matches == nil {
			continue
		}

		query := expandMatches(rule.Query, matches)
		if idx := strings.Index(query, "?"); idx >= 0 {
			query = query[idx+1:]
		}
		parsed, err := url.ParseQuery(query)
		if err != nil {
			continue
		}

		vars = url.Values{}
		for _, name := range allowed {
			if v, ok := parsed[name]; ok {
				vars[name] = v
			}
		}
		return vars, true
	}
	return url.Values{}, false
}

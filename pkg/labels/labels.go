// Package labels derives the label set attached to every exported sample.
package labels

import (
	"strings"

	"github.com/axelspringer/wp-mu-prometheus/pkg/config"
)

// Label names, in exposition order.
const (
	Layer   = "layer"
	Project = "project"
	Env     = "env"
)

// Context is an immutable, ordered set of label name/value pairs.
type Context struct {
	names  []string
	values []string
}

// New builds a Context from the deployment layer, project and environment.
// Values are lower-cased; empty values stay empty.
func New(layer, project, env string) Context {
	return Context{
		names: []string{Layer, Project, Env},
		values: []string{
			strings.ToLower(layer),
			strings.ToLower(project),
			strings.ToLower(env),
		},
	}
}

// FromConfig builds a Context from the configured environment.
func FromConfig(env config.Environment) Context {
	return New(env.Layer, env.Project, env.Name)
}

// Names returns the label names. The slice is a copy.
func (c Context) Names() []string {
	return append([]string(nil), c.names...)
}

// Values returns the label values in Names order. The slice is a copy.
func (c Context) Values() []string {
	return append([]string(nil), c.values...)
}

// Get returns the value for name and whether it is part of the context.
func (c Context) Get(name string) (string, bool) {
	for i, n := range c.names {
		if n == name {
			return c.values[i], true
		}
	}
	return "", false
}

package route

import (
	"context"
	"net/http"
	"net/url"
)

// Request is a host request after rewrite resolution.
type Request struct {
	// HTTP is the original request
	HTTP *http.Request

	// Path is the request path
	Path string

	// Vars holds the resolved, allowed query vars
	Vars url.Values
}

// Var returns the first value of the query var name.
func (r *Request) Var(name string) string {
	if r == nil || r.Vars == nil {
		return ""
	}
	return r.Vars.Get(name)
}

// Response is a complete response produced by a plugin. Once a plugin
// returns one, the host writes it and stops handling the request.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// Send replaces any headers already set on w and writes the response.
func (r *Response) Send(w http.ResponseWriter) error {
	header := w.Header()
	for key := range header {
		header.Del(key)
	}
	if r.ContentType != "" {
		header.Set("Content-Type", r.ContentType)
	}

	status := r.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)

	_, err := w.Write(r.Body)
	return err
}

// Plugin extends the host's request lifecycle.
type Plugin interface {
	// Init registers rules on the table and may flush them to store.
	Init(ctx context.Context, table *Table, store RuleStore) error

	// QueryVars returns vars extended with the plugin's public query vars.
	QueryVars(vars []string) []string

	// TemplateRedirect runs before the host renders a page. A non-nil
	// Response ends request handling.
	TemplateRedirect(ctx context.Context, req *Request) (*Response, error)

	// RedirectCanonical filters a canonical redirect target. Returning false
	// cancels the redirect.
	RedirectCanonical(redirectURL string) (string, bool)
}

package view

import (
	"context"
	"log/slog"
	"maps"
	"net/http"
)

type contextKey struct{}

// Context carries the state of a single request through a layer chain: the
// HTTP request and any metadata that layers attach along the way. It is
// created when the request enters the chain and discarded once the response
// is written. A Context is owned by one request and isn't safe for concurrent
// use.
type Context struct {
	request *http.Request
	data    map[string]any
	logger  *slog.Logger

	// errSink receives errors from services run through IntoHTTP while a
	// FromHTTP call is in progress, so they can cross plain http.Handlers.
	errSink *error
}

// NewContext returns a Context for r, seeded with a copy of initial. The
// Context is attached to the request's context, so it can be retrieved with
// FromRequest by plain http.Handlers further down the chain.
func NewContext(r *http.Request, initial map[string]any) *Context {
	c := &Context{
		data:   make(map[string]any, len(initial)),
		logger: slog.Default(),
	}
	maps.Copy(c.data, initial)
	c.SetRequest(r)

	return c
}

// FromRequest returns the Context attached to r, if any.
func FromRequest(r *http.Request) (*Context, bool) {
	if r == nil {
		return nil, false
	}
	c, ok := r.Context().Value(contextKey{}).(*Context)
	return c, ok
}

// Request returns the current HTTP request.
func (c *Context) Request() *http.Request {
	return c.request
}

// SetRequest replaces the current HTTP request, e.g. after a layer derived a
// new request context. The Context is attached to r if it isn't already.
func (c *Context) SetRequest(r *http.Request) *Context {
	if r != nil {
		if attached, ok := FromRequest(r); !ok || attached != c {
			r = r.WithContext(context.WithValue(r.Context(), contextKey{}, c))
		}
	}
	c.request = r

	return c
}

// Context returns the context.Context of the current request.
func (c *Context) Context() context.Context {
	if c.request == nil {
		return context.Background()
	}
	return c.request.Context()
}

// Logger returns the logger configured for the chain.
func (c *Context) Logger() *slog.Logger {
	return c.logger
}

// SetLogger replaces the logger for the rest of the chain.
func (c *Context) SetLogger(logger *slog.Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// Get returns the value stored under key, and whether it was present.
func (c *Context) Get(key string) (any, bool) {
	v, ok := c.data[key]
	return v, ok
}

// Value returns the value stored under key, or nil.
func (c *Context) Value(key string) any {
	return c.data[key]
}

// String returns the value stored under key if it's a string, or "".
func (c *Context) String(key string) string {
	s, _ := c.data[key].(string)
	return s
}

// Set stores v under key, replacing any previous value.
func (c *Context) Set(key string, v any) {
	c.data[key] = v
}

// Delete removes the value stored under key.
func (c *Context) Delete(key string) {
	delete(c.data, key)
}

// Data returns a shallow copy of all stored values.
func (c *Context) Data() map[string]any {
	return maps.Clone(c.data)
}

// Lookup returns the value stored under key in c if it has type T.
func Lookup[T any](c *Context, key string) (T, bool) {
	v, ok := c.data[key].(T)
	return v, ok
}

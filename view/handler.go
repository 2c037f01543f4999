package view

import (
	"log/slog"
	"net/http"
	"strings"
)

// HandlerOption configures Handler.
type HandlerOption func(*handlerConfig)

type handlerConfig struct {
	initialData  func(*http.Request) map[string]any
	errorHandler func(http.ResponseWriter, *http.Request, error)
	logger       *slog.Logger
}

// WithInitialData sets the function that seeds the Context of each request.
// By default the Context is seeded with the route's path wildcards.
func WithInitialData(fn func(*http.Request) map[string]any) HandlerOption {
	return func(cfg *handlerConfig) {
		cfg.initialData = fn
	}
}

// WithErrorHandler sets the function that handles errors that escape the
// layer chain. By default a 500 Internal Server Error is written.
func WithErrorHandler(fn func(http.ResponseWriter, *http.Request, error)) HandlerOption {
	return func(cfg *handlerConfig) {
		cfg.errorHandler = fn
	}
}

// WithLogger sets the logger available to layers via Context.Logger.
func WithLogger(logger *slog.Logger) HandlerOption {
	return func(cfg *handlerConfig) {
		cfg.logger = logger
	}
}

// Handler returns an http.Handler that runs svc for every request. It creates
// the request Context, runs the service and writes its Response.
func Handler(svc Service, opts ...HandlerOption) http.Handler {
	cfg := &handlerConfig{
		initialData: PathValues,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.errorHandler == nil {
		cfg.errorHandler = defaultErrorHandler(cfg.logger)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := NewContext(r, cfg.initialData(r))
		c.logger = cfg.logger

		resp, err := run(svc, c)
		if err != nil {
			cfg.errorHandler(w, c.Request(), err)
			return
		}

		if err = resp.Write(w); err != nil {
			cfg.logger.Error("failed writing response", "error", err.Error())
		}
	})
}

// IntoHTTP converts svc into an http.Handler. The service runs with the
// Context attached to the request, or a new one if there is none. Errors are
// passed back to an enclosing FromHTTP call, or written as a 500 Internal
// Server Error otherwise.
func IntoHTTP(svc Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, ok := FromRequest(r)
		if ok {
			c.SetRequest(r)
		} else {
			c = NewContext(r, nil)
		}

		resp, err := run(svc, c)
		if err != nil {
			if c.errSink != nil {
				*c.errSink = err
				return
			}
			defaultErrorHandler(c.logger)(w, r, err)
			return
		}

		if err = resp.Write(w); err != nil {
			c.logger.Error("failed writing response", "error", err.Error())
		}
	})
}

// FromHTTP converts a plain http.Handler into a Service. The handler's output
// is captured into a BufferedResponse.
func FromHTTP(h http.Handler) Service {
	return func(c *Context) (Response, error) {
		var sunk error
		prevSink := c.errSink
		c.errSink = &sunk
		defer func() { c.errSink = prevSink }()

		rec := newRecorder()
		h.ServeHTTP(rec, c.Request())
		if sunk != nil {
			return nil, sunk
		}

		return rec.response(), nil
	}
}

// FromMiddleware converts an http.Handler middleware into a Layer. The
// Context and errors of the wrapped service pass through the middleware
// unchanged.
func FromMiddleware(mw func(http.Handler) http.Handler) Layer {
	return func(next Service) Service {
		return FromHTTP(mw(IntoHTTP(next)))
	}
}

// PathValues returns the values of the path wildcards matched by the route of
// r, keyed by wildcard name.
func PathValues(r *http.Request) map[string]any {
	data := map[string]any{}
	pattern := r.Pattern
	for {
		start := strings.IndexByte(pattern, '{')
		if start < 0 {
			break
		}
		end := strings.IndexByte(pattern[start:], '}')
		if end < 0 {
			break
		}
		name := strings.TrimSuffix(pattern[start+1:start+end], "...")
		pattern = pattern[start+end+1:]
		if name == "" || name == "$" {
			continue
		}
		data[name] = r.PathValue(name)
	}

	return data
}

func run(svc Service, c *Context) (Response, error) {
	resp, err := svc(c)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, ErrNoResponse
	}

	return resp, nil
}

func defaultErrorHandler(logger *slog.Logger) func(http.ResponseWriter, *http.Request, error) {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Error("unhandled error",
			"method", r.Method, "path", r.URL.Path, "error", err.Error())
		http.Error(w, http.StatusText(http.StatusInternalServerError),
			http.StatusInternalServerError)
	}
}

package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	actx "go.hackfix.me/strata/app/context"
)

// Server is a wrapper around http.Server with some custom behavior.
type Server struct {
	*http.Server
	logger *slog.Logger
}

// Option configures the Server.
type Option func(*options)

type options struct {
	registry       *prometheus.Registry
	tracerProvider trace.TracerProvider
	rateLimit      rate.Limit
	rateBurst      int
}

// WithRegistry sets the Prometheus registry the request metrics are registered
// with and served from. By default a new registry is created.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(o *options) {
		o.registry = reg
	}
}

// WithTracerProvider sets the provider of the request tracer. By default the
// global provider is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}

// WithRateLimit limits the number of requests per second each client can make
// to the API, allowing bursts of up to burst requests. A zero limit disables
// rate limiting.
func WithRateLimit(limit float64, burst int) Option {
	return func(o *options) {
		o.rateLimit = rate.Limit(limit)
		o.rateBurst = burst
	}
}

// New returns a new web Server instance that will listen on addr.
func New(appCtx *actx.Context, addr string, opts ...Option) (*Server, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.registry == nil {
		o.registry = prometheus.NewRegistry()
	}

	logger := appCtx.Logger.With("component", "web-server")
	handler, err := SetupHandlers(appCtx, logger, o)
	if err != nil {
		return nil, err
	}

	srv := &Server{
		Server: &http.Server{
			Handler:           handler,
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      time.Minute,
			BaseContext: func(net.Listener) context.Context {
				return appCtx.Ctx
			},
		},
		logger: logger,
	}

	return srv, nil
}

// ListenAndServe starts the HTTP server. It stores the actual listen address,
// which is convenient when the address is dynamically determined by the system
// (e.g. ':0').
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("failed listening on %s: %w", s.Addr, err)
	}

	s.Addr = ln.Addr().String()
	s.logger.Info("started listener", "address", s.Addr)

	//nolint:wrapcheck // This is fine.
	return s.Serve(ln)
}

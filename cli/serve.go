package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	actx "go.hackfix.me/strata/app/context"
	"go.hackfix.me/strata/web/server"
)

// Serve starts the web server.
type Serve struct {
	Address   string  `arg:"" optional:"" help:"[host]:port to listen on."`
	RateLimit float64 `help:"Number of requests per second each client can make to the API. 0 disables rate limiting."`
	RateBurst int     `help:"Number of requests each client can make at once, above the rate limit."`
	Trace     bool    `help:"Write request traces to stderr."`
}

// Run the serve command.
func (c *Serve) Run(appCtx *actx.Context) error {
	if c.Address == "" {
		return errors.New("no listen address was provided")
	}

	opts := []server.Option{server.WithRateLimit(c.RateLimit, c.RateBurst)}
	if c.Trace {
		exp, err := stdouttrace.New(stdouttrace.WithWriter(appCtx.Stderr))
		if err != nil {
			return fmt.Errorf("failed creating trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp))
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(ctx); err != nil {
				slog.Warn("failed shutting down tracer provider", "error", err.Error())
			}
		}()
		opts = append(opts, server.WithTracerProvider(tp))
	}

	srv, err := server.New(appCtx, c.Address, opts...)
	if err != nil {
		return err
	}

	// Gracefully shutdown the server if a process signal is received, or the
	// main context is done.
	// See https://dev.to/mokiat/proper-http-shutdown-in-go-3fji
	srvDone := make(chan error, 1)
	go func() {
		srvErr := srv.ListenAndServe()
		slog.Debug("web server shutdown")
		srvDone <- srvErr
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case s := <-sigCh:
		slog.Debug("process received signal", "signal", s)
	case <-appCtx.Ctx.Done():
		slog.Debug("app context is done")
	case srvErr := <-srvDone:
		if srvErr != nil && !errors.Is(srvErr, http.ErrServerClosed) {
			return fmt.Errorf("web server error: %w", srvErr)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err = srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("failed shutting down web server: %w", err)
	}

	return nil
}

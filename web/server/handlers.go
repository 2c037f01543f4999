package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	actx "go.hackfix.me/strata/app/context"
	"go.hackfix.me/strata/auth"
	"go.hackfix.me/strata/db"
	"go.hackfix.me/strata/layer"
	"go.hackfix.me/strata/view"
	"go.hackfix.me/strata/web/server/api/v1"
	"go.hackfix.me/strata/web/server/middleware"
)

// maxCachedUsers is the number of authenticated users kept in the cache.
const maxCachedUsers = 10_000

// SetupHandlers configures the server HTTP handlers.
func SetupHandlers(appCtx *actx.Context, logger *slog.Logger, o *options) (http.Handler, error) {
	layers, err := apiLayers(appCtx, o)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", middleware.Chain(
		middleware.Logger(logger),
		promhttp.HandlerFor(o.registry, promhttp.HandlerOpts{Registry: o.registry}),
	))
	api.SetupHandlers(appCtx, mux, "/api/v1", layers, view.WithLogger(logger))

	return mux, nil
}

// apiLayers returns the layers shared by all API endpoints, from the outermost
// to the innermost.
func apiLayers(appCtx *actx.Context, o *options) (view.Layer, error) {
	metrics, err := layer.Metrics(o.registry)
	if err != nil {
		return nil, err
	}

	layers := []view.Layer{
		layer.RequestID(),
		layer.Logger(nil),
		layer.Tracing(o.tracerProvider),
		metrics,
	}

	if o.rateLimit > 0 {
		rateLimit, rerr := layer.RateLimit(o.rateLimit, max(o.rateBurst, 1))
		if rerr != nil {
			return nil, rerr
		}
		layers = append(layers, rateLimit)
	}

	backend, err := authBackend(appCtx)
	if err != nil {
		return nil, err
	}
	layers = append(layers,
		view.Exception(view.WithExceptionService(exceptionHandler)),
		auth.Authentication(backend),
		auth.IsAuthenticated(),
	)

	if networks := appCtx.Config.Auth.AllowedNetworks; len(networks) > 0 {
		ipSet, perr := auth.ParseIPSet(networks...)
		if perr != nil {
			return nil, fmt.Errorf("failed parsing allowed networks: %w", perr)
		}
		layers = append(layers, auth.Permission(auth.FromNetworks(ipSet)))
	}

	return view.Layers(layers...), nil
}

// authBackend returns the backends that authenticate API requests: the trusted
// user header, if configured, followed by bearer tokens and HTTP Basic
// credentials.
//
//nolint:ireturn // Implementations vary per backend.
func authBackend(appCtx *actx.Context) (auth.Backend, error) {
	cfg := appCtx.Config.Auth
	store := db.NewAuthStore(appCtx.DB)
	var (
		users  auth.UserStore  = store
		tokens auth.TokenStore = store
	)

	if cfg.CacheTTL.Valid && cfg.CacheTTL.V > 0 {
		cache, err := auth.NewCachedUserStore(store, store, maxCachedUsers, cfg.CacheTTL.V)
		if err != nil {
			return nil, err
		}
		context.AfterFunc(appCtx.Ctx, cache.Close)
		users, tokens = cache, cache
	}

	backends := auth.Backends{}
	if cfg.TrustedUserHeader.Valid {
		backends = append(backends, auth.HeaderBackend(cfg.TrustedUserHeader.V, users))
	}
	backends = append(backends, auth.TokenBackend(tokens), auth.BasicBackend(store))

	return backends, nil
}

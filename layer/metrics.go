package layer

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"go.hackfix.me/strata/view"
)

// MetricsOption configures Metrics.
type MetricsOption func(*metricsConfig)

type metricsConfig struct {
	namespace string
	buckets   []float64
}

// WithNamespace sets the namespace of the metric names.
func WithNamespace(ns string) MetricsOption {
	return func(cfg *metricsConfig) {
		cfg.namespace = ns
	}
}

// WithBuckets sets the buckets of the request duration histogram, in seconds.
func WithBuckets(buckets ...float64) MetricsOption {
	return func(cfg *metricsConfig) {
		cfg.buckets = buckets
	}
}

// Metrics returns a layer that counts requests and observes their duration,
// labelled by method, route and status code. The collectors are registered
// with reg. Requests that fail with an error are counted with status 500,
// unless an inner Exception layer converted the error into a response.
func Metrics(reg prometheus.Registerer, opts ...MetricsOption) (view.Layer, error) {
	cfg := &metricsConfig{namespace: "strata", buckets: prometheus.DefBuckets}
	for _, opt := range opts {
		opt(cfg)
	}

	labels := []string{"method", "route", "status"}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests handled.",
	}, labels)
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: cfg.namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Duration of HTTP requests.",
		Buckets:   cfg.buckets,
	}, labels)

	var err error
	if requests, err = register(reg, requests); err != nil {
		return nil, err
	}
	if duration, err = register(reg, duration); err != nil {
		return nil, err
	}

	return func(next view.Service) view.Service {
		return func(c *view.Context) (view.Response, error) {
			start := time.Now()
			resp, err := next(c)

			status := http.StatusInternalServerError
			if err == nil && resp != nil {
				status = resp.StatusCode()
			}

			r := c.Request()
			lv := []string{r.Method, route(r), strconv.Itoa(status)}
			requests.WithLabelValues(lv...).Inc()
			duration.WithLabelValues(lv...).Observe(time.Since(start).Seconds())

			return resp, err
		}
	}, nil
}

// register registers c with reg, reusing an identical collector that's already
// registered, so that multiple chains can share the same metrics.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("failed registering metrics collector: %w", err)
	}
	return c, nil
}

// route returns the ServeMux pattern that matched r, or "unmatched".
func route(r *http.Request) string {
	if r.Pattern != "" {
		return r.Pattern
	}
	return "unmatched"
}

package layer

import (
	"fmt"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"go.hackfix.me/strata/view"
)

const tracerName = "go.hackfix.me/strata/layer"

// Tracing returns a layer that starts a server span for each request. Trace
// context in the incoming headers is continued. The request passed to inner
// layers carries the span, so that stores can create child spans. If tp is
// nil, the global TracerProvider is used.
func Tracing(tp trace.TracerProvider) view.Layer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	tracer := tp.Tracer(tracerName)
	prop := propagation.TraceContext{}

	return func(next view.Service) view.Service {
		return func(c *view.Context) (view.Response, error) {
			r := c.Request()
			ctx := prop.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := tracer.Start(ctx, spanName(r), trace.WithSpanKind(trace.SpanKindServer))
			defer span.End()

			span.SetAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("http.route", route(r)),
				attribute.String("url.path", r.URL.Path),
			)
			if id := c.String(RequestIDKey); id != "" {
				span.SetAttributes(attribute.String("request.id", id))
			}

			c.SetRequest(r.WithContext(ctx))
			resp, err := next(c)
			c.SetRequest(r)

			switch {
			case err != nil:
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			case resp != nil:
				status := resp.StatusCode()
				span.SetAttributes(attribute.Int("http.response.status_code", status))
				if status >= http.StatusInternalServerError {
					span.SetStatus(codes.Error, http.StatusText(status))
				}
			}

			return resp, err
		}
	}
}

// spanName returns "<method> <route>", where route is the ServeMux pattern
// that matched r without its method, or "unmatched".
func spanName(r *http.Request) string {
	route := "unmatched"
	if r.Pattern != "" {
		route = r.Pattern
		if _, path, ok := strings.Cut(r.Pattern, " "); ok {
			route = path
		}
	}
	return fmt.Sprintf("%s %s", r.Method, route)
}

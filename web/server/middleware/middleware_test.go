package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"go.hackfix.me/strata/view"
)

func TestChain(t *testing.T) {
	t.Parallel()

	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(mark("a"), mark("b"), http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		order = append(order, "handler")
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"a", "b", "handler"}, order)
}

func TestChainPanics(t *testing.T) {
	t.Parallel()

	ok := http.NotFoundHandler()
	tests := []struct {
		name   string
		items  []any
		expMsg string
	}{
		{name: "empty", expMsg: "Chain requires a handler"},
		{
			name:   "no_handler",
			items:  []any{Middleware(func(h http.Handler) http.Handler { return h })},
			expMsg: "the last item passed to Chain must be an http.Handler",
		},
		{
			name:   "invalid_middleware",
			items:  []any{"nope", ok},
			expMsg: "Chain accepts only Middleware before the handler",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.PanicsWithValue(t, tt.expMsg, func() { Chain(tt.items...) })
		})
	}
}

func TestLogger(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		status   int
		expLevel string
	}{
		{name: "ok", status: http.StatusOK, expLevel: "level=INFO"},
		{name: "client_error", status: http.StatusNotFound, expLevel: "level=INFO"},
		{name: "server_error", status: http.StatusBadGateway, expLevel: "level=ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))
			h := Chain(Logger(logger), http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("hello"))
			}))

			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			req.RemoteAddr = "10.0.0.1:1234"
			h.ServeHTTP(httptest.NewRecorder(), req)

			out := buf.String()
			assert.Contains(t, out, tt.expLevel)
			assert.Contains(t, out, `msg="GET /metrics"`)
			assert.Contains(t, out, "response_code="+strconv.Itoa(tt.status))
			assert.Contains(t, out, "bytes_sent=5")
			assert.Contains(t, out, "remote_addr=10.0.0.1:1234")
		})
	}
}

func TestLoggerAsLayer(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	svc := view.IntoService(func(*view.Context) (view.Response, error) {
		return view.Text(http.StatusCreated, "made"), nil
	}, view.FromMiddleware(Logger(logger)))

	rec := httptest.NewRecorder()
	view.Handler(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/things", nil))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "made", strings.TrimSpace(rec.Body.String()))
	assert.Contains(t, buf.String(), "response_code=201")
}

package view

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discardLogger = slog.New(slog.DiscardHandler)

func TestHandler(t *testing.T) {
	t.Parallel()

	svc := func(c *Context) (Response, error) {
		attached, ok := FromRequest(c.Request())
		if !ok || attached != c {
			return nil, errors.New("context not attached to request")
		}
		return Text(http.StatusOK, "widget "+c.String("pk")), nil
	}

	mux := http.NewServeMux()
	mux.Handle("GET /widgets/{pk}", Handler(svc, WithLogger(discardLogger)))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/widgets/42", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "widget 42", rec.Body.String())
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
}

func TestHandlerInitialData(t *testing.T) {
	t.Parallel()

	h := Handler(func(c *Context) (Response, error) {
		return JSON(http.StatusOK, c.Data())
	}, WithInitialData(func(r *http.Request) map[string]any {
		return map[string]any{"query": r.URL.Query().Get("q")}
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?q=gears", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"query":"gears"}`, rec.Body.String())
}

func TestHandlerErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		svc  Service
	}{
		{
			name: "err/uncaught",
			svc: func(_ *Context) (Response, error) {
				return nil, errors.New("boom")
			},
		},
		{
			name: "err/no_response",
			svc: func(_ *Context) (Response, error) {
				return nil, nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			Handler(tt.svc, WithLogger(discardLogger)).
				ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.Contains(t, rec.Body.String(), "Internal Server Error")
		})
	}
}

func TestHandlerCustomErrorHandler(t *testing.T) {
	t.Parallel()

	errBoom := errors.New("boom")
	var got error
	h := Handler(func(_ *Context) (Response, error) {
		return nil, errBoom
	}, WithErrorHandler(func(w http.ResponseWriter, _ *http.Request, err error) {
		got = err
		w.WriteHeader(http.StatusBadGateway)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.ErrorIs(t, got, errBoom)
}

func TestPathValues(t *testing.T) {
	t.Parallel()

	var got map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("GET /orgs/{org}/files/{path...}", func(_ http.ResponseWriter, r *http.Request) {
		got = PathValues(r)
	})
	mux.HandleFunc("GET /{$}", func(_ http.ResponseWriter, r *http.Request) {
		got = PathValues(r)
	})

	mux.ServeHTTP(httptest.NewRecorder(),
		httptest.NewRequest(http.MethodGet, "/orgs/acme/files/a/b.txt", nil))
	assert.Equal(t, map[string]any{"org": "acme", "path": "a/b.txt"}, got)

	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, map[string]any{}, got)
}

type ctxKey string

func TestFromMiddleware(t *testing.T) {
	t.Parallel()

	var log []string
	mw := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log = append(log, "mw:before")
			w.Header().Set("X-Middleware", "yes")
			r = r.WithContext(context.WithValue(r.Context(), ctxKey("k"), "v"))
			next.ServeHTTP(w, r)
			log = append(log, "mw:after")
		})
	}

	svc := IntoService(func(c *Context) (Response, error) {
		log = append(log, "service")
		v, _ := c.Context().Value(ctxKey("k")).(string)
		return Text(http.StatusCreated, c.String("set")+"/"+v), nil
	}, func(next Service) Service {
		return func(c *Context) (Response, error) {
			c.Set("set", "outer")
			return next(c)
		}
	}, FromMiddleware(mw))

	c := newTestContext(http.MethodGet, "/")
	resp, err := svc(c)
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, resp.StatusCode())
	assert.Equal(t, "yes", resp.Header().Get("X-Middleware"))
	assert.Equal(t, "outer/v", string(resp.(*BufferedResponse).Body()))
	assert.Equal(t, []string{"mw:before", "service", "mw:after"}, log)
	assert.Equal(t, "v", c.Context().Value(ctxKey("k")))
}

func TestFromMiddlewareShortCircuit(t *testing.T) {
	t.Parallel()

	called := false
	block := func(_ http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "nope", http.StatusUnauthorized)
		})
	}
	svc := IntoService(func(_ *Context) (Response, error) {
		called = true
		return Text(http.StatusOK, "OK"), nil
	}, FromMiddleware(block))

	resp, err := svc(newTestContext(http.MethodGet, "/"))
	require.NoError(t, err)
	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode())
}

func TestFromMiddlewareErrorPropagation(t *testing.T) {
	t.Parallel()

	passthrough := func(next http.Handler) http.Handler { return next }
	errBoom := NewError(http.StatusTeapot, "boom")

	svc := IntoService(func(_ *Context) (Response, error) {
		return nil, errBoom
	}, FromMiddleware(passthrough), FromMiddleware(passthrough))

	resp, err := svc(newTestContext(http.MethodGet, "/"))
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, errBoom)

	svc = IntoService(func(_ *Context) (Response, error) {
		return nil, errBoom
	}, Exception(), FromMiddleware(passthrough))
	resp, err = svc(newTestContext(http.MethodGet, "/"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTeapot, resp.StatusCode())
}

func TestIntoHTTPStandalone(t *testing.T) {
	t.Parallel()

	h := IntoHTTP(func(c *Context) (Response, error) {
		if c.Request().Method == http.MethodPost {
			return nil, errors.New("boom")
		}
		return Text(http.StatusOK, "OK"), nil
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, "OK", string(body))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

package view

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeBody(t *testing.T, resp Response) map[string]any {
	t.Helper()

	br, ok := resp.(*BufferedResponse)
	require.True(t, ok)

	var body map[string]any
	require.NoError(t, json.Unmarshal(br.Body(), &body))

	return body
}

func TestException(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		svc       Service
		expStatus int
		expBody   map[string]any
	}{
		{
			name: "ok/passthrough",
			svc: func(_ *Context) (Response, error) {
				return JSON(http.StatusOK, map[string]any{"hello": "world"})
			},
			expStatus: http.StatusOK,
			expBody:   map[string]any{"hello": "world"},
		},
		{
			name: "err/plain_error",
			svc: func(_ *Context) (Response, error) {
				return nil, errors.New("database is on fire")
			},
			expStatus: http.StatusInternalServerError,
			expBody: map[string]any{
				"message": "internal server error",
				"code":    float64(500),
				"details": map[string]any{},
			},
		},
		{
			name: "err/typed_error",
			svc: func(_ *Context) (Response, error) {
				return nil, NewError(http.StatusConflict, "widget already exists")
			},
			expStatus: http.StatusConflict,
			expBody: map[string]any{
				"message": "widget already exists",
				"code":    float64(409),
				"details": map[string]any{},
			},
		},
		{
			name: "err/typed_error_value",
			svc: func(_ *Context) (Response, error) {
				return nil, Error{StatusCode: http.StatusNotFound, Message: "gone"}
			},
			expStatus: http.StatusNotFound,
			expBody: map[string]any{
				"message": "gone",
				"code":    float64(404),
				"details": map[string]any{},
			},
		},
		{
			name: "err/typed_error_value_wrapped",
			svc: func(_ *Context) (Response, error) {
				return nil, fmt.Errorf("loading widget: %w",
					Error{StatusCode: http.StatusGone, Code: "WIDGET_GONE", Message: "gone"})
			},
			expStatus: http.StatusGone,
			expBody: map[string]any{
				"message": "loading widget: gone",
				"code":    "WIDGET_GONE",
				"details": map[string]any{},
			},
		},
		{
			name: "err/typed_error_code_details",
			svc: func(_ *Context) (Response, error) {
				return nil, NewError(http.StatusInternalServerError, "Something went wrong").
					WithCode("SOMETHING_WENT_WRONG").
					WithDetails(map[string]any{"foo": "bar"})
			},
			expStatus: http.StatusInternalServerError,
			expBody: map[string]any{
				"message": "internal server error",
				"code":    "SOMETHING_WENT_WRONG",
				"details": map[string]any{"foo": "bar"},
			},
		},
		{
			name: "err/zero_status",
			svc: func(_ *Context) (Response, error) {
				return nil, &Error{Message: "oops"}
			},
			expStatus: http.StatusInternalServerError,
			expBody: map[string]any{
				"message": "internal server error",
				"code":    float64(500),
				"details": map[string]any{},
			},
		},
		{
			name: "err/panic",
			svc: func(_ *Context) (Response, error) {
				panic("boom")
			},
			expStatus: http.StatusInternalServerError,
			expBody: map[string]any{
				"message": "internal server error",
				"code":    float64(500),
				"details": map[string]any{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := IntoService(tt.svc, Exception())
			resp, err := svc(newTestContext(http.MethodGet, "/"))
			require.NoError(t, err)
			assert.Equal(t, tt.expStatus, resp.StatusCode())
			assert.Equal(t, tt.expBody, decodeBody(t, resp))
		})
	}
}

func TestExceptionStoresError(t *testing.T) {
	t.Parallel()

	errBoom := errors.New("boom")
	var caught error
	handler := func(c *Context) (Response, error) {
		caught, _ = c.Value("err").(error)
		return Text(http.StatusServiceUnavailable, "try later"), nil
	}

	svc := IntoService(func(_ *Context) (Response, error) {
		return nil, errBoom
	}, Exception(WithExceptionKey("err"), WithExceptionService(handler)))

	resp, err := svc(newTestContext(http.MethodGet, "/"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode())
	assert.ErrorIs(t, caught, errBoom)
}

func TestExceptionCustomKeyDefaultHandler(t *testing.T) {
	t.Parallel()

	svc := IntoService(func(_ *Context) (Response, error) {
		return nil, NewError(http.StatusGone, "gone")
	}, Exception(WithExceptionKey("custom")))

	resp, err := svc(newTestContext(http.MethodGet, "/"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusGone, resp.StatusCode())
	assert.Equal(t, "gone", decodeBody(t, resp)["message"])
}

func TestExceptionLayersWrapHandler(t *testing.T) {
	t.Parallel()

	var log []string
	svc := IntoService(func(_ *Context) (Response, error) {
		return nil, errors.New("boom")
	}, Exception(WithExceptionLayers(tagLayer("X", &log))))

	resp, err := svc(newTestContext(http.MethodGet, "/"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode())
	assert.Equal(t, []string{"X:before", "X:after"}, log)
}

func TestExceptionPanicValue(t *testing.T) {
	t.Parallel()

	errInner := errors.New("inner")
	var caught error
	svc := IntoService(func(_ *Context) (Response, error) {
		panic(errInner)
	}, Exception(WithExceptionService(func(c *Context) (Response, error) {
		caught, _ = c.Value(ExceptionKey).(error)
		return DefaultExceptionHandler(c)
	})))

	_, err := svc(newTestContext(http.MethodGet, "/"))
	require.NoError(t, err)

	var perr *PanicError
	require.ErrorAs(t, caught, &perr)
	assert.Equal(t, errInner, perr.Value)
	assert.ErrorIs(t, caught, errInner)
	assert.NotEmpty(t, perr.Stack)
}

func TestExceptionOuterLayersUnaffected(t *testing.T) {
	t.Parallel()

	var log []string
	svc := IntoService(func(_ *Context) (Response, error) {
		return nil, errors.New("boom")
	}, tagLayer("outer", &log), Exception(), tagLayer("inner", &log))

	resp, err := svc(newTestContext(http.MethodGet, "/"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode())
	assert.Equal(t,
		[]string{"outer:before", "inner:before", "inner:after", "outer:after"}, log)
}

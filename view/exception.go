package view

import (
	"errors"
	"net/http"
	"runtime/debug"

	aerrors "go.hackfix.me/strata/app/errors"
)

// ExceptionKey is the default Context key under which an Exception layer
// stores the error it caught.
const ExceptionKey = "__exception__"

// ExceptionOption configures an Exception layer.
type ExceptionOption func(*exceptionConfig)

type exceptionConfig struct {
	service Service
	layers  []Layer
	key     string
}

// WithExceptionService sets the service that renders the error response. It
// can retrieve the caught error from the Context.
func WithExceptionService(svc Service) ExceptionOption {
	return func(cfg *exceptionConfig) {
		cfg.service = svc
	}
}

// WithExceptionLayers sets layers that wrap the exception service.
func WithExceptionLayers(layers ...Layer) ExceptionOption {
	return func(cfg *exceptionConfig) {
		cfg.layers = layers
	}
}

// WithExceptionKey sets the Context key the caught error is stored under.
func WithExceptionKey(key string) ExceptionOption {
	return func(cfg *exceptionConfig) {
		cfg.key = key
	}
}

// Exception returns a layer that catches errors returned and panics raised by
// the services it wraps, stores the error in the Context, and responds with
// the result of the exception service instead. By default that's
// DefaultExceptionHandler.
func Exception(opts ...ExceptionOption) Layer {
	cfg := &exceptionConfig{key: ExceptionKey}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.service == nil {
		cfg.service = ExceptionHandler(cfg.key)
	}
	handle := IntoService(cfg.service, cfg.layers...)

	return func(next Service) Service {
		return func(c *Context) (Response, error) {
			resp, err := callRecover(next, c)
			if err == nil {
				return resp, nil
			}

			c.Set(cfg.key, err)
			return handle(c)
		}
	}
}

// DefaultExceptionHandler renders the error stored under ExceptionKey.
func DefaultExceptionHandler(c *Context) (Response, error) {
	return ExceptionHandler(ExceptionKey)(c)
}

// ExceptionHandler returns a service that renders the error stored under key
// as a JSON error response. The status code, code and details are taken from
// an Error in the chain, by value or pointer, and default to 500, the status code and no details.
// The message of 500 errors is hidden from the client, and the error is
// logged instead.
func ExceptionHandler(key string) Service {
	return func(c *Context) (Response, error) {
		err, _ := c.Value(key).(error)
		if err == nil {
			err = errors.New("unknown error")
		}

		var (
			status  = http.StatusInternalServerError
			code    any
			details map[string]any
		)
		if verr := asError(err); verr != nil {
			if verr.StatusCode != 0 {
				status = verr.StatusCode
			}
			code = verr.Code
			details = verr.Details
		}
		if code == nil {
			code = status
		}

		message := err.Error()
		if status == http.StatusInternalServerError {
			message = "internal server error"
		}
		if status >= http.StatusInternalServerError {
			aerrors.LogTo(c.Logger(), err, "status", status)
		}

		return ErrorResponse(status, code, message, details)
	}
}

// callRecover runs svc and converts a panic into a *PanicError.
func callRecover(svc Service, c *Context) (resp Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			resp = nil
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()

	return svc(c)
}

// asError returns the first Error in the chain of err, whether it was returned
// by value or by pointer.
func asError(err error) *Error {
	var perr *Error
	if errors.As(err, &perr) && perr != nil {
		return perr
	}
	var verr Error
	if errors.As(err, &verr) {
		return &verr
	}
	return nil
}

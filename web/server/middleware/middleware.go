package middleware

import (
	"net/http"
)

// Middleware is a function that wraps an http.Handler to provide additional
// functionality such as logging. It takes a handler and returns a new handler.
type Middleware func(http.Handler) http.Handler

// Chain wraps handler with middlewares in the exact order specified, so that
// the first middleware runs first. The last item must be the http.Handler.
func Chain(items ...any) http.Handler {
	if len(items) == 0 {
		panic("Chain requires a handler")
	}

	handler, ok := items[len(items)-1].(http.Handler)
	if !ok {
		panic("the last item passed to Chain must be an http.Handler")
	}

	for i := len(items) - 2; i >= 0; i-- {
		mw, ok := items[i].(Middleware)
		if !ok {
			panic("Chain accepts only Middleware before the handler")
		}
		handler = mw(handler)
	}

	return handler
}

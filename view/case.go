package view

import (
	"slices"
	"strings"
)

// Case returns a layer that runs svc, wrapped with layers, instead of the next
// service when cond is true for the request.
func Case(cond func(*Context) bool, svc Service, layers ...Layer) Layer {
	caseSvc := IntoService(svc, layers...)

	return func(next Service) Service {
		return func(c *Context) (Response, error) {
			if cond(c) {
				return caseSvc(c)
			}
			return next(c)
		}
	}
}

// Method returns a layer that runs svc, wrapped with layers, for requests
// with the given HTTP method.
func Method(method string, svc Service, layers ...Layer) Layer {
	return Case(func(c *Context) bool {
		return c.Request().Method == method
	}, svc, layers...)
}

// RequireMethods returns a layer that responds with 405 Method Not Allowed to
// requests whose method isn't one of methods.
func RequireMethods(methods ...string) Layer {
	allow := strings.Join(methods, ", ")

	return func(next Service) Service {
		return func(c *Context) (Response, error) {
			if slices.Contains(methods, c.Request().Method) {
				return next(c)
			}

			resp, err := View405(c)
			if err != nil {
				return nil, err
			}
			resp.Header().Set("Allow", allow)

			return resp, nil
		}
	}
}

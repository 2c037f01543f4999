// Package view composes net/http request handling out of ordered layers.
//
// A Service turns a per-request Context into a Response. A Layer wraps a
// Service and returns a new one, and may run logic before and after calling
// the wrapped Service, or skip it entirely by returning its own Response.
// Layers are folded right to left, so the first layer in a list is the
// outermost one and runs first:
//
//	svc := view.IntoService(listWidgets,
//		view.Exception(),
//		auth.Authentication(backend),
//		auth.HasPermissions("widgets.view"),
//	)
//	mux.Handle("GET /widgets", view.Handler(svc))
//
// Errors returned by a Service propagate outwards through every layer until
// an Exception layer turns them into a Response. Errors that escape the chain
// are handled by the error handler configured on Handler.
package view

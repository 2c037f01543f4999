package view

// Service produces the response for a request. It is the terminal function of
// a layer chain.
type Service func(*Context) (Response, error)

// Layer wraps a Service to provide additional behavior such as error
// handling, authentication or permission checks. Any configuration is bound
// when the layer is constructed, not per request.
type Layer func(next Service) Service

// Layers composes layers into a single Layer. Each layer wraps the next one,
// so execution flows from left to right: Layers(a, b, c)(svc) is
// a(b(c(svc))). With no arguments it returns the Service unchanged.
func Layers(layers ...Layer) Layer {
	return func(next Service) Service {
		// Apply layers from right to left to get left-to-right execution
		for i := len(layers) - 1; i >= 0; i-- {
			next = layers[i](next)
		}
		return next
	}
}

// IntoService wraps svc with layers, with the first layer outermost.
func IntoService(svc Service, layers ...Layer) Service {
	return Layers(layers...)(svc)
}

// Noop is a layer that does nothing.
func Noop(next Service) Service {
	return next
}

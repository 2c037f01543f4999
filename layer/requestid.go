package layer

import (
	"github.com/nrednav/cuid2"

	"go.hackfix.me/strata/view"
)

const (
	// RequestIDKey is the Context key of the request ID.
	RequestIDKey = "request_id"
	// RequestIDHeader is the header the request ID is read from and echoed in.
	RequestIDHeader = "X-Request-ID"

	maxRequestIDLen = 128
)

// RequestID returns a layer that assigns an ID to each request. The ID from
// an incoming X-Request-ID header is reused if it's reasonably sized,
// otherwise a new CUID is generated. The ID is stored in the Context, set on
// the response and added to the Context logger.
func RequestID() view.Layer {
	return func(next view.Service) view.Service {
		return func(c *view.Context) (view.Response, error) {
			id := c.Request().Header.Get(RequestIDHeader)
			if id == "" || len(id) > maxRequestIDLen {
				id = cuid2.Generate()
			}
			c.Set(RequestIDKey, id)
			c.SetLogger(c.Logger().With("request_id", id))

			resp, err := next(c)
			if resp != nil {
				resp.Header().Set(RequestIDHeader, id)
			}

			return resp, err
		}
	}
}

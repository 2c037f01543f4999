package layer

import (
	"fmt"
	"log/slog"
	"time"

	aerrors "go.hackfix.me/strata/app/errors"
	"go.hackfix.me/strata/view"
)

// Logger returns a layer that logs each request once the inner chain returns.
// If logger is nil, the Context logger is used, which carries the request ID
// when RequestID runs first. Errors are logged and returned unchanged.
func Logger(logger *slog.Logger) view.Layer {
	return func(next view.Service) view.Service {
		return func(c *view.Context) (view.Response, error) {
			start := time.Now()
			resp, err := next(c)
			duration := time.Since(start)

			l := logger
			if l == nil {
				l = c.Logger()
			}

			r := c.Request()
			msg := fmt.Sprintf("%s %s", r.Method, r.URL)
			args := []any{"duration", duration, "remote_addr", r.RemoteAddr}
			if err != nil {
				l.Error(msg, append(args, aerrors.Fields(err)...)...)
				return resp, err
			}

			if resp != nil {
				args = append([]any{"response_code", resp.StatusCode()}, args...)
			}
			l.Info(msg, args...)

			return resp, nil
		}
	}
}

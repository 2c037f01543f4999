package layer

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"golang.org/x/time/rate"

	"go.hackfix.me/strata/auth"
	"go.hackfix.me/strata/view"
)

// RateLimitOption configures RateLimit.
type RateLimitOption func(*rateLimitConfig)

type rateLimitConfig struct {
	keyFn      func(*view.Context) string
	maxClients int64
	idleTTL    time.Duration
}

// WithRateLimitKey sets the function that maps a request to the client it's
// counted against. By default clients are identified by their IP address.
func WithRateLimitKey(fn func(*view.Context) string) RateLimitOption {
	return func(cfg *rateLimitConfig) {
		cfg.keyFn = fn
	}
}

// WithMaxClients sets the number of client limiters kept in memory. Limiters
// of the least active clients are evicted first.
func WithMaxClients(n int64) RateLimitOption {
	return func(cfg *rateLimitConfig) {
		cfg.maxClients = n
	}
}

// WithIdleTTL sets how long the limiter of a client is kept after its last
// request. Default: 10 minutes.
func WithIdleTTL(ttl time.Duration) RateLimitOption {
	return func(cfg *rateLimitConfig) {
		cfg.idleTTL = ttl
	}
}

// RemoteIP returns the client IP address of the request, or the raw remote
// address if it can't be parsed.
func RemoteIP(c *view.Context) string {
	if addr, ok := auth.RemoteAddr(c); ok {
		return addr.String()
	}
	return c.Request().RemoteAddr
}

// RateLimit returns a layer that limits each client to r requests per second,
// with bursts of up to burst requests. Requests over the limit get a 429 Too
// Many Requests response with a Retry-After header, and don't reach the inner
// chain.
func RateLimit(r rate.Limit, burst int, opts ...RateLimitOption) (view.Layer, error) {
	cfg := &rateLimitConfig{
		keyFn:      RemoteIP,
		maxClients: 10_000,
		idleTTL:    10 * time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	limiters, err := ristretto.NewCache(&ristretto.Config[string, *rate.Limiter]{
		NumCounters:        cfg.maxClients * 10,
		MaxCost:            cfg.maxClients,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed creating rate limiter cache: %w", err)
	}

	limiterFor := func(key string) *rate.Limiter {
		l, ok := limiters.Get(key)
		if !ok {
			l = rate.NewLimiter(r, burst)
		}
		// Setting an existing key only extends its TTL, so the limiter expires
		// after idleTTL without requests.
		limiters.SetWithTTL(key, l, 1, cfg.idleTTL)
		if !ok {
			limiters.Wait()
		}
		return l
	}

	return func(next view.Service) view.Service {
		return func(c *view.Context) (view.Response, error) {
			res := limiterFor(cfg.keyFn(c)).Reserve()
			if delay := res.Delay(); !res.OK() || delay > 0 {
				res.Cancel()
				return tooManyRequests(delay)
			}

			return next(c)
		}
	}, nil
}

//nolint:ireturn // Canned response.
func tooManyRequests(delay time.Duration) (view.Response, error) {
	resp, err := view.ErrorResponse(
		http.StatusTooManyRequests, http.StatusTooManyRequests, "too many requests", nil)
	if err != nil {
		return nil, err
	}

	secs := int64(math.Ceil(delay.Seconds()))
	if secs < 1 || delay == rate.InfDuration {
		secs = 1
	}
	resp.Header().Set("Retry-After", strconv.FormatInt(secs, 10))

	return resp, nil
}

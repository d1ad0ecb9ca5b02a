package chain

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter paces RPC calls with one token bucket per provider host, so
// every endpoint path on a host shares its budget. A nil *RateLimiter never
// limits.
type RateLimiter struct {
	limit    rate.Limit
	burst    int
	limiters sync.Map // host -> *rate.Limiter
}

// NewRateLimiter creates a rate limiter allowing ratePerSecond calls per host
// with the given burst. It returns nil when ratePerSecond is not positive,
// which disables limiting.
func NewRateLimiter(ratePerSecond float64, burst int) *RateLimiter {
	if ratePerSecond <= 0 {
		return nil
	}
	return &RateLimiter{
		limit: rate.Limit(ratePerSecond),
		burst: max(burst, 1),
	}
}

// Wait blocks until a call to endpoint may proceed or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context, endpoint string) error {
	if r == nil {
		return nil
	}
	return r.limiter(endpoint).Wait(ctx)
}

func (r *RateLimiter) limiter(endpoint string) *rate.Limiter {
	key := hostKey(endpoint)
	if l, ok := r.limiters.Load(key); ok {
		return l.(*rate.Limiter) //nolint:forcetypeassert // only *rate.Limiter is stored
	}
	l, _ := r.limiters.LoadOrStore(key, rate.NewLimiter(r.limit, r.burst))
	return l.(*rate.Limiter) //nolint:forcetypeassert // only *rate.Limiter is stored
}

// hostKey reduces an RPC URL to its lower-cased host:port. Input without a
// host is used as is.
func hostKey(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return endpoint
	}
	return strings.ToLower(u.Host)
}

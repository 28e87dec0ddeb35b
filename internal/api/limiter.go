package api

import (
	"sync"

	"vanrent/internal/config"

	"golang.org/x/time/rate"
)

const defaultBurst = 5

// RateLimiter keeps one token bucket per client key. It is shared by the
// HTTP and gRPC transports so a client has a single budget.
type RateLimiter struct {
	limiters sync.Map // map[string]*rate.Limiter
	rps      float64
	burst    int
}

func NewRateLimiter(cfg config.APIRateLimitConfig) *RateLimiter {
	burst := cfg.Burst
	if burst <= 0 {
		burst = defaultBurst
	}
	return &RateLimiter{rps: cfg.RPS, burst: burst}
}

// Allow reports whether key may make one more request. A non-positive rate
// disables limiting.
func (l *RateLimiter) Allow(key string) bool {
	if l == nil || l.rps <= 0 {
		return true
	}
	return l.getLimiter(key).Allow()
}

func (l *RateLimiter) getLimiter(key string) *rate.Limiter {
	if v, ok := l.limiters.Load(key); ok {
		if lim, ok := v.(*rate.Limiter); ok {
			return lim
		}
	}

	lim := rate.NewLimiter(rate.Limit(l.rps), l.burst)
	actual, loaded := l.limiters.LoadOrStore(key, lim)
	if loaded {
		if actualLim, ok := actual.(*rate.Limiter); ok {
			return actualLim
		}
	}
	return lim
}

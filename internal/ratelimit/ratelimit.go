// Package ratelimit bounds the rate of outbound dispatches per backend,
// recovering the per-route rate limiting concern that every protocol
// handler in proxy-dblb carries (connLimiter/queryLimiter built on
// golang.org/x/time/rate), applied here to Executor dispatch instead of
// raw TCP connections.
package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"
)

// PerBackend hands out a token-bucket limiter per backend URL, creating one
// lazily on first use with the configured rate/burst.
type PerBackend struct {
	ratePerSec float64
	burst      int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New creates a PerBackend limiter set. ratePerSec <= 0 disables limiting
// (Allow always returns true).
func New(ratePerSec float64, burst int) *PerBackend {
	return &PerBackend{
		ratePerSec: ratePerSec,
		burst:      burst,
		limiters:   make(map[string]*rate.Limiter),
	}
}

// Allow reports whether a dispatch to backend may proceed now.
func (p *PerBackend) Allow(backend string) bool {
	if p.ratePerSec <= 0 {
		return true
	}

	p.mu.Lock()
	limiter, ok := p.limiters[backend]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(p.ratePerSec), p.burst)
		p.limiters[backend] = limiter
	}
	p.mu.Unlock()

	return limiter.Allow()
}

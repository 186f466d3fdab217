// # internal/watcher/limiter.go
package watcher

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter throttles analysis passes during change storms, e.g. a branch
// switch touching thousands of files. A nil Limiter never blocks.
type Limiter struct {
	inner *rate.Limiter
}

// NewLimiter creates a token bucket limiter.
// r: passes per second. b: burst size.
func NewLimiter(r float64, b int) *Limiter {
	return &Limiter{
		inner: rate.NewLimiter(rate.Limit(r), b),
	}
}

// Allow reports whether a pass may start now.
func (l *Limiter) Allow() bool {
	if l == nil {
		return true
	}
	return l.inner.AllowN(time.Now(), 1)
}

// Wait blocks until a pass may start.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	return l.inner.WaitN(ctx, 1)
}

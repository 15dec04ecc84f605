// Package ratelimit provides the quota guard placed in front of the external
// catalog. Time is read from an injected clock so callers can drive refills.
package ratelimit

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type Clock func() time.Time

// Limiter admits up to capacity requests per window and refills continuously.
// A nil *Limiter admits everything.
type Limiter struct {
	mu       sync.Mutex
	bucket   *rate.Limiter
	capacity int
	window   time.Duration
	clock    Clock
}

// New returns nil when capacity is not positive.
func New(capacity int, window time.Duration, clock Clock) *Limiter {
	if capacity <= 0 {
		return nil
	}
	if window <= 0 {
		window = time.Second
	}
	if clock == nil {
		clock = time.Now
	}
	perSecond := float64(capacity) / window.Seconds()
	return &Limiter{
		bucket:   rate.NewLimiter(rate.Limit(perSecond), capacity),
		capacity: capacity,
		window:   window,
		clock:    clock,
	}
}

func (l *Limiter) TryAcquire() bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.bucket.AllowN(l.clock(), 1)
}

// Remaining reports whole tokens available now, or -1 when unlimited.
func (l *Limiter) Remaining() int {
	if l == nil {
		return -1
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	tokens := l.bucket.TokensAt(l.clock())
	if tokens <= 0 {
		return 0
	}
	return int(math.Floor(tokens + 1e-9))
}

// Limit reports the capacity per window, or 0 when unlimited.
func (l *Limiter) Limit() int {
	if l == nil {
		return 0
	}
	return l.capacity
}

func (l *Limiter) Window() time.Duration {
	if l == nil {
		return 0
	}
	return l.window
}

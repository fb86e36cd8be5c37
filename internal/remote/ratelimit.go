package remote

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a thread-safe rolling-window rate limiter. At most
// MaxCalls permits are granted within any Window-length interval; Acquire
// blocks until a permit is available or the context is done.
//
// The limiter is the single shared mutable resource between concurrent
// fetch workers, so permit acquisition is serialized here.
type RateLimiter struct {
	maxCalls int
	window   time.Duration

	mu     sync.Mutex
	stamps []time.Time

	// now and sleep are injectable for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRateLimiter creates a limiter allowing maxCalls per window.
func NewRateLimiter(maxCalls int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		maxCalls: maxCalls,
		window:   window,
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Acquire blocks until a call slot is available under the rolling-window
// policy, then claims it. Returns the context error on cancellation.
func (l *RateLimiter) Acquire(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := l.now()
		l.evict(now)

		if len(l.stamps) < l.maxCalls {
			l.stamps = append(l.stamps, now)
			l.mu.Unlock()
			return nil
		}

		// Wait until the oldest stamp leaves the window, then recheck:
		// another waiter may have claimed the freed slot first.
		wait := l.window - now.Sub(l.stamps[0])
		l.mu.Unlock()

		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// Remaining returns how many permits are available right now.
func (l *RateLimiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.evict(l.now())
	return l.maxCalls - len(l.stamps)
}

// evict drops stamps outside the current window. Caller holds mu.
func (l *RateLimiter) evict(now time.Time) {
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(l.stamps) && !l.stamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.stamps = append(l.stamps[:0], l.stamps[i:]...)
	}
}

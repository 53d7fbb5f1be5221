package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	// DefaultMaxRequests is the number of admissions allowed per window.
	DefaultMaxRequests = 8
	// DefaultWindow is the width of the trailing admission window.
	DefaultWindow = time.Second

	// minWait is the floor on how long WaitForSlot sleeps between admission
	// attempts, so a nearly-expired window entry cannot cause a hot loop.
	minWait = 5 * time.Millisecond
)

// Limiter bounds outbound request rate with a trailing time window: a request
// is admitted only while fewer than maxRequests admissions happened within the
// last window. The window is recomputed relative to "now" on every check, so
// it slides continuously rather than resetting at fixed origins.
type Limiter struct {
	mu          sync.Mutex
	maxRequests int
	window      time.Duration
	requests    []time.Time
	now         func() time.Time
}

func New(maxRequests int, window time.Duration) *Limiter {
	if maxRequests <= 0 {
		maxRequests = DefaultMaxRequests
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Limiter{
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
	}
}

// CanMakeRequest prunes admissions older than the window and, if capacity
// remains, records a new admission and reports true. When the window is
// saturated nothing is recorded and it reports false.
func (l *Limiter) CanMakeRequest() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)

	if len(l.requests) < l.maxRequests {
		l.requests = append(l.requests, now)
		return true
	}
	return false
}

// WaitForSlot blocks until an admission is granted or ctx is done. Instead of
// polling at a fixed cadence it sleeps until the oldest tracked admission is
// due to fall out of the window.
func (l *Limiter) WaitForSlot(ctx context.Context) error {
	for {
		if l.CanMakeRequest() {
			return nil
		}

		wait := l.TimeUntilNextSlot()
		if wait < minWait {
			wait = minWait
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// TimeUntilNextSlot reports how long until the oldest admission leaves the
// window. It reports zero when capacity is already available.
func (l *Limiter) TimeUntilNextSlot() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)

	if len(l.requests) < l.maxRequests {
		return 0
	}
	until := l.window - now.Sub(l.requests[0])
	if until < 0 {
		until = 0
	}
	return until
}

// prune must be called with the lock held. Tracked admissions are in
// ascending order, so the survivors are a suffix.
func (l *Limiter) prune(now time.Time) {
	cutoff := now.Add(-l.window)
	idx := 0
	for idx < len(l.requests) && !l.requests[idx].After(cutoff) {
		idx++
	}
	if idx > 0 {
		l.requests = append(l.requests[:0], l.requests[idx:]...)
	}
}

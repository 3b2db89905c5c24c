// internal/common/ratelimit/limiter.go
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Limiter enforces a minimum spacing between outbound calls per endpoint key.
// One instance is shared across all callers of the same external service so
// concurrent searches collectively respect the upstream rate policy.
type Limiter struct {
	clock clockwork.Clock

	mu        sync.Mutex
	intervals map[string]time.Duration
	// next holds the earliest time the next call for a key may fire. Slots
	// are reserved under the lock so concurrent waiters stay serialized.
	next map[string]time.Time
}

// New creates a Limiter on the real clock.
func New() *Limiter {
	return NewWithClock(clockwork.NewRealClock())
}

// NewWithClock creates a Limiter with an injected clock for tests.
func NewWithClock(clock clockwork.Clock) *Limiter {
	return &Limiter{
		clock:     clock,
		intervals: make(map[string]time.Duration),
		next:      make(map[string]time.Time),
	}
}

// SetInterval configures the minimum spacing for an endpoint key.
func (l *Limiter) SetInterval(endpointKey string, minInterval time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.intervals[endpointKey] = minInterval
}

// Interval returns the configured spacing for an endpoint key.
func (l *Limiter) Interval(endpointKey string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.intervals[endpointKey]
}

// Wait blocks until at least the configured interval has elapsed since the
// previous call with the same endpoint key, then records the call. Returns
// early with ctx.Err() on cancellation.
func (l *Limiter) Wait(ctx context.Context, endpointKey string) error {
	l.mu.Lock()
	now := l.clock.Now()
	at := now
	if scheduled, ok := l.next[endpointKey]; ok && scheduled.After(now) {
		at = scheduled
	}
	l.next[endpointKey] = at.Add(l.intervals[endpointKey])
	l.mu.Unlock()

	delay := at.Sub(now)
	if delay <= 0 {
		return nil
	}

	select {
	case <-ctx.Done():
		// No call was made, so give the reserved slot back. Later callers
		// must not be spaced out by a request that never went out.
		l.mu.Lock()
		if scheduled, ok := l.next[endpointKey]; ok {
			l.next[endpointKey] = scheduled.Add(-l.intervals[endpointKey])
		}
		l.mu.Unlock()
		return ctx.Err()
	case <-l.clock.After(delay):
		return nil
	}
}

// internal/common/ratelimit/limiter_test.go
package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

// ==========================
// Spacing Tests
// ==========================

func TestLimiter_FirstCallImmediate(t *testing.T) {
	clock := clockwork.NewFakeClock()
	limiter := NewWithClock(clock)
	limiter.SetInterval("geocoder", time.Second)

	done := make(chan error, 1)
	go func() {
		done <- limiter.Wait(context.Background(), "geocoder")
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("first call should not block")
	}
}

func TestLimiter_SecondCallWaitsInterval(t *testing.T) {
	clock := clockwork.NewFakeClock()
	limiter := NewWithClock(clock)
	limiter.SetInterval("geocoder", time.Second)

	assert.NoError(t, limiter.Wait(context.Background(), "geocoder"))

	done := make(chan error, 1)
	go func() {
		done <- limiter.Wait(context.Background(), "geocoder")
	}()

	// The second waiter must be parked on the clock before time moves.
	clock.BlockUntil(1)

	select {
	case <-done:
		t.Fatal("second call returned before the interval elapsed")
	default:
	}

	clock.Advance(time.Second)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("second call should have been released")
	}
}

func TestLimiter_ZeroIntervalNeverBlocks(t *testing.T) {
	clock := clockwork.NewFakeClock()
	limiter := NewWithClock(clock)

	for i := 0; i < 10; i++ {
		assert.NoError(t, limiter.Wait(context.Background(), "unthrottled"))
	}
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	clock := clockwork.NewFakeClock()
	limiter := NewWithClock(clock)
	limiter.SetInterval("geocoder", time.Hour)
	limiter.SetInterval("area_query", time.Hour)

	assert.NoError(t, limiter.Wait(context.Background(), "geocoder"))

	// A slot reserved for one key must not delay another.
	done := make(chan error, 1)
	go func() {
		done <- limiter.Wait(context.Background(), "area_query")
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("other key should not block")
	}
}

// ==========================
// Concurrency Tests
// ==========================

func TestLimiter_ConcurrentWaitersSerialized(t *testing.T) {
	clock := clockwork.NewFakeClock()
	limiter := NewWithClock(clock)
	limiter.SetInterval("area_query", time.Second)

	assert.NoError(t, limiter.Wait(context.Background(), "area_query"))

	done := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			done <- limiter.Wait(context.Background(), "area_query")
		}()
	}

	clock.BlockUntil(2)

	// One interval releases exactly one waiter.
	clock.Advance(time.Second)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("first waiter should have been released")
	}
	select {
	case <-done:
		t.Fatal("second waiter released too early")
	default:
	}

	clock.Advance(time.Second)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("second waiter should have been released")
	}
}

// ==========================
// Cancellation Tests
// ==========================

func TestLimiter_ContextCancelWhileWaiting(t *testing.T) {
	clock := clockwork.NewFakeClock()
	limiter := NewWithClock(clock)
	limiter.SetInterval("geocoder", time.Minute)

	assert.NoError(t, limiter.Wait(context.Background(), "geocoder"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- limiter.Wait(ctx, "geocoder")
	}()

	clock.BlockUntil(1)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("canceled waiter should return promptly")
	}
}

func TestLimiter_CanceledWaiterReleasesSlot(t *testing.T) {
	clock := clockwork.NewFakeClock()
	limiter := NewWithClock(clock)
	limiter.SetInterval("geocoder", time.Second)

	assert.NoError(t, limiter.Wait(context.Background(), "geocoder"))

	ctx, cancel := context.WithCancel(context.Background())
	canceled := make(chan error, 1)
	go func() {
		canceled <- limiter.Wait(ctx, "geocoder")
	}()

	clock.BlockUntil(1)
	cancel()
	assert.ErrorIs(t, <-canceled, context.Canceled)

	// The canceled waiter made no call, so the next one pays only for the
	// first call's interval, not for the abandoned slot too.
	done := make(chan error, 1)
	go func() {
		done <- limiter.Wait(context.Background(), "geocoder")
	}()

	// The canceled waiter's timer is still registered on the fake clock.
	clock.BlockUntil(2)
	clock.Advance(time.Second)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("slot from the canceled waiter was not released")
	}
}

package timer

import (
	"sync"
	"testing"
	"time"

	"stayhold/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock simulates time: tests advance it, the countdown reads it.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func collectUntilExpired(t *testing.T, c *Countdown, timeout time.Duration) []Event {
	t.Helper()
	var events []Event
	deadline := time.After(timeout)
	for {
		select {
		case e := <-c.Events():
			events = append(events, e)
			if e.Expired {
				return events
			}
		case <-deadline:
			t.Fatalf("no expiry within %v; got %d events", timeout, len(events))
		}
	}
}

func TestCountdown_ExpiresExactlyOnce(t *testing.T) {
	clock := newFakeClock()
	c := New(clock.Now, time.Millisecond, nil)

	c.Start(clock.Now().Add(10 * time.Second))

	// Let a few ticks happen, then push past the deadline.
	go func() {
		time.Sleep(5 * time.Millisecond)
		clock.Advance(4 * time.Second)
		time.Sleep(5 * time.Millisecond)
		clock.Advance(6*time.Second + 500*time.Millisecond)
	}()

	events := collectUntilExpired(t, c, 2*time.Second)

	expiredCount := 0
	last := events[0].RemainingSeconds
	for _, e := range events {
		assert.LessOrEqual(t, e.RemainingSeconds, last, "remaining must never increase")
		last = e.RemainingSeconds
		if e.Expired {
			expiredCount++
			assert.Equal(t, 0, e.RemainingSeconds)
		}
	}
	assert.Equal(t, 1, expiredCount)

	// Terminal state is idempotent: no further events, remaining stays 0.
	time.Sleep(10 * time.Millisecond)
	select {
	case e := <-c.Events():
		t.Fatalf("unexpected event after expiry: %+v", e)
	default:
	}
	assert.Equal(t, 0, c.Remaining())
}

func TestCountdown_RestartCancelsPreviousStream(t *testing.T) {
	clock := newFakeClock()
	c := New(clock.Now, time.Millisecond, nil)

	c.Start(clock.Now().Add(2 * time.Second))
	time.Sleep(5 * time.Millisecond)

	// Restart with a later deadline, then let the first one pass.
	c.Start(clock.Now().Add(30 * time.Second))
	clock.Advance(3 * time.Second)
	time.Sleep(10 * time.Millisecond)

	// Drain: nothing from the superseded stream may have expired.
	for {
		select {
		case e := <-c.Events():
			require.False(t, e.Expired, "superseded stream must not expire")
			continue
		default:
		}
		break
	}
	assert.Equal(t, 27, c.Remaining())
}

func TestCountdown_SupersededRunKeepsRemainingIntact(t *testing.T) {
	clock := newFakeClock()
	c := New(clock.Now, time.Millisecond, nil)

	c.Start(clock.Now().Add(30 * time.Second))

	// A leftover run loop whose deadline already passed and whose stop
	// channel is no longer the current one. Its ticks must not write
	// into the live stream's remaining.
	stale := make(chan struct{})
	go c.run(clock.Now().Add(-time.Second), stale)

	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 30, c.Remaining())

	for {
		select {
		case e := <-c.Events():
			require.False(t, e.Expired, "stale run loop must not expire the live stream")
			continue
		default:
		}
		break
	}
	c.Stop()
	close(stale)
}

func TestCountdown_ExpiryLandsWhenBufferFull(t *testing.T) {
	clock := newFakeClock()
	c := New(clock.Now, time.Millisecond, nil)

	// A consumer that fell far behind: the buffer is packed with stale
	// ticks when the deadline hits.
	for i := 0; i < cap(c.events); i++ {
		c.events <- Event{RemainingSeconds: 100}
	}

	c.Start(clock.Now().Add(-time.Second))

	expired := 0
	for {
		select {
		case e := <-c.Events():
			if e.Expired {
				expired++
			}
			continue
		default:
		}
		break
	}
	assert.Equal(t, 1, expired, "expiry must land even when the buffer is full")
}

func TestCountdown_StartInThePast(t *testing.T) {
	clock := newFakeClock()
	c := New(clock.Now, time.Millisecond, nil)

	c.Start(clock.Now().Add(-time.Second))

	events := collectUntilExpired(t, c, time.Second)
	require.NotEmpty(t, events)
	assert.True(t, events[len(events)-1].Expired)
}

func TestCountdown_Stop(t *testing.T) {
	clock := newFakeClock()
	c := New(clock.Now, time.Millisecond, nil)

	c.Start(clock.Now().Add(time.Second))
	c.Stop()
	clock.Advance(5 * time.Second)
	time.Sleep(10 * time.Millisecond)

	for {
		select {
		case e := <-c.Events():
			assert.False(t, e.Expired, "stopped countdown must not expire")
			continue
		default:
		}
		break
	}
}

func drain(c *Countdown) {
	for {
		select {
		case <-c.Events():
		default:
			return
		}
	}
}

func TestCountdown_UrgencyBands(t *testing.T) {
	clock := newFakeClock()
	c := New(clock.Now, time.Millisecond, nil)

	c.Start(clock.Now().Add(10 * time.Minute))
	e := <-c.Events()
	assert.Equal(t, models.UrgencyCalm, e.Urgency)
	c.Stop()
	drain(c)

	c.Start(clock.Now().Add(3 * time.Minute))
	e = <-c.Events()
	assert.Equal(t, models.UrgencyWarning, e.Urgency)
	c.Stop()
	drain(c)

	c.Start(clock.Now().Add(90 * time.Second))
	e = <-c.Events()
	assert.Equal(t, models.UrgencyCritical, e.Urgency)
	c.Stop()
}

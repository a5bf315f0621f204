package timer

import (
	"sync"
	"time"

	"stayhold/internal/models"

	"github.com/rs/zerolog"
)

// Clock returns the current time. Injectable so tests can simulate the
// passage of time instead of sleeping.
type Clock func() time.Time

// Event is one countdown observation. Expired is true on exactly one
// event per Start, after which the stream stops.
type Event struct {
	RemainingSeconds int
	Urgency          models.Urgency
	Expired          bool
}

// Countdown derives a 1 Hz "remaining time" stream from one absolute
// deadline. There is at most one live stream: Start cancels whatever
// ran before it. The deadline is the backend's expiry timestamp, never
// a locally accumulated duration, so drift between ticks cannot skew
// the forced-termination moment.
type Countdown struct {
	mu        sync.Mutex
	clock     Clock
	interval  time.Duration
	logger    *zerolog.Logger
	events    chan Event
	stop      chan struct{}
	running   bool
	remaining int
}

// New builds a countdown ticking at the given interval (1s in
// production; tests pass something shorter).
func New(clock Clock, interval time.Duration, logger *zerolog.Logger) *Countdown {
	if clock == nil {
		clock = time.Now
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Countdown{
		clock:    clock,
		interval: interval,
		logger:   logger,
		events:   make(chan Event, 16),
	}
}

// Events is the observation stream. The channel stays open across
// restarts; consumers watch one channel for the lifetime of the wizard.
func (c *Countdown) Events() <-chan Event {
	return c.events
}

// Remaining returns the last computed remaining seconds.
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Start begins (or restarts) the countdown toward expiresAt. Any
// previous tick stream is cancelled before the new one begins.
func (c *Countdown) Start(expiresAt time.Time) {
	c.mu.Lock()
	if c.running {
		close(c.stop)
	}
	stop := make(chan struct{})
	c.stop = stop
	c.running = true
	c.remaining = c.secondsUntil(expiresAt)
	initial := c.remaining
	c.mu.Unlock()

	c.emit(Event{RemainingSeconds: initial, Urgency: models.UrgencyFor(initial)}, stop)
	if initial == 0 {
		// Already past the deadline; expire immediately.
		c.finish(stop)
		return
	}

	go c.run(expiresAt, stop)
}

// Stop cancels the current stream without emitting an expiry.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		close(c.stop)
		c.running = false
	}
}

func (c *Countdown) run(expiresAt time.Time, stop chan struct{}) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			if c.stop != stop {
				// A newer Start superseded this stream between the tick
				// and the lock; its deadline must not touch remaining.
				c.mu.Unlock()
				return
			}
			remaining := c.secondsUntil(expiresAt)
			if remaining > c.remaining {
				// Clock moved backwards; remaining never increases.
				remaining = c.remaining
			}
			c.remaining = remaining
			c.mu.Unlock()

			if remaining > 0 {
				c.emit(Event{RemainingSeconds: remaining, Urgency: models.UrgencyFor(remaining)}, stop)
				continue
			}

			c.finish(stop)
			return
		}
	}
}

// finish emits the single expired event and marks the stream done.
func (c *Countdown) finish(stop chan struct{}) {
	c.mu.Lock()
	if c.stop != stop || !c.running {
		// A newer Start superseded this stream; its expiry is moot.
		c.mu.Unlock()
		return
	}
	c.running = false
	c.remaining = 0
	c.mu.Unlock()

	expired := Event{RemainingSeconds: 0, Urgency: models.UrgencyCritical, Expired: true}
	for {
		select {
		case c.events <- expired:
			return
		default:
		}
		// Buffer full of stale ticks; drop one so the expiry lands.
		select {
		case <-c.events:
			if c.logger != nil {
				c.logger.Warn().Msg("dropped stale tick to deliver countdown expiry")
			}
		default:
		}
	}
}

// emit delivers a tick, dropping it if the consumer is behind. Ticks
// are observations, not commands; only the expiry event matters for
// correctness and finish handles that separately.
func (c *Countdown) emit(e Event, stop chan struct{}) {
	select {
	case <-stop:
	case c.events <- e:
	default:
	}
}

func (c *Countdown) secondsUntil(expiresAt time.Time) int {
	d := expiresAt.Sub(c.clock())
	if d <= 0 {
		return 0
	}
	secs := int(d / time.Second)
	if d%time.Second > 0 {
		secs++
	}
	return secs
}

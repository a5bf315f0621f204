package backend

import (
	"context"
	"errors"
	"math"
	"time"
)

// RetryPolicy defines exponential backoff parameters.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// NextDelay returns delay for a given attempt (1-based) with clamping.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if r.InitialDelay <= 0 {
		r.InitialDelay = time.Second
	}
	if r.BackoffFactor <= 0 {
		r.BackoffFactor = 2
	}

	delay := float64(r.InitialDelay) * math.Pow(r.BackoffFactor, float64(attempt-1))
	d := time.Duration(delay)
	if r.MaxDelay > 0 && d > r.MaxDelay {
		d = r.MaxDelay
	}
	if d <= 0 {
		d = time.Second
	}
	return d
}

// DefaultReleasePolicy backs the best-effort release paths, where
// local state has already moved on and the call runs in the
// background.
var DefaultReleasePolicy = RetryPolicy{
	MaxRetries:    3,
	InitialDelay:  time.Second,
	MaxDelay:      10 * time.Second,
	BackoffFactor: 2,
}

// ReleaseAllBestEffort retries ReleaseAll with backoff and swallows
// the final error. Used where local state proceeds regardless: the
// backend's own hold expiry is the safety net against stuck rooms.
func (c *Client) ReleaseAllBestEffort(ctx context.Context, sessionID string) int {
	policy := c.retry
	var lastErr error
	attempts := policy.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		released, err := c.ReleaseAll(ctx, sessionID)
		if err == nil {
			return released
		}
		if errors.Is(err, ErrSessionInvalid) {
			// Backend already dropped the session, nothing to release.
			return 0
		}
		lastErr = err

		if attempt < attempts {
			select {
			case <-ctx.Done():
				attempt = attempts
			case <-time.After(policy.NextDelay(attempt)):
			}
		}
	}

	c.logger.Error().Err(lastErr).Str("session_id", sessionID).
		Msg("release-all failed after retries, relying on backend expiry")
	return 0
}

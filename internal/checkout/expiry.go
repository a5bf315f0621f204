package checkout

import (
	"context"
	"time"

	"stayhold/internal/events"
	"stayhold/internal/metrics"
	"stayhold/internal/models"
	"stayhold/internal/pricing"
	"stayhold/internal/timer"
)

// WatchTimer consumes countdown events and drives expiry. Run it in
// its own goroutine; it returns when the context is cancelled or the
// event channel closes.
func (w *Wizard) WatchTimer(ctx context.Context, ticks <-chan timer.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ticks:
			if !ok {
				return
			}
			if ev.Expired {
				w.OnTimerExpired(ctx)
			}
		}
	}
}

// OnTimerExpired forces the session back to the dates step: holds are
// released best-effort, local state is cleared, and the user sees an
// expiry notice. If a confirm call is in flight the expiry is deferred
// until it settles; see Confirm.
func (w *Wizard) OnTimerExpired(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.phase == models.PhaseConfirmation || w.session == nil {
		return
	}
	if w.confirmInFlight {
		w.pendingExpiry = true
		return
	}
	w.expireLocked(ctx)
}

// expireLocked is the expiry path: event, metric, notice, reset.
// Callers hold the mutex.
func (w *Wizard) expireLocked(ctx context.Context) {
	payload := w.sessionPayload()
	payload.Reason = "hold expired"
	w.publish(events.EventSessionExpired, payload)
	metrics.IncSessionExpired()

	if w.session != nil {
		w.releaseAllAsync(w.session.SessionID)
	}
	w.resetLocked(ctx)
	w.notice = "Your reservation hold expired and the rooms were released. Please start over."
}

// terminateLocked handles the backend declaring the session dead out
// from under us. Callers hold the mutex.
func (w *Wizard) terminateLocked(ctx context.Context, notice string) {
	payload := w.sessionPayload()
	payload.Reason = "session invalidated by backend"
	w.publish(events.EventSessionExpired, payload)
	metrics.IncSessionExpired()

	if w.session != nil {
		w.releaseAllAsync(w.session.SessionID)
	}
	w.resetLocked(ctx)
	w.notice = notice
}

// releaseAllAsync fires a background release-all with retries. Local
// consistency never waits on the network; the backend's own expiry is
// the fallback if every attempt fails.
func (w *Wizard) releaseAllAsync(sessionID string) {
	go func() {
		rctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		released := w.backend.ReleaseAllBestEffort(rctx, sessionID)
		w.logger.Debug().Int("released", released).Str("session_id", sessionID).Msg("background release-all finished")
	}()
}

// resetLocked clears all session-scoped state and returns the wizard
// to the dates step. Callers hold the mutex and release holds
// themselves first, foreground or background as the path demands.
func (w *Wizard) resetLocked(ctx context.Context) {
	w.epoch++
	w.session = nil
	w.cart.Clear()
	w.guests.Clear()
	w.quote = pricing.Quote{}
	w.pendingExpiry = false
	w.phase = models.PhaseDates
	if w.timer != nil {
		w.timer.Stop()
	}
	w.clearResume(ctx)
}

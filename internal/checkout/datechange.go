package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stayhold/internal/backend"
	"stayhold/internal/events"
	"stayhold/internal/models"
)

// DateChangeMode selects what survives a mid-flow date change.
type DateChangeMode string

const (
	// DateChangeRecreate releases the holds and starts a fresh
	// session for the new dates; the countdown restarts with the
	// first new hold.
	DateChangeRecreate DateChangeMode = "recreate"
	// DateChangeKeepTimer releases the holds but keeps the session
	// and its running countdown; the new dates spend the remainder of
	// the original hold window.
	DateChangeKeepTimer DateChangeMode = "keep_timer"
)

// ChangeDates reconciles the wizard with a new date range. Holds for
// the old dates are meaningless for the new ones, so the backend
// release runs first; only after it succeeds are the cart and guest
// records cleared and a new availability load triggered. A failed
// release leaves everything untouched, so the cart never disagrees
// with what the backend still holds.
func (w *Wizard) ChangeDates(ctx context.Context, checkIn, checkOut time.Time, mode DateChangeMode) error {
	w.mu.Lock()
	if w.phase != models.PhaseSearchAndDetails {
		w.mu.Unlock()
		return ErrInvalidPhase
	}
	if err := w.validateDates(checkIn, checkOut); err != nil {
		w.mu.Unlock()
		return err
	}
	if w.session == nil {
		w.mu.Unlock()
		return ErrInvalidPhase
	}
	s := *w.session
	epoch := w.epoch
	w.mu.Unlock()

	if w.mustRelease(epoch) {
		_, err := w.backend.ReleaseAll(ctx, s.SessionID)
		if err != nil && !errors.Is(err, backend.ErrSessionInvalid) {
			w.setLastError("could not release your held rooms, the dates were not changed")
			return fmt.Errorf("release holds for date change: %w", err)
		}
	}

	w.mu.Lock()
	if w.epoch != epoch {
		w.mu.Unlock()
		return ErrSessionExpired
	}

	payload := w.sessionPayload()
	payload.Reason = string(mode)
	w.publish(events.EventDatesChanged, payload)
	for _, lockID := range w.cart.LockIDs() {
		p := w.sessionPayload()
		p.LockID = lockID
		p.Reason = "dates changed"
		w.publish(events.EventLockReleased, p)
	}

	w.cart.Clear()
	w.guests.Clear()

	switch mode {
	case DateChangeKeepTimer:
		// Same session, same deadline: only the dates move.
		w.epoch++
		w.session.CheckIn = checkIn
		w.session.CheckOut = checkOut
	default:
		if w.timer != nil {
			w.timer.Stop()
		}
		w.newSessionLocked(checkIn, checkOut)
	}

	w.phase = models.PhaseSearchAndDetails
	w.notice = ""
	w.lastError = ""
	w.recomputeQuote()
	w.persistResume(ctx)
	w.mu.Unlock()

	if err := w.ReloadAvailability(ctx); err != nil {
		w.setLastError(err.Error())
	}
	return nil
}

// mustRelease reports whether the active session still holds rooms the
// backend needs to give back.
func (w *Wizard) mustRelease(epoch uint64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.epoch == epoch && w.cart.TotalCount() > 0
}

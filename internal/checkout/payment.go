package checkout

import (
	"context"
	"errors"

	"stayhold/internal/backend"
	"stayhold/internal/events"
	"stayhold/internal/metrics"
	"stayhold/internal/models"
)

// ProceedToPayment moves the wizard to the payment phase. The gate is
// recomputed here, at the moment of transition: at least one held room
// and a complete guest record for every one of them.
func (w *Wizard) ProceedToPayment(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.phase != models.PhaseSearchAndDetails {
		return ErrInvalidPhase
	}
	if w.cart.TotalCount() == 0 {
		return ErrNoRoomsHeld
	}
	if !w.guests.AllComplete(w.cart.LockIDs()) {
		return ErrGuestDetailsIncomplete
	}

	w.phase = models.PhasePayment
	w.lastError = ""
	w.persistResume(ctx)
	return nil
}

// Back steps the wizard one phase backwards. Held rooms and guest
// details survive the step; only the confirmation phase is terminal.
func (w *Wizard) Back(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.phase {
	case models.PhasePayment:
		w.phase = models.PhaseSearchAndDetails
	case models.PhaseSearchAndDetails:
		w.phase = models.PhaseDates
	default:
		return ErrInvalidPhase
	}
	w.lastError = ""
	w.persistResume(ctx)
	return nil
}

// Confirm runs the payment-and-confirmation call. A declined payment
// keeps the wizard in the payment phase with its holds intact so the
// user can retry; success is terminal. A timer expiry arriving while
// the call is in flight is deferred until it settles.
func (w *Wizard) Confirm(ctx context.Context, paymentMethodID string) (*models.BookingConfirmation, error) {
	w.mu.Lock()
	if w.phase != models.PhasePayment || w.session == nil {
		w.mu.Unlock()
		return nil, ErrInvalidPhase
	}
	if w.confirmInFlight {
		w.mu.Unlock()
		return nil, ErrInvalidPhase
	}
	if w.cart.TotalCount() == 0 {
		w.mu.Unlock()
		return nil, ErrNoRoomsHeld
	}
	lockIDs := w.cart.LockIDs()
	if !w.guests.AllComplete(lockIDs) {
		w.mu.Unlock()
		return nil, ErrGuestDetailsIncomplete
	}
	s := *w.session
	epoch := w.epoch
	guests := w.guests.Details(lockIDs)
	w.confirmInFlight = true
	w.mu.Unlock()

	conf, err := w.backend.Confirm(ctx, s.SessionID, paymentMethodID, guests)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.confirmInFlight = false
	expiryPending := w.pendingExpiry
	w.pendingExpiry = false

	if w.epoch != epoch {
		return nil, ErrSessionExpired
	}

	if err != nil {
		metrics.IncPaymentFailed()
		w.lastError = err.Error()
		w.publish(events.EventPaymentFailed, func() events.HoldEventPayload {
			p := w.sessionPayload()
			p.Reason = err.Error()
			return p
		}())

		if errors.Is(err, backend.ErrSessionInvalid) {
			w.terminateLocked(ctx, "Your booking session is no longer valid. Please pick your dates again.")
			return nil, ErrSessionExpired
		}
		if expiryPending {
			// The hold ran out while the payment was settling and the
			// payment did not go through; nothing is left to retry on.
			w.expireLocked(ctx)
			return nil, ErrSessionExpired
		}
		// Stay in payment; holds are preserved for a retry.
		return nil, err
	}

	// A deferred expiry loses against a successful confirmation: the
	// backend converted the holds before releasing them.
	w.confirmation = conf
	w.phase = models.PhaseConfirmation
	w.epoch++
	if w.timer != nil {
		w.timer.Stop()
	}
	metrics.IncBookingConfirmed()

	payload := w.sessionPayload()
	payload.BookingID = conf.BookingID
	payload.GrandTotal = w.quote.GrandTotal
	w.publish(events.EventBookingConfirmed, payload)

	w.cart.Clear()
	w.guests.Clear()
	w.clearResume(ctx)
	return conf, nil
}

// Cancel abandons the booking: holds are released best-effort and the
// wizard returns to the dates step regardless of the backend's answer.
func (w *Wizard) Cancel(ctx context.Context) error {
	w.mu.Lock()
	if w.phase == models.PhaseConfirmation || w.confirmInFlight {
		w.mu.Unlock()
		return ErrInvalidPhase
	}
	if w.session == nil {
		w.phase = models.PhaseDates
		w.mu.Unlock()
		return nil
	}
	s := *w.session
	epoch := w.epoch
	w.mu.Unlock()

	if _, err := w.backend.ReleaseAll(ctx, s.SessionID); err != nil {
		// Best-effort: the backend expires the holds on its own.
		w.logger.Error().Err(err).Str("session_id", s.SessionID).Msg("release-all failed on cancel")
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.epoch != epoch {
		return nil
	}

	payload := w.sessionPayload()
	payload.Reason = "cancelled by user"
	w.publish(events.EventSessionCancelled, payload)

	w.resetLocked(ctx)
	w.notice = ""
	return nil
}

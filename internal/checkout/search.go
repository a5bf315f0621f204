package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stayhold/internal/backend"
	"stayhold/internal/events"
	"stayhold/internal/metrics"
	"stayhold/internal/models"
)

// SetDates validates the date range and enters the search step,
// creating exactly one booking session for the range. source selects
// free search or a fixed offer bundle; for offers the whole bundle is
// locked up front, all-or-nothing.
//
// Re-entry after backing out of the search step is legal; holds left
// over from the previous range are released before the new session
// exists, so a lock never outlives the session that acquired it. A
// failed release keeps the old session, cart and dates intact.
func (w *Wizard) SetDates(ctx context.Context, checkIn, checkOut time.Time, source RoomSource) error {
	w.mu.Lock()
	if w.phase != models.PhaseDates {
		w.mu.Unlock()
		return ErrInvalidPhase
	}
	if err := w.validateDates(checkIn, checkOut); err != nil {
		w.mu.Unlock()
		return err
	}
	oldSession := w.session
	epoch := w.epoch
	needRelease := oldSession != nil && w.cart.TotalCount() > 0
	w.mu.Unlock()

	if needRelease {
		_, err := w.backend.ReleaseAll(ctx, oldSession.SessionID)
		if err != nil && !errors.Is(err, backend.ErrSessionInvalid) {
			w.setLastError("could not release your previously held rooms, the dates were not set")
			return fmt.Errorf("release holds before new dates: %w", err)
		}
	}

	w.mu.Lock()
	if w.epoch != epoch {
		w.mu.Unlock()
		return ErrSessionExpired
	}

	if needRelease {
		for _, lockID := range w.cart.LockIDs() {
			p := w.sessionPayload()
			p.LockID = lockID
			p.Reason = "new date range"
			w.publish(events.EventLockReleased, p)
		}
	}
	w.cart.Clear()
	w.guests.Clear()
	if oldSession != nil && w.timer != nil {
		w.timer.Stop()
	}

	if source.Kind == "" {
		source.Kind = SourceFreeSearch
	}
	w.source = source
	w.newSessionLocked(checkIn, checkOut)
	w.phase = models.PhaseSearchAndDetails
	w.notice = ""
	w.lastError = ""
	w.recomputeQuote()
	payload := w.sessionPayload()
	w.mu.Unlock()

	w.publish(events.EventSessionStarted, payload)

	if err := w.ReloadAvailability(ctx); err != nil {
		w.setLastError(err.Error())
	}

	switch w.sourceKind() {
	case SourceOffer:
		if err := w.beginOffer(ctx); err != nil {
			// Surfaced, but the phase still proceeds: the user sees
			// alternatives instead of a dead end.
			w.setLastError(err.Error())
		}
	default:
		if id := source.PreselectRoomTypeID; id != 0 {
			if err := w.AddRoom(ctx, id); err != nil {
				w.setLastError(err.Error())
			}
		}
	}
	return nil
}

// validateDates enforces checkIn < checkOut and checkIn >= today with
// field-level messages. Callers hold the mutex.
func (w *Wizard) validateDates(checkIn, checkOut time.Time) error {
	if checkIn.Before(w.today()) {
		return validationErr("check_in", "check-in cannot be in the past")
	}
	if !checkOut.After(checkIn) {
		return validationErr("check_out", "check-out must be after check-in")
	}
	return nil
}

// ReloadAvailability refreshes the room-type catalog for the active
// session's dates. The result is discarded if the session was
// superseded while the call was in flight.
func (w *Wizard) ReloadAvailability(ctx context.Context) error {
	w.mu.Lock()
	if w.session == nil {
		w.mu.Unlock()
		return ErrInvalidPhase
	}
	checkIn, checkOut := w.session.CheckIn, w.session.CheckOut
	epoch := w.epoch
	w.mu.Unlock()

	roomTypes, err := w.backend.ListRoomTypes(ctx, checkIn, checkOut)
	if err != nil {
		return fmt.Errorf("load availability: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.epoch != epoch {
		return nil
	}
	w.roomTypes = roomTypes
	return nil
}

// AddRoom asks the backend to hold one more room of the given type and
// mirrors the grant into the cart. The cart mutates only on the
// success path; a rejected lock is never shown as already-added.
func (w *Wizard) AddRoom(ctx context.Context, roomTypeID int64) error {
	w.mu.Lock()
	if w.phase != models.PhaseSearchAndDetails || w.session == nil {
		w.mu.Unlock()
		return ErrInvalidPhase
	}
	if !w.cart.CanAdd() {
		w.mu.Unlock()
		metrics.IncLockFailure("cart_full")
		return validationErr("rooms", "no more than %d rooms can be held in one booking", models.MaxRoomsPerSession)
	}
	s := *w.session
	epoch := w.epoch
	sessionExpiry := s.ExpiresAt
	if sessionExpiry.IsZero() {
		sessionExpiry = w.clock().Add(w.holdFor)
	}
	w.mu.Unlock()

	lock, err := w.backend.Lock(ctx, s.SessionID, roomTypeID, s.CheckIn, s.CheckOut, sessionExpiry)

	w.mu.Lock()
	defer w.mu.Unlock()

	if err != nil {
		w.lastError = err.Error()
		switch {
		case errors.Is(err, backend.ErrNoAvailability):
			metrics.IncLockFailure("no_availability")
		case errors.Is(err, backend.ErrLockConflict):
			metrics.IncLockFailure("conflict")
		case errors.Is(err, backend.ErrSessionInvalid):
			metrics.IncLockFailure("session_invalid")
			if w.epoch == epoch {
				w.terminateLocked(ctx, "Your booking session is no longer valid. Please pick your dates again.")
			}
			return ErrSessionExpired
		default:
			metrics.IncLockFailure("backend")
		}
		return err
	}

	if w.epoch != epoch {
		// Session superseded while the lock call was in flight; the
		// grant belongs to nobody. Give it back.
		w.releaseStray(lock.LockID)
		return ErrSessionExpired
	}

	if err := w.cart.AddLock(lock); err != nil {
		w.releaseStray(lock.LockID)
		return err
	}
	w.guests.Ensure(lock.LockID)
	w.adoptExpiryLocked(lock.ExpiresAt)
	w.recomputeQuote()
	w.persistResume(ctx)
	w.lastError = ""
	metrics.IncLockAcquired()

	payload := w.sessionPayload()
	payload.LockID = lock.LockID
	payload.RoomID = lock.RoomID
	payload.RoomTypeID = lock.RoomTypeID
	payload.RoomNumber = lock.RoomNumber
	w.publish(events.EventLockAcquired, payload)
	return nil
}

// RemoveRoom releases the most recently added hold of the room type.
// The backend unlock runs first; only its success mutates the cart, so
// a failed unlock leaves the cart consistent with the still-held room.
func (w *Wizard) RemoveRoom(ctx context.Context, roomTypeID int64) error {
	w.mu.Lock()
	if w.phase != models.PhaseSearchAndDetails {
		w.mu.Unlock()
		return ErrInvalidPhase
	}
	lock := w.cart.PeekLastLock(roomTypeID)
	if lock == nil {
		w.mu.Unlock()
		return validationErr("rooms", "no rooms of this type are selected")
	}
	w.mu.Unlock()

	return w.unlockAndDrop(ctx, lock.LockID, "user decreased room count")
}

// DeselectRoom releases one specific held room.
func (w *Wizard) DeselectRoom(ctx context.Context, lockID string) error {
	w.mu.Lock()
	if w.phase != models.PhaseSearchAndDetails {
		w.mu.Unlock()
		return ErrInvalidPhase
	}
	if w.cart.Lock(lockID) == nil {
		w.mu.Unlock()
		return validationErr("rooms", "this room is not selected")
	}
	w.mu.Unlock()

	return w.unlockAndDrop(ctx, lockID, "user deselected room")
}

func (w *Wizard) unlockAndDrop(ctx context.Context, lockID, reason string) error {
	w.mu.Lock()
	epoch := w.epoch
	w.mu.Unlock()

	if err := w.backend.Unlock(ctx, lockID); err != nil {
		// Rollback-on-failure: nothing was removed locally, so the
		// cart still shows the room the backend still holds.
		w.setLastError("could not release the room, it is still in your booking")
		w.logger.Error().Err(err).Str("lock_id", lockID).Msg("unlock failed, keeping cart entry")
		return fmt.Errorf("unlock: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.epoch != epoch {
		return nil
	}

	removed, err := w.cart.RemoveLock(lockID)
	if err != nil {
		return err
	}
	w.guests.Remove(lockID)
	w.recomputeQuote()
	w.persistResume(ctx)
	w.lastError = ""

	payload := w.sessionPayload()
	payload.LockID = lockID
	payload.RoomID = removed.RoomID
	payload.RoomTypeID = removed.RoomTypeID
	payload.Reason = reason
	w.publish(events.EventLockReleased, payload)
	return nil
}

// beginOffer checks the bundle and locks every required room as one
// all-or-nothing call.
func (w *Wizard) beginOffer(ctx context.Context) error {
	w.mu.Lock()
	s := *w.session
	source := w.source
	epoch := w.epoch
	sessionExpiry := w.clock().Add(w.holdFor)
	w.mu.Unlock()

	avail, err := w.backend.CheckOfferAvailability(ctx, source.OfferID, s.CheckIn, s.CheckOut)
	if err != nil {
		return err
	}
	if !avail.OverallAvailable {
		return backend.ErrOfferUnavailable
	}

	wantRooms := 0
	for _, rt := range avail.PerRoomType {
		wantRooms += rt.Required
	}

	locks, expiresAt, err := w.backend.LockOffer(ctx, s.SessionID, source.OfferID, s.CheckIn, s.CheckOut, sessionExpiry, wantRooms)
	if err != nil {
		metrics.IncLockFailure("offer")
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.epoch != epoch {
		for _, lock := range locks {
			w.releaseStray(lock.LockID)
		}
		return ErrSessionExpired
	}

	// Bundle sizes above the cap cannot be represented in a cart that
	// enforces the session limit; refuse before touching state.
	if len(locks) > models.MaxRoomsPerSession {
		for _, lock := range locks {
			w.releaseStray(lock.LockID)
		}
		return validationErr("rooms", "this offer needs more rooms than a single booking allows")
	}

	for _, lock := range locks {
		if err := w.cart.AddLock(lock); err != nil {
			w.releaseStray(lock.LockID)
			continue
		}
		w.guests.Ensure(lock.LockID)
		metrics.IncLockAcquired()

		payload := w.sessionPayload()
		payload.LockID = lock.LockID
		payload.RoomID = lock.RoomID
		payload.RoomTypeID = lock.RoomTypeID
		payload.RoomNumber = lock.RoomNumber
		w.publish(events.EventLockAcquired, payload)
	}
	w.adoptExpiryLocked(expiresAt)
	w.recomputeQuote()
	w.persistResume(ctx)
	return nil
}

// adoptExpiryLocked takes the backend's expiry as the session deadline
// and starts the countdown on the first granted hold. Callers hold the
// mutex.
func (w *Wizard) adoptExpiryLocked(expiresAt time.Time) {
	if expiresAt.IsZero() || w.session == nil {
		return
	}
	if w.session.ExpiresAt.IsZero() {
		w.session.ExpiresAt = expiresAt
		if w.timer != nil {
			w.timer.Start(expiresAt)
		}
	}
}

// releaseStray returns a granted lock that no active session wants.
// Fire-and-forget: the backend's expiry is the fallback.
func (w *Wizard) releaseStray(lockID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := w.backend.Unlock(ctx, lockID); err != nil {
			w.logger.Error().Err(err).Str("lock_id", lockID).Msg("failed to release stray lock")
		}
	}()
}

func (w *Wizard) setLastError(msg string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastError = msg
}

func (w *Wizard) sourceKind() SourceKind {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.source.Kind
}

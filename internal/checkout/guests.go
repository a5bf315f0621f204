package checkout

import (
	"context"
	"fmt"

	"stayhold/internal/guest"
	"stayhold/internal/models"
)

// UpdateGuest applies a partial edit to the guest record of one held
// room. Out-of-range values are clamped, never rejected; the returned
// warnings describe what was adjusted.
func (w *Wizard) UpdateGuest(ctx context.Context, lockID string, patch guest.Patch) ([]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.phase != models.PhaseSearchAndDetails {
		return nil, ErrInvalidPhase
	}
	lock := w.cart.Lock(lockID)
	if lock == nil {
		return nil, validationErr("room", "this room is not selected")
	}

	warnings := w.guests.Update(lockID, patch, lock)
	w.persistResume(ctx)
	return warnings, nil
}

// UseMyProfile fills one room's guest record from the user's saved
// profile. The profile backs at most one room at a time: applying it
// to a second room clears it from the first.
func (w *Wizard) UseMyProfile(ctx context.Context, lockID string) error {
	w.mu.Lock()
	if w.phase != models.PhaseSearchAndDetails {
		w.mu.Unlock()
		return ErrInvalidPhase
	}
	if w.cart.Lock(lockID) == nil {
		w.mu.Unlock()
		return validationErr("room", "this room is not selected")
	}
	hint := w.guests.Hint()
	epoch := w.epoch
	w.mu.Unlock()

	if hint == nil {
		if w.profiles == nil {
			return guest.ErrProfileIncomplete
		}
		fetched, err := w.profiles.Profile(ctx)
		if err != nil {
			return fmt.Errorf("load profile: %w", err)
		}
		w.mu.Lock()
		if w.epoch == epoch {
			w.guests.SetHint(fetched)
		}
		w.mu.Unlock()
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.epoch != epoch || w.cart.Lock(lockID) == nil {
		return ErrSessionExpired
	}
	if err := w.guests.ApplyProfileHint(lockID); err != nil {
		return err
	}
	w.persistResume(ctx)
	return nil
}

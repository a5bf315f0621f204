package guest

import (
	"errors"
	"fmt"

	"stayhold/internal/models"
)

// ErrProfileIncomplete is returned when the saved profile cannot fill
// a room because the date of birth is missing.
var ErrProfileIncomplete = errors.New("profile has no date of birth; add it before reusing your details")

// Patch is a partial guest-detail update. Nil fields are left alone.
type Patch struct {
	AdultName       *string
	AdultAge        *int
	AdultCount      *int
	ChildCount      *int
	SpecialRequests *string
}

// Ledger keeps one guest record per held room, keyed by lock id, and
// owns the "use my own details in exactly one room" pointer. A record
// is created lazily when its room is first locked and dies with the
// lock.
type Ledger struct {
	details map[string]*models.GuestDetail
	hint    *models.UserProfileHint
}

func NewLedger() *Ledger {
	return &Ledger{details: make(map[string]*models.GuestDetail)}
}

// SetHint installs the read-only profile snapshot. Called once after
// the profile service answers; a nil hint disables the affordance.
func (l *Ledger) SetHint(hint *models.UserProfileHint) {
	l.hint = hint
}

// Hint returns the current profile snapshot, or nil.
func (l *Ledger) Hint() *models.UserProfileHint {
	return l.hint
}

// Ensure returns the record for a lock, creating a zeroed one with a
// single adult if the room was just locked.
func (l *Ledger) Ensure(lockID string) *models.GuestDetail {
	if d, ok := l.details[lockID]; ok {
		return d
	}
	d := &models.GuestDetail{LockID: lockID, AdultCount: 1, ChildCount: 0}
	l.details[lockID] = d
	return d
}

// Update merges the patch into the record and re-validates against the
// room's capacity. Out-of-range values are clamped to the nearest
// valid bound and reported as warnings; the rest of the patch still
// applies. The update is never rejected wholesale.
func (l *Ledger) Update(lockID string, patch Patch, lock *models.RoomLock) []string {
	d := l.Ensure(lockID)
	var warnings []string

	if patch.AdultName != nil {
		d.AdultName = *patch.AdultName
	}
	if patch.SpecialRequests != nil {
		d.SpecialRequests = *patch.SpecialRequests
	}

	if patch.AdultAge != nil {
		d.AdultAge = *patch.AdultAge
		if d.AdultAge < models.MinAdultAge {
			d.AdultAge = models.MinAdultAge
			warnings = append(warnings, fmt.Sprintf("lead guest must be at least %d; age adjusted", models.MinAdultAge))
		}
	}

	if patch.AdultCount != nil {
		d.AdultCount = *patch.AdultCount
	}
	if patch.ChildCount != nil {
		d.ChildCount = *patch.ChildCount
	}

	// Capacity re-check runs on every update, not only on the fields
	// the patch touched, so a stale over-capacity value cannot linger.
	if d.AdultCount < 1 {
		d.AdultCount = 1
		warnings = append(warnings, "each room needs at least one adult; count adjusted")
	}
	if lock != nil && lock.MaxAdults > 0 && d.AdultCount > lock.MaxAdults {
		d.AdultCount = lock.MaxAdults
		warnings = append(warnings, fmt.Sprintf("room %s sleeps at most %d adults; count adjusted", lock.RoomNumber, lock.MaxAdults))
	}
	if d.ChildCount < 0 {
		d.ChildCount = 0
		warnings = append(warnings, "child count cannot be negative; count adjusted")
	}
	if lock != nil && d.ChildCount > lock.MaxChildren {
		d.ChildCount = lock.MaxChildren
		warnings = append(warnings, fmt.Sprintf("room %s allows at most %d children; count adjusted", lock.RoomNumber, lock.MaxChildren))
	}

	// A manual name/age edit on the hint's room means the user is no
	// longer "booking as themselves" there.
	if l.hint != nil && l.hint.UsedInRoom == lockID &&
		(patch.AdultName != nil || patch.AdultAge != nil) {
		l.hint.UsedInRoom = ""
	}

	return warnings
}

// ApplyProfileHint copies the saved profile's name and age into the
// target room and clears them from whatever room previously borrowed
// the hint. At most one room uses the hint at a time; clear-old and
// set-new happen as one step so no observer sees two owners.
func (l *Ledger) ApplyProfileHint(lockID string) error {
	if l.hint == nil || !l.hint.HasDob {
		return ErrProfileIncomplete
	}

	if prev := l.hint.UsedInRoom; prev != "" && prev != lockID {
		if d, ok := l.details[prev]; ok {
			d.AdultName = ""
			d.AdultAge = 0
		}
	}

	d := l.Ensure(lockID)
	d.AdultName = l.hint.Name
	d.AdultAge = l.hint.Age
	l.hint.UsedInRoom = lockID
	return nil
}

// IsComplete reports whether the room's record can go to payment.
func (l *Ledger) IsComplete(lockID string) bool {
	d, ok := l.details[lockID]
	return ok && d.IsComplete()
}

// AllComplete is the details-to-payment gate: every currently held
// lock must have a complete record, not a subset.
func (l *Ledger) AllComplete(lockIDs []string) bool {
	if len(lockIDs) == 0 {
		return false
	}
	for _, id := range lockIDs {
		if !l.IsComplete(id) {
			return false
		}
	}
	return true
}

// Remove drops the record when its lock is destroyed, releasing the
// hint pointer if this room held it.
func (l *Ledger) Remove(lockID string) {
	delete(l.details, lockID)
	if l.hint != nil && l.hint.UsedInRoom == lockID {
		l.hint.UsedInRoom = ""
	}
}

// Clear drops every record, keeping the profile snapshot itself.
func (l *Ledger) Clear() {
	l.details = make(map[string]*models.GuestDetail)
	if l.hint != nil {
		l.hint.UsedInRoom = ""
	}
}

// Get returns the record for a lock, or nil.
func (l *Ledger) Get(lockID string) *models.GuestDetail {
	return l.details[lockID]
}

// Details returns the records for the given locks in order, for the
// confirm payload.
func (l *Ledger) Details(lockIDs []string) []*models.GuestDetail {
	out := make([]*models.GuestDetail, 0, len(lockIDs))
	for _, id := range lockIDs {
		if d, ok := l.details[id]; ok {
			out = append(out, d)
		}
	}
	return out
}

// Len reports how many records exist.
func (l *Ledger) Len() int {
	return len(l.details)
}

package models

// GuestDetail holds the per-room guest record collected during the
// details step, keyed by the lock id of the held room.
type GuestDetail struct {
	LockID          string `json:"lock_id"`
	AdultName       string `json:"adult_name"`
	AdultAge        int    `json:"adult_age"`
	AdultCount      int    `json:"adult_count"`
	ChildCount      int    `json:"child_count"`
	SpecialRequests string `json:"special_requests"`
}

// IsComplete reports whether the record can be submitted for payment.
func (g *GuestDetail) IsComplete() bool {
	return g.AdultName != "" && g.AdultAge >= MinAdultAge && g.AdultCount >= 1
}

// UserProfileHint is a read-only snapshot of the signed-in user's
// profile, usable to auto-fill at most one room's guest details at a
// time. UsedInRoom is the exclusivity owner pointer; empty means the
// hint is not applied anywhere.
type UserProfileHint struct {
	Name       string `json:"name"`
	Age        int    `json:"age"`
	HasDob     bool   `json:"has_dob"`
	UsedInRoom string `json:"used_in_room,omitempty"`
}

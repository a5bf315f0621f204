package models

import "time"

// BookingSession ties together the chosen date range and the expiry
// deadline shared by every hold created under it. A session is never
// mutated after creation: a date change while holds exist produces a
// new session (or reuses the id with a fresh lock set, see checkout).
type BookingSession struct {
	SessionID string    `json:"session_id"`
	CheckIn   time.Time `json:"check_in"`
	CheckOut  time.Time `json:"check_out"`
	ExpiresAt time.Time `json:"expires_at"` // authoritative, set by the lock backend
	CreatedAt time.Time `json:"created_at"`
}

// Nights returns the number of billable nights, minimum 1.
func (s *BookingSession) Nights() int {
	return NightsBetween(s.CheckIn, s.CheckOut)
}

// NightsBetween counts nights between two calendar dates, rounding
// partial days up and clamping at 1.
func NightsBetween(checkIn, checkOut time.Time) int {
	d := checkOut.Sub(checkIn)
	nights := int(d / (24 * time.Hour))
	if d%(24*time.Hour) > 0 {
		nights++
	}
	if nights < 1 {
		nights = 1
	}
	return nights
}

// SessionResume is the persisted snapshot that lets the wizard pick a
// checkout attempt back up after navigation. Everything needed to
// rebuild the cart and guest records travels in the snapshot itself.
type SessionResume struct {
	UserID    int64          `json:"user_id"`
	SessionID string         `json:"session_id"`
	CheckIn   time.Time      `json:"check_in"`
	CheckOut  time.Time      `json:"check_out"`
	ExpiresAt time.Time      `json:"expires_at"`
	Phase     Phase          `json:"phase"`
	Locks     []*RoomLock    `json:"locks,omitempty"`
	Guests    []*GuestDetail `json:"guests,omitempty"`
	OfferID   int64          `json:"offer_id,omitempty"`
	SavedAt   time.Time      `json:"saved_at"`
}

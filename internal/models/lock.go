package models

import "time"

// RoomLock is one held room: a time-bounded exclusive claim on a
// physical room for the session's date range. The backend assigns the
// lock id and owns actual mutual exclusion; locally a lock belongs to
// exactly one session and one cart entry.
type RoomLock struct {
	LockID        string    `json:"lock_id"`
	RoomID        int64     `json:"room_id"`
	RoomTypeID    int64     `json:"room_type_id"`
	RoomNumber    string    `json:"room_no"`
	PricePerNight int64     `json:"price_per_night"` // currency minor units
	TotalPrice    int64     `json:"total_price"`
	MaxAdults     int       `json:"max_adults"`
	MaxChildren   int       `json:"max_children"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// CartEntry groups the locks held for one room type.
type CartEntry struct {
	RoomTypeID int64       `json:"room_type_id"`
	Count      int         `json:"count"`
	Locks      []*RoomLock `json:"locks"`
}

// RoomType is a catalog entry, consumed read-only to populate search.
type RoomType struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	PricePerNight int64  `json:"price_per_night"`
	MaxAdults     int    `json:"max_adults"`
	MaxChildren   int    `json:"max_children"`
	Available     int    `json:"available"`
}

// BookingConfirmation is the terminal result of a successful checkout.
// The booking record it names is owned by the booking service from
// here on, not by this core.
type BookingConfirmation struct {
	BookingID   string    `json:"booking_id"`
	SessionID   string    `json:"session_id"`
	GrandTotal  int64     `json:"grand_total"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

// OfferAvailability is the offer-bundle availability answer.
type OfferAvailability struct {
	OverallAvailable bool                    `json:"overall_available"`
	PerRoomType      []OfferRoomAvailability `json:"per_room_type"`
}

type OfferRoomAvailability struct {
	RoomTypeID int64 `json:"room_type_id"`
	Required   int   `json:"required"`
	Available  int   `json:"available"`
}

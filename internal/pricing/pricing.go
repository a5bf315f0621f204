package pricing

import (
	"math"
	"time"

	"stayhold/internal/models"
)

// Quote is the full price breakdown for the current hold set. It is
// recomputed from scratch whenever the holds or the dates change;
// nothing here is patched incrementally, so the totals cannot drift
// from their inputs.
type Quote struct {
	Nights          int         `json:"nights"`
	Rooms           []RoomTotal `json:"rooms"`
	Subtotal        int64       `json:"subtotal"`
	Tax             int64       `json:"tax"`
	GrandTotal      int64       `json:"grand_total"`
	DiscountPercent float64     `json:"discount_percent,omitempty"`
}

// RoomTotal is one held room's share of the subtotal. All amounts are
// currency minor units.
type RoomTotal struct {
	LockID     string `json:"lock_id"`
	RoomNumber string `json:"room_no"`
	Original   int64  `json:"original"`
	Total      int64  `json:"total"`
}

// Compute builds a quote for the hold set over the date range.
// discountPercent is non-zero only for offer bundles; the discounted
// amount is rounded to the minor unit the same way the backend rounds,
// so client and server totals agree.
func Compute(checkIn, checkOut time.Time, locks []*models.RoomLock, discountPercent float64) Quote {
	nights := models.NightsBetween(checkIn, checkOut)

	q := Quote{Nights: nights, DiscountPercent: discountPercent}
	for _, lock := range locks {
		original := lock.PricePerNight * int64(nights)
		total := original
		if discountPercent > 0 {
			total = ApplyDiscount(original, discountPercent)
		}
		q.Rooms = append(q.Rooms, RoomTotal{
			LockID:     lock.LockID,
			RoomNumber: lock.RoomNumber,
			Original:   original,
			Total:      total,
		})
		q.Subtotal += total
	}

	q.Tax = RoundMinor(float64(q.Subtotal) * models.TaxRatePercent / 100)
	q.GrandTotal = q.Subtotal + q.Tax
	return q
}

// ApplyDiscount returns the discounted amount rounded to the nearest
// minor unit.
func ApplyDiscount(original int64, percent float64) int64 {
	return RoundMinor(float64(original) * (1 - percent/100))
}

// RoundMinor rounds to the nearest minor unit, halves away from zero.
func RoundMinor(amount float64) int64 {
	return int64(math.Round(amount))
}

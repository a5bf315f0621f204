package backend

import "errors"

// Error taxonomy for collaborator calls. Callers classify with
// errors.Is and decide whether the failure is local-recoverable or
// fatal to the session.
var (
	// ErrNoAvailability means the requested room type is exhausted
	// for the date range. Recoverable: offer alternatives.
	ErrNoAvailability = errors.New("no rooms of this type are available for the selected dates")

	// ErrLockConflict means another party holds the specific room.
	// Recoverable: drop only the attempted room from consideration.
	ErrLockConflict = errors.New("room is already held by another guest")

	// ErrSessionInvalid means the backend no longer recognizes the
	// session. Fatal: discard local holds and restart from dates.
	ErrSessionInvalid = errors.New("booking session is no longer valid")

	// ErrPaymentFailed covers gateway declines and payment-side 5xx.
	// Recoverable at the payment step; holds stay until expiry.
	ErrPaymentFailed = errors.New("payment was not accepted")

	// ErrValidationFailed means the backend rejected the submitted
	// guest details or payment method shape.
	ErrValidationFailed = errors.New("booking request failed validation")

	// ErrNotReady means confirm was called before every held room had
	// complete guest details.
	ErrNotReady = errors.New("booking is not ready to confirm")

	// ErrOfferUnavailable means the offer bundle cannot be satisfied
	// as a whole for the date range.
	ErrOfferUnavailable = errors.New("offer cannot be booked for the selected dates")
)

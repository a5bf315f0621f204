package models

// Phase is one step of the checkout wizard. Transitions move forward
// only, except the two explicit "go back" edges handled in checkout.
type Phase string

const (
	PhaseDates            Phase = "dates"
	PhaseSearchAndDetails Phase = "search_and_details"
	PhasePayment          Phase = "payment"
	PhaseConfirmation     Phase = "confirmation"
)

// IsTerminal reports whether the wizard has finished.
func (p Phase) IsTerminal() bool {
	return p == PhaseConfirmation
}

func (p Phase) String() string {
	return string(p)
}

const (
	// MaxRoomsPerSession is the hard cap on held rooms across all
	// room types within one session.
	MaxRoomsPerSession = 5

	// MinAdultAge is the youngest age accepted for the lead guest.
	MinAdultAge = 18

	// TaxRatePercent is the flat tax applied on the subtotal. A fixed
	// domain constant, not configurable.
	TaxRatePercent = 18

	// DefaultResumeTTL is how long a session-resume snapshot survives
	// in the store, in seconds. Holds expire server-side well before
	// this; the snapshot only needs to outlive page navigation.
	DefaultResumeTTL = 30 * 60

	// LockRateLimitPerSecond caps lock attempts sent to the backend
	// so a stuck "+" button cannot flood it.
	LockRateLimitPerSecond = 5
	LockRateLimitBurst     = 5
)

// Urgency is the countdown display band, a pure function of the
// remaining seconds.
type Urgency string

const (
	UrgencyCalm     Urgency = "calm"     // more than 5 minutes left
	UrgencyWarning  Urgency = "warning"  // between 2 and 5 minutes
	UrgencyCritical Urgency = "critical" // 2 minutes or less
)

// UrgencyFor maps remaining seconds to a display band.
func UrgencyFor(remainingSeconds int) Urgency {
	switch {
	case remainingSeconds > 5*60:
		return UrgencyCalm
	case remainingSeconds > 2*60:
		return UrgencyWarning
	default:
		return UrgencyCritical
	}
}

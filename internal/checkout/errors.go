package checkout

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPhase means the operation is not legal in the current
	// wizard phase.
	ErrInvalidPhase = errors.New("operation is not available at this step")

	// ErrNoRoomsHeld blocks the payment transition when the cart is empty.
	ErrNoRoomsHeld = errors.New("select at least one room before continuing to payment")

	// ErrGuestDetailsIncomplete blocks payment until every held room
	// has a complete guest record.
	ErrGuestDetailsIncomplete = errors.New("fill in guest details for every selected room")

	// ErrSessionExpired means the holds are gone and the wizard was
	// reset to the dates step.
	ErrSessionExpired = errors.New("your session expired and the held rooms were released")
)

// ValidationError is a field-level input problem. It never aborts the
// session; the field it names gets the message.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func validationErr(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

package domain

import (
	"context"
	"time"

	"stayhold/internal/models"
)

// LockBackend is the reservation lock collaborator. It owns mutual
// exclusion and hold expiry; the wizard only observes its answers.
type LockBackend interface {
	Lock(ctx context.Context, sessionID string, roomTypeID int64, checkIn, checkOut, sessionExpiry time.Time) (*models.RoomLock, error)
	Unlock(ctx context.Context, lockID string) error
	ReleaseAll(ctx context.Context, sessionID string) (int, error)
	// ReleaseAllBestEffort retries the release with backoff and never
	// fails; callers that have already moved on use it.
	ReleaseAllBestEffort(ctx context.Context, sessionID string) int
	Confirm(ctx context.Context, sessionID, paymentMethodID string, guests []*models.GuestDetail) (*models.BookingConfirmation, error)
	CheckOfferAvailability(ctx context.Context, offerID int64, checkIn, checkOut time.Time) (*models.OfferAvailability, error)
	LockOffer(ctx context.Context, sessionID string, offerID int64, checkIn, checkOut, sessionExpiry time.Time, wantRooms int) ([]*models.RoomLock, time.Time, error)
	ListRoomTypes(ctx context.Context, checkIn, checkOut time.Time) ([]*models.RoomType, error)
}

// ProfileService exposes the signed-in user's saved profile, consumed
// read-only for the "book one room as myself" affordance.
type ProfileService interface {
	Profile(ctx context.Context) (*models.UserProfileHint, error)
}

// ResumeStore persists session-resume snapshots so a checkout survives
// navigation.
type ResumeStore interface {
	Get(ctx context.Context, userID int64) (*models.SessionResume, error)
	Set(ctx context.Context, resume *models.SessionResume) error
	Clear(ctx context.Context, userID int64) error
}

// EventPublisher pushes checkout lifecycle events to subscribers.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// Countdown is the wizard's view of the expiry timer.
type Countdown interface {
	Start(expiresAt time.Time)
	Stop()
	Remaining() int
}

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"stayhold/internal/models"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Client talks to the reservation lock backend over HTTP. The backend
// is authoritative for mutual exclusion and hold expiry; this client
// only translates its answers into the local error taxonomy.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	logger  *zerolog.Logger
	retry   RetryPolicy
}

func NewClient(baseURL string, timeout time.Duration, logger *zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(models.LockRateLimitPerSecond), models.LockRateLimitBurst),
		logger:  logger,
		retry:   DefaultReleasePolicy,
	}
}

type lockRequest struct {
	SessionID     string    `json:"sessionId"`
	RoomTypeID    int64     `json:"roomTypeId"`
	CheckIn       string    `json:"checkIn"`
	CheckOut      string    `json:"checkOut"`
	SessionExpiry time.Time `json:"sessionExpiry"`
}

type lockResponse struct {
	LockID        string    `json:"lockId"`
	RoomID        int64     `json:"roomId"`
	RoomNo        string    `json:"roomNo"`
	PricePerNight int64     `json:"pricePerNight"`
	TotalPrice    int64     `json:"totalPrice"`
	MaxAdults     int       `json:"maxAdults"`
	MaxChildren   int       `json:"maxChildren"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

// Lock asks the backend to hold one room of the given type for the
// session's date range.
func (c *Client) Lock(ctx context.Context, sessionID string, roomTypeID int64, checkIn, checkOut time.Time, sessionExpiry time.Time) (*models.RoomLock, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("lock rate limit: %w", err)
	}

	req := lockRequest{
		SessionID:     sessionID,
		RoomTypeID:    roomTypeID,
		CheckIn:       checkIn.Format("2006-01-02"),
		CheckOut:      checkOut.Format("2006-01-02"),
		SessionExpiry: sessionExpiry,
	}

	var resp lockResponse
	if err := c.post(ctx, "/api/v1/locks", req, &resp, lockStatusError); err != nil {
		return nil, err
	}

	return &models.RoomLock{
		LockID:        resp.LockID,
		RoomID:        resp.RoomID,
		RoomTypeID:    roomTypeID,
		RoomNumber:    resp.RoomNo,
		PricePerNight: resp.PricePerNight,
		TotalPrice:    resp.TotalPrice,
		MaxAdults:     resp.MaxAdults,
		MaxChildren:   resp.MaxChildren,
		ExpiresAt:     resp.ExpiresAt,
	}, nil
}

// Unlock releases a single hold. Failures are returned to the caller:
// unlock is not assumed idempotent, and the local cart must be rolled
// back rather than assumed-removed when this errors.
func (c *Client) Unlock(ctx context.Context, lockID string) error {
	req := struct {
		LockID string `json:"lockId"`
	}{LockID: lockID}

	return c.post(ctx, "/api/v1/locks/release", req, nil, func(status int, body []byte) error {
		return fmt.Errorf("unlock %s: %s", lockID, statusMessage(status, body))
	})
}

// ReleaseAll drops every hold the session owns. Used for cancellation
// and date-change compensation.
func (c *Client) ReleaseAll(ctx context.Context, sessionID string) (int, error) {
	req := struct {
		SessionID string `json:"sessionId"`
	}{SessionID: sessionID}

	var resp struct {
		Released int `json:"released"`
	}
	err := c.post(ctx, "/api/v1/locks/release-all", req, &resp, func(status int, body []byte) error {
		if status == http.StatusGone || status == http.StatusNotFound {
			return fmt.Errorf("release all for %s: %w", sessionID, ErrSessionInvalid)
		}
		return fmt.Errorf("release all for %s: %s", sessionID, statusMessage(status, body))
	})
	if err != nil {
		return 0, err
	}
	return resp.Released, nil
}

// Confirm submits the held rooms for payment and, on success, converts
// them into a booking owned by the booking service.
func (c *Client) Confirm(ctx context.Context, sessionID, paymentMethodID string, guests []*models.GuestDetail) (*models.BookingConfirmation, error) {
	req := struct {
		SessionID       string                `json:"sessionId"`
		PaymentMethodID string                `json:"paymentMethodId"`
		Guests          []*models.GuestDetail `json:"guests"`
	}{SessionID: sessionID, PaymentMethodID: paymentMethodID, Guests: guests}

	var resp models.BookingConfirmation
	if err := c.post(ctx, "/api/v1/bookings/confirm", req, &resp, confirmStatusError); err != nil {
		return nil, err
	}
	if resp.SessionID == "" {
		resp.SessionID = sessionID
	}
	return &resp, nil
}

// CheckOfferAvailability reports whether the complete offer bundle can
// be satisfied for the date range.
func (c *Client) CheckOfferAvailability(ctx context.Context, offerID int64, checkIn, checkOut time.Time) (*models.OfferAvailability, error) {
	req := struct {
		OfferID  int64  `json:"offerId"`
		CheckIn  string `json:"checkIn"`
		CheckOut string `json:"checkOut"`
	}{OfferID: offerID, CheckIn: checkIn.Format("2006-01-02"), CheckOut: checkOut.Format("2006-01-02")}

	var resp models.OfferAvailability
	err := c.post(ctx, "/api/v1/offers/availability", req, &resp, func(status int, body []byte) error {
		if status == http.StatusNotFound {
			return fmt.Errorf("offer %d: %w", offerID, ErrOfferUnavailable)
		}
		return fmt.Errorf("offer availability: %s", statusMessage(status, body))
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

type lockOfferResponse struct {
	LockedRooms []lockResponse `json:"lockedRooms"`
	RoomTypeIDs []int64        `json:"roomTypeIds"`
	ExpiresAt   time.Time      `json:"expiresAt"`
}

// LockOffer locks every room the offer requires as one all-or-nothing
// call. wantRooms is the bundle size known from the availability check;
// a response granting fewer rooms is treated as a hard failure and the
// granted locks are released before returning.
func (c *Client) LockOffer(ctx context.Context, sessionID string, offerID int64, checkIn, checkOut, sessionExpiry time.Time, wantRooms int) ([]*models.RoomLock, time.Time, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, time.Time{}, fmt.Errorf("lock rate limit: %w", err)
	}

	req := struct {
		SessionID     string    `json:"sessionId"`
		OfferID       int64     `json:"offerId"`
		CheckIn       string    `json:"checkIn"`
		CheckOut      string    `json:"checkOut"`
		SessionExpiry time.Time `json:"sessionExpiry"`
	}{
		SessionID:     sessionID,
		OfferID:       offerID,
		CheckIn:       checkIn.Format("2006-01-02"),
		CheckOut:      checkOut.Format("2006-01-02"),
		SessionExpiry: sessionExpiry,
	}

	var resp lockOfferResponse
	if err := c.post(ctx, "/api/v1/offers/lock", req, &resp, lockStatusError); err != nil {
		return nil, time.Time{}, err
	}

	locks := make([]*models.RoomLock, 0, len(resp.LockedRooms))
	for i, lr := range resp.LockedRooms {
		lock := &models.RoomLock{
			LockID:        lr.LockID,
			RoomID:        lr.RoomID,
			RoomNumber:    lr.RoomNo,
			PricePerNight: lr.PricePerNight,
			TotalPrice:    lr.TotalPrice,
			MaxAdults:     lr.MaxAdults,
			MaxChildren:   lr.MaxChildren,
			ExpiresAt:     lr.ExpiresAt,
		}
		if i < len(resp.RoomTypeIDs) {
			lock.RoomTypeID = resp.RoomTypeIDs[i]
		}
		locks = append(locks, lock)
	}

	if wantRooms > 0 && len(locks) < wantRooms {
		// Partial grant. Release what we got so no room stays held
		// under a bundle the user never sees.
		for _, lock := range locks {
			if err := c.Unlock(ctx, lock.LockID); err != nil {
				c.logger.Error().Err(err).Str("lock_id", lock.LockID).Msg("failed to release partially granted offer lock")
			}
		}
		return nil, time.Time{}, fmt.Errorf("offer %d granted %d of %d rooms: %w", offerID, len(locks), wantRooms, ErrOfferUnavailable)
	}

	return locks, resp.ExpiresAt, nil
}

type profileResponse struct {
	Name string `json:"name"`
	Dob  string `json:"dob"`
}

// Profile fetches the signed-in user's profile snapshot used for the
// "book one room under my own details" affordance.
func (c *Client) Profile(ctx context.Context) (*models.UserProfileHint, error) {
	var resp profileResponse
	if err := c.get(ctx, "/api/v1/profile", &resp); err != nil {
		return nil, err
	}

	hint := &models.UserProfileHint{Name: resp.Name}
	if resp.Dob != "" {
		dob, err := time.Parse("2006-01-02", resp.Dob)
		if err == nil {
			hint.HasDob = true
			hint.Age = ageAt(dob, time.Now())
		}
	}
	return hint, nil
}

// ListRoomTypes loads the room-type catalog with availability for the
// date range, used to populate the search step.
func (c *Client) ListRoomTypes(ctx context.Context, checkIn, checkOut time.Time) ([]*models.RoomType, error) {
	path := fmt.Sprintf("/api/v1/room-types?checkIn=%s&checkOut=%s",
		checkIn.Format("2006-01-02"), checkOut.Format("2006-01-02"))

	var resp struct {
		RoomTypes []*models.RoomType `json:"roomTypes"`
	}
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.RoomTypes, nil
}

func ageAt(dob, now time.Time) int {
	age := now.Year() - dob.Year()
	if now.YearDay() < dob.YearDay() {
		age--
	}
	return age
}

func lockStatusError(status int, body []byte) error {
	switch status {
	case http.StatusNotFound:
		return ErrNoAvailability
	case http.StatusConflict:
		return ErrLockConflict
	case http.StatusGone, http.StatusUnauthorized:
		return ErrSessionInvalid
	default:
		return fmt.Errorf("lock backend: %s", statusMessage(status, body))
	}
}

func confirmStatusError(status int, body []byte) error {
	switch status {
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", ErrValidationFailed, statusMessage(status, body))
	case http.StatusPaymentRequired:
		return fmt.Errorf("%w: %s", ErrPaymentFailed, statusMessage(status, body))
	case http.StatusPreconditionFailed:
		return ErrNotReady
	case http.StatusGone, http.StatusUnauthorized:
		return ErrSessionInvalid
	default:
		if status >= 500 {
			return fmt.Errorf("%w: %s", ErrPaymentFailed, statusMessage(status, body))
		}
		return fmt.Errorf("confirm: %s", statusMessage(status, body))
	}
}

func statusMessage(status int, body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return fmt.Sprintf("unexpected status %d", status)
}

func (c *Client) post(ctx context.Context, path string, reqBody, respBody interface{}, statusErr func(int, []byte) error) error {
	data, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("call %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusErr(resp.StatusCode, body)
	}

	if respBody != nil && len(body) > 0 {
		if err := json.Unmarshal(body, respBody); err != nil {
			return fmt.Errorf("decode %s response: %w", path, err)
		}
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, respBody interface{}) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("call %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("call %s: %s", path, statusMessage(resp.StatusCode, body))
	}

	if err := json.Unmarshal(body, respBody); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

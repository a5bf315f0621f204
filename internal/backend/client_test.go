package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 5*time.Second, testLogger()), srv
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return d
}

func TestClient_Lock(t *testing.T) {
	expiresAt := time.Now().Add(15 * time.Minute).UTC().Truncate(time.Second)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/locks", func(w http.ResponseWriter, r *http.Request) {
		var req lockRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "2025-06-01", req.CheckIn)
		assert.Equal(t, "2025-06-03", req.CheckOut)

		switch req.RoomTypeID {
		case 404:
			w.WriteHeader(http.StatusNotFound)
		case 409:
			w.WriteHeader(http.StatusConflict)
		case 410:
			w.WriteHeader(http.StatusGone)
		default:
			json.NewEncoder(w).Encode(lockResponse{
				LockID:        "lock-1",
				RoomID:        7,
				RoomNo:        "204",
				PricePerNight: 1000,
				TotalPrice:    2000,
				MaxAdults:     2,
				MaxChildren:   1,
				ExpiresAt:     expiresAt,
			})
		}
	})

	client, _ := newTestClient(t, mux)
	ctx := context.Background()
	checkIn, checkOut := day(t, "2025-06-01"), day(t, "2025-06-03")

	t.Run("Success", func(t *testing.T) {
		lock, err := client.Lock(ctx, "s1", 3, checkIn, checkOut, expiresAt)
		require.NoError(t, err)
		assert.Equal(t, "lock-1", lock.LockID)
		assert.Equal(t, int64(3), lock.RoomTypeID)
		assert.Equal(t, "204", lock.RoomNumber)
		assert.Equal(t, int64(2000), lock.TotalPrice)
		assert.True(t, lock.ExpiresAt.Equal(expiresAt))
	})

	t.Run("Exhausted", func(t *testing.T) {
		_, err := client.Lock(ctx, "s1", 404, checkIn, checkOut, expiresAt)
		assert.ErrorIs(t, err, ErrNoAvailability)
	})

	t.Run("Conflict", func(t *testing.T) {
		_, err := client.Lock(ctx, "s1", 409, checkIn, checkOut, expiresAt)
		assert.ErrorIs(t, err, ErrLockConflict)
	})

	t.Run("SessionGone", func(t *testing.T) {
		_, err := client.Lock(ctx, "s1", 410, checkIn, checkOut, expiresAt)
		assert.ErrorIs(t, err, ErrSessionInvalid)
	})
}

func TestClient_UnlockFailureSurfaced(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/locks/release", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "boom"})
	})

	client, _ := newTestClient(t, mux)
	err := client.Unlock(context.Background(), "lock-9")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lock-9")
}

func TestClient_Confirm(t *testing.T) {
	var status atomic.Int64

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/bookings/confirm", func(w http.ResponseWriter, r *http.Request) {
		code := int(status.Load())
		if code != 0 {
			w.WriteHeader(code)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"booking_id":  "bk-42",
			"grand_total": 2360,
		})
	})

	client, _ := newTestClient(t, mux)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		status.Store(0)
		conf, err := client.Confirm(ctx, "s1", "pm-1", nil)
		require.NoError(t, err)
		assert.Equal(t, "bk-42", conf.BookingID)
		assert.Equal(t, "s1", conf.SessionID)
	})

	t.Run("PaymentDeclined", func(t *testing.T) {
		status.Store(http.StatusPaymentRequired)
		_, err := client.Confirm(ctx, "s1", "pm-1", nil)
		assert.ErrorIs(t, err, ErrPaymentFailed)
	})

	t.Run("GatewayDown", func(t *testing.T) {
		status.Store(http.StatusBadGateway)
		_, err := client.Confirm(ctx, "s1", "pm-1", nil)
		assert.ErrorIs(t, err, ErrPaymentFailed)
	})

	t.Run("Validation", func(t *testing.T) {
		status.Store(http.StatusBadRequest)
		_, err := client.Confirm(ctx, "s1", "pm-1", nil)
		assert.ErrorIs(t, err, ErrValidationFailed)
	})

	t.Run("NotReady", func(t *testing.T) {
		status.Store(http.StatusPreconditionFailed)
		_, err := client.Confirm(ctx, "s1", "pm-1", nil)
		assert.ErrorIs(t, err, ErrNotReady)
	})
}

func TestClient_LockOfferPartialGrantReleases(t *testing.T) {
	var released atomic.Int64

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/offers/lock", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(lockOfferResponse{
			LockedRooms: []lockResponse{
				{LockID: "lock-a", RoomID: 1, RoomNo: "101", PricePerNight: 1000, TotalPrice: 2000},
			},
			RoomTypeIDs: []int64{3},
			ExpiresAt:   time.Now().Add(10 * time.Minute),
		})
	})
	mux.HandleFunc("/api/v1/locks/release", func(w http.ResponseWriter, r *http.Request) {
		released.Add(1)
		w.WriteHeader(http.StatusNoContent)
	})

	client, _ := newTestClient(t, mux)
	_, _, err := client.LockOffer(context.Background(), "s1", 5,
		day(t, "2025-06-01"), day(t, "2025-06-03"), time.Now().Add(10*time.Minute), 2)

	assert.ErrorIs(t, err, ErrOfferUnavailable)
	assert.Equal(t, int64(1), released.Load(), "the granted lock must be released")
}

func TestClient_ReleaseAll(t *testing.T) {
	var calls atomic.Int64

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/locks/release-all", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]int{"released": 2})
	})

	client, _ := newTestClient(t, mux)

	t.Run("ErrorSurfaced", func(t *testing.T) {
		_, err := client.ReleaseAll(context.Background(), "s1")
		require.Error(t, err)
	})

	t.Run("BestEffortRetries", func(t *testing.T) {
		client.retry = RetryPolicy{MaxRetries: 3, InitialDelay: time.Millisecond, BackoffFactor: 2}
		released := client.ReleaseAllBestEffort(context.Background(), "s1")
		assert.Equal(t, 2, released)
	})
}

func TestClient_Profile(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/profile", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(profileResponse{Name: "Asha Rao", Dob: "1990-03-15"})
	})

	client, _ := newTestClient(t, mux)
	hint, err := client.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Asha Rao", hint.Name)
	assert.True(t, hint.HasDob)
	assert.GreaterOrEqual(t, hint.Age, 18)
}

func TestAgeAt(t *testing.T) {
	dob := time.Date(1990, 3, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 34, ageAt(dob, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 35, ageAt(dob, time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)))
}

func TestRetryPolicy_NextDelay(t *testing.T) {
	p := RetryPolicy{MaxRetries: 5, InitialDelay: time.Second, MaxDelay: 5 * time.Second, BackoffFactor: 2}
	assert.Equal(t, time.Second, p.NextDelay(1))
	assert.Equal(t, 2*time.Second, p.NextDelay(2))
	assert.Equal(t, 4*time.Second, p.NextDelay(3))
	assert.Equal(t, 5*time.Second, p.NextDelay(4))
	assert.Equal(t, time.Second, p.NextDelay(0))
}

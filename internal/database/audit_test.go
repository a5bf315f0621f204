package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"stayhold/internal/events"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.Nop()
	db, err := NewDB(filepath.Join(t.TempDir(), "audit.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDB_RecordHoldEventAndTrail(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	checkIn := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	checkOut := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)

	require.NoError(t, db.RecordHoldEvent(ctx, events.EventSessionStarted, events.HoldEventPayload{
		SessionID: "sess-1", CheckIn: checkIn, CheckOut: checkOut,
	}))
	require.NoError(t, db.RecordHoldEvent(ctx, events.EventLockAcquired, events.HoldEventPayload{
		SessionID: "sess-1", LockID: "l1", RoomID: 7, RoomNumber: "204",
	}))
	require.NoError(t, db.RecordHoldEvent(ctx, events.EventLockReleased, events.HoldEventPayload{
		SessionID: "sess-1", LockID: "l1", Reason: "user removed room",
	}))
	require.NoError(t, db.RecordHoldEvent(ctx, events.EventSessionStarted, events.HoldEventPayload{
		SessionID: "sess-other",
	}))

	trail, err := db.SessionTrail(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, trail, 3)

	assert.Equal(t, events.EventSessionStarted, trail[0].Action)
	assert.True(t, trail[0].CheckIn.Equal(checkIn))

	assert.Equal(t, events.EventLockAcquired, trail[1].Action)
	assert.Equal(t, "l1", trail[1].LockID)
	assert.Equal(t, int64(7), trail[1].RoomID)
	assert.Equal(t, "204", trail[1].RoomNo)

	assert.Equal(t, events.EventLockReleased, trail[2].Action)
	assert.Equal(t, "user removed room", trail[2].Reason)
}

func TestDB_Receipts(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	confirmedAt := time.Date(2025, 6, 1, 14, 30, 0, 0, time.UTC)
	r := Receipt{BookingID: "bk-1", SessionID: "sess-1", GrandTotal: 2360, ConfirmedAt: confirmedAt}
	require.NoError(t, db.SaveReceipt(ctx, r))

	// Saving twice must not fail or duplicate.
	require.NoError(t, db.SaveReceipt(ctx, r))

	got, err := db.Receipt(ctx, "bk-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(2360), got.GrandTotal)
	assert.Equal(t, "sess-1", got.SessionID)

	missing, err := db.Receipt(ctx, "bk-nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDB_EventHandler(t *testing.T) {
	db := newTestDB(t)
	bus := events.NewEventBus()

	for _, eventType := range []string{
		events.EventSessionStarted,
		events.EventLockAcquired,
		events.EventBookingConfirmed,
	} {
		bus.Subscribe(eventType, db.EventHandler(eventType))
	}

	require.NoError(t, bus.PublishJSON(events.EventSessionStarted, events.HoldEventPayload{SessionID: "sess-1"}))
	require.NoError(t, bus.PublishJSON(events.EventLockAcquired, events.HoldEventPayload{SessionID: "sess-1", LockID: "l1"}))
	require.NoError(t, bus.PublishJSON(events.EventBookingConfirmed, events.HoldEventPayload{
		SessionID: "sess-1", BookingID: "bk-9", GrandTotal: 4720,
	}))

	ctx := context.Background()
	trail, err := db.SessionTrail(ctx, "sess-1")
	require.NoError(t, err)
	assert.Len(t, trail, 3)

	receipt, err := db.Receipt(ctx, "bk-9")
	require.NoError(t, err)
	require.NotNil(t, receipt)
	assert.Equal(t, int64(4720), receipt.GrandTotal)
}

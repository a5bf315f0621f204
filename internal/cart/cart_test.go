package cart

import (
	"fmt"
	"testing"

	"stayhold/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lock(id string, roomTypeID int64) *models.RoomLock {
	return &models.RoomLock{LockID: id, RoomTypeID: roomTypeID, PricePerNight: 1000}
}

func TestCart_AddLock(t *testing.T) {
	c := New()

	require.NoError(t, c.AddLock(lock("l1", 1)))
	require.NoError(t, c.AddLock(lock("l2", 1)))
	require.NoError(t, c.AddLock(lock("l3", 2)))

	assert.Equal(t, 3, c.TotalCount())
	assert.Equal(t, 2, c.CountFor(1))
	assert.Equal(t, 1, c.CountFor(2))
	assert.Len(t, c.Entries(), 2)

	for _, e := range c.Entries() {
		assert.Equal(t, e.Count, len(e.Locks), "count must mirror the lock list")
	}
}

func TestCart_CapEnforcedOnEveryMutation(t *testing.T) {
	c := New()
	for i := 0; i < models.MaxRoomsPerSession; i++ {
		require.NoError(t, c.AddLock(lock(fmt.Sprintf("l%d", i), int64(i%2))))
	}

	err := c.AddLock(lock("extra", 3))
	assert.ErrorIs(t, err, ErrCartFull)
	assert.Equal(t, models.MaxRoomsPerSession, c.TotalCount(), "rejected add must not mutate")
	assert.Equal(t, 0, c.CountFor(3))

	// Removing one frees capacity again.
	c.RemoveLastLock(0)
	assert.True(t, c.CanAdd())
	assert.NoError(t, c.AddLock(lock("extra", 3)))
}

func TestCart_RemoveLastLockIsLIFO(t *testing.T) {
	c := New()
	require.NoError(t, c.AddLock(lock("first", 1)))
	require.NoError(t, c.AddLock(lock("second", 1)))

	assert.Equal(t, "second", c.PeekLastLock(1).LockID)

	removed := c.RemoveLastLock(1)
	require.NotNil(t, removed)
	assert.Equal(t, "second", removed.LockID, "decrease must release the newest hold")
	assert.Equal(t, 1, c.CountFor(1))

	removed = c.RemoveLastLock(1)
	require.NotNil(t, removed)
	assert.Equal(t, "first", removed.LockID)
	assert.Empty(t, c.Entries(), "empty entry is deleted")

	assert.Nil(t, c.RemoveLastLock(1))
	assert.Nil(t, c.PeekLastLock(1))
}

func TestCart_RemoveSpecificLock(t *testing.T) {
	c := New()
	require.NoError(t, c.AddLock(lock("a", 1)))
	require.NoError(t, c.AddLock(lock("b", 1)))
	require.NoError(t, c.AddLock(lock("c", 2)))

	removed, err := c.RemoveLock("a")
	require.NoError(t, err)
	assert.Equal(t, "a", removed.LockID)
	assert.Equal(t, 1, c.CountFor(1))
	assert.Nil(t, c.Lock("a"))
	assert.NotNil(t, c.Lock("b"))

	_, err = c.RemoveLock("missing")
	assert.ErrorIs(t, err, ErrLockNotFound)
}

func TestCart_Clear(t *testing.T) {
	c := New()
	require.NoError(t, c.AddLock(lock("a", 1)))
	require.NoError(t, c.AddLock(lock("b", 2)))

	c.Clear()
	assert.Zero(t, c.TotalCount())
	assert.Empty(t, c.Entries())
	assert.Empty(t, c.LockIDs())
	assert.True(t, c.CanAdd())
}

func TestCart_LocksOrder(t *testing.T) {
	c := New()
	require.NoError(t, c.AddLock(lock("a", 2)))
	require.NoError(t, c.AddLock(lock("b", 1)))
	require.NoError(t, c.AddLock(lock("c", 2)))

	ids := c.LockIDs()
	assert.Equal(t, []string{"a", "c", "b"}, ids, "entry order is first-seen room type")
}

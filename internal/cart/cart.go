package cart

import (
	"errors"
	"fmt"

	"stayhold/internal/models"
)

// ErrCartFull is returned when adding a lock would push the session
// over the per-session room cap.
var ErrCartFull = fmt.Errorf("no more than %d rooms can be held in one booking", models.MaxRoomsPerSession)

// ErrLockNotFound is returned when removing a lock the cart does not hold.
var ErrLockNotFound = errors.New("lock is not in the cart")

// Cart is the in-memory collection of held rooms grouped by room type.
// Mutations happen only from the success path of the matching backend
// call; the cart never holds a lock the backend has not granted, and
// never optimistically drops one the backend may still hold.
type Cart struct {
	entries []*models.CartEntry // search-result order preserved
	byLock  map[string]*models.CartEntry
}

func New() *Cart {
	return &Cart{byLock: make(map[string]*models.CartEntry)}
}

// TotalCount is the number of held rooms across all room types.
func (c *Cart) TotalCount() int {
	total := 0
	for _, e := range c.entries {
		total += e.Count
	}
	return total
}

// CanAdd reports whether one more room fits under the session cap.
// Checked before the lock call is even issued, so the backend is not
// asked to hold a room the cart would have to refuse.
func (c *Cart) CanAdd() bool {
	return c.TotalCount() < models.MaxRoomsPerSession
}

// AddLock appends a granted lock to the matching entry, creating the
// entry if absent. Rejects without mutating when the cap is reached.
func (c *Cart) AddLock(lock *models.RoomLock) error {
	if lock == nil {
		return errors.New("nil lock")
	}
	if !c.CanAdd() {
		return ErrCartFull
	}

	entry := c.entryFor(lock.RoomTypeID)
	if entry == nil {
		entry = &models.CartEntry{RoomTypeID: lock.RoomTypeID}
		c.entries = append(c.entries, entry)
	}
	entry.Locks = append(entry.Locks, lock)
	entry.Count = len(entry.Locks)
	c.byLock[lock.LockID] = entry
	return nil
}

// RemoveLastLock pops the most recently added lock for the room type,
// so "decrease count" always releases the newest hold. Returns nil if
// the type has no holds. The caller unlocks on the backend first and
// only then calls this; on backend failure nothing is removed.
func (c *Cart) RemoveLastLock(roomTypeID int64) *models.RoomLock {
	entry := c.entryFor(roomTypeID)
	if entry == nil || len(entry.Locks) == 0 {
		return nil
	}

	lock := entry.Locks[len(entry.Locks)-1]
	entry.Locks = entry.Locks[:len(entry.Locks)-1]
	entry.Count = len(entry.Locks)
	delete(c.byLock, lock.LockID)
	if entry.Count == 0 {
		c.dropEntry(entry)
	}
	return lock
}

// PeekLastLock returns the lock RemoveLastLock would remove, without
// removing it. Used to know which lock id to send to the backend.
func (c *Cart) PeekLastLock(roomTypeID int64) *models.RoomLock {
	entry := c.entryFor(roomTypeID)
	if entry == nil || len(entry.Locks) == 0 {
		return nil
	}
	return entry.Locks[len(entry.Locks)-1]
}

// RemoveLock removes a specific lock from whichever entry holds it.
// Used when a specific room is deselected from search results.
func (c *Cart) RemoveLock(lockID string) (*models.RoomLock, error) {
	entry, ok := c.byLock[lockID]
	if !ok {
		return nil, ErrLockNotFound
	}

	for i, lock := range entry.Locks {
		if lock.LockID == lockID {
			entry.Locks = append(entry.Locks[:i], entry.Locks[i+1:]...)
			entry.Count = len(entry.Locks)
			delete(c.byLock, lockID)
			if entry.Count == 0 {
				c.dropEntry(entry)
			}
			return lock, nil
		}
	}
	// byLock said the entry holds it but the slice disagrees.
	delete(c.byLock, lockID)
	return nil, ErrLockNotFound
}

// Clear empties all entries. Only called after a matching backend
// release-all has settled, so the cart never hides a live hold.
func (c *Cart) Clear() {
	c.entries = nil
	c.byLock = make(map[string]*models.CartEntry)
}

// Lock returns the held lock by id, or nil.
func (c *Cart) Lock(lockID string) *models.RoomLock {
	entry, ok := c.byLock[lockID]
	if !ok {
		return nil
	}
	for _, lock := range entry.Locks {
		if lock.LockID == lockID {
			return lock
		}
	}
	return nil
}

// Locks returns every held lock in insertion order.
func (c *Cart) Locks() []*models.RoomLock {
	var locks []*models.RoomLock
	for _, e := range c.entries {
		locks = append(locks, e.Locks...)
	}
	return locks
}

// LockIDs returns the ids of every held lock.
func (c *Cart) LockIDs() []string {
	ids := make([]string, 0, c.TotalCount())
	for _, lock := range c.Locks() {
		ids = append(ids, lock.LockID)
	}
	return ids
}

// Entries returns the cart entries in room-type order.
func (c *Cart) Entries() []*models.CartEntry {
	return c.entries
}

// CountFor returns the held-room count for one room type.
func (c *Cart) CountFor(roomTypeID int64) int {
	if entry := c.entryFor(roomTypeID); entry != nil {
		return entry.Count
	}
	return 0
}

func (c *Cart) entryFor(roomTypeID int64) *models.CartEntry {
	for _, e := range c.entries {
		if e.RoomTypeID == roomTypeID {
			return e
		}
	}
	return nil
}

func (c *Cart) dropEntry(entry *models.CartEntry) {
	for i, e := range c.entries {
		if e == entry {
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			return
		}
	}
}

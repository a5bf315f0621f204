package guest

import (
	"testing"

	"stayhold/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strp(s string) *string { return &s }
func intp(i int) *int       { return &i }

func roomFor(lockID string) *models.RoomLock {
	return &models.RoomLock{LockID: lockID, RoomNumber: "204", MaxAdults: 2, MaxChildren: 1}
}

func TestLedger_Ensure(t *testing.T) {
	l := NewLedger()

	d := l.Ensure("l1")
	assert.Equal(t, 1, d.AdultCount)
	assert.Equal(t, 0, d.ChildCount)
	assert.False(t, d.IsComplete(), "fresh detail must be incomplete")

	same := l.Ensure("l1")
	assert.Same(t, d, same)
	assert.Equal(t, 1, l.Len())
}

func TestLedger_UpdateClampsInsteadOfRejecting(t *testing.T) {
	l := NewLedger()
	room := roomFor("l1")

	t.Run("AgeClampedToMinimum", func(t *testing.T) {
		warnings := l.Update("l1", Patch{AdultName: strp("Asha"), AdultAge: intp(15)}, room)
		require.Len(t, warnings, 1)

		d := l.Get("l1")
		assert.Equal(t, "Asha", d.AdultName, "valid fields of the patch still apply")
		assert.Equal(t, models.MinAdultAge, d.AdultAge)
	})

	t.Run("AdultCountClampedToCapacity", func(t *testing.T) {
		warnings := l.Update("l1", Patch{AdultCount: intp(5)}, room)
		require.NotEmpty(t, warnings)
		assert.Equal(t, 2, l.Get("l1").AdultCount)
	})

	t.Run("AdultCountClampedToOne", func(t *testing.T) {
		warnings := l.Update("l1", Patch{AdultCount: intp(0)}, room)
		require.NotEmpty(t, warnings)
		assert.Equal(t, 1, l.Get("l1").AdultCount)
	})

	t.Run("ChildCountClamped", func(t *testing.T) {
		warnings := l.Update("l1", Patch{ChildCount: intp(4)}, room)
		require.NotEmpty(t, warnings)
		assert.Equal(t, 1, l.Get("l1").ChildCount)

		warnings = l.Update("l1", Patch{ChildCount: intp(-1)}, room)
		require.NotEmpty(t, warnings)
		assert.Equal(t, 0, l.Get("l1").ChildCount)
	})

	t.Run("ValidPatchNoWarnings", func(t *testing.T) {
		warnings := l.Update("l1", Patch{AdultAge: intp(30), AdultCount: intp(2), ChildCount: intp(1)}, room)
		assert.Empty(t, warnings)
		assert.GreaterOrEqual(t, l.Get("l1").AdultAge, models.MinAdultAge)
	})
}

func TestLedger_Completion(t *testing.T) {
	l := NewLedger()
	room := roomFor("l1")

	assert.False(t, l.IsComplete("l1"))
	l.Update("l1", Patch{AdultName: strp("Asha"), AdultAge: intp(30)}, room)
	assert.True(t, l.IsComplete("l1"))

	l.Ensure("l2")
	assert.False(t, l.AllComplete([]string{"l1", "l2"}), "every held lock must be complete")

	l.Update("l2", Patch{AdultName: strp("Ravi"), AdultAge: intp(40)}, roomFor("l2"))
	assert.True(t, l.AllComplete([]string{"l1", "l2"}))

	assert.False(t, l.AllComplete(nil), "no locks means nothing to pay for")
}

func TestLedger_ApplyProfileHintExclusivity(t *testing.T) {
	l := NewLedger()
	l.SetHint(&models.UserProfileHint{Name: "Asha Rao", Age: 34, HasDob: true})
	l.Ensure("lockA")
	l.Ensure("lockB")

	require.NoError(t, l.ApplyProfileHint("lockA"))
	assert.Equal(t, "Asha Rao", l.Get("lockA").AdultName)
	assert.Equal(t, "lockA", l.Hint().UsedInRoom)

	// Moving the hint clears the previous room in the same step.
	require.NoError(t, l.ApplyProfileHint("lockB"))
	assert.Equal(t, "lockB", l.Hint().UsedInRoom)
	assert.Equal(t, "Asha Rao", l.Get("lockB").AdultName)
	assert.Empty(t, l.Get("lockA").AdultName)
	assert.Zero(t, l.Get("lockA").AdultAge)
}

func TestLedger_ApplyProfileHintRequiresDob(t *testing.T) {
	l := NewLedger()

	err := l.ApplyProfileHint("l1")
	assert.ErrorIs(t, err, ErrProfileIncomplete, "nil hint")

	l.SetHint(&models.UserProfileHint{Name: "Asha", HasDob: false})
	err = l.ApplyProfileHint("l1")
	assert.ErrorIs(t, err, ErrProfileIncomplete)
}

func TestLedger_ManualEditReleasesHint(t *testing.T) {
	l := NewLedger()
	l.SetHint(&models.UserProfileHint{Name: "Asha", Age: 34, HasDob: true})
	require.NoError(t, l.ApplyProfileHint("l1"))

	l.Update("l1", Patch{AdultName: strp("Someone Else")}, roomFor("l1"))
	assert.Empty(t, l.Hint().UsedInRoom)
}

func TestLedger_RemoveAndClear(t *testing.T) {
	l := NewLedger()
	l.SetHint(&models.UserProfileHint{Name: "Asha", Age: 34, HasDob: true})
	l.Ensure("l1")
	l.Ensure("l2")
	require.NoError(t, l.ApplyProfileHint("l1"))

	l.Remove("l1")
	assert.Nil(t, l.Get("l1"))
	assert.Empty(t, l.Hint().UsedInRoom, "hint owner died with its lock")

	l.Clear()
	assert.Zero(t, l.Len())
	assert.NotNil(t, l.Hint(), "clearing records keeps the profile snapshot")
}

func TestLedger_Details(t *testing.T) {
	l := NewLedger()
	l.Update("l1", Patch{AdultName: strp("Asha"), AdultAge: intp(30)}, roomFor("l1"))
	l.Update("l2", Patch{AdultName: strp("Ravi"), AdultAge: intp(40)}, roomFor("l2"))

	details := l.Details([]string{"l2", "l1", "missing"})
	require.Len(t, details, 2)
	assert.Equal(t, "Ravi", details[0].AdultName)
	assert.Equal(t, "Asha", details[1].AdultName)
}

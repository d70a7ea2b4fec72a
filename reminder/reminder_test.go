package reminder

import (
	"testing"

	"todooh/schedule"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "waterplants", Normalize("Water plants"))
	assert.Equal(t, "waterplants", Normalize("  water PLANTS  "))
	assert.Equal(t, "waterplants", Normalize("Water\tPlants"))
	assert.Equal(t, "waterplants", Normalize("waterplants"))
	assert.Equal(t, "", Normalize("   "))
}

func testSpec() schedule.Spec {
	return schedule.Spec{Hour: 9, Minute: 0, Rule: schedule.Daily, Interval: 5}
}

func TestStoreInsertAndFindOne(t *testing.T) {
	s := NewStore()

	require.NoError(t, s.Insert(&Reminder{Owner: 1, Name: "Water plants", Spec: testSpec(), Active: true}))

	r, err := s.FindOne(1, "water PLANTS")
	require.NoError(t, err)
	assert.Equal(t, "Water plants", r.Name)

	_, err = s.FindOne(1, "feed cat")
	assert.ErrorIs(t, err, ErrNotFound)

	// same name, different owner: a different reminder
	_, err = s.FindOne(2, "Water plants")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreInsertDuplicate(t *testing.T) {
	s := NewStore()

	require.NoError(t, s.Insert(&Reminder{Owner: 1, Name: "Water plants"}))

	err := s.Insert(&Reminder{Owner: 1, Name: " WATER plants "})
	assert.ErrorIs(t, err, ErrDuplicate)

	// not a duplicate for another owner
	assert.NoError(t, s.Insert(&Reminder{Owner: 2, Name: "Water plants"}))
}

func TestStoreFindSorted(t *testing.T) {
	s := NewStore()

	assert.Empty(t, s.Find(42))

	require.NoError(t, s.Insert(&Reminder{Owner: 1, Name: "Water plants"}))
	require.NoError(t, s.Insert(&Reminder{Owner: 1, Name: "Feed cat"}))
	require.NoError(t, s.Insert(&Reminder{Owner: 1, Name: "Take out trash"}))

	var names []string
	for _, r := range s.Find(1) {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"Feed cat", "Take out trash", "Water plants"}, names)
}

func TestStoreUpdate(t *testing.T) {
	s := NewStore()

	require.NoError(t, s.Insert(&Reminder{Owner: 1, Name: "Water plants", Active: true}))

	err := s.Update(1, "WATER PLANTS", func(r *Reminder) {
		r.Active = false
		r.State = Done
	})
	require.NoError(t, err)

	r, err := s.FindOne(1, "Water plants")
	require.NoError(t, err)
	assert.False(t, r.Active)
	assert.Equal(t, Done, r.State)

	err = s.Update(1, "feed cat", func(r *Reminder) { t.Fatal("must not be called") })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreDelete(t *testing.T) {
	s := NewStore()

	require.NoError(t, s.Insert(&Reminder{Owner: 1, Name: "Water plants"}))

	s.Delete(1, " water Plants ")
	_, err := s.FindOne(1, "Water plants")
	assert.ErrorIs(t, err, ErrNotFound)

	// deleting again, or deleting for an unknown owner, is a no-op
	s.Delete(1, "Water plants")
	s.Delete(99, "Water plants")
}

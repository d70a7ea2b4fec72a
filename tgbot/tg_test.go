package tgbot

import (
	"testing"

	"todooh/reminder"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitRemindMe(t *testing.T) {
	day, at, interval, name, err := splitRemindMe("Sundays 15:00 5 minutes Create a new ToDooh!")
	require.NoError(t, err)
	assert.Equal(t, "Sundays", day)
	assert.Equal(t, "15:00", at)
	assert.Equal(t, "5", interval)
	assert.Equal(t, "Create a new ToDooh!", name)
}

func TestSplitRemindMeSingularMinute(t *testing.T) {
	_, _, _, name, err := splitRemindMe("today 23:59 1 minute Submit report")
	require.NoError(t, err)
	assert.Equal(t, "Submit report", name)
}

func TestSplitRemindMeKeepsNameSpacing(t *testing.T) {
	_, _, _, name, err := splitRemindMe("daily 09:00 5 MINUTES  Water  plants ")
	require.NoError(t, err)
	assert.Equal(t, " Water  plants ", name)
}

func TestSplitRemindMeMissingUnit(t *testing.T) {
	// without a minutes token there is nothing to name the reminder with;
	// the parser rejects the empty name downstream
	_, _, _, name, err := splitRemindMe("daily 09:00 5 Water plants")
	require.NoError(t, err)
	assert.Equal(t, "", name)
}

func TestSplitRemindMeTooShort(t *testing.T) {
	for _, args := range []string{"", "daily", "daily 09:00", "daily 09:00 5"} {
		_, _, _, _, err := splitRemindMe(args)
		assert.Error(t, err, "args %q", args)
	}
}

func TestCompletionReply(t *testing.T) {
	assert.Equal(t, txtGoodJob, completionReply(nil))
	assert.Equal(t, txtReminderNotFound, completionReply(reminder.ErrNotFound))
	assert.Equal(t, txtReminderNotFound, completionReply(errors.Wrap(reminder.ErrNotFound, "completing")))

	// anything else is a failure on our side, not a missing reminder
	assert.Equal(t, txtCompleteFailed, completionReply(errors.New("connection refused")))
}

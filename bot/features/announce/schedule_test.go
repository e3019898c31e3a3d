package announce

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSchedule(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schedule.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScheduleMissingFile(t *testing.T) {
	schedule, err := LoadSchedule(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Empty(t, schedule)
}

func TestLoadScheduleValid(t *testing.T) {
	path := writeSchedule(t, `[
		{"name": "reminder", "channel_id": "123", "message": "Bidding closes soon", "time": "18:00"},
		{"name": "weekly", "channel_id": "456", "message": "New items", "time": "09:30", "days": ["Monday"]}
	]`)

	schedule, err := LoadSchedule(path)
	require.NoError(t, err)
	require.Len(t, schedule, 2)
	assert.Equal(t, "reminder", schedule[0].Name)
	assert.Equal(t, []string{"Monday"}, schedule[1].Days)
}

func TestLoadScheduleRejectsBadEntries(t *testing.T) {
	cases := map[string]string{
		"missing channel": `[{"message": "hi", "time": "10:00"}]`,
		"missing message": `[{"channel_id": "1", "time": "10:00"}]`,
		"bad time":        `[{"channel_id": "1", "message": "hi", "time": "25:99"}]`,
		"bad weekday":     `[{"channel_id": "1", "message": "hi", "time": "10:00", "days": ["Funday"]}]`,
		"bad json":        `{not json`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadSchedule(writeSchedule(t, content))
			assert.Error(t, err)
		})
	}
}

func TestNextFireSameDay(t *testing.T) {
	a := Announcement{ChannelID: "1", Message: "hi", Time: "18:00"}

	// 2026-08-31 is a Monday
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 8, 31, 18, 0, 0, 0, time.UTC), a.NextFire(now))
}

func TestNextFireRollsToNextDay(t *testing.T) {
	a := Announcement{ChannelID: "1", Message: "hi", Time: "18:00"}

	now := time.Date(2026, 8, 31, 19, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 9, 1, 18, 0, 0, 0, time.UTC), a.NextFire(now))
}

func TestNextFireRespectsWeekdays(t *testing.T) {
	a := Announcement{ChannelID: "1", Message: "hi", Time: "09:30", Days: []string{"Friday"}}

	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC) // Monday
	got := a.NextFire(now)
	assert.Equal(t, time.Friday, got.Weekday())
	assert.Equal(t, time.Date(2026, 9, 4, 9, 30, 0, 0, time.UTC), got)
}

func TestNextFireIsStrictlyAfterNow(t *testing.T) {
	a := Announcement{ChannelID: "1", Message: "hi", Time: "18:00"}

	now := time.Date(2026, 8, 31, 18, 0, 0, 0, time.UTC)
	got := a.NextFire(now)
	assert.True(t, got.After(now))
	assert.Equal(t, time.Date(2026, 9, 1, 18, 0, 0, 0, time.UTC), got)
}

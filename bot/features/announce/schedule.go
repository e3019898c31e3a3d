package announce

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// Announcement is one recurring scheduled message. Time is an "HH:MM" wall
// clock in UTC; an empty Days list means every day.
type Announcement struct {
	Name      string   `json:"name"`
	ChannelID string   `json:"channel_id"`
	Message   string   `json:"message"`
	Time      string   `json:"time"`
	Days      []string `json:"days,omitempty"`
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// LoadSchedule reads and validates the announcement schedule file. A missing
// file is an empty schedule, not an error.
func LoadSchedule(path string) ([]Announcement, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading schedule file: %w", err)
	}

	var schedule []Announcement
	if err := json.Unmarshal(data, &schedule); err != nil {
		return nil, fmt.Errorf("parsing schedule file: %w", err)
	}

	for idx := range schedule {
		if err := schedule[idx].validate(); err != nil {
			return nil, fmt.Errorf("schedule entry %d: %w", idx, err)
		}
	}
	return schedule, nil
}

func (a *Announcement) validate() error {
	if a.ChannelID == "" {
		return fmt.Errorf("channel_id is required")
	}
	if a.Message == "" {
		return fmt.Errorf("message is required")
	}
	if _, _, err := a.clock(); err != nil {
		return err
	}
	for _, day := range a.Days {
		if _, ok := weekdays[strings.ToLower(day)]; !ok {
			return fmt.Errorf("unknown weekday %q", day)
		}
	}
	return nil
}

func (a *Announcement) clock() (hour, minute int, err error) {
	parsed, err := time.Parse("15:04", a.Time)
	if err != nil {
		return 0, 0, fmt.Errorf("time must be HH:MM, got %q", a.Time)
	}
	return parsed.Hour(), parsed.Minute(), nil
}

func (a *Announcement) firesOn(day time.Weekday) bool {
	if len(a.Days) == 0 {
		return true
	}
	for _, d := range a.Days {
		if weekdays[strings.ToLower(d)] == day {
			return true
		}
	}
	return false
}

// NextFire returns the first instant strictly after now at which the
// announcement should be sent.
func (a *Announcement) NextFire(now time.Time) time.Time {
	hour, minute, _ := a.clock()
	now = now.UTC()

	candidate := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, time.UTC)
	for i := 0; i < 8; i++ {
		if candidate.After(now) && a.firesOn(candidate.Weekday()) {
			return candidate
		}
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate
}

package common

import (
	"fmt"
	"time"
)

// FormatDiscordTimestamp formats a unix timestamp as a Discord relative timestamp
func FormatDiscordTimestamp(unix int64) string {
	return fmt.Sprintf("<t:%d:R>", unix)
}

// FormatDuration renders a duration as a compact h/m/s string for notifications
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

// Pluralize returns the singular or plural form based on count
func Pluralize(count int, singular, plural string) string {
	if count == 1 {
		return singular
	}
	return plural
}

package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatDiscordTimestamp(t *testing.T) {
	assert.Equal(t, "<t:1700000000:R>", FormatDiscordTimestamp(1700000000))
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{45 * time.Second, "45s"},
		{90 * time.Second, "1m 30s"},
		{time.Hour + 5*time.Minute, "1h 5m"},
		{2*time.Hour + 59*time.Minute + 59*time.Second, "2h 59m"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatDuration(tc.in))
	}
}

func TestPluralize(t *testing.T) {
	assert.Equal(t, "bid", Pluralize(1, "bid", "bids"))
	assert.Equal(t, "bids", Pluralize(0, "bid", "bids"))
	assert.Equal(t, "bids", Pluralize(3, "bid", "bids"))
}

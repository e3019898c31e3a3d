package models

import "time"

// VoiceSession records one user's presence in a monitored voice channel.
// LeftAt is nil while the session is still open.
type VoiceSession struct {
	ID          int64
	UserID      int64
	Username    string
	DisplayName string
	ChannelID   int64
	ChannelName string
	JoinedAt    time.Time
	LeftAt      *time.Time
}

// Duration returns how long the session lasted, or zero if it is still open.
func (v *VoiceSession) Duration() time.Duration {
	if v.LeftAt == nil {
		return 0
	}
	return v.LeftAt.Sub(v.JoinedAt)
}

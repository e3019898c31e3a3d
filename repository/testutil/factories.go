package testutil

import (
	"fmt"
	"time"

	"bidkeeper/models"
)

// CreateTestVoiceSession creates an open voice session with default values
func CreateTestVoiceSession(userID, channelID int64) *models.VoiceSession {
	return &models.VoiceSession{
		UserID:      userID,
		Username:    "testuser",
		DisplayName: "Test User",
		ChannelID:   channelID,
		ChannelName: "General",
		JoinedAt:    time.Now().UTC().Truncate(time.Millisecond),
	}
}

// CreateTestBidEntry creates a bid entry with default presentation strings
func CreateTestBidEntry(bidderID, placedAt int64) models.BidEntry {
	return models.BidEntry{
		BidderID:    bidderID,
		Mention:     fmt.Sprintf("<@%d>", bidderID),
		DisplayName: "Test Bidder",
		PlacedAt:    placedAt,
	}
}

package service

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"bidkeeper/models"
)

type voiceLogService struct {
	repo VoiceSessionRepository
}

// NewVoiceLogService creates a new voice log service
func NewVoiceLogService(repo VoiceSessionRepository) VoiceLogService {
	return &voiceLogService{repo: repo}
}

func (s *voiceLogService) HandleJoin(ctx context.Context, userID int64, username, displayName string, channelID int64, channelName string) error {
	session := &models.VoiceSession{
		UserID:      userID,
		Username:    username,
		DisplayName: displayName,
		ChannelID:   channelID,
		ChannelName: channelName,
		JoinedAt:    time.Now().UTC(),
	}
	if err := s.repo.RecordJoin(ctx, session); err != nil {
		return fmt.Errorf("failed to record voice join for user %d: %w", userID, err)
	}

	log.WithFields(log.Fields{
		"user":    userID,
		"channel": channelName,
	}).Info("Voice session opened")
	return nil
}

func (s *voiceLogService) HandleLeave(ctx context.Context, userID, channelID int64) (*models.VoiceSession, error) {
	session, err := s.repo.CloseOpenSession(ctx, userID, channelID, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to close voice session for user %d: %w", userID, err)
	}
	if session == nil {
		// leave without a recorded join, e.g. the bot restarted mid-session
		log.Debugf("No open voice session for user %d in channel %d", userID, channelID)
		return nil, nil
	}

	log.WithFields(log.Fields{
		"user":     userID,
		"channel":  session.ChannelName,
		"duration": session.Duration().Round(time.Second),
	}).Info("Voice session closed")
	return session, nil
}

func (s *voiceLogService) RecentSessions(ctx context.Context, channelID int64, limit int) ([]*models.VoiceSession, error) {
	sessions, err := s.repo.GetRecentByChannel(ctx, channelID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list voice sessions for channel %d: %w", channelID, err)
	}
	return sessions, nil
}

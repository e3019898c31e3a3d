package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"bidkeeper/models"
)

// MockStateStore is a mock implementation of StateStore
type MockStateStore struct {
	mock.Mock
}

func (m *MockStateStore) Save(state *models.LedgerSnapshot) error {
	args := m.Called(state)
	return args.Error(0)
}

func (m *MockStateStore) Load() (*models.LedgerSnapshot, bool, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.LedgerSnapshot), args.Bool(1), args.Error(2)
}

// MockMessagePublisher is a mock implementation of MessagePublisher
type MockMessagePublisher struct {
	mock.Mock
}

func (m *MockMessagePublisher) Publish(ctx context.Context, ref models.MessageRef, content string, paused bool) error {
	args := m.Called(ctx, ref, content, paused)
	return args.Error(0)
}

// MockVoiceSessionRepository is a mock implementation of VoiceSessionRepository
type MockVoiceSessionRepository struct {
	mock.Mock
}

func (m *MockVoiceSessionRepository) RecordJoin(ctx context.Context, session *models.VoiceSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockVoiceSessionRepository) CloseOpenSession(ctx context.Context, userID, channelID int64, leftAt time.Time) (*models.VoiceSession, error) {
	args := m.Called(ctx, userID, channelID, leftAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.VoiceSession), args.Error(1)
}

func (m *MockVoiceSessionRepository) GetRecentByChannel(ctx context.Context, channelID int64, limit int) ([]*models.VoiceSession, error) {
	args := m.Called(ctx, channelID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.VoiceSession), args.Error(1)
}

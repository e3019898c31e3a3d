package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"bidkeeper/database"
	"bidkeeper/models"
)

// VoiceSessionRepository implements the service.VoiceSessionRepository interface
type VoiceSessionRepository struct {
	db *database.DB
}

// NewVoiceSessionRepository creates a new voice session repository
func NewVoiceSessionRepository(db *database.DB) *VoiceSessionRepository {
	return &VoiceSessionRepository{db: db}
}

// RecordJoin inserts a new open session
func (r *VoiceSessionRepository) RecordJoin(ctx context.Context, session *models.VoiceSession) error {
	query := `
		INSERT INTO voice_sessions (user_id, username, display_name, channel_id, channel_name, joined_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := r.db.QueryRow(ctx, query,
		session.UserID,
		session.Username,
		session.DisplayName,
		session.ChannelID,
		session.ChannelName,
		session.JoinedAt,
	).Scan(&session.ID)

	if err != nil {
		return fmt.Errorf("failed to record voice join for user %d: %w", session.UserID, err)
	}
	return nil
}

// CloseOpenSession stamps the user's most recent open session in the channel
// with the leave time and returns the closed session
func (r *VoiceSessionRepository) CloseOpenSession(ctx context.Context, userID, channelID int64, leftAt time.Time) (*models.VoiceSession, error) {
	query := `
		UPDATE voice_sessions
		SET left_at = $1
		WHERE id = (
			SELECT id FROM voice_sessions
			WHERE user_id = $2 AND channel_id = $3 AND left_at IS NULL
			ORDER BY joined_at DESC
			LIMIT 1
		)
		RETURNING id, user_id, username, display_name, channel_id, channel_name, joined_at, left_at
	`

	var session models.VoiceSession
	err := r.db.QueryRow(ctx, query, leftAt, userID, channelID).Scan(
		&session.ID,
		&session.UserID,
		&session.Username,
		&session.DisplayName,
		&session.ChannelID,
		&session.ChannelName,
		&session.JoinedAt,
		&session.LeftAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to close voice session for user %d: %w", userID, err)
	}
	return &session, nil
}

// GetRecentByChannel returns the most recent sessions for a channel
func (r *VoiceSessionRepository) GetRecentByChannel(ctx context.Context, channelID int64, limit int) ([]*models.VoiceSession, error) {
	query := `
		SELECT id, user_id, username, display_name, channel_id, channel_name, joined_at, left_at
		FROM voice_sessions
		WHERE channel_id = $1
		ORDER BY joined_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, channelID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get voice sessions for channel %d: %w", channelID, err)
	}
	defer rows.Close()

	var sessions []*models.VoiceSession
	for rows.Next() {
		var session models.VoiceSession
		err := rows.Scan(
			&session.ID,
			&session.UserID,
			&session.Username,
			&session.DisplayName,
			&session.ChannelID,
			&session.ChannelName,
			&session.JoinedAt,
			&session.LeftAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan voice session: %w", err)
		}
		sessions = append(sessions, &session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate voice sessions: %w", err)
	}

	return sessions, nil
}

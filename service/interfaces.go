package service

import (
	"context"
	"time"

	"bidkeeper/models"
)

// Bidder carries the identity captured at bid time. Mention and DisplayName
// are stored denormalized on the entry and never re-resolved.
type Bidder struct {
	ID          int64
	Mention     string
	DisplayName string
}

// AuctionService is the sole owner of the bid ledger. Every operation is
// atomic with respect to one internal lock; mutations persist, re-render and
// publish the leaderboard before the lock is released.
type AuctionService interface {
	// PlaceBid appends a new bid entry for the bidder on the item.
	// Returns ErrUnknownItem, ErrLimitReached or ErrPaused on rejection.
	PlaceBid(ctx context.Context, item string, bidder Bidder) error

	// ClearAllBids removes every entry belonging to the bidder across all
	// items and returns the number removed. Zero removed is not an error.
	ClearAllBids(ctx context.Context, bidderID int64) (int, error)

	// ClearDoneBids removes the bidder's entries that are marked done.
	ClearDoneBids(ctx context.Context, bidderID int64) (int, error)

	// ClearBidsForItem removes the bidder's entries on one item.
	ClearBidsForItem(ctx context.Context, bidderID int64, item string) (int, error)

	// MarkDone flips the bidder's matching not-done entries on the item to
	// done. Entry keys are placed-at unix seconds; an empty key list marks
	// every not-done entry. Non-matching or already-done keys are ignored.
	MarkDone(ctx context.Context, bidderID int64, item string, entryKeys []int64) (int, error)

	// AdminClear removes another bidder's entries on behalf of an admin,
	// scoped to one item or, with an empty item, to the whole catalog.
	// Available while paused.
	AdminClear(ctx context.Context, adminID, bidderID int64, item string) (int, error)

	// ManualSet is the admin override: it deletes the bidder's entries on
	// the item and inserts exactly count fresh ones at baseTimestamp,
	// baseTimestamp+1 and so on. Count zero removes the bidder from the item.
	// Available while paused.
	ManualSet(ctx context.Context, adminID int64, item string, bidder Bidder, count int, baseTimestamp int64) error

	// Restart clears every entry and the first-bid order. The active message
	// ref and the paused flag are preserved. Available while paused.
	Restart(ctx context.Context, actorID int64) error

	// SetPaused toggles the paused flag without touching entries.
	SetPaused(ctx context.Context, paused bool, actorID int64) error

	// ActiveItemsForBidder returns the items on which the bidder has at
	// least one not-done entry, in catalog order.
	ActiveItemsForBidder(bidderID int64) []string

	// Snapshot returns a deep copy of the current ledger state.
	Snapshot() *models.LedgerSnapshot

	// Items returns the configured catalog.
	Items() []string

	// SetActiveMessage points the ledger at a new external status message
	// and publishes the current leaderboard to it.
	SetActiveMessage(ctx context.Context, ref models.MessageRef) error

	// ClearActiveMessage forgets the external status message.
	ClearActiveMessage(ctx context.Context) error

	// Refresh re-renders and re-publishes the leaderboard without mutating
	// bid state.
	Refresh(ctx context.Context) error

	// SetPublisher installs the external message publisher. The bot is
	// constructed after the service, so this cannot go through the
	// constructor; call it before handling the first interaction.
	SetPublisher(pub MessagePublisher)
}

// MessagePublisher pushes rendered leaderboard text to the single external
// status message. Implementations return ErrMessageGone when the target
// message has been deleted.
type MessagePublisher interface {
	Publish(ctx context.Context, ref models.MessageRef, content string, paused bool) error
}

// StateStore persists the full ledger state after each mutation. Loading a
// missing or corrupt snapshot reports ok=false and never fails startup.
type StateStore interface {
	Save(state *models.LedgerSnapshot) error
	Load() (state *models.LedgerSnapshot, ok bool, err error)
}

// VoiceSessionRepository defines the interface for voice session data access
type VoiceSessionRepository interface {
	// RecordJoin inserts a new open session and returns it with its ID set.
	RecordJoin(ctx context.Context, session *models.VoiceSession) error

	// CloseOpenSession stamps the user's open session in the channel with a
	// leave time and returns it, or nil if no open session exists.
	CloseOpenSession(ctx context.Context, userID, channelID int64, leftAt time.Time) (*models.VoiceSession, error)

	// GetRecentByChannel returns the most recent sessions for a channel.
	GetRecentByChannel(ctx context.Context, channelID int64, limit int) ([]*models.VoiceSession, error)
}

// VoiceLogService records voice channel joins, leaves and moves
type VoiceLogService interface {
	// HandleJoin records a user entering a monitored channel.
	HandleJoin(ctx context.Context, userID int64, username, displayName string, channelID int64, channelName string) error

	// HandleLeave closes the user's open session and returns it for
	// notification formatting; nil when no session was open.
	HandleLeave(ctx context.Context, userID, channelID int64) (*models.VoiceSession, error)

	// RecentSessions returns the most recent sessions for a channel,
	// newest first.
	RecentSessions(ctx context.Context, channelID int64, limit int) ([]*models.VoiceSession, error)
}

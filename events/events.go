package events

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBidPlaced          EventType = "bid_placed"
	EventTypeAuctionStateChange EventType = "auction_state_change"
	EventTypeVoiceStateChange   EventType = "voice_state_change"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BidPlacedEvent represents a bid that was accepted into the ledger
type BidPlacedEvent struct {
	Item         string
	BidderID     int64
	BidderName   string
	PlacedAt     int64
	TotalEntries int
	ActiveItems  int
}

func (e BidPlacedEvent) Type() EventType {
	return EventTypeBidPlaced
}

// AuctionStateChangeEvent represents a pause/resume/restart transition
type AuctionStateChangeEvent struct {
	Action  string // "paused", "resumed", "restarted"
	ActorID int64
}

func (e AuctionStateChangeEvent) Type() EventType {
	return EventTypeAuctionStateChange
}

// VoiceStateChangeEvent represents a user joining, leaving or moving
// between monitored voice channels
type VoiceStateChangeEvent struct {
	UserID      int64
	Username    string
	DisplayName string
	FromChannel int64
	ToChannel   int64
	FromName    string
	ToName      string

	// SessionOpened reports that a session was recorded for the join side.
	SessionOpened bool
	// SessionClosed reports that an open session was closed by the leave
	// side; SessionDuration is how long it lasted.
	SessionClosed   bool
	SessionDuration time.Duration
}

func (e VoiceStateChangeEvent) Type() EventType {
	return EventTypeVoiceStateChange
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.handlers[eventType] == nil {
		b.handlers[eventType] = make([]Handler, 0)
	}
	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Emit publishes an event to all registered handlers.
// Handlers run asynchronously; the leaderboard publish path never goes
// through the bus so that renders stay serialized under the ledger lock.
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

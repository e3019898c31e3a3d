package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBusDeliversToAllSubscribers(t *testing.T) {
	bus := NewBus()

	received := make(chan BidPlacedEvent, 2)
	var wg sync.WaitGroup
	wg.Add(2)

	for i := 0; i < 2; i++ {
		bus.Subscribe(EventTypeBidPlaced, func(ctx context.Context, event Event) {
			defer wg.Done()
			if e, ok := event.(BidPlacedEvent); ok {
				received <- e
			} else {
				t.Errorf("Expected BidPlacedEvent, got %T", event)
			}
		})
	}

	sent := BidPlacedEvent{
		Item:         "Netherforce",
		BidderID:     123456,
		BidderName:   "alice",
		PlacedAt:     1700000000,
		TotalEntries: 4,
		ActiveItems:  2,
	}
	bus.Emit(context.Background(), sent)

	wg.Wait()

	for i := 0; i < 2; i++ {
		select {
		case got := <-received:
			assert.Equal(t, sent, got)
		case <-time.After(2 * time.Second):
			t.Fatal("Event was not received within timeout")
		}
	}
}

func TestBusIgnoresOtherEventTypes(t *testing.T) {
	bus := NewBus()

	received := make(chan bool, 1)
	bus.Subscribe(EventTypeVoiceStateChange, func(ctx context.Context, event Event) {
		received <- true
	})

	bus.Emit(context.Background(), AuctionStateChangeEvent{Action: "paused", ActorID: 1})

	select {
	case <-received:
		t.Fatal("Handler received an event of a different type")
	case <-time.After(100 * time.Millisecond):
		// Expected
	}
}

func TestBusRecoversFromHandlerPanic(t *testing.T) {
	bus := NewBus()

	var wg sync.WaitGroup
	wg.Add(2)

	bus.Subscribe(EventTypeAuctionStateChange, func(ctx context.Context, event Event) {
		defer wg.Done()
		panic("handler blew up")
	})

	delivered := false
	bus.Subscribe(EventTypeAuctionStateChange, func(ctx context.Context, event Event) {
		defer wg.Done()
		delivered = true
	})

	bus.Emit(context.Background(), AuctionStateChangeEvent{Action: "restarted", ActorID: 42})
	wg.Wait()

	assert.True(t, delivered, "panic in one handler should not stop delivery to others")
}

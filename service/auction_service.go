package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"bidkeeper/events"
	"bidkeeper/models"
)

type auctionService struct {
	mu        sync.Mutex
	catalog   []string
	maxBids   int
	store     StateStore
	bus       *events.Bus
	publisher MessagePublisher
	now       func() int64

	// guarded by mu; entries holds every catalog item, empty slice when unbid
	entries   map[string][]models.BidEntry
	bidOrder  []string
	paused    bool
	activeMsg models.MessageRef
}

// NewAuctionService creates the ledger for the given catalog, restoring any
// previously persisted state from the store.
func NewAuctionService(items []string, maxBidsPerItem int, store StateStore, bus *events.Bus) AuctionService {
	s := &auctionService{
		catalog: append([]string(nil), items...),
		maxBids: maxBidsPerItem,
		store:   store,
		bus:     bus,
		now:     func() int64 { return time.Now().Unix() },
		entries: make(map[string][]models.BidEntry, len(items)),
	}
	for _, item := range s.catalog {
		s.entries[item] = nil
	}
	s.restore()
	return s
}

// restore loads the persisted snapshot, dropping entries for items that have
// left the catalog since the snapshot was written.
func (s *auctionService) restore() {
	state, ok, err := s.store.Load()
	if err != nil {
		log.Errorf("Failed to load persisted ledger state, starting empty: %v", err)
		return
	}
	if !ok {
		return
	}

	restored := 0
	for item, entries := range state.EntriesByItem {
		if _, known := s.entries[item]; !known {
			if len(entries) > 0 {
				log.Warnf("Dropping %d persisted bids for %q: item no longer in catalog", len(entries), item)
			}
			continue
		}
		s.entries[item] = append([]models.BidEntry(nil), entries...)
		restored += len(entries)
	}
	for _, item := range state.FirstBidOrder {
		if len(s.entries[item]) > 0 {
			s.bidOrder = append(s.bidOrder, item)
		}
	}
	s.paused = state.Paused
	s.activeMsg = state.ActiveMessage

	log.WithFields(log.Fields{
		"entries": restored,
		"paused":  s.paused,
		"message": s.activeMsg.MessageID,
	}).Info("Restored ledger state")
}

func (s *auctionService) SetPublisher(pub MessagePublisher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publisher = pub
}

// PlaceBid appends one discrete entry for the bidder. The cap check and the
// append happen inside the same critical section, so concurrent clicks cannot
// slip past the limit.
func (s *auctionService) PlaceBid(ctx context.Context, item string, bidder Bidder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.paused {
		return ErrPaused
	}
	entries, known := s.entries[item]
	if !known {
		return ErrUnknownItem
	}

	ts := s.now()
	count := 0
	for _, e := range entries {
		if e.BidderID == bidder.ID {
			count++
			// keep placed-at unique per (bidder, item) so entry keys stay distinct
			if e.PlacedAt >= ts {
				ts = e.PlacedAt + 1
			}
		}
	}
	if count >= s.maxBids {
		log.Infof("Rejected bid by %s on %q: limit of %d reached", bidder.DisplayName, item, s.maxBids)
		return ErrLimitReached
	}

	s.entries[item] = append(entries, models.BidEntry{
		BidderID:    bidder.ID,
		Mention:     bidder.Mention,
		DisplayName: bidder.DisplayName,
		PlacedAt:    ts,
	})
	if !contains(s.bidOrder, item) {
		s.bidOrder = append(s.bidOrder, item)
	}

	log.WithFields(log.Fields{
		"item":   item,
		"bidder": bidder.ID,
		"count":  count + 1,
	}).Info("Bid placed")

	s.persistLocked()
	s.publishLocked(ctx)

	if s.bus != nil {
		snap := s.snapshotLocked()
		s.bus.Emit(ctx, events.BidPlacedEvent{
			Item:         item,
			BidderID:     bidder.ID,
			BidderName:   bidder.DisplayName,
			PlacedAt:     ts,
			TotalEntries: snap.TotalEntries(),
			ActiveItems:  snap.ActiveItemCount(),
		})
	}
	return nil
}

func (s *auctionService) ClearAllBids(ctx context.Context, bidderID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.paused {
		return 0, ErrPaused
	}
	cleared := s.removeLocked(bidderID, "", false)
	if cleared > 0 {
		log.Infof("Cleared %d bids for bidder %d", cleared, bidderID)
		s.persistLocked()
	}
	s.publishLocked(ctx)
	return cleared, nil
}

func (s *auctionService) ClearDoneBids(ctx context.Context, bidderID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.paused {
		return 0, ErrPaused
	}
	cleared := s.removeLocked(bidderID, "", true)
	if cleared > 0 {
		log.Infof("Cleared %d done bids for bidder %d", cleared, bidderID)
		s.persistLocked()
	}
	s.publishLocked(ctx)
	return cleared, nil
}

func (s *auctionService) ClearBidsForItem(ctx context.Context, bidderID int64, item string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.paused {
		return 0, ErrPaused
	}
	if _, known := s.entries[item]; !known {
		return 0, ErrUnknownItem
	}
	cleared := s.removeLocked(bidderID, item, false)
	if cleared > 0 {
		log.Infof("Cleared %d bids for bidder %d on %q", cleared, bidderID, item)
		s.persistLocked()
	}
	s.publishLocked(ctx)
	return cleared, nil
}

func (s *auctionService) AdminClear(ctx context.Context, adminID, bidderID int64, item string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item != "" {
		if _, known := s.entries[item]; !known {
			return 0, ErrUnknownItem
		}
	}
	cleared := s.removeLocked(bidderID, item, false)
	if cleared > 0 {
		log.Infof("Admin %d cleared %d bids for bidder %d", adminID, cleared, bidderID)
		s.persistLocked()
	}
	s.publishLocked(ctx)
	return cleared, nil
}

// removeLocked drops the bidder's entries, optionally scoped to one item or
// to done entries only, and prunes emptied items from the first-bid order.
func (s *auctionService) removeLocked(bidderID int64, item string, doneOnly bool) int {
	removed := 0
	for name, entries := range s.entries {
		if item != "" && name != item {
			continue
		}
		kept := entries[:0]
		for _, e := range entries {
			if e.BidderID == bidderID && (!doneOnly || e.Done) {
				removed++
				continue
			}
			kept = append(kept, e)
		}
		s.entries[name] = kept
	}
	if removed > 0 {
		s.pruneBidOrderLocked()
	}
	return removed
}

func (s *auctionService) pruneBidOrderLocked() {
	kept := s.bidOrder[:0]
	for _, item := range s.bidOrder {
		if len(s.entries[item]) > 0 {
			kept = append(kept, item)
		}
	}
	s.bidOrder = kept
}

func (s *auctionService) MarkDone(ctx context.Context, bidderID int64, item string, entryKeys []int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.paused {
		return 0, ErrPaused
	}
	entries, known := s.entries[item]
	if !known {
		return 0, ErrUnknownItem
	}

	keySet := make(map[int64]struct{}, len(entryKeys))
	for _, k := range entryKeys {
		keySet[k] = struct{}{}
	}

	marked := 0
	for i := range entries {
		e := &entries[i]
		if e.BidderID != bidderID || e.Done {
			continue
		}
		if len(keySet) > 0 {
			if _, match := keySet[e.PlacedAt]; !match {
				continue
			}
		}
		e.Done = true
		marked++
	}
	if marked > 0 {
		log.Infof("Marked %d bids done for bidder %d on %q", marked, bidderID, item)
		s.persistLocked()
	}
	s.publishLocked(ctx)
	return marked, nil
}

func (s *auctionService) ManualSet(ctx context.Context, adminID int64, item string, bidder Bidder, count int, baseTimestamp int64) error {
	if count < 0 {
		return fmt.Errorf("bid count must not be negative, got %d", count)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, known := s.entries[item]
	if !known {
		return ErrUnknownItem
	}
	if baseTimestamp <= 0 {
		baseTimestamp = s.now()
	}

	kept := entries[:0]
	for _, e := range entries {
		if e.BidderID != bidder.ID {
			kept = append(kept, e)
		}
	}
	for i := 0; i < count; i++ {
		// +i keeps the replacement entries ordered and their keys unique
		kept = append(kept, models.BidEntry{
			BidderID:    bidder.ID,
			Mention:     bidder.Mention,
			DisplayName: bidder.DisplayName,
			PlacedAt:    baseTimestamp + int64(i),
		})
	}
	s.entries[item] = kept

	if len(kept) > 0 && !contains(s.bidOrder, item) {
		s.bidOrder = append(s.bidOrder, item)
	} else if len(kept) == 0 {
		s.pruneBidOrderLocked()
	}

	log.WithFields(log.Fields{
		"admin":  adminID,
		"item":   item,
		"bidder": bidder.ID,
		"count":  count,
	}).Info("Manual bid override applied")

	s.persistLocked()
	s.publishLocked(ctx)
	return nil
}

// Restart clears every entry and the first-bid order. The active message ref
// is untouched: the same external message is edited in place afterwards.
func (s *auctionService) Restart(ctx context.Context, actorID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for item := range s.entries {
		s.entries[item] = nil
	}
	s.bidOrder = nil

	log.Infof("Auction restarted by %d", actorID)
	s.persistLocked()
	s.publishLocked(ctx)

	if s.bus != nil {
		s.bus.Emit(ctx, events.AuctionStateChangeEvent{Action: "restarted", ActorID: actorID})
	}
	return nil
}

func (s *auctionService) SetPaused(ctx context.Context, paused bool, actorID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.paused == paused {
		return nil
	}
	s.paused = paused

	action := "resumed"
	if paused {
		action = "paused"
	}
	log.Infof("Auction %s by %d", action, actorID)

	s.persistLocked()
	s.publishLocked(ctx)

	if s.bus != nil {
		s.bus.Emit(ctx, events.AuctionStateChangeEvent{Action: action, ActorID: actorID})
	}
	return nil
}

// ActiveItemsForBidder takes a snapshot under the lock and walks it outside,
// so menu building never extends the critical section.
func (s *auctionService) ActiveItemsForBidder(bidderID int64) []string {
	snap := s.Snapshot()

	var items []string
	for _, item := range s.catalog {
		for _, e := range snap.EntriesByItem[item] {
			if e.BidderID == bidderID && !e.Done {
				items = append(items, item)
				break
			}
		}
	}
	return items
}

func (s *auctionService) Snapshot() *models.LedgerSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *auctionService) Items() []string {
	return append([]string(nil), s.catalog...)
}

func (s *auctionService) SetActiveMessage(ctx context.Context, ref models.MessageRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.activeMsg = ref
	log.Infof("Active status message set to %s/%s", ref.ChannelID, ref.MessageID)
	s.persistLocked()
	s.publishLocked(ctx)
	return nil
}

func (s *auctionService) ClearActiveMessage(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.activeMsg = models.MessageRef{}
	s.persistLocked()
	return nil
}

func (s *auctionService) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publishLocked(ctx)
	return nil
}

func (s *auctionService) snapshotLocked() *models.LedgerSnapshot {
	snap := &models.LedgerSnapshot{
		EntriesByItem: make(map[string][]models.BidEntry, len(s.entries)),
		FirstBidOrder: append([]string(nil), s.bidOrder...),
		Paused:        s.paused,
		ActiveMessage: s.activeMsg,
	}
	for item, entries := range s.entries {
		snap.EntriesByItem[item] = append([]models.BidEntry(nil), entries...)
	}
	return snap
}

// persistLocked writes the whole state through the store. Failures are logged
// and never roll back the in-memory mutation: the ledger is the source of
// truth and an operator watches for repeated persistence errors.
func (s *auctionService) persistLocked() {
	if err := s.store.Save(s.snapshotLocked()); err != nil {
		log.Errorf("Failed to persist ledger state: %v", err)
	}
}

// publishLocked renders and pushes the leaderboard while still holding the
// ledger lock, so two renders can never interleave and leave a stale version
// visible last. One attempt per triggering action; a manual refresh retries.
func (s *auctionService) publishLocked(ctx context.Context) {
	if s.publisher == nil || s.activeMsg.IsZero() {
		log.Debug("Skipping leaderboard publish: no active status message")
		return
	}

	content := RenderLeaderboard(s.snapshotLocked(), DefaultMessageLimit)
	err := s.publisher.Publish(ctx, s.activeMsg, content, s.paused)
	if err == nil {
		return
	}
	if errors.Is(err, ErrMessageGone) {
		log.Warnf("Status message %s is gone, clearing active message ref", s.activeMsg.MessageID)
		s.activeMsg = models.MessageRef{}
		s.persistLocked()
		return
	}
	log.Warnf("Failed to publish leaderboard to message %s: %v", s.activeMsg.MessageID, err)
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}

package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"bidkeeper/models"
)

var testItems = []string{"Netherforce", "Stormcaller", "Duskblade"}

func newTestService(t *testing.T, maxBids int) *auctionService {
	t.Helper()

	store := new(MockStateStore)
	store.On("Load").Return(nil, false, nil)
	store.On("Save", mock.Anything).Return(nil)

	svc := NewAuctionService(testItems, maxBids, store, nil).(*auctionService)

	// Deterministic clock, one second per call
	var clock int64 = 1700000000
	svc.now = func() int64 {
		clock++
		return clock
	}
	return svc
}

func testBidder(id int64, name string) Bidder {
	return Bidder{
		ID:          id,
		Mention:     "<@" + name + ">",
		DisplayName: name,
	}
}

func TestPlaceBidAppendsEntry(t *testing.T) {
	svc := newTestService(t, 3)
	ctx := context.Background()
	alice := testBidder(1, "alice")

	require.NoError(t, svc.PlaceBid(ctx, "Netherforce", alice))

	snap := svc.Snapshot()
	require.Len(t, snap.EntriesByItem["Netherforce"], 1)
	entry := snap.EntriesByItem["Netherforce"][0]
	assert.Equal(t, alice.ID, entry.BidderID)
	assert.Equal(t, alice.Mention, entry.Mention)
	assert.Equal(t, alice.DisplayName, entry.DisplayName)
	assert.False(t, entry.Done)
	assert.Equal(t, []string{"Netherforce"}, snap.FirstBidOrder)
}

func TestPlaceBidUnknownItem(t *testing.T) {
	svc := newTestService(t, 3)

	err := svc.PlaceBid(context.Background(), "Moonstaff", testBidder(1, "alice"))
	assert.ErrorIs(t, err, ErrUnknownItem)
}

func TestPlaceBidEnforcesLimit(t *testing.T) {
	svc := newTestService(t, 3)
	ctx := context.Background()
	alice := testBidder(1, "alice")

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.PlaceBid(ctx, "Netherforce", alice))
	}

	err := svc.PlaceBid(ctx, "Netherforce", alice)
	assert.ErrorIs(t, err, ErrLimitReached)
	assert.Len(t, svc.Snapshot().EntriesByItem["Netherforce"], 3)

	// The limit is per item, not global
	assert.NoError(t, svc.PlaceBid(ctx, "Stormcaller", alice))
}

func TestPlaceBidLimitHoldsUnderConcurrency(t *testing.T) {
	svc := newTestService(t, 3)
	ctx := context.Background()
	alice := testBidder(1, "alice")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = svc.PlaceBid(ctx, "Netherforce", alice)
		}()
	}
	wg.Wait()

	assert.Len(t, svc.Snapshot().EntriesByItem["Netherforce"], 3)
}

func TestPlaceBidKeepsEntryKeysUnique(t *testing.T) {
	svc := newTestService(t, 3)
	// Frozen clock: every click lands on the same second
	svc.now = func() int64 { return 1700000000 }
	ctx := context.Background()
	alice := testBidder(1, "alice")

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.PlaceBid(ctx, "Netherforce", alice))
	}

	seen := make(map[int64]bool)
	for _, e := range svc.Snapshot().EntriesByItem["Netherforce"] {
		assert.False(t, seen[e.PlacedAt], "duplicate entry key %d", e.PlacedAt)
		seen[e.PlacedAt] = true
	}
}

func TestPlaceBidRejectedWhilePaused(t *testing.T) {
	svc := newTestService(t, 3)
	ctx := context.Background()

	require.NoError(t, svc.SetPaused(ctx, true, 99))

	err := svc.PlaceBid(ctx, "Netherforce", testBidder(1, "alice"))
	assert.ErrorIs(t, err, ErrPaused)
	assert.Empty(t, svc.Snapshot().EntriesByItem["Netherforce"])
}

func TestClearAllBidsRemovesAcrossItems(t *testing.T) {
	svc := newTestService(t, 3)
	ctx := context.Background()
	alice := testBidder(1, "alice")
	bob := testBidder(2, "bob")

	require.NoError(t, svc.PlaceBid(ctx, "Netherforce", alice))
	require.NoError(t, svc.PlaceBid(ctx, "Stormcaller", alice))
	require.NoError(t, svc.PlaceBid(ctx, "Netherforce", bob))

	removed, err := svc.ClearAllBids(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	snap := svc.Snapshot()
	require.Len(t, snap.EntriesByItem["Netherforce"], 1)
	assert.Equal(t, bob.ID, snap.EntriesByItem["Netherforce"][0].BidderID)
	assert.Empty(t, snap.EntriesByItem["Stormcaller"])
	// Stormcaller emptied out, so it leaves the first-bid order
	assert.Equal(t, []string{"Netherforce"}, snap.FirstBidOrder)
}

func TestClearAllBidsWithNoneIsNotAnError(t *testing.T) {
	svc := newTestService(t, 3)

	removed, err := svc.ClearAllBids(context.Background(), 42)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestClearDoneBidsOnlyRemovesDone(t *testing.T) {
	svc := newTestService(t, 3)
	ctx := context.Background()
	alice := testBidder(1, "alice")

	require.NoError(t, svc.PlaceBid(ctx, "Netherforce", alice))
	require.NoError(t, svc.PlaceBid(ctx, "Stormcaller", alice))

	marked, err := svc.MarkDone(ctx, alice.ID, "Netherforce", nil)
	require.NoError(t, err)
	require.Equal(t, 1, marked)

	removed, err := svc.ClearDoneBids(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	snap := svc.Snapshot()
	assert.Empty(t, snap.EntriesByItem["Netherforce"])
	assert.Len(t, snap.EntriesByItem["Stormcaller"], 1)
}

func TestClearBidsForItemIsScoped(t *testing.T) {
	svc := newTestService(t, 3)
	ctx := context.Background()
	alice := testBidder(1, "alice")

	require.NoError(t, svc.PlaceBid(ctx, "Netherforce", alice))
	require.NoError(t, svc.PlaceBid(ctx, "Stormcaller", alice))

	removed, err := svc.ClearBidsForItem(ctx, alice.ID, "Netherforce")
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Len(t, svc.Snapshot().EntriesByItem["Stormcaller"], 1)

	_, err = svc.ClearBidsForItem(ctx, alice.ID, "Moonstaff")
	assert.ErrorIs(t, err, ErrUnknownItem)
}

func TestUserClearsRejectedWhilePaused(t *testing.T) {
	svc := newTestService(t, 3)
	ctx := context.Background()
	alice := testBidder(1, "alice")

	require.NoError(t, svc.PlaceBid(ctx, "Netherforce", alice))
	require.NoError(t, svc.SetPaused(ctx, true, 99))

	_, err := svc.ClearAllBids(ctx, alice.ID)
	assert.ErrorIs(t, err, ErrPaused)
	_, err = svc.ClearDoneBids(ctx, alice.ID)
	assert.ErrorIs(t, err, ErrPaused)
	_, err = svc.ClearBidsForItem(ctx, alice.ID, "Netherforce")
	assert.ErrorIs(t, err, ErrPaused)
	_, err = svc.MarkDone(ctx, alice.ID, "Netherforce", nil)
	assert.ErrorIs(t, err, ErrPaused)
}

func TestAdminClearWorksWhilePaused(t *testing.T) {
	svc := newTestService(t, 3)
	ctx := context.Background()
	alice := testBidder(1, "alice")

	require.NoError(t, svc.PlaceBid(ctx, "Netherforce", alice))
	require.NoError(t, svc.PlaceBid(ctx, "Stormcaller", alice))
	require.NoError(t, svc.SetPaused(ctx, true, 99))

	removed, err := svc.AdminClear(ctx, 99, alice.ID, "Netherforce")
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	// Empty item clears the whole catalog
	removed, err = svc.AdminClear(ctx, 99, alice.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Zero(t, svc.Snapshot().TotalEntries())
}

func TestMarkDoneWithKeys(t *testing.T) {
	svc := newTestService(t, 3)
	ctx := context.Background()
	alice := testBidder(1, "alice")

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.PlaceBid(ctx, "Netherforce", alice))
	}
	entries := svc.Snapshot().EntriesByItem["Netherforce"]
	require.Len(t, entries, 3)

	marked, err := svc.MarkDone(ctx, alice.ID, "Netherforce", []int64{entries[0].PlacedAt, entries[2].PlacedAt})
	require.NoError(t, err)
	assert.Equal(t, 2, marked)

	got := svc.Snapshot().EntriesByItem["Netherforce"]
	assert.True(t, got[0].Done)
	assert.False(t, got[1].Done)
	assert.True(t, got[2].Done)

	// Already-done and unknown keys are ignored
	marked, err = svc.MarkDone(ctx, alice.ID, "Netherforce", []int64{entries[0].PlacedAt, 12345})
	require.NoError(t, err)
	assert.Zero(t, marked)
}

func TestManualSetReplacesEntries(t *testing.T) {
	svc := newTestService(t, 3)
	ctx := context.Background()
	alice := testBidder(1, "alice")
	bob := testBidder(2, "bob")

	require.NoError(t, svc.PlaceBid(ctx, "Netherforce", alice))
	require.NoError(t, svc.PlaceBid(ctx, "Netherforce", bob))

	base := int64(1600000000)
	require.NoError(t, svc.ManualSet(ctx, 99, "Netherforce", alice, 3, base))

	snap := svc.Snapshot()
	var aliceStamps []int64
	bobCount := 0
	for _, e := range snap.EntriesByItem["Netherforce"] {
		switch e.BidderID {
		case alice.ID:
			aliceStamps = append(aliceStamps, e.PlacedAt)
		case bob.ID:
			bobCount++
		}
	}
	assert.Equal(t, []int64{base, base + 1, base + 2}, aliceStamps)
	assert.Equal(t, 1, bobCount)
}

func TestManualSetCountZeroRemoves(t *testing.T) {
	svc := newTestService(t, 3)
	ctx := context.Background()
	alice := testBidder(1, "alice")

	require.NoError(t, svc.PlaceBid(ctx, "Stormcaller", alice))
	require.NoError(t, svc.ManualSet(ctx, 99, "Stormcaller", alice, 0, 0))

	snap := svc.Snapshot()
	assert.Empty(t, snap.EntriesByItem["Stormcaller"])
	assert.NotContains(t, snap.FirstBidOrder, "Stormcaller")
}

func TestManualSetValidation(t *testing.T) {
	svc := newTestService(t, 3)
	ctx := context.Background()
	alice := testBidder(1, "alice")

	assert.Error(t, svc.ManualSet(ctx, 99, "Netherforce", alice, -1, 0))
	assert.ErrorIs(t, svc.ManualSet(ctx, 99, "Moonstaff", alice, 1, 0), ErrUnknownItem)
}

func TestManualSetWorksWhilePaused(t *testing.T) {
	svc := newTestService(t, 3)
	ctx := context.Background()

	require.NoError(t, svc.SetPaused(ctx, true, 99))
	require.NoError(t, svc.ManualSet(ctx, 99, "Netherforce", testBidder(1, "alice"), 2, 0))
	assert.Len(t, svc.Snapshot().EntriesByItem["Netherforce"], 2)
}

func TestRestartClearsEverythingButKeepsMessageAndPause(t *testing.T) {
	svc := newTestService(t, 3)
	ctx := context.Background()
	ref := models.MessageRef{ChannelID: "c1", MessageID: "m1"}

	require.NoError(t, svc.SetActiveMessage(ctx, ref))
	require.NoError(t, svc.PlaceBid(ctx, "Netherforce", testBidder(1, "alice")))
	require.NoError(t, svc.SetPaused(ctx, true, 99))

	require.NoError(t, svc.Restart(ctx, 99))

	snap := svc.Snapshot()
	assert.Zero(t, snap.TotalEntries())
	assert.Empty(t, snap.FirstBidOrder)
	assert.Equal(t, ref, snap.ActiveMessage)
	assert.True(t, snap.Paused)
}

func TestSetPausedRoundTrip(t *testing.T) {
	svc := newTestService(t, 3)
	ctx := context.Background()

	require.NoError(t, svc.SetPaused(ctx, true, 99))
	assert.True(t, svc.Snapshot().Paused)

	// Setting the same value again is a no-op
	require.NoError(t, svc.SetPaused(ctx, true, 99))

	require.NoError(t, svc.SetPaused(ctx, false, 99))
	assert.False(t, svc.Snapshot().Paused)
}

func TestActiveItemsForBidderFollowsCatalogOrder(t *testing.T) {
	svc := newTestService(t, 3)
	ctx := context.Background()
	alice := testBidder(1, "alice")

	require.NoError(t, svc.PlaceBid(ctx, "Duskblade", alice))
	require.NoError(t, svc.PlaceBid(ctx, "Netherforce", alice))

	assert.Equal(t, []string{"Netherforce", "Duskblade"}, svc.ActiveItemsForBidder(alice.ID))

	// Fully done items drop out
	_, err := svc.MarkDone(ctx, alice.ID, "Netherforce", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Duskblade"}, svc.ActiveItemsForBidder(alice.ID))
}

func TestRestoreDropsItemsRemovedFromCatalog(t *testing.T) {
	persisted := &models.LedgerSnapshot{
		EntriesByItem: map[string][]models.BidEntry{
			"Netherforce": {{BidderID: 1, Mention: "<@1>", DisplayName: "alice", PlacedAt: 100}},
			"Retired":     {{BidderID: 2, Mention: "<@2>", DisplayName: "bob", PlacedAt: 200}},
		},
		FirstBidOrder: []string{"Retired", "Netherforce"},
		Paused:        true,
		ActiveMessage: models.MessageRef{ChannelID: "c1", MessageID: "m1"},
	}

	store := new(MockStateStore)
	store.On("Load").Return(persisted, true, nil)
	store.On("Save", mock.Anything).Return(nil)

	svc := NewAuctionService(testItems, 3, store, nil)

	snap := svc.Snapshot()
	assert.Len(t, snap.EntriesByItem["Netherforce"], 1)
	assert.NotContains(t, snap.EntriesByItem, "Retired")
	assert.Equal(t, []string{"Netherforce"}, snap.FirstBidOrder)
	assert.True(t, snap.Paused)
	assert.Equal(t, "m1", snap.ActiveMessage.MessageID)
}

func TestPublishClearsRefWhenMessageGone(t *testing.T) {
	svc := newTestService(t, 3)
	ctx := context.Background()
	ref := models.MessageRef{ChannelID: "c1", MessageID: "m1"}

	pub := new(MockMessagePublisher)
	pub.On("Publish", mock.Anything, ref, mock.Anything, mock.Anything).Return(ErrMessageGone)
	svc.SetPublisher(pub)

	require.NoError(t, svc.SetActiveMessage(ctx, ref))

	assert.True(t, svc.Snapshot().ActiveMessage.IsZero())
	pub.AssertExpectations(t)
}

func TestPublishTransientFailureKeepsRef(t *testing.T) {
	svc := newTestService(t, 3)
	ctx := context.Background()
	ref := models.MessageRef{ChannelID: "c1", MessageID: "m1"}

	pub := new(MockMessagePublisher)
	pub.On("Publish", mock.Anything, ref, mock.Anything, mock.Anything).Return(assert.AnError)
	svc.SetPublisher(pub)

	require.NoError(t, svc.SetActiveMessage(ctx, ref))
	require.NoError(t, svc.PlaceBid(ctx, "Netherforce", testBidder(1, "alice")))

	snap := svc.Snapshot()
	assert.Equal(t, ref, snap.ActiveMessage)
	assert.Len(t, snap.EntriesByItem["Netherforce"], 1)
}

func TestPublishPassesPausedFlag(t *testing.T) {
	svc := newTestService(t, 3)
	ctx := context.Background()
	ref := models.MessageRef{ChannelID: "c1", MessageID: "m1"}

	pub := new(MockMessagePublisher)
	pub.On("Publish", mock.Anything, ref, mock.Anything, false).Return(nil).Once()
	pub.On("Publish", mock.Anything, ref, mock.Anything, true).Return(nil).Once()
	svc.SetPublisher(pub)

	require.NoError(t, svc.SetActiveMessage(ctx, ref))
	require.NoError(t, svc.SetPaused(ctx, true, 99))

	pub.AssertExpectations(t)
}

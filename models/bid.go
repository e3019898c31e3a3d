package models

// BidEntry is one discrete bid action by one bidder on one item.
// Mention and DisplayName are captured at bid time and never re-resolved.
type BidEntry struct {
	BidderID    int64  `json:"bidder_id"`
	Mention     string `json:"mention"`
	DisplayName string `json:"display_name"`
	PlacedAt    int64  `json:"placed_at"` // unix seconds; also the entry key within (bidder, item)
	Done        bool   `json:"done"`
}

// MessageRef identifies the single external status message displaying the leaderboard.
// The zero value means no active message.
type MessageRef struct {
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
}

// IsZero reports whether the ref points at no message.
func (r MessageRef) IsZero() bool {
	return r.ChannelID == "" && r.MessageID == ""
}

// LedgerSnapshot is a deep copy of the ledger state taken under the ledger lock.
// Renderers and menu builders work on snapshots so they never touch live state.
type LedgerSnapshot struct {
	EntriesByItem map[string][]BidEntry `json:"entries_by_item"`
	FirstBidOrder []string              `json:"first_bid_order"`
	Paused        bool                  `json:"is_paused"`
	ActiveMessage MessageRef            `json:"active_message_ref"`
}

// TotalEntries returns the number of bid entries across all items.
func (s *LedgerSnapshot) TotalEntries() int {
	total := 0
	for _, entries := range s.EntriesByItem {
		total += len(entries)
	}
	return total
}

// ActiveItemCount returns the number of items with at least one entry.
func (s *LedgerSnapshot) ActiveItemCount() int {
	count := 0
	for _, entries := range s.EntriesByItem {
		if len(entries) > 0 {
			count++
		}
	}
	return count
}

package service

import (
	"fmt"
	"sort"
	"strings"

	"bidkeeper/models"
)

const (
	// DefaultMessageLimit is the Discord message content cap the leaderboard
	// must fit inside.
	DefaultMessageLimit = 4000

	pausedBanner      = "## ⏸️ BIDDING IS CURRENTLY PAUSED ⏸️\n\n"
	noBidsMessage     = "No current bids."
	truncationNotice  = "\n... (message too long, truncated)"
	doneCheckmark     = " ✅"
	itemHeaderFormat  = "# **%s**:\n"
	entryLineFormat   = "%d. %s (%s) <t:%d:R>"
	itemSeparator     = "\n\n"
	entryLineSep      = "\n"
	truncationReserve = 50
)

// RenderLeaderboard renders a ledger snapshot into the status message text.
// The output is deterministic for a given snapshot: items are sorted by
// descending entry count, ties broken by first-bid order (items missing from
// the order list sort last, then by name), and entries within an item by
// ascending placed-at time with bidder ID as the final tie-break.
func RenderLeaderboard(snap *models.LedgerSnapshot, limit int) string {
	if limit <= 0 {
		limit = DefaultMessageLimit
	}

	var prefix string
	if snap.Paused {
		prefix = pausedBanner
	}

	items := activeItems(snap)
	if len(items) == 0 {
		return prefix + noBidsMessage
	}

	sections := make([]string, 0, len(items))
	for _, item := range items {
		sections = append(sections, renderItem(item, snap.EntriesByItem[item]))
	}

	content := prefix + strings.Join(sections, itemSeparator)
	if len(content) > limit {
		content = truncate(content, limit)
	}
	return content
}

// activeItems returns the items holding at least one entry, in display order.
func activeItems(snap *models.LedgerSnapshot) []string {
	orderIndex := make(map[string]int, len(snap.FirstBidOrder))
	for i, item := range snap.FirstBidOrder {
		orderIndex[item] = i
	}

	items := make([]string, 0, len(snap.EntriesByItem))
	for item, entries := range snap.EntriesByItem {
		if len(entries) > 0 {
			items = append(items, item)
		}
	}

	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		countA, countB := len(snap.EntriesByItem[a]), len(snap.EntriesByItem[b])
		if countA != countB {
			return countA > countB
		}
		idxA, okA := orderIndex[a]
		idxB, okB := orderIndex[b]
		if okA != okB {
			return okA // items never recorded in the order list sort last
		}
		if okA && idxA != idxB {
			return idxA < idxB
		}
		return a < b
	})
	return items
}

func renderItem(item string, entries []models.BidEntry) string {
	sorted := make([]models.BidEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].PlacedAt != sorted[j].PlacedAt {
			return sorted[i].PlacedAt < sorted[j].PlacedAt
		}
		return sorted[i].BidderID < sorted[j].BidderID
	})

	var b strings.Builder
	fmt.Fprintf(&b, itemHeaderFormat, item)
	for idx, entry := range sorted {
		if idx > 0 {
			b.WriteString(entryLineSep)
		}
		fmt.Fprintf(&b, entryLineFormat, idx+1, entry.Mention, entry.DisplayName, entry.PlacedAt)
		if entry.Done {
			b.WriteString(doneCheckmark)
		}
	}
	return b.String()
}

// truncate cuts content to fit the limit, ending on a line boundary where one
// exists, and always leaves a visible truncation notice.
func truncate(content string, limit int) string {
	cut := limit - truncationReserve
	if cut < 0 {
		cut = 0
	}
	head := content[:cut]
	if nl := strings.LastIndexByte(head, '\n'); nl > 0 {
		head = head[:nl]
	}
	return head + truncationNotice
}

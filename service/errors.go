package service

import "errors"

// Validation errors surfaced to the acting user. The bot layer matches these
// with errors.Is and phrases the rule that was violated; none of them leave
// the ledger mutated.
var (
	// ErrUnknownItem means the action referenced an item outside the catalog.
	ErrUnknownItem = errors.New("item is not in the bidding catalog")

	// ErrLimitReached means the bidder already holds the maximum number of
	// entries for that item.
	ErrLimitReached = errors.New("bid limit reached for this item")

	// ErrPaused means a bid-mutating action was attempted while the auction
	// is paused.
	ErrPaused = errors.New("bidding is currently paused")
)

// ErrMessageGone is returned by a MessagePublisher when the status message no
// longer exists. The ledger clears its active message ref in response so later
// renders do not keep failing against a dead target.
var ErrMessageGone = errors.New("status message no longer exists")

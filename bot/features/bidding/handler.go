package bidding

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"bidkeeper/bot/common"
	"bidkeeper/service"
)

// restartConfirmWindow is how long a restart confirmation prompt stays
// valid. A confirm click after the window is treated as a cancel.
const restartConfirmWindow = 60 * time.Second

// Handler owns all bidding interactions: the status message components,
// the /auction admin subcommands and /mybids.
type Handler struct {
	svc       service.AuctionService
	publisher *Publisher
	channelID string
	guideFile string

	mu              sync.Mutex
	pendingRestarts map[int64]time.Time
}

func NewHandler(svc service.AuctionService, publisher *Publisher, channelID, guideFile string) *Handler {
	return &Handler{
		svc:             svc,
		publisher:       publisher,
		channelID:       channelID,
		guideFile:       guideFile,
		pendingRestarts: make(map[int64]time.Time),
	}
}

// HandlesComponent reports whether the custom ID belongs to this feature.
func (h *Handler) HandlesComponent(customID string) bool {
	return strings.HasPrefix(customID, "bid_")
}

// HandleComponent dispatches a component interaction from the status
// message or one of our ephemeral prompts.
func (h *Handler) HandleComponent(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	customID := i.MessageComponentData().CustomID

	if _, ok := itemIndexFromCustomID(customID); ok {
		h.handleItemBid(ctx, s, i, customID)
		return
	}

	switch customID {
	case customIDRefresh:
		h.handleRefresh(ctx, s, i)
	case customIDClearAll:
		h.handleClear(ctx, s, i, false)
	case customIDClearDone:
		h.handleClear(ctx, s, i, true)
	case customIDDone:
		h.handleDonePrompt(s, i)
	case customIDDoneSelect:
		h.handleDoneSelect(ctx, s, i)
	case customIDRestart:
		h.handleRestartPrompt(s, i)
	case customIDRestartYes:
		h.handleRestartConfirm(ctx, s, i)
	case customIDRestartCancel:
		h.handleRestartCancel(s, i)
	default:
		log.Warnf("Unhandled bidding component: %s", customID)
	}
}

func (h *Handler) handleItemBid(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, customID string) {
	idx, _ := itemIndexFromCustomID(customID)
	items := h.svc.Items()
	if idx >= len(items) {
		common.RespondWithError(s, i, "That item no longer exists.")
		return
	}
	item := items[idx]

	bidder, err := bidderFrom(i)
	if err != nil {
		common.RespondWithError(s, i, "Could not identify you.")
		return
	}

	if err := h.svc.PlaceBid(ctx, item, bidder); err != nil {
		h.respondServiceError(s, i, err, fmt.Sprintf("place a bid on %s", item))
		return
	}

	h.ackUpdate(s, i)
}

func (h *Handler) handleRefresh(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	if err := h.svc.Refresh(ctx); err != nil {
		log.Errorf("Error refreshing status message: %v", err)
	}
	h.ackUpdate(s, i)
}

func (h *Handler) handleClear(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, doneOnly bool) {
	bidder, err := bidderFrom(i)
	if err != nil {
		common.RespondWithError(s, i, "Could not identify you.")
		return
	}

	var removed int
	if doneOnly {
		removed, err = h.svc.ClearDoneBids(ctx, bidder.ID)
	} else {
		removed, err = h.svc.ClearAllBids(ctx, bidder.ID)
	}
	if err != nil {
		h.respondServiceError(s, i, err, "clear your bids")
		return
	}

	if removed == 0 {
		if err := common.RespondWithMessage(s, i, "You had no bids to clear.", true); err != nil {
			log.Errorf("Error responding to clear: %v", err)
		}
		return
	}
	if err := common.RespondWithSuccess(s, i, fmt.Sprintf("Removed %d %s.", removed, common.Pluralize(removed, "bid", "bids")), true); err != nil {
		log.Errorf("Error responding to clear: %v", err)
	}
}

func (h *Handler) handleDonePrompt(s *discordgo.Session, i *discordgo.InteractionCreate) {
	bidder, err := bidderFrom(i)
	if err != nil {
		common.RespondWithError(s, i, "Could not identify you.")
		return
	}

	active := h.svc.ActiveItemsForBidder(bidder.ID)
	if len(active) == 0 {
		if err := common.RespondWithMessage(s, i, "You have no active bids.", true); err != nil {
			log.Errorf("Error responding to done prompt: %v", err)
		}
		return
	}

	if err := common.RespondWithComponents(s, i, "Mark your bids on these items as done:", BuildDoneSelect(active), true); err != nil {
		log.Errorf("Error sending done select: %v", err)
	}
}

func (h *Handler) handleDoneSelect(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	bidder, err := bidderFrom(i)
	if err != nil {
		common.RespondWithError(s, i, "Could not identify you.")
		return
	}

	total := 0
	for _, item := range i.MessageComponentData().Values {
		marked, err := h.svc.MarkDone(ctx, bidder.ID, item, nil)
		if err != nil {
			h.respondServiceError(s, i, err, "mark your bids done")
			return
		}
		total += marked
	}

	content := fmt.Sprintf("✅ Marked %d %s as done.", total, common.Pluralize(total, "bid", "bids"))
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    content,
			Components: []discordgo.MessageComponent{},
		},
	}); err != nil {
		log.Errorf("Error updating done select: %v", err)
	}
}

func (h *Handler) handleRestartPrompt(s *discordgo.Session, i *discordgo.InteractionCreate) {
	actorID, err := actorFrom(i)
	if err != nil {
		common.RespondWithError(s, i, "Could not identify you.")
		return
	}

	h.mu.Lock()
	h.pendingRestarts[actorID] = time.Now().Add(restartConfirmWindow)
	h.mu.Unlock()

	msg := "This will wipe **every bid on every item**. Are you sure?"
	if err := common.RespondWithComponents(s, i, msg, BuildRestartConfirm(), true); err != nil {
		log.Errorf("Error sending restart confirmation: %v", err)
	}
}

func (h *Handler) handleRestartConfirm(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	actorID, err := actorFrom(i)
	if err != nil {
		common.RespondWithError(s, i, "Could not identify you.")
		return
	}

	h.mu.Lock()
	deadline, ok := h.pendingRestarts[actorID]
	delete(h.pendingRestarts, actorID)
	h.mu.Unlock()

	if !ok || time.Now().After(deadline) {
		h.updatePrompt(s, i, "Restart confirmation expired. No bids were removed.")
		return
	}

	if err := h.svc.Restart(ctx, actorID); err != nil {
		log.Errorf("Error restarting auction: %v", err)
		h.updatePrompt(s, i, "❌ Restart failed.")
		return
	}
	h.updatePrompt(s, i, "✅ All bids cleared.")
}

func (h *Handler) handleRestartCancel(s *discordgo.Session, i *discordgo.InteractionCreate) {
	actorID, err := actorFrom(i)
	if err == nil {
		h.mu.Lock()
		delete(h.pendingRestarts, actorID)
		h.mu.Unlock()
	}
	h.updatePrompt(s, i, "Restart cancelled.")
}

// updatePrompt replaces an ephemeral prompt with a final message and strips
// its components.
func (h *Handler) updatePrompt(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    content,
			Components: []discordgo.MessageComponent{},
		},
	}); err != nil {
		log.Errorf("Error updating prompt: %v", err)
	}
}

// ackUpdate acknowledges a component interaction without a visible reply.
// The status message itself is edited by the service through the publisher.
func (h *Handler) ackUpdate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	}); err != nil {
		log.Errorf("Error acknowledging interaction: %v", err)
	}
}

func (h *Handler) respondServiceError(s *discordgo.Session, i *discordgo.InteractionCreate, err error, action string) {
	switch {
	case errors.Is(err, service.ErrPaused):
		common.RespondWithError(s, i, "Bidding is currently paused.")
	case errors.Is(err, service.ErrLimitReached):
		common.RespondWithError(s, i, "You have reached the bid limit for that item.")
	case errors.Is(err, service.ErrUnknownItem):
		common.RespondWithError(s, i, "That item is not part of this auction.")
	default:
		log.Errorf("Error trying to %s: %v", action, err)
		common.RespondWithError(s, i, fmt.Sprintf("Something went wrong trying to %s.", action))
	}
}

func bidderFrom(i *discordgo.InteractionCreate) (service.Bidder, error) {
	user := interactionUser(i)
	if user == nil {
		return service.Bidder{}, errors.New("interaction has no user")
	}
	id, err := strconv.ParseInt(user.ID, 10, 64)
	if err != nil {
		return service.Bidder{}, fmt.Errorf("parsing user ID: %w", err)
	}
	return service.Bidder{
		ID:          id,
		Mention:     mentionOf(id),
		DisplayName: displayNameOf(i),
	}, nil
}

func actorFrom(i *discordgo.InteractionCreate) (int64, error) {
	user := interactionUser(i)
	if user == nil {
		return 0, errors.New("interaction has no user")
	}
	return strconv.ParseInt(user.ID, 10, 64)
}

func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

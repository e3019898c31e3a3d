package bidding

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"bidkeeper/bot/common"
	"bidkeeper/service"
)

// HandleAuctionCommand dispatches the /auction admin subcommands.
func (h *Handler) HandleAuctionCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		common.RespondWithError(s, i, "No subcommand provided.")
		return
	}

	switch options[0].Name {
	case "start":
		h.handleStart(ctx, s, i, options[0].Options)
	case "pause":
		h.handleSetPaused(ctx, s, i, true)
	case "resume":
		h.handleSetPaused(ctx, s, i, false)
	case "restart":
		h.handleRestartPrompt(s, i)
	case "manual-set":
		h.handleManualSet(ctx, s, i, options[0].Options)
	case "clear":
		h.handleAdminClear(ctx, s, i, options[0].Options)
	case "delete-message":
		h.handleDeleteMessage(ctx, s, i)
	default:
		common.RespondWithError(s, i, fmt.Sprintf("Unknown subcommand: %s", options[0].Name))
	}
}

func (h *Handler) handleStart(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) {
	channelID := h.channelID
	if channelID == "" {
		channelID = i.ChannelID
	}
	for _, opt := range opts {
		if opt.Name == "channel" {
			if ch := opt.ChannelValue(s); ch != nil {
				channelID = ch.ID
			}
		}
	}

	if !h.svc.Snapshot().ActiveMessage.IsZero() {
		// Refresh drops the reference if the old message was deleted.
		if err := h.svc.Refresh(ctx); err != nil {
			log.Errorf("Error refreshing status message: %v", err)
		}
		if !h.svc.Snapshot().ActiveMessage.IsZero() {
			common.RespondWithError(s, i, "A status message already exists. Use delete-message first to move it.")
			return
		}
	}

	h.postGuide(s, channelID)

	snap := h.svc.Snapshot()
	content := service.RenderLeaderboard(snap, service.DefaultMessageLimit)
	ref, err := h.publisher.PostStatusMessage(ctx, channelID, content, snap.Paused)
	if err != nil {
		log.Errorf("Error posting status message: %v", err)
		common.RespondWithError(s, i, "Failed to post the status message.")
		return
	}

	if err := h.svc.SetActiveMessage(ctx, ref); err != nil {
		log.Errorf("Error saving status message reference: %v", err)
	}
	if err := common.RespondWithSuccess(s, i, fmt.Sprintf("Auction started in <#%s>.", channelID), true); err != nil {
		log.Errorf("Error responding to start: %v", err)
	}
}

// postGuide sends the configured usage guide ahead of the status message.
func (h *Handler) postGuide(s *discordgo.Session, channelID string) {
	if h.guideFile == "" {
		return
	}
	guide, err := os.ReadFile(h.guideFile)
	if err != nil {
		log.Warnf("Error reading guide file %s: %v", h.guideFile, err)
		return
	}
	if _, err := s.ChannelMessageSend(channelID, string(guide)); err != nil {
		log.Errorf("Error posting bidding guide: %v", err)
	}
}

func (h *Handler) handleSetPaused(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, paused bool) {
	actorID, err := actorFrom(i)
	if err != nil {
		common.RespondWithError(s, i, "Could not identify you.")
		return
	}

	if err := h.svc.SetPaused(ctx, paused, actorID); err != nil {
		log.Errorf("Error setting paused=%v: %v", paused, err)
		common.RespondWithError(s, i, "Failed to update the auction state.")
		return
	}

	msg := "Bidding resumed."
	if paused {
		msg = "Bidding paused."
	}
	if err := common.RespondWithSuccess(s, i, msg, true); err != nil {
		log.Errorf("Error responding to pause change: %v", err)
	}
}

func (h *Handler) handleManualSet(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) {
	actorID, err := actorFrom(i)
	if err != nil {
		common.RespondWithError(s, i, "Could not identify you.")
		return
	}

	var (
		item          string
		target        *discordgo.User
		count         int64
		baseTimestamp int64
	)
	for _, opt := range opts {
		switch opt.Name {
		case "item":
			item = opt.StringValue()
		case "user":
			target = opt.UserValue(s)
		case "count":
			count = opt.IntValue()
		case "timestamp":
			baseTimestamp = opt.IntValue()
		}
	}
	if target == nil {
		common.RespondWithError(s, i, "A target user is required.")
		return
	}

	targetID, err := strconv.ParseInt(target.ID, 10, 64)
	if err != nil {
		common.RespondWithError(s, i, "Invalid target user.")
		return
	}
	bidder := service.Bidder{
		ID:          targetID,
		Mention:     mentionOf(targetID),
		DisplayName: displayNameOfUser(target),
	}

	if err := h.svc.ManualSet(ctx, actorID, item, bidder, int(count), baseTimestamp); err != nil {
		h.respondServiceError(s, i, err, "set bids manually")
		return
	}
	if err := common.RespondWithSuccess(s, i, fmt.Sprintf("Set %s's bids on %s to %d.", target.Username, item, count), true); err != nil {
		log.Errorf("Error responding to manual-set: %v", err)
	}
}

func (h *Handler) handleAdminClear(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, opts []*discordgo.ApplicationCommandInteractionDataOption) {
	actorID, err := actorFrom(i)
	if err != nil {
		common.RespondWithError(s, i, "Could not identify you.")
		return
	}

	var (
		target *discordgo.User
		item   string
	)
	for _, opt := range opts {
		switch opt.Name {
		case "user":
			target = opt.UserValue(s)
		case "item":
			item = opt.StringValue()
		}
	}
	if target == nil {
		common.RespondWithError(s, i, "A target user is required.")
		return
	}
	targetID, err := strconv.ParseInt(target.ID, 10, 64)
	if err != nil {
		common.RespondWithError(s, i, "Invalid target user.")
		return
	}

	removed, err := h.svc.AdminClear(ctx, actorID, targetID, item)
	if err != nil {
		h.respondServiceError(s, i, err, "clear those bids")
		return
	}

	scope := "all items"
	if item != "" {
		scope = item
	}
	if err := common.RespondWithSuccess(s, i, fmt.Sprintf("Removed %d %s from %s for %s.", removed, common.Pluralize(removed, "bid", "bids"), scope, target.Username), true); err != nil {
		log.Errorf("Error responding to clear: %v", err)
	}
}

func (h *Handler) handleDeleteMessage(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	snap := h.svc.Snapshot()
	if snap.ActiveMessage.IsZero() {
		common.RespondWithError(s, i, "There is no status message to delete.")
		return
	}

	if err := h.publisher.DeleteStatusMessage(ctx, snap.ActiveMessage); err != nil {
		log.Errorf("Error deleting status message: %v", err)
		common.RespondWithError(s, i, "Failed to delete the status message.")
		return
	}
	if err := h.svc.ClearActiveMessage(ctx); err != nil {
		log.Errorf("Error clearing status message reference: %v", err)
	}
	if err := common.RespondWithSuccess(s, i, "Status message deleted.", true); err != nil {
		log.Errorf("Error responding to delete-message: %v", err)
	}
}

// HandleMyBids answers /mybids with an ephemeral summary of the caller's
// entries on every item.
func (h *Handler) HandleMyBids(s *discordgo.Session, i *discordgo.InteractionCreate) {
	bidder, err := bidderFrom(i)
	if err != nil {
		common.RespondWithError(s, i, "Could not identify you.")
		return
	}

	snap := h.svc.Snapshot()
	var b strings.Builder
	total := 0
	for _, item := range h.svc.Items() {
		var lines []string
		for _, entry := range snap.EntriesByItem[item] {
			if entry.BidderID != bidder.ID {
				continue
			}
			line := fmt.Sprintf("  %s", common.FormatDiscordTimestamp(entry.PlacedAt))
			if entry.Done {
				line += " ✅"
			}
			lines = append(lines, line)
		}
		if len(lines) == 0 {
			continue
		}
		total += len(lines)
		fmt.Fprintf(&b, "**%s** (%d)\n%s\n", item, len(lines), strings.Join(lines, "\n"))
	}

	if total == 0 {
		if err := common.RespondWithMessage(s, i, "You have no bids.", true); err != nil {
			log.Errorf("Error responding to mybids: %v", err)
		}
		return
	}
	if err := common.RespondWithMessage(s, i, b.String(), true); err != nil {
		log.Errorf("Error responding to mybids: %v", err)
	}
}

func displayNameOfUser(u *discordgo.User) string {
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

package voicelog

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"bidkeeper/bot/common"
	"bidkeeper/events"
	"bidkeeper/service"
)

// Handler records voice channel activity for a set of monitored channels.
// Each recorded transition is emitted on the bus; the Notifier subscribes
// there to post the join/leave messages.
type Handler struct {
	svc       service.VoiceLogService
	bus       *events.Bus
	monitored map[int64]bool
}

func NewHandler(svc service.VoiceLogService, bus *events.Bus, monitoredChannels []int64) *Handler {
	monitored := make(map[int64]bool, len(monitoredChannels))
	for _, id := range monitoredChannels {
		monitored[id] = true
	}
	return &Handler{
		svc:       svc,
		bus:       bus,
		monitored: monitored,
	}
}

// HandleVoiceStateUpdate processes a voice state change. Only transitions
// that touch a monitored channel are recorded; a move between two monitored
// channels is a leave plus a join.
func (h *Handler) HandleVoiceStateUpdate(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	ctx := context.Background()

	userID, err := strconv.ParseInt(v.UserID, 10, 64)
	if err != nil {
		log.Errorf("Error parsing voice user ID %q: %v", v.UserID, err)
		return
	}

	var fromChannel, toChannel int64
	if v.BeforeUpdate != nil && v.BeforeUpdate.ChannelID != "" {
		fromChannel, _ = strconv.ParseInt(v.BeforeUpdate.ChannelID, 10, 64)
	}
	if v.ChannelID != "" {
		toChannel, _ = strconv.ParseInt(v.ChannelID, 10, 64)
	}
	if fromChannel == toChannel {
		// Mute/deafen toggles arrive as state updates too.
		return
	}

	if !h.monitored[fromChannel] && !h.monitored[toChannel] {
		return
	}

	username, displayName := h.names(s, v)
	event := events.VoiceStateChangeEvent{
		UserID:      userID,
		Username:    username,
		DisplayName: displayName,
		FromChannel: fromChannel,
		ToChannel:   toChannel,
		FromName:    h.channelName(s, fromChannel),
		ToName:      h.channelName(s, toChannel),
	}

	if h.monitored[fromChannel] {
		session, err := h.svc.HandleLeave(ctx, userID, fromChannel)
		if err != nil {
			log.Errorf("Error recording voice leave for user %d: %v", userID, err)
		} else if session != nil {
			event.SessionClosed = true
			event.SessionDuration = session.Duration()
		}
	}

	if h.monitored[toChannel] {
		if err := h.svc.HandleJoin(ctx, userID, username, displayName, toChannel, event.ToName); err != nil {
			log.Errorf("Error recording voice join for user %d: %v", userID, err)
		} else {
			event.SessionOpened = true
		}
	}

	h.bus.Emit(ctx, event)
}

// HandleVoiceLogCommand answers /voicelog with the recent sessions for a
// voice channel.
func (h *Handler) HandleVoiceLogCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()

	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		common.RespondWithError(s, i, "A voice channel is required.")
		return
	}
	channel := options[0].ChannelValue(s)
	if channel == nil {
		common.RespondWithError(s, i, "Invalid channel.")
		return
	}
	channelID, err := strconv.ParseInt(channel.ID, 10, 64)
	if err != nil {
		common.RespondWithError(s, i, "Invalid channel.")
		return
	}

	sessions, err := h.svc.RecentSessions(ctx, channelID, 10)
	if err != nil {
		log.Errorf("Error listing voice sessions for channel %d: %v", channelID, err)
		common.RespondWithError(s, i, "Unable to load voice activity. Please try again.")
		return
	}
	if len(sessions) == 0 {
		if err := common.RespondWithMessage(s, i, fmt.Sprintf("No recorded activity for **%s**.", channel.Name), true); err != nil {
			log.Errorf("Error responding to voicelog: %v", err)
		}
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Recent activity in **%s**:\n", channel.Name)
	for _, session := range sessions {
		if session.LeftAt == nil {
			fmt.Fprintf(&b, "- **%s** joined %s, still connected\n",
				session.DisplayName, common.FormatDiscordTimestamp(session.JoinedAt.Unix()))
			continue
		}
		fmt.Fprintf(&b, "- **%s** joined %s, stayed %s\n",
			session.DisplayName, common.FormatDiscordTimestamp(session.JoinedAt.Unix()),
			common.FormatDuration(session.Duration()))
	}
	if err := common.RespondWithMessage(s, i, b.String(), true); err != nil {
		log.Errorf("Error responding to voicelog: %v", err)
	}
}

func (h *Handler) names(s *discordgo.Session, v *discordgo.VoiceStateUpdate) (username, displayName string) {
	if v.Member != nil && v.Member.User != nil {
		username = v.Member.User.Username
		displayName = v.Member.Nick
		if displayName == "" {
			displayName = v.Member.User.GlobalName
		}
		if displayName == "" {
			displayName = username
		}
		return username, displayName
	}

	user, err := s.User(v.UserID)
	if err != nil {
		log.Warnf("Error looking up user %s: %v", v.UserID, err)
		return v.UserID, v.UserID
	}
	displayName = user.GlobalName
	if displayName == "" {
		displayName = user.Username
	}
	return user.Username, displayName
}

func (h *Handler) channelName(s *discordgo.Session, channelID int64) string {
	if channelID == 0 {
		return ""
	}
	id := strconv.FormatInt(channelID, 10)
	if ch, err := s.State.Channel(id); err == nil {
		return ch.Name
	}
	ch, err := s.Channel(id)
	if err != nil {
		log.Warnf("Error looking up channel %s: %v", id, err)
		return id
	}
	return ch.Name
}

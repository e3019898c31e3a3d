package voicelog

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"bidkeeper/bot/common"
	"bidkeeper/events"
)

// Notifier posts join/leave lines to the configured notification channel.
// It consumes VoiceStateChangeEvent from the bus, so recording and
// notification stay decoupled.
type Notifier struct {
	session         *discordgo.Session
	notifyChannelID string
	monitored       map[int64]bool
}

func NewNotifier(session *discordgo.Session, notifyChannelID string, monitoredChannels []int64) *Notifier {
	monitored := make(map[int64]bool, len(monitoredChannels))
	for _, id := range monitoredChannels {
		monitored[id] = true
	}
	return &Notifier{
		session:         session,
		notifyChannelID: notifyChannelID,
		monitored:       monitored,
	}
}

// HandleVoiceEvent is the bus subscriber for EventTypeVoiceStateChange.
func (n *Notifier) HandleVoiceEvent(ctx context.Context, event events.Event) {
	e, ok := event.(events.VoiceStateChangeEvent)
	if !ok {
		return
	}
	if n.notifyChannelID == "" {
		return
	}
	for _, msg := range n.notificationsFor(e) {
		if _, err := n.session.ChannelMessageSend(n.notifyChannelID, msg); err != nil {
			log.Errorf("Error sending voice notification: %v", err)
		}
	}
}

// notificationsFor builds the message lines for one transition. A move
// between two monitored channels produces a leave line and a join line.
func (n *Notifier) notificationsFor(e events.VoiceStateChangeEvent) []string {
	var msgs []string
	if n.monitored[e.FromChannel] && e.SessionClosed {
		msgs = append(msgs, fmt.Sprintf("🔇 **%s** left **%s** after %s",
			e.DisplayName, e.FromName, common.FormatDuration(e.SessionDuration)))
	}
	if n.monitored[e.ToChannel] && e.SessionOpened {
		msgs = append(msgs, fmt.Sprintf("🔊 **%s** joined **%s**", e.DisplayName, e.ToName))
	}
	return msgs
}

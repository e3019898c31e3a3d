package bidding

import (
	"context"
	"errors"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"bidkeeper/models"
	"bidkeeper/service"
)

// Publisher edits the shared status message in place. It implements
// service.MessagePublisher.
type Publisher struct {
	session *discordgo.Session
	items   []string
}

func NewPublisher(session *discordgo.Session, items []string) *Publisher {
	return &Publisher{
		session: session,
		items:   items,
	}
}

// Publish replaces the status message content and rebuilds its components.
// A deleted message is reported as service.ErrMessageGone so the caller can
// drop its reference.
func (p *Publisher) Publish(ctx context.Context, ref models.MessageRef, content string, paused bool) error {
	components := BuildComponents(p.items, paused)
	_, err := p.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:    ref.ChannelID,
		ID:         ref.MessageID,
		Content:    &content,
		Components: &components,
	}, discordgo.WithContext(ctx))
	if err == nil {
		return nil
	}

	if isMessageGone(err) {
		return service.ErrMessageGone
	}
	return err
}

// PostStatusMessage creates a fresh status message in the given channel and
// returns its reference.
func (p *Publisher) PostStatusMessage(ctx context.Context, channelID, content string, paused bool) (models.MessageRef, error) {
	msg, err := p.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content:    content,
		Components: BuildComponents(p.items, paused),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return models.MessageRef{}, err
	}
	return models.MessageRef{ChannelID: channelID, MessageID: msg.ID}, nil
}

// DeleteStatusMessage removes the status message. A message that is already
// gone counts as success.
func (p *Publisher) DeleteStatusMessage(ctx context.Context, ref models.MessageRef) error {
	err := p.session.ChannelMessageDelete(ref.ChannelID, ref.MessageID, discordgo.WithContext(ctx))
	if err != nil && !isMessageGone(err) {
		return err
	}
	return nil
}

func isMessageGone(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return false
	}
	if restErr.Message != nil && restErr.Message.Code == discordgo.ErrCodeUnknownMessage {
		return true
	}
	return restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound
}

package bot

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"bidkeeper/bot/common"
	"bidkeeper/bot/features/bidding"
	"bidkeeper/bot/features/voicelog"
	"bidkeeper/events"
	"bidkeeper/service"

	"github.com/bwmarrin/discordgo"
)

// Config holds bot configuration
type Config struct {
	Token                  string
	GuildID                string
	BiddingChannelID       string
	GuideFile              string
	Items                  []string
	MonitoredVoiceChannels []int64
	VoiceNotifyChannelID   string
}

type Bot struct {
	config         Config
	session        *discordgo.Session
	auctionService service.AuctionService
	bidding        *bidding.Handler
	voicelog       *voicelog.Handler
	eventBus       *events.Bus
}

// New creates the Discord session, wires the feature handlers and connects.
// voiceLogService may be nil when no database is configured; voice logging
// is skipped entirely in that case.
func New(config Config, auctionService service.AuctionService, voiceLogService service.VoiceLogService, eventBus *events.Bus) (*Bot, error) {
	dg, err := discordgo.New("Bot " + config.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildVoiceStates

	publisher := bidding.NewPublisher(dg, config.Items)
	auctionService.SetPublisher(publisher)

	bot := &Bot{
		config:         config,
		session:        dg,
		auctionService: auctionService,
		bidding:        bidding.NewHandler(auctionService, publisher, config.BiddingChannelID, config.GuideFile),
		eventBus:       eventBus,
	}

	// Register slash command handlers
	dg.AddHandler(bot.handleCommands)

	// Register component interaction handlers
	dg.AddHandler(bot.handleComponents)

	if voiceLogService != nil {
		bot.voicelog = voicelog.NewHandler(voiceLogService, eventBus, config.MonitoredVoiceChannels)
		dg.AddHandler(bot.voicelog.HandleVoiceStateUpdate)

		notifier := voicelog.NewNotifier(dg, config.VoiceNotifyChannelID, config.MonitoredVoiceChannels)
		eventBus.Subscribe(events.EventTypeVoiceStateChange, notifier.HandleVoiceEvent)
	}

	// Open websocket connection
	if err := dg.Open(); err != nil {
		return nil, fmt.Errorf("error opening connection: %w", err)
	}

	// Register slash commands with Discord
	if err := bot.registerCommands(); err != nil {
		dg.Close()
		return nil, fmt.Errorf("error registering commands: %w", err)
	}

	// Keep the bot presence in sync with the ledger
	eventBus.Subscribe(events.EventTypeBidPlaced, func(ctx context.Context, event events.Event) {
		if e, ok := event.(events.BidPlacedEvent); ok {
			bot.updatePresence(e.TotalEntries, e.ActiveItems)
		}
	})
	eventBus.Subscribe(events.EventTypeAuctionStateChange, func(ctx context.Context, event events.Event) {
		if _, ok := event.(events.AuctionStateChangeEvent); ok {
			snap := auctionService.Snapshot()
			bot.updatePresence(snap.TotalEntries(), snap.ActiveItemCount())
		}
	})

	// Push the restored leaderboard to the status message once the
	// connection settles, and set the initial presence.
	go func() {
		time.Sleep(2 * time.Second)
		if err := auctionService.Refresh(context.Background()); err != nil {
			log.Errorf("Failed to refresh status message on startup: %v", err)
		}
		snap := auctionService.Snapshot()
		bot.updatePresence(snap.TotalEntries(), snap.ActiveItemCount())
	}()

	return bot, nil
}

func (b *Bot) Close() error {
	return b.session.Close()
}

// Session exposes the underlying Discord session for workers that send
// messages outside the interaction flow.
func (b *Bot) Session() *discordgo.Session {
	return b.session
}

func (b *Bot) handleCommands(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	switch i.ApplicationCommandData().Name {
	case "mybids":
		b.bidding.HandleMyBids(s, i)
	case "auction":
		b.bidding.HandleAuctionCommand(s, i)
	case "voicelog":
		if b.voicelog == nil {
			common.RespondWithError(s, i, "Voice logging is not enabled.")
			return
		}
		b.voicelog.HandleVoiceLogCommand(s, i)
	}
}

func (b *Bot) handleComponents(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionMessageComponent {
		return
	}

	customID := i.MessageComponentData().CustomID
	if b.bidding.HandlesComponent(customID) {
		b.bidding.HandleComponent(s, i)
	}
}

func (b *Bot) updatePresence(totalEntries, activeItems int) {
	status := fmt.Sprintf("%d %s across %d %s",
		totalEntries, common.Pluralize(totalEntries, "bid", "bids"),
		activeItems, common.Pluralize(activeItems, "item", "items"))
	if err := b.session.UpdateGameStatus(0, status); err != nil {
		log.Errorf("Failed to update presence: %v", err)
	}
}

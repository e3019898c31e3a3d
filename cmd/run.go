package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"bidkeeper/bot"
	"bidkeeper/bot/features/announce"
	"bidkeeper/config"
	"bidkeeper/database"
	"bidkeeper/events"
	"bidkeeper/repository"
	"bidkeeper/service"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	log.Println("Starting bidkeeper bot...")

	// Load configuration
	cfg := config.Get()

	// Initialize event bus
	eventBus := events.NewBus()

	// Initialize state store
	var store service.StateStore
	if cfg.StateFile != "" {
		store = repository.NewFileStateStore(cfg.StateFile)
		log.Printf("Persisting ledger state to %s", cfg.StateFile)
	} else {
		store = repository.NewNoopStateStore()
		log.Println("No state file configured, ledger state will not survive restarts")
	}

	// Initialize auction service
	auctionService := service.NewAuctionService(cfg.Items, cfg.MaxBidsPerItem, store, eventBus)

	// Initialize database-backed voice logging when a database is configured
	var (
		db              *database.DB
		voiceLogService service.VoiceLogService
		err             error
	)
	if cfg.DatabaseURL != "" {
		log.Println("Connecting to database...")
		db, err = database.NewConnection(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		log.Println("Database connection established successfully")

		voiceRepo := repository.NewVoiceSessionRepository(db)
		voiceLogService = service.NewVoiceLogService(voiceRepo)
	} else {
		log.Println("No database configured, voice logging disabled")
	}

	// Initialize Discord bot
	log.Println("Initializing Discord bot...")
	botConfig := bot.Config{
		Token:                  cfg.DiscordToken,
		GuildID:                cfg.DiscordGuildID,
		BiddingChannelID:       cfg.BiddingChannelID,
		GuideFile:              cfg.GuideFile,
		Items:                  cfg.Items,
		MonitoredVoiceChannels: cfg.MonitoredVoiceChannels,
		VoiceNotifyChannelID:   cfg.VoiceNotifyChannelID,
	}
	discordBot, err := bot.New(botConfig, auctionService, voiceLogService, eventBus)
	if err != nil {
		return fmt.Errorf("failed to initialize Discord bot: %w", err)
	}
	log.Println("Discord bot initialized successfully")

	// Start the announcement worker if a schedule is configured
	if cfg.AnnounceScheduleFile != "" {
		schedule, err := announce.LoadSchedule(cfg.AnnounceScheduleFile)
		if err != nil {
			return fmt.Errorf("failed to load announcement schedule: %w", err)
		}
		go announce.NewWorker(discordBot.Session(), schedule).Run(ctx)
	}

	// Wait for context cancellation
	log.Printf("Bot is running in %s mode...", cfg.Environment)
	<-ctx.Done()

	// Cleanup resources
	log.Println("Shutting down bot...")

	// Close Discord bot connection
	if err := discordBot.Close(); err != nil {
		log.Printf("Error closing Discord bot: %v", err)
	}

	// Give cleanup operations time to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if db != nil {
		log.Println("Closing database connection...")
		db.Close()
	}

	select {
	case <-shutdownCtx.Done():
		log.Println("Shutdown timeout exceeded")
	case <-time.After(1 * time.Second):
		log.Println("Shutdown completed")
	}

	return nil
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// DefaultItems is the bidding catalog used when AUCTION_ITEMS is not set.
var DefaultItems = []string{"Netherforce"}

// Config holds all application configuration
type Config struct {
	// Discord configuration
	DiscordToken     string
	DiscordGuildID   string
	BiddingChannelID string

	// Auction configuration
	Items          []string // fixed catalog, immutable for the process lifetime
	MaxBidsPerItem int      // per-bidder cap per item
	StateFile      string   // ledger snapshot path; empty disables persistence
	GuideFile      string   // user guide posted above the status message; optional

	// Voice logging configuration (optional; disabled without DatabaseURL)
	DatabaseURL            string
	MonitoredVoiceChannels []int64
	VoiceNotifyChannelID   string

	// Scheduled announcements (optional)
	AnnounceScheduleFile string

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		DiscordToken:     os.Getenv("DISCORD_TOKEN"),
		DiscordGuildID:   os.Getenv("DISCORD_GUILD_ID"),
		BiddingChannelID: os.Getenv("BIDDING_CHANNEL_ID"),

		Items:          DefaultItems,
		MaxBidsPerItem: 3,
		StateFile:      os.Getenv("BID_STATE_FILE"),
		GuideFile:      os.Getenv("BIDDING_GUIDE_FILE"),

		DatabaseURL:          os.Getenv("DATABASE_URL"),
		VoiceNotifyChannelID: os.Getenv("VOICE_NOTIFY_CHANNEL_ID"),

		AnnounceScheduleFile: os.Getenv("ANNOUNCE_SCHEDULE_FILE"),

		Environment: os.Getenv("ENVIRONMENT"),
	}

	if items := os.Getenv("AUCTION_ITEMS"); items != "" {
		config.Items = nil
		for _, item := range strings.Split(items, ",") {
			item = strings.TrimSpace(item)
			if item != "" {
				config.Items = append(config.Items, item)
			}
		}
		if len(config.Items) == 0 {
			return nil, fmt.Errorf("AUCTION_ITEMS is set but contains no item names")
		}
	}

	if cap := os.Getenv("MAX_BIDS_PER_ITEM"); cap != "" {
		parsed, err := strconv.Atoi(cap)
		if err != nil || parsed < 1 {
			return nil, fmt.Errorf("MAX_BIDS_PER_ITEM must be a positive integer, got %q", cap)
		}
		config.MaxBidsPerItem = parsed
	}

	// Parse monitored voice channel IDs
	if channelIDs := os.Getenv("MONITORED_VOICE_CHANNEL_IDS"); channelIDs != "" {
		for _, idStr := range strings.Split(channelIDs, ",") {
			idStr = strings.TrimSpace(idStr)
			if idStr == "" {
				continue
			}
			id, err := strconv.ParseInt(idStr, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid voice channel ID %q: %w", idStr, err)
			}
			config.MonitoredVoiceChannels = append(config.MonitoredVoiceChannels, id)
		}
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DiscordToken == "" {
			return nil, fmt.Errorf("DISCORD_TOKEN is required")
		}
		if config.BiddingChannelID == "" {
			return nil, fmt.Errorf("BIDDING_CHANNEL_ID is required")
		}
	}

	return config, nil
}

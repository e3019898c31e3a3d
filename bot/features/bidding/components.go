package bidding

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// Component custom IDs. Item buttons carry the catalog index so the
// handler never has to parse item names out of labels.
const (
	customIDItemPrefix    = "bid_item_"
	customIDRefresh       = "bid_refresh"
	customIDClearAll      = "bid_clear_all"
	customIDClearDone     = "bid_clear_done"
	customIDDone          = "bid_done"
	customIDDoneSelect    = "bid_done_select"
	customIDRestart       = "bid_restart"
	customIDRestartYes    = "bid_restart_confirm"
	customIDRestartCancel = "bid_restart_cancel"
)

const maxButtonsPerRow = 5

// BuildComponents assembles the action rows attached to the shared status
// message. Item buttons are disabled while bidding is paused; the control
// row stays enabled so users can still refresh and admins can restart.
func BuildComponents(items []string, paused bool) []discordgo.MessageComponent {
	var rows []discordgo.MessageComponent

	var row []discordgo.MessageComponent
	for idx, item := range items {
		row = append(row, discordgo.Button{
			Label:    item,
			Style:    discordgo.PrimaryButton,
			CustomID: customIDItemPrefix + strconv.Itoa(idx),
			Disabled: paused,
		})
		if len(row) == maxButtonsPerRow {
			rows = append(rows, discordgo.ActionsRow{Components: row})
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, discordgo.ActionsRow{Components: row})
	}

	rows = append(rows, discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label:    "Refresh",
				Style:    discordgo.SecondaryButton,
				CustomID: customIDRefresh,
			},
			discordgo.Button{
				Label:    "Clear My Bids",
				Style:    discordgo.SecondaryButton,
				CustomID: customIDClearAll,
				Disabled: paused,
			},
			discordgo.Button{
				Label:    "Clear Done Bids",
				Style:    discordgo.SecondaryButton,
				CustomID: customIDClearDone,
				Disabled: paused,
			},
			discordgo.Button{
				Label:    "Done Bidding",
				Style:    discordgo.SuccessButton,
				CustomID: customIDDone,
				Disabled: paused,
			},
			discordgo.Button{
				Label:    "Restart",
				Style:    discordgo.DangerButton,
				CustomID: customIDRestart,
			},
		},
	})

	return rows
}

// BuildDoneSelect builds the item select a bidder uses to mark bids done.
// Only items the bidder currently has entries on are offered.
func BuildDoneSelect(activeItems []string) []discordgo.MessageComponent {
	options := make([]discordgo.SelectMenuOption, 0, len(activeItems))
	for _, item := range activeItems {
		options = append(options, discordgo.SelectMenuOption{
			Label: item,
			Value: item,
		})
	}

	maxValues := len(options)
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.SelectMenu{
					CustomID:    customIDDoneSelect,
					Placeholder: "Select items to mark done",
					MinValues:   intPtr(1),
					MaxValues:   maxValues,
					Options:     options,
				},
			},
		},
	}
}

// BuildRestartConfirm builds the confirm/cancel buttons for the restart
// confirmation prompt.
func BuildRestartConfirm() []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Confirm Restart",
					Style:    discordgo.DangerButton,
					CustomID: customIDRestartYes,
				},
				discordgo.Button{
					Label:    "Cancel",
					Style:    discordgo.SecondaryButton,
					CustomID: customIDRestartCancel,
				},
			},
		},
	}
}

// itemIndexFromCustomID extracts the catalog index from an item button ID.
func itemIndexFromCustomID(customID string) (int, bool) {
	if !strings.HasPrefix(customID, customIDItemPrefix) {
		return 0, false
	}
	idx, err := strconv.Atoi(strings.TrimPrefix(customID, customIDItemPrefix))
	if err != nil || idx < 0 {
		return 0, false
	}
	return idx, true
}

func intPtr(v int) *int {
	return &v
}

// displayNameOf picks the best available display name for a guild member.
func displayNameOf(i *discordgo.InteractionCreate) string {
	if i.Member != nil {
		if i.Member.Nick != "" {
			return i.Member.Nick
		}
		if i.Member.User != nil {
			if i.Member.User.GlobalName != "" {
				return i.Member.User.GlobalName
			}
			return i.Member.User.Username
		}
	}
	if i.User != nil {
		if i.User.GlobalName != "" {
			return i.User.GlobalName
		}
		return i.User.Username
	}
	return "unknown"
}

func mentionOf(userID int64) string {
	return fmt.Sprintf("<@%d>", userID)
}

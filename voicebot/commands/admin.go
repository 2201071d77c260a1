package commands

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/paginator"
	"github.com/disgoorg/snowflake/v2"
	"github.com/ellavondegurechaff/gohye-voice/internal/domain/rooms"
	"github.com/ellavondegurechaff/gohye-voice/voicebot"
	"github.com/ellavondegurechaff/gohye-voice/voicebot/config"
	"github.com/ellavondegurechaff/gohye-voice/voicebot/utils"
	"github.com/sahilm/fuzzy"
)

var AdminReset = discord.SlashCommandCreate{
	Name:        "admin-reset",
	Description: "Force delete a voice room",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionString{
			Name:         "room",
			Description:  "Room to delete",
			Required:     true,
			Autocomplete: true,
		},
	},
}

var Rooms = discord.SlashCommandCreate{
	Name:        "rooms",
	Description: "List the active voice rooms in this server",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionBool{
			Name:        "mine",
			Description: "Only rooms you own",
			Required:    false,
		},
	},
}

// roomNames adapts a room list to fuzzy.Source.
type roomNames []rooms.RoomView

func (r roomNames) String(i int) string { return r[i].Name }
func (r roomNames) Len() int            { return len(r) }

// matchRooms ranks views against query and keeps at most limit results.
// An empty query lists rooms by name.
func matchRooms(views []rooms.RoomView, query string, limit int) []rooms.RoomView {
	query = strings.TrimSpace(query)
	if query == "" {
		out := append([]rooms.RoomView(nil), views...)
		sort.Slice(out, func(i, j int) bool {
			return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
		})
		return out[:min(len(out), limit)]
	}

	matches := fuzzy.FindFrom(query, roomNames(views))
	out := make([]rooms.RoomView, 0, min(len(matches), limit))
	for _, m := range matches {
		if m.Score < config.MinFuzzyScore {
			continue
		}
		out = append(out, views[m.Index])
		if len(out) == limit {
			break
		}
	}
	return out
}

func AdminResetAutocomplete(b *voicebot.Bot) handler.AutocompleteHandler {
	return func(e *handler.AutocompleteEvent) error {
		guildID := e.GuildID()
		if guildID == nil {
			return e.AutocompleteResult(nil)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		views, err := b.Rooms.ListGuildRooms(ctx, *guildID)
		if err != nil {
			slog.Error("Failed to list rooms for autocomplete",
				slog.String("type", "error"),
				slog.String("guild_id", guildID.String()),
				slog.Any("error", err))
			return e.AutocompleteResult([]discord.AutocompleteChoice{})
		}

		matched := matchRooms(views, e.Data.String("room"), config.MaxAutocompleteChoice)
		choices := make([]discord.AutocompleteChoice, 0, len(matched))
		for _, v := range matched {
			choices = append(choices, discord.AutocompleteChoiceString{
				Name:  v.Name,
				Value: v.RoomID.String(),
			})
		}
		return e.AutocompleteResult(choices)
	}
}

func AdminResetHandler(b *voicebot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		if !isAdmin(e) {
			return utils.EH.CreatePermissionError(e, "You need the Manage Channels permission.")
		}
		guildID := e.GuildID()
		if guildID == nil {
			return utils.EH.CreateUserError(e, "This command only works in a server.")
		}
		roomID, err := snowflake.Parse(e.SlashCommandInteractionData().String("room"))
		if err != nil {
			return utils.EH.CreateUserError(e, "Pick a room from the list.")
		}

		ctx, cancel := commandContext()
		defer cancel()

		if err := b.Rooms.Lifecycle.AdminReset(ctx, *guildID, roomID, e.User().ID); err != nil {
			return utils.EH.HandleRoomError(e, err)
		}
		return utils.EH.CreateSuccessEmbed(e, fmt.Sprintf("Room `%s` deleted.", roomID))
	}
}

// ownedBy keeps the rooms userID owns.
func ownedBy(views []rooms.RoomView, userID snowflake.ID) []rooms.RoomView {
	out := make([]rooms.RoomView, 0, len(views))
	for _, v := range views {
		if v.OwnerID != nil && *v.OwnerID == userID {
			out = append(out, v)
		}
	}
	return out
}

func RoomsHandler(b *voicebot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		guildID := e.GuildID()
		if guildID == nil {
			return utils.EH.CreateUserError(e, "This command only works in a server.")
		}
		ctx, cancel := commandContext()
		defer cancel()

		views, err := b.Rooms.ListGuildRooms(ctx, *guildID)
		if err != nil {
			return utils.EH.HandleRoomError(e, err)
		}
		title := "Active rooms"
		if mine, _ := e.SlashCommandInteractionData().OptBool("mine"); mine {
			views = ownedBy(views, e.User().ID)
			title = "Your rooms"
		}
		if len(views) == 0 {
			return utils.EH.CreateInfoEmbed(e, title, "No active rooms.")
		}
		sort.Slice(views, func(i, j int) bool { return views[i].CreatedAt.Before(views[j].CreatedAt) })

		now := time.Now()
		return b.Paginator.Create(e.Respond, paginator.Pages{
			ID:      e.ID().String(),
			Creator: e.User().ID,
			PageFunc: func(page int, embed *discord.EmbedBuilder) {
				start, end := utils.PageBounds(page, config.RoomsPerPage, len(views))
				var desc strings.Builder
				for _, v := range views[start:end] {
					desc.WriteString(utils.FormatRoomLine(v, now))
					desc.WriteByte('\n')
				}
				embed.
					SetTitle(fmt.Sprintf("%s (%d)", title, len(views))).
					SetDescription(desc.String()).
					SetColor(config.BackgroundColor)
			},
			Pages:      utils.PageCount(len(views), config.RoomsPerPage),
			ExpireMode: paginator.ExpireModeAfterLastUsage,
		}, false)
	}
}

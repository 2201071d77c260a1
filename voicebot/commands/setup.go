package commands

import (
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/ellavondegurechaff/gohye-voice/internal/domain/rooms"
	"github.com/ellavondegurechaff/gohye-voice/voicebot"
	"github.com/ellavondegurechaff/gohye-voice/voicebot/config"
	"github.com/ellavondegurechaff/gohye-voice/voicebot/utils"
)

var Setup = discord.SlashCommandCreate{
	Name:        "setup",
	Description: "Create join-to-create voice channels",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionChannel{
			Name:         "category",
			Description:  "Category to put the channels in (a new one is created when empty)",
			Required:     false,
			ChannelTypes: []discord.ChannelType{discord.ChannelTypeGuildCategory},
		},
		discord.ApplicationCommandOptionInt{
			Name:        "count",
			Description: "How many spawner channels to create",
			Required:    false,
			MinValue:    utils.Ptr(1),
			MaxValue:    utils.Ptr(rooms.MaxSpawnersPerSetup),
		},
		discord.ApplicationCommandOptionString{
			Name:        "name",
			Description: "Room name pattern, {user} is replaced by the creator",
			Required:    false,
			MaxLength:   utils.Ptr(rooms.MaxNameLength),
		},
		discord.ApplicationCommandOptionInt{
			Name:        "limit",
			Description: "Default user limit, 0 for none",
			Required:    false,
			MinValue:    utils.Ptr(0),
			MaxValue:    utils.Ptr(rooms.MaxUserLimit),
		},
		discord.ApplicationCommandOptionBool{
			Name:        "locked",
			Description: "Create rooms locked",
			Required:    false,
		},
	},
}

var Teardown = discord.SlashCommandCreate{
	Name:        "teardown",
	Description: "Remove a join-to-create channel",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionChannel{
			Name:         "spawner",
			Description:  "The join-to-create channel",
			Required:     true,
			ChannelTypes: []discord.ChannelType{discord.ChannelTypeGuildVoice},
		},
	},
}

// spawnerTemplate reads the room defaults from the /setup options.
func spawnerTemplate(data discord.SlashCommandInteractionData) rooms.SpawnerTemplate {
	tmpl := rooms.DefaultSpawnerTemplate()
	if name, ok := data.OptString("name"); ok && strings.TrimSpace(name) != "" {
		tmpl.NamePattern = strings.TrimSpace(name)
	}
	if limit, ok := data.OptInt("limit"); ok {
		tmpl.UserLimit = limit
	}
	if locked, ok := data.OptBool("locked"); ok {
		tmpl.Locked = locked
	}
	return tmpl
}

func SetupHandler(b *voicebot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		guildID := e.GuildID()
		if guildID == nil {
			return utils.EH.CreateUserError(e, "This command only works in a server.")
		}
		if !isAdmin(e) {
			return utils.EH.CreatePermissionError(e, "You need the Manage Channels permission.")
		}
		data := e.SlashCommandInteractionData()

		count := 1
		if c, ok := data.OptInt("count"); ok {
			count = c
		}
		var categoryID = data.Snowflake("category")

		if err := e.DeferCreateMessage(true); err != nil {
			return err
		}

		ctx, cancel := commandContext()
		defer cancel()

		spawners, err := b.Rooms.Lifecycle.Setup(ctx, *guildID, categoryID, count, spawnerTemplate(data))
		if err != nil && len(spawners) == 0 {
			return updateWithError(e, err)
		}

		var desc strings.Builder
		for _, s := range spawners {
			fmt.Fprintf(&desc, "• <#%s>\n", s.ChannelID)
		}
		if err != nil {
			_, msg := utils.ClassifyError(err)
			fmt.Fprintf(&desc, "\n⚠️ Stopped early: %s", msg)
		}
		_, updErr := e.UpdateInteractionResponse(discord.MessageUpdate{
			Embeds: &[]discord.Embed{{
				Title:       fmt.Sprintf("Created %d join-to-create channel(s)", len(spawners)),
				Description: desc.String(),
				Color:       config.SuccessColor,
			}},
		})
		return updErr
	}
}

func TeardownHandler(b *voicebot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		guildID := e.GuildID()
		if guildID == nil {
			return utils.EH.CreateUserError(e, "This command only works in a server.")
		}
		if !isAdmin(e) {
			return utils.EH.CreatePermissionError(e, "You need the Manage Channels permission.")
		}
		spawnerID := e.SlashCommandInteractionData().Snowflake("spawner")

		if err := e.DeferCreateMessage(true); err != nil {
			return err
		}

		ctx, cancel := commandContext()
		defer cancel()

		if err := b.Rooms.Lifecycle.Teardown(ctx, *guildID, spawnerID); err != nil {
			return updateWithError(e, err)
		}
		_, err := e.UpdateInteractionResponse(discord.MessageUpdate{
			Embeds: &[]discord.Embed{{
				Description: "✅ Join-to-create channel removed. Existing rooms stay until they empty out.",
				Color:       config.SuccessColor,
			}},
		})
		return err
	}
}

// updateWithError is HandleRoomError for deferred responses.
func updateWithError(e *handler.CommandEvent, err error) error {
	errorType, msg := utils.ClassifyError(err)
	_, updErr := e.UpdateInteractionResponse(discord.MessageUpdate{
		Embeds: &[]discord.Embed{{
			Description: "❌ " + msg,
			Color:       config.ErrorColor,
		}},
	})
	if updErr != nil {
		return updErr
	}
	if errorType == utils.SystemError {
		return err
	}
	return nil
}

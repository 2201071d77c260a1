package commands

import (
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/ellavondegurechaff/gohye-voice/internal/domain/rooms"
	"github.com/ellavondegurechaff/gohye-voice/voicebot"
	"github.com/ellavondegurechaff/gohye-voice/voicebot/utils"
)

var Lock = discord.SlashCommandCreate{
	Name:        "lock",
	Description: "Only permitted members can join your room",
}

var Unlock = discord.SlashCommandCreate{
	Name:        "unlock",
	Description: "Anyone can join your room again",
}

var Name = discord.SlashCommandCreate{
	Name:        "name",
	Description: "Rename your room",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionString{
			Name:        "name",
			Description: "New room name",
			Required:    true,
			MaxLength:   utils.Ptr(rooms.MaxNameLength),
		},
	},
}

var Limit = discord.SlashCommandCreate{
	Name:        "limit",
	Description: "Set how many members fit in your room",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionInt{
			Name:        "limit",
			Description: "Member limit, 0 for none",
			Required:    true,
			MinValue:    utils.Ptr(0),
			MaxValue:    utils.Ptr(rooms.MaxUserLimit),
		},
	},
}

func LockHandler(b *voicebot.Bot, locked bool) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		roomID, ok, err := callerRoom(b, e)
		if !ok {
			return err
		}
		ctx, cancel := commandContext()
		defer cancel()

		if err := b.Rooms.Ownership.SetLock(ctx, roomID, e.User().ID, locked); err != nil {
			return utils.EH.HandleRoomError(e, err)
		}
		if locked {
			return utils.EH.CreateSuccessEmbed(e, "🔒 Room locked.")
		}
		return utils.EH.CreateSuccessEmbed(e, "🔓 Room unlocked.")
	}
}

func NameHandler(b *voicebot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		name := e.SlashCommandInteractionData().String("name")
		roomID, ok, err := callerRoom(b, e)
		if !ok {
			return err
		}
		ctx, cancel := commandContext()
		defer cancel()

		if err := b.Rooms.Ownership.SetName(ctx, roomID, e.User().ID, name); err != nil {
			return utils.EH.HandleRoomError(e, err)
		}
		return utils.EH.CreateSuccessEmbed(e, fmt.Sprintf("Room renamed to `%s`.", name))
	}
}

func LimitHandler(b *voicebot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		limit := e.SlashCommandInteractionData().Int("limit")
		roomID, ok, err := callerRoom(b, e)
		if !ok {
			return err
		}
		ctx, cancel := commandContext()
		defer cancel()

		if err := b.Rooms.Ownership.SetLimit(ctx, roomID, e.User().ID, limit); err != nil {
			return utils.EH.HandleRoomError(e, err)
		}
		if limit == 0 {
			return utils.EH.CreateSuccessEmbed(e, "Member limit removed.")
		}
		return utils.EH.CreateSuccessEmbed(e, fmt.Sprintf("Member limit set to %d.", limit))
	}
}

package commands

import (
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/ellavondegurechaff/gohye-voice/voicebot"
	"github.com/ellavondegurechaff/gohye-voice/voicebot/utils"
)

var Close = discord.SlashCommandCreate{
	Name:        "close",
	Description: "Delete your voice room",
}

var Reset = discord.SlashCommandCreate{
	Name:        "reset",
	Description: "Forget the permissions and settings saved in your template",
}

var Claim = discord.SlashCommandCreate{
	Name:        "claim",
	Description: "Take over the room you're in after its owner left",
}

var Transfer = discord.SlashCommandCreate{
	Name:        "transfer",
	Description: "Give your room to another member in it",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionUser{
			Name:        "user",
			Description: "The new owner",
			Required:    true,
		},
	},
}

func CloseHandler(b *voicebot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		roomID, ok, err := callerRoom(b, e)
		if !ok {
			return err
		}
		ctx, cancel := commandContext()
		defer cancel()

		if err := b.Rooms.Lifecycle.CloseRoom(ctx, roomID, e.User().ID, isAdmin(e)); err != nil {
			return utils.EH.HandleRoomError(e, err)
		}
		return utils.EH.CreateSuccessEmbed(e, "Room closed.")
	}
}

func ResetHandler(b *voicebot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := commandContext()
		defer cancel()

		if err := b.Rooms.Ownership.ResetTemplate(ctx, e.User().ID); err != nil {
			return utils.EH.HandleRoomError(e, err)
		}
		return utils.EH.CreateSuccessEmbed(e, "Your template was reset. New rooms use the server defaults.")
	}
}

func ClaimHandler(b *voicebot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		roomID, ok, err := callerRoom(b, e)
		if !ok {
			return err
		}
		ctx, cancel := commandContext()
		defer cancel()

		if err := b.Rooms.Ownership.Claim(ctx, roomID, e.User().ID); err != nil {
			return utils.EH.HandleRoomError(e, err)
		}
		return utils.EH.CreateSuccessEmbed(e, fmt.Sprintf("You now own <#%s>.", roomID))
	}
}

func TransferHandler(b *voicebot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		newOwner := e.SlashCommandInteractionData().User("user")
		roomID, ok, err := callerRoom(b, e)
		if !ok {
			return err
		}
		ctx, cancel := commandContext()
		defer cancel()

		if err := b.Rooms.Ownership.Transfer(ctx, roomID, e.User().ID, newOwner.ID); err != nil {
			return utils.EH.HandleRoomError(e, err)
		}
		return utils.EH.CreateSuccessEmbed(e, fmt.Sprintf("<@%s> now owns <#%s>.", newOwner.ID, roomID))
	}
}

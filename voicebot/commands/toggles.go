package commands

import (
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/ellavondegurechaff/gohye-voice/internal/domain/rooms"
	"github.com/ellavondegurechaff/gohye-voice/voicebot"
	"github.com/ellavondegurechaff/gohye-voice/voicebot/utils"
)

func toggleCommand(name, description string) discord.SlashCommandCreate {
	return discord.SlashCommandCreate{
		Name:        name,
		Description: description,
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionBool{
				Name:        "enabled",
				Description: "Turn it on or off",
				Required:    true,
			},
			scopeOption,
		},
	}
}

var (
	PushToTalk = toggleCommand("ptt", "Require push-to-talk in your room")
	Priority   = toggleCommand("priority", "Allow priority speaker in your room")
	Soundboard = toggleCommand("soundboard", "Allow the soundboard in your room")
)

var toggleNames = map[rooms.ToggleKind]string{
	rooms.TogglePushToTalk:      "Push-to-talk",
	rooms.TogglePrioritySpeaker: "Priority speaker",
	rooms.ToggleSoundboard:      "Soundboard",
}

func ToggleHandler(b *voicebot.Bot, kind rooms.ToggleKind) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		data := e.SlashCommandInteractionData()
		enabled := data.Bool("enabled")
		scope := scopeOf(data)
		roomID, ok, err := roomFor(b, e, scope)
		if !ok {
			return err
		}

		ctx, cancel := commandContext()
		defer cancel()

		if err := b.Rooms.Ownership.SetToggle(ctx, roomID, e.User().ID, kind, enabled, scope); err != nil {
			return utils.EH.HandleRoomError(e, err)
		}
		state := "off"
		if enabled {
			state = "on"
		}
		return utils.EH.CreateSuccessEmbed(e, toggleNames[kind]+" is now "+state+"."+scopeSuffix(scope))
	}
}

package commands

import (
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/ellavondegurechaff/gohye-voice/internal/domain/rooms"
	"github.com/ellavondegurechaff/gohye-voice/voicebot"
	"github.com/ellavondegurechaff/gohye-voice/voicebot/utils"
)

func permissionCommand(name, description string) discord.SlashCommandCreate {
	return discord.SlashCommandCreate{
		Name:        name,
		Description: description,
		Options: []discord.ApplicationCommandOption{
			discord.ApplicationCommandOptionUser{
				Name:        "user",
				Description: "Member to change",
				Required:    false,
			},
			discord.ApplicationCommandOptionRole{
				Name:        "role",
				Description: "Role to change",
				Required:    false,
			},
			scopeOption,
		},
	}
}

var (
	Permit   = permissionCommand("permit", "Let a member or role join your room")
	Reject   = permissionCommand("reject", "Keep a member or role out of your room")
	Unpermit = permissionCommand("unpermit", "Remove a permit or reject")
)

// permissionTarget returns the single user or role the command names.
func permissionTarget(data discord.SlashCommandInteractionData) (rooms.Target, error) {
	user, hasUser := data.OptUser("user")
	role, hasRole := data.OptRole("role")
	switch {
	case hasUser && hasRole:
		return rooms.Target{}, fmt.Errorf("%w: pick either a user or a role", rooms.ErrInvalidArgument)
	case hasUser:
		return rooms.Target{ID: user.ID, Type: rooms.TargetUser}, nil
	case hasRole:
		return rooms.Target{ID: role.ID, Type: rooms.TargetRole}, nil
	}
	return rooms.Target{}, fmt.Errorf("%w: pick a user or a role", rooms.ErrInvalidArgument)
}

func mentionTarget(t rooms.Target) string {
	if t.Type == rooms.TargetRole {
		return fmt.Sprintf("<@&%s>", t.ID)
	}
	return fmt.Sprintf("<@%s>", t.ID)
}

func PermissionHandler(b *voicebot.Bot, mode rooms.Mode) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		data := e.SlashCommandInteractionData()
		target, err := permissionTarget(data)
		if err != nil {
			return utils.EH.HandleRoomError(e, err)
		}
		scope := scopeOf(data)
		roomID, ok, err := roomFor(b, e, scope)
		if !ok {
			return err
		}

		ctx, cancel := commandContext()
		defer cancel()

		if err := b.Rooms.Ownership.SetPermission(ctx, roomID, e.User().ID, target, mode, scope); err != nil {
			return utils.EH.HandleRoomError(e, err)
		}

		var msg string
		switch mode {
		case rooms.ModePermit:
			msg = mentionTarget(target) + " can now join."
		case rooms.ModeReject:
			msg = mentionTarget(target) + " is now kept out."
		default:
			msg = "Cleared the rule for " + mentionTarget(target) + "."
		}
		return utils.EH.CreateSuccessEmbed(e, msg+scopeSuffix(scope))
	}
}

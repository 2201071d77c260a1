package commands

import (
	"context"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/snowflake/v2"
	"github.com/ellavondegurechaff/gohye-voice/internal/domain/rooms"
	"github.com/ellavondegurechaff/gohye-voice/voicebot"
	"github.com/ellavondegurechaff/gohye-voice/voicebot/config"
	"github.com/ellavondegurechaff/gohye-voice/voicebot/utils"
)

var Commands = []discord.ApplicationCommandCreate{
	Setup,
	Teardown,
	Permit,
	Reject,
	Unpermit,
	PushToTalk,
	Priority,
	Soundboard,
	Lock,
	Unlock,
	Name,
	Limit,
	Close,
	Reset,
	Claim,
	Transfer,
	AdminReset,
	Rooms,
}

var scopeOption = discord.ApplicationCommandOptionString{
	Name:        "scope",
	Description: "Change this room, or save it for the rooms you create later",
	Required:    false,
	Choices: []discord.ApplicationCommandOptionChoiceString{
		{Name: "This room", Value: string(rooms.ScopeLive)},
		{Name: "My template", Value: string(rooms.ScopeTemplate)},
	},
}

func scopeOf(data discord.SlashCommandInteractionData) rooms.Scope {
	if s, ok := data.OptString("scope"); ok && s == string(rooms.ScopeTemplate) {
		return rooms.ScopeTemplate
	}
	return rooms.ScopeLive
}

func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), config.CommandExecutionTimeout)
}

func isAdmin(e *handler.CommandEvent) bool {
	m := e.Member()
	return m != nil && m.Permissions.Has(discord.PermissionManageChannels)
}

// callerRoom returns the voice channel the caller is connected to. It answers
// the interaction itself when there is none.
func callerRoom(b *voicebot.Bot, e *handler.CommandEvent) (snowflake.ID, bool, error) {
	guildID := e.GuildID()
	if guildID == nil {
		return 0, false, utils.EH.CreateUserError(e, "This command only works in a server.")
	}
	channelID, ok := b.VoiceChannelOf(*guildID, e.User().ID)
	if !ok {
		return 0, false, utils.EH.CreateUserError(e, "Join your voice room first.")
	}
	return channelID, true, nil
}

// templateRoom is like callerRoom but never fails: template changes work
// without being in a room.
func templateRoom(b *voicebot.Bot, e *handler.CommandEvent) snowflake.ID {
	guildID := e.GuildID()
	if guildID == nil {
		return 0
	}
	channelID, _ := b.VoiceChannelOf(*guildID, e.User().ID)
	return channelID
}

// roomFor picks the room a scoped command applies to. ok is false when the
// interaction was already answered.
func roomFor(b *voicebot.Bot, e *handler.CommandEvent, scope rooms.Scope) (snowflake.ID, bool, error) {
	if scope == rooms.ScopeTemplate {
		return templateRoom(b, e), true, nil
	}
	return callerRoom(b, e)
}

func scopeSuffix(scope rooms.Scope) string {
	if scope == rooms.ScopeTemplate {
		return " Saved to your template."
	}
	return ""
}

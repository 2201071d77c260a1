// Package platform adapts a disgo client to rooms.Platform.
package platform

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/ellavondegurechaff/gohye-voice/internal/domain/rooms"
)

// botPermissions keeps the bot able to manage a room it locked everyone out of.
const botPermissions = discord.PermissionViewChannel |
	discord.PermissionConnect |
	discord.PermissionManageChannels |
	discord.PermissionMoveMembers

type Discord struct {
	client bot.Client
}

var _ rooms.Platform = (*Discord)(nil)

func NewDiscord(client bot.Client) *Discord {
	return &Discord{client: client}
}

// mapError converts REST failures into the errors rooms understands.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var restErr *rest.Error
	if errors.As(err, &restErr) && restErr.Response != nil {
		switch restErr.Response.StatusCode {
		case http.StatusForbidden:
			return fmt.Errorf("%s: %w: %w", op, rooms.ErrPlatformForbidden, err)
		case http.StatusNotFound:
			return fmt.Errorf("%s: %w: %w", op, rooms.ErrChannelGone, err)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%s: %w: %w", op, rooms.ErrNotApplied, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (d *Discord) withSelf(overwrites []discord.PermissionOverwrite) []discord.PermissionOverwrite {
	out := make([]discord.PermissionOverwrite, 0, len(overwrites)+1)
	out = append(out, overwrites...)
	return append(out, discord.MemberPermissionOverwrite{
		UserID: d.client.ID(),
		Allow:  botPermissions,
	})
}

func (d *Discord) CreateCategory(ctx context.Context, guildID snowflake.ID, name string) (snowflake.ID, error) {
	ch, err := d.client.Rest().CreateGuildChannel(guildID, discord.GuildCategoryChannelCreate{
		Name: name,
	}, rest.WithCtx(ctx))
	if err != nil {
		return 0, mapError("create category", err)
	}
	return ch.ID(), nil
}

func (d *Discord) CreateVoiceChannel(ctx context.Context, guildID, parentID snowflake.ID, spec rooms.ChannelSpec) (snowflake.ID, error) {
	ch, err := d.client.Rest().CreateGuildChannel(guildID, discord.GuildVoiceChannelCreate{
		Name:                 spec.Name,
		UserLimit:            spec.UserLimit,
		ParentID:             parentID,
		PermissionOverwrites: d.withSelf(spec.Overwrites),
	}, rest.WithCtx(ctx))
	if err != nil {
		return 0, mapError("create voice channel", err)
	}
	return ch.ID(), nil
}

// UpdateVoiceChannel replaces name, limit and the whole overwrite list.
func (d *Discord) UpdateVoiceChannel(ctx context.Context, channelID snowflake.ID, spec rooms.ChannelSpec) error {
	overwrites := d.withSelf(spec.Overwrites)
	_, err := d.client.Rest().UpdateChannel(channelID, discord.GuildVoiceChannelUpdate{
		Name:                 &spec.Name,
		UserLimit:            &spec.UserLimit,
		PermissionOverwrites: &overwrites,
	}, rest.WithCtx(ctx))
	return mapError("update voice channel", err)
}

func (d *Discord) DeleteChannel(ctx context.Context, channelID snowflake.ID) error {
	return mapError("delete channel", d.client.Rest().DeleteChannel(channelID, rest.WithCtx(ctx)))
}

// ChannelExists trusts the gateway cache and asks the API only on a miss.
func (d *Discord) ChannelExists(ctx context.Context, guildID, channelID snowflake.ID) (bool, error) {
	if ch, ok := d.client.Caches().Channel(channelID); ok {
		return ch.GuildID() == guildID, nil
	}
	ch, err := d.client.Rest().GetChannel(channelID, rest.WithCtx(ctx))
	if err = mapError("get channel", err); err != nil {
		if errors.Is(err, rooms.ErrChannelGone) {
			return false, nil
		}
		return false, err
	}
	guildCh, ok := ch.(discord.GuildChannel)
	return ok && guildCh.GuildID() == guildID, nil
}

// ChannelMembers reads voice states from the gateway cache.
func (d *Discord) ChannelMembers(_ context.Context, guildID, channelID snowflake.ID) ([]snowflake.ID, error) {
	var members []snowflake.ID
	d.client.Caches().VoiceStatesForEach(guildID, func(vs discord.VoiceState) {
		if vs.ChannelID != nil && *vs.ChannelID == channelID {
			members = append(members, vs.UserID)
		}
	})
	return members, nil
}

func (d *Discord) MemberName(ctx context.Context, guildID, userID snowflake.ID) (string, error) {
	if member, ok := d.client.Caches().Member(guildID, userID); ok {
		return member.EffectiveName(), nil
	}
	member, err := d.client.Rest().GetMember(guildID, userID, rest.WithCtx(ctx))
	if err != nil {
		return "", mapError("get member", err)
	}
	return member.EffectiveName(), nil
}

func (d *Discord) MoveMember(ctx context.Context, guildID, userID, channelID snowflake.ID) error {
	_, err := d.client.Rest().UpdateMember(guildID, userID, discord.MemberUpdate{
		ChannelID: &channelID,
	}, rest.WithCtx(ctx))
	return mapError("move member", err)
}

// DisconnectMember sends an explicit null channel, which MemberUpdate would
// omit.
func (d *Discord) DisconnectMember(ctx context.Context, guildID, userID snowflake.ID) error {
	err := d.client.Rest().Do(
		rest.UpdateMember.Compile(nil, guildID, userID),
		map[string]any{"channel_id": nil},
		nil,
		rest.WithCtx(ctx),
	)
	return mapError("disconnect member", err)
}

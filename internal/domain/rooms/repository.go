package rooms

import (
	"context"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
)

//go:generate mockgen -destination=mock/platform.go -package=mock . Platform

type SpawnerStore interface {
	CreateSpawner(ctx context.Context, spawner *Spawner) error
	// GetSpawner returns ErrSpawnerNotFound when no spawner uses channelID.
	GetSpawner(ctx context.Context, channelID snowflake.ID) (*Spawner, error)
	ListSpawners(ctx context.Context, guildID snowflake.ID) ([]*Spawner, error)
	DeleteSpawner(ctx context.Context, channelID snowflake.ID) (bool, error)
}

type RoomStore interface {
	// CreateRoom inserts the room together with its settings, live toggles and
	// live permissions in one transaction.
	CreateRoom(ctx context.Context, state *RoomState) error
	// GetRoom returns ErrNotFound when the row does not exist.
	GetRoom(ctx context.Context, roomID snowflake.ID) (*Room, error)
	GetRoomState(ctx context.Context, roomID snowflake.ID) (*RoomState, error)
	ListRooms(ctx context.Context) ([]*Room, error)
	ListRoomViews(ctx context.Context, guildID *snowflake.ID) ([]RoomView, error)
	DeleteRoom(ctx context.Context, roomID snowflake.ID) (bool, error)
	// CompareAndSwapOwner sets owner_id to next only when it currently equals
	// expected (nil meaning no owner).
	CompareAndSwapOwner(ctx context.Context, roomID snowflake.ID, expected, next *snowflake.ID) (bool, error)
	TouchRoom(ctx context.Context, roomID snowflake.ID, at time.Time) error
	// MarkRoomEmpty records at as empty_since unless the room is already marked.
	MarkRoomEmpty(ctx context.Context, roomID snowflake.ID, at time.Time) (bool, error)
	// DeactivateRoom flips is_active off only if the room is still active and
	// still empty since exactly emptySince.
	DeactivateRoom(ctx context.Context, roomID snowflake.ID, emptySince time.Time) (bool, error)
	ReactivateRoom(ctx context.Context, roomID snowflake.ID, at time.Time) error
	UpdateSettings(ctx context.Context, settings Settings) error
}

type TemplateStore interface {
	UpsertPermission(ctx context.Context, entry PermissionEntry) error
	DeletePermission(ctx context.Context, scope Scope, key, targetID snowflake.ID) error
	SaveToggles(ctx context.Context, toggles Toggles) error
	// GetUserTemplate never fails for unknown users; it returns an empty template.
	GetUserTemplate(ctx context.Context, userID snowflake.ID) (*UserTemplate, error)
	DeleteUserTemplate(ctx context.Context, userID snowflake.ID) error
}

type CooldownStore interface {
	// AcquireCooldown records now as the last creation time if the previous one
	// is older than window. It returns the blocking timestamp when refused.
	AcquireCooldown(ctx context.Context, userID, guildID snowflake.ID, now time.Time, window time.Duration) (bool, time.Time, error)
	ReleaseCooldown(ctx context.Context, userID, guildID snowflake.ID, stamp time.Time) error
	PurgeCooldowns(ctx context.Context, before time.Time) (int64, error)
}

// Store is the persistence gateway. It is the only source of truth.
type Store interface {
	SpawnerStore
	RoomStore
	TemplateStore
	CooldownStore
}

// ChannelSpec is the full desired state of a live voice channel.
type ChannelSpec struct {
	Name       string
	UserLimit  int
	Overwrites []discord.PermissionOverwrite
}

// Platform is the live chat platform. Implementations return ErrChannelGone
// for missing channels and ErrPlatformForbidden for authorization failures.
type Platform interface {
	CreateCategory(ctx context.Context, guildID snowflake.ID, name string) (snowflake.ID, error)
	CreateVoiceChannel(ctx context.Context, guildID, parentID snowflake.ID, spec ChannelSpec) (snowflake.ID, error)
	UpdateVoiceChannel(ctx context.Context, channelID snowflake.ID, spec ChannelSpec) error
	DeleteChannel(ctx context.Context, channelID snowflake.ID) error
	ChannelExists(ctx context.Context, guildID, channelID snowflake.ID) (bool, error)
	ChannelMembers(ctx context.Context, guildID, channelID snowflake.ID) ([]snowflake.ID, error)
	MemberName(ctx context.Context, guildID, userID snowflake.ID) (string, error)
	MoveMember(ctx context.Context, guildID, userID, channelID snowflake.ID) error
	DisconnectMember(ctx context.Context, guildID, userID snowflake.ID) error
}

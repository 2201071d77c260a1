package repositories

import (
	"github.com/disgoorg/snowflake/v2"
	"github.com/ellavondegurechaff/gohye-voice/internal/domain/rooms"
	"github.com/ellavondegurechaff/gohye-voice/internal/gateways/database/models"
)

func idPtr(id *snowflake.ID) *int64 {
	if id == nil {
		return nil
	}
	v := int64(*id)
	return &v
}

func fromIDPtr(id *int64) *snowflake.ID {
	if id == nil {
		return nil
	}
	v := snowflake.ID(*id)
	return &v
}

func toSpawnerModel(s *rooms.Spawner) *models.Spawner {
	return &models.Spawner{
		ChannelID:       int64(s.ChannelID),
		GuildID:         int64(s.GuildID),
		CategoryID:      int64(s.CategoryID),
		DefaultTemplate: models.SpawnerTemplate(s.DefaultTemplate),
		CreatedAt:       s.CreatedAt,
	}
}

func fromSpawnerModel(m *models.Spawner) *rooms.Spawner {
	return &rooms.Spawner{
		GuildID:         snowflake.ID(m.GuildID),
		ChannelID:       snowflake.ID(m.ChannelID),
		CategoryID:      snowflake.ID(m.CategoryID),
		DefaultTemplate: rooms.SpawnerTemplate(m.DefaultTemplate),
		CreatedAt:       m.CreatedAt,
	}
}

func toRoomModel(r *rooms.Room) *models.Room {
	return &models.Room{
		RoomID:         int64(r.RoomID),
		GuildID:        int64(r.GuildID),
		SpawnerID:      int64(r.SpawnerID),
		OwnerID:        idPtr(r.OwnerID),
		CreatedAt:      r.CreatedAt,
		LastActivityAt: r.LastActivityAt,
		EmptySince:     r.EmptySince,
		IsActive:       r.IsActive,
	}
}

func fromRoomModel(m *models.Room) *rooms.Room {
	return &rooms.Room{
		RoomID:         snowflake.ID(m.RoomID),
		GuildID:        snowflake.ID(m.GuildID),
		SpawnerID:      snowflake.ID(m.SpawnerID),
		OwnerID:        fromIDPtr(m.OwnerID),
		CreatedAt:      m.CreatedAt,
		LastActivityAt: m.LastActivityAt,
		EmptySince:     m.EmptySince,
		IsActive:       m.IsActive,
	}
}

func toPermissionModel(e rooms.PermissionEntry) *models.PermissionEntry {
	return &models.PermissionEntry{
		Scope:      string(e.Scope),
		KeyID:      int64(e.Key),
		TargetID:   int64(e.Target.ID),
		TargetType: string(e.Target.Type),
		Mode:       string(e.Mode),
	}
}

func fromPermissionModels(ms []*models.PermissionEntry) []rooms.PermissionEntry {
	entries := make([]rooms.PermissionEntry, 0, len(ms))
	for _, m := range ms {
		entries = append(entries, rooms.PermissionEntry{
			Scope:  rooms.Scope(m.Scope),
			Key:    snowflake.ID(m.KeyID),
			Target: rooms.Target{ID: snowflake.ID(m.TargetID), Type: rooms.TargetType(m.TargetType)},
			Mode:   rooms.Mode(m.Mode),
		})
	}
	return entries
}

func toToggleModel(t rooms.Toggles) *models.ToggleSet {
	return &models.ToggleSet{
		Scope:           string(t.Scope),
		KeyID:           int64(t.Key),
		PushToTalk:      t.PushToTalk,
		PrioritySpeaker: t.PrioritySpeaker,
		Soundboard:      t.Soundboard,
	}
}

func fromToggleModel(m *models.ToggleSet) rooms.Toggles {
	return rooms.Toggles{
		Scope:           rooms.Scope(m.Scope),
		Key:             snowflake.ID(m.KeyID),
		PushToTalk:      m.PushToTalk,
		PrioritySpeaker: m.PrioritySpeaker,
		Soundboard:      m.Soundboard,
	}
}

func fromRoomViewModel(m models.RoomView) rooms.RoomView {
	return rooms.RoomView{
		RoomID:         snowflake.ID(m.RoomID),
		GuildID:        snowflake.ID(m.GuildID),
		SpawnerID:      snowflake.ID(m.SpawnerID),
		OwnerID:        fromIDPtr(m.OwnerID),
		Name:           m.Name,
		UserLimit:      m.UserLimit,
		Locked:         m.Locked,
		CreatedAt:      m.CreatedAt,
		LastActivityAt: m.LastActivityAt,
	}
}

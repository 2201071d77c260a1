package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/ellavondegurechaff/gohye-voice/internal/domain/rooms"
	"github.com/ellavondegurechaff/gohye-voice/internal/gateways/database/models"
	"github.com/uptrace/bun"
)

// RoomRepository is the PostgreSQL implementation of rooms.Store.
type RoomRepository struct {
	*BaseRepository
}

var _ rooms.Store = (*RoomRepository)(nil)

func NewRoomRepository(db *bun.DB) *RoomRepository {
	return &RoomRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *RoomRepository) CreateSpawner(ctx context.Context, spawner *rooms.Spawner) error {
	_, err := r.Exec(ctx, "create_spawner", "spawner", func(ctx context.Context) (sql.Result, error) {
		return r.db.NewInsert().Model(toSpawnerModel(spawner)).Exec(ctx)
	})
	return err
}

func (r *RoomRepository) GetSpawner(ctx context.Context, channelID snowflake.ID) (*rooms.Spawner, error) {
	m := new(models.Spawner)
	err := r.Select(ctx, "get_spawner", "spawner", rooms.ErrSpawnerNotFound, func(ctx context.Context) error {
		return r.db.NewSelect().Model(m).Where("channel_id = ?", int64(channelID)).Scan(ctx)
	})
	if err != nil {
		return nil, err
	}
	return fromSpawnerModel(m), nil
}

func (r *RoomRepository) ListSpawners(ctx context.Context, guildID snowflake.ID) ([]*rooms.Spawner, error) {
	var ms []*models.Spawner
	err := r.Select(ctx, "list_spawners", "spawner", nil, func(ctx context.Context) error {
		return r.db.NewSelect().
			Model(&ms).
			Where("guild_id = ?", int64(guildID)).
			Order("created_at ASC").
			Scan(ctx)
	})
	if err != nil {
		return nil, err
	}
	spawners := make([]*rooms.Spawner, 0, len(ms))
	for _, m := range ms {
		spawners = append(spawners, fromSpawnerModel(m))
	}
	return spawners, nil
}

func (r *RoomRepository) DeleteSpawner(ctx context.Context, channelID snowflake.ID) (bool, error) {
	n, err := r.Exec(ctx, "delete_spawner", "spawner", func(ctx context.Context) (sql.Result, error) {
		return r.db.NewDelete().
			Model((*models.Spawner)(nil)).
			Where("channel_id = ?", int64(channelID)).
			Exec(ctx)
	})
	return n > 0, err
}

// CreateRoom writes the room, its settings, live toggles and live
// permissions atomically.
func (r *RoomRepository) CreateRoom(ctx context.Context, state *rooms.RoomState) error {
	return r.Transaction(ctx, "create_room", func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(toRoomModel(&state.Room)).Exec(ctx); err != nil {
			return err
		}
		settings := &models.RoomSettings{
			RoomID:    int64(state.Room.RoomID),
			Name:      state.Settings.Name,
			UserLimit: state.Settings.UserLimit,
			Locked:    state.Settings.Locked,
		}
		if _, err := tx.NewInsert().Model(settings).Exec(ctx); err != nil {
			return err
		}
		toggles := state.Toggles
		toggles.Scope, toggles.Key = rooms.ScopeLive, state.Room.RoomID
		if _, err := tx.NewInsert().Model(toToggleModel(toggles)).Exec(ctx); err != nil {
			return err
		}
		if len(state.Permissions) == 0 {
			return nil
		}
		entries := make([]*models.PermissionEntry, 0, len(state.Permissions))
		for _, e := range state.Permissions {
			e.Scope, e.Key = rooms.ScopeLive, state.Room.RoomID
			entries = append(entries, toPermissionModel(e))
		}
		_, err := tx.NewInsert().Model(&entries).Exec(ctx)
		return err
	})
}

func (r *RoomRepository) GetRoom(ctx context.Context, roomID snowflake.ID) (*rooms.Room, error) {
	m := new(models.Room)
	err := r.Select(ctx, "get_room", "room", rooms.ErrNotFound, func(ctx context.Context) error {
		return r.db.NewSelect().Model(m).Where("room_id = ?", int64(roomID)).Scan(ctx)
	})
	if err != nil {
		return nil, err
	}
	return fromRoomModel(m), nil
}

func (r *RoomRepository) GetRoomState(ctx context.Context, roomID snowflake.ID) (*rooms.RoomState, error) {
	room, err := r.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	state := &rooms.RoomState{
		Room:    *room,
		Toggles: rooms.Toggles{Scope: rooms.ScopeLive, Key: roomID},
	}

	settings := new(models.RoomSettings)
	err = r.Select(ctx, "get_room_settings", "room_settings", rooms.ErrNotFound, func(ctx context.Context) error {
		return r.db.NewSelect().Model(settings).Where("room_id = ?", int64(roomID)).Scan(ctx)
	})
	if err != nil {
		return nil, err
	}
	state.Settings = rooms.Settings{
		RoomID:    roomID,
		Name:      settings.Name,
		UserLimit: settings.UserLimit,
		Locked:    settings.Locked,
	}

	toggles, err := r.toggles(ctx, rooms.ScopeLive, roomID)
	if err != nil {
		return nil, err
	}
	if toggles != nil {
		state.Toggles = *toggles
	}

	state.Permissions, err = r.permissions(ctx, rooms.ScopeLive, roomID)
	if err != nil {
		return nil, err
	}
	return state, nil
}

func (r *RoomRepository) ListRooms(ctx context.Context) ([]*rooms.Room, error) {
	var ms []*models.Room
	err := r.Select(ctx, "list_rooms", "room", nil, func(ctx context.Context) error {
		return r.db.NewSelect().Model(&ms).Order("guild_id ASC", "created_at ASC").Scan(ctx)
	})
	if err != nil {
		return nil, err
	}
	list := make([]*rooms.Room, 0, len(ms))
	for _, m := range ms {
		list = append(list, fromRoomModel(m))
	}
	return list, nil
}

// ListRoomViews lists active rooms, oldest first.
func (r *RoomRepository) ListRoomViews(ctx context.Context, guildID *snowflake.ID) ([]rooms.RoomView, error) {
	var rows []models.RoomView
	err := r.Select(ctx, "list_room_views", "room", nil, func(ctx context.Context) error {
		return r.roomViewsQuery(guildID).Scan(ctx, &rows)
	})
	if err != nil {
		return nil, err
	}
	views := make([]rooms.RoomView, 0, len(rows))
	for _, row := range rows {
		views = append(views, fromRoomViewModel(row))
	}
	return views, nil
}

func (r *RoomRepository) roomViewsQuery(guildID *snowflake.ID) *bun.SelectQuery {
	q := r.db.NewSelect().
		TableExpr("rooms AS r").
		ColumnExpr("r.room_id, r.guild_id, r.spawner_id, r.owner_id, r.created_at, r.last_activity_at").
		ColumnExpr("s.name, s.user_limit, s.locked").
		Join("JOIN room_settings AS s ON s.room_id = r.room_id").
		Where("r.is_active")
	if guildID != nil {
		q = q.Where("r.guild_id = ?", int64(*guildID))
	}
	return q.OrderExpr("r.created_at ASC")
}

func (r *RoomRepository) DeleteRoom(ctx context.Context, roomID snowflake.ID) (bool, error) {
	var deleted bool
	err := r.Transaction(ctx, "delete_room", func(ctx context.Context, tx bun.Tx) error {
		id := int64(roomID)
		if _, err := tx.NewDelete().Model((*models.PermissionEntry)(nil)).
			Where("scope = ? AND key_id = ?", string(rooms.ScopeLive), id).Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*models.ToggleSet)(nil)).
			Where("scope = ? AND key_id = ?", string(rooms.ScopeLive), id).Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*models.RoomSettings)(nil)).
			Where("room_id = ?", id).Exec(ctx); err != nil {
			return err
		}
		res, err := tx.NewDelete().Model((*models.Room)(nil)).Where("room_id = ?", id).Exec(ctx)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		deleted = n > 0
		return err
	})
	return deleted, err
}

func (r *RoomRepository) CompareAndSwapOwner(ctx context.Context, roomID snowflake.ID, expected, next *snowflake.ID) (bool, error) {
	n, err := r.Exec(ctx, "swap_owner", "room", func(ctx context.Context) (sql.Result, error) {
		return r.swapOwnerQuery(roomID, expected, next).Exec(ctx)
	})
	return n > 0, err
}

// swapOwnerQuery only matches an active room still held by expected.
func (r *RoomRepository) swapOwnerQuery(roomID snowflake.ID, expected, next *snowflake.ID) *bun.UpdateQuery {
	q := r.db.NewUpdate().
		Model((*models.Room)(nil)).
		Set("owner_id = ?", idPtr(next)).
		Where("room_id = ?", int64(roomID)).
		Where("is_active")
	if expected == nil {
		return q.Where("owner_id IS NULL")
	}
	return q.Where("owner_id = ?", int64(*expected))
}

// exists tells a no-op conditional update apart from a missing row.
func (r *RoomRepository) exists(ctx context.Context, roomID snowflake.ID) (bool, error) {
	var ok bool
	err := r.Select(ctx, "room_exists", "room", nil, func(ctx context.Context) error {
		var e error
		ok, e = r.db.NewSelect().Model((*models.Room)(nil)).Where("room_id = ?", int64(roomID)).Exists(ctx)
		return e
	})
	return ok, err
}

func (r *RoomRepository) requireRow(ctx context.Context, roomID snowflake.ID, n int64) error {
	if n > 0 {
		return nil
	}
	ok, err := r.exists(ctx, roomID)
	if err != nil {
		return err
	}
	if !ok {
		return rooms.ErrNotFound
	}
	return nil
}

func (r *RoomRepository) TouchRoom(ctx context.Context, roomID snowflake.ID, at time.Time) error {
	n, err := r.Exec(ctx, "touch_room", "room", func(ctx context.Context) (sql.Result, error) {
		return r.db.NewUpdate().
			Model((*models.Room)(nil)).
			Set("last_activity_at = ?", at).
			Set("empty_since = NULL").
			Where("room_id = ?", int64(roomID)).
			Exec(ctx)
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return rooms.ErrNotFound
	}
	return nil
}

func (r *RoomRepository) MarkRoomEmpty(ctx context.Context, roomID snowflake.ID, at time.Time) (bool, error) {
	n, err := r.Exec(ctx, "mark_room_empty", "room", func(ctx context.Context) (sql.Result, error) {
		return r.markEmptyQuery(roomID, at).Exec(ctx)
	})
	if err != nil {
		return false, err
	}
	return n > 0, r.requireRow(ctx, roomID, n)
}

func (r *RoomRepository) markEmptyQuery(roomID snowflake.ID, at time.Time) *bun.UpdateQuery {
	return r.db.NewUpdate().
		Model((*models.Room)(nil)).
		Set("empty_since = ?", at).
		Where("room_id = ?", int64(roomID)).
		Where("empty_since IS NULL")
}

func (r *RoomRepository) DeactivateRoom(ctx context.Context, roomID snowflake.ID, emptySince time.Time) (bool, error) {
	n, err := r.Exec(ctx, "deactivate_room", "room", func(ctx context.Context) (sql.Result, error) {
		return r.deactivateQuery(roomID, emptySince).Exec(ctx)
	})
	return n > 0, err
}

// deactivateQuery misses when the room was touched after emptySince.
func (r *RoomRepository) deactivateQuery(roomID snowflake.ID, emptySince time.Time) *bun.UpdateQuery {
	return r.db.NewUpdate().
		Model((*models.Room)(nil)).
		Set("is_active = false").
		Where("room_id = ?", int64(roomID)).
		Where("is_active").
		Where("empty_since = ?", emptySince)
}

func (r *RoomRepository) ReactivateRoom(ctx context.Context, roomID snowflake.ID, at time.Time) error {
	n, err := r.Exec(ctx, "reactivate_room", "room", func(ctx context.Context) (sql.Result, error) {
		return r.db.NewUpdate().
			Model((*models.Room)(nil)).
			Set("is_active = true").
			Set("empty_since = NULL").
			Set("last_activity_at = ?", at).
			Where("room_id = ?", int64(roomID)).
			Exec(ctx)
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return rooms.ErrNotFound
	}
	return nil
}

func (r *RoomRepository) UpdateSettings(ctx context.Context, settings rooms.Settings) error {
	n, err := r.Exec(ctx, "update_settings", "room_settings", func(ctx context.Context) (sql.Result, error) {
		return r.db.NewUpdate().
			Model(&models.RoomSettings{
				RoomID:    int64(settings.RoomID),
				Name:      settings.Name,
				UserLimit: settings.UserLimit,
				Locked:    settings.Locked,
			}).
			Column("name", "user_limit", "locked").
			WherePK().
			Exec(ctx)
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return rooms.ErrNotFound
	}
	return nil
}

func (r *RoomRepository) UpsertPermission(ctx context.Context, entry rooms.PermissionEntry) error {
	_, err := r.Exec(ctx, "upsert_permission", "permission_entry", func(ctx context.Context) (sql.Result, error) {
		return r.db.NewInsert().
			Model(toPermissionModel(entry)).
			On("CONFLICT (scope, key_id, target_id) DO UPDATE").
			Set("target_type = EXCLUDED.target_type").
			Set("mode = EXCLUDED.mode").
			Exec(ctx)
	})
	return err
}

func (r *RoomRepository) DeletePermission(ctx context.Context, scope rooms.Scope, key, targetID snowflake.ID) error {
	_, err := r.Exec(ctx, "delete_permission", "permission_entry", func(ctx context.Context) (sql.Result, error) {
		return r.db.NewDelete().
			Model((*models.PermissionEntry)(nil)).
			Where("scope = ? AND key_id = ? AND target_id = ?", string(scope), int64(key), int64(targetID)).
			Exec(ctx)
	})
	return err
}

func (r *RoomRepository) SaveToggles(ctx context.Context, toggles rooms.Toggles) error {
	_, err := r.Exec(ctx, "save_toggles", "toggles", func(ctx context.Context) (sql.Result, error) {
		return r.db.NewInsert().
			Model(toToggleModel(toggles)).
			On("CONFLICT (scope, key_id) DO UPDATE").
			Set("push_to_talk = EXCLUDED.push_to_talk").
			Set("priority_speaker = EXCLUDED.priority_speaker").
			Set("soundboard = EXCLUDED.soundboard").
			Exec(ctx)
	})
	return err
}

func (r *RoomRepository) toggles(ctx context.Context, scope rooms.Scope, key snowflake.ID) (*rooms.Toggles, error) {
	m := new(models.ToggleSet)
	err := r.Select(ctx, "get_toggles", "toggles", rooms.ErrNotFound, func(ctx context.Context) error {
		return r.db.NewSelect().
			Model(m).
			Where("scope = ? AND key_id = ?", string(scope), int64(key)).
			Scan(ctx)
	})
	if errors.Is(err, rooms.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	t := fromToggleModel(m)
	return &t, nil
}

func (r *RoomRepository) permissions(ctx context.Context, scope rooms.Scope, key snowflake.ID) ([]rooms.PermissionEntry, error) {
	var ms []*models.PermissionEntry
	err := r.Select(ctx, "list_permissions", "permission_entry", nil, func(ctx context.Context) error {
		return r.db.NewSelect().
			Model(&ms).
			Where("scope = ? AND key_id = ?", string(scope), int64(key)).
			Order("target_id ASC").
			Scan(ctx)
	})
	if err != nil {
		return nil, err
	}
	return fromPermissionModels(ms), nil
}

func (r *RoomRepository) GetUserTemplate(ctx context.Context, userID snowflake.ID) (*rooms.UserTemplate, error) {
	toggles, err := r.toggles(ctx, rooms.ScopeTemplate, userID)
	if err != nil {
		return nil, err
	}
	perms, err := r.permissions(ctx, rooms.ScopeTemplate, userID)
	if err != nil {
		return nil, err
	}
	return &rooms.UserTemplate{UserID: userID, Toggles: toggles, Permissions: perms}, nil
}

func (r *RoomRepository) DeleteUserTemplate(ctx context.Context, userID snowflake.ID) error {
	return r.Transaction(ctx, "delete_user_template", func(ctx context.Context, tx bun.Tx) error {
		key := int64(userID)
		scope := string(rooms.ScopeTemplate)
		if _, err := tx.NewDelete().Model((*models.PermissionEntry)(nil)).
			Where("scope = ? AND key_id = ?", scope, key).Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewDelete().Model((*models.ToggleSet)(nil)).
			Where("scope = ? AND key_id = ?", scope, key).Exec(ctx)
		return err
	})
}

// AcquireCooldown is one conditional upsert: the row is only written when
// the previous creation is at least window old.
func (r *RoomRepository) AcquireCooldown(ctx context.Context, userID, guildID snowflake.ID, now time.Time, window time.Duration) (bool, time.Time, error) {
	n, err := r.Exec(ctx, "acquire_cooldown", "cooldown", func(ctx context.Context) (sql.Result, error) {
		return r.acquireCooldownQuery(userID, guildID, now, window).Exec(ctx)
	})
	if err != nil {
		return false, time.Time{}, err
	}
	if n > 0 {
		return true, time.Time{}, nil
	}

	m := new(models.Cooldown)
	err = r.Select(ctx, "get_cooldown", "cooldown", nil, func(ctx context.Context) error {
		return r.db.NewSelect().
			Model(m).
			Where("user_id = ? AND guild_id = ?", int64(userID), int64(guildID)).
			Scan(ctx)
	})
	if err != nil {
		return false, time.Time{}, err
	}
	return false, m.LastCreatedAt, nil
}

func (r *RoomRepository) acquireCooldownQuery(userID, guildID snowflake.ID, now time.Time, window time.Duration) *bun.InsertQuery {
	return r.db.NewInsert().
		Model(&models.Cooldown{UserID: int64(userID), GuildID: int64(guildID), LastCreatedAt: now}).
		On("CONFLICT (user_id, guild_id) DO UPDATE").
		Set("last_created_at = EXCLUDED.last_created_at").
		Where("?TableAlias.last_created_at <= ?", now.Add(-window))
}

func (r *RoomRepository) ReleaseCooldown(ctx context.Context, userID, guildID snowflake.ID, stamp time.Time) error {
	_, err := r.Exec(ctx, "release_cooldown", "cooldown", func(ctx context.Context) (sql.Result, error) {
		return r.releaseCooldownQuery(userID, guildID, stamp).Exec(ctx)
	})
	return err
}

// releaseCooldownQuery leaves a slot alone once a newer creation replaced it.
func (r *RoomRepository) releaseCooldownQuery(userID, guildID snowflake.ID, stamp time.Time) *bun.DeleteQuery {
	return r.db.NewDelete().
		Model((*models.Cooldown)(nil)).
		Where("user_id = ? AND guild_id = ?", int64(userID), int64(guildID)).
		Where("last_created_at = ?", stamp)
}

func (r *RoomRepository) PurgeCooldowns(ctx context.Context, before time.Time) (int64, error) {
	return r.Exec(ctx, "purge_cooldowns", "cooldown", func(ctx context.Context) (sql.Result, error) {
		return r.db.NewDelete().
			Model((*models.Cooldown)(nil)).
			Where("last_created_at < ?", before).
			Exec(ctx)
	})
}

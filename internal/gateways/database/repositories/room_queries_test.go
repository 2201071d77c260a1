package repositories

import (
	"database/sql"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// newOfflineRepo formats queries with the postgres dialect without dialing.
func newOfflineRepo(t *testing.T) *RoomRepository {
	t.Helper()
	db := bun.NewDB(sql.OpenDB(pgdriver.NewConnector()), pgdialect.New())
	t.Cleanup(func() { _ = db.Close() })
	return NewRoomRepository(db)
}

var queryTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func TestAcquireCooldownQuery(t *testing.T) {
	q := newOfflineRepo(t).acquireCooldownQuery(10, 20, queryTime, 15*time.Second).String()

	assert.Contains(t, q, `INSERT INTO "cooldowns"`)
	assert.Contains(t, q, "ON CONFLICT (user_id, guild_id) DO UPDATE")
	assert.Contains(t, q, "SET last_created_at = EXCLUDED.last_created_at")
	assert.Contains(t, q, `WHERE`)
	assert.Contains(t, q, `"cd".last_created_at <= '2024-06-01 11:59:45+00:00'`)
}

func TestReleaseCooldownQuery(t *testing.T) {
	q := newOfflineRepo(t).releaseCooldownQuery(10, 20, queryTime).String()

	assert.Contains(t, q, `DELETE FROM "cooldowns"`)
	assert.Contains(t, q, "user_id = 10 AND guild_id = 20")
	assert.Contains(t, q, "last_created_at = '2024-06-01 12:00:00+00:00'")
}

func TestSwapOwnerQuery(t *testing.T) {
	repo := newOfflineRepo(t)
	owner, next := snowflake.ID(7), snowflake.ID(8)

	tests := []struct {
		name     string
		expected *snowflake.ID
		next     *snowflake.ID
		want     []string
		notWant  string
	}{
		{
			name:     "claim",
			expected: nil,
			next:     &next,
			want:     []string{"SET owner_id = 8", "room_id = 500", "(is_active)", "owner_id IS NULL"},
			notWant:  "owner_id = 7",
		},
		{
			name:     "transfer",
			expected: &owner,
			next:     &next,
			want:     []string{"SET owner_id = 8", "room_id = 500", "(is_active)", "owner_id = 7"},
			notWant:  "IS NULL",
		},
		{
			name:     "release",
			expected: &owner,
			next:     nil,
			want:     []string{"SET owner_id = NULL", "owner_id = 7"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := repo.swapOwnerQuery(500, tt.expected, tt.next).String()
			assert.Contains(t, q, `UPDATE "rooms"`)
			for _, want := range tt.want {
				assert.Contains(t, q, want)
			}
			if tt.notWant != "" {
				assert.NotContains(t, q, tt.notWant)
			}
		})
	}
}

func TestMarkEmptyQuery(t *testing.T) {
	q := newOfflineRepo(t).markEmptyQuery(500, queryTime).String()

	assert.Contains(t, q, "SET empty_since = '2024-06-01 12:00:00+00:00'")
	assert.Contains(t, q, "room_id = 500")
	assert.Contains(t, q, "empty_since IS NULL")
}

func TestDeactivateQuery(t *testing.T) {
	q := newOfflineRepo(t).deactivateQuery(500, queryTime).String()

	assert.Contains(t, q, "SET is_active = false")
	assert.Contains(t, q, "room_id = 500")
	assert.Contains(t, q, "(is_active)")
	assert.Contains(t, q, "empty_since = '2024-06-01 12:00:00+00:00'")
}

func TestRoomViewsQuery(t *testing.T) {
	repo := newOfflineRepo(t)

	all := repo.roomViewsQuery(nil).String()
	assert.Contains(t, all, "JOIN room_settings AS s ON s.room_id = r.room_id")
	assert.Contains(t, all, "r.is_active")
	assert.NotContains(t, all, "r.guild_id =")
	assert.Contains(t, all, "ORDER BY r.created_at ASC")

	guild := snowflake.ID(42)
	one := repo.roomViewsQuery(&guild).String()
	assert.Contains(t, one, "r.guild_id = 42")
}

package utils

import (
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/ellavondegurechaff/gohye-voice/internal/domain/rooms"
	"github.com/stretchr/testify/assert"
)

func TestPaging(t *testing.T) {
	assert.Equal(t, 0, PageCount(0, 8))
	assert.Equal(t, 1, PageCount(8, 8))
	assert.Equal(t, 2, PageCount(9, 8))

	start, end := PageBounds(1, 8, 9)
	assert.Equal(t, 8, start)
	assert.Equal(t, 9, end)

	start, end = PageBounds(5, 8, 9)
	assert.Equal(t, 9, start)
	assert.Equal(t, 9, end)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{-time.Second, "0s"},
		{42 * time.Second, "42s"},
		{3*time.Minute + 10*time.Second, "3m 10s"},
		{time.Hour + 5*time.Minute + 59*time.Second, "1h 5m"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.in), tt.in.String())
	}
}

func TestFormatRoomLine(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	owner := snowflake.ID(7)
	v := rooms.RoomView{
		RoomID:    42,
		Name:      "alice's room",
		UserLimit: 5,
		Locked:    true,
		OwnerID:   &owner,
		CreatedAt: now.Add(-90 * time.Second),
	}
	assert.Equal(t, "<#42> `alice's room` 🔒 • owner <@7> • limit 5 • up 1m 30s", FormatRoomLine(v, now))

	v.OwnerID, v.Locked, v.UserLimit = nil, false, 0
	assert.Equal(t, "<#42> `alice's room` • unclaimed • up 1m 30s", FormatRoomLine(v, now))
}

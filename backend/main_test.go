package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/disgoorg/snowflake/v2"
	"github.com/ellavondegurechaff/gohye-voice/backend/handlers"
	"github.com/ellavondegurechaff/gohye-voice/internal/domain/rooms"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRooms struct {
	views []rooms.RoomView
	err   error
}

func (f *fakeRooms) ListRoomViews(_ context.Context, guildID *snowflake.ID) ([]rooms.RoomView, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []rooms.RoomView
	for _, v := range f.views {
		if guildID == nil || v.GuildID == *guildID {
			out = append(out, v)
		}
	}
	return out, nil
}

type envelope struct {
	Success bool `json:"success"`
	Data    struct {
		Count int              `json:"count"`
		Rooms []rooms.RoomView `json:"rooms"`
	} `json:"data"`
	Error *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func do(t *testing.T, app *fiber.App, path, token string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var env envelope
	require.NoError(t, json.Unmarshal(body, &env), string(body))
	return resp.StatusCode, env
}

func testApp(store *fakeRooms) *fiber.App {
	return newApp(&handlers.API{Rooms: store, Version: "test"}, "secret")
}

func TestListRooms(t *testing.T) {
	app := testApp(&fakeRooms{views: []rooms.RoomView{
		{RoomID: 1, GuildID: 10, Name: "a"},
		{RoomID: 2, GuildID: 20, Name: "b"},
	}})

	status, env := do(t, app, "/api/rooms", "secret")
	assert.Equal(t, fiber.StatusOK, status)
	assert.True(t, env.Success)
	assert.Equal(t, 2, env.Data.Count)

	status, env = do(t, app, "/api/guilds/20/rooms", "secret")
	assert.Equal(t, fiber.StatusOK, status)
	require.Len(t, env.Data.Rooms, 1)
	assert.Equal(t, "b", env.Data.Rooms[0].Name)
}

func TestListRooms_EmptyIsArray(t *testing.T) {
	status, env := do(t, testApp(&fakeRooms{}), "/api/guilds/5/rooms", "secret")
	assert.Equal(t, fiber.StatusOK, status)
	assert.NotNil(t, env.Data.Rooms)
	assert.Zero(t, env.Data.Count)
}

func TestAPIRequiresToken(t *testing.T) {
	app := testApp(&fakeRooms{})

	status, env := do(t, app, "/api/rooms", "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)

	status, _ = do(t, app, "/api/rooms", "wrong")
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestAPIWithoutConfiguredToken(t *testing.T) {
	app := newApp(&handlers.API{Rooms: &fakeRooms{}, Version: "test"}, "")

	status, env := do(t, app, "/api/rooms", "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)

	status, _ = do(t, app, "/api/guilds/5/rooms", "anything")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = do(t, app, "/health", "")
	assert.Equal(t, fiber.StatusOK, status)
}

func TestInvalidGuildID(t *testing.T) {
	status, env := do(t, testApp(&fakeRooms{}), "/api/guilds/abc/rooms", "secret")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "BAD_REQUEST", env.Error.Code)
}

func TestHealth(t *testing.T) {
	status, _ := do(t, testApp(&fakeRooms{}), "/health", "")
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = do(t, testApp(&fakeRooms{err: errors.New("down")}), "/health", "")
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
}

func TestStoreFailure(t *testing.T) {
	status, env := do(t, testApp(&fakeRooms{err: errors.New("down")}), "/api/rooms", "secret")
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, "INTERNAL_SERVER_ERROR", env.Error.Code)
}

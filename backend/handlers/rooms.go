package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/ellavondegurechaff/gohye-voice/backend/models"
	"github.com/ellavondegurechaff/gohye-voice/backend/utils"
	"github.com/ellavondegurechaff/gohye-voice/internal/domain/rooms"
	"github.com/gofiber/fiber/v2"
)

const requestTimeout = 5 * time.Second

// RoomReader is the read side of the room store the API exposes.
type RoomReader interface {
	ListRoomViews(ctx context.Context, guildID *snowflake.ID) ([]rooms.RoomView, error)
}

type API struct {
	Rooms   RoomReader
	Version string
	Commit  string
}

func (a *API) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()

	status := models.HealthStatus{Status: "healthy", Version: a.Version, Commit: a.Commit, Store: "ok"}
	if _, err := a.Rooms.ListRoomViews(ctx, nil); err != nil {
		slog.Warn("Health check store probe failed",
			slog.String("type", "db"),
			slog.Any("error", err))
		status.Status, status.Store = "degraded", "unreachable"
		resp := models.NewSuccessResponse(status, "Store unreachable")
		resp.Success = false
		return utils.SendJSON(c, fiber.StatusServiceUnavailable, resp)
	}
	return utils.SendSuccess(c, status, "Health check successful")
}

func (a *API) ListRooms(c *fiber.Ctx) error {
	return a.listRooms(c, nil)
}

func (a *API) ListGuildRooms(c *fiber.Ctx) error {
	guildID, err := snowflake.Parse(c.Params("id"))
	if err != nil {
		return utils.SendBadRequest(c, "Invalid guild id", map[string]string{"id": c.Params("id")})
	}
	return a.listRooms(c, &guildID)
}

func (a *API) listRooms(c *fiber.Ctx, guildID *snowflake.ID) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()

	views, err := a.Rooms.ListRoomViews(ctx, guildID)
	if err != nil {
		slog.Error("Failed to list rooms",
			slog.String("type", "db"),
			slog.Any("error", err))
		return utils.SendInternalServerError(c, "Failed to list rooms")
	}
	if views == nil {
		views = []rooms.RoomView{}
	}
	return utils.SendSuccess(c, models.RoomList{Count: len(views), Rooms: views}, "")
}

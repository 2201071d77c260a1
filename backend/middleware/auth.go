package middleware

import (
	"crypto/subtle"
	"log/slog"
	"strings"

	"github.com/ellavondegurechaff/gohye-voice/backend/utils"
	"github.com/gofiber/fiber/v2"
)

// BearerAuth requires "Authorization: Bearer <token>". An empty token
// rejects every request.
func BearerAuth(token string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		got, ok := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
		if token == "" || !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			slog.Warn("Rejected API request",
				slog.String("type", "admin"),
				slog.String("path", c.Path()),
				slog.String("ip", utils.GetIPAddress(c)))
			return utils.SendUnauthorized(c, "Missing or invalid token")
		}
		return c.Next()
	}
}

package middleware

import (
	"log/slog"
	"time"

	"github.com/ellavondegurechaff/gohye-voice/backend/utils"
	"github.com/gofiber/fiber/v2"
)

// LoggingMiddleware logs every request with its status and latency.
func LoggingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}

		attrs := []any{
			slog.String("type", "sys"),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Duration("took", time.Since(start)),
			slog.String("ip", utils.GetIPAddress(c)),
		}
		msg := "HTTP request processed"
		if err != nil {
			msg = "HTTP request failed"
			attrs = append(attrs, slog.Any("error", err))
		}
		slog.Log(c.UserContext(), level, msg, attrs...)
		return err
	}
}

package middleware

import (
	"errors"

	"github.com/ellavondegurechaff/gohye-voice/backend/utils"
	"github.com/gofiber/fiber/v2"
)

// CustomErrorHandler renders every unhandled error as a JSON envelope.
func CustomErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}
	return utils.SendError(c, code, "HTTP_ERROR", message, nil)
}

func SecurityHeaders() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "no-referrer")
		c.Set("Cache-Control", "no-store")
		return c.Next()
	}
}

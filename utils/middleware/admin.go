package middleware

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

// AdminAuditLog records an admin action once the handler has run.
// Failed attempts are logged too, with their status code.
func AdminAuditLog(logger *slog.Logger, action, resource string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Execute the actual handler
		err := c.Next()

		var adminID string
		if id := GetIdentity(c); id != nil {
			adminID = id.UserID
		}

		status := c.Response().StatusCode()
		level := slog.LevelInfo
		if status >= fiber.StatusBadRequest {
			level = slog.LevelWarn
		}

		logger.Log(c.UserContext(), level, "admin action",
			"admin_id", adminID,
			"action", action,
			"resource", resource,
			"resource_id", c.Params("id"),
			"status", status,
			"ip", c.IP(),
			"user_agent", c.Get(fiber.HeaderUserAgent),
			"request_id", c.Locals("requestid"),
		)
		return err
	}
}

package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const staffIDKey = "staff_id"

// StaffContextMiddleware records which volunteer desk issued an admin call.
// X-Staff-ID is informational and only used in audit logs.
func StaffContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		staffID := strings.TrimSpace(c.Get("X-Staff-ID"))
		if staffID == "" {
			staffID = "unknown"
		}
		c.Locals(staffIDKey, staffID)
		return c.Next()
	}
}

// StaffID returns the id stored by StaffContextMiddleware.
func StaffID(c *fiber.Ctx) string {
	if id, ok := c.Locals(staffIDKey).(string); ok {
		return id
	}
	return "unknown"
}

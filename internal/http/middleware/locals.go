package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/MailPulse/internal/app/model"
)

const (
	requestIDKey = "request_id"
	callerKey    = "caller"
)

// RequestIDFrom returns the id assigned by RequestID, or "".
func RequestIDFrom(c *fiber.Ctx) string {
	rid, _ := c.Locals(requestIDKey).(string)
	return rid
}

// CallerFrom returns the identity stored by Authenticate.
func CallerFrom(c *fiber.Ctx) (model.Caller, bool) {
	caller, ok := c.Locals(callerKey).(model.Caller)
	return caller, ok
}

func errorBody(message string) fiber.Map {
	return fiber.Map{"success": false, "message": message}
}

package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/MailPulse/internal/app/model"
	"github.com/sifan077/MailPulse/internal/http/util"
	"go.uber.org/zap"
)

// Authenticate resolves the Bearer token into a model.Caller. With tokens
// nil every request runs as an anonymous admin (single-tenant mode).
func Authenticate(tokens *util.IdentityTokens, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if tokens == nil {
			c.Locals(callerKey, model.Caller{IsAdmin: true})
			return c.Next()
		}

		header := c.Get(fiber.HeaderAuthorization)
		scheme, raw, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(errorBody("authentication required"))
		}

		caller, err := tokens.Parse(strings.TrimSpace(raw))
		if err != nil {
			logger.Debug("rejected access token", zap.String("request_id", RequestIDFrom(c)), zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(errorBody("invalid or expired token"))
		}

		c.Locals(callerKey, caller)
		return c.Next()
	}
}

// RequireAdmin rejects callers without the admin flag.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, ok := CallerFrom(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(errorBody("authentication required"))
		}
		if !caller.IsAdmin {
			return c.Status(fiber.StatusForbidden).JSON(errorBody("admin privileges required"))
		}
		return c.Next()
	}
}

package middleware

import (
	"context"

	"feedquire/services"

	"github.com/gofiber/fiber/v2"
)

// EntitlementSource resolves a user's capabilities.
type EntitlementSource interface {
	Resolve(ctx context.Context, userID string) services.Entitlements
}

// RequireEntitlement resolves the caller's entitlements on every request and
// rejects the request unless feature is granted. Must run after SessionAuth.
func RequireEntitlement(src EntitlementSource, feature services.Feature) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := UserID(c)
		if userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "authentication required",
			})
		}

		ent, ok := c.Locals("entitlements").(services.Entitlements)
		if !ok {
			ent = src.Resolve(c.UserContext(), userID)
			c.Locals("entitlements", ent)
		}
		if !ent.Has(feature) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error":   "forbidden",
				"feature": string(feature),
			})
		}
		return c.Next()
	}
}

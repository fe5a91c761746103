// middleware/gateway.go
package middleware

import (
	"crypto/subtle"
	"strings"

	"feedquire/logger"

	"github.com/gofiber/fiber/v2"
)

// ServiceTokenAuth guards operational endpoints with a shared bearer token.
// With no token configured the routes behave as if they did not exist.
func ServiceTokenAuth(expectedToken string, log *logger.Logger) fiber.Handler {
	expected := []byte(expectedToken)
	return func(c *fiber.Ctx) error {
		if len(expected) == 0 {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
		}

		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			log.Warn("🚫 [SERVICE_AUTH] missing Authorization header", "path", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "service token missing",
			})
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if subtle.ConstantTimeCompare([]byte(token), expected) != 1 {
			log.Warn("❌ [SERVICE_AUTH] invalid token", "path", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid service token",
			})
		}
		return c.Next()
	}
}

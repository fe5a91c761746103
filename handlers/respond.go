// handlers/respond.go
package handlers

import (
	"errors"

	"feedquire/logger"
	"feedquire/services"

	"github.com/gofiber/fiber/v2"
)

// respondError maps typed service errors to their status; anything else is a 500.
func respondError(c *fiber.Ctx, log *logger.Logger, err error) error {
	var apiErr *services.Error
	if errors.As(err, &apiErr) {
		return c.Status(apiErr.Status).JSON(fiber.Map{
			"error": apiErr.Error(),
			"code":  apiErr.Code,
		})
	}
	log.Error("❌ request failed", "method", c.Method(), "path", c.Path(), "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "internal server error",
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

func paged(items interface{}, total int64, page, size int) fiber.Map {
	return fiber.Map{"items": items, "total": total, "page": page, "size": size}
}

// handlers/public_routes.go
package handlers

import (
	"time"

	"feedquire/logger"
	"feedquire/middleware"
	"feedquire/services"

	"github.com/gofiber/fiber/v2"
)

// SetupPublicRoutes registers the unauthenticated surface. Must run before the session group.
func SetupPublicRoutes(app *fiber.App, payments *services.PaymentService, log *logger.Logger) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "time": time.Now().UTC()})
	})

	// Paystack retries anything but 2xx, so every outcome is answered explicitly.
	app.All("/webhooks/paystack", func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodPost {
			return c.Status(fiber.StatusMethodNotAllowed).JSON(fiber.Map{"error": "method not allowed"})
		}
		body := append([]byte(nil), c.Body()...)
		status, msg := payments.HandleWebhook(c.UserContext(), body, c.Get("x-paystack-signature"))
		log.Debug("paystack webhook handled", "status", status, "result", msg)
		if status >= fiber.StatusBadRequest {
			return c.Status(status).JSON(fiber.Map{"error": msg})
		}
		return c.Status(status).JSON(fiber.Map{"status": msg})
	})
}

// SetupInternalRoutes exposes manual job triggers behind the service token.
func SetupInternalRoutes(app *fiber.App, token string, profiles *services.ProfileService, payments *services.PaymentService, unverifiedTTL time.Duration, log *logger.Logger) {
	internal := app.Group("/internal", middleware.ServiceTokenAuth(token, log))

	internal.Post("/sweep", func(c *fiber.Ctx) error {
		n, err := profiles.SweepUnverified(c.UserContext(), unverifiedTTL)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(fiber.Map{"deleted": n})
	})

	internal.Post("/reconcile", func(c *fiber.Ctx) error {
		stats, err := payments.ReconcilePending(c.UserContext(), time.Minute, 24*time.Hour)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(stats)
	})
}

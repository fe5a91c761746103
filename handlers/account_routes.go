// handlers/account_routes.go
package handlers

import (
	"feedquire/logger"
	"feedquire/middleware"
	"feedquire/services"

	"github.com/gofiber/fiber/v2"
)

// SetupAccountRoutes registers the caller's own profile, payments and submission history.
func SetupAccountRoutes(secured fiber.Router, profiles *services.ProfileService, resolver *services.EntitlementResolver,
	payments *services.PaymentService, submissions *services.SubmissionService, log *logger.Logger) {

	secured.Get("/me", func(c *fiber.Ctx) error {
		profile, err := profiles.EnsureProfile(c.UserContext(), services.Identity{
			UserID: middleware.UserID(c),
			Email:  middleware.Email(c),
		})
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(fiber.Map{
			"profile":      profile,
			"entitlements": services.EntitlementsFor(profile),
		})
	})

	secured.Patch("/me", func(c *fiber.Ctx) error {
		var in services.ProfileUpdate
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "invalid request body")
		}
		profile, err := profiles.UpdateProfile(c.UserContext(), middleware.UserID(c), in)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(profile)
	})

	// Fresh server-side view; the UI must not derive access on its own.
	secured.Get("/me/entitlements", func(c *fiber.Ctx) error {
		return c.JSON(resolver.Resolve(c.UserContext(), middleware.UserID(c)))
	})

	secured.Get("/me/earnings", func(c *fiber.Ctx) error {
		summary, err := profiles.Earnings(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(summary)
	})

	secured.Get("/me/payments", func(c *fiber.Ctx) error {
		list, err := payments.MyPayments(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(list)
	})

	secured.Post("/payments/initialize", func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)
		if _, err := profiles.EnsureProfile(c.UserContext(), services.Identity{UserID: userID, Email: middleware.Email(c)}); err != nil {
			return respondError(c, log, err)
		}
		checkout, err := payments.InitializeCheckout(c.UserContext(), userID)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.Status(fiber.StatusCreated).JSON(checkout)
	})

	secured.Post("/payments/verify", func(c *fiber.Ctx) error {
		var in struct {
			Reference string `json:"reference"`
		}
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "invalid request body")
		}
		payment, err := payments.VerifyForUser(c.UserContext(), middleware.UserID(c), in.Reference)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(fiber.Map{
			"reference": payment.Reference,
			"status":    payment.Status,
			"paid_at":   payment.PaidAt,
		})
	})

	secured.Get("/submissions", func(c *fiber.Ctx) error {
		subs, err := submissions.MySubmissions(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(subs)
	})
}

// handlers/control_routes.go
package handlers

import (
	"feedquire/logger"
	"feedquire/middleware"
	"feedquire/models"
	"feedquire/services"

	"github.com/gofiber/fiber/v2"
)

// ControlServices groups what the operator console needs.
type ControlServices struct {
	Resolver  *services.EntitlementResolver
	Profiles  *services.ProfileService
	Platforms *services.PlatformService
	Questions *services.QuestionService
	Review    *services.ReviewService
	Tickets   *services.TicketService
}

// SetupControlRoutes registers the operator console. Every route requires the admin entitlement.
func SetupControlRoutes(secured fiber.Router, svc ControlServices, log *logger.Logger) {
	control := secured.Group("/control", middleware.RequireEntitlement(svc.Resolver, services.FeatureAdmin))

	// 🧩 Platforms
	control.Get("/platforms", func(c *fiber.Ctx) error {
		list, err := svc.Platforms.ListPlatforms(c.UserContext(), models.PlatformStatus(c.Query("status")))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(list)
	})
	control.Post("/platforms", func(c *fiber.Ctx) error {
		var in services.PlatformInput
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "invalid request body")
		}
		p, err := svc.Platforms.CreatePlatform(c.UserContext(), in)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.Status(fiber.StatusCreated).JSON(p)
	})
	control.Get("/platforms/:id", func(c *fiber.Ctx) error {
		p, err := svc.Platforms.GetPlatform(c.UserContext(), c.Params("id"))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(p)
	})
	control.Patch("/platforms/:id", func(c *fiber.Ctx) error {
		var in services.PlatformInput
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "invalid request body")
		}
		p, err := svc.Platforms.UpdatePlatform(c.UserContext(), c.Params("id"), in)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(p)
	})
	control.Delete("/platforms/:id", func(c *fiber.Ctx) error {
		if err := svc.Platforms.DeletePlatform(c.UserContext(), c.Params("id")); err != nil {
			return respondError(c, log, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
	control.Post("/platforms/:id/logo", func(c *fiber.Ctx) error {
		fh, err := c.FormFile("logo")
		if err != nil {
			return badRequest(c, "logo file is required")
		}
		p, err := svc.Platforms.SetLogo(c.UserContext(), c.Params("id"), fh)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(p)
	})

	// ❓ Questions
	control.Get("/questions", func(c *fiber.Ctx) error {
		qs, err := svc.Questions.QuestionsFor(c.UserContext(), c.Query("platform_id"))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(services.GroupBySection(qs))
	})
	control.Post("/questions", func(c *fiber.Ctx) error {
		var in services.QuestionInput
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "invalid request body")
		}
		q, err := svc.Questions.CreateQuestion(c.UserContext(), in)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.Status(fiber.StatusCreated).JSON(q)
	})
	control.Patch("/questions/:id", func(c *fiber.Ctx) error {
		var in services.QuestionInput
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "invalid request body")
		}
		q, err := svc.Questions.UpdateQuestion(c.UserContext(), c.Params("id"), in)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(q)
	})
	control.Delete("/questions/:id", func(c *fiber.Ctx) error {
		if err := svc.Questions.DeleteQuestion(c.UserContext(), c.Params("id")); err != nil {
			return respondError(c, log, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	// 📝 Submissions
	control.Get("/submissions", func(c *fiber.Ctx) error {
		f := services.SubmissionFilter{
			Status:     models.SubmissionStatus(c.Query("status")),
			PlatformID: c.Query("platform_id"),
			UserID:     c.Query("user_id"),
			Page:       c.QueryInt("page", 1),
			Size:       c.QueryInt("size", 50),
		}
		if f.Status != "" && !f.Status.Valid() {
			return badRequest(c, "unknown submission status")
		}
		subs, total, err := svc.Review.ListSubmissions(c.UserContext(), f)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(paged(subs, total, f.Page, f.Size))
	})
	control.Post("/submissions/:id/approve", func(c *fiber.Ctx) error {
		var in struct {
			TestScore *int `json:"test_score"`
		}
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&in); err != nil {
				return badRequest(c, "invalid request body")
			}
		}
		sub, err := svc.Review.Approve(c.UserContext(), c.Params("id"), middleware.UserID(c), in.TestScore)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(sub)
	})
	control.Post("/submissions/:id/reject", func(c *fiber.Ctx) error {
		sub, err := svc.Review.Reject(c.UserContext(), c.Params("id"), middleware.UserID(c))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(sub)
	})
	control.Post("/submissions/:id/mark-paid", func(c *fiber.Ctx) error {
		sub, err := svc.Review.MarkPaid(c.UserContext(), c.Params("id"), middleware.UserID(c))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(sub)
	})
	control.Post("/submissions/bulk", func(c *fiber.Ctx) error {
		var in struct {
			Action services.BulkAction `json:"action"`
			IDs    []string            `json:"ids"`
		}
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "invalid request body")
		}
		results, err := svc.Review.Bulk(c.UserContext(), in.Action, in.IDs, middleware.UserID(c))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(fiber.Map{"results": results})
	})
	control.Get("/payouts", func(c *fiber.Ctx) error {
		lines, err := svc.Review.PayoutReport(c.UserContext())
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(lines)
	})

	// 👤 Profiles
	control.Get("/profiles", func(c *fiber.Ctx) error {
		f := services.ProfileFilter{
			Status: models.AccountStatus(c.Query("status")),
			Search: c.Query("q"),
			Page:   c.QueryInt("page", 1),
			Size:   c.QueryInt("size", 50),
		}
		profiles, total, err := svc.Profiles.ListProfiles(c.UserContext(), f)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(paged(profiles, total, f.Page, f.Size))
	})
	control.Patch("/profiles/:id/status", func(c *fiber.Ctx) error {
		var in struct {
			Status string `json:"status"`
		}
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "invalid request body")
		}
		next, err := models.ParseAccountStatus(in.Status)
		if err != nil {
			return badRequest(c, err.Error())
		}
		p, err := svc.Profiles.SetAccountStatus(c.UserContext(), c.Params("id"), next)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(p)
	})
	control.Delete("/profiles/:id", func(c *fiber.Ctx) error {
		if c.Params("id") == middleware.UserID(c) {
			return badRequest(c, "operators cannot delete themselves")
		}
		if err := svc.Profiles.DeleteProfile(c.UserContext(), c.Params("id")); err != nil {
			return respondError(c, log, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	// 🎫 Tickets
	control.Get("/tickets", func(c *fiber.Ctx) error {
		list, err := svc.Tickets.ListTickets(c.UserContext(), models.TicketStatus(c.Query("status")))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(list)
	})
	control.Post("/tickets/:id/reply", func(c *fiber.Ctx) error {
		var in struct {
			Reply string `json:"reply"`
		}
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "invalid request body")
		}
		t, err := svc.Tickets.Reply(c.UserContext(), c.Params("id"), in.Reply)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(t)
	})
	control.Post("/tickets/:id/resolve", func(c *fiber.Ctx) error {
		t, err := svc.Tickets.Resolve(c.UserContext(), c.Params("id"))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(t)
	})
}

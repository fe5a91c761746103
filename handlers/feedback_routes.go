// handlers/feedback_routes.go
package handlers

import (
	"feedquire/logger"
	"feedquire/middleware"
	"feedquire/services"

	"github.com/gofiber/fiber/v2"
)

// SetupFeedbackRoutes registers the assessment and task flows, each behind its entitlement.
func SetupFeedbackRoutes(secured fiber.Router, resolver *services.EntitlementResolver, platforms *services.PlatformService,
	questions *services.QuestionService, submissions *services.SubmissionService, log *logger.Logger) {

	assessment := secured.Group("/assessment", middleware.RequireEntitlement(resolver, services.FeatureAssessment))

	assessment.Get("/", func(c *fiber.Ctx) error {
		platform, err := platforms.AssessmentPlatform(c.UserContext())
		if err != nil {
			return respondError(c, log, err)
		}
		qs, err := questions.QuestionsFor(c.UserContext(), platform.ID)
		if err != nil {
			return respondError(c, log, err)
		}
		mine, err := submissions.SubmissionFor(c.UserContext(), middleware.UserID(c), platform.ID)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(fiber.Map{
			"platform":      platform,
			"sections":      services.GroupBySection(qs),
			"my_submission": mine,
		})
	})

	assessment.Post("/submit", func(c *fiber.Ctx) error {
		var in services.SubmissionInput
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "invalid request body")
		}
		sub, err := submissions.SubmitAssessment(c.UserContext(), middleware.UserID(c), in)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.Status(fiber.StatusCreated).JSON(sub)
	})

	tasks := secured.Group("/tasks", middleware.RequireEntitlement(resolver, services.FeatureTasks))

	tasks.Get("/", func(c *fiber.Ctx) error {
		list, err := platforms.ListTaskPlatforms(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(list)
	})

	tasks.Get("/:id/questions", func(c *fiber.Ctx) error {
		platform, err := platforms.GetPlatform(c.UserContext(), c.Params("id"))
		if err != nil {
			return respondError(c, log, err)
		}
		if platform.IsAssessment {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "task not found"})
		}
		qs, err := questions.QuestionsFor(c.UserContext(), platform.ID)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(fiber.Map{
			"platform": platform,
			"sections": services.GroupBySection(qs),
		})
	})

	tasks.Post("/:id/submit", func(c *fiber.Ctx) error {
		var in services.SubmissionInput
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "invalid request body")
		}
		sub, err := submissions.SubmitTask(c.UserContext(), middleware.UserID(c), c.Params("id"), in)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.Status(fiber.StatusCreated).JSON(sub)
	})
}

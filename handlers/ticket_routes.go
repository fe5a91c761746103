// handlers/ticket_routes.go
package handlers

import (
	"mime/multipart"

	"feedquire/logger"
	"feedquire/middleware"
	"feedquire/services"

	"github.com/gofiber/fiber/v2"
)

func SetupTicketRoutes(secured fiber.Router, tickets *services.TicketService, log *logger.Logger) {
	// Accepts JSON, or multipart with an optional "attachment" file.
	secured.Post("/tickets", func(c *fiber.Ctx) error {
		var in services.TicketInput
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "invalid request body")
		}
		var attachment *multipart.FileHeader
		if fh, err := c.FormFile("attachment"); err == nil {
			attachment = fh
		}
		t, err := tickets.CreateTicket(c.UserContext(), middleware.UserID(c), in, attachment)
		if err != nil {
			return respondError(c, log, err)
		}
		return c.Status(fiber.StatusCreated).JSON(t)
	})

	secured.Get("/tickets", func(c *fiber.Ctx) error {
		list, err := tickets.MyTickets(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, log, err)
		}
		return c.JSON(list)
	})
}

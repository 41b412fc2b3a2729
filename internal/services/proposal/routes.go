package proposal

import (
	"github.com/gofiber/fiber/v3"
)

// SetupRoutes registers the proposal routes
func (s *ProposalService) SetupRoutes(app *fiber.App, authMiddleware fiber.Handler) {
	api := app.Group("/api")

	protected := api.Group("/")
	protected.Use(authMiddleware)

	protected.Post("/proposals", s.Propose)
	protected.Get("/proposals", s.ListMyProposals)
	protected.Post("/proposals/:id/respond", s.Respond)
	protected.Post("/proposals/:id/cancel", s.Cancel)
}

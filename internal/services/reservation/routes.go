package reservation

import (
	"github.com/gofiber/fiber/v3"
)

// SetupRoutes registers the reservation routes
func (s *ReservationService) SetupRoutes(app *fiber.App, authMiddleware fiber.Handler) {
	api := app.Group("/api")

	protected := api.Group("/")
	protected.Use(authMiddleware)

	protected.Post("/items/:id/likes", s.Like)
	protected.Delete("/items/:id/likes", s.Unlike)
	protected.Get("/likes", s.ListMyLikes)
}

package item

import (
	"github.com/gofiber/fiber/v3"
)

// SetupRoutes registers the listing routes
func (s *ItemService) SetupRoutes(app *fiber.App, authMiddleware fiber.Handler) {
	api := app.Group("/api")

	protected := api.Group("/")
	protected.Use(authMiddleware)

	protected.Post("/items", s.CreateItem)
	protected.Get("/items/my", s.GetMyItems)
	protected.Get("/items/:id", s.GetItem)
	protected.Patch("/items/:id", s.UpdateItem)
	protected.Delete("/items/:id", s.DeleteItem)
}

package feed

import (
	"github.com/gofiber/fiber/v3"
)

// SetupRoutes registers the public feed route. It must be registered before
// the protected item routes so the feed stays reachable without a token.
func (s *FeedService) SetupRoutes(app *fiber.App) {
	app.Get("/api/items", s.ListItems)
}

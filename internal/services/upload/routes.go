package upload

import (
	"github.com/gofiber/fiber/v3"
)

// SetupRoutes registers the upload routes
func (s *UploadService) SetupRoutes(app *fiber.App, authMiddleware fiber.Handler) {
	api := app.Group("/api")

	protected := api.Group("/")
	protected.Use(authMiddleware)

	protected.Get("/upload/params", s.GenerateUploadParams)
}

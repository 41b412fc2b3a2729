package auth

import (
	"github.com/gofiber/fiber/v3"
)

// SetupRoutes registers the auth routes
func (s *AuthService) SetupRoutes(app *fiber.App) {
	app.Post("/api/auth/telegram", s.TelegramAuthHandler)
}

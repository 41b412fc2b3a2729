package auth

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	initdata "github.com/telegram-mini-apps/init-data-golang"

	"github.com/swapquest/swapquest-api/internal/config"
	"github.com/swapquest/swapquest-api/internal/utils"
)

// userNamespace makes Telegram numeric ids into stable platform UUIDs
var userNamespace = uuid.MustParse("8e7f1cde-63f1-4e2a-9a6d-4b6c2f0d9b11")

// AuthService exchanges verified Telegram init data for API tokens
type AuthService struct {
	cfg        *config.Config
	jwtService *utils.JWTService
}

// NewAuthService creates a new AuthService
func NewAuthService(cfg *config.Config) *AuthService {
	return &AuthService{
		cfg:        cfg,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
	}
}

// GetJWTService exposes the token service for middleware wiring
func (s *AuthService) GetJWTService() *utils.JWTService {
	return s.jwtService
}

// UserUUID derives the stable platform UUID for a Telegram user id
func UserUUID(telegramID int64) uuid.UUID {
	return uuid.NewSHA1(userNamespace, []byte(fmt.Sprintf("tg:%d", telegramID)))
}

// TelegramAuthHandler validates initData, creates a JWT, and returns it
func (s *AuthService) TelegramAuthHandler(c fiber.Ctx) error {
	var payload struct {
		InitData string `json:"init_data"`
	}

	if err := c.Bind().Body(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	}

	expiration := 24 * time.Hour
	if err := initdata.Validate(payload.InitData, s.cfg.TelegramBotToken, expiration); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid Telegram data"})
	}

	data, err := initdata.Parse(payload.InitData)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Failed to parse initData"})
	}

	userID := UserUUID(data.User.ID)

	jwtToken, err := s.jwtService.GenerateToken(userID.String())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate JWT"})
	}

	return c.JSON(fiber.Map{
		"token": jwtToken,
		"user": fiber.Map{
			"id":         userID,
			"first_name": data.User.FirstName,
			"last_name":  data.User.LastName,
			"username":   data.User.Username,
			"photo_url":  data.User.PhotoURL,
		},
	})
}

package main

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/swapquest/swapquest-api/internal/cache"
	"github.com/swapquest/swapquest-api/internal/config"
	"github.com/swapquest/swapquest-api/internal/db"
	"github.com/swapquest/swapquest-api/internal/middleware"
	"github.com/swapquest/swapquest-api/internal/profile"
	"github.com/swapquest/swapquest-api/internal/services/auth"
	"github.com/swapquest/swapquest-api/internal/services/feed"
	"github.com/swapquest/swapquest-api/internal/services/item"
	"github.com/swapquest/swapquest-api/internal/services/proposal"
	"github.com/swapquest/swapquest-api/internal/services/reservation"
	"github.com/swapquest/swapquest-api/internal/services/upload"
	"github.com/swapquest/swapquest-api/internal/storage/postgres"
)

func main() {
	cfg := config.LoadConfig()

	if err := db.InitDB(cfg); err != nil {
		log.Fatalf("❌ Failed to initialize database: %v", err)
	}
	defer db.CloseDB()

	cache.InitRedis(cfg.RedisAddr)

	store := postgres.New(db.Pool)
	profiles := profile.NewResolver(store, cache.GetClient())

	app := fiber.New(fiber.Config{
		AppName:      "SwapQuest API",
		ErrorHandler: errorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowCredentials: false,
	}))
	app.Use(middleware.RateLimit(cache.GetClient(), 120, time.Minute))

	authService := auth.NewAuthService(cfg)
	uploadService := upload.NewUploadService(cfg)
	itemService := item.NewItemService(cfg, store, profiles)
	reservationService := reservation.NewReservationService(cfg, store)
	proposalService := proposal.NewProposalService(cfg, store, profiles)
	feedService := feed.NewFeedService(cfg, store, profiles)

	authMiddleware := middleware.AuthMiddleware(authService.GetJWTService())

	// The public feed shares the /api/items prefix with the protected
	// listing routes, so it has to be registered first.
	feedService.SetupRoutes(app)

	authService.SetupRoutes(app)
	uploadService.SetupRoutes(app, authMiddleware)
	itemService.SetupRoutes(app, authMiddleware)
	reservationService.SetupRoutes(app, authMiddleware)
	proposalService.SetupRoutes(app, authMiddleware)

	log.Printf("✅ SwapQuest API listening on port %s", cfg.Port)
	log.Fatal(app.Listen(":" + cfg.Port))
}

// errorHandler handles errors that escape the route handlers
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}

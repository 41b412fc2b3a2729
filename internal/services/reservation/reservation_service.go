package reservation

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/swapquest/swapquest-api/internal/config"
	"github.com/swapquest/swapquest-api/internal/db"
	"github.com/swapquest/swapquest-api/internal/models"
	"github.com/swapquest/swapquest-api/internal/storage"
	"github.com/swapquest/swapquest-api/internal/utils"
)

// ReservationService owns the time-boxed interest reservations ("likes").
// Expiry is pull-based: stored status flips lazily when an overdue row is
// read, and every write path re-checks expiry before acting.
type ReservationService struct {
	cfg        *config.Config
	store      storage.Store
	jwtService *utils.JWTService
	now        func() time.Time
}

// NewReservationService creates a new ReservationService
func NewReservationService(cfg *config.Config, store storage.Store) *ReservationService {
	return &ReservationService{
		cfg:        cfg,
		store:      store,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
		now:        time.Now,
	}
}

// Like opens a 24-hour reservation on an item. Calling it again while an
// unexpired reservation exists returns that reservation unchanged.
func (s *ReservationService) Like(c fiber.Ctx) error {
	itemID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return models.Respond(c, models.NewValidationError("invalid item ID"))
	}

	userID := c.Locals("userID").(string)
	likerID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	item, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		log.Printf("failed to load item: %v", err)
		return models.Respond(c, models.NewInternalError(err))
	}
	if item == nil || item.Status == models.ItemStatusRemoved {
		return models.Respond(c, models.NewNotFoundError("item", itemID))
	}
	if item.OwnerID == likerID {
		return models.Respond(c, models.NewConflictError("you cannot like your own item"))
	}
	if item.Status != models.ItemStatusActive {
		return models.Respond(c, models.NewValidationError("item is not active"))
	}

	now := s.now()

	existing, err := s.store.GetActiveReservation(ctx, itemID, likerID)
	if err != nil {
		log.Printf("failed to load reservation: %v", err)
		return models.Respond(c, models.NewInternalError(err))
	}
	if existing != nil {
		if !existing.Overdue(now) {
			// Idempotent: same reservation comes back until it expires
			return c.JSON(fiber.Map{"reservation": existing})
		}
		// Persist the lazy expiry before opening a fresh reservation
		if _, err := s.store.UpdateReservationStatus(ctx, existing.ID,
			models.ReservationStatusActive, models.ReservationStatusExpired); err != nil {
			log.Printf("failed to expire reservation: %v", err)
			return models.Respond(c, models.NewInternalError(err))
		}
	}

	reservation := &models.Reservation{
		ID:        uuid.New(),
		ItemID:    itemID,
		LikerID:   likerID,
		Status:    models.ReservationStatusActive,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.ReservationTTL),
	}
	if err := s.store.CreateReservation(ctx, reservation); err != nil {
		log.Printf("failed to create reservation: %v", err)
		return models.Respond(c, models.NewInternalError(err))
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"reservation": reservation})
}

// Unlike withdraws the caller's active reservation on an item early
func (s *ReservationService) Unlike(c fiber.Ctx) error {
	itemID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return models.Respond(c, models.NewValidationError("invalid item ID"))
	}

	userID := c.Locals("userID").(string)
	likerID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	existing, err := s.store.GetActiveReservation(ctx, itemID, likerID)
	if err != nil {
		log.Printf("failed to load reservation: %v", err)
		return models.Respond(c, models.NewInternalError(err))
	}
	if existing == nil {
		return models.Respond(c, models.NewNotFoundError("reservation", itemID))
	}

	if _, err := s.store.UpdateReservationStatus(ctx, existing.ID,
		models.ReservationStatusActive, models.ReservationStatusExpired); err != nil {
		log.Printf("failed to withdraw reservation: %v", err)
		return models.Respond(c, models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{"success": true})
}

// ListMyLikes returns the caller's active reservations, dropping (and
// persisting) any that lapsed since they were written
func (s *ReservationService) ListMyLikes(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	likerID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	reservations, err := s.store.ListUserReservations(ctx, likerID)
	if err != nil {
		log.Printf("failed to list reservations: %v", err)
		return models.Respond(c, models.NewInternalError(err))
	}

	now := s.now()
	active := make([]models.Reservation, 0, len(reservations))
	for _, r := range reservations {
		if r.Overdue(now) {
			if _, err := s.store.UpdateReservationStatus(ctx, r.ID,
				models.ReservationStatusActive, models.ReservationStatusExpired); err != nil {
				log.Printf("failed to expire reservation: %v", err)
			}
			continue
		}

		if item, err := s.store.GetItem(ctx, r.ItemID); err == nil && item != nil {
			r.Item = item
		}
		active = append(active, r)
	}

	return c.JSON(fiber.Map{
		"reservations": active,
		"count":        len(active),
	})
}

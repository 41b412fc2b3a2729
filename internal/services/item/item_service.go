package item

import (
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/swapquest/swapquest-api/internal/config"
	"github.com/swapquest/swapquest-api/internal/db"
	"github.com/swapquest/swapquest-api/internal/models"
	"github.com/swapquest/swapquest-api/internal/profile"
	"github.com/swapquest/swapquest-api/internal/storage"
	"github.com/swapquest/swapquest-api/internal/utils"
)

// ItemService owns swap item listings and their power-level scoring
type ItemService struct {
	cfg        *config.Config
	store      storage.Store
	profiles   *profile.Resolver
	jwtService *utils.JWTService
	now        func() time.Time
}

// NewItemService creates a new ItemService
func NewItemService(cfg *config.Config, store storage.Store, profiles *profile.Resolver) *ItemService {
	return &ItemService{
		cfg:        cfg,
		store:      store,
		profiles:   profiles,
		jwtService: utils.NewJWTService(cfg.JWTSecret),
		now:        time.Now,
	}
}

// itemRequest carries create/update payloads. Pointer fields distinguish
// "not sent" from zero values on PATCH.
type itemRequest struct {
	Title                   *string  `json:"title"`
	Description             *string  `json:"description"`
	Category                *string  `json:"category"`
	Condition               *string  `json:"condition"`
	ContainsSpecialMaterial *bool    `json:"contains_special_material"`
	MaterialPercentage      *int     `json:"material_percentage"`
	Images                  []string `json:"images"`
	Country                 *string  `json:"country"`
	City                    *string  `json:"city"`
	WillingToShip           *bool    `json:"willing_to_ship"`
	Story                   *string  `json:"story"`
	YearsInUse              *int     `json:"years_in_use"`
}

// validateItem checks the cross-field invariants after a request has been
// applied to an item
func validateItem(item *models.SwapItem) *models.AppError {
	if item.Title == "" {
		return models.NewValidationError("title is required")
	}
	if len(item.Images) == 0 {
		return models.NewValidationError("at least one image is required")
	}
	if len(item.Images) > models.MaxItemImages {
		return models.NewValidationError("at most 5 images are allowed")
	}
	if !models.ValidCategories[item.Category] {
		return models.NewValidationError("unknown category")
	}
	if item.MaterialPercentage != nil {
		if !item.ContainsSpecialMaterial {
			return models.NewValidationError("material_percentage requires contains_special_material")
		}
		if *item.MaterialPercentage < 0 || *item.MaterialPercentage > 100 {
			return models.NewValidationError("material_percentage must be between 0 and 100")
		}
	}
	if item.YearsInUse != nil && *item.YearsInUse < 0 {
		return models.NewValidationError("years_in_use must not be negative")
	}
	return nil
}

// apply copies the provided request fields onto the item
func apply(item *models.SwapItem, req *itemRequest) {
	if req.Title != nil {
		item.Title = *req.Title
	}
	if req.Description != nil {
		item.Description = *req.Description
	}
	if req.Category != nil {
		item.Category = *req.Category
	}
	if req.Condition != nil {
		cond := models.ItemCondition(*req.Condition)
		if models.ValidConditions[cond] {
			item.Condition = cond
		}
	}
	if req.ContainsSpecialMaterial != nil {
		item.ContainsSpecialMaterial = *req.ContainsSpecialMaterial
		if !item.ContainsSpecialMaterial {
			item.MaterialPercentage = nil
		}
	}
	if req.MaterialPercentage != nil {
		item.MaterialPercentage = req.MaterialPercentage
	}
	if req.Country != nil {
		item.Country = *req.Country
	}
	if req.City != nil {
		item.City = *req.City
	}
	if req.WillingToShip != nil {
		item.WillingToShip = *req.WillingToShip
	}
	if req.Story != nil {
		item.Story = *req.Story
	}
	if req.YearsInUse != nil {
		item.YearsInUse = req.YearsInUse
	}
	if req.Images != nil {
		images := make([]models.ItemImage, 0, len(req.Images))
		for i, url := range req.Images {
			images = append(images, models.ItemImage{
				ID:       uuid.New(),
				ItemID:   item.ID,
				URL:      url,
				IsMain:   i == 0,
				Position: i,
			})
		}
		item.Images = images
	}
}

// parseLimit clamps a page size query parameter to [1,50], defaulting to 20
func parseLimit(raw string) int {
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 20
	}
	if limit > 50 {
		return 50
	}
	return limit
}

// CreateItem handles creation of a new listing
func (s *ItemService) CreateItem(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	ownerID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	var req itemRequest
	if err := c.Bind().Body(&req); err != nil {
		log.Printf("failed to decode request body: %v", err)
		return models.Respond(c, models.NewValidationError("invalid request body"))
	}

	now := s.now()
	item := &models.SwapItem{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Condition: models.ConditionGood,
		Status:    models.ItemStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	apply(item, &req)

	if appErr := validateItem(item); appErr != nil {
		return models.Respond(c, appErr)
	}

	// Power level is derived server-side on every write, never client-set
	item.PowerLevel = models.ComputePowerLevel(item)

	ctx, cancel := db.GetContext()
	defer cancel()
	if err := s.store.CreateItem(ctx, item); err != nil {
		log.Printf("failed to create item: %v", err)
		return models.Respond(c, models.NewInternalError(err))
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"item": item})
}

// GetItem returns one listing with owner enrichment
func (s *ItemService) GetItem(c fiber.Ctx) error {
	itemID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return models.Respond(c, models.NewValidationError("invalid item ID"))
	}

	userID := c.Locals("userID").(string)
	callerID, err := uuid.Parse(userID)
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

	owner, err := s.profiles.Get(ctx, item.OwnerID)
	if err != nil {
		log.Printf("failed to load owner profile: %v", err)
	}
	item.Owner = owner

	return c.JSON(fiber.Map{
		"item":     item,
		"is_owner": item.OwnerID == callerID,
	})
}

// GetMyItems returns the caller's own listings in any status
func (s *ItemService) GetMyItems(c fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	ownerID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	filter := storage.FeedFilter{OwnerID: &ownerID}
	if status := c.Query("status"); status != "" {
		filter.Status = models.ItemStatus(status)
	}

	var cursor *storage.FeedCursor
	if token := c.Query("cursor"); token != "" {
		cursor, err = storage.DecodeFeedCursor(token)
		if err != nil {
			return models.Respond(c, models.NewValidationError("invalid cursor"))
		}
	}

	limit := parseLimit(c.Query("limit", "20"))

	ctx, cancel := db.GetContext()
	defer cancel()
	items, err := s.store.ListFeed(ctx, filter, cursor, limit+1)
	if err != nil {
		log.Printf("failed to list items: %v", err)
		return models.Respond(c, models.NewInternalError(err))
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var nextCursor string
	if hasMore {
		last := items[len(items)-1]
		nextCursor = storage.EncodeFeedCursor(storage.FeedCursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	return c.JSON(fiber.Map{
		"items":       items,
		"next_cursor": nextCursor,
		"has_more":    hasMore,
	})
}

// UpdateItem updates an existing listing and recomputes its power level
func (s *ItemService) UpdateItem(c fiber.Ctx) error {
	itemID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return models.Respond(c, models.NewValidationError("invalid item ID"))
	}

	userID := c.Locals("userID").(string)
	callerID, err := uuid.Parse(userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	var req itemRequest
	if err := c.Bind().Body(&req); err != nil {
		log.Printf("failed to decode request body: %v", err)
		return models.Respond(c, models.NewValidationError("invalid request body"))
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
	if item.OwnerID != callerID {
		return models.Respond(c, models.NewForbiddenError("you do not own this item"))
	}
	if item.Status != models.ItemStatusActive {
		return models.Respond(c, models.NewConflictError("only active items can be edited"))
	}

	apply(item, &req)
	if appErr := validateItem(item); appErr != nil {
		return models.Respond(c, appErr)
	}
	item.PowerLevel = models.ComputePowerLevel(item)
	item.UpdatedAt = s.now()

	if err := s.store.UpdateItem(ctx, item); err != nil {
		log.Printf("failed to update item: %v", err)
		return models.Respond(c, models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{"item": item})
}

// DeleteItem removes a listing. Removal cascades: every pending proposal
// touching the item is terminalized and its active reservations expire, so
// nothing non-terminal can reference a removed item.
func (s *ItemService) DeleteItem(c fiber.Ctx) error {
	itemID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return models.Respond(c, models.NewValidationError("invalid item ID"))
	}

	userID := c.Locals("userID").(string)
	callerID, err := uuid.Parse(userID)
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
	if item.OwnerID != callerID {
		return models.Respond(c, models.NewForbiddenError("you do not own this item"))
	}

	if err := s.store.TerminalizeProposalsForItem(ctx, itemID); err != nil {
		log.Printf("failed to terminalize proposals: %v", err)
		return models.Respond(c, models.NewInternalError(err))
	}
	if err := s.store.ExpireItemReservations(ctx, itemID); err != nil {
		log.Printf("failed to expire reservations: %v", err)
		return models.Respond(c, models.NewInternalError(err))
	}
	if err := s.store.SetItemStatus(ctx, itemID, models.ItemStatusRemoved); err != nil {
		log.Printf("failed to remove item: %v", err)
		return models.Respond(c, models.NewInternalError(err))
	}

	return c.SendStatus(fiber.StatusNoContent)
}

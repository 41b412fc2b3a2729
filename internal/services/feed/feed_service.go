package feed

import (
	"log"
	"strconv"

	"github.com/gofiber/fiber/v3"

	"github.com/swapquest/swapquest-api/internal/config"
	"github.com/swapquest/swapquest-api/internal/db"
	"github.com/swapquest/swapquest-api/internal/models"
	"github.com/swapquest/swapquest-api/internal/profile"
	"github.com/swapquest/swapquest-api/internal/storage"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
)

// FeedService serves stable, cursor-ordered pages of active listings.
// Pages are keyed on the last (created_at, id) seen, so inserts between
// page fetches never skip or duplicate an item.
type FeedService struct {
	cfg      *config.Config
	store    storage.Store
	profiles *profile.Resolver
}

// NewFeedService creates a new FeedService
func NewFeedService(cfg *config.Config, store storage.Store, profiles *profile.Resolver) *FeedService {
	return &FeedService{cfg: cfg, store: store, profiles: profiles}
}

// ListItems returns one public feed page of active listings
func (s *FeedService) ListItems(c fiber.Ctx) error {
	filter := storage.FeedFilter{Status: models.ItemStatusActive}
	if category := c.Query("category"); category != "" {
		if !models.ValidCategories[category] {
			return models.Respond(c, models.NewValidationError("unknown category"))
		}
		filter.Category = category
	}

	var cursor *storage.FeedCursor
	if token := c.Query("cursor"); token != "" {
		var err error
		cursor, err = storage.DecodeFeedCursor(token)
		if err != nil {
			return models.Respond(c, models.NewValidationError("invalid cursor"))
		}
	}

	limit := defaultPageSize
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return models.Respond(c, models.NewValidationError("invalid limit"))
		}
		limit = parsed
		if limit > maxPageSize {
			limit = maxPageSize
		}
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	// Fetch one extra row to learn whether another page exists
	items, err := s.store.ListFeed(ctx, filter, cursor, limit+1)
	if err != nil {
		log.Printf("failed to list feed: %v", err)
		return models.Respond(c, models.NewInternalError(err))
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	for i := range items {
		owner, err := s.profiles.Get(ctx, items[i].OwnerID)
		if err != nil {
			log.Printf("failed to load owner profile: %v", err)
			continue
		}
		items[i].Owner = owner
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

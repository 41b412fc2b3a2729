package item

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swapquest/swapquest-api/internal/config"
	"github.com/swapquest/swapquest-api/internal/models"
	"github.com/swapquest/swapquest-api/internal/profile"
	"github.com/swapquest/swapquest-api/internal/storage/memory"
)

func newTestService(store *memory.Store) *ItemService {
	cfg := &config.Config{
		JWTSecret:      "test-secret",
		ReservationTTL: 24 * time.Hour,
		ProposalTTL:    48 * time.Hour,
	}
	return NewItemService(cfg, store, profile.NewResolver(store, nil))
}

// newTestApp mounts the routes behind a stub auth middleware that trusts the
// X-Test-User header
func newTestApp(svc *ItemService) *fiber.App {
	app := fiber.New()
	svc.SetupRoutes(app, func(c fiber.Ctx) error {
		c.Locals("userID", c.Get("X-Test-User"))
		return c.Next()
	})
	return app
}

func jsonBody(t *testing.T, v any) *bytes.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func seedItem(t *testing.T, store *memory.Store, owner uuid.UUID, createdAt time.Time) *models.SwapItem {
	t.Helper()
	item := &models.SwapItem{
		ID:          uuid.New(),
		OwnerID:     owner,
		Title:       "Teddy Bear",
		Description: "A lovely hand-crafted teddy bear",
		Category:    "toys",
		Condition:   models.ConditionGood,
		Images:      []models.ItemImage{{ID: uuid.New(), URL: "https://example.com/bear.jpg", IsMain: true}},
		Status:      models.ItemStatusActive,
		PowerLevel:  3,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	require.NoError(t, store.CreateItem(context.Background(), item))
	return item
}

func TestCreateItem(t *testing.T) {
	owner := uuid.New()

	tests := []struct {
		name           string
		body           map[string]any
		expectedStatus int
	}{
		{
			name: "valid listing",
			body: map[string]any{
				"title":       "Teddy Bear",
				"description": "A lovely hand-crafted teddy bear",
				"category":    "toys",
				"images":      []string{"https://example.com/bear.jpg"},
			},
			expectedStatus: fiber.StatusCreated,
		},
		{
			name: "missing title",
			body: map[string]any{
				"category": "toys",
				"images":   []string{"https://example.com/bear.jpg"},
			},
			expectedStatus: fiber.StatusBadRequest,
		},
		{
			name: "no images",
			body: map[string]any{
				"title":    "Teddy Bear",
				"category": "toys",
			},
			expectedStatus: fiber.StatusBadRequest,
		},
		{
			name: "too many images",
			body: map[string]any{
				"title":    "Teddy Bear",
				"category": "toys",
				"images":   []string{"a", "b", "c", "d", "e", "f"},
			},
			expectedStatus: fiber.StatusBadRequest,
		},
		{
			name: "unknown category",
			body: map[string]any{
				"title":    "Teddy Bear",
				"category": "vehicles",
				"images":   []string{"https://example.com/bear.jpg"},
			},
			expectedStatus: fiber.StatusBadRequest,
		},
		{
			name: "material percentage without the material flag",
			body: map[string]any{
				"title":               "Teddy Bear",
				"category":            "toys",
				"images":              []string{"https://example.com/bear.jpg"},
				"material_percentage": 40,
			},
			expectedStatus: fiber.StatusBadRequest,
		},
		{
			name: "negative years in use",
			body: map[string]any{
				"title":        "Teddy Bear",
				"category":     "toys",
				"images":       []string{"https://example.com/bear.jpg"},
				"years_in_use": -1,
			},
			expectedStatus: fiber.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(newTestService(memory.New()))

			req := httptest.NewRequest("POST", "/api/items", jsonBody(t, tt.body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-Test-User", owner.String())

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}
}

func TestCreateItemComputesPowerLevel(t *testing.T) {
	store := memory.New()
	app := newTestApp(newTestService(store))
	owner := uuid.New()

	body := map[string]any{
		"title":       "Teddy Bear",
		"description": "A lovely hand-crafted teddy bear",
		"category":    "toys",
		"images":      []string{"https://example.com/bear.jpg"},
		"power_level": 99, // must be ignored
	}
	req := httptest.NewRequest("POST", "/api/items", jsonBody(t, body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-User", owner.String())

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var out struct {
		Item models.SwapItem `json:"item"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, 3, out.Item.PowerLevel)
	assert.Equal(t, models.ItemStatusActive, out.Item.Status)
	assert.Equal(t, owner, out.Item.OwnerID)
}

func TestGetItem(t *testing.T) {
	store := memory.New()
	app := newTestApp(newTestService(store))
	owner := uuid.New()
	item := seedItem(t, store, owner, time.Now())

	t.Run("owner sees ownership flag", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/items/"+item.ID.String(), nil)
		req.Header.Set("X-Test-User", owner.String())

		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		var out map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		assert.Equal(t, true, out["is_owner"])
	})

	t.Run("stranger does not", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/items/"+item.ID.String(), nil)
		req.Header.Set("X-Test-User", uuid.New().String())

		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		var out map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		assert.Equal(t, false, out["is_owner"])
	})

	t.Run("unknown id is 404", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/items/"+uuid.New().String(), nil)
		req.Header.Set("X-Test-User", owner.String())

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})

	t.Run("removed item reads as 404", func(t *testing.T) {
		require.NoError(t, store.SetItemStatus(context.Background(), item.ID, models.ItemStatusRemoved))

		req := httptest.NewRequest("GET", "/api/items/"+item.ID.String(), nil)
		req.Header.Set("X-Test-User", owner.String())

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})
}

func TestUpdateItem(t *testing.T) {
	t.Run("editing raises the power level", func(t *testing.T) {
		store := memory.New()
		app := newTestApp(newTestService(store))
		owner := uuid.New()
		item := seedItem(t, store, owner, time.Now())

		body := map[string]any{
			"story":           "It belonged to my grandmother",
			"country":         "SI",
			"willing_to_ship": true,
		}
		req := httptest.NewRequest("PATCH", "/api/items/"+item.ID.String(), jsonBody(t, body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-User", owner.String())

		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		var out struct {
			Item models.SwapItem `json:"item"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		assert.Equal(t, 6, out.Item.PowerLevel)
		assert.Equal(t, "Teddy Bear", out.Item.Title)
	})

	t.Run("non-owner is forbidden", func(t *testing.T) {
		store := memory.New()
		app := newTestApp(newTestService(store))
		item := seedItem(t, store, uuid.New(), time.Now())

		req := httptest.NewRequest("PATCH", "/api/items/"+item.ID.String(),
			jsonBody(t, map[string]any{"title": "Hijacked"}))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-User", uuid.New().String())

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	})

	t.Run("reserved item rejects edits", func(t *testing.T) {
		store := memory.New()
		app := newTestApp(newTestService(store))
		owner := uuid.New()
		item := seedItem(t, store, owner, time.Now())
		require.NoError(t, store.SetItemStatus(context.Background(), item.ID, models.ItemStatusReserved))

		req := httptest.NewRequest("PATCH", "/api/items/"+item.ID.String(),
			jsonBody(t, map[string]any{"title": "New Title"}))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-User", owner.String())

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	})
}

func TestDeleteItemCascades(t *testing.T) {
	store := memory.New()
	app := newTestApp(newTestService(store))
	ctx := context.Background()
	owner := uuid.New()
	liker := uuid.New()

	item := seedItem(t, store, owner, time.Now())
	offered := seedItem(t, store, owner, time.Now())

	reservation := &models.Reservation{
		ID: uuid.New(), ItemID: item.ID, LikerID: liker,
		Status: models.ReservationStatusActive, CreatedAt: time.Now(), ExpiresAt: time.Now().Add(24 * time.Hour),
	}
	require.NoError(t, store.CreateReservation(ctx, reservation))

	targeting := &models.Proposal{ID: uuid.New(), TargetItemID: item.ID, ProposerID: liker,
		OfferKind: models.OfferKindService, OfferService: &models.ServiceOffer{Title: "t", Description: "d"},
		Status: models.ProposalStatusPending}
	offering := &models.Proposal{ID: uuid.New(), TargetItemID: uuid.New(), ProposerID: owner,
		OfferKind: models.OfferKindItem, OfferItemID: &item.ID, Status: models.ProposalStatusPending}
	require.NoError(t, store.CreateProposal(ctx, targeting))
	require.NoError(t, store.CreateProposal(ctx, offering))

	req := httptest.NewRequest("DELETE", "/api/items/"+item.ID.String(), nil)
	req.Header.Set("X-Test-User", owner.String())

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	got, err := store.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ItemStatusRemoved, got.Status)

	// Nothing non-terminal may keep referencing the removed item
	p, _ := store.GetProposal(ctx, targeting.ID)
	assert.Equal(t, models.ProposalStatusDeclined, p.Status)
	p, _ = store.GetProposal(ctx, offering.ID)
	assert.Equal(t, models.ProposalStatusCancelled, p.Status)

	r, err := store.GetActiveReservation(ctx, item.ID, liker)
	require.NoError(t, err)
	assert.Nil(t, r)

	// The unrelated listing is untouched
	other, err := store.GetItem(ctx, offered.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ItemStatusActive, other.Status)

	t.Run("non-owner cannot delete", func(t *testing.T) {
		victim := seedItem(t, store, owner, time.Now())
		req := httptest.NewRequest("DELETE", "/api/items/"+victim.ID.String(), nil)
		req.Header.Set("X-Test-User", uuid.New().String())

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	})
}

func TestGetMyItemsPagination(t *testing.T) {
	store := memory.New()
	app := newTestApp(newTestService(store))
	owner := uuid.New()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		seedItem(t, store, owner, base.Add(time.Duration(i)*time.Minute))
	}
	seedItem(t, store, uuid.New(), base) // someone else's listing

	req := httptest.NewRequest("GET", "/api/items/my?limit=3", nil)
	req.Header.Set("X-Test-User", owner.String())

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var page struct {
		Items      []models.SwapItem `json:"items"`
		NextCursor string            `json:"next_cursor"`
		HasMore    bool              `json:"has_more"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	assert.Len(t, page.Items, 3)
	assert.True(t, page.HasMore)
	require.NotEmpty(t, page.NextCursor)

	req = httptest.NewRequest("GET", "/api/items/my?limit=3&cursor="+page.NextCursor, nil)
	req.Header.Set("X-Test-User", owner.String())

	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	assert.Len(t, page.Items, 2)
	assert.False(t, page.HasMore)
	assert.Empty(t, page.NextCursor)

	for _, it := range page.Items {
		assert.Equal(t, owner, it.OwnerID)
	}
}

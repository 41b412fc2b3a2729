package feed

import (
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

type page struct {
	Items      []models.SwapItem `json:"items"`
	NextCursor string            `json:"next_cursor"`
	HasMore    bool              `json:"has_more"`
}

func newTestApp(store *memory.Store) *fiber.App {
	cfg := &config.Config{JWTSecret: "test-secret"}
	svc := NewFeedService(cfg, store, profile.NewResolver(store, nil))
	app := fiber.New()
	svc.SetupRoutes(app)
	return app
}

func seedItem(t *testing.T, store *memory.Store, category string, status models.ItemStatus, createdAt time.Time) *models.SwapItem {
	t.Helper()
	item := &models.SwapItem{
		ID:        uuid.New(),
		OwnerID:   uuid.New(),
		Title:     "Teddy Bear",
		Category:  category,
		Condition: models.ConditionGood,
		Images:    []models.ItemImage{{ID: uuid.New(), URL: "https://example.com/bear.jpg"}},
		Status:    status,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	require.NoError(t, store.CreateItem(context.Background(), item))
	return item
}

func fetch(t *testing.T, app *fiber.App, query string) (page, int) {
	t.Helper()
	req := httptest.NewRequest("GET", "/api/items"+query, nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	var p page
	_ = json.NewDecoder(resp.Body).Decode(&p)
	return p, resp.StatusCode
}

func TestFeedReturnsNewestFirst(t *testing.T) {
	store := memory.New()
	app := newTestApp(store)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	oldest := seedItem(t, store, "toys", models.ItemStatusActive, base)
	newest := seedItem(t, store, "toys", models.ItemStatusActive, base.Add(time.Hour))

	p, status := fetch(t, app, "")
	require.Equal(t, fiber.StatusOK, status)
	require.Len(t, p.Items, 2)
	assert.Equal(t, newest.ID, p.Items[0].ID)
	assert.Equal(t, oldest.ID, p.Items[1].ID)
	assert.False(t, p.HasMore)
	assert.Empty(t, p.NextCursor)
}

func TestFeedExcludesNonActiveItems(t *testing.T) {
	store := memory.New()
	app := newTestApp(store)
	now := time.Now()

	active := seedItem(t, store, "toys", models.ItemStatusActive, now)
	seedItem(t, store, "toys", models.ItemStatusReserved, now)
	seedItem(t, store, "toys", models.ItemStatusTraded, now)
	seedItem(t, store, "toys", models.ItemStatusRemoved, now)

	p, status := fetch(t, app, "")
	require.Equal(t, fiber.StatusOK, status)
	require.Len(t, p.Items, 1)
	assert.Equal(t, active.ID, p.Items[0].ID)
}

func TestFeedCategoryFilter(t *testing.T) {
	store := memory.New()
	app := newTestApp(store)
	now := time.Now()

	toy := seedItem(t, store, "toys", models.ItemStatusActive, now)
	seedItem(t, store, "books", models.ItemStatusActive, now.Add(time.Minute))

	p, status := fetch(t, app, "?category=toys")
	require.Equal(t, fiber.StatusOK, status)
	require.Len(t, p.Items, 1)
	assert.Equal(t, toy.ID, p.Items[0].ID)

	_, status = fetch(t, app, "?category=vehicles")
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestFeedRejectsBadParameters(t *testing.T) {
	app := newTestApp(memory.New())

	_, status := fetch(t, app, "?cursor=%21%21garbage")
	assert.Equal(t, fiber.StatusBadRequest, status)

	_, status = fetch(t, app, "?limit=0")
	assert.Equal(t, fiber.StatusBadRequest, status)

	_, status = fetch(t, app, "?limit=abc")
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestFeedClampsOversizedLimit(t *testing.T) {
	store := memory.New()
	app := newTestApp(store)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 60; i++ {
		seedItem(t, store, "toys", models.ItemStatusActive, base.Add(time.Duration(i)*time.Second))
	}

	p, status := fetch(t, app, "?limit=500")
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, p.Items, 50)
	assert.True(t, p.HasMore)
}

func TestFeedPageWalkIsStableUnderInserts(t *testing.T) {
	store := memory.New()
	app := newTestApp(store)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	want := make(map[uuid.UUID]bool)
	for i := 0; i < 5; i++ {
		item := seedItem(t, store, "toys", models.ItemStatusActive, base.Add(time.Duration(i)*time.Minute))
		want[item.ID] = true
	}

	p1, status := fetch(t, app, "?limit=2")
	require.Equal(t, fiber.StatusOK, status)
	require.Len(t, p1.Items, 2)
	require.True(t, p1.HasMore)

	// A listing created mid-walk lands at the head of the feed and must not
	// shift the pages already cut
	newcomer := seedItem(t, store, "toys", models.ItemStatusActive, base.Add(time.Hour))

	seen := make(map[uuid.UUID]bool)
	for _, it := range p1.Items {
		seen[it.ID] = true
	}

	cursor := p1.NextCursor
	for cursor != "" {
		p, status := fetch(t, app, "?limit=2&cursor="+cursor)
		require.Equal(t, fiber.StatusOK, status)
		for _, it := range p.Items {
			assert.False(t, seen[it.ID], "item %s served twice", it.ID)
			seen[it.ID] = true
		}
		cursor = p.NextCursor
	}

	assert.False(t, seen[newcomer.ID], "mid-walk insert leaked into an old walk")
	for id := range want {
		assert.True(t, seen[id], "item %s skipped", id)
	}
}

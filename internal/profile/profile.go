// Package profile resolves read-only user display data for API enrichment.
// Lookups go through an optional redis cache; without redis they fall
// straight through to the users table.
package profile

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/swapquest/swapquest-api/internal/models"
	"github.com/swapquest/swapquest-api/internal/storage"
)

const cacheTTL = 5 * time.Minute

// Resolver looks up user profiles with caching
type Resolver struct {
	store storage.ProfileStore
	rdb   *redis.Client
}

// NewResolver creates a Resolver; rdb may be nil
func NewResolver(store storage.ProfileStore, rdb *redis.Client) *Resolver {
	return &Resolver{store: store, rdb: rdb}
}

// Get returns the profile for id, or (nil, nil) when none is known.
// Cache failures are ignored; the store is the source of truth.
func (r *Resolver) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	key := "profile:" + id.String()

	if r.rdb != nil {
		if data, err := r.rdb.Get(ctx, key).Bytes(); err == nil {
			var u models.User
			if err := json.Unmarshal(data, &u); err == nil {
				return &u, nil
			}
		}
	}

	u, err := r.store.GetUser(ctx, id)
	if err != nil || u == nil {
		return u, err
	}

	if r.rdb != nil {
		if data, err := json.Marshal(u); err == nil {
			r.rdb.Set(ctx, key, data, cacheTTL)
		}
	}
	return u, nil
}

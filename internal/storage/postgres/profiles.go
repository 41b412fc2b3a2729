package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/swapquest/swapquest-api/internal/models"
)

// GetUser reads profile display data. The users table is maintained by the
// identity platform; this core only ever reads it.
func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx, `
		SELECT id, display_name, avatar_url, country
		FROM users
		WHERE id = $1
	`, id).Scan(&u.ID, &u.DisplayName, &u.AvatarURL, &u.Country)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("select user: %w", err)
	}
	return &u, nil
}

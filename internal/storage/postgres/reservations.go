package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/swapquest/swapquest-api/internal/models"
)

// CreateReservation inserts a new reservation row
func (s *Store) CreateReservation(ctx context.Context, r *models.Reservation) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO reservations (id, item_id, liker_id, status, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, r.ID, r.ItemID, r.LikerID, r.Status, r.CreatedAt, r.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}
	return nil
}

// GetActiveReservation returns the stored ACTIVE reservation for the pair
func (s *Store) GetActiveReservation(ctx context.Context, itemID, likerID uuid.UUID) (*models.Reservation, error) {
	var r models.Reservation
	err := s.pool.QueryRow(ctx, `
		SELECT id, item_id, liker_id, status, created_at, expires_at
		FROM reservations
		WHERE item_id = $1 AND liker_id = $2 AND status = 'active'
		ORDER BY created_at DESC
		LIMIT 1
	`, itemID, likerID).Scan(&r.ID, &r.ItemID, &r.LikerID, &r.Status, &r.CreatedAt, &r.ExpiresAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("select reservation: %w", err)
	}
	return &r, nil
}

// ListUserReservations returns the user's ACTIVE reservations, newest first
func (s *Store) ListUserReservations(ctx context.Context, likerID uuid.UUID) ([]models.Reservation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, item_id, liker_id, status, created_at, expires_at
		FROM reservations
		WHERE liker_id = $1 AND status = 'active'
		ORDER BY created_at DESC
	`, likerID)
	if err != nil {
		return nil, fmt.Errorf("select reservations: %w", err)
	}
	defer rows.Close()

	var out []models.Reservation
	for rows.Next() {
		var r models.Reservation
		if err := rows.Scan(&r.ID, &r.ItemID, &r.LikerID, &r.Status, &r.CreatedAt, &r.ExpiresAt); err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpdateReservationStatus performs a compare-and-set on the status column
func (s *Store) UpdateReservationStatus(ctx context.Context, id uuid.UUID, from, to models.ReservationStatus) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE reservations SET status = $1 WHERE id = $2 AND status = $3
	`, to, id, from)
	if err != nil {
		return false, fmt.Errorf("cas reservation status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ExpireItemReservations terminalizes all ACTIVE reservations on an item
func (s *Store) ExpireItemReservations(ctx context.Context, itemID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE reservations SET status = 'expired' WHERE item_id = $1 AND status = 'active'
	`, itemID)
	if err != nil {
		return fmt.Errorf("expire reservations: %w", err)
	}
	return nil
}

// ConsumeReservation marks the pair's ACTIVE reservation CONSUMED, if any
func (s *Store) ConsumeReservation(ctx context.Context, itemID, likerID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE reservations SET status = 'consumed'
		WHERE item_id = $1 AND liker_id = $2 AND status = 'active'
	`, itemID, likerID)
	if err != nil {
		return fmt.Errorf("consume reservation: %w", err)
	}
	return nil
}

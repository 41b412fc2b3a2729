package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/swapquest/swapquest-api/internal/models"
	"github.com/swapquest/swapquest-api/internal/storage"
)

const itemColumns = `id, owner_id, title, description, category, condition,
	contains_special_material, material_percentage, country, city,
	willing_to_ship, story, years_in_use, status, power_level,
	created_at, updated_at`

func scanItem(row pgx.Row, item *models.SwapItem) error {
	return row.Scan(
		&item.ID,
		&item.OwnerID,
		&item.Title,
		&item.Description,
		&item.Category,
		&item.Condition,
		&item.ContainsSpecialMaterial,
		&item.MaterialPercentage,
		&item.Country,
		&item.City,
		&item.WillingToShip,
		&item.Story,
		&item.YearsInUse,
		&item.Status,
		&item.PowerLevel,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
}

// CreateItem inserts the item and its images in one transaction
func (s *Store) CreateItem(ctx context.Context, item *models.SwapItem) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO swap_items (id, owner_id, title, description, category, condition,
			contains_special_material, material_percentage, country, city,
			willing_to_ship, story, years_in_use, status, power_level, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $16)
	`, item.ID, item.OwnerID, item.Title, item.Description, item.Category, item.Condition,
		item.ContainsSpecialMaterial, item.MaterialPercentage, item.Country, item.City,
		item.WillingToShip, item.Story, item.YearsInUse, item.Status, item.PowerLevel, item.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}

	if err := insertImages(ctx, tx, item); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func insertImages(ctx context.Context, tx pgx.Tx, item *models.SwapItem) error {
	for i := range item.Images {
		img := &item.Images[i]
		_, err := tx.Exec(ctx, `
			INSERT INTO swap_item_images (id, item_id, url, is_main, position, created_at)
			VALUES ($1, $2, $3, $4, $5, NOW())
		`, img.ID, item.ID, img.URL, img.IsMain, img.Position)
		if err != nil {
			return fmt.Errorf("insert image: %w", err)
		}
	}
	return nil
}

// GetItem loads an item with its images, or returns (nil, nil)
func (s *Store) GetItem(ctx context.Context, id uuid.UUID) (*models.SwapItem, error) {
	var item models.SwapItem
	err := scanItem(s.pool.QueryRow(ctx,
		`SELECT `+itemColumns+` FROM swap_items WHERE id = $1`, id), &item)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("select item: %w", err)
	}

	if err := s.loadImages(ctx, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) loadImages(ctx context.Context, item *models.SwapItem) error {
	rows, err := s.pool.Query(ctx, `
		SELECT id, item_id, url, is_main, position, created_at
		FROM swap_item_images
		WHERE item_id = $1
		ORDER BY position ASC
	`, item.ID)
	if err != nil {
		return fmt.Errorf("select images: %w", err)
	}
	defer rows.Close()

	var images []models.ItemImage
	for rows.Next() {
		var img models.ItemImage
		if err := rows.Scan(&img.ID, &img.ItemID, &img.URL, &img.IsMain, &img.Position, &img.CreatedAt); err != nil {
			return fmt.Errorf("scan image: %w", err)
		}
		images = append(images, img)
	}
	item.Images = images
	return rows.Err()
}

// UpdateItem rewrites the mutable fields and replaces the image set
func (s *Store) UpdateItem(ctx context.Context, item *models.SwapItem) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		UPDATE swap_items
		SET title = $1, description = $2, category = $3, condition = $4,
			contains_special_material = $5, material_percentage = $6,
			country = $7, city = $8, willing_to_ship = $9, story = $10,
			years_in_use = $11, power_level = $12, updated_at = NOW()
		WHERE id = $13
	`, item.Title, item.Description, item.Category, item.Condition,
		item.ContainsSpecialMaterial, item.MaterialPercentage,
		item.Country, item.City, item.WillingToShip, item.Story,
		item.YearsInUse, item.PowerLevel, item.ID)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}

	_, err = tx.Exec(ctx, `DELETE FROM swap_item_images WHERE item_id = $1`, item.ID)
	if err != nil {
		return fmt.Errorf("delete images: %w", err)
	}
	if err := insertImages(ctx, tx, item); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// UpdateItemStatus is the compare-and-set that serializes accept races.
// A failed condition reports (false, nil), a definitive loss of the race.
func (s *Store) UpdateItemStatus(ctx context.Context, id uuid.UUID, from, to models.ItemStatus) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE swap_items
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`, to, id, from)
	if err != nil {
		return false, fmt.Errorf("cas item status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// SetItemStatus sets the status unconditionally
func (s *Store) SetItemStatus(ctx context.Context, id uuid.UUID, to models.ItemStatus) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE swap_items SET status = $1, updated_at = NOW() WHERE id = $2
	`, to, id)
	if err != nil {
		return fmt.Errorf("set item status: %w", err)
	}
	return nil
}

// ListFeed returns a keyset page ordered by (created_at DESC, id DESC)
func (s *Store) ListFeed(ctx context.Context, filter storage.FeedFilter, cursor *storage.FeedCursor, limit int) ([]models.SwapItem, error) {
	query := `SELECT ` + itemColumns + ` FROM swap_items WHERE 1=1`
	args := []interface{}{}

	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if filter.OwnerID != nil {
		args = append(args, *filter.OwnerID)
		query += fmt.Sprintf(" AND owner_id = $%d", len(args))
	}
	if cursor != nil {
		args = append(args, cursor.CreatedAt, cursor.ID)
		query += fmt.Sprintf(" AND (created_at, id) < ($%d, $%d)", len(args)-1, len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select feed: %w", err)
	}
	defer rows.Close()

	var items []models.SwapItem
	for rows.Next() {
		var item models.SwapItem
		if err := scanItem(rows, &item); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range items {
		if err := s.loadImages(ctx, &items[i]); err != nil {
			return nil, err
		}
	}
	return items, nil
}

package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/swapquest/swapquest-api/internal/models"
)

func scanProposal(row pgx.Row, p *models.Proposal) error {
	var serviceData []byte
	err := row.Scan(
		&p.ID,
		&p.TargetItemID,
		&p.ProposerID,
		&p.OfferKind,
		&p.OfferItemID,
		&serviceData,
		&p.Message,
		&p.Status,
		&p.CreatedAt,
		&p.ExpiresAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if serviceData != nil {
		var svc models.ServiceOffer
		if err := json.Unmarshal(serviceData, &svc); err != nil {
			return fmt.Errorf("decode offer_service: %w", err)
		}
		p.OfferService = &svc
	}
	return nil
}

// CreateProposal inserts a new proposal row
func (s *Store) CreateProposal(ctx context.Context, p *models.Proposal) error {
	var serviceData []byte
	if p.OfferService != nil {
		var err error
		serviceData, err = json.Marshal(p.OfferService)
		if err != nil {
			return fmt.Errorf("encode offer_service: %w", err)
		}
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO proposals (id, target_item_id, proposer_id, offer_kind, offer_item_id,
			offer_service, message, status, created_at, expires_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $9)
	`, p.ID, p.TargetItemID, p.ProposerID, p.OfferKind, p.OfferItemID,
		serviceData, p.Message, p.Status, p.CreatedAt, p.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert proposal: %w", err)
	}
	return nil
}

// GetProposal returns the proposal, or (nil, nil) if absent
func (s *Store) GetProposal(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	var p models.Proposal
	err := scanProposal(s.pool.QueryRow(ctx, `
		SELECT id, target_item_id, proposer_id, offer_kind, offer_item_id,
			offer_service, message, status, created_at, expires_at, updated_at
		FROM proposals
		WHERE id = $1
	`, id), &p)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("select proposal: %w", err)
	}
	return &p, nil
}

// UpdateProposalStatus performs a compare-and-set on the status column
func (s *Store) UpdateProposalStatus(ctx context.Context, id uuid.UUID, from, to models.ProposalStatus) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE proposals SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3
	`, to, id, from)
	if err != nil {
		return false, fmt.Errorf("cas proposal status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListUserProposals returns proposals where the user is proposer or owns the
// target item, newest first
func (s *Store) ListUserProposals(ctx context.Context, userID uuid.UUID) ([]models.Proposal, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT p.id, p.target_item_id, p.proposer_id, p.offer_kind, p.offer_item_id,
			p.offer_service, p.message, p.status, p.created_at, p.expires_at, p.updated_at
		FROM proposals p
		JOIN swap_items i ON i.id = p.target_item_id
		WHERE p.proposer_id = $1 OR i.owner_id = $1
		ORDER BY p.created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("select proposals: %w", err)
	}
	defer rows.Close()

	var out []models.Proposal
	for rows.Next() {
		var p models.Proposal
		if err := scanProposal(rows, &p); err != nil {
			return nil, fmt.Errorf("scan proposal: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeclineCompetingProposals declines every PENDING proposal referencing any
// of itemIDs as target or offer, except exceptID. A trade just promised to
// one party cannot remain promised elsewhere.
func (s *Store) DeclineCompetingProposals(ctx context.Context, itemIDs []uuid.UUID, exceptID uuid.UUID) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE proposals
		SET status = 'declined', updated_at = NOW()
		WHERE status = 'pending'
		  AND id <> $1
		  AND (target_item_id = ANY($2) OR offer_item_id = ANY($2))
	`, exceptID, itemIDs)
	if err != nil {
		return 0, fmt.Errorf("decline competitors: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// TerminalizeProposalsForItem resolves every PENDING proposal touching the
// item ahead of its removal
func (s *Store) TerminalizeProposalsForItem(ctx context.Context, itemID uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		UPDATE proposals SET status = 'declined', updated_at = NOW()
		WHERE status = 'pending' AND target_item_id = $1
	`, itemID)
	if err != nil {
		return fmt.Errorf("decline targeting proposals: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE proposals SET status = 'cancelled', updated_at = NOW()
		WHERE status = 'pending' AND offer_item_id = $1
	`, itemID)
	if err != nil {
		return fmt.Errorf("cancel offering proposals: %w", err)
	}

	return tx.Commit(ctx)
}

// Package storage defines the persistence contracts for the marketplace
// core. The postgres implementation backs the running service; the memory
// implementation backs tests. Item status flips go through conditional
// updates so that acceptance races serialize on the item row.
package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/swapquest/swapquest-api/internal/models"
)

// FeedCursor pins a feed page boundary to the last (created_at, id) seen so
// concurrent inserts never shift, skip, or duplicate already-served pages.
type FeedCursor struct {
	CreatedAt time.Time `json:"created_at"`
	ID        uuid.UUID `json:"id"`
}

// FeedFilter narrows a feed query
type FeedFilter struct {
	Category string
	OwnerID  *uuid.UUID
	Status   models.ItemStatus
}

// ItemStore owns swap item records
type ItemStore interface {
	CreateItem(ctx context.Context, item *models.SwapItem) error
	// GetItem returns (nil, nil) when the item does not exist
	GetItem(ctx context.Context, id uuid.UUID) (*models.SwapItem, error)
	// UpdateItem rewrites the mutable fields and the image set of an item
	UpdateItem(ctx context.Context, item *models.SwapItem) error
	// UpdateItemStatus performs a compare-and-set on the status column and
	// reports whether the expected prior status matched
	UpdateItemStatus(ctx context.Context, id uuid.UUID, from, to models.ItemStatus) (bool, error)
	// SetItemStatus sets the status unconditionally
	SetItemStatus(ctx context.Context, id uuid.UUID, to models.ItemStatus) error
	// ListFeed returns up to limit items matching filter, ordered by
	// (created_at DESC, id DESC), starting strictly after cursor
	ListFeed(ctx context.Context, filter FeedFilter, cursor *FeedCursor, limit int) ([]models.SwapItem, error)
}

// ReservationStore owns interest reservations ("likes")
type ReservationStore interface {
	CreateReservation(ctx context.Context, r *models.Reservation) error
	// GetActiveReservation returns the stored ACTIVE reservation for the
	// pair, or (nil, nil); callers evaluate expiry against their own clock
	GetActiveReservation(ctx context.Context, itemID, likerID uuid.UUID) (*models.Reservation, error)
	// ListUserReservations returns the user's reservations stored as ACTIVE,
	// newest first
	ListUserReservations(ctx context.Context, likerID uuid.UUID) ([]models.Reservation, error)
	// UpdateReservationStatus performs a compare-and-set on the status
	UpdateReservationStatus(ctx context.Context, id uuid.UUID, from, to models.ReservationStatus) (bool, error)
	// ExpireItemReservations terminalizes all ACTIVE reservations on an item
	ExpireItemReservations(ctx context.Context, itemID uuid.UUID) error
	// ConsumeReservation marks the pair's ACTIVE reservation CONSUMED, if any
	ConsumeReservation(ctx context.Context, itemID, likerID uuid.UUID) error
}

// ProposalStore owns swap proposals
type ProposalStore interface {
	CreateProposal(ctx context.Context, p *models.Proposal) error
	// GetProposal returns (nil, nil) when the proposal does not exist
	GetProposal(ctx context.Context, id uuid.UUID) (*models.Proposal, error)
	// UpdateProposalStatus performs a compare-and-set on the status
	UpdateProposalStatus(ctx context.Context, id uuid.UUID, from, to models.ProposalStatus) (bool, error)
	// ListUserProposals returns proposals where the user is the proposer or
	// owns the target item, newest first
	ListUserProposals(ctx context.Context, userID uuid.UUID) ([]models.Proposal, error)
	// DeclineCompetingProposals declines every PENDING proposal that
	// references any of itemIDs as target or offer, except exceptID.
	// Returns the number of proposals declined.
	DeclineCompetingProposals(ctx context.Context, itemIDs []uuid.UUID, exceptID uuid.UUID) (int, error)
	// TerminalizeProposalsForItem resolves every PENDING proposal touching
	// the item ahead of its removal: proposals targeting it are DECLINED,
	// proposals offering it are CANCELLED.
	TerminalizeProposalsForItem(ctx context.Context, itemID uuid.UUID) error
}

// ProfileStore reads external profile display data
type ProfileStore interface {
	// GetUser returns (nil, nil) when no profile is known for the id
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Store aggregates all persistence contracts consumed by the services
type Store interface {
	ItemStore
	ReservationStore
	ProposalStore
	ProfileStore
}

// Package memory provides a mutex-guarded in-memory Store. It mirrors the
// postgres implementation's semantics, including conditional status updates,
// and backs the service test suites.
package memory

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/swapquest/swapquest-api/internal/models"
	"github.com/swapquest/swapquest-api/internal/storage"
)

// Store is an in-memory implementation of storage.Store
type Store struct {
	mu           sync.Mutex
	items        map[uuid.UUID]*models.SwapItem
	reservations map[uuid.UUID]*models.Reservation
	proposals    map[uuid.UUID]*models.Proposal
	users        map[uuid.UUID]*models.User
}

// New creates an empty in-memory store
func New() *Store {
	return &Store{
		items:        make(map[uuid.UUID]*models.SwapItem),
		reservations: make(map[uuid.UUID]*models.Reservation),
		proposals:    make(map[uuid.UUID]*models.Proposal),
		users:        make(map[uuid.UUID]*models.User),
	}
}

// AddUser seeds a profile record (profiles are read-only in the core)
func (s *Store) AddUser(u *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.users[u.ID] = &cp
}

func copyItem(item *models.SwapItem) *models.SwapItem {
	cp := *item
	cp.Images = append([]models.ItemImage(nil), item.Images...)
	cp.Owner = nil
	return &cp
}

func copyProposal(p *models.Proposal) *models.Proposal {
	cp := *p
	if p.OfferItemID != nil {
		id := *p.OfferItemID
		cp.OfferItemID = &id
	}
	if p.OfferService != nil {
		svc := *p.OfferService
		cp.OfferService = &svc
	}
	cp.TargetItem, cp.OfferItem, cp.Proposer, cp.TargetOwner = nil, nil, nil, nil
	return &cp
}

// CreateItem stores a new item
func (s *Store) CreateItem(_ context.Context, item *models.SwapItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item.ID] = copyItem(item)
	return nil
}

// GetItem returns a copy of the item, or (nil, nil) if absent
func (s *Store) GetItem(_ context.Context, id uuid.UUID) (*models.SwapItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return nil, nil
	}
	return copyItem(item), nil
}

// UpdateItem rewrites the stored item
func (s *Store) UpdateItem(_ context.Context, item *models.SwapItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item.ID] = copyItem(item)
	return nil
}

// UpdateItemStatus flips the status only if the current status matches from
func (s *Store) UpdateItemStatus(_ context.Context, id uuid.UUID, from, to models.ItemStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok || item.Status != from {
		return false, nil
	}
	item.Status = to
	return true, nil
}

// SetItemStatus sets the status unconditionally
func (s *Store) SetItemStatus(_ context.Context, id uuid.UUID, to models.ItemStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item, ok := s.items[id]; ok {
		item.Status = to
	}
	return nil
}

// ListFeed returns items after cursor in (created_at DESC, id DESC) order
func (s *Store) ListFeed(_ context.Context, filter storage.FeedFilter, cursor *storage.FeedCursor, limit int) ([]models.SwapItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*models.SwapItem
	for _, item := range s.items {
		if filter.Status != "" && item.Status != filter.Status {
			continue
		}
		if filter.Category != "" && item.Category != filter.Category {
			continue
		}
		if filter.OwnerID != nil && item.OwnerID != *filter.OwnerID {
			continue
		}
		matched = append(matched, item)
	}

	sort.Slice(matched, func(a, b int) bool {
		if !matched[a].CreatedAt.Equal(matched[b].CreatedAt) {
			return matched[a].CreatedAt.After(matched[b].CreatedAt)
		}
		return bytes.Compare(matched[a].ID[:], matched[b].ID[:]) > 0
	})

	var out []models.SwapItem
	for _, item := range matched {
		if cursor != nil {
			// Keyset: only rows strictly after the cursor position
			if item.CreatedAt.After(cursor.CreatedAt) {
				continue
			}
			if item.CreatedAt.Equal(cursor.CreatedAt) && bytes.Compare(item.ID[:], cursor.ID[:]) >= 0 {
				continue
			}
		}
		out = append(out, *copyItem(item))
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// CreateReservation stores a new reservation
func (s *Store) CreateReservation(_ context.Context, r *models.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	cp.Item = nil
	s.reservations[r.ID] = &cp
	return nil
}

// GetActiveReservation returns the stored ACTIVE reservation for the pair
func (s *Store) GetActiveReservation(_ context.Context, itemID, likerID uuid.UUID) (*models.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reservations {
		if r.ItemID == itemID && r.LikerID == likerID && r.Status == models.ReservationStatusActive {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

// ListUserReservations returns the user's ACTIVE reservations, newest first
func (s *Store) ListUserReservations(_ context.Context, likerID uuid.UUID) ([]models.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Reservation
	for _, r := range s.reservations {
		if r.LikerID == likerID && r.Status == models.ReservationStatusActive {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	return out, nil
}

// UpdateReservationStatus flips the status only if the current one matches
func (s *Store) UpdateReservationStatus(_ context.Context, id uuid.UUID, from, to models.ReservationStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[id]
	if !ok || r.Status != from {
		return false, nil
	}
	r.Status = to
	return true, nil
}

// ExpireItemReservations terminalizes all ACTIVE reservations on an item
func (s *Store) ExpireItemReservations(_ context.Context, itemID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reservations {
		if r.ItemID == itemID && r.Status == models.ReservationStatusActive {
			r.Status = models.ReservationStatusExpired
		}
	}
	return nil
}

// ConsumeReservation marks the pair's ACTIVE reservation CONSUMED
func (s *Store) ConsumeReservation(_ context.Context, itemID, likerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reservations {
		if r.ItemID == itemID && r.LikerID == likerID && r.Status == models.ReservationStatusActive {
			r.Status = models.ReservationStatusConsumed
		}
	}
	return nil
}

// CreateProposal stores a new proposal
func (s *Store) CreateProposal(_ context.Context, p *models.Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proposals[p.ID] = copyProposal(p)
	return nil
}

// GetProposal returns a copy of the proposal, or (nil, nil) if absent
func (s *Store) GetProposal(_ context.Context, id uuid.UUID) (*models.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.proposals[id]
	if !ok {
		return nil, nil
	}
	return copyProposal(p), nil
}

// UpdateProposalStatus flips the status only if the current one matches
func (s *Store) UpdateProposalStatus(_ context.Context, id uuid.UUID, from, to models.ProposalStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.proposals[id]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status = to
	return true, nil
}

// ListUserProposals returns proposals where the user is proposer or target owner
func (s *Store) ListUserProposals(_ context.Context, userID uuid.UUID) ([]models.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Proposal
	for _, p := range s.proposals {
		owns := false
		if item, ok := s.items[p.TargetItemID]; ok && item.OwnerID == userID {
			owns = true
		}
		if p.ProposerID == userID || owns {
			out = append(out, *copyProposal(p))
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	return out, nil
}

// DeclineCompetingProposals declines PENDING proposals touching itemIDs
func (s *Store) DeclineCompetingProposals(_ context.Context, itemIDs []uuid.UUID, exceptID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	touched := make(map[uuid.UUID]bool, len(itemIDs))
	for _, id := range itemIDs {
		touched[id] = true
	}
	count := 0
	for _, p := range s.proposals {
		if p.ID == exceptID || p.Status != models.ProposalStatusPending {
			continue
		}
		refs := touched[p.TargetItemID] || (p.OfferItemID != nil && touched[*p.OfferItemID])
		if refs {
			p.Status = models.ProposalStatusDeclined
			count++
		}
	}
	return count, nil
}

// TerminalizeProposalsForItem resolves PENDING proposals before item removal
func (s *Store) TerminalizeProposalsForItem(_ context.Context, itemID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.proposals {
		if p.Status != models.ProposalStatusPending {
			continue
		}
		if p.TargetItemID == itemID {
			p.Status = models.ProposalStatusDeclined
		} else if p.OfferItemID != nil && *p.OfferItemID == itemID {
			p.Status = models.ProposalStatusCancelled
		}
	}
	return nil
}

// GetUser returns a copy of the profile, or (nil, nil) if unknown
func (s *Store) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

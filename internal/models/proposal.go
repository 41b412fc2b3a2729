package models

import (
	"time"

	"github.com/google/uuid"
)

// ProposalStatus represents the state of a swap proposal.
// PENDING is the only non-terminal state.
type ProposalStatus string

const (
	ProposalStatusPending   ProposalStatus = "pending"
	ProposalStatusAccepted  ProposalStatus = "accepted"
	ProposalStatusDeclined  ProposalStatus = "declined"
	ProposalStatusExpired   ProposalStatus = "expired"
	ProposalStatusCancelled ProposalStatus = "cancelled"
)

// ValidProposalStatuses lists the accepted status filter values
var ValidProposalStatuses = map[ProposalStatus]bool{
	ProposalStatusPending:   true,
	ProposalStatusAccepted:  true,
	ProposalStatusDeclined:  true,
	ProposalStatusExpired:   true,
	ProposalStatusCancelled: true,
}

// OfferKind distinguishes item-for-item from service-for-item proposals
type OfferKind string

const (
	OfferKindItem    OfferKind = "item"
	OfferKindService OfferKind = "service"
)

// ServiceOffer describes a service offered in place of an item
type ServiceOffer struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category,omitempty"`
}

// Proposal represents an offer against a target listing. Exactly one of
// OfferItemID / OfferService is populated, matching OfferKind.
type Proposal struct {
	ID           uuid.UUID      `json:"id"`
	TargetItemID uuid.UUID      `json:"target_item_id"`
	ProposerID   uuid.UUID      `json:"proposer_id"`
	OfferKind    OfferKind      `json:"offer_kind"`
	OfferItemID  *uuid.UUID     `json:"offer_item_id,omitempty"`
	OfferService *ServiceOffer  `json:"offer_service,omitempty"`
	Message      string         `json:"message,omitempty"`
	Status       ProposalStatus `json:"status"`
	CreatedAt    time.Time      `json:"created_at"`
	ExpiresAt    time.Time      `json:"expires_at"`
	UpdatedAt    time.Time      `json:"updated_at"`

	// Extra fields for API responses
	TargetItem  *SwapItem `json:"target_item,omitempty"`
	OfferItem   *SwapItem `json:"offer_item,omitempty"`
	Proposer    *User     `json:"proposer,omitempty"`
	TargetOwner *User     `json:"target_owner,omitempty"`
}

// Overdue reports whether a pending proposal has passed its expiry window
func (p *Proposal) Overdue(now time.Time) bool {
	return p.Status == ProposalStatusPending && now.After(p.ExpiresAt)
}

// Terminal reports whether the proposal can no longer change state
func (p *Proposal) Terminal() bool {
	return p.Status != ProposalStatusPending
}

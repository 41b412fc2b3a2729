package models

import (
	"time"

	"github.com/google/uuid"
)

// ReservationStatus represents the state of an interest reservation
type ReservationStatus string

const (
	ReservationStatusActive   ReservationStatus = "active"
	ReservationStatusExpired  ReservationStatus = "expired"
	ReservationStatusConsumed ReservationStatus = "consumed"
)

// Reservation represents a time-boxed "like" of an item by a user.
// At most one non-expired reservation exists per (item, liker) pair.
type Reservation struct {
	ID        uuid.UUID         `json:"id"`
	ItemID    uuid.UUID         `json:"item_id"`
	LikerID   uuid.UUID         `json:"liker_id"`
	Status    ReservationStatus `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
	ExpiresAt time.Time         `json:"expires_at"`

	// Extra fields for API responses
	Item *SwapItem `json:"item,omitempty"`
}

// EffectiveStatus evaluates expiry against the given clock. Stored status is
// never mutated by a background process; expiry is computed at read time.
func (r *Reservation) EffectiveStatus(now time.Time) ReservationStatus {
	if r.Status == ReservationStatusActive && now.After(r.ExpiresAt) {
		return ReservationStatusExpired
	}
	return r.Status
}

// Overdue reports whether an active reservation has passed its TTL
func (r *Reservation) Overdue(now time.Time) bool {
	return r.Status == ReservationStatusActive && now.After(r.ExpiresAt)
}

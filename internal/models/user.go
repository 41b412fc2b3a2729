package models

import "github.com/google/uuid"

// User represents read-only profile display data for API enrichment.
// Profiles are owned by the identity platform and never mutated here.
type User struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name,omitempty"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	Country     string    `json:"country,omitempty"`
}

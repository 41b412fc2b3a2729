package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ItemStatus represents the lifecycle state of a swap item
type ItemStatus string

const (
	ItemStatusActive   ItemStatus = "active"
	ItemStatusReserved ItemStatus = "reserved"
	ItemStatusTraded   ItemStatus = "traded"
	ItemStatusRemoved  ItemStatus = "removed"
)

// ItemCondition describes how worn an item is
type ItemCondition string

const (
	ConditionLikeNew   ItemCondition = "like_new"
	ConditionGood      ItemCondition = "good"
	ConditionWellLoved ItemCondition = "well_loved"
	ConditionVintage   ItemCondition = "vintage"
)

// ValidConditions lists the accepted condition values
var ValidConditions = map[ItemCondition]bool{
	ConditionLikeNew:   true,
	ConditionGood:      true,
	ConditionWellLoved: true,
	ConditionVintage:   true,
}

// ValidCategories lists the accepted listing categories
var ValidCategories = map[string]bool{
	"toys":     true,
	"clothing": true,
	"books":    true,
	"crafts":   true,
	"tools":    true,
	"services": true,
	"other":    true,
}

// MaxItemImages caps the number of images per listing
const MaxItemImages = 5

// ItemImage represents one image attached to a swap item
type ItemImage struct {
	ID        uuid.UUID `json:"id"`
	ItemID    uuid.UUID `json:"item_id"`
	URL       string    `json:"url"`
	IsMain    bool      `json:"is_main"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

// SwapItem represents a listing in the marketplace
type SwapItem struct {
	ID                      uuid.UUID     `json:"id"`
	OwnerID                 uuid.UUID     `json:"owner_id"`
	Title                   string        `json:"title"`
	Description             string        `json:"description"`
	Category                string        `json:"category"`
	Condition               ItemCondition `json:"condition"`
	ContainsSpecialMaterial bool          `json:"contains_special_material"`
	MaterialPercentage      *int          `json:"material_percentage,omitempty"`
	Images                  []ItemImage   `json:"images"`
	Country                 string        `json:"country"`
	City                    string        `json:"city"`
	WillingToShip           bool          `json:"willing_to_ship"`
	Story                   string        `json:"story"`
	YearsInUse              *int          `json:"years_in_use,omitempty"`
	Status                  ItemStatus    `json:"status"`
	PowerLevel              int           `json:"power_level"`
	CreatedAt               time.Time     `json:"created_at"`
	UpdatedAt               time.Time     `json:"updated_at"`

	// Extra fields for API responses
	Owner *User `json:"owner,omitempty"`
}

// MarshalJSON attaches the derived rarity tier to every serialized item
func (i SwapItem) MarshalJSON() ([]byte, error) {
	type alias SwapItem
	return json.Marshal(struct {
		alias
		Rarity string `json:"rarity"`
	}{
		alias:  alias(i),
		Rarity: RarityTier(i.PowerLevel),
	})
}

// powerRule is one line of the power-level scoring table. Every rule that
// applies adds its weight on top of the base level of 1.
type powerRule struct {
	Name    string
	Weight  int
	Applies func(*SwapItem) bool
}

// PowerRules is the declarative scoring table. The score is a pure function
// of the item's attributes; adding a qualifying attribute never lowers it.
var PowerRules = []powerRule{
	{"long_description", 1, func(i *SwapItem) bool { return len(i.Description) > 20 }},
	{"has_image", 1, func(i *SwapItem) bool { return len(i.Images) >= 1 }},
	{"has_gallery", 1, func(i *SwapItem) bool { return len(i.Images) >= 3 }},
	{"has_story", 1, func(i *SwapItem) bool { return len(i.Story) > 20 }},
	{"has_country", 1, func(i *SwapItem) bool { return i.Country != "" }},
	{"has_city", 1, func(i *SwapItem) bool { return i.City != "" }},
	{"special_material", 1, func(i *SwapItem) bool { return i.ContainsSpecialMaterial }},
	{"has_age", 1, func(i *SwapItem) bool { return i.YearsInUse != nil }},
	{"ships", 1, func(i *SwapItem) bool { return i.WillingToShip }},
}

const (
	minPowerLevel = 1
	maxPowerLevel = 10
)

// ComputePowerLevel folds the scoring table over an item. Result is always
// in [1,10] and is recomputed on every create/update, never client-set.
func ComputePowerLevel(item *SwapItem) int {
	level := minPowerLevel
	for _, rule := range PowerRules {
		if rule.Applies(item) {
			level += rule.Weight
		}
	}
	if level > maxPowerLevel {
		level = maxPowerLevel
	}
	return level
}

// Rarity tier labels, presentation only
const (
	RarityLegendary = "LEGENDARY"
	RarityEpic      = "EPIC"
	RarityRare      = "RARE"
	RarityUncommon  = "UNCOMMON"
	RarityCommon    = "COMMON"
)

// RarityTier maps a power level to its display tier. It never gates behavior.
func RarityTier(level int) string {
	switch {
	case level >= 10:
		return RarityLegendary
	case level >= 9:
		return RarityEpic
	case level >= 7:
		return RarityRare
	case level >= 4:
		return RarityUncommon
	default:
		return RarityCommon
	}
}

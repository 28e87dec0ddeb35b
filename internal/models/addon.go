package models

const (
	PricingFlat   = "flat"
	PricingTiered = "tiered"
)

// AddOn is an optional extra (child seat, insurance, ...).
type AddOn struct {
	ID          string      `json:"_id" yaml:"id" toml:"id"`
	Name        string      `json:"name" yaml:"name" toml:"name"`
	Type        string      `json:"type,omitempty" yaml:"type" toml:"type"`
	PricingType string      `json:"pricingType" yaml:"pricing_type" toml:"pricing_type"`
	Amount      float64     `json:"amount" yaml:"amount" toml:"amount"`
	IsPerDay    bool        `json:"isPerDay" yaml:"is_per_day" toml:"is_per_day"`
	Tiers       []AddOnTier `json:"tiers,omitempty" yaml:"tiers" toml:"tiers"`
}

// AddOnTier prices an add-on for an inclusive range of rental days.
type AddOnTier struct {
	MinDays int     `json:"minDays" yaml:"min_days" toml:"min_days"`
	MaxDays int     `json:"maxDays" yaml:"max_days" toml:"max_days"`
	Price   float64 `json:"price" yaml:"price" toml:"price"`
}

// AddOnSelection is one add-on chosen on a reservation.
type AddOnSelection struct {
	AddOnID           string `json:"addOn"`
	Quantity          int    `json:"quantity"`
	SelectedTierIndex *int   `json:"selectedTierIndex,omitempty"`
	// UseMatchingTier asks for the tier covering the current day count
	// instead of SelectedTierIndex.
	UseMatchingTier bool `json:"useMatchingTier,omitempty"`
}

package models

import "encoding/json"

const (
	GearManual    = "manual"
	GearAutomatic = "automatic"
)

// Category is a van class with its rate table.
type Category struct {
	ID             string        `json:"_id" yaml:"id" toml:"id"`
	Name           string        `json:"name" yaml:"name" toml:"name"`
	PricingTiers   []PricingTier `json:"pricingTiers" yaml:"pricing_tiers" toml:"pricing_tiers"`
	Deposit        float64       `json:"deposit" yaml:"deposit" toml:"deposit"`
	ExtraHoursRate float64       `json:"extrahoursRate" yaml:"extra_hours_rate" toml:"extra_hours_rate"`
	Gear           *Gear         `json:"gear,omitempty" yaml:"gear" toml:"gear"`
	// SellOffer is a promotional percentage taken off the listed rate.
	SellOffer *float64 `json:"selloffer,omitempty" yaml:"sell_offer" toml:"sell_offer"`
}

// Gear lists the transmissions offered for a category.
type Gear struct {
	AvailableTypes     []string `json:"availableTypes" yaml:"available_types" toml:"available_types"`
	AutomaticExtraCost float64  `json:"automaticExtraCost" yaml:"automatic_extra_cost" toml:"automatic_extra_cost"`
}

// Offers reports whether the given transmission type is available.
func (g *Gear) Offers(gearType string) bool {
	if g == nil {
		return false
	}
	for _, t := range g.AvailableTypes {
		if t == gearType {
			return true
		}
	}
	return false
}

// PricingTier maps an inclusive range of rental hours to a per-day rate.
type PricingTier struct {
	MinHours    int     `json:"minHours" yaml:"min_hours" toml:"min_hours"`
	MaxHours    int     `json:"maxHours" yaml:"max_hours" toml:"max_hours"`
	PricePerDay float64 `json:"pricePerDay" yaml:"price_per_day" toml:"price_per_day"`
}

// UnmarshalJSON accepts the legacy "pricePerHour" key, which the booking
// backend stores but bills per day.
func (t *PricingTier) UnmarshalJSON(data []byte) error {
	var raw struct {
		MinHours     int      `json:"minHours"`
		MaxHours     int      `json:"maxHours"`
		PricePerDay  *float64 `json:"pricePerDay"`
		PricePerHour *float64 `json:"pricePerHour"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t.MinHours = raw.MinHours
	t.MaxHours = raw.MaxHours
	switch {
	case raw.PricePerDay != nil:
		t.PricePerDay = *raw.PricePerDay
	case raw.PricePerHour != nil:
		t.PricePerDay = *raw.PricePerHour
	default:
		t.PricePerDay = 0
	}
	return nil
}

// Contains reports whether hours falls in the tier's inclusive range.
func (t PricingTier) Contains(hours int) bool {
	return hours >= t.MinHours && hours <= t.MaxHours
}

package pricing

import (
	"sort"
	"time"

	"vanrent/internal/models"
)

const hoursPerDay = 24

// RentalOptions tune the tiered calculator.
type RentalOptions struct {
	// GraceHours is the largest remainder folded into the last whole day at
	// no charge. Zero means every leftover hour is billed.
	GraceHours int
}

// RentalPrice is the tiered calculator's breakdown.
type RentalPrice struct {
	TotalHours     int     `json:"totalHours"`
	TotalDays      int     `json:"totalDays"`
	ExtraHours     int     `json:"extraHours"`
	PricePerDay    float64 `json:"pricePerDay"`
	ExtraHoursRate float64 `json:"extraHoursRate"`
	BasePrice      float64 `json:"basePrice"`
	ExtraPrice     float64 `json:"extraPrice"`
	TotalPrice     float64 `json:"totalPrice"`
}

// ValidateTiers checks that tiers form a partition of the duration axis:
// each range is well formed and consecutive ranges neither overlap nor
// leave a gap.
func ValidateTiers(tiers []models.PricingTier) error {
	if len(tiers) == 0 {
		return configErrorf(ErrInvalidTier, "no pricing tiers")
	}

	sorted := make([]models.PricingTier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MinHours < sorted[j].MinHours })

	for i, t := range sorted {
		if t.MinHours < 0 || t.MaxHours < t.MinHours {
			return configErrorf(ErrInvalidTier, "[%d, %d]", t.MinHours, t.MaxHours)
		}
		if t.PricePerDay < 0 {
			return configErrorf(ErrInvalidTier, "[%d, %d]: negative price", t.MinHours, t.MaxHours)
		}
		if i == 0 {
			continue
		}
		prev := sorted[i-1]
		switch {
		case t.MinHours <= prev.MaxHours:
			return configErrorf(ErrTierOverlap, "[%d, %d] and [%d, %d]", prev.MinHours, prev.MaxHours, t.MinHours, t.MaxHours)
		case t.MinHours > prev.MaxHours+1:
			return configErrorf(ErrTierGap, "hours %d-%d", prev.MaxHours+1, t.MinHours-1)
		}
	}
	return nil
}

// FindTier returns the single tier containing hours.
func FindTier(tiers []models.PricingTier, hours int) (models.PricingTier, error) {
	var (
		found   models.PricingTier
		matches int
	)
	for _, t := range tiers {
		if t.Contains(hours) {
			found = t
			matches++
		}
	}
	switch matches {
	case 0:
		return models.PricingTier{}, configErrorf(ErrNoMatchingTier, "%d hours", hours)
	case 1:
		return found, nil
	default:
		return models.PricingTier{}, configErrorf(ErrTierOverlap, "%d tiers contain %d hours", matches, hours)
	}
}

// BillableHours rounds the elapsed time up to whole hours.
func BillableHours(start, end time.Time) int {
	elapsed := end.Sub(start)
	return int((elapsed + time.Hour - 1) / time.Hour)
}

// CalculateRental prices [start, end) against tiers. Rentals shorter than a
// day are billed as one day. end <= start yields ErrQuoteNotReady.
func CalculateRental(start, end time.Time, tiers []models.PricingTier, extraHoursRate float64, opts RentalOptions) (*RentalPrice, error) {
	if start.IsZero() || end.IsZero() || !end.After(start) {
		return nil, ErrQuoteNotReady
	}

	totalHours := BillableHours(start, end)
	tier, err := FindTier(tiers, totalHours)
	if err != nil {
		return nil, err
	}

	days := totalHours / hoursPerDay
	remaining := totalHours - days*hoursPerDay
	if days == 0 {
		days, remaining = 1, 0
	}

	extraHours := 0
	if remaining > opts.GraceHours {
		extraHours = remaining
	}

	base := float64(days) * tier.PricePerDay
	extra := float64(extraHours) * extraHoursRate

	return &RentalPrice{
		TotalHours:     totalHours,
		TotalDays:      days,
		ExtraHours:     extraHours,
		PricePerDay:    tier.PricePerDay,
		ExtraHoursRate: extraHoursRate,
		BasePrice:      base,
		ExtraPrice:     extra,
		TotalPrice:     base + extra,
	}, nil
}

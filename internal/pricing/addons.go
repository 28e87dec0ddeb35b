package pricing

import (
	"fmt"

	"vanrent/internal/models"
)

// AddOnLine is the priced result of one selection.
type AddOnLine struct {
	AddOnID   string  `json:"addOn"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	TierIndex int     `json:"tierIndex"` // -1 for flat pricing
	UnitPrice float64 `json:"unitPrice"`
	Units     int     `json:"units"`
	Cost      float64 `json:"cost"`
}

// AddOnIssue flags a selection priced at zero because of catalog data.
type AddOnIssue struct {
	AddOnID string `json:"addOn"`
	Detail  string `json:"detail"`
	Err     error  `json:"-"`
}

type AddOnCost struct {
	Lines    []AddOnLine  `json:"lines"`
	Issues   []AddOnIssue `json:"issues,omitempty"`
	Subtotal float64      `json:"subtotal"`
}

// MatchingAddOnTier returns the index of the tier covering days, or -1.
func MatchingAddOnTier(addOn models.AddOn, days int) int {
	for i, t := range addOn.Tiers {
		if days >= t.MinDays && days <= t.MaxDays {
			return i
		}
	}
	return -1
}

// CalculateAddOns prices selections for a rental of days days. An explicit
// SelectedTierIndex is honoured unless UseMatchingTier is set. Selections
// without a usable tier contribute 0 and are reported in Issues.
func CalculateAddOns(selections []models.AddOnSelection, catalog []models.AddOn, days int) AddOnCost {
	byID := make(map[string]models.AddOn, len(catalog))
	for _, a := range catalog {
		byID[a.ID] = a
	}

	res := AddOnCost{Lines: make([]AddOnLine, 0, len(selections))}
	for _, sel := range selections {
		if sel.Quantity <= 0 {
			continue
		}
		addOn, ok := byID[sel.AddOnID]
		if !ok {
			res.Issues = append(res.Issues, AddOnIssue{AddOnID: sel.AddOnID, Detail: "not in catalog", Err: ErrUnknownAddOn})
			continue
		}

		units := 1
		if addOn.IsPerDay {
			units = days
		}

		line := AddOnLine{AddOnID: addOn.ID, Name: addOn.Name, Quantity: sel.Quantity, TierIndex: -1, Units: units}

		switch addOn.PricingType {
		case models.PricingTiered:
			idx := MatchingAddOnTier(addOn, days)
			if sel.SelectedTierIndex != nil && !sel.UseMatchingTier {
				idx = *sel.SelectedTierIndex
				if idx < 0 || idx >= len(addOn.Tiers) {
					res.Issues = append(res.Issues, AddOnIssue{
						AddOnID: addOn.ID,
						Detail:  fmt.Sprintf("tier %d of %d", idx, len(addOn.Tiers)),
						Err:     ErrAddOnTierIndex,
					})
					line.TierIndex = idx
					res.Lines = append(res.Lines, line)
					continue
				}
			} else if idx < 0 {
				res.Issues = append(res.Issues, AddOnIssue{
					AddOnID: addOn.ID,
					Detail:  fmt.Sprintf("%d days", days),
					Err:     ErrAddOnTierMissing,
				})
				res.Lines = append(res.Lines, line)
				continue
			}
			line.TierIndex = idx
			line.UnitPrice = addOn.Tiers[idx].Price
		default:
			line.UnitPrice = addOn.Amount
		}

		line.Cost = line.UnitPrice * float64(units) * float64(sel.Quantity)
		res.Subtotal += line.Cost
		res.Lines = append(res.Lines, line)
	}
	return res
}

// Selections is an immutable list of add-on selections. Every method returns
// a new value and leaves the receiver untouched.
type Selections []models.AddOnSelection

// Select adds or replaces the selection for addOn. A quantity of zero or
// less deselects it. Selecting a typed add-on while a sibling of the same
// type is selected fails with ErrAddOnTypeTaken.
func (s Selections) Select(addOn models.AddOn, quantity int, tierIndex *int, catalog []models.AddOn) (Selections, error) {
	if quantity <= 0 {
		return s.Deselect(addOn.ID), nil
	}

	if addOn.Type != "" {
		types := typesByID(catalog)
		for _, sel := range s {
			if sel.AddOnID != addOn.ID && types[sel.AddOnID] == addOn.Type {
				return s, fmt.Errorf("%w: %s blocks %s", ErrAddOnTypeTaken, sel.AddOnID, addOn.ID)
			}
		}
	}

	entry := models.AddOnSelection{AddOnID: addOn.ID, Quantity: quantity}
	if tierIndex != nil {
		idx := *tierIndex
		entry.SelectedTierIndex = &idx
	}

	out := make(Selections, 0, len(s)+1)
	replaced := false
	for _, sel := range s {
		if sel.AddOnID == addOn.ID {
			out = append(out, entry)
			replaced = true
			continue
		}
		out = append(out, sel)
	}
	if !replaced {
		out = append(out, entry)
	}
	return out, nil
}

// Deselect removes addOnID.
func (s Selections) Deselect(addOnID string) Selections {
	out := make(Selections, 0, len(s))
	for _, sel := range s {
		if sel.AddOnID != addOnID {
			out = append(out, sel)
		}
	}
	return out
}

// WithMatchingTiers asks every tiered selection to follow the current day
// count instead of its stored tier index.
func (s Selections) WithMatchingTiers() Selections {
	out := make(Selections, len(s))
	for i, sel := range s {
		sel.UseMatchingTier = true
		out[i] = sel
	}
	return out
}

// Disabled lists catalog add-ons that cannot be selected because a sibling
// of the same type already is.
func (s Selections) Disabled(catalog []models.AddOn) map[string]bool {
	types := typesByID(catalog)
	takenBy := make(map[string]string)
	for _, sel := range s {
		if t := types[sel.AddOnID]; t != "" {
			takenBy[t] = sel.AddOnID
		}
	}

	disabled := make(map[string]bool)
	for _, a := range catalog {
		if owner, ok := takenBy[a.Type]; ok && a.Type != "" && owner != a.ID {
			disabled[a.ID] = true
		}
	}
	return disabled
}

func typesByID(catalog []models.AddOn) map[string]string {
	types := make(map[string]string, len(catalog))
	for _, a := range catalog {
		types[a.ID] = a.Type
	}
	return types
}

package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vanrent/internal/models"
)

func TestCalculateAddOns_FlatPerDayTimesQuantity(t *testing.T) {
	catalog := []models.AddOn{{ID: "gps", Name: "GPS", PricingType: models.PricingFlat, Amount: 10, IsPerDay: true}}

	got := CalculateAddOns([]models.AddOnSelection{{AddOnID: "gps", Quantity: 2}}, catalog, 3)

	assert.Equal(t, 60.0, got.Subtotal)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, 3, got.Lines[0].Units)
	assert.Equal(t, -1, got.Lines[0].TierIndex)
	assert.Empty(t, got.Issues)
}

func TestCalculateAddOns_FlatOnce(t *testing.T) {
	got := CalculateAddOns([]models.AddOnSelection{{AddOnID: "cleaning", Quantity: 1}}, testAddOns(), 5)
	assert.Equal(t, 30.0, got.Subtotal)
}

func TestCalculateAddOns_Tiered(t *testing.T) {
	catalog := testAddOns()

	t.Run("matching tier", func(t *testing.T) {
		got := CalculateAddOns([]models.AddOnSelection{{AddOnID: "insurance-basic", Quantity: 1}}, catalog, 4)
		assert.Equal(t, 40.0, got.Subtotal)
		assert.Equal(t, 1, got.Lines[0].TierIndex)
	})

	t.Run("selected tier wins after duration change", func(t *testing.T) {
		sel := []models.AddOnSelection{{AddOnID: "insurance-basic", Quantity: 1, SelectedTierIndex: intPtr(0)}}
		got := CalculateAddOns(sel, catalog, 4)
		assert.Equal(t, 48.0, got.Subtotal)
		assert.Equal(t, 0, got.Lines[0].TierIndex)
	})

	t.Run("caller asks for matching tier", func(t *testing.T) {
		sel := Selections{{AddOnID: "insurance-basic", Quantity: 1, SelectedTierIndex: intPtr(0)}}.WithMatchingTiers()
		got := CalculateAddOns(sel, catalog, 4)
		assert.Equal(t, 40.0, got.Subtotal)
	})

	t.Run("no tier covers days", func(t *testing.T) {
		sel := []models.AddOnSelection{
			{AddOnID: "insurance-full", Quantity: 1},
			{AddOnID: "cleaning", Quantity: 1},
		}
		got := CalculateAddOns(sel, catalog, 10)
		assert.Equal(t, 30.0, got.Subtotal)
		require.Len(t, got.Issues, 1)
		assert.Equal(t, "insurance-full", got.Issues[0].AddOnID)
		assert.ErrorIs(t, got.Issues[0].Err, ErrAddOnTierMissing)
		require.Len(t, got.Lines, 2, "flagged add-on stays visible with zero cost")
		assert.Equal(t, 0.0, got.Lines[0].Cost)
	})

	t.Run("selected tier out of range", func(t *testing.T) {
		sel := []models.AddOnSelection{{AddOnID: "insurance-full", Quantity: 1, SelectedTierIndex: intPtr(3)}}
		got := CalculateAddOns(sel, catalog, 2)
		assert.Equal(t, 0.0, got.Subtotal)
		require.Len(t, got.Issues, 1)
		assert.ErrorIs(t, got.Issues[0].Err, ErrAddOnTierIndex)
	})
}

func TestCalculateAddOns_UnknownAndZeroQuantity(t *testing.T) {
	sel := []models.AddOnSelection{{AddOnID: "ghost", Quantity: 1}, {AddOnID: "gps", Quantity: 0}}
	got := CalculateAddOns(sel, testAddOns(), 2)

	assert.Equal(t, 0.0, got.Subtotal)
	assert.Empty(t, got.Lines)
	require.Len(t, got.Issues, 1)
	assert.ErrorIs(t, got.Issues[0].Err, ErrUnknownAddOn)
}

func TestSelections_SelectDeselectRoundTrip(t *testing.T) {
	catalog := testAddOns()
	base, err := Selections{}.Select(catalog[0], 2, nil, catalog)
	require.NoError(t, err)
	before := CalculateAddOns(base, catalog, 3).Subtotal

	with, err := base.Select(catalog[1], 1, nil, catalog)
	require.NoError(t, err)
	assert.Greater(t, CalculateAddOns(with, catalog, 3).Subtotal, before)

	after := with.Deselect(catalog[1].ID)
	assert.Equal(t, before, CalculateAddOns(after, catalog, 3).Subtotal)
	assert.Equal(t, base, after)
	assert.Len(t, with, 2, "receiver untouched")
}

func TestSelections_SelectReplacesQuantity(t *testing.T) {
	catalog := testAddOns()
	s, err := Selections{}.Select(catalog[0], 1, nil, catalog)
	require.NoError(t, err)
	s, err = s.Select(catalog[0], 3, nil, catalog)
	require.NoError(t, err)

	require.Len(t, s, 1)
	assert.Equal(t, 3, s[0].Quantity)

	s, err = s.Select(catalog[0], 0, nil, catalog)
	require.NoError(t, err)
	assert.Empty(t, s)
}

func TestSelections_TypeExclusivity(t *testing.T) {
	catalog := testAddOns()
	basic, full := catalog[2], catalog[3]

	s, err := Selections{}.Select(basic, 1, intPtr(0), catalog)
	require.NoError(t, err)

	disabled := s.Disabled(catalog)
	assert.True(t, disabled[full.ID])
	assert.False(t, disabled[basic.ID])
	assert.False(t, disabled["gps"])

	blocked, err := s.Select(full, 1, nil, catalog)
	assert.ErrorIs(t, err, ErrAddOnTypeTaken)
	assert.Equal(t, s, blocked)

	s = s.Deselect(basic.ID)
	assert.Empty(t, s.Disabled(catalog))
	s, err = s.Select(full, 1, nil, catalog)
	require.NoError(t, err)
	assert.True(t, s.Disabled(catalog)[basic.ID])
}

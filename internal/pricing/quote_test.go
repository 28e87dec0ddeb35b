package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vanrent/internal/models"
)

func readyDraft() Draft {
	return NewDraft().
		WithOffice(testOffice()).
		WithCategory(testCategory()).
		WithPickup(at(monday, "10:00")).
		WithReturn(at(monday, "10:00").Add(30 * time.Hour))
}

func testInputs() Inputs {
	return Inputs{
		AddOnCatalog: testAddOns(),
		Discounts:    testDiscounts(),
		Now:          monday.Add(8 * time.Hour),
		Currency:     "EUR",
	}
}

func TestAssemble_Pending(t *testing.T) {
	res := Assemble(NewDraft(), testInputs())
	assert.Equal(t, ResultPending, res.Kind)
	assert.Nil(t, res.Quote)
	assert.Equal(t, []string{"office", "category", "pickup", "return"}, res.Missing)
	assert.ErrorIs(t, res.Err, ErrQuoteNotReady)

	res = Assemble(readyDraft().WithReturn(at(monday, "09:00")), testInputs())
	assert.Equal(t, ResultPending, res.Kind)
	assert.Empty(t, res.Missing)
}

func TestAssemble_ConfigError(t *testing.T) {
	cat := testCategory()
	cat.PricingTiers = []models.PricingTier{{MinHours: 1, MaxHours: 23, PricePerDay: 60}}

	res := Assemble(readyDraft().WithCategory(cat), testInputs())
	assert.Equal(t, ResultConfigError, res.Kind)
	assert.Nil(t, res.Quote)
	assert.ErrorIs(t, res.Err, ErrNoMatchingTier)
	assert.NotEmpty(t, res.Detail)

	cat.PricingTiers = []models.PricingTier{{MinHours: 1, MaxHours: 23}, {MinHours: 30, MaxHours: 100}}
	res = Assemble(readyDraft().WithCategory(cat), testInputs())
	assert.Equal(t, ResultConfigError, res.Kind)
	assert.ErrorIs(t, res.Err, ErrTierGap)

	office := testOffice()
	office.WorkingTime[0].StartTime = "nine"
	res = Assemble(readyDraft().WithOffice(office), testInputs())
	assert.Equal(t, ResultConfigError, res.Kind)
	assert.ErrorIs(t, res.Err, ErrInvalidTime)
}

func TestAssemble_RentalOnly(t *testing.T) {
	res := Assemble(readyDraft(), testInputs())
	require.Equal(t, ResultOK, res.Kind)

	q := res.Quote
	assert.Equal(t, 1, q.TotalDays)
	assert.Equal(t, 6, q.ExtraHours)
	assert.Equal(t, 50.0, q.PricePerDay)
	assert.Equal(t, 80.0, q.TotalPrice)
	assert.Nil(t, q.DiscountAmount)
	assert.Nil(t, q.Discount)
	assert.Equal(t, 300.0, q.Deposit)
	assert.Contains(t, q.Breakdown, "total: 80.00 EUR")
}

func TestAssemble_FullComposition(t *testing.T) {
	addOns, err := Selections{}.Select(testAddOns()[0], 2, nil, testAddOns())
	require.NoError(t, err)

	// Monday 08:00 pickup (extension 15), Wednesday 18:00 return on a plain
	// Wednesday (no extension rule), 58 hours.
	d := readyDraft().
		WithPickup(at(monday, "08:00")).
		WithReturn(at(monday.AddDate(0, 0, 2), "18:00")).
		WithGear(models.GearAutomatic).
		WithAddOns(addOns).
		WithCustomer("cust-1").
		WithDiscountCode(" spring20 ")

	res := Assemble(d, testInputs())
	require.Equal(t, ResultOK, res.Kind, res.Detail)
	q := res.Quote

	assert.Equal(t, 58, q.TotalHours)
	assert.Equal(t, 2, q.TotalDays)
	assert.Equal(t, 10, q.ExtraHours)
	assert.Equal(t, 130.0, q.RentalPrice) // 2*40 + 10*5
	assert.Equal(t, 15.0, q.PickupExtensionFee)
	assert.Equal(t, 0.0, q.ReturnExtensionFee)
	assert.Equal(t, 25.0, q.GearSurcharge)
	assert.Equal(t, 40.0, q.AddOnSubtotal) // 10 * 2 days * 2
	assert.Equal(t, 210.0, q.Subtotal)
	require.NotNil(t, q.Discount)
	assert.True(t, q.Discount.Valid)
	require.NotNil(t, q.DiscountAmount)
	assert.Equal(t, 42.0, *q.DiscountAmount)
	assert.Equal(t, 168.0, q.TotalPrice)
	assert.Contains(t, q.Breakdown, "discount SPRING20 (20%): -42.00")
}

func TestAssemble_ReturnExtension(t *testing.T) {
	d := readyDraft().WithReturn(at(monday.AddDate(0, 0, 7), "19:00"))
	res := Assemble(d, testInputs())
	require.Equal(t, ResultOK, res.Kind)
	assert.Equal(t, 20.0, res.Quote.ReturnExtensionFee)
}

func TestAssemble_GearSurchargeNeedsBothTypes(t *testing.T) {
	cat := testCategory()
	cat.Gear.AvailableTypes = []string{models.GearAutomatic}

	res := Assemble(readyDraft().WithCategory(cat).WithGear(models.GearAutomatic), testInputs())
	require.Equal(t, ResultOK, res.Kind)
	assert.Equal(t, 0.0, res.Quote.GearSurcharge)

	res = Assemble(readyDraft().WithGear(models.GearManual), testInputs())
	assert.Equal(t, 0.0, res.Quote.GearSurcharge)
}

func TestAssemble_InvalidCodeStillQuotes(t *testing.T) {
	res := Assemble(readyDraft().WithDiscountCode("NOPE"), testInputs())
	require.Equal(t, ResultOK, res.Kind)

	q := res.Quote
	assert.Equal(t, 80.0, q.TotalPrice)
	assert.Nil(t, q.DiscountAmount)
	require.NotNil(t, q.Discount)
	assert.Equal(t, ReasonNotFound, q.Discount.Reason)
}

func TestAssemble_SellOfferBeforeTierLookupAndIndependentOfCode(t *testing.T) {
	cat := testCategory()
	cat.SellOffer = floatPtr(10)

	res := Assemble(readyDraft().WithCategory(cat).WithCustomer("cust-1").WithDiscountCode("SPRING20"), testInputs())
	require.Equal(t, ResultOK, res.Kind)

	q := res.Quote
	assert.Equal(t, 50.0, q.ListPricePerDay)
	assert.Equal(t, 45.0, q.PricePerDay)
	assert.Equal(t, 5.0, q.ExtraHoursRate, "sell-off touches listed day rates only")
	assert.Equal(t, 75.0, q.Subtotal)
	assert.Equal(t, 15.0, *q.DiscountAmount)
	assert.Equal(t, 60.0, q.TotalPrice)
}

func TestAssemble_Idempotent(t *testing.T) {
	d := readyDraft().WithCustomer("cust-1").WithDiscountCode("SPRING20")
	first := Assemble(d, testInputs())
	second := Assemble(d, testInputs())
	assert.Equal(t, first, second)
}

func TestDraft_IsValue(t *testing.T) {
	base := readyDraft()
	changed := base.WithGear(models.GearAutomatic).WithPickup(at(monday, "12:00"))

	assert.Equal(t, models.GearManual, base.GearType())
	assert.Equal(t, at(monday, "10:00"), base.Pickup())
	assert.Equal(t, models.GearAutomatic, changed.GearType())

	sel := Selections{{AddOnID: "gps", Quantity: 1}}
	withAddOns := base.WithAddOns(sel)
	sel[0].Quantity = 9
	assert.Equal(t, 1, withAddOns.AddOns()[0].Quantity)
}

func TestAssemble_AddOnIssueSurfaces(t *testing.T) {
	d := readyDraft().
		WithReturn(at(monday.AddDate(0, 0, 10), "10:00")).
		WithAddOns(Selections{{AddOnID: "insurance-full", Quantity: 1}})

	res := Assemble(d, testInputs())
	require.Equal(t, ResultOK, res.Kind)
	require.Len(t, res.Quote.AddOnIssues, 1)
	assert.Equal(t, 0.0, res.Quote.AddOnSubtotal)
}

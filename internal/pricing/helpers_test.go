package pricing

import (
	"time"

	"vanrent/internal/models"
)

// monday is 2026-03-02.
var monday = time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)

func at(day time.Time, hhmm string) time.Time {
	t, err := ParseTimeOfDay(hhmm)
	if err != nil {
		panic(err)
	}
	return t.On(day)
}

func intPtr(v int) *int { return &v }

func boolPtr(v bool) *bool { return &v }

func floatPtr(v float64) *float64 { return &v }

func testOffice() models.Office {
	return models.Office{
		ID:   "office-1",
		Name: "Central",
		WorkingTime: []models.WorkingDay{
			{
				Day: "Monday", IsOpen: true, StartTime: "09:00", EndTime: "17:00",
				PickupExtension: &models.ExtensionRule{HoursBefore: 2, HoursAfter: 0, FlatPrice: 15},
				ReturnExtension: &models.ExtensionRule{HoursBefore: 0, HoursAfter: 3, FlatPrice: 20},
			},
			{Day: "Tuesday", IsOpen: true, StartTime: "09:00", EndTime: "17:00"},
			{Day: "Wednesday", IsOpen: true, StartTime: "09:00", EndTime: "17:00"},
			{Day: "Thursday", IsOpen: true, StartTime: "09:00", EndTime: "17:00"},
			{Day: "Friday", IsOpen: true, StartTime: "09:00", EndTime: "17:00"},
			{Day: "Saturday", IsOpen: true, StartTime: "10:00", EndTime: "14:00"},
			{Day: "Sunday", IsOpen: false},
		},
		SpecialDays: []models.SpecialDay{
			{Month: 12, Day: 25, IsOpen: false},
			{Month: 12, Day: 24, IsOpen: true, StartTime: "09:00", EndTime: "12:00"},
		},
	}
}

func testCategory() models.Category {
	return models.Category{
		ID:   "cat-van",
		Name: "Cargo van",
		PricingTiers: []models.PricingTier{
			{MinHours: 1, MaxHours: 23, PricePerDay: 60},
			{MinHours: 24, MaxHours: 47, PricePerDay: 50},
			{MinHours: 48, MaxHours: 1000, PricePerDay: 40},
		},
		Deposit:        300,
		ExtraHoursRate: 5,
		Gear: &models.Gear{
			AvailableTypes:     []string{models.GearManual, models.GearAutomatic},
			AutomaticExtraCost: 25,
		},
	}
}

func testAddOns() []models.AddOn {
	return []models.AddOn{
		{ID: "gps", Name: "GPS", PricingType: models.PricingFlat, Amount: 10, IsPerDay: true},
		{ID: "cleaning", Name: "Cleaning", PricingType: models.PricingFlat, Amount: 30},
		{
			ID: "insurance-basic", Name: "Basic insurance", Type: "insurance", PricingType: models.PricingTiered, IsPerDay: true,
			Tiers: []models.AddOnTier{{MinDays: 1, MaxDays: 2, Price: 12}, {MinDays: 3, MaxDays: 7, Price: 10}},
		},
		{
			ID: "insurance-full", Name: "Full insurance", Type: "insurance", PricingType: models.PricingTiered,
			Tiers: []models.AddOnTier{{MinDays: 1, MaxDays: 7, Price: 90}},
		},
	}
}

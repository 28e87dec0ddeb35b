package service

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"vanrent/internal/config"
	"vanrent/internal/database"
	"vanrent/internal/events"
	"vanrent/internal/models"
	"vanrent/internal/pricing"
	"vanrent/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// monday is 2026-03-02.
var monday = time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)

func at(day time.Time, hhmm string) time.Time {
	t, err := pricing.ParseTimeOfDay(hhmm)
	if err != nil {
		panic(err)
	}
	return t.On(day)
}

func intPtr(v int) *int { return &v }

func testCatalog() *config.Catalog {
	return &config.Catalog{
		Offices: []models.Office{{
			ID:   "lisbon",
			Name: "Lisbon",
			WorkingTime: []models.WorkingDay{
				{
					Day: "Monday", IsOpen: true, StartTime: "09:00", EndTime: "17:00",
					PickupExtension: &models.ExtensionRule{HoursBefore: 2, FlatPrice: 15},
					ReturnExtension: &models.ExtensionRule{HoursAfter: 3, FlatPrice: 20},
				},
				{Day: "Tuesday", IsOpen: true, StartTime: "09:00", EndTime: "17:00"},
				{Day: "Wednesday", IsOpen: true, StartTime: "09:00", EndTime: "17:00"},
				{Day: "Thursday", IsOpen: true, StartTime: "09:00", EndTime: "17:00"},
				{Day: "Friday", IsOpen: true, StartTime: "09:00", EndTime: "17:00"},
				{Day: "Saturday", IsOpen: true, StartTime: "10:00", EndTime: "14:00"},
				{Day: "Sunday", IsOpen: false},
			},
		}},
		Categories: []models.Category{{
			ID:   "van-l",
			Name: "Large van",
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
		}},
		AddOns: []models.AddOn{
			{ID: "gps", Name: "GPS", PricingType: models.PricingFlat, Amount: 10, IsPerDay: true},
			{
				ID: "insurance-basic", Name: "Basic insurance", Type: "insurance", PricingType: models.PricingTiered, IsPerDay: true,
				Tiers: []models.AddOnTier{{MinDays: 1, MaxDays: 2, Price: 12}, {MinDays: 3, MaxDays: 7, Price: 10}},
			},
			{
				ID: "insurance-full", Name: "Full insurance", Type: "insurance", PricingType: models.PricingTiered,
				Tiers: []models.AddOnTier{{MinDays: 1, MaxDays: 7, Price: 90}},
			},
		},
		Discounts: []models.Discount{
			{
				Code: "SPRING20", Percentage: 20,
				ValidFrom: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
				ValidTo:   time.Date(2026, 12, 31, 23, 59, 59, 0, time.UTC),
			},
			{
				Code: "ONCE", Percentage: 10, UsageLimit: intPtr(1),
				ValidFrom: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
				ValidTo:   time.Date(2026, 12, 31, 23, 59, 59, 0, time.UTC),
			},
		},
	}
}

// recorder collects published events by type.
type recorder struct {
	mu     sync.Mutex
	events map[string][]*events.Event
}

func newRecorder(bus *events.EventBus) *recorder {
	r := &recorder{events: make(map[string][]*events.Event)}
	for _, typ := range []string{
		events.EventQuoteComputed, events.EventReservationCreated,
		events.EventReservationCanceled, events.EventReservationConfirmed,
		events.EventDiscountRedeemed,
	} {
		bus.Subscribe(typ, func(e *events.Event) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events[e.Type] = append(r.events[e.Type], e)
			return nil
		})
	}
	return r
}

func (r *recorder) count(typ string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events[typ])
}

type fixture struct {
	svc    *BookingService
	db     *database.DB
	cache  *repository.MemorySlotCache
	events *recorder
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	logger := zerolog.New(io.Discard)

	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	catalog := NewCatalogService(testCatalog(), &logger)
	cache := repository.NewMemorySlotCache(time.Minute)
	bus := events.NewEventBus(&logger)

	svc := NewBookingService(catalog, db, cache, bus, opts, &logger)
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	return &fixture{svc: svc, db: db, cache: cache, events: newRecorder(bus)}
}

// fullRequest is Monday 08:00 (early pickup) to Wednesday 17:00, automatic,
// GPS and SPRING20.
func fullRequest() QuoteRequest {
	return QuoteRequest{
		OfficeID:     "lisbon",
		CategoryID:   "van-l",
		CustomerID:   "cust-1",
		Pickup:       at(monday, "08:00"),
		Return:       at(monday.AddDate(0, 0, 2), "17:00"),
		GearType:     models.GearAutomatic,
		AddOns:       []models.AddOnSelection{{AddOnID: "gps", Quantity: 1}},
		DiscountCode: "spring20",
	}
}

func storeReservation(t *testing.T, db *database.DB, start, end time.Time) *models.Reservation {
	t.Helper()
	r := &models.Reservation{
		OfficeID: "lisbon", CategoryID: "van-l", CustomerID: "walk-in",
		StartDate: start, EndDate: end, TotalPrice: 60,
	}
	require.NoError(t, db.CreateReservationWithLock(context.Background(), r))
	return r
}

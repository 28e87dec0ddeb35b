package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"vanrent/internal/config"
	"vanrent/internal/models"
	"vanrent/internal/pricing"
	"vanrent/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockBookings struct {
	mock.Mock
}

func (m *mockBookings) AvailableSlots(ctx context.Context, req service.SlotsRequest) (*service.SlotsResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*service.SlotsResponse)
	return resp, args.Error(1)
}

func (m *mockBookings) Quote(ctx context.Context, req service.QuoteRequest) (*service.QuoteResult, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*service.QuoteResult)
	return resp, args.Error(1)
}

func (m *mockBookings) CheckDiscount(ctx context.Context, req service.DiscountRequest) (pricing.Eligibility, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(pricing.Eligibility), args.Error(1)
}

func (m *mockBookings) CreateReservation(ctx context.Context, req service.QuoteRequest) (*service.Booking, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*service.Booking)
	return resp, args.Error(1)
}

func (m *mockBookings) GetReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	args := m.Called(ctx, id)
	resp, _ := args.Get(0).(*models.Reservation)
	return resp, args.Error(1)
}

func (m *mockBookings) CancelReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	args := m.Called(ctx, id)
	resp, _ := args.Get(0).(*models.Reservation)
	return resp, args.Error(1)
}

func (m *mockBookings) ConfirmReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	args := m.Called(ctx, id)
	resp, _ := args.Get(0).(*models.Reservation)
	return resp, args.Error(1)
}

func (m *mockBookings) Location() *time.Location {
	return time.UTC
}

func intPtr(v int) *int { return &v }

// monday is 2030-03-04.
var monday = time.Date(2030, time.March, 4, 0, 0, 0, 0, time.UTC)

func testCatalog() *config.Catalog {
	return &config.Catalog{
		Offices: []models.Office{{
			ID:   "porto",
			Name: "Porto",
			WorkingTime: []models.WorkingDay{
				{
					Day: "Monday", IsOpen: true, StartTime: "09:00", EndTime: "17:00",
					PickupExtension: &models.ExtensionRule{HoursBefore: 2, FlatPrice: 10},
				},
				{Day: "Tuesday", IsOpen: true, StartTime: "09:00", EndTime: "17:00"},
				{Day: "Wednesday", IsOpen: true, StartTime: "09:00", EndTime: "17:00"},
				{Day: "Thursday", IsOpen: true, StartTime: "09:00", EndTime: "17:00"},
				{Day: "Friday", IsOpen: true, StartTime: "09:00", EndTime: "17:00"},
				{Day: "Saturday", IsOpen: false},
				{Day: "Sunday", IsOpen: false},
			},
		}},
		Categories: []models.Category{
			{
				ID: "van-m", Name: "Medium van", Deposit: 200, ExtraHoursRate: 4,
				PricingTiers: []models.PricingTier{
					{MinHours: 1, MaxHours: 47, PricePerDay: 55},
					{MinHours: 48, MaxHours: 1000, PricePerDay: 45},
				},
			},
			{
				ID: "van-a", Name: "Automatic van", ExtraHoursRate: 4,
				PricingTiers: []models.PricingTier{{MinHours: 1, MaxHours: 1000, PricePerDay: 70}},
			},
		},
		AddOns: []models.AddOn{
			{ID: "chair", Name: "Child seat", PricingType: models.PricingFlat, Amount: 5, IsPerDay: true},
		},
		Discounts: []models.Discount{{
			Code: "WELCOME", Percentage: 10, UsageLimit: intPtr(100),
			ValidFrom: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
			ValidTo:   time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC),
		}},
	}
}

func testLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func openAPIConfig() *config.APIConfig {
	return &config.APIConfig{
		Enabled: true,
		HTTP:    config.APIHTTPConfig{Enabled: true},
	}
}

func newTestHTTPServer(t *testing.T, cfg *config.APIConfig, bookings Bookings, opts HTTPOptions) *httptest.Server {
	t.Helper()
	catalog := service.NewCatalogService(testCatalog(), testLogger())
	srv := NewHTTPServer(cfg, bookings, catalog, nil, opts, testLogger())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func doRequest(t *testing.T, method, url, body string, headers map[string]string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

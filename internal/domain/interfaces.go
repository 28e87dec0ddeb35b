package domain

import (
	"context"
	"time"

	"vanrent/internal/models"
)

// SlotKey addresses cached reserved slots of one office, category and day.
// An empty CategoryID means all categories of the office.
type SlotKey struct {
	OfficeID   string
	CategoryID string
	Date       string
}

type ReservationStore interface {
	CreateReservationWithLock(ctx context.Context, r *models.Reservation) error
	GetReservation(ctx context.Context, id int64) (*models.Reservation, error)
	ListActiveReservations(ctx context.Context, officeID, categoryID string, from, to time.Time) ([]*models.Reservation, error)
	ReservedSlots(ctx context.Context, officeID, categoryID string, date time.Time, loc *time.Location) ([]models.ReservedSlot, error)
	UpdateReservationStatus(ctx context.Context, id int64, status string) error
	DiscountUsage(ctx context.Context, code string) (int, []string, error)
}

// SlotCache keeps reserved-slot lookups and discount attempt counters.
// A miss is reported by ok == false, not by an error.
type SlotCache interface {
	GetReserved(ctx context.Context, key SlotKey) ([]models.ReservedSlot, bool, error)
	SetReserved(ctx context.Context, key SlotKey, slots []models.ReservedSlot) error
	InvalidateOffice(ctx context.Context, officeID string) error
	CheckRateLimit(ctx context.Context, subject string, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

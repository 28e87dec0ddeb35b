package repository

import (
	"context"
	"sync/atomic"
	"time"

	"vanrent/internal/domain"
	"vanrent/internal/models"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverSlotCache serves from primary (Redis) and switches to fallback
// (memory) on the first error. Primary is retried once a minute.
type FailoverSlotCache struct {
	primary   domain.SlotCache
	fallback  domain.SlotCache
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
	now       func() time.Time
}

func NewFailoverSlotCache(primary, fallback domain.SlotCache, logger *zerolog.Logger) *FailoverSlotCache {
	return &FailoverSlotCache{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
	}
}

func (r *FailoverSlotCache) markDown(err error) {
	if !r.isDown.Swap(true) {
		r.logger.Error().Err(err).Msg("Primary slot cache failed, falling back to memory")
	}
	r.lastCheck.Store(r.now().UnixNano())
}

// usePrimary reports whether the call should go to primary: either it is
// healthy or the recovery interval elapsed.
func (r *FailoverSlotCache) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	last := time.Unix(0, r.lastCheck.Load())
	return r.now().Sub(last) > recoveryInterval
}

func (r *FailoverSlotCache) recovered() {
	if r.isDown.Swap(false) {
		r.logger.Info().Msg("Primary slot cache recovered")
	}
}

// Down reports whether calls are served by the fallback.
func (r *FailoverSlotCache) Down() bool {
	return r.isDown.Load()
}

func (r *FailoverSlotCache) GetReserved(ctx context.Context, key domain.SlotKey) ([]models.ReservedSlot, bool, error) {
	if r.usePrimary() {
		slots, ok, err := r.primary.GetReserved(ctx, key)
		if err == nil {
			r.recovered()
			return slots, ok, nil
		}
		r.markDown(err)
	}
	return r.fallback.GetReserved(ctx, key)
}

func (r *FailoverSlotCache) SetReserved(ctx context.Context, key domain.SlotKey, slots []models.ReservedSlot) error {
	if r.usePrimary() {
		err := r.primary.SetReserved(ctx, key, slots)
		if err == nil {
			r.recovered()
			return nil
		}
		r.markDown(err)
	}
	return r.fallback.SetReserved(ctx, key, slots)
}

// InvalidateOffice always clears both stores so that nothing stale survives
// a switch back to primary.
func (r *FailoverSlotCache) InvalidateOffice(ctx context.Context, officeID string) error {
	if err := r.primary.InvalidateOffice(ctx, officeID); err != nil {
		r.markDown(err)
	}
	return r.fallback.InvalidateOffice(ctx, officeID)
}

func (r *FailoverSlotCache) CheckRateLimit(ctx context.Context, subject string, limit int, window time.Duration) (bool, error) {
	if r.usePrimary() {
		allowed, err := r.primary.CheckRateLimit(ctx, subject, limit, window)
		if err == nil {
			r.recovered()
			return allowed, nil
		}
		r.markDown(err)
	}
	return r.fallback.CheckRateLimit(ctx, subject, limit, window)
}

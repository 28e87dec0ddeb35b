package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"vanrent/internal/domain"
	"vanrent/internal/models"
)

type slotEntry struct {
	slots     []models.ReservedSlot
	expiresAt time.Time
}

// MemorySlotCache is the in-process cache used when Redis is not configured
// or unavailable.
type MemorySlotCache struct {
	slots      sync.Map
	rateLimits sync.Map
	mu         sync.Mutex // guards rate limit read-modify-write
	ttl        time.Duration
	now        func() time.Time
}

func NewMemorySlotCache(ttl time.Duration) *MemorySlotCache {
	return &MemorySlotCache{
		ttl: ttl,
		now: time.Now,
	}
}

func (r *MemorySlotCache) GetReserved(_ context.Context, key domain.SlotKey) ([]models.ReservedSlot, bool, error) {
	k := slotKey(key)
	val, ok := r.slots.Load(k)
	if !ok {
		return nil, false, nil
	}
	entry := val.(*slotEntry)
	if r.ttl > 0 && r.now().After(entry.expiresAt) {
		r.slots.Delete(k)
		return nil, false, nil
	}
	return append([]models.ReservedSlot(nil), entry.slots...), true, nil
}

func (r *MemorySlotCache) SetReserved(_ context.Context, key domain.SlotKey, slots []models.ReservedSlot) error {
	r.slots.Store(slotKey(key), &slotEntry{
		slots:     append([]models.ReservedSlot{}, slots...),
		expiresAt: r.now().Add(r.ttl),
	})
	return nil
}

func (r *MemorySlotCache) InvalidateOffice(_ context.Context, officeID string) error {
	prefix := slotKeyPrefix + ":" + officeID + ":"
	r.slots.Range(func(k, _ any) bool {
		if strings.HasPrefix(k.(string), prefix) {
			r.slots.Delete(k)
		}
		return true
	})
	return nil
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func (r *MemorySlotCache) CheckRateLimit(_ context.Context, subject string, limit int, window time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	val, ok := r.rateLimits.Load(subject)

	var entry *rateLimitEntry
	if !ok {
		entry = &rateLimitEntry{count: 1, expiresAt: now.Add(window)}
	} else {
		entry = val.(*rateLimitEntry)
		if now.After(entry.expiresAt) {
			entry.count = 1
			entry.expiresAt = now.Add(window)
		} else {
			entry.count++
		}
	}

	r.rateLimits.Store(subject, entry)
	return entry.count <= limit, nil
}

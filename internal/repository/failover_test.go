package repository

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"vanrent/internal/domain"
	"vanrent/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockCache struct {
	mock.Mock
}

func (m *mockCache) GetReserved(ctx context.Context, key domain.SlotKey) ([]models.ReservedSlot, bool, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]models.ReservedSlot), args.Bool(1), args.Error(2)
}

func (m *mockCache) SetReserved(ctx context.Context, key domain.SlotKey, slots []models.ReservedSlot) error {
	args := m.Called(ctx, key, slots)
	return args.Error(0)
}

func (m *mockCache) InvalidateOffice(ctx context.Context, officeID string) error {
	args := m.Called(ctx, officeID)
	return args.Error(0)
}

func (m *mockCache) CheckRateLimit(ctx context.Context, subject string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, subject, limit, window)
	return args.Bool(0), args.Error(1)
}

func TestFailoverSlotCache(t *testing.T) {
	primary := new(mockCache)
	fallback := new(mockCache)
	logger := zerolog.New(io.Discard)
	cache := NewFailoverSlotCache(primary, fallback, &logger)
	ctx := context.Background()
	key := domain.SlotKey{OfficeID: "lisbon", CategoryID: "van-l", Date: "2026-03-02"}

	t.Run("PrimarySuccess", func(t *testing.T) {
		primary.On("GetReserved", ctx, key).Return(sampleSlots(), true, nil).Once()

		got, ok, err := cache.GetReserved(ctx, key)
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, sampleSlots(), got)
		primary.AssertExpectations(t)
	})

	t.Run("PrimaryFailFallbackSuccess", func(t *testing.T) {
		primary.On("GetReserved", ctx, key).Return(nil, false, errors.New("fail")).Once()
		fallback.On("GetReserved", ctx, key).Return(sampleSlots(), true, nil).Once()

		got, ok, err := cache.GetReserved(ctx, key)
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, sampleSlots(), got)
		assert.True(t, cache.Down())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("AlreadyDownSkipsPrimary", func(t *testing.T) {
		fallback.On("SetReserved", ctx, key, sampleSlots()).Return(nil).Once()

		assert.NoError(t, cache.SetReserved(ctx, key, sampleSlots()))
		fallback.AssertExpectations(t)
		primary.AssertNotCalled(t, "SetReserved", ctx, key, sampleSlots())
	})

	t.Run("RecoveryAttemptFail", func(t *testing.T) {
		cache.lastCheck.Store(time.Now().Add(-2 * time.Minute).UnixNano())
		primary.On("CheckRateLimit", ctx, "discount:c1", 10, time.Minute).Return(false, errors.New("still fail")).Once()
		fallback.On("CheckRateLimit", ctx, "discount:c1", 10, time.Minute).Return(true, nil).Once()

		allowed, err := cache.CheckRateLimit(ctx, "discount:c1", 10, time.Minute)
		assert.NoError(t, err)
		assert.True(t, allowed)
		assert.True(t, cache.Down())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("RecoveryAttempt", func(t *testing.T) {
		cache.lastCheck.Store(time.Now().Add(-2 * time.Minute).UnixNano())
		primary.On("GetReserved", ctx, key).Return(nil, false, nil).Once()

		_, ok, err := cache.GetReserved(ctx, key)
		assert.NoError(t, err)
		assert.False(t, ok)
		assert.False(t, cache.Down())
		primary.AssertExpectations(t)
	})

	t.Run("InvalidateClearsBoth", func(t *testing.T) {
		primary.On("InvalidateOffice", ctx, "lisbon").Return(nil).Once()
		fallback.On("InvalidateOffice", ctx, "lisbon").Return(nil).Once()

		assert.NoError(t, cache.InvalidateOffice(ctx, "lisbon"))
		assert.False(t, cache.Down())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("InvalidatePrimaryFail", func(t *testing.T) {
		primary.On("InvalidateOffice", ctx, "porto").Return(errors.New("fail")).Once()
		fallback.On("InvalidateOffice", ctx, "porto").Return(nil).Once()

		assert.NoError(t, cache.InvalidateOffice(ctx, "porto"))
		assert.True(t, cache.Down())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})
}

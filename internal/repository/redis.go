package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"vanrent/internal/config"
	"vanrent/internal/domain"
	"vanrent/internal/models"

	"github.com/redis/go-redis/v9"
)

var ErrNilClient = errors.New("repository.redis: client is nil")

const (
	slotKeyPrefix      = "reserved_slots"
	rateLimitKeyPrefix = "rate_limit"
)

// RedisSlotCache stores reserved slots as JSON with a TTL.
type RedisSlotCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisSlotCache(client *redis.Client, ttl time.Duration) *RedisSlotCache {
	return &RedisSlotCache{
		client: client,
		ttl:    ttl,
	}
}

func slotKey(key domain.SlotKey) string {
	category := key.CategoryID
	if category == "" {
		category = "*all*"
	}
	return fmt.Sprintf("%s:%s:%s:%s", slotKeyPrefix, key.OfficeID, category, key.Date)
}

func (r *RedisSlotCache) GetReserved(ctx context.Context, key domain.SlotKey) ([]models.ReservedSlot, bool, error) {
	if r.client == nil {
		return nil, false, ErrNilClient
	}
	val, err := r.client.Get(ctx, slotKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get reserved slots from redis: %w", err)
	}

	var slots []models.ReservedSlot
	if err := json.Unmarshal([]byte(val), &slots); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal reserved slots: %w", err)
	}
	return slots, true, nil
}

func (r *RedisSlotCache) SetReserved(ctx context.Context, key domain.SlotKey, slots []models.ReservedSlot) error {
	if r.client == nil {
		return ErrNilClient
	}
	if slots == nil {
		slots = []models.ReservedSlot{}
	}
	data, err := json.Marshal(slots)
	if err != nil {
		return fmt.Errorf("failed to marshal reserved slots: %w", err)
	}
	if err := r.client.Set(ctx, slotKey(key), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set reserved slots in redis: %w", err)
	}
	return nil
}

// InvalidateOffice drops every cached day of the office. A reservation can
// span several days and categories, so the whole office goes.
func (r *RedisSlotCache) InvalidateOffice(ctx context.Context, officeID string) error {
	if r.client == nil {
		return ErrNilClient
	}
	pattern := fmt.Sprintf("%s:%s:*", slotKeyPrefix, officeID)
	iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan reserved slot keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete reserved slots from redis: %w", err)
	}
	return nil
}

func (r *RedisSlotCache) CheckRateLimit(ctx context.Context, subject string, limit int, window time.Duration) (bool, error) {
	if r.client == nil {
		return false, ErrNilClient
	}
	key := fmt.Sprintf("%s:%s", rateLimitKeyPrefix, subject)
	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	if count == 1 {
		r.client.Expire(ctx, key, window)
	}

	return count <= int64(limit), nil
}

// Ping проверяет соединение с Redis
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/srgjo27/ticket_marketplace/internal/core/domain"
)

const defaultTTL = 30 * time.Second

// RedisAvailabilityCache stores event snapshots, ticket types and their
// available counts included, as JSON under event:<id>.
type RedisAvailabilityCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisAvailabilityCache(client *redis.Client, ttl time.Duration) *RedisAvailabilityCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisAvailabilityCache{client: client, ttl: ttl}
}

func eventKey(eventID uuid.UUID) string {
	return fmt.Sprintf("event:%s", eventID.String())
}

func (c *RedisAvailabilityCache) GetEvent(ctx context.Context, eventID uuid.UUID) (*domain.Event, error) {
	val, err := c.client.Get(ctx, eventKey(eventID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cached event %s: %w", eventID, err)
	}

	var event domain.Event
	if err := json.Unmarshal(val, &event); err != nil {
		// A snapshot we cannot read is a miss; the next SetEvent overwrites it.
		return nil, nil
	}

	return &event, nil
}

func (c *RedisAvailabilityCache) SetEvent(ctx context.Context, event *domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", event.ID, err)
	}

	if err := c.client.Set(ctx, eventKey(event.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache event %s: %w", event.ID, err)
	}

	return nil
}

func (c *RedisAvailabilityCache) Invalidate(ctx context.Context, eventID uuid.UUID) error {
	if err := c.client.Del(ctx, eventKey(eventID)).Err(); err != nil {
		return fmt.Errorf("invalidate event %s: %w", eventID, err)
	}

	return nil
}

// Ping reports whether Redis is reachable.
func (c *RedisAvailabilityCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

package event

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const dedupKeyPrefix = "notify:dedup:"

// RedisIdempotencyStore is a redis-backed implementation of
// pkg/kafka.IdempotencyStore. It lets multiple engine instances share one
// deduplication window; entries expire after the configured TTL.
type RedisIdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisIdempotencyStore creates a redis-backed idempotency store with the
// given TTL per processed event id.
func NewRedisIdempotencyStore(client *redis.Client, ttl time.Duration) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{
		client: client,
		ttl:    ttl,
	}
}

// Contains reports whether the event ID has already been processed.
func (s *RedisIdempotencyStore) Contains(ctx context.Context, eventID string) (bool, error) {
	n, err := s.client.Exists(ctx, dedupKeyPrefix+eventID).Result()
	if err != nil {
		return false, fmt.Errorf("redis check event id: %w", err)
	}
	return n > 0, nil
}

// Add marks the event ID as processed.
func (s *RedisIdempotencyStore) Add(ctx context.Context, eventID string) error {
	if err := s.client.Set(ctx, dedupKeyPrefix+eventID, "1", s.ttl).Err(); err != nil {
		return fmt.Errorf("redis record event id: %w", err)
	}
	return nil
}

// Package cache holds Redis-backed read caches.
package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/panotify/exam-backend/internal/config"
	"github.com/redis/go-redis/v9"
)

// ExpiryCache stores attempt expiry times as Unix microseconds.
type ExpiryCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewExpiryCache creates an ExpiryCache whose entries live for ttl.
func NewExpiryCache(rdb *redis.Client, ttl time.Duration) *ExpiryCache {
	return &ExpiryCache{rdb: rdb, ttl: ttl}
}

// Expiry returns the cached expiry time, with ok=false on a miss.
func (c *ExpiryCache) Expiry(ctx context.Context, examID uuid.UUID, studentID int) (time.Time, bool, error) {
	key := config.CacheKey.AttemptExpiresKey(examID.String(), studentID)
	val, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	micros, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		// Corrupt entry; treat as a miss so the caller re-populates it.
		return time.Time{}, false, nil
	}
	return time.UnixMicro(micros).UTC(), true, nil
}

// SetExpiry caches the expiry time of an attempt.
func (c *ExpiryCache) SetExpiry(ctx context.Context, examID uuid.UUID, studentID int, expiresAt time.Time) error {
	key := config.CacheKey.AttemptExpiresKey(examID.String(), studentID)
	return c.rdb.Set(ctx, key, expiresAt.UnixMicro(), c.ttl).Err()
}

// Forget drops the cached expiry of an attempt.
func (c *ExpiryCache) Forget(ctx context.Context, examID uuid.UUID, studentID int) error {
	return c.rdb.Del(ctx, config.CacheKey.AttemptExpiresKey(examID.String(), studentID)).Err()
}

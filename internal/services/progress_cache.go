package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/observer-backend/internal/pkg/logger"
)

// ProgressCache is a read-through cache of progress snapshots. Writers
// invalidate synchronously; it never serves as a source of truth.
type ProgressCache interface {
	Get(ctx context.Context, userID string) (*ProgressSnapshot, bool)
	Set(ctx context.Context, userID string, snap *ProgressSnapshot)
	Invalidate(ctx context.Context, userID string) error
}

type NoopProgressCache struct{}

func (NoopProgressCache) Get(context.Context, string) (*ProgressSnapshot, bool) { return nil, false }
func (NoopProgressCache) Set(context.Context, string, *ProgressSnapshot)        {}
func (NoopProgressCache) Invalidate(context.Context, string) error              { return nil }

type redisProgressCache struct {
	rdb *goredis.Client
	ttl time.Duration
	log *logger.Logger
}

func NewRedisProgressCache(rdb *goredis.Client, ttl time.Duration, log *logger.Logger) ProgressCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &redisProgressCache{rdb: rdb, ttl: ttl, log: log.With("service", "ProgressCache")}
}

func progressCacheKey(userID string) string { return "progress:" + userID }

func (c *redisProgressCache) Get(ctx context.Context, userID string) (*ProgressSnapshot, bool) {
	raw, err := c.rdb.Get(ctx, progressCacheKey(userID)).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			c.log.Warn("progress cache get failed", "error", err, "user_id", userID)
		}
		return nil, false
	}
	var snap ProgressSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		c.log.Warn("progress cache decode failed", "error", err, "user_id", userID)
		return nil, false
	}
	return &snap, true
}

func (c *redisProgressCache) Set(ctx context.Context, userID string, snap *ProgressSnapshot) {
	if snap == nil {
		return
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, progressCacheKey(userID), raw, c.ttl).Err(); err != nil {
		c.log.Warn("progress cache set failed", "error", err, "user_id", userID)
	}
}

func (c *redisProgressCache) Invalidate(ctx context.Context, userID string) error {
	return c.rdb.Del(ctx, progressCacheKey(userID)).Err()
}

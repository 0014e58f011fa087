// Package cache keeps short-lived copies of capacity snapshots in Redis.
//
// Capacity is owned by the backend. The cache only shortens bursts of
// identical reads and is dropped for an event as soon as anything is
// submitted for it; a refresh always bypasses it.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dakheliyah/vms/internal/domain/model"
	"github.com/dakheliyah/vms/pkg/logger"
	"github.com/dakheliyah/vms/pkg/metrics"
)

// Fetcher reads capacity from the source of truth.
type Fetcher interface {
	FetchCapacity(ctx context.Context, cred model.Credential, eventID int64) ([]model.Venue, error)
}

// CapacityCache decorates a Fetcher with a Redis read-through cache.
// With no Redis client or a zero TTL every call goes straight to the Fetcher.
type CapacityCache struct {
	next   Fetcher
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
	logger logger.Logger
}

// NewCapacityCache wraps next. rdb may be nil.
func NewCapacityCache(next Fetcher, rdb *redis.Client, opts ...Option) *CapacityCache {
	c := &CapacityCache{
		next:   next,
		rdb:    rdb,
		ttl:    0,
		prefix: "vms:capacity",
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enabled reports whether snapshots are cached at all.
func (c *CapacityCache) Enabled() bool {
	return c.rdb != nil && c.ttl > 0
}

// FetchCapacity serves from cache when possible.
func (c *CapacityCache) FetchCapacity(ctx context.Context, cred model.Credential, eventID int64) ([]model.Venue, error) {
	return c.Fetch(ctx, cred, eventID, false)
}

// Fetch returns the capacity snapshot for eventID. With refresh set the
// backend is always asked and the cached copy replaced.
func (c *CapacityCache) Fetch(ctx context.Context, cred model.Credential, eventID int64, refresh bool) ([]model.Venue, error) {
	if !c.Enabled() {
		return c.next.FetchCapacity(ctx, cred, eventID)
	}

	key := c.key(eventID)
	if !refresh {
		if venues, ok := c.get(ctx, key); ok {
			metrics.RecordCacheHit()
			return venues, nil
		}
	}
	metrics.RecordCacheMiss()

	venues, err := c.next.FetchCapacity(ctx, cred, eventID)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, venues)
	return venues, nil
}

// Invalidate drops the cached snapshot for eventID.
func (c *CapacityCache) Invalidate(ctx context.Context, eventID int64) error {
	if !c.Enabled() {
		return nil
	}
	if err := c.rdb.Del(ctx, c.key(eventID)).Err(); err != nil {
		metrics.RecordErrorByComponent("capacity_cache", "invalidate")
		return fmt.Errorf("invalidate capacity %d: %w", eventID, err)
	}
	return nil
}

func (c *CapacityCache) key(eventID int64) string {
	return fmt.Sprintf("%s:%d", c.prefix, eventID)
}

func (c *CapacityCache) get(ctx context.Context, key string) ([]model.Venue, bool) {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			metrics.RecordErrorByComponent("capacity_cache", "get")
			c.logger.Warn(ctx, "capacity cache read failed", logger.String("key", key), logger.Error(err))
		}
		return nil, false
	}
	var venues []model.Venue
	if err := json.Unmarshal(b, &venues); err != nil {
		c.logger.Warn(ctx, "capacity cache entry corrupt", logger.String("key", key), logger.Error(err))
		return nil, false
	}
	return venues, true
}

func (c *CapacityCache) set(ctx context.Context, key string, venues []model.Venue) {
	b, err := json.Marshal(venues)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
		metrics.RecordErrorByComponent("capacity_cache", "set")
		c.logger.Warn(ctx, "capacity cache write failed", logger.String("key", key), logger.Error(err))
	}
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient connects to Redis and pings it. It returns nil and the ping
// error when the server is unreachable so callers can run without a cache.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// Package cache holds the optional read-through cache for public author views.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/and161185/ecosystem-api/internal/model"
)

// AuthorCache stores author projections keyed by account ID.
// Implementations treat backend failures as misses.
type AuthorCache interface {
	Get(ctx context.Context, id int64) (*model.AuthorRead, bool)
	Set(ctx context.Context, a model.AuthorRead)
	Invalidate(ctx context.Context, id int64)
}

// Nop disables caching.
type Nop struct{}

// Get always misses.
func (Nop) Get(context.Context, int64) (*model.AuthorRead, bool) { return nil, false }

// Set discards a.
func (Nop) Set(context.Context, model.AuthorRead) {}

// Invalidate does nothing.
func (Nop) Invalidate(context.Context, int64) {}

// NewRedisClient parses url and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Redis caches author views as JSON with a TTL.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
	log *zap.Logger
}

// NewRedis wraps an existing client.
func NewRedis(rdb *redis.Client, ttl time.Duration, log *zap.Logger) *Redis {
	return &Redis{rdb: rdb, ttl: ttl, log: log}
}

func authorKey(id int64) string { return "author:" + strconv.FormatInt(id, 10) }

// Get returns the cached author view; redis and decode errors count as a miss.
func (c *Redis) Get(ctx context.Context, id int64) (*model.AuthorRead, bool) {
	b, err := c.rdb.Get(ctx, authorKey(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("author cache get", zap.Int64("id", id), zap.Error(err))
		}
		return nil, false
	}
	var a model.AuthorRead
	if err := json.Unmarshal(b, &a); err != nil {
		c.log.Warn("author cache decode", zap.Int64("id", id), zap.Error(err))
		return nil, false
	}
	return &a, true
}

// Set stores a under its id with the configured TTL.
func (c *Redis) Set(ctx context.Context, a model.AuthorRead) {
	b, err := json.Marshal(a)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, authorKey(a.ID), b, c.ttl).Err(); err != nil {
		c.log.Warn("author cache set", zap.Int64("id", a.ID), zap.Error(err))
	}
}

// Invalidate drops the entry for id.
func (c *Redis) Invalidate(ctx context.Context, id int64) {
	if err := c.rdb.Del(ctx, authorKey(id)).Err(); err != nil {
		c.log.Warn("author cache invalidate", zap.Int64("id", id), zap.Error(err))
	}
}

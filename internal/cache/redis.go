package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/citypulse/server/internal/config"
	"github.com/citypulse/server/internal/models"
)

const eventKeyPrefix = "citypulse:event:"

// RedisCache stores mapped event details keyed by event id.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(cfg config.RedisConfig) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisCacheFromClient(rdb, cfg.EventTTL), nil
}

// NewRedisCacheFromClient wraps an existing client. Used by tests with
// miniredis.
func NewRedisCacheFromClient(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

// GetEvent returns the cached event, or false when the key is absent.
func (c *RedisCache) GetEvent(ctx context.Context, id string) (*models.Event, bool, error) {
	val, err := c.rdb.Get(ctx, eventKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var ev models.Event
	if err := json.Unmarshal(val, &ev); err != nil {
		return nil, false, err
	}
	return &ev, true, nil
}

func (c *RedisCache) SetEvent(ctx context.Context, ev *models.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, eventKeyPrefix+ev.ID, data, c.ttl).Err()
}

func (c *RedisCache) DeleteEvent(ctx context.Context, id string) error {
	return c.rdb.Del(ctx, eventKeyPrefix+id).Err()
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.rdb.Close()
}

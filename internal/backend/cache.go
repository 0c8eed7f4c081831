package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/barbershop-scheduler/internal/scheduling"
	"github.com/wolfman30/barbershop-scheduler/pkg/logging"
)

const (
	providerListKey   = "barbershop:providers:list"
	providerKeyPrefix = "barbershop:providers:id:"
)

// CachedClient caches provider snapshots in redis. Providers are immutable
// for the lifetime of a detail view, so reads may be served from cache; all
// other calls pass straight through. Redis failures fall back to the backend.
type CachedClient struct {
	Client
	redis  *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

// NewCachedClient wraps next with a redis provider cache.
func NewCachedClient(next Client, rdb *redis.Client, ttl time.Duration, logger *logging.Logger) *CachedClient {
	if logger == nil {
		logger = logging.Default()
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CachedClient{Client: next, redis: rdb, ttl: ttl, logger: logger}
}

// ListProviders serves the directory from cache when present.
func (c *CachedClient) ListProviders(ctx context.Context) ([]scheduling.Provider, error) {
	var cached []scheduling.Provider
	if c.get(ctx, providerListKey, &cached) {
		return cached, nil
	}
	providers, err := c.Client.ListProviders(ctx)
	if err != nil {
		return nil, err
	}
	c.set(ctx, providerListKey, providers)
	for i := range providers {
		c.set(ctx, providerKeyPrefix+providers[i].ID, providers[i])
	}
	return providers, nil
}

// GetProvider serves a single provider from cache when present.
func (c *CachedClient) GetProvider(ctx context.Context, id string) (*scheduling.Provider, error) {
	var cached scheduling.Provider
	if c.get(ctx, providerKeyPrefix+id, &cached) {
		return &cached, nil
	}
	p, err := c.Client.GetProvider(ctx, id)
	if err != nil {
		return nil, err
	}
	c.set(ctx, providerKeyPrefix+id, p)
	return p, nil
}

// InvalidateProviders drops the cached directory and the given provider ids.
// With no ids every cached provider is dropped.
func (c *CachedClient) InvalidateProviders(ctx context.Context, ids ...string) error {
	if c.redis == nil {
		return nil
	}
	keys := []string{providerListKey}
	if len(ids) == 0 {
		iter := c.redis.Scan(ctx, 0, providerKeyPrefix+"*", 100).Iterator()
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return fmt.Errorf("backend: invalidate providers: scan: %w", err)
		}
	}
	for _, id := range ids {
		keys = append(keys, providerKeyPrefix+id)
	}
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("backend: invalidate providers: %w", err)
	}
	c.logger.Debug("provider cache invalidated", "keys", len(keys))
	return nil
}

func (c *CachedClient) get(ctx context.Context, key string, out interface{}) bool {
	if c.redis == nil {
		return false
	}
	raw, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("provider cache read failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		c.logger.Warn("provider cache entry corrupt", "key", key, "error", err)
		return false
	}
	return true
}

func (c *CachedClient) set(ctx context.Context, key string, v interface{}) {
	if c.redis == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("provider cache write failed", "key", key, "error", err)
	}
}

var _ Client = (*CachedClient)(nil)

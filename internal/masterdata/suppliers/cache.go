package suppliers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	cacheVersionKey = "suppliers:list:version"
	cacheKeyPrefix  = "suppliers:list"
)

// ListCache stores the ordered supplier list between requests.
type ListCache interface {
	Fetch(ctx context.Context, loader func(context.Context) ([]Supplier, error)) ([]Supplier, error)
	Refresh(ctx context.Context, loader func(context.Context) ([]Supplier, error)) error
	Invalidate(ctx context.Context) error
}

// Cache keeps the supplier list in Redis under a versioned key. Invalidate
// bumps the version so a load racing with a write never repopulates the
// current key with stale rows.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
	group  singleflight.Group
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	return &Cache{client: client, ttl: ttl, logger: logger}
}

// Fetch returns the cached list or loads it. Redis failures degrade to the
// loader; only loader errors are returned.
func (c *Cache) Fetch(ctx context.Context, loader func(context.Context) ([]Supplier, error)) ([]Supplier, error) {
	if loader == nil {
		return nil, errors.New("suppliers cache: loader required")
	}
	if c == nil || c.client == nil {
		return loader(ctx)
	}
	key, err := c.key(ctx)
	if err != nil {
		c.log().Warn("supplier cache version", slog.Any("error", err))
		return loader(ctx)
	}

	payload, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var list []Supplier
		if decodeErr := json.Unmarshal(payload, &list); decodeErr == nil {
			return list, nil
		}
		c.log().Warn("decode cached supplier list", slog.String("key", key))
	case !errors.Is(err, redis.Nil):
		c.log().Warn("read supplier cache", slog.Any("error", err))
	}

	resultCh := c.group.DoChan(key, func() (interface{}, error) {
		// Shared by every caller joined on key; one caller leaving must not
		// cancel the load for the rest.
		loadCtx := context.WithoutCancel(ctx)
		list, err := loader(loadCtx)
		if err != nil {
			return nil, err
		}
		c.store(loadCtx, key, list)
		return list, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-resultCh:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]Supplier), nil
	}
}

// Refresh loads the list and stores it under the current version.
func (c *Cache) Refresh(ctx context.Context, loader func(context.Context) ([]Supplier, error)) error {
	if c == nil || c.client == nil {
		return nil
	}
	key, err := c.key(ctx)
	if err != nil {
		return err
	}
	list, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, c.ttl).Err()
}

// Invalidate bumps the list version.
func (c *Cache) Invalidate(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, cacheVersionKey).Err()
}

func (c *Cache) key(ctx context.Context) (string, error) {
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	return fmt.Sprintf("%s:%d", cacheKeyPrefix, ver), nil
}

func (c *Cache) store(ctx context.Context, key string, list []Supplier) {
	raw, err := json.Marshal(list)
	if err != nil {
		c.log().Warn("encode supplier list", slog.Any("error", err))
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.log().Warn("write supplier cache", slog.Any("error", err))
	}
}

func (c *Cache) log() *slog.Logger {
	if c.logger == nil {
		return slog.Default()
	}
	return c.logger
}

var _ ListCache = (*Cache)(nil)

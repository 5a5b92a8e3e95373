package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"discord-antispam-bot/internal/metrics"
	"discord-antispam-bot/internal/redis"

	"github.com/dgraph-io/ristretto"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Remote is the L2 layer; *redis.Client satisfies it
type Remote interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// Cache provides a multi-layer cache of encoded values with L1 (in-memory)
// and L2 (Redis). L2 is optional.
type Cache struct {
	l1           *ristretto.Cache
	l2           Remote
	singleflight singleflight.Group
	ttl          time.Duration
	log          *zap.Logger
}

// Config for cache initialization
type Config struct {
	L1MaxCost     int64         // Max cost in bytes for L1 cache (default: 10MB)
	L1NumCounters int64         // Number of keys to track frequency (default: 100k)
	DefaultTTL    time.Duration // Default TTL for cache entries
}

// NewCache creates a new multi-layer cache; l2 may be nil
func NewCache(l2 Remote, cfg Config, log *zap.Logger) (*Cache, error) {
	if cfg.L1MaxCost == 0 {
		cfg.L1MaxCost = 10 << 20
	}
	if cfg.L1NumCounters == 0 {
		cfg.L1NumCounters = 100000
	}
	if cfg.DefaultTTL == 0 {
		cfg.DefaultTTL = 5 * time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}

	l1, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.L1NumCounters,
		MaxCost:     cfg.L1MaxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create L1 cache: %w", err)
	}

	return &Cache{
		l1:  l1,
		l2:  l2,
		ttl: cfg.DefaultTTL,
		log: log,
	}, nil
}

// Get returns the value for key, falling back L1 -> L2 -> fetch.
// Concurrent fetches of the same key are collapsed.
func (c *Cache) Get(ctx context.Context, key string, fetch func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	if val, found := c.l1.Get(key); found {
		metrics.SettingsCacheLookups.WithLabelValues("l1", "hit").Inc()
		return val.([]byte), nil
	}
	metrics.SettingsCacheLookups.WithLabelValues("l1", "miss").Inc()

	if c.l2 != nil {
		val, err := c.l2.Get(ctx, key)
		switch {
		case err == nil:
			metrics.SettingsCacheLookups.WithLabelValues("l2", "hit").Inc()
			c.l1.SetWithTTL(key, val, int64(len(val)), c.ttl)
			return val, nil
		case !errors.Is(err, redis.ErrMiss):
			c.log.Warn("L2 cache read failed", zap.String("key", key), zap.Error(err))
		}
		metrics.SettingsCacheLookups.WithLabelValues("l2", "miss").Inc()
	}

	v, err, _ := c.singleflight.Do(key, func() (interface{}, error) {
		return fetch(ctx)
	})
	if err != nil {
		return nil, err
	}

	val := v.([]byte)
	c.Set(ctx, key, val)
	return val, nil
}

// Set stores a value in both layers
func (c *Cache) Set(ctx context.Context, key string, val []byte) {
	c.l1.SetWithTTL(key, val, int64(len(val)), c.ttl)

	if c.l2 != nil {
		if err := c.l2.Set(ctx, key, val, c.ttl); err != nil {
			c.log.Warn("L2 cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
}

// Delete removes a key from all cache layers
func (c *Cache) Delete(ctx context.Context, key string) {
	c.l1.Del(key)
	if c.l2 != nil {
		if err := c.l2.Del(ctx, key); err != nil {
			c.log.Warn("L2 cache delete failed", zap.String("key", key), zap.Error(err))
		}
	}
}

// Wait blocks until pending L1 writes are applied
func (c *Cache) Wait() {
	c.l1.Wait()
}

func (c *Cache) Close() {
	c.l1.Close()
}

package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/ukydev/factory-log/internal/models"
)

type cacheKey struct {
	kind models.CatalogKind
	key  string
}

type cachedEntry struct {
	entry     models.CatalogEntry
	expiresAt time.Time
}

// MemoryCache is a per-process TTL cache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[cacheKey]cachedEntry
	now     func() time.Time
}

// NewMemoryCache creates an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[cacheKey]cachedEntry),
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(ctx context.Context, kind models.CatalogKind, key string) (models.CatalogEntry, bool, error) {
	c.mu.RLock()
	cached, ok := c.entries[cacheKey{kind, key}]
	c.mu.RUnlock()

	if !ok || !c.now().Before(cached.expiresAt) {
		return models.CatalogEntry{}, false, nil
	}
	return cached.entry, true, nil
}

func (c *MemoryCache) Set(ctx context.Context, entry models.CatalogEntry, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[cacheKey{entry.Kind, entry.Key}] = cachedEntry{entry: entry, expiresAt: c.now().Add(ttl)}
	return nil
}

// RedisCache shares resolved entries between API replicas.
type RedisCache struct {
	rdb    *goredis.Client
	prefix string
}

// NewRedisCache connects to addr and verifies it with a ping.
func NewRedisCache(addr string) (*RedisCache, error) {
	if addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisCache{rdb: rdb, prefix: "catalog"}, nil
}

func (c *RedisCache) redisKey(kind models.CatalogKind, key string) string {
	return fmt.Sprintf("%s:%s:%s", c.prefix, kind, key)
}

func (c *RedisCache) Get(ctx context.Context, kind models.CatalogKind, key string) (models.CatalogEntry, bool, error) {
	raw, err := c.rdb.Get(ctx, c.redisKey(kind, key)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return models.CatalogEntry{}, false, nil
		}
		return models.CatalogEntry{}, false, err
	}
	var entry models.CatalogEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return models.CatalogEntry{}, false, fmt.Errorf("decode cached entry: %w", err)
	}
	return entry, true, nil
}

func (c *RedisCache) Set(ctx context.Context, entry models.CatalogEntry, ttl time.Duration) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.redisKey(entry.Kind, entry.Key), raw, ttl).Err()
}

// Close releases the redis connection pool.
func (c *RedisCache) Close() error {
	return c.rdb.Close()
}

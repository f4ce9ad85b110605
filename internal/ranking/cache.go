package ranking

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/model"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/search"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/pkg/logger"
)

// Cache stores rankings by key.
type Cache interface {
	Get(ctx context.Context, key string) ([]string, bool, error)
	Set(ctx context.Context, key string, order []string, ttl time.Duration) error
}

// CacheKey derives a stable key from the profile and the page ids. The page
// order does not matter.
func CacheKey(profile model.Profile, page []search.Result) string {
	ids := make([]string, len(page))
	for i, r := range page {
		ids[i] = r.ID
	}
	sort.Strings(ids)

	attrs, _ := json.Marshal(profile)
	data := string(attrs)
	for _, id := range ids {
		data += "|" + id
	}
	return fmt.Sprintf("%x", md5.Sum([]byte(data)))
}

// ─── Memory cache ────────────────────────────────────────────────────────────

// MemoryCache is an in-process Cache for single-instance deployments.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	order   []string
	expires time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || c.now().After(e.expires) {
		return nil, false, nil
	}
	return e.order, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, order []string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{order: order, expires: c.now().Add(ttl)}
	return nil
}

// CleanExpired removes expired entries.
func (c *MemoryCache) CleanExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for key, e := range c.entries {
		if now.After(e.expires) {
			delete(c.entries, key)
		}
	}
}

// ─── Redis cache ─────────────────────────────────────────────────────────────

const redisKeyPrefix = "magpie:rank:"

// RedisCache shares rankings across API instances.
type RedisCache struct {
	rdb *redis.Client
}

func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]string, bool, error) {
	raw, err := c.rdb.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var order []string
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, false, fmt.Errorf("decode cached ranking: %w", err)
	}
	return order, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, order []string, ttl time.Duration) error {
	raw, err := json.Marshal(order)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, redisKeyPrefix+key, raw, ttl).Err()
}

// ─── Cached ranker ───────────────────────────────────────────────────────────

// CachedRanker consults a Cache before delegating. Cache failures are logged
// and otherwise ignored.
type CachedRanker struct {
	next  search.Ranker
	cache Cache
	ttl   time.Duration
	log   *zap.Logger
}

func NewCachedRanker(next search.Ranker, cache Cache, ttl time.Duration, log *zap.Logger) *CachedRanker {
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedRanker{next: next, cache: cache, ttl: ttl, log: log}
}

// Rank implements search.Ranker.
func (r *CachedRanker) Rank(ctx context.Context, profile model.Profile, page []search.Result) ([]string, error) {
	log := logger.WithContext(ctx, r.log)
	key := CacheKey(profile, page)

	order, ok, err := r.cache.Get(ctx, key)
	if err != nil {
		log.Warn("rank cache read failed", zap.Error(err))
	}
	if ok {
		log.Debug("rank cache hit", zap.Int("items", len(page)))
		return order, nil
	}

	order, err = r.next.Rank(ctx, profile, page)
	if err != nil {
		return nil, err
	}
	if len(order) > 0 {
		if err := r.cache.Set(ctx, key, order, r.ttl); err != nil {
			log.Warn("rank cache write failed", zap.Error(err))
		}
	}
	return order, nil
}

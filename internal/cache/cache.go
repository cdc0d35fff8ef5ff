package cache

import (
	"context"
	"crypto/md5"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// maxRawKeyLen bounds per-key memory; longer derived keys collapse to
// category + md5 of the full key.
const maxRawKeyLen = 100

// Stats is a point-in-time snapshot of cache effectiveness.
type Stats struct {
	Entries       int    `json:"entries"`
	Hits          int64  `json:"hits"`
	Misses        int64  `json:"misses"`
	Evictions     int64  `json:"evictions"`
	HitRate       string `json:"hit_rate"`
	TotalRequests int64  `json:"total_requests"`
}

// Cache is a TTL cache over a backing Store, with per-category TTLs and
// hit/miss/eviction accounting. All access goes through one mutex; the
// fetch in GetOrFetch runs outside it.
type Cache struct {
	mu         sync.Mutex
	store      Store
	defaultTTL time.Duration
	ttls       map[string]time.Duration

	hits      int64
	misses    int64
	evictions int64
}

// New builds a cache over store. ttls maps category names to their TTL;
// categories without an entry use defaultTTL.
func New(store Store, defaultTTL time.Duration, ttls map[string]time.Duration) *Cache {
	if ttls == nil {
		ttls = make(map[string]time.Duration)
	}
	return &Cache{store: store, defaultTTL: defaultTTL, ttls: ttls}
}

// Key derives the deterministic cache key for a category and arguments.
func Key(category string, args ...any) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, category)
	for _, a := range args {
		parts = append(parts, fmt.Sprint(a))
	}
	key := strings.Join(parts, ":")
	if len(key) > maxRawKeyLen {
		return fmt.Sprintf("%s:%x", category, md5.Sum([]byte(key)))
	}
	return key
}

func (c *Cache) ttl(category string) time.Duration {
	if ttl, ok := c.ttls[category]; ok {
		return ttl
	}
	return c.defaultTTL
}

// lookup checks the store for key under c.mu, evicting an expired entry.
// It updates hit/miss counters.
func (c *Cache) lookup(ctx context.Context, key string, ttl time.Duration) (any, bool) {
	e, ok, err := c.store.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache: store read failed")
		c.misses++
		return nil, false
	}
	if ok {
		if time.Since(e.InsertedAt) < ttl {
			c.hits++
			return e.Value, true
		}
		if deleted, _ := c.store.Delete(ctx, key); deleted {
			c.evictions++
		}
	}
	c.misses++
	return nil, false
}

// GetOrFetch returns the cached value for category+args, or invokes fetch
// and caches its result. The lock is released before fetch runs, so misses
// on distinct keys never serialize; concurrent misses on the same key each
// fetch independently and the later store wins.
func (c *Cache) GetOrFetch(ctx context.Context, category string, fetch func(ctx context.Context) (any, error), args ...any) (any, error) {
	key := Key(category, args...)
	ttl := c.ttl(category)

	c.mu.Lock()
	if v, ok := c.lookup(ctx, key, ttl); ok {
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()

	v, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	c.Set(ctx, key, v)
	return v, nil
}

// Get returns the value stored under a caller-managed key if it is within
// the default TTL.
func (c *Cache) Get(ctx context.Context, key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lookup(ctx, key, c.defaultTTL)
}

// Set stores value under key with the current timestamp. A store failure
// is logged, not surfaced: the value is still valid for the caller.
func (c *Cache) Set(ctx context.Context, key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.Set(ctx, key, Entry{Value: value, InsertedAt: time.Now()}); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache: store write failed")
	}
}

// Invalidate removes the entry derived from category+args.
func (c *Cache) Invalidate(ctx context.Context, category string, args ...any) {
	key := Key(category, args...)
	c.mu.Lock()
	defer c.mu.Unlock()
	if deleted, _ := c.store.Delete(ctx, key); deleted {
		c.evictions++
	}
}

// InvalidatePattern removes every key containing substr and returns how
// many were removed.
func (c *Cache) InvalidatePattern(ctx context.Context, substr string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys, err := c.store.Keys(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("cache: key scan failed")
		return 0
	}
	count := 0
	for _, k := range keys {
		if strings.Contains(k, substr) {
			if deleted, _ := c.store.Delete(ctx, k); deleted {
				count++
			}
		}
	}
	c.evictions += int64(count)
	return count
}

// Clear removes all entries.
func (c *Cache) Clear(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, err := c.store.Clear(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("cache: clear failed")
		return
	}
	c.evictions += int64(n)
}

// CleanupExpired sweeps every entry, applying the TTL of the category
// encoded in each key's prefix, and returns the number removed. Meant to
// run from StartCleanup, not inline with requests.
func (c *Cache) CleanupExpired(ctx context.Context) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys, err := c.store.Keys(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("cache: key scan failed")
		return 0
	}
	now := time.Now()
	count := 0
	for _, k := range keys {
		category := k
		if i := strings.Index(k, ":"); i >= 0 {
			category = k[:i]
		}
		e, ok, err := c.store.Get(ctx, k)
		if err != nil || !ok {
			continue
		}
		if now.Sub(e.InsertedAt) >= c.ttl(category) {
			if deleted, _ := c.store.Delete(ctx, k); deleted {
				count++
			}
		}
	}
	c.evictions += int64(count)
	return count
}

// StartCleanup runs CleanupExpired every interval until ctx is cancelled.
func (c *Cache) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if removed := c.CleanupExpired(ctx); removed > 0 {
					log.Debug().Int("removed", removed).Msg("cache: cleaned up expired entries")
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stats returns the cache's counters and current entry count.
func (c *Cache) Stats(ctx context.Context) Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries, err := c.store.Len(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("cache: size lookup failed")
	}
	total := c.hits + c.misses
	rate := 0.0
	if total > 0 {
		rate = float64(c.hits) / float64(total) * 100
	}
	return Stats{
		Entries:       entries,
		Hits:          c.hits,
		Misses:        c.misses,
		Evictions:     c.evictions,
		HitRate:       fmt.Sprintf("%.2f%%", rate),
		TotalRequests: total,
	}
}

package cache

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"receitas/internal/core"
)

// MonthCache memoizes month listings keyed by year and month. Concurrent
// misses for the same month share one load. Invalidate must be called after
// every write; a load that started before it never repopulates the cache.
type MonthCache struct {
	lru   *LRU[[]core.Entry]
	group singleflight.Group

	// mu orders fills against Invalidate: a fill checks gen and stores
	// while holding it, so no purge can land between the two.
	mu  sync.Mutex
	gen uint64

	// beforeStore runs under mu just before a fill is stored. Tests only.
	beforeStore func()
}

func NewMonthCache(maxMonths int, ttl time.Duration) *MonthCache {
	return &MonthCache{lru: NewLRU[[]core.Entry](maxMonths, ttl)}
}

// Key normalizes the raw year and month strings.
func Key(year, month string) string {
	return strings.TrimSpace(year) + "-" + strings.TrimSpace(month)
}

// GetOrLoad returns the cached listing for key or calls load. hit reports
// whether the value came from the cache. Errors are never cached.
func (c *MonthCache) GetOrLoad(ctx context.Context, key string, load func(context.Context) ([]core.Entry, error)) (entries []core.Entry, hit bool, err error) {
	if v, ok := c.lru.Get(key); ok {
		return v, true, nil
	}

	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()

	v, err, _ := c.group.Do(strconv.FormatUint(gen, 10)+"/"+key, func() (any, error) {
		loaded, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.store(gen, key, loaded)
		return loaded, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.([]core.Entry), false, nil
}

// store caches a fill unless an Invalidate happened since gen was read.
func (c *MonthCache) store(gen uint64, key string, entries []core.Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.beforeStore != nil {
		c.beforeStore()
	}
	if c.gen == gen {
		c.lru.Set(key, entries)
	}
}

// Invalidate drops all cached months.
func (c *MonthCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.lru.Purge()
}

// CleanExpired implements Cleaner.
func (c *MonthCache) CleanExpired() int {
	return c.lru.CleanExpired()
}

func (c *MonthCache) Len() int {
	return c.lru.Len()
}

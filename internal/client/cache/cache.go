package cache

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/nvoropaev/traincache/pkg/api"
)

// WorkspaceContext is the slice of the workspace service this cache
// depends on
type WorkspaceContext interface {
	GetCurrentWorkspaceID() string
	OnChange(fn func(*api.Workspace))
}

// entry is one cached result. TTL is evaluated at read time against
// the ttl the reader passes in, so the same entry can be fresh for one
// caller and stale for another.
type entry struct {
	data        any
	timestamp   time.Time
	workspaceID string
}

// Cache de-duplicates concurrent identical fetches and serves repeated
// reads within a TTL window without hitting the network. Entries are
// keyed by "<workspaceID>_<key>" which makes cross-tenant reuse
// structurally impossible. Pure in-memory: nothing here survives a
// process restart, durability belongs to the persistent store.
type Cache struct {
	ws     WorkspaceContext
	logger *slog.Logger
	now    func() time.Time

	mu      sync.RWMutex
	entries map[string]*entry
	group   singleflight.Group
}

// New creates a request-level cache bound to the workspace context.
// The whole cache is dropped on every workspace change.
func New(ws WorkspaceContext, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Cache{
		ws:      ws,
		logger:  logger,
		now:     time.Now,
		entries: make(map[string]*entry),
	}

	if ws != nil {
		// Смена workspace - безусловный сброс всего кеша
		ws.OnChange(func(*api.Workspace) { c.ClearAll() })
	}

	return c
}

// Get returns the cached value for key within the active workspace, or
// invokes fetch to produce it. Concurrent callers of the same key share
// a single fetch execution; a failed fetch is surfaced to its callers
// and never cached, so the next Get retries.
func (c *Cache) Get(ctx context.Context, key string, ttl time.Duration, fetch func(ctx context.Context) (any, error)) (any, error) {
	workspaceID := c.workspaceID()
	cacheKey := workspaceID + "_" + key

	if data, ok := c.lookup(cacheKey, workspaceID, ttl); ok {
		return data, nil
	}

	data, err, _ := c.group.Do(cacheKey, func() (any, error) {
		// Повторная проверка: параллельный вызов мог уже заполнить слот
		if data, ok := c.lookup(cacheKey, workspaceID, ttl); ok {
			return data, nil
		}

		data, err := fetch(ctx)
		if err != nil {
			return nil, err
		}

		c.store(cacheKey, workspaceID, data)
		return data, nil
	})

	return data, err
}

// Put seeds the cache for key in the active workspace (preloader path)
func (c *Cache) Put(key string, data any) {
	workspaceID := c.workspaceID()
	c.store(workspaceID+"_"+key, workspaceID, data)
}

// Invalidate removes the entry for key in the active workspace only
func (c *Cache) Invalidate(key string) {
	workspaceID := c.workspaceID()
	cacheKey := workspaceID + "_" + key

	c.mu.Lock()
	delete(c.entries, cacheKey)
	c.mu.Unlock()

	// Следующий Get перезапустит fetch, даже если предыдущий еще летит
	c.group.Forget(cacheKey)
}

// InvalidatePattern removes every entry of the active workspace whose
// logical key contains the substring. Other workspaces' entries sharing
// the map are never touched.
func (c *Cache) InvalidatePattern(substring string) {
	prefix := c.workspaceID() + "_"

	c.mu.Lock()
	defer c.mu.Unlock()

	for cacheKey := range c.entries {
		logicalKey, ok := strings.CutPrefix(cacheKey, prefix)
		if ok && strings.Contains(logicalKey, substring) {
			delete(c.entries, cacheKey)
		}
	}
}

// ClearAll drops every entry of every workspace
func (c *Cache) ClearAll() {
	c.mu.Lock()
	c.entries = make(map[string]*entry)
	c.mu.Unlock()
}

// Len returns the number of cached entries across all workspaces
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) workspaceID() string {
	if c.ws == nil {
		return ""
	}
	return c.ws.GetCurrentWorkspaceID()
}

// lookup returns the cached data when the entry exists, belongs to the
// current workspace and is younger than ttl. An expired entry is
// removed on the spot.
func (c *Cache) lookup(cacheKey, workspaceID string, ttl time.Duration) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[cacheKey]
	c.mu.RUnlock()

	if !ok || e.workspaceID != workspaceID {
		return nil, false
	}

	if c.now().Sub(e.timestamp) >= ttl {
		c.mu.Lock()
		// Слот мог быть перезаписан после RUnlock
		if cur, ok := c.entries[cacheKey]; ok && cur == e {
			delete(c.entries, cacheKey)
		}
		c.mu.Unlock()
		return nil, false
	}

	return e.data, true
}

func (c *Cache) store(cacheKey, workspaceID string, data any) {
	c.mu.Lock()
	c.entries[cacheKey] = &entry{
		data:        data,
		timestamp:   c.now(),
		workspaceID: workspaceID,
	}
	c.mu.Unlock()
}

// Fetch is the typed wrapper around Cache.Get
func Fetch[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, fetch func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	data, err := c.Get(ctx, key, ttl, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		return zero, err
	}

	typed, ok := data.(T)
	if !ok {
		return zero, fmt.Errorf("cache key %q holds %T, not %T", key, data, zero)
	}
	return typed, nil
}

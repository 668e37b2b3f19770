package listview

import (
	"sync"
	"time"
)

// Cache keeps one View per (session, module) so failed fetches can keep
// showing the previous rows. Idle views are evicted.
type Cache struct {
	mu      sync.Mutex
	views   map[cacheKey]*View
	maxIdle time.Duration
	max     int
	now     func() time.Time
}

type cacheKey struct {
	session string
	module  string
}

// NewCache builds a cache holding at most max views idle for at most maxIdle.
func NewCache(max int, maxIdle time.Duration) *Cache {
	if max <= 0 {
		max = 512
	}
	if maxIdle <= 0 {
		maxIdle = 30 * time.Minute
	}
	return &Cache{
		views:   make(map[cacheKey]*View),
		maxIdle: maxIdle,
		max:     max,
		now:     time.Now,
	}
}

// GetOrCreate returns the cached view or builds one with create.
func (c *Cache) GetOrCreate(session, module string, create func() (*View, error)) (*View, error) {
	key := cacheKey{session: session, module: module}
	c.mu.Lock()
	defer c.mu.Unlock()
	if view, ok := c.views[key]; ok {
		return view, nil
	}
	view, err := create()
	if err != nil {
		return nil, err
	}
	c.evictLocked()
	c.views[key] = view
	return view, nil
}

// DropSession closes and forgets every view of a session (logout).
func (c *Cache) DropSession(session string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, view := range c.views {
		if key.session == session {
			view.Close()
			delete(c.views, key)
		}
	}
}

// Len returns the number of cached views.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.views)
}

func (c *Cache) evictLocked() {
	now := c.now()
	var (
		oldestKey cacheKey
		oldest    time.Time
		found     bool
	)
	for key, view := range c.views {
		used := view.LastUsed()
		if now.Sub(used) > c.maxIdle {
			view.Close()
			delete(c.views, key)
			continue
		}
		if !found || used.Before(oldest) {
			oldestKey, oldest, found = key, used, true
		}
	}
	if len(c.views) >= c.max && found {
		c.views[oldestKey].Close()
		delete(c.views, oldestKey)
	}
}

package dashboard

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"
)

// RenderCache memoizes rendered charts.
type RenderCache interface {
	GetOrRender(key string, render func() (ChartView, error)) (ChartView, error)
	Purge()
}

// ChartCache is an in-memory TTL cache for rendered charts.
type ChartCache struct {
	ttl     time.Duration
	now     func() time.Time
	mu      sync.RWMutex
	entries map[string]cachedChart
}

type cachedChart struct {
	view    ChartView
	expires time.Time
}

// NewChartCache builds a cache with the provided TTL. A zero TTL disables
// caching.
func NewChartCache(ttl time.Duration) *ChartCache {
	return &ChartCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cachedChart),
	}
}

// GetOrRender returns a cached entry or renders and stores a new one.
// Failed renders are not cached.
func (c *ChartCache) GetOrRender(key string, render func() (ChartView, error)) (ChartView, error) {
	if view, ok := c.get(key); ok {
		return view, nil
	}
	view, err := render()
	if err != nil {
		return ChartView{}, err
	}
	c.set(key, view)
	return view, nil
}

// Purge drops every entry.
func (c *ChartCache) Purge() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries = make(map[string]cachedChart)
	c.mu.Unlock()
}

// Len reports the number of live entries.
func (c *ChartCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *ChartCache) get(key string) (ChartView, bool) {
	if c == nil || c.ttl <= 0 {
		return ChartView{}, false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || c.now().After(entry.expires) {
		if ok {
			c.mu.Lock()
			delete(c.entries, key)
			c.mu.Unlock()
		}
		return ChartView{}, false
	}
	return entry.view, true
}

func (c *ChartCache) set(key string, view ChartView) {
	if c == nil || c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.entries[key] = cachedChart{
		view:    view,
		expires: c.now().Add(c.ttl),
	}
	c.mu.Unlock()
}

// configHash returns a deterministic hash of any JSON-encodable value.
func configHash(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "invalid"
	}
	sum := sha1.Sum(b)
	return hex.EncodeToString(sum[:])
}

package app

import (
	"sync"
	"time"
)

// DefaultHealthCacheTTL is the default TTL for run store health checks
const DefaultHealthCacheTTL = 30 * time.Second

// HealthCache remembers the last run store health check so frequent
// /api/health polling does not ping the database every time.
type HealthCache struct {
	mu        sync.RWMutex
	lastErr   error
	checkedAt time.Time
	ttl       time.Duration
	now       func() time.Time
}

// NewHealthCache creates a new HealthCache with the specified TTL.
// A TTL of 0 effectively disables caching.
func NewHealthCache(ttl time.Duration) *HealthCache {
	return &HealthCache{ttl: ttl, now: time.Now}
}

// Get reports whether a result within TTL is cached, and that result
func (c *HealthCache) Get() (valid bool, err error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	valid = !c.checkedAt.IsZero() && c.now().Sub(c.checkedAt) < c.ttl
	return valid, c.lastErr
}

// Set records the result of a live check
func (c *HealthCache) Set(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastErr = err
	c.checkedAt = c.now()
}

// Invalidate clears the cache, forcing the next check to make a live call.
func (c *HealthCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checkedAt = time.Time{}
}

// Package cache provides a small in-process response cache with scope-wide
// invalidation. Finalizing a session invalidates the finished-workouts and
// monthly-KPIs scopes so history reads never serve stale aggregates.
package cache

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/coocood/freecache"
)

const defaultSizeBytes = 8 * 1024 * 1024

// ScopeCache wraps freecache with named scopes. Entries are keyed by
// scope plus a per-scope generation counter; invalidating a scope bumps
// the generation, orphaning every entry under the old one. Orphaned
// entries age out of freecache on their own.
type ScopeCache struct {
	cache  *freecache.Cache
	expiry int // seconds
	log    *slog.Logger

	mu   sync.Mutex
	gens map[string]uint64
}

// New creates a ScopeCache whose entries expire after expirySeconds.
func New(expirySeconds int, log *slog.Logger) *ScopeCache {
	return &ScopeCache{
		cache:  freecache.NewCache(defaultSizeBytes),
		expiry: expirySeconds,
		log:    log,
		gens:   make(map[string]uint64),
	}
}

func (c *ScopeCache) entryKey(scope, key string) []byte {
	c.mu.Lock()
	gen := c.gens[scope]
	c.mu.Unlock()
	return []byte(fmt.Sprintf("%s::%d::%s", scope, gen, key))
}

// Get returns the cached bytes for key within scope, or false on a miss.
func (c *ScopeCache) Get(scope, key string) ([]byte, bool) {
	val, err := c.cache.Get(c.entryKey(scope, key))
	if err != nil {
		return nil, false
	}
	return val, true
}

// Set stores value under key within scope.
func (c *ScopeCache) Set(scope, key string, value []byte) {
	if err := c.cache.Set(c.entryKey(scope, key), value, c.expiry); err != nil {
		c.log.Warn("cache set failed", "scope", scope, "key", key, "error", err)
	}
}

// Invalidate drops every entry in scope.
func (c *ScopeCache) Invalidate(scope string) {
	c.mu.Lock()
	c.gens[scope]++
	c.mu.Unlock()
	c.log.Debug("cache scope invalidated", "scope", scope)
}

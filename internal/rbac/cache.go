package rbac

import (
	"fmt"
	"sync"
	"time"
)

// PermissionCache memoizes resolved permission sets for a short window so the
// authorization middleware does not hit Postgres on every request. Entries are
// keyed by user id, role and branch so a role or branch change invalidates the
// stale set naturally. The clock is injected to keep expiry testable.
type PermissionCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

type cacheEntry struct {
	perms     []string
	expiresAt time.Time
}

// NewPermissionCache constructs a cache with the given TTL. A nil clock
// defaults to time.Now.
func NewPermissionCache(ttl time.Duration, now func() time.Time) *PermissionCache {
	if now == nil {
		now = time.Now
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &PermissionCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     now,
	}
}

func cacheKey(userID int64, role string, branchID int64) string {
	return fmt.Sprintf("%d|%s|%d", userID, role, branchID)
}

// Get returns the cached permission set, or false when absent or expired.
func (c *PermissionCache) Get(userID int64, role string, branchID int64) ([]string, bool) {
	c.mu.RLock()
	entry, ok := c.entries[cacheKey(userID, role, branchID)]
	c.mu.RUnlock()
	if !ok || c.now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.perms, true
}

// Set stores a permission set with the configured TTL.
func (c *PermissionCache) Set(userID int64, role string, branchID int64, perms []string) {
	c.mu.Lock()
	c.entries[cacheKey(userID, role, branchID)] = cacheEntry{
		perms:     perms,
		expiresAt: c.now().Add(c.ttl),
	}
	c.mu.Unlock()
}

// Invalidate drops every cached set for the given user.
func (c *PermissionCache) Invalidate(userID int64) {
	prefix := fmt.Sprintf("%d|", userID)
	c.mu.Lock()
	for key := range c.entries {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()
}

// Clear drops every cached set. Used when a role's permission set changes,
// which can affect any number of users.
func (c *PermissionCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}

// Sweep removes expired entries. Called periodically from the maintenance
// worker; correctness never depends on it.
func (c *PermissionCache) Sweep() int {
	now := c.now()
	removed := 0
	c.mu.Lock()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	c.mu.Unlock()
	return removed
}

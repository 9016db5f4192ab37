package rbac

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type fakeClock struct {
	current time.Time
}

func (c *fakeClock) Now() time.Time { return c.current }

func (c *fakeClock) Advance(d time.Duration) { c.current = c.current.Add(d) }

func TestPermissionCacheExpiry(t *testing.T) {
	clock := &fakeClock{current: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	cache := NewPermissionCache(5*time.Minute, clock.Now)

	cache.Set(1, "manager", 2, []string{"quotations:create"})

	perms, ok := cache.Get(1, "manager", 2)
	require.True(t, ok)
	assert.Equal(t, []string{"quotations:create"}, perms)

	clock.Advance(4 * time.Minute)
	_, ok = cache.Get(1, "manager", 2)
	assert.True(t, ok)

	clock.Advance(2 * time.Minute)
	_, ok = cache.Get(1, "manager", 2)
	assert.False(t, ok, "entry should expire after the TTL")
}

func TestPermissionCacheKeyedByRoleAndBranch(t *testing.T) {
	clock := &fakeClock{current: time.Now()}
	cache := NewPermissionCache(5*time.Minute, clock.Now)

	cache.Set(1, "staff", 2, []string{"quotations:view"})

	_, ok := cache.Get(1, "manager", 2)
	assert.False(t, ok, "role change must miss the cache")
	_, ok = cache.Get(1, "staff", 3)
	assert.False(t, ok, "branch change must miss the cache")
}

func TestPermissionCacheInvalidate(t *testing.T) {
	cache := NewPermissionCache(5*time.Minute, nil)
	cache.Set(1, "staff", 2, []string{"quotations:view"})
	cache.Set(1, "staff", 3, []string{"quotations:view"})
	cache.Set(2, "staff", 2, []string{"quotations:view"})

	cache.Invalidate(1)

	_, ok := cache.Get(1, "staff", 2)
	assert.False(t, ok)
	_, ok = cache.Get(1, "staff", 3)
	assert.False(t, ok)
	_, ok = cache.Get(2, "staff", 2)
	assert.True(t, ok, "other users keep their entries")
}

func TestPermissionCacheSweep(t *testing.T) {
	clock := &fakeClock{current: time.Now()}
	cache := NewPermissionCache(time.Minute, clock.Now)
	cache.Set(1, "staff", 1, nil)
	cache.Set(2, "staff", 1, nil)

	clock.Advance(2 * time.Minute)
	cache.Set(3, "staff", 1, nil)

	removed := cache.Sweep()
	assert.Equal(t, 2, removed)
	_, ok := cache.Get(3, "staff", 1)
	assert.True(t, ok)
}

func TestCanAccessBranch(t *testing.T) {
	assert.True(t, CanAccessBranch(shared.Identity{IsAdmin: true}, 9))
	assert.True(t, CanAccessBranch(shared.Identity{IsHQ: true, BranchID: 1}, 9))
	assert.True(t, CanAccessBranch(shared.Identity{BranchID: 9}, 9))
	assert.False(t, CanAccessBranch(shared.Identity{BranchID: 1}, 9))
}

package application

import (
	"testing"
	"time"
)

func TestLookupCache_ExpiresEntries(t *testing.T) {
	t.Parallel()

	current := time.Date(2025, time.January, 1, 9, 0, 0, 0, time.UTC)
	cache := NewLookupCache(time.Minute, 4, func() time.Time { return current })

	cache.Store(facultyCacheKey("fac-1"), "Dr. Ada")
	if name, ok := cache.Get(facultyCacheKey("fac-1")); !ok || name != "Dr. Ada" {
		t.Fatalf("expected cached name, got %q %v", name, ok)
	}

	current = current.Add(2 * time.Minute)
	if _, ok := cache.Get(facultyCacheKey("fac-1")); ok {
		t.Fatalf("expected entry to expire")
	}
}

func TestLookupCache_EvictsWhenFull(t *testing.T) {
	t.Parallel()

	cache := NewLookupCache(time.Hour, 2, nil)
	cache.Store(hallCacheKey("a"), "A")
	cache.Store(hallCacheKey("b"), "B")
	cache.Store(hallCacheKey("c"), "C")

	if got := cache.Len(); got != 2 {
		t.Fatalf("expected cache to stay at capacity 2, got %d", got)
	}
	if name, ok := cache.Get(hallCacheKey("c")); !ok || name != "C" {
		t.Fatalf("expected newest entry to be present")
	}
}

func TestLookupCache_Invalidate(t *testing.T) {
	t.Parallel()

	cache := NewLookupCache(time.Hour, 0, nil)
	cache.Store(hallCacheKey("a"), "A")
	cache.Invalidate()
	if _, ok := cache.Get(hallCacheKey("a")); ok {
		t.Fatalf("expected invalidate to clear entries")
	}

	var nilCache *LookupCache
	nilCache.Store("k", "v")
	if _, ok := nilCache.Get("k"); ok {
		t.Fatalf("expected nil cache to miss")
	}
}

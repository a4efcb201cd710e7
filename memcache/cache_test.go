package memcache_test

import (
	"testing"
	"time"

	"github.com/geomarkers/poicluster/memcache"
)

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) Advance(d time.Duration) { f.now = f.now.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func TestRoundTrip(t *testing.T) {
	clock := newClock()
	c := memcache.New(8, memcache.WithClock[string](clock.Now))

	c.Set("k", "v", time.Minute)
	got, ok := c.Get("k")
	if !ok || got != "v" {
		t.Fatalf("expected hit with %q, got (%q, %v)", "v", got, ok)
	}

	clock.Advance(time.Minute)
	if _, ok := c.Get("k"); ok {
		t.Fatal("expected miss after ttl elapsed")
	}
	if c.Has("k") {
		t.Fatal("Has should be false after expiry")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry not removed, len=%d", c.Len())
	}
}

func TestZeroTTLDoesNotCache(t *testing.T) {
	c := memcache.New[int](8)
	c.Set("k", 1, 0)
	if c.Has("k") {
		t.Fatal("zero ttl value should not be stored")
	}
}

func TestLRUEvictsLeastRecentlyAccessed(t *testing.T) {
	c := memcache.New[int](2)

	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)

	// Read "a" so "b" becomes the least recently used even though "a"
	// was inserted first.
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a")
	}

	c.Set("c", 3, time.Minute)

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should have survived eviction")
	}
	if _, ok := c.Get("c"); !ok {
		t.Fatal("c should be present")
	}
	if stats := c.Stats(); stats.Evictions != 1 {
		t.Fatalf("expected 1 eviction, got %d", stats.Evictions)
	}
}

func TestValidatorEvictsMismatch(t *testing.T) {
	c := memcache.New[[]int](8)
	c.Set("k", nil, time.Minute)

	_, ok := c.Get("k", func(v []int) bool { return v != nil })
	if ok {
		t.Fatal("validator failure must read as a miss")
	}
	if c.Has("k") {
		t.Fatal("offending entry must be evicted")
	}
}

func TestDeleteAndClearPattern(t *testing.T) {
	c := memcache.New[int](16)
	c.Set("cluster:a", 1, time.Minute)
	c.Set("cluster:b", 2, time.Minute)
	c.Set("fetch:a", 3, time.Minute)

	if !c.Delete("fetch:a") {
		t.Fatal("delete should report removal")
	}
	if c.Delete("fetch:a") {
		t.Fatal("second delete should be a no-op")
	}

	if n := c.Clear("cluster:*"); n != 2 {
		t.Fatalf("expected 2 cleared, got %d", n)
	}
	if c.Len() != 0 {
		t.Fatalf("expected empty store, len=%d", c.Len())
	}

	c.Set("x", 1, time.Minute)
	c.Set("y", 2, time.Minute)
	if n := c.Clear(""); n != 2 {
		t.Fatalf("empty pattern should clear all, got %d", n)
	}
}

func TestJanitorRemovesExpired(t *testing.T) {
	clock := newClock()
	c := memcache.New(8, memcache.WithClock[int](clock.Now))

	c.Set("short", 1, 10*time.Millisecond)
	c.Set("long", 2, time.Hour)
	clock.Advance(time.Second)

	c.StartCleanup(time.Millisecond)
	defer c.Stop()

	deadline := time.After(time.Second)
	for c.Len() > 1 {
		select {
		case <-deadline:
			t.Fatal("janitor did not remove expired entry")
		case <-time.After(time.Millisecond):
		}
	}

	if !c.Has("long") {
		t.Fatal("live entry removed by janitor")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	c := memcache.New[int](8)
	c.StartCleanup(time.Millisecond)
	c.Stop()
	c.Stop()
}

package cache

import (
	"testing"
	"time"

	"finanzas/internal/analytics"
)

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should be cached")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %v, %v", v, ok)
	}
	if c.Size() != 2 {
		t.Errorf("Size() = %d, want 2", c.Size())
	}
}

func TestLRUCache_TTL(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("k", "v")
	c.Set("k2", "v2")
	now = now.Add(30 * time.Second)
	if _, ok := c.Get("k"); !ok {
		t.Error("entry should still be fresh")
	}
	now = now.Add(time.Minute)
	if _, ok := c.Get("k"); ok {
		t.Error("entry should have expired")
	}
	if n := c.CleanExpired(); n != 1 {
		t.Errorf("CleanExpired() = %d, want 1", n)
	}

	s := c.Stats()
	if s.Hits != 1 || s.Misses != 1 || s.Size != 0 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestLRUCache_DeleteAndPurge(t *testing.T) {
	c := NewLRUCache[int](5, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Error("a should be deleted")
	}
	c.Purge()
	if c.Size() != 0 {
		t.Errorf("Size() after Purge = %d", c.Size())
	}
	c.Set("c", 3)
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Error("cache should be usable after Purge")
	}
}

func TestReports_Generations(t *testing.T) {
	r := NewReports(4, time.Minute)
	six := analytics.Window(6)
	twelve := analytics.Window(12)

	r.Set(six, 1, analytics.Report{Window: six})
	if _, ok := r.Get(six, 1); !ok {
		t.Fatal("report for generation 1 should be cached")
	}
	if _, ok := r.Get(six, 2); ok {
		t.Error("generation 2 must not see generation 1 report")
	}

	r.Set(twelve, 2, analytics.Report{Window: twelve})
	if _, ok := r.Get(six, 1); ok {
		t.Error("newer generation should purge older reports")
	}

	r.Set(six, 1, analytics.Report{Window: six})
	if _, ok := r.Get(six, 1); ok {
		t.Error("stale generation must not be stored")
	}

	r.Invalidate()
	if _, ok := r.Get(twelve, 2); ok {
		t.Error("Invalidate should drop everything")
	}
}

func TestManager_StopWithoutStart(t *testing.T) {
	m := NewManager()
	m.Register(NewReports(1, time.Second))
	m.Stop()

	m2 := NewManager()
	m2.Register(NewLRUCache[int](1, time.Millisecond))
	m2.StartCleanup(time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	m2.Stop()
}

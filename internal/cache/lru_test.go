package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLRUCacheExpiry(t *testing.T) {
	now := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[string]("test", 10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("a", "1")
	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Fatalf("Get(a) = %q, %v", v, ok)
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expired entry returned")
	}
	if c.Size() != 0 {
		t.Fatalf("Size() = %d after expiry", c.Size())
	}
}

func TestLRUCacheEvictsOldest(t *testing.T) {
	c := NewLRUCache[int]("test", 2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Errorf("least recently used entry survived")
	}
	for _, k := range []string{"a", "c"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("entry %s evicted", k)
		}
	}
}

func TestLRUCacheGetOrLoad(t *testing.T) {
	c := NewLRUCache[int]("test", 10, time.Minute)
	calls := 0
	load := func(context.Context) (int, error) {
		calls++
		return 42, nil
	}

	for i := 0; i < 3; i++ {
		v, err := c.GetOrLoad(context.Background(), "k", load)
		if err != nil || v != 42 {
			t.Fatalf("GetOrLoad = %d, %v", v, err)
		}
	}
	if calls != 1 {
		t.Errorf("loader called %d times, want 1", calls)
	}

	boom := errors.New("boom")
	if _, err := c.GetOrLoad(context.Background(), "bad", func(context.Context) (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Fatalf("GetOrLoad err = %v", err)
	}
	if _, ok := c.Get("bad"); ok {
		t.Errorf("error result was cached")
	}
}

func TestLRUCacheDeletePrefixAndClean(t *testing.T) {
	now := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[int]("test", 10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("biz:1:statuses", 1)
	c.Set("biz:1:schedule", 2)
	c.Set("biz:2:statuses", 3)
	c.DeletePrefix("biz:1:")
	if c.Size() != 1 {
		t.Fatalf("Size() = %d after DeletePrefix, want 1", c.Size())
	}

	now = now.Add(time.Hour)
	if n := c.CleanExpired(); n != 1 {
		t.Errorf("CleanExpired() = %d, want 1", n)
	}
}

func TestZeroTTLDisablesCaching(t *testing.T) {
	c := NewLRUCache[int]("test", 10, 0)
	c.Set("a", 1)
	if _, ok := c.Get("a"); ok {
		t.Errorf("value cached with zero TTL")
	}
}

func TestManagerStopIsIdempotent(t *testing.T) {
	m := NewManager()
	m.Register(NewLRUCache[int]("test", 1, time.Minute))
	m.StartCleanup(time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	m.Stop()
	m.Stop()
}

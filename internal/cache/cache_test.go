// Querylens - Natural Language Analytics Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/querylens

package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestSetAndGet(t *testing.T) {
	c := New(time.Minute)

	c.Set("result", map[string]any{"user_count": 42})

	got, ok := c.Get("result")
	if !ok {
		t.Fatal("Expected cache hit, got miss")
	}
	rows, ok := got.(map[string]any)
	if !ok {
		t.Fatalf("Expected map[string]any, got %T", got)
	}
	if rows["user_count"] != 42 {
		t.Errorf("Expected user_count 42, got %v", rows["user_count"])
	}
}

func TestGetMissing(t *testing.T) {
	c := New(time.Minute)

	if _, ok := c.Get("nope"); ok {
		t.Error("Expected miss for absent key, got hit")
	}

	stats := c.GetStats()
	if stats.Misses != 1 {
		t.Errorf("Expected 1 miss, got %d", stats.Misses)
	}
}

func TestExpiration(t *testing.T) {
	c := New(10 * time.Millisecond)

	c.Set("ephemeral", "value")
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("ephemeral"); ok {
		t.Error("Expected expired entry to miss")
	}

	stats := c.GetStats()
	if stats.Evictions != 1 {
		t.Errorf("Expected 1 eviction, got %d", stats.Evictions)
	}
}

func TestSetWithTTLOverridesDefault(t *testing.T) {
	c := New(10 * time.Millisecond)

	c.SetWithTTL("pinned", "value", time.Minute)
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("pinned"); !ok {
		t.Error("Expected custom-TTL entry to survive default TTL window")
	}
}

func TestDelete(t *testing.T) {
	c := New(time.Minute)

	c.Set("key", "value")
	c.Delete("key")

	if _, ok := c.Get("key"); ok {
		t.Error("Expected deleted key to miss")
	}
}

func TestClear(t *testing.T) {
	c := New(time.Minute)

	for i := 0; i < 5; i++ {
		c.Set(fmt.Sprintf("key-%d", i), i)
	}
	c.Clear()

	stats := c.GetStats()
	if stats.TotalKeys != 0 {
		t.Errorf("Expected 0 keys after clear, got %d", stats.TotalKeys)
	}
	if stats.Evictions != 5 {
		t.Errorf("Expected 5 evictions after clear, got %d", stats.Evictions)
	}
}

func TestHitRate(t *testing.T) {
	c := New(time.Minute)

	if rate := c.HitRate(); rate != 0.0 {
		t.Errorf("Expected 0%% hit rate on empty cache, got %.2f", rate)
	}

	c.Set("key", "value")
	c.Get("key")
	c.Get("key")
	c.Get("missing")

	if rate := c.HitRate(); rate < 66.0 || rate > 67.0 {
		t.Errorf("Expected ~66.67%% hit rate, got %.2f", rate)
	}
}

func TestCleanupRemovesExpired(t *testing.T) {
	c := New(time.Minute)

	c.SetWithTTL("stale", "value", -time.Second)
	c.Set("fresh", "value")

	c.cleanup()

	stats := c.GetStats()
	if stats.TotalKeys != 1 {
		t.Errorf("Expected 1 key after cleanup, got %d", stats.TotalKeys)
	}
	if _, ok := c.Get("fresh"); !ok {
		t.Error("Expected fresh entry to survive cleanup")
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := New(time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", n%3)
			for j := 0; j < 100; j++ {
				c.Set(key, j)
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()
}

func TestGenerateKeyDeterministic(t *testing.T) {
	params := map[string]string{"query": "SELECT COUNT(*) FROM users"}

	k1 := GenerateKey("query:execute", params)
	k2 := GenerateKey("query:execute", params)

	if k1 != k2 {
		t.Errorf("Expected identical keys, got %q and %q", k1, k2)
	}
}

func TestGenerateKeyVariesByParams(t *testing.T) {
	k1 := GenerateKey("query:execute", map[string]string{"query": "a"})
	k2 := GenerateKey("query:execute", map[string]string{"query": "b"})

	if k1 == k2 {
		t.Error("Expected different params to produce different keys")
	}
}

func TestGenerateKeyVariesByMethod(t *testing.T) {
	params := map[string]string{"query": "a"}

	k1 := GenerateKey("query:execute", params)
	k2 := GenerateKey("query:generate", params)

	if k1 == k2 {
		t.Error("Expected different methods to produce different keys")
	}
}

package proxy

import (
	"fmt"
	"testing"
	"time"
)

func testClock(start time.Time) (*time.Time, func() time.Time) {
	current := start
	return &current, func() time.Time { return current }
}

func TestCacheGetSet(t *testing.T) {
	c := NewCache(5*time.Minute, 10)

	if _, _, ok := c.Get("https://www.dfi.dk/a"); ok {
		t.Error("Expected miss on empty cache")
	}

	c.Set("https://www.dfi.dk/a", []byte("body"), "text/html")
	body, contentType, ok := c.Get("https://www.dfi.dk/a")
	if !ok {
		t.Fatal("Expected hit after Set")
	}
	if string(body) != "body" || contentType != "text/html" {
		t.Errorf("Unexpected cached values: %q, %q", body, contentType)
	}
}

func TestCacheExpiry(t *testing.T) {
	c := NewCache(5*time.Minute, 10)
	clock, now := testClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	c.now = now

	c.Set("key", []byte("body"), "text/html")

	*clock = clock.Add(4 * time.Minute)
	if _, _, ok := c.Get("key"); !ok {
		t.Error("Expected hit before TTL")
	}

	*clock = clock.Add(2 * time.Minute)
	if _, _, ok := c.Get("key"); ok {
		t.Error("Expected miss after TTL")
	}
	if got := c.Len(); got != 0 {
		t.Errorf("Expected expired entry removed, got size %d", got)
	}
}

func TestCacheEvictsOldestInserted(t *testing.T) {
	c := NewCache(5*time.Minute, 3)

	for i := 0; i < 3; i++ {
		c.Set(fmt.Sprintf("key-%d", i), []byte("x"), "text/html")
	}
	// touching an early key must not protect it; eviction is by insertion order
	c.Get("key-0")

	c.Set("key-3", []byte("x"), "text/html")

	if got := c.Len(); got != 3 {
		t.Errorf("Expected size capped at 3, got %d", got)
	}
	if _, _, ok := c.Get("key-0"); ok {
		t.Error("Expected oldest-inserted key evicted")
	}
	if _, _, ok := c.Get("key-3"); !ok {
		t.Error("Expected newest key present")
	}
}

func TestCacheOverwriteKeepsPosition(t *testing.T) {
	c := NewCache(5*time.Minute, 2)

	c.Set("a", []byte("1"), "text/html")
	c.Set("b", []byte("1"), "text/html")
	c.Set("a", []byte("2"), "text/html")
	c.Set("c", []byte("1"), "text/html")

	if _, _, ok := c.Get("a"); ok {
		t.Error("Expected 'a' evicted as oldest-inserted despite overwrite")
	}
	if _, _, ok := c.Get("b"); !ok {
		t.Error("Expected 'b' to survive")
	}
	if _, _, ok := c.Get("c"); !ok {
		t.Error("Expected 'c' present")
	}
}

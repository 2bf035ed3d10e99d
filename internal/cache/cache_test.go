package cache

import (
	"testing"
	"time"
)

func TestCache_SetAndGet(t *testing.T) {
	c := New(16, time.Minute)

	c.Set("files:alice:list:50:0", []string{"f1", "f2"})

	got, ok := c.Get("files:alice:list:50:0")
	if !ok {
		t.Fatal("Get() miss for a freshly set key")
	}
	ids, ok := got.([]string)
	if !ok || len(ids) != 2 {
		t.Errorf("Get() = %v", got)
	}

	if _, ok := c.Get("files:alice:list:50:50"); ok {
		t.Error("Get() hit for a key that was never set")
	}
}

func TestCache_TTLExpiry(t *testing.T) {
	c := New(16, 20*time.Millisecond)

	c.Set("k", "v")
	if _, ok := c.Get("k"); !ok {
		t.Fatal("Get() miss before expiry")
	}

	time.Sleep(50 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Error("Get() hit after TTL expiry")
	}
}

func TestCache_InvalidatePrefix(t *testing.T) {
	c := New(16, time.Minute)

	c.Set(FileListKey("alice", 50, 0), "a")
	c.Set(FileListKey("alice", 50, 50), "b")
	c.Set(StatsKey("alice"), "c")
	c.Set(FileListKey("bob", 50, 0), "d")

	removed := c.InvalidatePrefix(FilesPrefix("alice"))
	if removed != 2 {
		t.Errorf("InvalidatePrefix() removed = %d, want 2", removed)
	}

	if _, ok := c.Get(FileListKey("alice", 50, 0)); ok {
		t.Error("alice's list entry survived invalidation")
	}
	// Different prefix and different owner are untouched.
	if _, ok := c.Get(StatsKey("alice")); !ok {
		t.Error("alice's stats entry was wrongly invalidated")
	}
	if _, ok := c.Get(FileListKey("bob", 50, 0)); !ok {
		t.Error("bob's list entry was wrongly invalidated")
	}
}

func TestCache_CapacityEviction(t *testing.T) {
	c := New(2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2 after eviction", c.Len())
	}
	if _, ok := c.Get("a"); ok {
		t.Error("oldest entry should have been evicted")
	}
}

func TestKeyBuilders(t *testing.T) {
	if got := FileListKey("alice", 50, 0); got != "files:alice:list:50:0" {
		t.Errorf("FileListKey() = %q", got)
	}
	if got := StatsKey("alice"); got != "fast-files:alice:stats" {
		t.Errorf("StatsKey() = %q", got)
	}
	if got := FolderChildrenKey("alice", ""); got != "folders:alice:children:" {
		t.Errorf("FolderChildrenKey() = %q", got)
	}
}

// Package cache provides the process-wide, TTL-based read cache with
// prefix-pattern invalidation. Entries are never the source of truth; a miss
// always falls back to the relational store.
package cache

import (
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache is a bounded in-memory key/value store where every entry expires
// after the configured TTL. Safe for concurrent use.
type Cache struct {
	lru *expirable.LRU[string, any]
}

// New creates a cache holding at most maxEntries values, each expiring ttl
// after it was set.
func New(maxEntries int, ttl time.Duration) *Cache {
	return &Cache{
		lru: expirable.NewLRU[string, any](maxEntries, nil, ttl),
	}
}

// Get returns the cached value for key, if present and not expired.
func (c *Cache) Get(key string) (any, bool) {
	return c.lru.Get(key)
}

// Set stores value under key.
func (c *Cache) Set(key string, value any) {
	c.lru.Add(key, value)
}

// InvalidatePrefix removes every entry whose key starts with prefix and
// returns the number removed. Mutations invalidate whole owner-scoped
// collections this way instead of chasing individual keys.
func (c *Cache) InvalidatePrefix(prefix string) int {
	removed := 0
	for _, key := range c.lru.Keys() {
		if strings.HasPrefix(key, prefix) {
			if c.lru.Remove(key) {
				removed++
			}
		}
	}
	return removed
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// Key builders. All keys are owner-scoped so a mutation for one owner never
// evicts another owner's entries.

// FilesPrefix is the invalidation prefix for an owner's file listings.
func FilesPrefix(owner string) string {
	return fmt.Sprintf("files:%s:", owner)
}

// FastFilesPrefix is the invalidation prefix for an owner's aggregate views.
func FastFilesPrefix(owner string) string {
	return fmt.Sprintf("fast-files:%s:", owner)
}

// FoldersPrefix is the invalidation prefix for an owner's folder listings.
func FoldersPrefix(owner string) string {
	return fmt.Sprintf("folders:%s:", owner)
}

// FileListKey is the cache key for one page of an owner's file list.
func FileListKey(owner string, limit, offset int) string {
	return fmt.Sprintf("files:%s:list:%d:%d", owner, limit, offset)
}

// StatsKey is the cache key for an owner's aggregate stats.
func StatsKey(owner string) string {
	return fmt.Sprintf("fast-files:%s:stats", owner)
}

// FolderChildrenKey is the cache key for one level of an owner's folder tree.
// parentID is empty for the root level.
func FolderChildrenKey(owner, parentID string) string {
	return fmt.Sprintf("folders:%s:children:%s", owner, parentID)
}

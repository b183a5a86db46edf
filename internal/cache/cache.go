// Package cache holds parsed sources keyed by file path for the lifetime of the process.
//
// Entries never expire and are never checked against the file on disk; callers
// decide freshness with Clear or Evict. While the cache is disabled Get always
// misses and Put does nothing, so every retrieval reparses.
package cache

import (
	"sync"
	"sync/atomic"

	"funcfile/internal/parser"
)

// ParsedSource is a source text together with the functions parsed from it.
// Descriptor offsets are only valid against Text. Never mutated once stored.
type ParsedSource struct {
	Text      string
	Functions []parser.FunctionDescriptor
}

// Cache maps file paths to parsed sources. Safe for concurrent use; the last Put wins.
type Cache struct {
	mu      sync.RWMutex
	files   map[string]*ParsedSource
	enabled atomic.Bool
}

// New returns an empty, enabled cache.
func New() *Cache {
	c := &Cache{files: make(map[string]*ParsedSource)}
	c.enabled.Store(true)
	return c
}

// Get returns the cached source for path. Always misses while disabled.
func (c *Cache) Get(path string) (*ParsedSource, bool) {
	if !c.enabled.Load() {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	src, ok := c.files[path]
	return src, ok
}

// Put stores src under path. No-op while disabled.
func (c *Cache) Put(path string, src *ParsedSource) {
	if !c.enabled.Load() || src == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.files[path] = src
}

// Evict drops the entry for path, if any.
func (c *Cache) Evict(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.files, path)
}

// EvictMatching drops every entry whose path satisfies match and returns how many were dropped.
func (c *Cache) EvictMatching(match func(path string) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for path := range c.files {
		if match(path) {
			delete(c.files, path)
			n++
		}
	}
	return n
}

// Clear discards every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.files = make(map[string]*ParsedSource)
}

// SetEnabled switches caching on or off. Existing entries are kept.
func (c *Cache) SetEnabled(enabled bool) {
	c.enabled.Store(enabled)
}

func (c *Cache) Enable()  { c.SetEnabled(true) }
func (c *Cache) Disable() { c.SetEnabled(false) }

// Enabled reports whether lookups and inserts touch the mapping.
func (c *Cache) Enabled() bool {
	return c.enabled.Load()
}

// Len returns the number of cached paths.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.files)
}

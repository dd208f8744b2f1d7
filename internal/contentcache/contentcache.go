// Package contentcache memoizes symbol extraction by file content, keyed
// on (path, content hash, language, grammar version) per spec.md §4.4.
// Eviction is LRU under a byte budget rather than an entry-count budget,
// grounded on gnana997-uispec's pkg/indexer/indexer.go use of
// github.com/hashicorp/golang-lru/v2 with an eviction callback, adapted
// here to track running byte size instead of just logging the eviction.
package contentcache

import (
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mvrmn/fae/internal/parser"
)

// DefaultByteBudget is the default total size, in symbol-record bytes, the
// cache retains before evicting least-recently-used entries (spec.md §3).
const DefaultByteBudget = 100 * 1024 * 1024

// Key identifies one cache entry: a file's path and content hash under a
// given language and grammar version. Path is part of the key, so two files
// with identical content never share an entry.
type Key struct {
	Path           string
	Hash           parser.ContentHash
	Language       parser.Language
	GrammarVersion uint32
}

// entrySize estimates the resident size of a cached symbol slice; used to
// charge the byte budget. It need not be exact, only monotonic in the
// number and length of records.
func entrySize(syms []parser.Symbol) int64 {
	var n int64
	for _, s := range syms {
		n += int64(len(s.Name) + len(s.File) + len(s.Context) + 64)
	}
	return n
}

// Cache is a content-addressed, byte-budgeted LRU cache of extracted
// symbol slices. The zero value is not usable; construct with New.
type Cache struct {
	mu     sync.Mutex
	lru    *lru.Cache[Key, []parser.Symbol]
	budget int64
	used   int64

	hits   atomic.Int64
	misses atomic.Int64
}

// New returns a Cache with the given byte budget. budget <= 0 uses
// DefaultByteBudget. The underlying LRU is sized generously on entry
// count since the real bound is enforced by the byte-budget eviction
// loop in put, not by the LRU's own capacity.
func New(budget int64) *Cache {
	if budget <= 0 {
		budget = DefaultByteBudget
	}
	c := &Cache{budget: budget}
	// capacity is advisory; the eviction loop in put enforces the real
	// budget, so a large fixed capacity just avoids the LRU's own
	// count-based eviction from firing first.
	l, err := lru.NewWithEvict(1<<20, func(_ Key, v []parser.Symbol) {
		c.used -= entrySize(v)
	})
	if err != nil {
		// 1<<20 is a valid positive size; this cannot happen.
		panic(err)
	}
	c.lru = l
	return c
}

// Get returns the cached symbol slice for key, if present. The returned
// slice is byte-for-byte identical to what extraction last produced for
// that key (spec.md §4.4 invariant) and must not be mutated by the caller.
func (c *Cache) Get(key Key) ([]parser.Symbol, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.lru.Get(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return v, ok
}

// Put stores syms under key, evicting least-recently-used entries until
// the cache is back under budget.
func (c *Cache) Put(key Key, syms []parser.Symbol) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.lru.Peek(key); ok {
		c.used -= entrySize(old)
	}
	c.lru.Add(key, syms)
	c.used += entrySize(syms)

	for c.used > c.budget && c.lru.Len() > 0 {
		if _, _, ok := c.lru.RemoveOldest(); !ok {
			break
		}
	}
}

// Invalidate drops every entry for path, regardless of hash, used when a
// file is deleted or a stale hash must be forced out (spec.md lifecycle:
// cache entries are evicted on content-hash change).
func (c *Cache) Invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range c.lru.Keys() {
		if k.Path == path {
			c.lru.Remove(k)
		}
	}
}

// Stats reports cache hit/miss counters and current byte usage.
type Stats struct {
	Hits   int64
	Misses int64
	Used   int64
	Budget int64
}

// Stats returns a snapshot of cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Used:   c.used,
		Budget: c.budget,
	}
}

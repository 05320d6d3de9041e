package search

import (
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	defaultCacheSize = 512
	defaultCacheTTL  = 5 * time.Minute
)

type cacheEntry struct {
	results     []FusedResult
	degradation Degradation
	storedAt    time.Time
}

// ResultCache is a TTL-bounded LRU cache of fused result lists, keyed by
// normalized query plus the options that shape the result set. Entries are
// invalidated when any document they contain changes.
type ResultCache struct {
	lru *expirable.LRU[string, cacheEntry]
}

// NewResultCache creates a cache with the given capacity and entry TTL.
// Non-positive arguments fall back to the defaults.
func NewResultCache(size int, ttl time.Duration) *ResultCache {
	if size <= 0 {
		size = defaultCacheSize
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &ResultCache{
		lru: expirable.NewLRU[string, cacheEntry](size, nil, ttl),
	}
}

// Key builds the cache key for a query and its options. Queries differing
// only in case or surrounding whitespace share an entry.
func (c *ResultCache) Key(query string, opts Options) string {
	normalized := strings.ToLower(strings.TrimSpace(query))
	weights := "default"
	if opts.Weights != nil {
		weights = fmt.Sprintf("%.3f:%.3f", opts.Weights.Keyword, opts.Weights.Vector)
	}
	return fmt.Sprintf("%s|%d|%s|%t", normalized, opts.Limit, weights, opts.KeywordOnly)
}

// Get returns the cached results for a key together with the degradation
// mode they were produced under, with a copy so callers cannot mutate the
// cached slice.
func (c *ResultCache) Get(key string) ([]FusedResult, Degradation, bool) {
	entry, ok := c.lru.Get(key)
	if !ok {
		return nil, "", false
	}
	return append([]FusedResult(nil), entry.results...), entry.degradation, true
}

// Put stores results for a key along with their degradation mode, so cache
// hits report how the results were originally produced.
func (c *ResultCache) Put(key string, results []FusedResult, degradation Degradation) {
	c.lru.Add(key, cacheEntry{
		results:     append([]FusedResult(nil), results...),
		degradation: degradation,
		storedAt:    time.Now(),
	})
}

// Invalidate removes every entry whose results reference any of the given
// document IDs. A nil or empty list clears the whole cache. Returns the
// number of entries removed.
func (c *ResultCache) Invalidate(docIDs []string) int {
	if len(docIDs) == 0 {
		removed := c.lru.Len()
		c.lru.Purge()
		return removed
	}

	affected := make(map[string]struct{}, len(docIDs))
	for _, id := range docIDs {
		affected[id] = struct{}{}
	}

	removed := 0
	for _, key := range c.lru.Keys() {
		entry, ok := c.lru.Peek(key)
		if !ok {
			continue
		}
		for _, r := range entry.results {
			if _, hit := affected[r.DocID]; hit {
				c.lru.Remove(key)
				removed++
				break
			}
		}
	}
	return removed
}

// Len returns the number of live entries.
func (c *ResultCache) Len() int {
	return c.lru.Len()
}

package search

import (
	"context"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	kerrors "github.com/kestrel-search/kestrel/internal/errors"
)

const (
	defaultOverallTimeout = 5 * time.Second
	lastGoodCapacity      = 256
)

// ResilientSearcher wraps a Searcher with a TTL result cache and a
// last-known-good fallback. Fresh cache hits skip retrieval entirely; when
// live retrieval fails, a previously successful response for the same query
// is served as DegradationCachedOnly, stale or not.
type ResilientSearcher struct {
	inner  Searcher
	cache  *ResultCache
	logger *slog.Logger

	overallTimeout time.Duration

	// lastGood holds the most recent successful results per cache key with
	// no TTL. It is only consulted after live retrieval fails.
	lastGood *lru.Cache[string, []FusedResult]
}

var _ Searcher = (*ResilientSearcher)(nil)

// ResilientOption configures a ResilientSearcher.
type ResilientOption func(*ResilientSearcher)

// WithOverallTimeout bounds the end-to-end search, cache misses included.
func WithOverallTimeout(d time.Duration) ResilientOption {
	return func(r *ResilientSearcher) {
		if d > 0 {
			r.overallTimeout = d
		}
	}
}

// WithResilientLogger sets the structured logger.
func WithResilientLogger(logger *slog.Logger) ResilientOption {
	return func(r *ResilientSearcher) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResilient wraps inner with the given result cache.
func NewResilient(inner Searcher, cache *ResultCache, opts ...ResilientOption) (*ResilientSearcher, error) {
	if inner == nil {
		return nil, ErrNilDependency
	}
	if cache == nil {
		cache = NewResultCache(0, 0)
	}

	lastGood, err := lru.New[string, []FusedResult](lastGoodCapacity)
	if err != nil {
		return nil, err
	}

	r := &ResilientSearcher{
		inner:          inner,
		cache:          cache,
		logger:         slog.Default(),
		overallTimeout: defaultOverallTimeout,
		lastGood:       lastGood,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Search serves from cache when possible, otherwise delegates to the wrapped
// searcher. On total failure it falls back to the last known good results;
// with nothing to fall back on it returns a Down response alongside the
// error, so callers still see the degradation mode.
func (r *ResilientSearcher) Search(ctx context.Context, query string, opts Options) (*Response, error) {
	key := r.cache.Key(query, opts)

	if results, degradation, ok := r.cache.Get(key); ok {
		return &Response{
			Results:     results,
			Degradation: degradation,
			FromCache:   true,
		}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.overallTimeout)
	defer cancel()

	// Only an undegraded response is worth keeping: a keyword-only result
	// set produced by a vector failure must not be replayed for the whole
	// TTL, and must not become the last-good fallback. A keyword-only
	// request is undegraded when it comes back keyword-only.
	undegraded := DegradationFull
	if opts.KeywordOnly {
		undegraded = DegradationKeywordOnly
	}

	resp, err := r.inner.Search(ctx, query, opts)
	if err == nil {
		// A cancelled context may have produced partial results; never
		// cache those.
		if ctx.Err() == nil && resp.Degradation == undegraded {
			r.cache.Put(key, resp.Results, resp.Degradation)
			r.lastGood.Add(key, append([]FusedResult(nil), resp.Results...))
		}
		return resp, nil
	}

	if stale, ok := r.lastGood.Get(key); ok {
		r.logger.Warn("live retrieval failed, serving last known good results",
			slog.String("query", query),
			slog.String("error", err.Error()))
		return &Response{
			Results:     append([]FusedResult(nil), stale...),
			Degradation: DegradationCachedOnly,
			FromCache:   true,
		}, nil
	}

	return &Response{
		Results:     []FusedResult{},
		Degradation: DegradationDown,
	}, kerrors.Wrap(kerrors.ErrCodeSearchFailed, err)
}

// Invalidate drops cached responses referencing the given documents from
// both the TTL cache and the last-known-good store. A nil list clears
// everything.
func (r *ResilientSearcher) Invalidate(docIDs []string) int {
	removed := r.cache.Invalidate(docIDs)

	if len(docIDs) == 0 {
		r.lastGood.Purge()
		return removed
	}

	affected := make(map[string]struct{}, len(docIDs))
	for _, id := range docIDs {
		affected[id] = struct{}{}
	}
	for _, key := range r.lastGood.Keys() {
		results, ok := r.lastGood.Peek(key)
		if !ok {
			continue
		}
		for _, res := range results {
			if _, hit := affected[res.DocID]; hit {
				r.lastGood.Remove(key)
				break
			}
		}
	}
	return removed
}

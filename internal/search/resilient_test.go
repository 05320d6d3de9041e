package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kerrors "github.com/kestrel-search/kestrel/internal/errors"
)

// scriptedSearcher returns canned responses and counts invocations.
type scriptedSearcher struct {
	resp  *Response
	err   error
	delay time.Duration
	calls int
}

func (s *scriptedSearcher) Search(ctx context.Context, _ string, _ Options) (*Response, error) {
	s.calls++
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

func okResponse(ids ...string) *Response {
	results := make([]FusedResult, len(ids))
	for i, id := range ids {
		results[i] = FusedResult{DocID: id, FusedScore: 1.0 / float64(i+1)}
	}
	return &Response{Results: results, Degradation: DegradationFull}
}

func TestResilientServesFreshCacheHit(t *testing.T) {
	inner := &scriptedSearcher{resp: okResponse("a", "b")}
	r, err := NewResilient(inner, NewResultCache(8, time.Minute))
	require.NoError(t, err)

	first, err := r.Search(context.Background(), "oauth", Options{Limit: 10})
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	require.Equal(t, 1, inner.calls)

	second, err := r.Search(context.Background(), "OAUTH", Options{Limit: 10})
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, DegradationFull, second.Degradation)
	assert.Equal(t, first.Results, second.Results)
	assert.Equal(t, 1, inner.calls)
}

func TestResilientDoesNotCacheDegradedResponses(t *testing.T) {
	inner := &scriptedSearcher{resp: &Response{
		Results:     []FusedResult{{DocID: "a", FusedScore: 1.0}},
		Degradation: DegradationKeywordOnly,
	}}
	cache := NewResultCache(8, time.Minute)
	r, err := NewResilient(inner, cache)
	require.NoError(t, err)

	first, err := r.Search(context.Background(), "oauth", Options{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, DegradationKeywordOnly, first.Degradation)
	assert.Equal(t, 0, cache.Len())

	// The vector backend recovers; the next call goes live again and the
	// response is not replayed from a degraded entry.
	inner.resp = okResponse("a", "b")
	second, err := r.Search(context.Background(), "oauth", Options{Limit: 10})
	require.NoError(t, err)
	assert.False(t, second.FromCache)
	assert.Equal(t, DegradationFull, second.Degradation)
	assert.Equal(t, 2, inner.calls)
}

func TestResilientCacheHitKeepsKeywordOnlyMode(t *testing.T) {
	inner := &scriptedSearcher{resp: &Response{
		Results:     []FusedResult{{DocID: "a"}},
		Degradation: DegradationKeywordOnly,
	}}
	r, err := NewResilient(inner, NewResultCache(8, time.Minute))
	require.NoError(t, err)

	opts := Options{Limit: 10, KeywordOnly: true}
	_, err = r.Search(context.Background(), "oauth", opts)
	require.NoError(t, err)

	hit, err := r.Search(context.Background(), "oauth", opts)
	require.NoError(t, err)
	assert.True(t, hit.FromCache)
	assert.Equal(t, DegradationKeywordOnly, hit.Degradation)
	assert.Equal(t, 1, inner.calls)
}

func TestResilientFallsBackToLastKnownGood(t *testing.T) {
	inner := &scriptedSearcher{resp: okResponse("a")}
	r, err := NewResilient(inner, NewResultCache(8, 20*time.Millisecond))
	require.NoError(t, err)

	_, err = r.Search(context.Background(), "oauth", Options{Limit: 10})
	require.NoError(t, err)

	// TTL cache expires, then the live path starts failing.
	time.Sleep(50 * time.Millisecond)
	inner.err = errors.New("everything is down")

	resp, err := r.Search(context.Background(), "oauth", Options{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, DegradationCachedOnly, resp.Degradation)
	assert.True(t, resp.FromCache)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "a", resp.Results[0].DocID)
}

func TestResilientDownWithoutFallback(t *testing.T) {
	inner := &scriptedSearcher{err: errors.New("everything is down")}
	r, err := NewResilient(inner, NewResultCache(8, time.Minute))
	require.NoError(t, err)

	resp, err := r.Search(context.Background(), "oauth", Options{Limit: 10})
	require.Error(t, err)
	assert.Equal(t, kerrors.ErrCodeSearchFailed, kerrors.GetCode(err))
	require.NotNil(t, resp)
	assert.Equal(t, DegradationDown, resp.Degradation)
	assert.Empty(t, resp.Results)
}

func TestResilientSkipsCacheWriteAfterTimeout(t *testing.T) {
	cache := NewResultCache(8, time.Minute)
	inner := &scriptedSearcher{resp: okResponse("a"), delay: 50 * time.Millisecond}
	r, err := NewResilient(inner, cache, WithOverallTimeout(10*time.Millisecond))
	require.NoError(t, err)

	_, err = r.Search(context.Background(), "oauth", Options{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 0, cache.Len())

	// Nothing was cached, so the next call goes back to the searcher.
	_, err = r.Search(context.Background(), "oauth", Options{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestResilientInvalidatePurgesBothTiers(t *testing.T) {
	inner := &scriptedSearcher{resp: okResponse("doc-1")}
	cache := NewResultCache(8, time.Minute)
	r, err := NewResilient(inner, cache)
	require.NoError(t, err)

	_, err = r.Search(context.Background(), "oauth", Options{Limit: 10})
	require.NoError(t, err)
	require.Equal(t, 1, cache.Len())

	removed := r.Invalidate([]string{"doc-1"})
	assert.Equal(t, 1, removed)
	assert.Equal(t, 0, cache.Len())

	// With both tiers cleared, a live failure has nothing to fall back on.
	inner.err = errors.New("down")
	resp, err := r.Search(context.Background(), "oauth", Options{Limit: 10})
	require.Error(t, err)
	assert.Equal(t, DegradationDown, resp.Degradation)
}

func TestResilientInvalidateNilClearsEverything(t *testing.T) {
	inner := &scriptedSearcher{resp: okResponse("doc-1")}
	cache := NewResultCache(8, time.Minute)
	r, err := NewResilient(inner, cache)
	require.NoError(t, err)

	_, err = r.Search(context.Background(), "oauth", Options{Limit: 10})
	require.NoError(t, err)

	r.Invalidate(nil)
	assert.Equal(t, 0, cache.Len())

	inner.err = errors.New("down")
	_, err = r.Search(context.Background(), "oauth", Options{Limit: 10})
	assert.Error(t, err)
}

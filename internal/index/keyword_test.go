package index

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kerrors "github.com/kestrel-search/kestrel/internal/errors"
	"github.com/kestrel-search/kestrel/internal/search"
)

func searchTerms(text string) []search.WeightedTerm {
	return []search.WeightedTerm{{Text: text, Weight: 1.0}}
}

func newTestKeywordIndex(t *testing.T) *KeywordIndex {
	t.Helper()
	idx, err := NewKeywordIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func seedDocs(t *testing.T, idx *KeywordIndex) {
	t.Helper()
	err := idx.Add(context.Background(), []Document{
		{
			ID:       "doc-pool",
			Title:    "Connection Pooling",
			Headings: []string{"Sizing the pool", "Idle timeouts"},
			Content:  "Tune the connection pool size to match expected concurrency.",
		},
		{
			ID:      "doc-auth",
			Title:   "Authentication Guide",
			Content: "Configure OAuth providers and token refresh intervals.",
		},
		{
			ID:      "doc-deploy",
			Title:   "Deployment",
			Content: "Rolling deployments avoid downtime during upgrades.",
		},
	})
	require.NoError(t, err)
}

func TestKeywordIndexSearch(t *testing.T) {
	idx := newTestKeywordIndex(t)
	seedDocs(t, idx)

	hits, err := idx.Search(context.Background(), searchTerms("connection pool"), 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "doc-pool", hits[0].DocID)
	assert.Positive(t, hits[0].Score)
}

func TestKeywordIndexSearchEmptyQuery(t *testing.T) {
	idx := newTestKeywordIndex(t)
	seedDocs(t, idx)

	hits, err := idx.Search(context.Background(), searchTerms("   "), 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestKeywordIndexSearchLimit(t *testing.T) {
	idx := newTestKeywordIndex(t)

	docs := []Document{
		{ID: "a", Content: "caching strategies for read-heavy workloads"},
		{ID: "b", Content: "caching layers and eviction"},
		{ID: "c", Content: "caching pitfalls"},
	}
	require.NoError(t, idx.Add(context.Background(), docs))

	hits, err := idx.Search(context.Background(), searchTerms("caching"), 2)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestKeywordIndexTitleOutranksContent(t *testing.T) {
	idx := newTestKeywordIndex(t)

	err := idx.Add(context.Background(), []Document{
		{ID: "title-match", Title: "Webhooks", Content: "Event delivery for external integrations."},
		{ID: "content-match", Title: "Integrations", Content: "Webhooks notify subscribers of changes, and webhooks retry on failure."},
	})
	require.NoError(t, err)

	hits, err := idx.Search(context.Background(), searchTerms("webhooks"), 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "title-match", hits[0].DocID)
}

func TestKeywordIndexTermWeightScalesRanking(t *testing.T) {
	idx := newTestKeywordIndex(t)

	err := idx.Add(context.Background(), []Document{
		{ID: "doc-original", Content: "token refresh intervals"},
		{ID: "doc-synonym", Content: "credential refresh intervals"},
	})
	require.NoError(t, err)

	terms := []search.WeightedTerm{
		{Text: "token", Weight: 1.0},
		{Text: "credential", Weight: 0.3},
	}
	hits, err := idx.Search(context.Background(), terms, 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	// The document matching the full-weight term outranks the one matching
	// only the down-weighted synonym.
	assert.Equal(t, "doc-original", hits[0].DocID)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestKeywordIndexDelete(t *testing.T) {
	idx := newTestKeywordIndex(t)
	seedDocs(t, idx)

	require.NoError(t, idx.Delete(context.Background(), []string{"doc-auth"}))

	hits, err := idx.Search(context.Background(), searchTerms("oauth"), 10)
	require.NoError(t, err)
	assert.Empty(t, hits)

	count, err := idx.DocCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)
}

func TestKeywordIndexUpdateReplacesContent(t *testing.T) {
	idx := newTestKeywordIndex(t)

	ctx := context.Background()
	require.NoError(t, idx.Add(ctx, []Document{{ID: "doc", Content: "original wording about replication"}}))
	require.NoError(t, idx.Add(ctx, []Document{{ID: "doc", Content: "rewritten wording about sharding"}}))

	hits, err := idx.Search(ctx, searchTerms("replication"), 10)
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = idx.Search(ctx, searchTerms("sharding"), 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "doc", hits[0].DocID)
}

func TestKeywordIndexStopWordsOnlyQuery(t *testing.T) {
	idx := newTestKeywordIndex(t)
	seedDocs(t, idx)

	hits, err := idx.Search(context.Background(), searchTerms("the and of"), 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestKeywordIndexOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keyword.bleve")

	idx, err := NewKeywordIndex(path)
	require.NoError(t, err)
	seedDocs(t, idx)
	require.NoError(t, idx.Close())

	reopened, err := NewKeywordIndex(path)
	require.NoError(t, err)
	defer reopened.Close()

	hits, err := reopened.Search(context.Background(), searchTerms("deployments"), 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "doc-deploy", hits[0].DocID)
}

func TestKeywordIndexClosed(t *testing.T) {
	idx, err := NewKeywordIndex("")
	require.NoError(t, err)
	require.NoError(t, idx.Close())

	_, err = idx.Search(context.Background(), searchTerms("anything"), 10)
	assert.Equal(t, kerrors.ErrCodeStoreQuery, kerrors.GetCode(err))

	err = idx.Add(context.Background(), []Document{{ID: "x", Content: "y"}})
	assert.Equal(t, kerrors.ErrCodeIndexWrite, kerrors.GetCode(err))
}

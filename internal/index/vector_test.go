package index

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kerrors "github.com/kestrel-search/kestrel/internal/errors"
)

func newTestVectorIndex(t *testing.T, dims int) *VectorIndex {
	t.Helper()
	idx, err := NewVectorIndex(dims)
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestVectorIndexNearestNeighbor(t *testing.T) {
	idx := newTestVectorIndex(t, 4)

	ctx := context.Background()
	err := idx.Add(ctx,
		[]string{"doc-a", "doc-b", "doc-c"},
		[][]float32{
			{1, 0, 0, 0},
			{0, 1, 0, 0},
			{0, 0, 1, 0},
		})
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Count())

	hits, err := idx.Search(ctx, []float32{0.9, 0.1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "doc-a", hits[0].DocID)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestVectorIndexExactMatchScore(t *testing.T) {
	idx := newTestVectorIndex(t, 3)

	ctx := context.Background()
	require.NoError(t, idx.Add(ctx, []string{"doc"}, [][]float32{{0, 3, 4}}))

	// Same direction, different magnitude. Cosine ignores magnitude.
	hits, err := idx.Search(ctx, []float32{0, 0.3, 0.4}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
}

func TestVectorIndexDimensionMismatch(t *testing.T) {
	idx := newTestVectorIndex(t, 4)
	ctx := context.Background()

	err := idx.Add(ctx, []string{"doc"}, [][]float32{{1, 0}})
	assert.Equal(t, kerrors.ErrCodeDimensionMismatch, kerrors.GetCode(err))

	_, err = idx.Search(ctx, []float32{1, 0}, 5)
	assert.Equal(t, kerrors.ErrCodeDimensionMismatch, kerrors.GetCode(err))
}

func TestVectorIndexLengthMismatch(t *testing.T) {
	idx := newTestVectorIndex(t, 2)

	err := idx.Add(context.Background(), []string{"a", "b"}, [][]float32{{1, 0}})
	assert.Equal(t, kerrors.ErrCodeInvalidInput, kerrors.GetCode(err))
}

func TestVectorIndexEmptySearch(t *testing.T) {
	idx := newTestVectorIndex(t, 2)

	hits, err := idx.Search(context.Background(), []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestVectorIndexDelete(t *testing.T) {
	idx := newTestVectorIndex(t, 2)
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, []string{"keep", "drop"}, [][]float32{{1, 0}, {0, 1}}))
	require.NoError(t, idx.Delete(ctx, []string{"drop", "never-existed"}))
	assert.Equal(t, 1, idx.Count())

	hits, err := idx.Search(ctx, []float32{0, 1}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "keep", hits[0].DocID)
}

func TestVectorIndexUpdateReplacesVector(t *testing.T) {
	idx := newTestVectorIndex(t, 2)
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, []string{"doc"}, [][]float32{{1, 0}}))
	require.NoError(t, idx.Add(ctx, []string{"doc"}, [][]float32{{0, 1}}))
	assert.Equal(t, 1, idx.Count())

	hits, err := idx.Search(ctx, []float32{0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "doc", hits[0].DocID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
}

func TestVectorIndexOrphansDoNotEatLimit(t *testing.T) {
	idx := newTestVectorIndex(t, 3)
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx,
		[]string{"a", "b", "c"},
		[][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}))
	require.NoError(t, idx.Delete(ctx, []string{"a"}))

	hits, err := idx.Search(ctx, []float32{1, 1, 1}, 2)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
	for _, h := range hits {
		assert.NotEqual(t, "a", h.DocID)
	}
}

func TestVectorIndexSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.hnsw")
	ctx := context.Background()

	idx := newTestVectorIndex(t, 3)
	require.NoError(t, idx.Add(ctx,
		[]string{"a", "b"},
		[][]float32{{1, 0, 0}, {0, 1, 0}}))
	require.NoError(t, idx.Save(path))

	loaded, err := NewVectorIndex(3)
	require.NoError(t, err)
	defer loaded.Close()
	require.NoError(t, loaded.Load(path))

	assert.Equal(t, 2, loaded.Count())
	assert.Equal(t, 3, loaded.Dimensions())

	hits, err := loaded.Search(ctx, []float32{0, 1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "b", hits[0].DocID)
}

func TestVectorIndexLoadMissingFile(t *testing.T) {
	idx := newTestVectorIndex(t, 2)

	err := idx.Load(filepath.Join(t.TempDir(), "missing.hnsw"))
	assert.Equal(t, kerrors.ErrCodeStoreOpen, kerrors.GetCode(err))
}

func TestVectorIndexClosed(t *testing.T) {
	idx, err := NewVectorIndex(2)
	require.NoError(t, err)
	require.NoError(t, idx.Close())

	_, err = idx.Search(context.Background(), []float32{1, 0}, 1)
	assert.Equal(t, kerrors.ErrCodeStoreQuery, kerrors.GetCode(err))

	err = idx.Add(context.Background(), []string{"x"}, [][]float32{{1, 0}})
	assert.Equal(t, kerrors.ErrCodeIndexWrite, kerrors.GetCode(err))
	assert.Equal(t, 0, idx.Count())
}

package index

import (
	"bufio"
	"context"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/coder/hnsw"

	kerrors "github.com/kestrel-search/kestrel/internal/errors"
	"github.com/kestrel-search/kestrel/internal/search"
)

// VectorIndex is the semantic backend built on an HNSW graph with cosine
// distance. Deletions are lazy: removed entries stay in the graph as orphans
// and are filtered out of results, because removing graph nodes directly is
// unreliable in coder/hnsw.
type VectorIndex struct {
	mu    sync.RWMutex
	graph *hnsw.Graph[uint64]
	dims  int

	idMap   map[string]uint64
	keyMap  map[uint64]string
	nextKey uint64

	closed bool
}

var _ search.VectorIndex = (*VectorIndex)(nil)

// vectorMetadata is persisted alongside the graph so ID mappings survive
// restarts.
type vectorMetadata struct {
	IDMap   map[string]uint64
	NextKey uint64
	Dims    int
}

// VectorOption adjusts HNSW graph parameters.
type VectorOption func(*hnsw.Graph[uint64])

// WithM sets the maximum number of neighbors per graph node.
func WithM(m int) VectorOption {
	return func(g *hnsw.Graph[uint64]) {
		if m > 0 {
			g.M = m
		}
	}
}

// WithEfSearch sets the candidate list size used during search.
func WithEfSearch(ef int) VectorOption {
	return func(g *hnsw.Graph[uint64]) {
		if ef > 0 {
			g.EfSearch = ef
		}
	}
}

// NewVectorIndex creates an empty vector index for vectors of the given
// dimensionality.
func NewVectorIndex(dims int, opts ...VectorOption) (*VectorIndex, error) {
	if dims <= 0 {
		return nil, kerrors.ValidationError(fmt.Sprintf("vector dimensions must be positive, got %d", dims), nil)
	}

	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = 16
	graph.EfSearch = 20
	graph.Ml = 0.25
	for _, opt := range opts {
		opt(graph)
	}

	return &VectorIndex{
		graph:  graph,
		dims:   dims,
		idMap:  make(map[string]uint64),
		keyMap: make(map[uint64]string),
	}, nil
}

// Add inserts vectors keyed by document ID. Existing IDs are replaced.
func (v *VectorIndex) Add(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) == 0 {
		return nil
	}
	if len(ids) != len(vectors) {
		return kerrors.ValidationError(
			fmt.Sprintf("ids and vectors length mismatch: %d vs %d", len(ids), len(vectors)), nil)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return kerrors.New(kerrors.ErrCodeIndexWrite, "vector index is closed", nil)
	}

	for _, vec := range vectors {
		if len(vec) != v.dims {
			return v.dimensionError(len(vec))
		}
	}

	for i, id := range ids {
		if oldKey, exists := v.idMap[id]; exists {
			// Orphan the previous node instead of deleting it.
			delete(v.keyMap, oldKey)
			delete(v.idMap, id)
		}

		key := v.nextKey
		v.nextKey++

		vec := make([]float32, len(vectors[i]))
		copy(vec, vectors[i])
		normalize(vec)

		v.graph.Add(hnsw.MakeNode(key, vec))
		v.idMap[id] = key
		v.keyMap[key] = id
	}

	return nil
}

// Search returns up to limit nearest documents by cosine similarity, best
// first. Scores are in [0, 1].
func (v *VectorIndex) Search(ctx context.Context, vector []float32, limit int) ([]search.Hit, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.closed {
		return nil, kerrors.New(kerrors.ErrCodeStoreQuery, "vector index is closed", nil)
	}
	if len(vector) != v.dims {
		return nil, v.dimensionError(len(vector))
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if v.graph.Len() == 0 {
		return []search.Hit{}, nil
	}

	query := make([]float32, len(vector))
	copy(query, vector)
	normalize(query)

	// Overfetch by the orphan count so lazy-deleted nodes do not eat into
	// the requested limit.
	k := limit + (v.graph.Len() - len(v.idMap))
	nodes := v.graph.Search(query, k)

	hits := make([]search.Hit, 0, limit)
	for _, node := range nodes {
		id, ok := v.keyMap[node.Key]
		if !ok {
			continue
		}
		distance := v.graph.Distance(query, node.Value)
		hits = append(hits, search.Hit{DocID: id, Score: float64(1 - distance/2)})
		if len(hits) == limit {
			break
		}
	}
	return hits, nil
}

// Delete removes documents by ID. Unknown IDs are ignored.
func (v *VectorIndex) Delete(ctx context.Context, ids []string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return kerrors.New(kerrors.ErrCodeIndexWrite, "vector index is closed", nil)
	}

	for _, id := range ids {
		if key, exists := v.idMap[id]; exists {
			delete(v.keyMap, key)
			delete(v.idMap, id)
		}
	}
	return nil
}

// Count returns the number of live vectors, excluding orphans.
func (v *VectorIndex) Count() int {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.closed {
		return 0
	}
	return len(v.idMap)
}

// Dimensions returns the configured vector dimensionality.
func (v *VectorIndex) Dimensions() int {
	return v.dims
}

// Save writes the graph and ID mappings to path and path+".meta" using a
// temp-file-and-rename so a crash never leaves a partial index.
func (v *VectorIndex) Save(path string) error {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.closed {
		return kerrors.New(kerrors.ErrCodeIndexWrite, "vector index is closed", nil)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return kerrors.New(kerrors.ErrCodeIndexWrite, "creating index directory: "+err.Error(), err)
	}

	if err := atomicWrite(path, func(f *os.File) error {
		return v.graph.Export(f)
	}); err != nil {
		return kerrors.New(kerrors.ErrCodeIndexWrite, "exporting vector graph: "+err.Error(), err)
	}

	meta := vectorMetadata{IDMap: v.idMap, NextKey: v.nextKey, Dims: v.dims}
	if err := atomicWrite(path+".meta", func(f *os.File) error {
		return gob.NewEncoder(f).Encode(meta)
	}); err != nil {
		return kerrors.New(kerrors.ErrCodeIndexWrite, "saving vector metadata: "+err.Error(), err)
	}

	return nil
}

// Load replaces the index contents with a previously saved graph.
func (v *VectorIndex) Load(path string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return kerrors.New(kerrors.ErrCodeStoreOpen, "vector index is closed", nil)
	}

	metaFile, err := os.Open(path + ".meta")
	if err != nil {
		return kerrors.New(kerrors.ErrCodeStoreOpen, "opening vector metadata: "+err.Error(), err)
	}
	defer metaFile.Close()

	var meta vectorMetadata
	if err := gob.NewDecoder(metaFile).Decode(&meta); err != nil {
		return kerrors.New(kerrors.ErrCodeIndexCorrupt, "decoding vector metadata: "+err.Error(), err)
	}

	graphFile, err := os.Open(path)
	if err != nil {
		return kerrors.New(kerrors.ErrCodeStoreOpen, "opening vector graph: "+err.Error(), err)
	}
	defer graphFile.Close()

	// Import needs an io.ByteReader.
	if err := v.graph.Import(bufio.NewReader(graphFile)); err != nil {
		return kerrors.New(kerrors.ErrCodeIndexCorrupt, "importing vector graph: "+err.Error(), err)
	}

	v.idMap = meta.IDMap
	v.nextKey = meta.NextKey
	v.dims = meta.Dims
	v.keyMap = make(map[uint64]string, len(meta.IDMap))
	for id, key := range meta.IDMap {
		v.keyMap[key] = id
	}

	return nil
}

// Close releases the graph.
func (v *VectorIndex) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return nil
	}
	v.closed = true
	v.graph = nil
	return nil
}

func (v *VectorIndex) dimensionError(got int) *kerrors.Error {
	return kerrors.New(kerrors.ErrCodeDimensionMismatch,
		fmt.Sprintf("expected %d dimensions, got %d", v.dims, got), nil)
}

func atomicWrite(path string, write func(*os.File) error) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// normalize scales v to unit length in place. Zero vectors are left as-is.
func normalize(v []float32) {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}

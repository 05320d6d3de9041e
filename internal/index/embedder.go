package index

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"

	"github.com/kestrel-search/kestrel/internal/analyze"
	"github.com/kestrel-search/kestrel/internal/search"
)

// DefaultDimensions is the embedding width used when none is configured.
const DefaultDimensions = 256

const (
	tokenWeight     = 0.7
	trigramWeight   = 0.3
	trigramSize     = 3
	embedderModelID = "static-fnv"
)

// StaticEmbedder produces deterministic hash-based embeddings. It needs no
// network and no model files, so retrieval works out of the box; semantic
// quality is accordingly modest. Tokens and character trigrams are hashed
// into a fixed-width vector which is then normalized to unit length.
type StaticEmbedder struct {
	dims int
}

var _ search.Embedder = (*StaticEmbedder)(nil)

// NewStaticEmbedder creates an embedder with the given output width.
// Non-positive dims falls back to DefaultDimensions.
func NewStaticEmbedder(dims int) *StaticEmbedder {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &StaticEmbedder{dims: dims}
}

// Embed converts text into a unit vector. Empty input yields a zero vector.
// The same text always produces the same vector.
func (e *StaticEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vector := make([]float32, e.dims)

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return vector, nil
	}

	for _, token := range analyze.Tokenize(trimmed) {
		if analyze.IsStopWord(token) {
			continue
		}
		vector[hashToIndex(token, e.dims)] += tokenWeight
	}

	compact := compactAlnum(trimmed)
	for i := 0; i+trigramSize <= len(compact); i++ {
		vector[hashToIndex(compact[i:i+trigramSize], e.dims)] += trigramWeight
	}

	normalize(vector)
	return vector, nil
}

// Dimensions returns the embedding width.
func (e *StaticEmbedder) Dimensions() int {
	return e.dims
}

// ModelName identifies the embedding scheme for logs and stats.
func (e *StaticEmbedder) ModelName() string {
	return embedderModelID
}

// compactAlnum lowercases text and strips everything that is not a letter
// or digit, so trigrams span word boundaries.
func compactAlnum(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func hashToIndex(s string, size int) int {
	h := fnv.New64()
	_, _ = h.Write([]byte(s))
	return int(h.Sum64() % uint64(size))
}

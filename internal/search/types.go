// Package search provides hybrid retrieval combining keyword and vector
// backends. Results are fused using Reciprocal Rank Fusion (RRF) and served
// through a caching, circuit-breaking resilience layer.
package search

import (
	"context"
	"time"
)

// Hit is one ranked result from a single retrieval backend. Rank is implied
// by position in the returned slice (best first).
type Hit struct {
	DocID string
	Score float64
}

// WeightedTerm is one keyword sent to the lexical backend. Weight scales the
// term's ranking contribution; original query keywords carry 1.0 and synonym
// expansions carry their synonym weight.
type WeightedTerm struct {
	Text   string
	Weight float64
}

// KeywordIndex is the lexical retrieval backend.
type KeywordIndex interface {
	Search(ctx context.Context, terms []WeightedTerm, limit int) ([]Hit, error)
}

// VectorIndex is the semantic retrieval backend.
type VectorIndex interface {
	Search(ctx context.Context, vector []float32, limit int) ([]Hit, error)
}

// Embedder converts query text into a vector for the semantic backend.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// Weights scale each backend's contribution during fusion.
type Weights struct {
	Keyword float64
	Vector  float64
}

// DefaultWeights treats both backends equally.
func DefaultWeights() Weights {
	return Weights{Keyword: 1.0, Vector: 1.0}
}

// Degradation describes which parts of the retrieval stack served a response.
type Degradation string

const (
	// DegradationFull means both backends responded.
	DegradationFull Degradation = "full"
	// DegradationKeywordOnly means the vector backend was unavailable.
	DegradationKeywordOnly Degradation = "keyword_only"
	// DegradationVectorOnly means the keyword backend was unavailable.
	DegradationVectorOnly Degradation = "vector_only"
	// DegradationCachedOnly means live retrieval failed and a previously
	// cached response was served.
	DegradationCachedOnly Degradation = "cached_only"
	// DegradationDown means nothing could serve the query.
	DegradationDown Degradation = "down"
)

// ContributingRanks records a document's 1-indexed position in each backend
// list. Zero means the document was absent from that list.
type ContributingRanks struct {
	Keyword int `json:"keyword"`
	Vector  int `json:"vector"`
}

// Best returns the smaller non-zero rank, used for deterministic tie-breaks.
func (r ContributingRanks) Best() int {
	switch {
	case r.Keyword == 0:
		return r.Vector
	case r.Vector == 0:
		return r.Keyword
	case r.Keyword < r.Vector:
		return r.Keyword
	default:
		return r.Vector
	}
}

// FusedResult is a single document after RRF fusion.
type FusedResult struct {
	DocID        string            `json:"doc_id"`
	FusedScore   float64           `json:"fused_score"`
	KeywordScore float64           `json:"keyword_score"`
	VectorScore  float64           `json:"vector_score"`
	Ranks        ContributingRanks `json:"ranks"`
}

// Options control a single search call.
type Options struct {
	// Limit caps the number of fused results returned.
	Limit int

	// Weights overrides the default fusion weights when non-nil.
	Weights *Weights

	// KeywordTerms, when set, are sent to the keyword backend instead of
	// the original query. The vector backend always embeds the original,
	// since expansion adds noise to embeddings.
	KeywordTerms []WeightedTerm

	// KeywordOnly skips the vector backend entirely.
	KeywordOnly bool
}

// Response is the outcome of a search, including how degraded it was.
type Response struct {
	Results     []FusedResult `json:"results"`
	Degradation Degradation   `json:"degradation"`
	FromCache   bool          `json:"from_cache"`
	Elapsed     time.Duration `json:"elapsed"`
}

// Searcher executes queries against the retrieval stack.
type Searcher interface {
	Search(ctx context.Context, query string, opts Options) (*Response, error)
}

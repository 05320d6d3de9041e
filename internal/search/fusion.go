package search

import (
	"sort"
)

// DefaultRRFConstant is the standard RRF smoothing parameter. k=60 is
// empirically validated across domains (used by Azure AI Search, OpenSearch).
const DefaultRRFConstant = 60

// RRFFusion combines keyword and vector result lists using Reciprocal Rank
// Fusion.
//
// Algorithm: fused_score(d) = Σ weight_i / (k + rank_i)
//
// Where:
//   - k = smoothing constant (default: 60)
//   - rank_i = position in ranked list i (1-indexed)
//   - weight_i = weight for backend i
//
// A document absent from one list simply receives no contribution from it;
// there is no penalty term for the missing rank.
type RRFFusion struct {
	K int
}

// NewRRFFusion creates an RRF fusion instance with the default k=60.
func NewRRFFusion() *RRFFusion {
	return &RRFFusion{K: DefaultRRFConstant}
}

// NewRRFFusionWithK creates an RRF fusion with a custom k.
// If k <= 0, defaults to 60.
func NewRRFFusionWithK(k int) *RRFFusion {
	if k <= 0 {
		k = DefaultRRFConstant
	}
	return &RRFFusion{K: k}
}

// Fuse merges the two ranked lists into a single deterministic ordering.
//
// Results are sorted by: FusedScore (desc) → best contributing rank (asc) →
// DocID (asc). The same inputs always produce the same output.
func (f *RRFFusion) Fuse(keyword, vector []Hit, weights Weights) []FusedResult {
	if len(keyword) == 0 && len(vector) == 0 {
		return []FusedResult{}
	}

	scores := make(map[string]*FusedResult, len(keyword)+len(vector))

	for i, h := range keyword {
		r := f.getOrCreate(scores, h.DocID)
		r.KeywordScore = h.Score
		r.Ranks.Keyword = i + 1
		r.FusedScore += weights.Keyword / float64(f.K+i+1)
	}

	for i, h := range vector {
		r := f.getOrCreate(scores, h.DocID)
		r.VectorScore = h.Score
		r.Ranks.Vector = i + 1
		r.FusedScore += weights.Vector / float64(f.K+i+1)
	}

	results := make([]FusedResult, 0, len(scores))
	for _, r := range scores {
		results = append(results, *r)
	}

	sort.Slice(results, func(i, j int) bool {
		return f.less(&results[i], &results[j])
	})

	return results
}

func (f *RRFFusion) getOrCreate(m map[string]*FusedResult, id string) *FusedResult {
	if r, ok := m[id]; ok {
		return r
	}
	r := &FusedResult{DocID: id}
	m[id] = r
	return r
}

// less reports whether a ranks before b.
//
// Priority:
//  1. Higher fused score
//  2. Smaller best contributing rank
//  3. Lexicographically smaller DocID
func (f *RRFFusion) less(a, b *FusedResult) bool {
	if a.FusedScore != b.FusedScore {
		return a.FusedScore > b.FusedScore
	}
	if ba, bb := a.Ranks.Best(), b.Ranks.Best(); ba != bb {
		return ba < bb
	}
	return a.DocID < b.DocID
}

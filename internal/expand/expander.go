// Package expand grows an analyzed query's keywords with weighted synonyms
// from the curated terminology store and, optionally, from algorithmic
// morphological variants. Expansion is gated behind the license check and
// degrades to a pass-through when the gate is closed.
package expand

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/kestrel-search/kestrel/internal/analyze"
	"github.com/kestrel-search/kestrel/internal/license"
	"github.com/kestrel-search/kestrel/internal/term"
)

// Synonym sources, in descending trust order.
const (
	SourceTerminology    = "terminology"
	SourceContentDerived = "content"
	SourceAlgorithmic    = "algorithmic"
)

// algorithmicWeight is the fixed weight assigned to stemmer-derived variants.
// Curated synonyms carry their terminology similarity instead.
const algorithmicWeight = 0.7

// Synonym is a single weighted expansion of a query keyword.
type Synonym struct {
	Term   string  `json:"term"`
	Weight float64 `json:"weight"`
	Source string  `json:"source"`
}

// Options control how aggressively a query is expanded.
type Options struct {
	// MaxSynonymsPerTerm caps expansions kept per original keyword.
	MaxSynonymsPerTerm int
	// MinSynonymWeight drops expansions below this weight.
	MinSynonymWeight float64
	// IncludeAlgorithmic enables stemmer-derived variants alongside the
	// curated terminology lookups.
	IncludeAlgorithmic bool
}

// DefaultOptions returns the standard expansion settings.
func DefaultOptions() Options {
	return Options{
		MaxSynonymsPerTerm: 3,
		MinSynonymWeight:   0.3,
		IncludeAlgorithmic: true,
	}
}

// ExpandedQuery is the result of expanding a query analysis. ExpandedKeywords
// always begins with the original keywords in their original order, followed
// by deduplicated synonyms.
type ExpandedQuery struct {
	Original         analyze.QueryAnalysis `json:"original"`
	ExpansionsByTerm map[string][]Synonym  `json:"expansions_by_term"`
	ExpandedKeywords []string              `json:"expanded_keywords"`
	TotalTermCount   int                   `json:"total_term_count"`
}

// GetTermWeight reports the retrieval weight of a term within the expanded
// query: 1.0 for an original keyword, the synonym weight for an expansion,
// and 0 for a term that is not part of the query at all. Matching is
// case-insensitive.
func (q *ExpandedQuery) GetTermWeight(t string) float64 {
	needle := strings.ToLower(strings.TrimSpace(t))
	if needle == "" {
		return 0
	}
	for _, kw := range q.Original.Keywords {
		if strings.ToLower(kw) == needle {
			return 1.0
		}
	}
	for _, syns := range q.ExpansionsByTerm {
		for _, s := range syns {
			if strings.ToLower(s.Term) == needle {
				return s.Weight
			}
		}
	}
	return 0
}

const (
	defaultCacheSize = 2048
	defaultCacheTTL  = 10 * time.Minute
)

// Expander expands analyzed queries. It is safe for concurrent use.
type Expander struct {
	terms  term.Lookup
	gate   license.Gate
	logger *slog.Logger

	cache *expirable.LRU[string, []Synonym]
}

// Option configures an Expander.
type Option func(*Expander)

// WithLogger sets the structured logger used for lookup failures.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Expander) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithCacheSize overrides the per-term expansion cache capacity.
func WithCacheSize(size int) Option {
	return func(e *Expander) {
		if size > 0 {
			e.cache = expirable.NewLRU[string, []Synonym](size, nil, defaultCacheTTL)
		}
	}
}

// New creates an Expander backed by the given terminology store and license
// gate. A nil gate is treated as closed.
func New(terms term.Lookup, gate license.Gate, opts ...Option) *Expander {
	e := &Expander{
		terms:  terms,
		gate:   gate,
		logger: slog.Default(),
		cache:  expirable.NewLRU[string, []Synonym](defaultCacheSize, nil, defaultCacheTTL),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Expand produces the expanded form of an analyzed query. When the license
// gate is closed the analysis passes through unchanged, with no expansions.
// Terminology lookup failures are logged and skipped rather than failing the
// whole expansion.
func (e *Expander) Expand(ctx context.Context, analysis analyze.QueryAnalysis, opts Options) *ExpandedQuery {
	out := &ExpandedQuery{
		Original:         analysis,
		ExpansionsByTerm: make(map[string][]Synonym),
		ExpandedKeywords: append([]string(nil), analysis.Keywords...),
	}

	if e.gate == nil || !e.gate.HasAdvancedQueryFeatures() {
		out.TotalTermCount = len(out.ExpandedKeywords)
		return out
	}

	seen := make(map[string]struct{}, len(analysis.Keywords))
	for _, kw := range analysis.Keywords {
		seen[strings.ToLower(kw)] = struct{}{}
	}

	for _, kw := range analysis.Keywords {
		syns := e.expandTerm(ctx, kw, opts)
		if len(syns) == 0 {
			continue
		}
		out.ExpansionsByTerm[kw] = syns
		for _, s := range syns {
			key := strings.ToLower(s.Term)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out.ExpandedKeywords = append(out.ExpandedKeywords, s.Term)
		}
	}

	out.TotalTermCount = len(out.ExpandedKeywords)
	return out
}

func (e *Expander) expandTerm(ctx context.Context, keyword string, opts Options) []Synonym {
	key := cacheKey(keyword, opts)
	if cached, ok := e.cache.Get(key); ok {
		return cached
	}

	normalized := strings.ToLower(keyword)
	var candidates []Synonym

	if e.terms != nil {
		matches, err := e.terms.GetSynonyms(ctx, normalized)
		if err != nil {
			e.logger.Warn("terminology lookup failed",
				slog.String("term", normalized),
				slog.String("error", err.Error()))
		} else {
			for _, m := range matches {
				candidates = append(candidates, Synonym{
					Term:   m.Term,
					Weight: m.Similarity,
					Source: SourceTerminology,
				})
			}
		}
	}

	if opts.IncludeAlgorithmic {
		present := make(map[string]struct{}, len(candidates)+1)
		present[normalized] = struct{}{}
		for _, c := range candidates {
			present[strings.ToLower(c.Term)] = struct{}{}
		}
		for _, v := range Variants(normalized) {
			if _, dup := present[v]; dup {
				continue
			}
			present[v] = struct{}{}
			candidates = append(candidates, Synonym{
				Term:   v,
				Weight: algorithmicWeight,
				Source: SourceAlgorithmic,
			})
		}
	}

	filtered := candidates[:0]
	for _, c := range candidates {
		if c.Weight >= opts.MinSynonymWeight {
			filtered = append(filtered, c)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].Weight != filtered[j].Weight {
			return filtered[i].Weight > filtered[j].Weight
		}
		ri, rj := sourceRank(filtered[i].Source), sourceRank(filtered[j].Source)
		if ri != rj {
			return ri < rj
		}
		return filtered[i].Term < filtered[j].Term
	})

	if opts.MaxSynonymsPerTerm > 0 && len(filtered) > opts.MaxSynonymsPerTerm {
		filtered = filtered[:opts.MaxSynonymsPerTerm]
	}

	result := append([]Synonym(nil), filtered...)
	e.cache.Add(key, result)
	return result
}

func sourceRank(source string) int {
	switch source {
	case SourceTerminology:
		return 0
	case SourceContentDerived:
		return 1
	case SourceAlgorithmic:
		return 2
	default:
		return 3
	}
}

func cacheKey(keyword string, opts Options) string {
	return fmt.Sprintf("%s|%d|%.3f|%t",
		strings.ToLower(keyword), opts.MaxSynonymsPerTerm, opts.MinSynonymWeight, opts.IncludeAlgorithmic)
}

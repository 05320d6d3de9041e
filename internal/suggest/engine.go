// Package suggest builds typeahead completions from four candidate pools:
// past queries, document headings, curated domain terms, and recurring
// content phrases. Candidates are scored by source trust, popularity,
// recency, and how much of the suggestion the typed prefix already covers.
package suggest

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hashicorp/golang-lru/v2/expirable"

	kerrors "github.com/kestrel-search/kestrel/internal/errors"
	"github.com/kestrel-search/kestrel/internal/license"
	"github.com/kestrel-search/kestrel/internal/term"
)

// Candidate sources, in descending trust order.
const (
	SourceQueryHistory    = "query_history"
	SourceDocumentHeading = "document_heading"
	SourceDomainTerm      = "domain_term"
	SourceContentNgram    = "content_ngram"
)

// sourceWeight is the base score contribution per source.
func sourceWeight(source string) float64 {
	switch source {
	case SourceQueryHistory:
		return 1.0
	case SourceDocumentHeading:
		return 0.9
	case SourceDomainTerm:
		return 0.8
	case SourceContentNgram:
		return 0.6
	default:
		return 0.5
	}
}

// Scoring constants.
const (
	frequencyFactor   = 0.5
	recentBonus       = 0.3
	weekBonus         = 0.1
	prefixCoverFactor = 0.2

	minPrefixLength    = 2
	defaultLimit       = 8
	candidateOverfetch = 4

	prefixCacheSize = 256
	prefixCacheTTL  = 30 * time.Second
)

// Candidate is a stored suggestion candidate. Uniqueness is defined by
// (NormalizedText, Source, OriginDocument).
type Candidate struct {
	Text           string
	NormalizedText string
	Source         string
	OriginDocument string
	Frequency      int
	LastSeen       time.Time
}

// Suggestion is a scored completion returned to the caller.
type Suggestion struct {
	Text      string  `json:"text"`
	Score     float64 `json:"score"`
	Source    string  `json:"source"`
	Frequency int     `json:"frequency"`
}

// Store persists suggestion candidates.
type Store interface {
	// Upsert inserts a candidate or, on conflict, bumps its frequency and
	// last-seen timestamp.
	Upsert(ctx context.Context, c Candidate) error
	FindByPrefix(ctx context.Context, prefix string, limit int) ([]Candidate, error)
	DeleteByDocument(ctx context.Context, docID string) (int64, error)
}

// Engine produces suggestions and maintains the candidate pools.
type Engine struct {
	store  Store
	terms  term.Lookup
	gate   license.Gate
	logger *slog.Logger
	limit  int
	now    func() time.Time

	// prefixCache memoizes scored lookups per normalized prefix. Entries
	// are dropped when a newly recorded query extends a cached prefix.
	prefixCache *expirable.LRU[string, []Suggestion]
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithDefaultLimit sets the suggestion count used when a call passes none.
func WithDefaultLimit(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.limit = n
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithGate sets the capability gate. With the gate closed the engine is a
// no-op: lookups return nothing and the candidate pools stop learning.
func WithGate(gate license.Gate) EngineOption {
	return func(e *Engine) {
		if gate != nil {
			e.gate = gate
		}
	}
}

// withClock overrides time.Now, for tests.
func withClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates a suggestion engine. The terminology lookup is optional;
// when nil the domain-term pool is skipped.
func NewEngine(store Store, terms term.Lookup, opts ...EngineOption) *Engine {
	e := &Engine{
		store:       store,
		terms:       terms,
		gate:        license.Open(),
		logger:      slog.Default(),
		limit:       defaultLimit,
		now:         time.Now,
		prefixCache: expirable.NewLRU[string, []Suggestion](prefixCacheSize, nil, prefixCacheTTL),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Suggest returns up to limit completions for the typed prefix, best first.
// Prefixes shorter than two characters return an empty list.
func (e *Engine) Suggest(ctx context.Context, prefix string, limit int) ([]Suggestion, error) {
	if !e.gate.HasAdvancedQueryFeatures() {
		return []Suggestion{}, nil
	}

	normalized := strings.ToLower(strings.TrimSpace(prefix))
	if utf8.RuneCountInString(normalized) < minPrefixLength {
		return []Suggestion{}, nil
	}
	if limit <= 0 {
		limit = e.limit
	}

	if cached, ok := e.prefixCache.Get(normalized); ok {
		if len(cached) > limit {
			cached = cached[:limit]
		}
		return append([]Suggestion(nil), cached...), nil
	}

	candidates, err := e.store.FindByPrefix(ctx, normalized, limit*candidateOverfetch)
	if err != nil {
		return nil, kerrors.New(kerrors.ErrCodeSuggestFailed, "candidate lookup failed", err)
	}

	merged := make(map[string]*Suggestion)
	for _, c := range candidates {
		e.merge(merged, e.score(normalized, c))
	}

	if e.terms != nil {
		domainTerms, err := e.terms.FindByPrefix(ctx, normalized, limit*candidateOverfetch)
		if err != nil {
			e.logger.Warn("domain term lookup failed",
				slog.String("prefix", normalized),
				slog.String("error", err.Error()))
		} else {
			for _, dt := range domainTerms {
				e.merge(merged, e.score(normalized, Candidate{
					Text:           dt,
					NormalizedText: strings.ToLower(dt),
					Source:         SourceDomainTerm,
					Frequency:      1,
				}))
			}
		}
	}

	out := make([]Suggestion, 0, len(merged))
	for _, s := range merged {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Text < out[j].Text
	})

	e.prefixCache.Add(normalized, append([]Suggestion(nil), out...))

	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// score combines source trust, popularity, recency, and prefix coverage.
func (e *Engine) score(prefix string, c Candidate) Suggestion {
	s := sourceWeight(c.Source)
	s += frequencyFactor * math.Log1p(float64(c.Frequency))

	if !c.LastSeen.IsZero() {
		age := e.now().Sub(c.LastSeen)
		switch {
		case age < 24*time.Hour:
			s += recentBonus
		case age < 7*24*time.Hour:
			s += weekBonus
		}
	}

	if n := utf8.RuneCountInString(c.NormalizedText); n > 0 {
		s += prefixCoverFactor * float64(utf8.RuneCountInString(prefix)) / float64(n)
	}

	return Suggestion{
		Text:      c.Text,
		Score:     s,
		Source:    c.Source,
		Frequency: c.Frequency,
	}
}

// merge deduplicates case-insensitively: frequencies sum, the higher score
// and its presentation win.
func (e *Engine) merge(into map[string]*Suggestion, s Suggestion) {
	key := strings.ToLower(s.Text)
	existing, ok := into[key]
	if !ok {
		copied := s
		into[key] = &copied
		return
	}
	existing.Frequency += s.Frequency
	if s.Score > existing.Score {
		existing.Score = s.Score
		existing.Text = s.Text
		existing.Source = s.Source
	}
}

// RecordQuery adds a successful query to the history pool. Queries that
// returned nothing are never suggested.
func (e *Engine) RecordQuery(ctx context.Context, query string, resultCount int) error {
	if !e.gate.HasAdvancedQueryFeatures() {
		return nil
	}

	normalized := strings.ToLower(strings.TrimSpace(query))
	if normalized == "" || resultCount <= 0 {
		return nil
	}

	e.invalidatePrefixes(normalized)

	return e.upsert(ctx, Candidate{
		Text:           strings.TrimSpace(query),
		NormalizedText: normalized,
		Source:         SourceQueryHistory,
		Frequency:      1,
		LastSeen:       e.now(),
	})
}

// invalidatePrefixes drops cached lookups the new query would now appear in.
func (e *Engine) invalidatePrefixes(normalized string) {
	for _, key := range e.prefixCache.Keys() {
		if strings.HasPrefix(normalized, key) {
			e.prefixCache.Remove(key)
		}
	}
}

// IndexDocument refreshes a document's heading and content-phrase
// candidates, returning how many were extracted. Existing candidates for the
// document are replaced so removed headings do not linger.
func (e *Engine) IndexDocument(ctx context.Context, docID string, headings []string, content string) (int, error) {
	if docID == "" {
		return 0, kerrors.ValidationError("document id is required", nil)
	}
	if !e.gate.HasAdvancedQueryFeatures() {
		return 0, nil
	}

	e.prefixCache.Purge()

	if _, err := e.store.DeleteByDocument(ctx, docID); err != nil {
		return 0, kerrors.New(kerrors.ErrCodeSuggestFailed, "stale candidate cleanup failed", err)
	}

	extracted := 0
	now := e.now()
	for _, h := range headings {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		if err := e.upsert(ctx, Candidate{
			Text:           h,
			NormalizedText: strings.ToLower(h),
			Source:         SourceDocumentHeading,
			OriginDocument: docID,
			Frequency:      1,
			LastSeen:       now,
		}); err != nil {
			return extracted, err
		}
		extracted++
	}

	for _, phrase := range extractNgrams(content) {
		if err := e.upsert(ctx, Candidate{
			Text:           phrase,
			NormalizedText: phrase,
			Source:         SourceContentNgram,
			OriginDocument: docID,
			Frequency:      1,
			LastSeen:       now,
		}); err != nil {
			return extracted, err
		}
		extracted++
	}
	return extracted, nil
}

// RemoveForDocument drops all candidates that originated from a document.
func (e *Engine) RemoveForDocument(ctx context.Context, docID string) (int64, error) {
	e.prefixCache.Purge()

	n, err := e.store.DeleteByDocument(ctx, docID)
	if err != nil {
		return 0, kerrors.New(kerrors.ErrCodeSuggestFailed, "candidate removal failed", err)
	}
	return n, nil
}

func (e *Engine) upsert(ctx context.Context, c Candidate) error {
	if err := e.store.Upsert(ctx, c); err != nil {
		return kerrors.New(kerrors.ErrCodeSuggestFailed, "candidate upsert failed", err)
	}
	return nil
}

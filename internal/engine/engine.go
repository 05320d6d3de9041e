// Package engine wires the query pipeline together: analysis, synonym
// expansion, hybrid retrieval with caching and resilience, suggestions, and
// history tracking. It is the only package the CLI talks to.
package engine

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/kestrel-search/kestrel/internal/analyze"
	"github.com/kestrel-search/kestrel/internal/config"
	kerrors "github.com/kestrel-search/kestrel/internal/errors"
	"github.com/kestrel-search/kestrel/internal/event"
	"github.com/kestrel-search/kestrel/internal/expand"
	"github.com/kestrel-search/kestrel/internal/history"
	"github.com/kestrel-search/kestrel/internal/index"
	"github.com/kestrel-search/kestrel/internal/license"
	"github.com/kestrel-search/kestrel/internal/search"
	"github.com/kestrel-search/kestrel/internal/store"
	"github.com/kestrel-search/kestrel/internal/suggest"
	"github.com/kestrel-search/kestrel/internal/term"
)

// embedRetry bounds embedding retries during ingestion.
var embedRetry = kerrors.RetryConfig{
	MaxRetries:   2,
	InitialDelay: 100 * time.Millisecond,
	MaxDelay:     time.Second,
	Multiplier:   2.0,
	Jitter:       true,
}

// Result is the full outcome of one query: what the analyzer understood, how
// the query was expanded, and what retrieval returned.
type Result struct {
	Analysis analyze.QueryAnalysis `json:"analysis"`
	Expanded *expand.ExpandedQuery `json:"expanded"`
	Response *search.Response      `json:"response"`
}

// QueryOptions control a single Query call.
type QueryOptions struct {
	// Limit caps returned results. Zero uses the configured maximum.
	Limit int

	// KeywordOnly skips the vector backend.
	KeywordOnly bool
}

// Stats summarizes engine state for the stats command.
type Stats struct {
	Documents    uint64         `json:"documents"`
	Vectors      int            `json:"vectors"`
	BreakerState string         `json:"breaker_state"`
	History      *history.Stats `json:"history"`
}

// Engine owns the full pipeline and its storage.
type Engine struct {
	cfg    *config.Config
	logger *slog.Logger

	analyzer *analyze.Analyzer
	expander *expand.Expander

	keyword  *index.KeywordIndex
	vector   *index.VectorIndex
	embedder *index.StaticEmbedder
	hybrid   *search.HybridSearcher
	searcher *search.ResilientSearcher

	suggester *suggest.Engine
	tracker   *history.Tracker
	bus       *event.Bus
	db        *store.DB

	expandOpts expand.Options
}

// Open builds an engine from configuration. All state lives under the
// configured data dir, or in memory when none is set.
func Open(cfg *config.Config, logger *slog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = config.New()
	}
	if logger == nil {
		logger = slog.Default()
	}

	db, err := store.Open(cfg.Storage.DatabasePath())
	if err != nil {
		return nil, err
	}

	keyword, err := index.NewKeywordIndex(cfg.Storage.KeywordIndexPath())
	if err != nil {
		db.Close()
		return nil, err
	}

	embedder := index.NewStaticEmbedder(cfg.Embeddings.Dimensions)
	vector, err := index.NewVectorIndex(embedder.Dimensions())
	if err != nil {
		keyword.Close()
		db.Close()
		return nil, err
	}
	if path := cfg.Storage.VectorIndexPath(); path != "" {
		if _, statErr := os.Stat(path); statErr == nil {
			if loadErr := vector.Load(path); loadErr != nil {
				logger.Warn("vector index load failed, starting empty",
					slog.String("path", path),
					slog.String("error", loadErr.Error()))
			}
		}
	}

	terms := term.NewDefaultStore()
	gate := license.Closed()
	if cfg.Expansion.Licensed {
		gate = license.Open()
	}

	hybrid, err := search.NewHybrid(keyword, vector, embedder,
		search.WithRRFConstant(cfg.Search.RRFConstant),
		search.WithDefaultWeights(search.Weights{
			Keyword: cfg.Search.KeywordWeight,
			Vector:  cfg.Search.VectorWeight,
		}),
		search.WithRetrieverTimeout(cfg.Search.RetrieverTimeoutDuration()),
		search.WithVectorBreaker(kerrors.NewCircuitBreaker("vector",
			kerrors.WithMaxFailures(cfg.Search.BreakerMaxFailures),
			kerrors.WithResetTimeout(cfg.Search.BreakerResetTimeoutDuration()))),
		search.WithSearchLogger(logger))
	if err != nil {
		vector.Close()
		keyword.Close()
		db.Close()
		return nil, err
	}

	cache := search.NewResultCache(cfg.Search.CacheSize, cfg.Search.CacheTTLDuration())
	searcher, err := search.NewResilient(hybrid, cache, search.WithResilientLogger(logger))
	if err != nil {
		vector.Close()
		keyword.Close()
		db.Close()
		return nil, err
	}

	bus, err := event.NewBus(event.WithLogger(logger))
	if err != nil {
		vector.Close()
		keyword.Close()
		db.Close()
		return nil, err
	}

	suggester := suggest.NewEngine(db.Suggestions(), terms,
		suggest.WithDefaultLimit(cfg.Suggest.Limit),
		suggest.WithGate(gate),
		suggest.WithLogger(logger))

	tracker := history.NewTracker(db.History(),
		history.WithAnonymization(cfg.History.Anonymize),
		history.WithMaxEntries(cfg.History.MaxEntries),
		history.WithGate(gate),
		history.WithLogger(logger))

	e := &Engine{
		cfg:    cfg,
		logger: logger,

		analyzer: analyze.New(analyze.WithDomainTerms(terms.Terms())),
		expander: expand.New(terms, gate, expand.WithLogger(logger)),

		keyword:  keyword,
		vector:   vector,
		embedder: embedder,
		hybrid:   hybrid,
		searcher: searcher,

		suggester: suggester,
		tracker:   tracker,
		bus:       bus,
		db:        db,

		expandOpts: expand.Options{
			MaxSynonymsPerTerm: cfg.Expansion.MaxSynonymsPerTerm,
			MinSynonymWeight:   cfg.Expansion.MinWeight,
			IncludeAlgorithmic: cfg.Expansion.IncludeAlgorithmic,
		},
	}
	e.subscribe()

	return e, nil
}

// subscribe registers the event consumers: history tracking, suggestion
// learning, and cache invalidation on document changes.
func (e *Engine) subscribe() {
	e.tracker.Subscribe(e.bus)

	e.bus.Subscribe(event.NameQueryExecuted, func(ctx context.Context, msg event.Message) {
		q, ok := msg.(event.QueryExecuted)
		if !ok {
			return
		}
		if err := e.suggester.RecordQuery(ctx, q.Query, q.ResultCount); err != nil {
			e.logger.Warn("recording query suggestion failed", slog.String("error", err.Error()))
		}
	})

	e.bus.Subscribe(event.NameDocumentIndexed, func(ctx context.Context, msg event.Message) {
		d, ok := msg.(event.DocumentIndexed)
		if !ok {
			return
		}
		e.searcher.Invalidate([]string{d.DocID})

		headings := d.Headings
		if d.Title != "" {
			headings = append([]string{d.Title}, headings...)
		}
		extracted, err := e.suggester.IndexDocument(ctx, d.DocID, headings, d.Content)
		if err != nil {
			e.logger.Warn("extracting suggestions failed",
				slog.String("doc_id", d.DocID),
				slog.String("error", err.Error()))
			return
		}
		e.bus.Publish(ctx, event.SuggestionsExtracted{
			DocID:       d.DocID,
			Candidates:  extracted,
			ExtractedAt: time.Now().UTC(),
		})
	})

	e.bus.Subscribe(event.NameDocumentRemoved, func(ctx context.Context, msg event.Message) {
		d, ok := msg.(event.DocumentRemoved)
		if !ok {
			return
		}
		e.searcher.Invalidate([]string{d.DocID})
		if _, err := e.suggester.RemoveForDocument(ctx, d.DocID); err != nil {
			e.logger.Warn("removing suggestions failed",
				slog.String("doc_id", d.DocID),
				slog.String("error", err.Error()))
		}
	})
}

// Query runs the full pipeline for one query string.
func (e *Engine) Query(ctx context.Context, query string, opts QueryOptions) (*Result, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil, kerrors.New(kerrors.ErrCodeQueryEmpty, "query must not be empty", nil)
	}

	start := time.Now()
	analysis := e.analyzer.Analyze(trimmed)
	expanded := e.expander.Expand(ctx, analysis, e.expandOpts)

	limit := opts.Limit
	if limit <= 0 {
		limit = e.cfg.Search.MaxResults
	}

	terms := make([]search.WeightedTerm, 0, len(expanded.ExpandedKeywords))
	for _, kw := range expanded.ExpandedKeywords {
		terms = append(terms, search.WeightedTerm{
			Text:   kw,
			Weight: expanded.GetTermWeight(kw),
		})
	}

	resp, err := e.searcher.Search(ctx, trimmed, search.Options{
		Limit:        limit,
		KeywordTerms: terms,
		KeywordOnly:  opts.KeywordOnly,
	})
	if err != nil {
		return &Result{Analysis: analysis, Expanded: expanded, Response: resp}, err
	}

	var topScore *float64
	if len(resp.Results) > 0 {
		s := resp.Results[0].FusedScore
		topScore = &s
	}
	now := time.Now().UTC()
	e.bus.Publish(ctx, event.QueryExecuted{
		Query:       trimmed,
		Intent:      string(analysis.Intent),
		ResultCount: len(resp.Results),
		TopScore:    topScore,
		Duration:    time.Since(start),
		ExecutedAt:  now,
	})
	if len(resp.Results) == 0 {
		e.bus.Publish(ctx, event.ZeroResultObserved{
			Query:      trimmed,
			Intent:     string(analysis.Intent),
			ObservedAt: now,
		})
	}
	if resp.Degradation != search.DegradationFull {
		e.bus.Publish(ctx, event.SearchDegraded{
			Query:      trimmed,
			Mode:       string(resp.Degradation),
			ObservedAt: now,
		})
	}

	e.logger.Debug("query executed",
		slog.String("intent", string(analysis.Intent)),
		slog.Int("results", len(resp.Results)),
		slog.String("degradation", string(resp.Degradation)),
		slog.Bool("from_cache", resp.FromCache))

	return &Result{Analysis: analysis, Expanded: expanded, Response: resp}, nil
}

// Suggest returns autocomplete suggestions for a prefix.
func (e *Engine) Suggest(ctx context.Context, prefix string, limit int) ([]suggest.Suggestion, error) {
	return e.suggester.Suggest(ctx, prefix, limit)
}

// IngestDocument indexes a document in both backends and notifies consumers.
func (e *Engine) IngestDocument(ctx context.Context, doc index.Document) error {
	if strings.TrimSpace(doc.ID) == "" {
		return kerrors.ValidationError("document ID must not be empty", nil)
	}

	vec, err := kerrors.RetryWithResult(ctx, embedRetry, func() ([]float32, error) {
		return e.embedder.Embed(ctx, doc.EmbeddingText())
	})
	if err != nil {
		return kerrors.New(kerrors.ErrCodeEmbeddingFailed, "embedding document: "+err.Error(), err)
	}
	if err := e.keyword.Add(ctx, []index.Document{doc}); err != nil {
		return err
	}
	if err := e.vector.Add(ctx, []string{doc.ID}, [][]float32{vec}); err != nil {
		return err
	}

	e.bus.Publish(ctx, event.DocumentIndexed{
		DocID:     doc.ID,
		Title:     doc.Title,
		Headings:  doc.Headings,
		Content:   doc.Content,
		IndexedAt: time.Now().UTC(),
	})
	return nil
}

// RemoveDocument deletes a document from both backends and notifies consumers.
func (e *Engine) RemoveDocument(ctx context.Context, docID string) error {
	if strings.TrimSpace(docID) == "" {
		return kerrors.ValidationError("document ID must not be empty", nil)
	}

	if err := e.keyword.Delete(ctx, []string{docID}); err != nil {
		return err
	}
	if err := e.vector.Delete(ctx, []string{docID}); err != nil {
		return err
	}

	e.bus.Publish(ctx, event.DocumentRemoved{
		DocID:     docID,
		RemovedAt: time.Now().UTC(),
	})
	return nil
}

// RecentHistory returns the most recent queries, newest first.
func (e *Engine) RecentHistory(ctx context.Context, limit int) ([]history.Entry, error) {
	return e.tracker.Recent(ctx, limit)
}

// ZeroResultQueries returns aggregated queries that found nothing since the
// given time; a zero time covers all recorded history.
func (e *Engine) ZeroResultQueries(ctx context.Context, since time.Time, limit int) ([]history.ZeroResultQuery, error) {
	return e.tracker.ZeroResults(ctx, since, limit)
}

// ClearHistory removes history entries older than the given time; a zero
// time removes everything.
func (e *Engine) ClearHistory(ctx context.Context, olderThan time.Time) error {
	return e.tracker.Clear(ctx, olderThan)
}

// Stats reports engine and history statistics.
func (e *Engine) Stats(ctx context.Context) (*Stats, error) {
	docs, err := e.keyword.DocCount()
	if err != nil {
		return nil, err
	}
	hist, err := e.tracker.Stats(ctx, time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}
	return &Stats{
		Documents:    docs,
		Vectors:      e.vector.Count(),
		BreakerState: e.hybrid.BreakerState().String(),
		History:      hist,
	}, nil
}

// Drain blocks until all published events have been handled.
func (e *Engine) Drain() {
	e.bus.Drain()
}

// Close drains the event bus, snapshots the vector index when a data dir is
// configured, and releases all resources.
func (e *Engine) Close() error {
	e.bus.Close()

	var firstErr error
	if path := e.cfg.Storage.VectorIndexPath(); path != "" {
		if err := e.vector.Save(path); err != nil {
			e.logger.Warn("saving vector index failed", slog.String("error", err.Error()))
			firstErr = err
		}
	}
	if err := e.vector.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := e.keyword.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := e.db.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	kerrors "github.com/kestrel-search/kestrel/internal/errors"
)

// ErrNilDependency is returned when a required backend is nil.
var ErrNilDependency = errors.New("nil dependency")

const (
	defaultLimit            = 10
	maxLimit                = 100
	defaultRetrieverTimeout = 2 * time.Second
	// overfetchFactor widens per-backend limits so fusion has enough
	// candidates from each list.
	overfetchFactor = 2
)

// HybridSearcher runs keyword and vector retrieval in parallel and fuses the
// results. The vector path sits behind a circuit breaker so a failing
// embedding or ANN backend degrades the searcher to keyword-only instead of
// slowing every query.
type HybridSearcher struct {
	keyword  KeywordIndex
	vector   VectorIndex
	embedder Embedder
	fusion   *RRFFusion

	weights          Weights
	retrieverTimeout time.Duration
	vectorBreaker    *kerrors.CircuitBreaker
	logger           *slog.Logger
}

var _ Searcher = (*HybridSearcher)(nil)

// HybridOption configures a HybridSearcher.
type HybridOption func(*HybridSearcher)

// WithRRFConstant overrides the fusion smoothing constant.
func WithRRFConstant(k int) HybridOption {
	return func(s *HybridSearcher) {
		s.fusion = NewRRFFusionWithK(k)
	}
}

// WithDefaultWeights sets the fusion weights used when a call provides none.
func WithDefaultWeights(w Weights) HybridOption {
	return func(s *HybridSearcher) {
		s.weights = w
	}
}

// WithRetrieverTimeout bounds each backend call independently.
func WithRetrieverTimeout(d time.Duration) HybridOption {
	return func(s *HybridSearcher) {
		if d > 0 {
			s.retrieverTimeout = d
		}
	}
}

// WithVectorBreaker replaces the default circuit breaker on the vector path.
func WithVectorBreaker(cb *kerrors.CircuitBreaker) HybridOption {
	return func(s *HybridSearcher) {
		if cb != nil {
			s.vectorBreaker = cb
		}
	}
}

// WithSearchLogger sets the structured logger.
func WithSearchLogger(logger *slog.Logger) HybridOption {
	return func(s *HybridSearcher) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewHybrid creates a hybrid searcher. All three backends are required.
func NewHybrid(keyword KeywordIndex, vector VectorIndex, embedder Embedder, opts ...HybridOption) (*HybridSearcher, error) {
	if keyword == nil {
		return nil, fmt.Errorf("%w: keyword index is required", ErrNilDependency)
	}
	if vector == nil {
		return nil, fmt.Errorf("%w: vector index is required", ErrNilDependency)
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrNilDependency)
	}

	s := &HybridSearcher{
		keyword:          keyword,
		vector:           vector,
		embedder:         embedder,
		fusion:           NewRRFFusion(),
		weights:          DefaultWeights(),
		retrieverTimeout: defaultRetrieverTimeout,
		vectorBreaker:    kerrors.NewCircuitBreaker("vector"),
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Search runs both backends concurrently and fuses their results. A single
// backend failure degrades the response rather than failing it; only when
// both backends fail does Search return an error.
func (s *HybridSearcher) Search(ctx context.Context, query string, opts Options) (*Response, error) {
	start := time.Now()

	query = strings.TrimSpace(query)
	if query == "" {
		return &Response{Results: []FusedResult{}, Degradation: DegradationFull}, nil
	}

	opts = s.applyDefaults(opts)
	fetchLimit := opts.Limit * overfetchFactor

	keywordTerms := opts.KeywordTerms
	if len(keywordTerms) == 0 {
		keywordTerms = []WeightedTerm{{Text: query, Weight: 1.0}}
	}

	if opts.KeywordOnly {
		kwHits, err := s.searchKeyword(ctx, keywordTerms, fetchLimit)
		if err != nil {
			return nil, kerrors.New(kerrors.ErrCodeSearchFailed, "keyword search failed", err)
		}
		return s.respond(kwHits, nil, opts, DegradationKeywordOnly, start), nil
	}

	kwHits, vecHits, kwErr, vecErr := s.parallelSearch(ctx, query, keywordTerms, fetchLimit)

	if kwErr != nil && vecErr != nil {
		return nil, kerrors.New(kerrors.ErrCodeSearchFailed, "all retrieval backends failed",
			errors.Join(kwErr, vecErr))
	}

	degradation := DegradationFull
	switch {
	case vecErr != nil:
		degradation = DegradationKeywordOnly
		s.logger.Warn("vector backend unavailable, serving keyword-only",
			slog.String("error", vecErr.Error()),
			slog.String("breaker_state", s.vectorBreaker.State().String()))
	case kwErr != nil:
		degradation = DegradationVectorOnly
		s.logger.Warn("keyword backend unavailable, serving vector-only",
			slog.String("error", kwErr.Error()))
	}

	return s.respond(kwHits, vecHits, opts, degradation, start), nil
}

// BreakerState exposes the vector breaker state for status reporting.
func (s *HybridSearcher) BreakerState() kerrors.State {
	return s.vectorBreaker.State()
}

func (s *HybridSearcher) applyDefaults(opts Options) Options {
	if opts.Limit <= 0 {
		opts.Limit = defaultLimit
	}
	if opts.Limit > maxLimit {
		opts.Limit = maxLimit
	}
	return opts
}

func (s *HybridSearcher) respond(kwHits, vecHits []Hit, opts Options, degradation Degradation, start time.Time) *Response {
	weights := s.weights
	if opts.Weights != nil {
		weights = *opts.Weights
	}

	fused := s.fusion.Fuse(kwHits, vecHits, weights)
	if len(fused) > opts.Limit {
		fused = fused[:opts.Limit]
	}

	return &Response{
		Results:     fused,
		Degradation: degradation,
		Elapsed:     time.Since(start),
	}
}

// parallelSearch runs both backends concurrently. Each backend gets its own
// timeout so one slow backend cannot starve the other. Errors are collected
// per backend instead of failing the group.
func (s *HybridSearcher) parallelSearch(ctx context.Context, query string, keywordTerms []WeightedTerm, limit int) (
	kwHits, vecHits []Hit,
	kwErr, vecErr error,
) {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		kwHits, kwErr = s.searchKeyword(gctx, keywordTerms, limit)
		return nil
	})

	g.Go(func() error {
		vecErr = s.vectorBreaker.Execute(func() error {
			var err error
			vecHits, err = s.searchVector(gctx, query, limit)
			return err
		})
		return nil
	})

	if waitErr := g.Wait(); waitErr != nil {
		return nil, nil, waitErr, waitErr
	}
	return kwHits, vecHits, kwErr, vecErr
}

func (s *HybridSearcher) searchKeyword(ctx context.Context, terms []WeightedTerm, limit int) ([]Hit, error) {
	ctx, cancel := context.WithTimeout(ctx, s.retrieverTimeout)
	defer cancel()

	hits, err := s.keyword.Search(ctx, terms, limit)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, kerrors.New(kerrors.ErrCodeRetrieverTimeout, "keyword search timed out", err)
		}
		return nil, err
	}
	return hits, nil
}

func (s *HybridSearcher) searchVector(ctx context.Context, query string, limit int) ([]Hit, error) {
	ctx, cancel := context.WithTimeout(ctx, s.retrieverTimeout)
	defer cancel()

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, kerrors.New(kerrors.ErrCodeEmbeddingFailed, "query embedding failed", err)
	}

	hits, err := s.vector.Search(ctx, embedding, limit)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, kerrors.New(kerrors.ErrCodeRetrieverTimeout, "vector search timed out", err)
		}
		return nil, err
	}
	return hits, nil
}

package history

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	kerrors "github.com/kestrel-search/kestrel/internal/errors"
	"github.com/kestrel-search/kestrel/internal/event"
	"github.com/kestrel-search/kestrel/internal/license"
)

const (
	defaultMaxEntries = 10000

	// maxQueryLength bounds stored query text; longer queries are cut at
	// a rune boundary before persisting.
	maxQueryLength = 500
)

// Tracker records query executions into a Store and answers history queries.
// It is wired to the event bus so recording never sits on the search path.
type Tracker struct {
	store      Store
	gate       license.Gate
	logger     *slog.Logger
	anonymize  bool
	maxEntries int
	now        func() time.Time
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithAnonymization stores a one-way hash of the query text instead of the
// raw text. Zero-result aggregation still works since equal queries hash
// equally, but the original text cannot be recovered.
func WithAnonymization(enabled bool) TrackerOption {
	return func(t *Tracker) {
		t.anonymize = enabled
	}
}

// WithMaxEntries caps stored history; older entries are pruned past the cap.
// Zero disables pruning.
func WithMaxEntries(n int) TrackerOption {
	return func(t *Tracker) {
		if n >= 0 {
			t.maxEntries = n
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) TrackerOption {
	return func(t *Tracker) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithGate sets the capability gate. With the gate closed nothing is
// recorded; reads still work against whatever was recorded before.
func WithGate(gate license.Gate) TrackerOption {
	return func(t *Tracker) {
		if gate != nil {
			t.gate = gate
		}
	}
}

// withClock overrides time.Now, for tests.
func withClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) {
		t.now = now
	}
}

// NewTracker creates a tracker over the given store.
func NewTracker(store Store, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		store:      store,
		gate:       license.Open(),
		logger:     slog.Default(),
		maxEntries: defaultMaxEntries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Subscribe attaches the tracker to the bus so every executed query is
// recorded asynchronously.
func (t *Tracker) Subscribe(bus *event.Bus) {
	bus.Subscribe(event.NameQueryExecuted, func(ctx context.Context, msg event.Message) {
		q, ok := msg.(event.QueryExecuted)
		if !ok {
			return
		}
		if err := t.Record(ctx, q.Query, q.Intent, q.ResultCount, q.TopScore, q.Duration); err != nil {
			t.logger.Warn("history recording failed",
				slog.String("error", err.Error()))
		}
	})
}

// Record persists one query execution. Empty queries are ignored, oversized
// queries are truncated rather than rejected.
func (t *Tracker) Record(ctx context.Context, query, intent string, resultCount int, topScore *float64, duration time.Duration) error {
	if !t.gate.HasAdvancedQueryFeatures() {
		return nil
	}

	query = truncateQuery(strings.TrimSpace(query))
	if query == "" {
		return nil
	}
	if t.anonymize {
		query = anonymizeQuery(query)
	}

	entry := Entry{
		ID:          uuid.NewString(),
		Query:       query,
		Intent:      intent,
		ResultCount: resultCount,
		TopScore:    topScore,
		Duration:    duration,
		ExecutedAt:  t.now().UTC(),
	}
	if err := t.store.Append(ctx, entry); err != nil {
		return kerrors.New(kerrors.ErrCodeHistoryFailed, "history append failed", err)
	}

	t.pruneIfNeeded(ctx)
	return nil
}

func (t *Tracker) pruneIfNeeded(ctx context.Context) {
	if t.maxEntries <= 0 {
		return
	}
	count, err := t.store.Count(ctx)
	if err != nil || count <= int64(t.maxEntries) {
		return
	}
	pruned, err := t.store.Prune(ctx, t.maxEntries)
	if err != nil {
		t.logger.Warn("history prune failed", slog.String("error", err.Error()))
		return
	}
	t.logger.Debug("history pruned",
		slog.Int64("removed", pruned),
		slog.Int("keep", t.maxEntries))
}

// Recent returns the newest entries first.
func (t *Tracker) Recent(ctx context.Context, limit int) ([]Entry, error) {
	entries, err := t.store.Recent(ctx, limit)
	if err != nil {
		return nil, kerrors.New(kerrors.ErrCodeHistoryFailed, "history listing failed", err)
	}
	return entries, nil
}

// ZeroResults returns aggregated zero-result queries seen since the given
// time, most frequent first. These point at content gaps worth filling. A
// zero since means all recorded history.
func (t *Tracker) ZeroResults(ctx context.Context, since time.Time, limit int) ([]ZeroResultQuery, error) {
	zr, err := t.store.ZeroResults(ctx, since, limit)
	if err != nil {
		return nil, kerrors.New(kerrors.ErrCodeHistoryFailed, "zero-result aggregation failed", err)
	}
	return zr, nil
}

// Stats summarizes the recorded history between since and until; zero times
// mean unbounded on that side.
func (t *Tracker) Stats(ctx context.Context, since, until time.Time) (*Stats, error) {
	stats, err := t.store.Stats(ctx, since, until)
	if err != nil {
		return nil, kerrors.New(kerrors.ErrCodeHistoryFailed, "history stats failed", err)
	}
	return stats, nil
}

// Clear deletes history entries older than the given time; a zero time
// clears everything.
func (t *Tracker) Clear(ctx context.Context, olderThan time.Time) error {
	if err := t.store.Clear(ctx, olderThan); err != nil {
		return kerrors.New(kerrors.ErrCodeHistoryFailed, "history clear failed", err)
	}
	return nil
}

// anonymizeQuery replaces query text with a stable one-way hash. Hashing is
// case-insensitive so aggregation still groups equal queries.
func anonymizeQuery(query string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(query)))
	return "sha256:" + hex.EncodeToString(sum[:])
}

func truncateQuery(query string) string {
	runes := []rune(query)
	if len(runes) <= maxQueryLength {
		return query
	}
	return string(runes[:maxQueryLength])
}

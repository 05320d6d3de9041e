package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrel-search/kestrel/internal/history"
	"github.com/kestrel-search/kestrel/internal/suggest"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}

func TestSuggestionUpsertIncrementsFrequency(t *testing.T) {
	s := openTestDB(t).Suggestions()
	ctx := context.Background()

	c := suggest.Candidate{
		Text: "OAuth Setup", NormalizedText: "oauth setup",
		Source: suggest.SourceDocumentHeading, OriginDocument: "doc-1",
		Frequency: 1, LastSeen: time.Now(),
	}
	require.NoError(t, s.Upsert(ctx, c))
	require.NoError(t, s.Upsert(ctx, c))

	got, err := s.FindByPrefix(ctx, "oauth", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Frequency)
	assert.Equal(t, "OAuth Setup", got[0].Text)
}

func TestSuggestionUniquenessPerSourceAndDocument(t *testing.T) {
	s := openTestDB(t).Suggestions()
	ctx := context.Background()

	base := suggest.Candidate{
		Text: "oauth setup", NormalizedText: "oauth setup",
		Frequency: 1, LastSeen: time.Now(),
	}

	heading := base
	heading.Source = suggest.SourceDocumentHeading
	heading.OriginDocument = "doc-1"
	query := base
	query.Source = suggest.SourceQueryHistory

	require.NoError(t, s.Upsert(ctx, heading))
	require.NoError(t, s.Upsert(ctx, query))

	got, err := s.FindByPrefix(ctx, "oauth", 10)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSuggestionFindByPrefixOrdering(t *testing.T) {
	s := openTestDB(t).Suggestions()
	ctx := context.Background()

	for i, text := range []string{"oauth setup", "oauth scopes", "tls config"} {
		require.NoError(t, s.Upsert(ctx, suggest.Candidate{
			Text: text, NormalizedText: text,
			Source: suggest.SourceQueryHistory, Frequency: i + 1,
			LastSeen: time.Now(),
		}))
	}

	got, err := s.FindByPrefix(ctx, "oauth", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "oauth scopes", got[0].Text)
	assert.Equal(t, "oauth setup", got[1].Text)
}

func TestSuggestionPrefixEscapesWildcards(t *testing.T) {
	s := openTestDB(t).Suggestions()
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, suggest.Candidate{
		Text: "max_retries tuning", NormalizedText: "max_retries tuning",
		Source: suggest.SourceContentNgram, Frequency: 1, LastSeen: time.Now(),
	}))
	require.NoError(t, s.Upsert(ctx, suggest.Candidate{
		Text: "maxfretries other", NormalizedText: "maxfretries other",
		Source: suggest.SourceContentNgram, Frequency: 1, LastSeen: time.Now(),
	}))

	// An underscore in the prefix must match literally, not as a wildcard.
	got, err := s.FindByPrefix(ctx, "max_", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "max_retries tuning", got[0].Text)
}

func TestSuggestionDeleteByDocument(t *testing.T) {
	s := openTestDB(t).Suggestions()
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, suggest.Candidate{
		Text: "oauth setup", NormalizedText: "oauth setup",
		Source: suggest.SourceDocumentHeading, OriginDocument: "doc-1",
		Frequency: 1, LastSeen: time.Now(),
	}))
	require.NoError(t, s.Upsert(ctx, suggest.Candidate{
		Text: "oauth faq", NormalizedText: "oauth faq",
		Source: suggest.SourceQueryHistory,
		Frequency: 1, LastSeen: time.Now(),
	}))

	n, err := s.DeleteByDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	// Candidates without an origin document are never bulk-deleted.
	n, err = s.DeleteByDocument(ctx, "")
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	got, err := s.FindByPrefix(ctx, "oauth", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "oauth faq", got[0].Text)
}

func historyEntry(query string, resultCount int, at time.Time) history.Entry {
	return history.Entry{
		ID:          uuid.NewString(),
		Query:       query,
		Intent:      "factual",
		ResultCount: resultCount,
		Duration:    15 * time.Millisecond,
		ExecutedAt:  at,
	}
}

func TestHistoryAppendAndRecent(t *testing.T) {
	h := openTestDB(t).History()
	ctx := context.Background()
	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	score := 0.91
	first := historyEntry("oauth setup", 3, base)
	first.TopScore = &score
	require.NoError(t, h.Append(ctx, first))
	require.NoError(t, h.Append(ctx, historyEntry("tls config", 1, base.Add(time.Minute))))

	got, err := h.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "tls config", got[0].Query)
	assert.Equal(t, "oauth setup", got[1].Query)
	require.NotNil(t, got[1].TopScore)
	assert.Equal(t, 0.91, *got[1].TopScore)
	assert.Nil(t, got[0].TopScore)
	assert.Equal(t, base, got[1].ExecutedAt)
	assert.Equal(t, 15*time.Millisecond, got[1].Duration)
}

func TestHistoryZeroResultsAggregation(t *testing.T) {
	h := openTestDB(t).History()
	ctx := context.Background()
	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	require.NoError(t, h.Append(ctx, historyEntry("Missing Feature", 0, base)))
	require.NoError(t, h.Append(ctx, historyEntry("missing feature", 0, base.Add(time.Hour))))
	require.NoError(t, h.Append(ctx, historyEntry("another gap", 0, base)))
	require.NoError(t, h.Append(ctx, historyEntry("found", 5, base)))

	got, err := h.ZeroResults(ctx, time.Time{}, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "missing feature", got[0].Query)
	assert.Equal(t, 2, got[0].Occurrences)
	assert.Equal(t, base.Add(time.Hour), got[0].LastSeen)
	assert.Equal(t, "another gap", got[1].Query)
}

func TestHistoryStats(t *testing.T) {
	h := openTestDB(t).History()
	ctx := context.Background()
	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	e1 := historyEntry("a", 2, base)
	e1.Intent = "procedural"
	e1.Duration = 10 * time.Millisecond
	e2 := historyEntry("b", 0, base)
	e2.Duration = 30 * time.Millisecond
	require.NoError(t, h.Append(ctx, e1))
	require.NoError(t, h.Append(ctx, e2))

	stats, err := h.Stats(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.TotalQueries)
	assert.EqualValues(t, 2, stats.UniqueQueries)
	assert.EqualValues(t, 1, stats.ZeroResults)
	assert.InDelta(t, 0.5, stats.ZeroResultRate, 1e-9)
	assert.InDelta(t, 1.0, stats.AverageResults, 1e-9)
	assert.Equal(t, 20*time.Millisecond, stats.AverageDuration)
	assert.EqualValues(t, 1, stats.ByIntent["procedural"])
	assert.EqualValues(t, 1, stats.ByIntent["factual"])
}

func TestHistoryStatsWindow(t *testing.T) {
	h := openTestDB(t).History()
	ctx := context.Background()
	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	require.NoError(t, h.Append(ctx, historyEntry("early", 1, base)))
	require.NoError(t, h.Append(ctx, historyEntry("late", 1, base.Add(2*time.Hour))))

	stats, err := h.Stats(ctx, base.Add(time.Hour), time.Time{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.TotalQueries)

	stats, err = h.Stats(ctx, time.Time{}, base.Add(time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.TotalQueries)
}

func TestHistoryZeroResultsSince(t *testing.T) {
	h := openTestDB(t).History()
	ctx := context.Background()
	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	require.NoError(t, h.Append(ctx, historyEntry("old gap", 0, base)))
	require.NoError(t, h.Append(ctx, historyEntry("new gap", 0, base.Add(2*time.Hour))))

	got, err := h.ZeroResults(ctx, base.Add(time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "new gap", got[0].Query)
}

func TestHistoryStatsEmpty(t *testing.T) {
	h := openTestDB(t).History()

	stats, err := h.Stats(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.EqualValues(t, 0, stats.TotalQueries)
	assert.Zero(t, stats.ZeroResultRate)
}

func TestHistoryPruneKeepsNewest(t *testing.T) {
	h := openTestDB(t).History()
	ctx := context.Background()
	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 6; i++ {
		require.NoError(t, h.Append(ctx, historyEntry("q", 1, base.Add(time.Duration(i)*time.Minute))))
	}

	removed, err := h.Prune(ctx, 4)
	require.NoError(t, err)
	assert.EqualValues(t, 2, removed)

	got, err := h.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, base.Add(5*time.Minute), got[0].ExecutedAt)
	assert.Equal(t, base.Add(2*time.Minute), got[3].ExecutedAt)
}

func TestHistoryClearAndCount(t *testing.T) {
	h := openTestDB(t).History()
	ctx := context.Background()

	require.NoError(t, h.Append(ctx, historyEntry("a", 1, time.Now())))
	n, err := h.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	require.NoError(t, h.Clear(ctx, time.Time{}))
	n, err = h.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}

func TestHistoryClearOlderThan(t *testing.T) {
	h := openTestDB(t).History()
	ctx := context.Background()
	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	require.NoError(t, h.Append(ctx, historyEntry("old", 1, base)))
	require.NoError(t, h.Append(ctx, historyEntry("new", 1, base.Add(2*time.Hour))))

	require.NoError(t, h.Clear(ctx, base.Add(time.Hour)))

	got, err := h.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].Query)
}

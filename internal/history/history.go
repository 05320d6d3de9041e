// Package history records executed queries for recall and analytics:
// recent-query listing, zero-result aggregation for content gap analysis,
// and summary statistics. Raw query text can be anonymized on an opt-in
// basis before it is persisted.
package history

import (
	"context"
	"time"
)

// Entry is one recorded query execution.
type Entry struct {
	ID          string        `json:"id"`
	Query       string        `json:"query"`
	Intent      string        `json:"intent"`
	ResultCount int           `json:"result_count"`
	TopScore    *float64      `json:"top_score,omitempty"`
	Duration    time.Duration `json:"duration"`
	ExecutedAt  time.Time     `json:"executed_at"`
}

// ZeroResultQuery aggregates queries that matched nothing, case-insensitively.
type ZeroResultQuery struct {
	Query       string    `json:"query"`
	Occurrences int       `json:"occurrences"`
	LastSeen    time.Time `json:"last_seen"`
}

// Stats summarizes the recorded history.
type Stats struct {
	TotalQueries    int64            `json:"total_queries"`
	UniqueQueries   int64            `json:"unique_queries"`
	ZeroResults     int64            `json:"zero_results"`
	ZeroResultRate  float64          `json:"zero_result_rate"`
	AverageResults  float64          `json:"average_results"`
	AverageDuration time.Duration    `json:"average_duration"`
	ByIntent        map[string]int64 `json:"by_intent"`
}

// Store persists history entries. A zero time on any filter argument means
// unbounded.
type Store interface {
	Append(ctx context.Context, e Entry) error
	// Recent returns the newest entries first.
	Recent(ctx context.Context, limit int) ([]Entry, error)
	// ZeroResults aggregates zero-result queries seen since the given time,
	// most frequent first.
	ZeroResults(ctx context.Context, since time.Time, limit int) ([]ZeroResultQuery, error)
	Stats(ctx context.Context, since, until time.Time) (*Stats, error)
	// Prune deletes the oldest entries beyond keep, returning how many.
	Prune(ctx context.Context, keep int) (int64, error)
	// Clear deletes entries older than the given time; zero clears all.
	Clear(ctx context.Context, olderThan time.Time) error
	Count(ctx context.Context) (int64, error)
}

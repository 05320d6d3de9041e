package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kestrel-search/kestrel/internal/history"
)

// HistoryStore implements history.Store on SQLite.
type HistoryStore struct {
	db *sql.DB
}

var _ history.Store = (*HistoryStore)(nil)

// Append inserts one history entry.
func (s *HistoryStore) Append(ctx context.Context, e history.Entry) error {
	var topScore sql.NullFloat64
	if e.TopScore != nil {
		topScore = sql.NullFloat64{Float64: *e.TopScore, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO history (id, query, intent, result_count, top_score, duration_ns, executed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Query, e.Intent, e.ResultCount, topScore, int64(e.Duration), e.ExecutedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// Recent returns the newest entries first.
func (s *HistoryStore) Recent(ctx context.Context, limit int) ([]history.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, query, intent, result_count, top_score, duration_ns, executed_at
		FROM history
		ORDER BY executed_at DESC, id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []history.Entry
	for rows.Next() {
		var e history.Entry
		var topScore sql.NullFloat64
		var durationNS, executedAt int64
		if err := rows.Scan(&e.ID, &e.Query, &e.Intent, &e.ResultCount, &topScore, &durationNS, &executedAt); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		if topScore.Valid {
			score := topScore.Float64
			e.TopScore = &score
		}
		e.Duration = time.Duration(durationNS)
		e.ExecutedAt = time.Unix(0, executedAt).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

// ZeroResults aggregates zero-result queries case-insensitively, most
// frequent first with recency as the tie-break. A zero since means all
// recorded history.
func (s *HistoryStore) ZeroResults(ctx context.Context, since time.Time, limit int) ([]history.ZeroResultQuery, error) {
	where := "result_count = 0"
	args := []any{}
	if !since.IsZero() {
		where += " AND executed_at >= ?"
		args = append(args, since.UnixNano())
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, `
		SELECT lower(query) AS q, COUNT(*) AS occurrences, MAX(executed_at) AS last_seen
		FROM history
		WHERE `+where+`
		GROUP BY lower(query)
		ORDER BY occurrences DESC, last_seen DESC
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("query zero results: %w", err)
	}
	defer rows.Close()

	var out []history.ZeroResultQuery
	for rows.Next() {
		var z history.ZeroResultQuery
		var lastSeen int64
		if err := rows.Scan(&z.Query, &z.Occurrences, &lastSeen); err != nil {
			return nil, fmt.Errorf("scan zero result: %w", err)
		}
		z.LastSeen = time.Unix(0, lastSeen).UTC()
		out = append(out, z)
	}
	return out, rows.Err()
}

// Stats summarizes recorded history between since and until; zero times mean
// unbounded on that side.
func (s *HistoryStore) Stats(ctx context.Context, since, until time.Time) (*history.Stats, error) {
	stats := &history.Stats{ByIntent: make(map[string]int64)}

	where := "1 = 1"
	args := []any{}
	if !since.IsZero() {
		where += " AND executed_at >= ?"
		args = append(args, since.UnixNano())
	}
	if !until.IsZero() {
		where += " AND executed_at <= ?"
		args = append(args, until.UnixNano())
	}

	var avgResults, avgNS sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(DISTINCT lower(query)),
		       COALESCE(SUM(CASE WHEN result_count = 0 THEN 1 ELSE 0 END), 0),
		       AVG(result_count),
		       AVG(duration_ns)
		FROM history
		WHERE `+where,
		args...).Scan(&stats.TotalQueries, &stats.UniqueQueries, &stats.ZeroResults, &avgResults, &avgNS)
	if err != nil {
		return nil, fmt.Errorf("query history stats: %w", err)
	}
	if stats.TotalQueries > 0 {
		stats.ZeroResultRate = float64(stats.ZeroResults) / float64(stats.TotalQueries)
	}
	if avgResults.Valid {
		stats.AverageResults = avgResults.Float64
	}
	if avgNS.Valid {
		stats.AverageDuration = time.Duration(int64(avgNS.Float64))
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT intent, COUNT(*) FROM history WHERE `+where+` GROUP BY intent`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("query intent counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var intent string
		var count int64
		if err := rows.Scan(&intent, &count); err != nil {
			return nil, fmt.Errorf("scan intent count: %w", err)
		}
		stats.ByIntent[intent] = count
	}
	return stats, rows.Err()
}

// Prune deletes the oldest entries beyond keep.
func (s *HistoryStore) Prune(ctx context.Context, keep int) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM history
		WHERE id NOT IN (
			SELECT id FROM history
			ORDER BY executed_at DESC, id
			LIMIT ?
		)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return res.RowsAffected()
}

// Clear deletes history entries older than the given time; a zero time
// clears everything.
func (s *HistoryStore) Clear(ctx context.Context, olderThan time.Time) error {
	query := `DELETE FROM history`
	args := []any{}
	if !olderThan.IsZero() {
		query += ` WHERE executed_at < ?`
		args = append(args, olderThan.UnixNano())
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

// Count returns the number of stored entries.
func (s *HistoryStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM history`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count history: %w", err)
	}
	return n, nil
}

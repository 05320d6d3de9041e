package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/kestrel-search/kestrel/internal/suggest"
)

// SuggestionStore implements suggest.Store on SQLite.
type SuggestionStore struct {
	db *sql.DB
}

var _ suggest.Store = (*SuggestionStore)(nil)

// Upsert inserts a candidate or bumps its frequency and last-seen time on
// conflict. The display text follows the newest write.
func (s *SuggestionStore) Upsert(ctx context.Context, c suggest.Candidate) error {
	lastSeen := c.LastSeen
	if lastSeen.IsZero() {
		lastSeen = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO suggestions (text, normalized_text, source, origin_document, frequency, last_seen)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(normalized_text, source, origin_document) DO UPDATE SET
			frequency = frequency + excluded.frequency,
			last_seen = excluded.last_seen,
			text = excluded.text
	`, c.Text, c.NormalizedText, c.Source, c.OriginDocument, c.Frequency, lastSeen.UnixNano())
	if err != nil {
		return fmt.Errorf("upsert suggestion: %w", err)
	}
	return nil
}

// FindByPrefix returns stored candidates whose normalized text starts with
// prefix, most frequent first.
func (s *SuggestionStore) FindByPrefix(ctx context.Context, prefix string, limit int) ([]suggest.Candidate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT text, normalized_text, source, origin_document, frequency, last_seen
		FROM suggestions
		WHERE normalized_text LIKE ? ESCAPE '\'
		ORDER BY frequency DESC, normalized_text ASC
		LIMIT ?
	`, escapeLike(prefix)+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("query suggestions: %w", err)
	}
	defer rows.Close()

	var out []suggest.Candidate
	for rows.Next() {
		var c suggest.Candidate
		var lastSeen int64
		if err := rows.Scan(&c.Text, &c.NormalizedText, &c.Source, &c.OriginDocument, &c.Frequency, &lastSeen); err != nil {
			return nil, fmt.Errorf("scan suggestion: %w", err)
		}
		c.LastSeen = time.Unix(0, lastSeen)
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteByDocument removes all candidates originating from a document.
func (s *SuggestionStore) DeleteByDocument(ctx context.Context, docID string) (int64, error) {
	if docID == "" {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM suggestions WHERE origin_document = ?`, docID)
	if err != nil {
		return 0, fmt.Errorf("delete suggestions: %w", err)
	}
	return res.RowsAffected()
}

// escapeLike neutralizes LIKE wildcards in user-typed prefixes.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

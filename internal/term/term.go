// Package term provides the terminology lookup collaborator: curated synonym
// pairs with similarity scores, plus prefix lookup for autocomplete.
package term

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Match is a curated synonym for a term with its similarity score.
type Match struct {
	Term       string
	Similarity float64
}

// Lookup resolves curated terminology. Implementations are read-only from the
// engine's perspective.
type Lookup interface {
	// GetSynonyms returns curated synonyms for a term with similarity scores.
	GetSynonyms(ctx context.Context, term string) ([]Match, error)

	// FindByPrefix returns up to limit known terms starting with prefix.
	FindByPrefix(ctx context.Context, prefix string, limit int) ([]string, error)
}

// StaticStore is an in-memory Lookup seeded from a vocabulary table.
// Safe for concurrent readers; the table is never mutated after construction.
type StaticStore struct {
	mu       sync.RWMutex
	synonyms map[string][]Match
	terms    []string // sorted, for prefix scans
}

// NewStaticStore creates a store from a synonym table. Keys and entries are
// normalized to lowercase.
func NewStaticStore(table map[string][]Match) *StaticStore {
	s := &StaticStore{synonyms: make(map[string][]Match, len(table))}
	seen := make(map[string]bool)
	for k, matches := range table {
		key := strings.ToLower(strings.TrimSpace(k))
		if key == "" {
			continue
		}
		ms := make([]Match, 0, len(matches))
		for _, m := range matches {
			t := strings.ToLower(strings.TrimSpace(m.Term))
			if t == "" || t == key {
				continue
			}
			ms = append(ms, Match{Term: t, Similarity: clamp01(m.Similarity)})
		}
		sort.Slice(ms, func(i, j int) bool {
			if ms[i].Similarity != ms[j].Similarity {
				return ms[i].Similarity > ms[j].Similarity
			}
			return ms[i].Term < ms[j].Term
		})
		s.synonyms[key] = ms
		if !seen[key] {
			seen[key] = true
			s.terms = append(s.terms, key)
		}
		for _, m := range ms {
			if !seen[m.Term] {
				seen[m.Term] = true
				s.terms = append(s.terms, m.Term)
			}
		}
	}
	sort.Strings(s.terms)
	return s
}

// NewDefaultStore creates a store seeded with the built-in domain vocabulary.
func NewDefaultStore() *StaticStore {
	return NewStaticStore(DefaultVocabulary)
}

// GetSynonyms implements Lookup.
func (s *StaticStore) GetSynonyms(_ context.Context, term string) ([]Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := s.synonyms[strings.ToLower(strings.TrimSpace(term))]
	out := make([]Match, len(matches))
	copy(out, matches)
	return out, nil
}

// FindByPrefix implements Lookup.
func (s *StaticStore) FindByPrefix(_ context.Context, prefix string, limit int) ([]string, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" || limit <= 0 {
		return []string{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	// terms is sorted, so all matches are contiguous from the first hit
	start := sort.SearchStrings(s.terms, prefix)
	out := make([]string, 0, limit)
	for i := start; i < len(s.terms) && len(out) < limit; i++ {
		if !strings.HasPrefix(s.terms[i], prefix) {
			break
		}
		out = append(out, s.terms[i])
	}
	return out, nil
}

// Terms returns all known vocabulary terms (sorted). Used by the analyzer's
// domain-term matcher.
func (s *StaticStore) Terms() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, len(s.terms))
	copy(out, s.terms)
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Ensure StaticStore implements Lookup.
var _ Lookup = (*StaticStore)(nil)

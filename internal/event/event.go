// Package event provides an in-process publish/subscribe bus that decouples
// the query pipeline from background consumers such as history tracking and
// suggestion indexing.
package event

import (
	"time"
)

// Event names.
const (
	NameQueryExecuted        = "query.executed"
	NameZeroResultObserved   = "query.zero_result"
	NameSearchDegraded       = "search.degraded"
	NameDocumentIndexed      = "document.indexed"
	NameDocumentRemoved      = "document.removed"
	NameSuggestionsExtracted = "suggestions.extracted"
)

// Message is implemented by all bus payloads.
type Message interface {
	EventName() string
}

// QueryExecuted is published after every completed search.
type QueryExecuted struct {
	Query       string
	Intent      string
	ResultCount int
	TopScore    *float64
	Duration    time.Duration
	ExecutedAt  time.Time
}

// EventName implements Message.
func (QueryExecuted) EventName() string { return NameQueryExecuted }

// ZeroResultObserved is published when a search finds nothing. Consumers use
// it to surface content gaps.
type ZeroResultObserved struct {
	Query      string
	Intent     string
	ObservedAt time.Time
}

// EventName implements Message.
func (ZeroResultObserved) EventName() string { return NameZeroResultObserved }

// SearchDegraded is published when a search is served in any mode other than
// full hybrid retrieval.
type SearchDegraded struct {
	Query      string
	Mode       string
	ObservedAt time.Time
}

// EventName implements Message.
func (SearchDegraded) EventName() string { return NameSearchDegraded }

// DocumentIndexed is published after a document is added or updated.
type DocumentIndexed struct {
	DocID     string
	Title     string
	Headings  []string
	Content   string
	IndexedAt time.Time
}

// EventName implements Message.
func (DocumentIndexed) EventName() string { return NameDocumentIndexed }

// DocumentRemoved is published after a document is deleted.
type DocumentRemoved struct {
	DocID     string
	RemovedAt time.Time
}

// EventName implements Message.
func (DocumentRemoved) EventName() string { return NameDocumentRemoved }

// SuggestionsExtracted is published after a document's suggestion candidates
// are refreshed.
type SuggestionsExtracted struct {
	DocID       string
	Candidates  int
	ExtractedAt time.Time
}

// EventName implements Message.
func (SuggestionsExtracted) EventName() string { return NameSuggestionsExtracted }

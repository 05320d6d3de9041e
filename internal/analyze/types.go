// Package analyze turns a raw search string into a structured query analysis:
// keywords, recognized entities, coarse intent, and a specificity estimate.
// Analysis is pure computation with no I/O and never fails on malformed input.
package analyze

// Intent is the coarse classification of what a query is seeking.
type Intent string

const (
	// IntentFactual seeks a direct answer ("what is the default port").
	IntentFactual Intent = "factual"

	// IntentProcedural seeks step-by-step instructions ("how to configure TLS").
	IntentProcedural Intent = "procedural"

	// IntentConceptual seeks an explanation ("why does replication lag").
	IntentConceptual Intent = "conceptual"

	// IntentNavigational seeks a specific location ("where is server.yaml").
	IntentNavigational Intent = "navigational"
)

// EntityType classifies a recognized sub-span of a query.
// Declaration order is the matching priority: when spans overlap, the
// higher-priority match wins and the lower-priority match is discarded.
type EntityType string

const (
	EntityErrorCode      EntityType = "error_code"
	EntityVersionNumber  EntityType = "version_number"
	EntityFilePath       EntityType = "file_path"
	EntityCodeIdentifier EntityType = "code_identifier"
	EntityDomainTerm     EntityType = "domain_term"
)

// Entity is a recognized sub-span of the original (non-lowercased) query.
type Entity struct {
	// Text is the matched span exactly as it appears in the original query.
	Text string

	// Type is the pattern category that matched.
	Type EntityType

	// StartIndex is the byte offset of the span in the original query.
	StartIndex int

	// Confidence is the pattern's confidence in [0,1].
	Confidence float64
}

// QueryAnalysis is the immutable result of analyzing one query.
// Keywords are order-preserving and case-insensitively deduplicated, with
// stop-words removed. Specificity is clamped to [0,1].
type QueryAnalysis struct {
	OriginalQuery   string
	NormalizedQuery string
	Keywords        []string
	Entities        []Entity
	Intent          Intent
	Specificity     float64
}

// HasEntityType reports whether any recognized entity has the given type.
func (a *QueryAnalysis) HasEntityType(t EntityType) bool {
	for _, e := range a.Entities {
		if e.Type == t {
			return true
		}
	}
	return false
}

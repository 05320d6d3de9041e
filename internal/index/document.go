// Package index provides the concrete retrieval backends: a bleve-backed
// BM25 keyword index, an HNSW vector index, and a deterministic hash-based
// embedder used when no external embedding service is configured.
package index

import "strings"

// Document is the unit of ingestion shared by both backends.
type Document struct {
	ID       string
	Title    string
	Headings []string
	Content  string
}

// EmbeddingText returns the text fed to the embedder. Title and headings are
// included so short structural signals survive in the vector.
func (d Document) EmbeddingText() string {
	parts := make([]string, 0, 3)
	if d.Title != "" {
		parts = append(parts, d.Title)
	}
	if len(d.Headings) > 0 {
		parts = append(parts, strings.Join(d.Headings, "\n"))
	}
	if d.Content != "" {
		parts = append(parts, d.Content)
	}
	return strings.Join(parts, "\n")
}

package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	kerrors "github.com/kestrel-search/kestrel/internal/errors"
	"github.com/kestrel-search/kestrel/internal/search"
)

const docAnalyzerName = "doc_analyzer"

// Field boosts applied at query time. Title matches outrank heading matches,
// which outrank body matches.
const (
	titleBoost   = 2.0
	headingBoost = 1.5
	defaultLimit = 10
)

// KeywordIndex is the BM25 lexical backend built on bleve.
type KeywordIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	closed bool
}

var _ search.KeywordIndex = (*KeywordIndex)(nil)

type bleveDocument struct {
	Title    string `json:"title"`
	Headings string `json:"headings"`
	Content  string `json:"content"`
}

// NewKeywordIndex opens or creates a keyword index. An empty path creates an
// in-memory index.
func NewKeywordIndex(path string) (*KeywordIndex, error) {
	indexMapping, err := buildIndexMapping()
	if err != nil {
		return nil, kerrors.New(kerrors.ErrCodeStoreOpen, "building index mapping: "+err.Error(), err)
	}

	var idx bleve.Index
	if path == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else {
		if mkErr := os.MkdirAll(filepath.Dir(path), 0o755); mkErr != nil {
			return nil, kerrors.New(kerrors.ErrCodeStoreOpen, "creating index directory: "+mkErr.Error(), mkErr)
		}
		idx, err = bleve.Open(path)
		if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
			idx, err = bleve.New(path, indexMapping)
		}
	}
	if err != nil {
		if errors.Is(err, bleve.ErrorIndexMetaCorrupt) {
			return nil, kerrors.New(kerrors.ErrCodeIndexCorrupt,
				fmt.Sprintf("keyword index at %s is corrupt, remove it and reindex", path), err)
		}
		return nil, kerrors.New(kerrors.ErrCodeStoreOpen, "opening keyword index: "+err.Error(), err)
	}

	return &KeywordIndex{index: idx, path: path}, nil
}

// buildIndexMapping registers the document analyzer: unicode tokenization,
// lowercasing, and English stop word removal.
func buildIndexMapping() (*mapping.IndexMappingImpl, error) {
	indexMapping := bleve.NewIndexMapping()

	err := indexMapping.AddCustomAnalyzer(docAnalyzerName, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": unicode.Name,
		"token_filters": []string{
			lowercase.Name,
			en.StopName,
		},
	})
	if err != nil {
		return nil, err
	}
	indexMapping.DefaultAnalyzer = docAnalyzerName

	return indexMapping, nil
}

// Add indexes documents, replacing any existing document with the same ID.
func (k *KeywordIndex) Add(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		return kerrors.New(kerrors.ErrCodeIndexWrite, "keyword index is closed", nil)
	}

	batch := k.index.NewBatch()
	for _, doc := range docs {
		bd := bleveDocument{
			Title:    doc.Title,
			Headings: strings.Join(doc.Headings, "\n"),
			Content:  doc.Content,
		}
		if err := batch.Index(doc.ID, bd); err != nil {
			return kerrors.New(kerrors.ErrCodeIndexWrite,
				fmt.Sprintf("indexing document %s: %v", doc.ID, err), err)
		}
	}

	if err := k.index.Batch(batch); err != nil {
		return kerrors.New(kerrors.ErrCodeIndexWrite, "executing index batch: "+err.Error(), err)
	}
	return nil
}

// Delete removes documents by ID. Unknown IDs are ignored.
func (k *KeywordIndex) Delete(ctx context.Context, docIDs []string) error {
	if len(docIDs) == 0 {
		return nil
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		return kerrors.New(kerrors.ErrCodeIndexWrite, "keyword index is closed", nil)
	}

	batch := k.index.NewBatch()
	for _, id := range docIDs {
		batch.Delete(id)
	}

	if err := k.index.Batch(batch); err != nil {
		return kerrors.New(kerrors.ErrCodeIndexWrite, "executing delete batch: "+err.Error(), err)
	}
	return nil
}

// Search runs a BM25 disjunction across title, headings, and content. Each
// term's boost is its weight times the field boost, so a weight-0.3 synonym
// contributes less to ranking than the original keyword it expands.
func (k *KeywordIndex) Search(ctx context.Context, terms []search.WeightedTerm, limit int) ([]search.Hit, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if k.closed {
		return nil, kerrors.New(kerrors.ErrCodeStoreQuery, "keyword index is closed", nil)
	}

	if limit <= 0 {
		limit = defaultLimit
	}

	fields := []struct {
		name  string
		boost float64
	}{
		{"title", titleBoost},
		{"headings", headingBoost},
		{"content", 1.0},
	}

	var queries []query.Query
	for _, term := range terms {
		if strings.TrimSpace(term.Text) == "" {
			continue
		}
		weight := term.Weight
		if weight <= 0 {
			weight = 1.0
		}
		for _, field := range fields {
			q := bleve.NewMatchQuery(term.Text)
			q.SetField(field.name)
			q.SetBoost(weight * field.boost)
			queries = append(queries, q)
		}
	}
	if len(queries) == 0 {
		return []search.Hit{}, nil
	}

	req := bleve.NewSearchRequest(bleve.NewDisjunctionQuery(queries...))
	req.Size = limit

	result, err := k.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, kerrors.New(kerrors.ErrCodeStoreQuery, "keyword search: "+err.Error(), err)
	}

	hits := make([]search.Hit, 0, len(result.Hits))
	for _, hit := range result.Hits {
		hits = append(hits, search.Hit{DocID: hit.ID, Score: hit.Score})
	}
	return hits, nil
}

// DocCount returns the number of indexed documents.
func (k *KeywordIndex) DocCount() (uint64, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if k.closed {
		return 0, kerrors.New(kerrors.ErrCodeStoreQuery, "keyword index is closed", nil)
	}
	return k.index.DocCount()
}

// Close releases the underlying bleve index.
func (k *KeywordIndex) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		return nil
	}
	k.closed = true
	return k.index.Close()
}

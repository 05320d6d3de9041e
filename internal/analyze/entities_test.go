package analyze

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entityTypes(entities []Entity) map[string]EntityType {
	m := make(map[string]EntityType, len(entities))
	for _, e := range entities {
		m[e.Text] = e.Type
	}
	return m
}

func TestExtractEntities_Patterns(t *testing.T) {
	a := newTestAnalyzer()

	tests := []struct {
		name  string
		query string
		text  string
		typ   EntityType
	}{
		{"error code underscore", "getting ERR_CONNECTION_REFUSED on startup", "ERR_CONNECTION_REFUSED", EntityErrorCode},
		{"error code numeric", "compiler reports E0001 here", "E0001", EntityErrorCode},
		{"exception name", "NullPointerException in the worker", "NullPointerException", EntityErrorCode},
		{"version plain", "upgrade to 2.1.0 safely", "2.1.0", EntityVersionNumber},
		{"version prefixed", "changes in v1.2", "v1.2", EntityVersionNumber},
		{"file path nested", "open src/auth/handler.go please", "src/auth/handler.go", EntityFilePath},
		{"file bare name", "edit server.yaml now", "server.yaml", EntityFilePath},
		{"camel case", "call getUserById with id", "getUserById", EntityCodeIdentifier},
		{"pascal case", "the QueryAnalyzer type", "QueryAnalyzer", EntityCodeIdentifier},
		{"snake case", "tune max_retries value", "max_retries", EntityCodeIdentifier},
		{"domain term", "authentication flow", "authentication", EntityDomainTerm},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analysis := a.Analyze(tt.query)
			types := entityTypes(analysis.Entities)
			require.Contains(t, types, tt.text)
			assert.Equal(t, tt.typ, types[tt.text])
		})
	}
}

func TestExtractEntities_OverlapResolvedByPriority(t *testing.T) {
	a := newTestAnalyzer()

	// ERR_CONNECTION_REFUSED also matches the SCREAMING_SNAKE identifier
	// pattern; the error-code match must win.
	analysis := a.Analyze("why ERR_CONNECTION_REFUSED happens")

	require.Len(t, analysis.Entities, 1)
	assert.Equal(t, EntityErrorCode, analysis.Entities[0].Type)

	// A path containing an identifier-looking segment stays one FilePath.
	analysis = a.Analyze("open internal/maxRetries/config.go")
	for _, e := range analysis.Entities {
		assert.NotEqual(t, EntityCodeIdentifier, e.Type,
			"identifier match inside claimed path span: %q", e.Text)
	}
	assert.True(t, analysis.HasEntityType(EntityFilePath))
}

func TestExtractEntities_PositionsAndConfidence(t *testing.T) {
	a := newTestAnalyzer()

	query := "see handler.go for details"
	analysis := a.Analyze(query)

	require.NotEmpty(t, analysis.Entities)
	e := analysis.Entities[0]
	assert.Equal(t, "handler.go", e.Text)
	assert.Equal(t, 4, e.StartIndex)
	assert.Equal(t, query[e.StartIndex:e.StartIndex+len(e.Text)], e.Text)
	assert.Greater(t, e.Confidence, 0.0)
	assert.LessOrEqual(t, e.Confidence, 1.0)
}

func TestExtractEntities_OrderedByPosition(t *testing.T) {
	a := newTestAnalyzer()

	analysis := a.Analyze("v1.2 broke getUserById in src/api/users.go")

	require.GreaterOrEqual(t, len(analysis.Entities), 3)
	for i := 1; i < len(analysis.Entities); i++ {
		assert.GreaterOrEqual(t, analysis.Entities[i].StartIndex, analysis.Entities[i-1].StartIndex)
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"configure oauth", []string{"configure", "oauth"}},
		{"max_retries=3", []string{"max_retries", "3"}},
		{"a,b;c", []string{"a", "b", "c"}},
		{"", nil},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Tokenize(tt.in), "input %q", tt.in)
	}
}

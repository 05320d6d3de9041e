package analyze

import (
	"regexp"
	"sort"
	"strings"
)

// Entity patterns, compiled at package init. Matching runs over the original
// (non-lowercased) query because casing carries signal for identifiers and
// error codes. All patterns are RE2, so matching is linear in input length.
var (
	// Error codes: ERR_CONNECTION_REFUSED, E0001, HTTP-500 style, FooException
	errorCodePattern = regexp.MustCompile(`\b(?:ERR_[A-Z0-9_]+|E\d{4,5}|[A-Z]{2,}[-_]\d{3,}|[A-Za-z]+Exception)\b`)

	// Version numbers: 1.2, v1.2.3, 2.0.0-rc1
	versionPattern = regexp.MustCompile(`\bv?\d+\.\d+(?:\.\d+)?(?:-[0-9A-Za-z.]+)?\b`)

	// File paths: either a slash-separated path or a bare filename with a
	// recognizable extension.
	filePathPattern = regexp.MustCompile(`(?:[\w.-]+[/\\])+[\w.-]+|\b[\w-]+\.(?:go|md|json|yaml|yml|toml|ini|conf|cfg|txt|py|rb|rs|js|jsx|ts|tsx|sh|sql|html|css|xml|csv|log|proto)\b`)

	// Code identifiers: camelCase, PascalCase (incl. IFooBar), snake_case,
	// SCREAMING_SNAKE.
	codeIdentifierPattern = regexp.MustCompile(`\b(?:[a-z]+(?:[A-Z][a-z0-9]*)+|[A-Z][a-z0-9]*(?:[A-Z][a-z0-9]*)+|[a-z]+(?:_[a-z0-9]+)+|[A-Z]+(?:_[A-Z0-9]+)+)\b`)
)

// entityConfidence maps each pattern category to its match confidence.
var entityConfidence = map[EntityType]float64{
	EntityErrorCode:      0.95,
	EntityVersionNumber:  0.9,
	EntityFilePath:       0.85,
	EntityCodeIdentifier: 0.8,
	EntityDomainTerm:     0.7,
}

// span is a half-open byte range [start, end) in the original query.
type span struct {
	start, end int
}

func (s span) overlaps(o span) bool {
	return s.start < o.end && o.start < s.end
}

// extractEntities runs the ordered pattern matchers over the original query.
// Overlapping spans resolve first-match-wins by pattern priority:
// ErrorCode > VersionNumber > FilePath > CodeIdentifier > DomainTerm.
func extractEntities(original string, domainTerms map[string]struct{}) []Entity {
	var entities []Entity
	var claimed []span

	claim := func(s span, typ EntityType) bool {
		for _, c := range claimed {
			if s.overlaps(c) {
				return false
			}
		}
		claimed = append(claimed, s)
		entities = append(entities, Entity{
			Text:       original[s.start:s.end],
			Type:       typ,
			StartIndex: s.start,
			Confidence: entityConfidence[typ],
		})
		return true
	}

	matchPattern := func(re *regexp.Regexp, typ EntityType) {
		for _, loc := range re.FindAllStringIndex(original, -1) {
			claim(span{loc[0], loc[1]}, typ)
		}
	}

	matchPattern(errorCodePattern, EntityErrorCode)
	matchPattern(versionPattern, EntityVersionNumber)
	matchPattern(filePathPattern, EntityFilePath)
	matchPattern(codeIdentifierPattern, EntityCodeIdentifier)

	// Domain terms come from the curated vocabulary, matched per whole token.
	if len(domainTerms) > 0 {
		for _, tok := range tokenizeWithOffsets(original) {
			if _, ok := domainTerms[strings.ToLower(tok.text)]; ok {
				claim(span{tok.start, tok.start + len(tok.text)}, EntityDomainTerm)
			}
		}
	}

	// Present entities in query order regardless of which pattern found them.
	sort.Slice(entities, func(i, j int) bool {
		if entities[i].StartIndex != entities[j].StartIndex {
			return entities[i].StartIndex < entities[j].StartIndex
		}
		return entities[i].Text < entities[j].Text
	})

	return entities
}

// token is a word with its byte offset in the source string.
type token struct {
	text  string
	start int
}

// tokenizeWithOffsets splits on anything that is not a letter or digit,
// keeping byte offsets into the source string.
func tokenizeWithOffsets(s string) []token {
	var tokens []token
	start := -1
	for i, r := range s {
		isWord := r == '_' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
			r > 127 // treat non-ASCII as word content
		if isWord {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			tokens = append(tokens, token{text: s[start:i], start: start})
			start = -1
		}
	}
	if start >= 0 {
		tokens = append(tokens, token{text: s[start:], start: start})
	}
	return tokens
}

// Tokenize splits a string into word tokens, discarding offsets.
func Tokenize(s string) []string {
	toks := tokenizeWithOffsets(s)
	out := make([]string, len(toks))
	for i, t := range toks {
		out[i] = t.text
	}
	return out
}

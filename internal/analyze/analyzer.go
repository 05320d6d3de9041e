package analyze

import (
	"strings"
)

// DefaultMaxQueryLength is the character ceiling applied before analysis.
// Longer input is truncated, never rejected.
const DefaultMaxQueryLength = 512

// Intent signal-word sets, checked against the first one or two normalized
// tokens in priority order: Procedural, Factual, Conceptual, Navigational.
var (
	proceduralSignals = wordSet("how", "install", "configure", "setup", "set",
		"create", "build", "implement", "deploy", "migrate", "integrate",
		"add", "enable", "disable", "run", "upgrade", "generate", "steps",
		"guide", "tutorial")

	factualSignals = wordSet("what", "when", "who", "which", "list", "show",
		"define", "default", "version", "supported")

	conceptualSignals = wordSet("why", "explain", "understand", "overview",
		"architecture", "concept", "difference", "compare", "meaning",
		"internals", "works")

	navigationalSignals = wordSet("where", "find", "locate", "open", "goto",
		"path", "location")
)

func wordSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// Analyzer produces QueryAnalysis values. It is stateless apart from its
// immutable configuration and safe for concurrent use.
type Analyzer struct {
	maxQueryLength int
	domainTerms    map[string]struct{}
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithMaxQueryLength sets the truncation ceiling in characters.
func WithMaxQueryLength(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.maxQueryLength = n
		}
	}
}

// WithDomainTerms sets the curated vocabulary used by the domain-term matcher.
func WithDomainTerms(terms []string) Option {
	return func(a *Analyzer) {
		a.domainTerms = make(map[string]struct{}, len(terms))
		for _, t := range terms {
			t = strings.ToLower(strings.TrimSpace(t))
			if t != "" {
				a.domainTerms[t] = struct{}{}
			}
		}
	}
}

// New creates an Analyzer with the given options.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		maxQueryLength: DefaultMaxQueryLength,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze turns a raw query string into a QueryAnalysis. It never fails:
// empty or whitespace-only input yields the canonical empty analysis, and
// overlong input is truncated before analysis.
func (a *Analyzer) Analyze(query string) QueryAnalysis {
	if len(query) > a.maxQueryLength {
		query = truncateAtRune(query, a.maxQueryLength)
	}

	normalized := strings.ToLower(strings.TrimSpace(query))
	if normalized == "" {
		return QueryAnalysis{
			OriginalQuery:   query,
			NormalizedQuery: "",
			Keywords:        []string{},
			Entities:        []Entity{},
			Intent:          IntentFactual,
			Specificity:     0,
		}
	}

	tokens := Tokenize(normalized)
	keywords := filterKeywords(tokens)
	entities := extractEntities(query, a.domainTerms)
	intent := detectIntent(tokens, entities)
	specificity := scoreSpecificity(normalized, keywords, entities)

	return QueryAnalysis{
		OriginalQuery:   query,
		NormalizedQuery: normalized,
		Keywords:        keywords,
		Entities:        entities,
		Intent:          intent,
		Specificity:     specificity,
	}
}

// filterKeywords removes stop-words and deduplicates case-insensitively while
// preserving first-occurrence order.
func filterKeywords(tokens []string) []string {
	keywords := make([]string, 0, len(tokens))
	seen := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		if IsStopWord(tok) {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		keywords = append(keywords, tok)
	}
	return keywords
}

// detectIntent classifies intent from the first one or two normalized tokens.
// A FilePath entity anywhere in the query forces Navigational regardless of
// leading words.
func detectIntent(tokens []string, entities []Entity) Intent {
	for _, e := range entities {
		if e.Type == EntityFilePath {
			return IntentNavigational
		}
	}

	leading := tokens
	if len(leading) > 2 {
		leading = leading[:2]
	}

	for _, set := range []struct {
		signals map[string]struct{}
		intent  Intent
	}{
		{proceduralSignals, IntentProcedural},
		{factualSignals, IntentFactual},
		{conceptualSignals, IntentConceptual},
		{navigationalSignals, IntentNavigational},
	} {
		for _, tok := range leading {
			if _, ok := set.signals[tok]; ok {
				return set.intent
			}
		}
	}

	return IntentFactual
}

// Specificity scoring constants. These are tuned starting points, not
// validated constants; the keyword tiers and entity bonuses are exposed here
// for empirical adjustment.
const (
	specificityEntityWeight  = 0.15
	specificityEntityCap     = 0.45
	specificityFilePathBonus = 0.10
	specificityErrCodeBonus  = 0.10
	specificityVersionBonus  = 0.05
	shortQueryLength         = 5
)

// keywordTierScores maps keyword counts (0, 1, 2, 3+) to base scores.
var keywordTierScores = [4]float64{0, 0.2, 0.3, 0.4}

func scoreSpecificity(normalized string, keywords []string, entities []Entity) float64 {
	tier := len(keywords)
	if tier > 3 {
		tier = 3
	}
	score := keywordTierScores[tier]

	entityScore := float64(len(entities)) * specificityEntityWeight
	if entityScore > specificityEntityCap {
		entityScore = specificityEntityCap
	}
	score += entityScore

	var hasFilePath, hasErrCode, hasVersion bool
	for _, e := range entities {
		switch e.Type {
		case EntityFilePath:
			hasFilePath = true
		case EntityErrorCode:
			hasErrCode = true
		case EntityVersionNumber:
			hasVersion = true
		}
	}
	if hasFilePath {
		score += specificityFilePathBonus
	}
	if hasErrCode {
		score += specificityErrCodeBonus
	}
	if hasVersion {
		score += specificityVersionBonus
	}

	if len(normalized) < shortQueryLength {
		score /= 2
	}

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// truncateAtRune cuts s to at most n bytes without splitting a rune.
func truncateAtRune(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

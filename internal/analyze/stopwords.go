package analyze

// stopWords contains English function words plus a small technical stop-list.
// Loaded once at process start and never mutated, so concurrent readers need
// no synchronization.
var stopWords = map[string]struct{}{}

// functionStopWords are common English function words that carry no retrieval
// signal on their own.
var functionStopWords = []string{
	"a", "an", "the", "and", "or", "but", "not", "no",
	"is", "are", "was", "were", "be", "been", "being",
	"do", "does", "did", "done", "doing",
	"have", "has", "had", "having",
	"will", "would", "shall", "should", "can", "could", "may", "might", "must",
	"to", "of", "in", "on", "at", "by", "for", "with", "from", "into", "onto",
	"as", "about", "between", "through", "during", "before", "after",
	"i", "me", "my", "we", "our", "you", "your", "it", "its",
	"this", "that", "these", "those", "there", "here",
	"how", "what", "when", "where", "which", "who", "why",
	"am", "if", "then", "than", "so", "such", "up", "out", "off",
	"all", "any", "some", "more", "most", "other", "own", "same",
	"get", "got",
}

// technicalStopWords are domain words so common in documentation queries that
// they add noise rather than signal.
var technicalStopWords = []string{
	"doc", "docs", "documentation", "page", "section", "example", "examples",
}

func init() {
	for _, w := range functionStopWords {
		stopWords[w] = struct{}{}
	}
	for _, w := range technicalStopWords {
		stopWords[w] = struct{}{}
	}
}

// IsStopWord reports whether the (already lowercased) token is a stop-word.
func IsStopWord(token string) bool {
	_, ok := stopWords[token]
	return ok
}

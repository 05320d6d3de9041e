package suggest

import (
	"strings"

	"github.com/kestrel-search/kestrel/internal/analyze"
)

const (
	minNgramTokens = 2
	maxNgramTokens = 4
	// minNgramOccurrences filters one-off phrases that would pollute the
	// suggestion pool.
	minNgramOccurrences = 2
	maxNgramLength      = 60
)

// extractNgrams pulls recurring token windows out of document content to use
// as content-derived suggestion candidates. A window qualifies when at least
// half its tokens are non-stopwords and it appears minNgramOccurrences times.
func extractNgrams(content string) []string {
	tokens := analyze.Tokenize(strings.ToLower(content))
	if len(tokens) < minNgramTokens {
		return nil
	}

	counts := make(map[string]int)
	for size := minNgramTokens; size <= maxNgramTokens; size++ {
		for i := 0; i+size <= len(tokens); i++ {
			window := tokens[i : i+size]
			if !informative(window) {
				continue
			}
			phrase := strings.Join(window, " ")
			if len(phrase) > maxNgramLength {
				continue
			}
			counts[phrase]++
		}
	}

	var out []string
	for phrase, n := range counts {
		if n >= minNgramOccurrences {
			out = append(out, phrase)
		}
	}
	return out
}

// informative requires at least half the window to carry meaning.
func informative(window []string) bool {
	content := 0
	for _, tok := range window {
		if len(tok) < 2 {
			return false
		}
		if !analyze.IsStopWord(tok) {
			content++
		}
	}
	return content*2 >= len(window)
}

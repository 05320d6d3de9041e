package expand

import "strings"

// Suffix-stripping rules for algorithmic (morphological) expansion, ordered
// longest-first so the most specific rule wins. A suffix is only stripped
// when at least three characters of stem remain.
var derivationalSuffixes = []string{
	"izations", "ization", "ations", "ation", "ities", "ingly",
	"ments", "ness", "ment", "tion", "sion", "ings", "ing",
	"ies", "ers", "ied", "ed", "es", "er", "ly", "s",
}

// commonInflections are re-attached to the stem to generate variants.
var commonInflections = []string{"s", "ing", "ed"}

const minStemLength = 3

// Stem strips the first matching derivational or inflectional suffix from a
// term. Terms shorter than four characters are returned unchanged.
func Stem(term string) string {
	t := strings.ToLower(strings.TrimSpace(term))
	if len(t) < minStemLength+1 {
		return t
	}
	for _, suf := range derivationalSuffixes {
		if strings.HasSuffix(t, suf) && len(t)-len(suf) >= minStemLength {
			return t[:len(t)-len(suf)]
		}
	}
	return t
}

// Variants derives morphological variants of a term: the bare stem plus the
// stem with each common inflection re-attached. The original term itself is
// never included.
func Variants(term string) []string {
	t := strings.ToLower(strings.TrimSpace(term))
	if t == "" {
		return nil
	}

	stem := Stem(t)
	candidates := make([]string, 0, len(commonInflections)+1)
	candidates = append(candidates, stem)
	for _, infl := range commonInflections {
		candidates = append(candidates, attach(stem, infl))
	}

	seen := map[string]struct{}{t: {}}
	var out []string
	for _, c := range candidates {
		if len(c) < minStemLength {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// attach joins stem and inflection, dropping a trailing 'e' before a
// vowel-initial inflection ("cache" + "ing" -> "caching").
func attach(stem, inflection string) string {
	if inflection == "" {
		return stem
	}
	if strings.HasSuffix(stem, "e") && (inflection == "ing" || inflection == "ed") {
		return stem[:len(stem)-1] + inflection
	}
	return stem + inflection
}

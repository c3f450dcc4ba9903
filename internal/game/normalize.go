package game

import "strings"

// strippedPunctuation is the fixed punctuation set removed from answers
// before comparison.
const strippedPunctuation = ".,!?;:'\"`()[]{}<>/\\|@#$%^&*_+=~-"

// articles are dropped as whole words during canonicalization.
var articles = map[string]struct{}{
	"a":   {},
	"an":  {},
	"the": {},
}

// Normalize canonicalizes a submitted answer so that trivially different
// phrasings of the same answer compare equal: lower-cased, punctuation
// stripped, whitespace collapsed, standalone articles removed, and a single
// trailing "s" folded off each word (naive plural folding, not a stemmer).
//
// Normalize is pure and total: every input maps to some string, possibly
// empty, and Normalize(Normalize(x)) == Normalize(x).
func Normalize(text string) string {
	lowered := strings.ToLower(text)

	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		if strings.ContainsRune(strippedPunctuation, r) {
			continue
		}
		b.WriteRune(r)
	}

	// Fields collapses internal whitespace runs and trims the ends.
	words := strings.Fields(b.String())
	kept := words[:0]
	for _, w := range words {
		w = foldPlural(w)
		if _, isArticle := articles[w]; isArticle {
			continue
		}
		if w != "" {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

// foldPlural strips one trailing "s" from a word. Words ending in "ss" are
// left alone; folding them would make repeated normalization unstable
// ("boss" must not decay to "bos" and then "bo").
func foldPlural(w string) string {
	if len(w) > 1 && strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss") {
		return w[:len(w)-1]
	}
	return w
}

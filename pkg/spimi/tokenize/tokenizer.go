// Package tokenize provides the concrete tokenizer capabilities the SPIMI
// pipeline treats as an external collaborator: a bare length-and-case
// normalizer pair (Simple/SimplePositional) and a stopword-and-stemming
// pair (Improved/ImprovedPositional) that also strips a small set of
// citation boilerplate phrases before splitting.
package tokenize

import (
	"strings"
	"unicode"

	"github.com/caneroj1/stemmer"
	"github.com/coregx/ahocorasick"
	"github.com/orsinium-labs/stopwords"

	"github.com/termshard/spimidx/pkg/spimi"
)

// minTermLen is the shortest term either tokenizer keeps.
const minTermLen = 3

// splitWords lowercases text and splits on anything that isn't a letter or
// digit.
func splitWords(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func countDistinct(words []string) []spimi.TermCount {
	counts := make(map[string]int, len(words))
	order := make([]string, 0, len(words))
	for _, w := range words {
		if _, seen := counts[w]; !seen {
			order = append(order, w)
		}
		counts[w]++
	}
	out := make([]spimi.TermCount, len(order))
	for i, w := range order {
		out[i] = spimi.TermCount{Term: w, Count: counts[w]}
	}
	return out
}

// Simple keeps lowercased alphanumeric tokens of at least minTermLen
// characters. It implements spimi.NonPositionalTokenizer.
type Simple struct{}

func (Simple) Tokenize(text string) []spimi.TermCount {
	var kept []string
	for _, w := range splitWords(text) {
		if len(w) >= minTermLen {
			kept = append(kept, w)
		}
	}
	return countDistinct(kept)
}

// SimplePositional is Simple's order-preserving counterpart. It implements
// spimi.PositionalTokenizer.
type SimplePositional struct{}

func (SimplePositional) Tokenize(text string) []string {
	var kept []string
	for _, w := range splitWords(text) {
		if len(w) >= minTermLen {
			kept = append(kept, w)
		}
	}
	return kept
}

// noisePhrases are citation and figure-reference boilerplate common in
// scientific abstracts; they're stripped before splitting so they don't
// pollute the vocabulary with fragments like "al" or "fig".
var noisePhrases = []string{
	"et al.", "et al", "fig.", "figs.", "eq.", "eqs.", "ref.", "refs.",
	"vol.", "pp.", "doi:", "http://", "https://",
}

var noiseMatcher = ahocorasick.NewStringMatcher(noisePhrases)

func stripNoise(lower string) string {
	if len(noiseMatcher.Match([]byte(lower))) == 0 {
		return lower
	}
	for _, phrase := range noisePhrases {
		lower = strings.ReplaceAll(lower, phrase, " ")
	}
	return lower
}

var english = stopwords.English

// stemWord drops words the stopword list marks as noise, then applies a
// Porter stem to the rest.
func stemWord(w string) (string, bool) {
	if english.Contains(w) {
		return "", false
	}
	stemmed := stemmer.Stem(w)
	if len(stemmed) < 2 {
		return "", false
	}
	return stemmed, true
}

func improvedWords(text string) []string {
	lower := stripNoise(strings.ToLower(text))
	var kept []string
	for _, w := range strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if stemmed, ok := stemWord(w); ok {
			kept = append(kept, stemmed)
		}
	}
	return kept
}

// Improved strips citation boilerplate, drops stopwords, and stems the
// remaining words with a Porter stemmer. It implements
// spimi.NonPositionalTokenizer.
type Improved struct{}

func (Improved) Tokenize(text string) []spimi.TermCount {
	return countDistinct(improvedWords(text))
}

// ImprovedPositional is Improved's order-preserving counterpart. It
// implements spimi.PositionalTokenizer.
type ImprovedPositional struct{}

func (ImprovedPositional) Tokenize(text string) []string {
	return improvedWords(text)
}

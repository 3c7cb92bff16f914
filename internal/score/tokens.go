// Package score rates canonical postings against a candidate profile using
// a deterministic weighted formula with dealbreaker short-circuiting and a
// single post-scoring staffing-firm adjustment.
package score

import (
	"strings"
	"unicode"
)

// stopWords are common English words excluded from keyword matching.
var stopWords = map[string]bool{
	"and": true, "the": true, "for": true, "with": true, "you": true,
	"are": true, "have": true, "will": true, "this": true, "that": true,
	"from": true, "our": true, "your": true, "their": true, "they": true,
	"work": true, "team": true, "role": true, "job": true, "join": true,
	"about": true, "which": true, "what": true, "who": true, "how": true,
	"can": true, "not": true, "but": true, "all": true, "also": true,
	"more": true, "than": true, "into": true, "has": true, "its": true,
	"was": true, "were": true, "been": true, "each": true, "new": true,
	"use": true, "using": true, "used": true, "such": true,
}

// tokenize splits text into lowercase keywords of three or more runes,
// skipping stop words. The characters + # . count as word characters so
// "c++", "c#", and "node.js" survive intact.
func tokenize(text string) map[string]bool {
	tokens := make(map[string]bool)
	var word strings.Builder
	flush := func() {
		w := strings.TrimRight(word.String(), ".")
		word.Reset()
		if len([]rune(w)) >= 3 && !stopWords[w] {
			tokens[w] = true
		}
	}
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '+' || r == '#' || r == '.' {
			word.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

// containsPhrase reports whether phrase occurs in text, case-insensitively.
// Multi-word phrases match as substrings so "on-call rotation" works.
func containsPhrase(text, phrase string) bool {
	phrase = strings.TrimSpace(strings.ToLower(phrase))
	if phrase == "" {
		return false
	}
	return strings.Contains(strings.ToLower(text), phrase)
}

// hitRate returns the fraction of terms found in tokens, matching each term
// either as a token or as a phrase inside text.
func hitRate(terms []string, tokens map[string]bool, text string) float64 {
	if len(terms) == 0 {
		return 0
	}
	hits := 0
	lower := strings.ToLower(text)
	for _, term := range terms {
		t := strings.ToLower(strings.TrimSpace(term))
		if t == "" {
			continue
		}
		if tokens[t] || strings.Contains(lower, t) {
			hits++
		}
	}
	return float64(hits) / float64(len(terms))
}

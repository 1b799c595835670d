// Package textx provides small text utilities used across the project.
package textx

import (
	"strings"
	"unicode"
)

// SanitizeText removes control characters except tab/newline/CR and trims spaces.
func SanitizeText(s string) string {
	// strip control chars outside tab/newline/carriage return
	var b strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' || (r >= 32 && r != 127) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// WordCount returns the number of whitespace-separated words in s.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// stopWords is the fixed list of common English function words excluded from
// concept extraction.
var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {},
	"on": {}, "at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {},
	"is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {},
	"being": {}, "have": {}, "has": {}, "had": {}, "do": {}, "does": {},
	"did": {}, "will": {}, "would": {}, "should": {}, "could": {}, "may": {},
	"might": {}, "can": {}, "it": {}, "its": {}, "this": {}, "that": {},
	"these": {}, "those": {},
}

// minConceptLength filters out short tokens; only words longer than this
// survive extraction.
const minConceptLength = 3

// ExtractConcepts pulls salient keyword concepts out of free text: lowercase
// alphabetic tokens longer than three characters, minus stop words. The
// result preserves first-occurrence order and contains no duplicates.
// Pure and deterministic; used for gap analysis between a reference answer
// and a candidate answer.
func ExtractConcepts(text string) []string {
	seen := map[string]struct{}{}
	var concepts []string
	for _, tok := range tokenize(strings.ToLower(text)) {
		if len(tok) <= minConceptLength {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		concepts = append(concepts, tok)
	}
	return concepts
}

// tokenize splits text into maximal runs of ASCII letters.
func tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
}

// Package textutil holds the tokenization rules shared by the gate, the
// relevance check and the chunking policy.
package textutil

import (
	"strings"
	"unicode"
)

// stopwords contains common English words excluded from key-term matching.
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true,
	"was": true, "were": true, "do": true, "does": true, "did": true,
	"have": true, "has": true, "had": true, "be": true, "been": true,
	"being": true, "will": true, "would": true, "could": true, "should": true,
	"may": true, "might": true, "can": true, "shall": true, "not": true,
	"no": true, "and": true, "or": true, "but": true, "if": true,
	"then": true, "than": true, "so": true, "as": true, "at": true,
	"by": true, "for": true, "from": true, "in": true, "into": true,
	"of": true, "on": true, "to": true, "with": true, "about": true,
	"up": true, "out": true, "it": true, "its": true, "this": true,
	"that": true, "what": true, "which": true, "who": true, "how": true,
	"when": true, "where": true, "why": true, "you": true, "me": true,
	"i": true, "my": true, "your": true, "we": true, "they": true,
	"he": true, "she": true, "her": true, "him": true, "us": true,
	"them": true, "these": true, "those": true, "there": true, "their": true,
	"also": true, "such": true, "more": true, "most": true, "very": true,
	"all": true, "any": true, "some": true, "other": true, "only": true,
	"over": true, "after": true, "before": true, "between": true, "during": true,
}

// IsStopword reports whether w (lowercase) is a stop-word
func IsStopword(w string) bool {
	return stopwords[w]
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Words splits text into lowercase alphanumeric words, keeping duplicates and order.
func Words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !isWordRune(r)
	})
}

// WordSet returns the distinct lowercase words of text.
func WordSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range Words(text) {
		set[w] = true
	}
	return set
}

// KeyTerms returns the distinct content words of text: stop-words removed,
// at least three characters long, in first-seen order.
func KeyTerms(text string) []string {
	seen := make(map[string]bool)
	var terms []string
	for _, w := range Words(text) {
		if len([]rune(w)) < 3 || stopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		terms = append(terms, w)
	}
	return terms
}

// SharedTerms returns the terms of b that also occur in a, in b's order.
func SharedTerms(a, b []string) []string {
	set := make(map[string]bool, len(a))
	for _, t := range a {
		set[t] = true
	}
	var shared []string
	for _, t := range b {
		if set[t] {
			shared = append(shared, t)
		}
	}
	return shared
}

// CountTokens counts whitespace-separated tokens, treating trailing
// sentence punctuation as a token of its own ("blue." counts as "blue" ".").
func CountTokens(text string) int {
	n := 0
	for _, field := range strings.Fields(text) {
		trimmed := strings.TrimRight(field, ".!?;:")
		if trimmed != "" {
			n++
		}
		if trimmed != field {
			n++
		}
	}
	return n
}

// ContainsPhrase reports whether phrase occurs in text on word boundaries,
// case-insensitively. Multi-word phrases match across any run of whitespace.
func ContainsPhrase(text, phrase string) bool {
	words := Words(text)
	target := Words(phrase)
	if len(target) == 0 || len(target) > len(words) {
		return false
	}
	for i := 0; i+len(target) <= len(words); i++ {
		match := true
		for j, t := range target {
			if words[i+j] != t {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

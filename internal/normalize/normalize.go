// Package normalize cleans raw input text before feature extraction:
// lowercasing, punctuation removal and stopword filtering.
package normalize

import (
	_ "embed"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

//go:embed english.txt
var englishStopwords string

// asciiSymbols are the ASCII characters outside Unicode's punctuation
// categories that still count as punctuation here.
const asciiSymbols = "$+<=>^`|~"

// DefaultStopwords returns the built-in English stopword list.
func DefaultStopwords() []string {
	return strings.Fields(englishStopwords)
}

// Normalizer lowercases text, strips punctuation and removes stopwords.
type Normalizer struct {
	stopwords map[string]struct{}
}

// New creates a Normalizer using the English stopword list plus any extra words.
func New(extra []string) *Normalizer {
	words := DefaultStopwords()
	stops := make(map[string]struct{}, len(words)+len(extra))
	for _, w := range words {
		stops[w] = struct{}{}
	}
	for _, w := range extra {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			stops[w] = struct{}{}
		}
	}
	return &Normalizer{stopwords: stops}
}

// Normalize returns text lowercased, without punctuation and without
// stopwords, with surviving tokens joined by single spaces.
func (n *Normalizer) Normalize(text string) string {
	// Casers carry state, so each call gets its own.
	cleaned := cases.Lower(language.Und).String(norm.NFKC.String(text))
	// Dropping punctuation can bring a base letter next to a combining
	// mark, so recompose afterwards.
	cleaned = norm.NFKC.String(RemovePunctuation(cleaned))
	return n.RemoveStopwords(cleaned)
}

// RemoveStopwords drops every whitespace-separated token whose lowercase
// form is a stopword.
func (n *Normalizer) RemoveStopwords(text string) string {
	tokens := strings.Fields(text)
	kept := tokens[:0]
	for _, tok := range tokens {
		if !n.IsStopword(tok) {
			kept = append(kept, tok)
		}
	}
	return strings.Join(kept, " ")
}

// IsStopword reports whether word is in the stopword set.
func (n *Normalizer) IsStopword(word string) bool {
	_, ok := n.stopwords[strings.ToLower(word)]
	return ok
}

// RemovePunctuation deletes every punctuation rune from text.
func RemovePunctuation(text string) string {
	return strings.Map(func(r rune) rune {
		if IsPunctuation(r) {
			return -1
		}
		return r
	}, text)
}

// IsPunctuation reports whether r is removed by RemovePunctuation.
func IsPunctuation(r rune) bool {
	return unicode.IsPunct(r) || strings.ContainsRune(asciiSymbols, r)
}

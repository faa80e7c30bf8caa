// Package features counts normalized words and ranks them into the
// feature text that heads a classification prompt.
package features

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// Order selects how distinct words are ranked.
type Order string

const (
	// OrderLexical ranks words by descending string value. This is the
	// established behavior and the default, even though it ignores counts.
	OrderLexical Order = "lexical"
	// OrderFrequency ranks words by descending count, ties broken by
	// descending string value.
	OrderFrequency Order = "frequency"
)

// ParseOrder maps a config value onto an Order. Empty means lexical.
func ParseOrder(s string) (Order, error) {
	switch Order(strings.ToLower(strings.TrimSpace(s))) {
	case "", OrderLexical:
		return OrderLexical, nil
	case OrderFrequency:
		return OrderFrequency, nil
	}
	return "", fmt.Errorf("unknown feature order %q (want lexical or frequency)", s)
}

// Feature is one distinct word with its count and 1-based rank.
type Feature struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
	Rank  int    `json:"rank"`
}

// Count tokenizes text on whitespace and counts each word.
func Count(text string) map[string]int {
	counts := make(map[string]int)
	for _, tok := range strings.Fields(text) {
		counts[tok]++
	}
	return counts
}

// Rank orders the distinct words of counts without modifying counts.
func Rank(counts map[string]int, order Order) []Feature {
	ranked := make([]Feature, 0, len(counts))
	for w, c := range counts {
		ranked = append(ranked, Feature{Word: w, Count: c})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if order == OrderFrequency && ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Word > ranked[j].Word
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

// Text renders ranked features as words each followed by one space.
func Text(ranked []Feature) string {
	var b strings.Builder
	for _, f := range ranked {
		b.WriteString(f.Word)
		b.WriteByte(' ')
	}
	return b.String()
}

// Ranker turns normalized text into ranked feature text.
type Ranker struct {
	order Order
}

// NewRanker creates a Ranker using the given order.
func NewRanker(order Order) *Ranker {
	if order == "" {
		order = OrderLexical
	}
	return &Ranker{order: order}
}

// Order returns the ranking order in use.
func (r *Ranker) Order() Order {
	return r.order
}

// Extract counts and ranks the words of text, returning the feature text
// and the ranked features. The counts are logged at debug level first.
func (r *Ranker) Extract(text string) (string, []Feature) {
	counts := Count(text)
	slog.Debug("[Features] Word counts", slog.Any("counts", counts), slog.String("order", string(r.order)))

	ranked := Rank(counts, r.order)
	return Text(ranked), ranked
}

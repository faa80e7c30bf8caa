package normalize

import (
	"strings"
	"testing"
)

func TestNormalizeExample(t *testing.T) {
	n := New(nil)
	got := n.Normalize("I love this! It is AMAZING and wonderful.")
	if got != "love amazing wonderful" {
		t.Errorf("expected 'love amazing wonderful', got %q", got)
	}
}

func TestNormalizeEmpty(t *testing.T) {
	n := New(nil)
	if got := n.Normalize(""); got != "" {
		t.Errorf("expected empty output, got %q", got)
	}
	if got := n.Normalize("  ...!!! the  "); got != "" {
		t.Errorf("expected empty output for punctuation and stopwords only, got %q", got)
	}
}

func TestNormalizeRemovesAllPunctuation(t *testing.T) {
	n := New(nil)
	inputs := []string{
		`Hello, "world"! (testing) [brackets] {braces} a-b_c; x:y?`,
		"Price: $100 + tax = ~120 <approx> | 50% off ^^ `code`",
		"Unicode “quotes” — dashes … ellipsis ¡hola! ¿qué?",
		"Don't stop believin', it's fine.",
	}
	for _, in := range inputs {
		out := n.Normalize(in)
		for _, r := range out {
			if IsPunctuation(r) {
				t.Errorf("output %q of %q still contains punctuation %q", out, in, r)
			}
		}
	}
}

func TestNormalizeRemovesStopwords(t *testing.T) {
	n := New(nil)
	out := n.Normalize("The cat AND the Dog were sitting on THE mat because it WAS warm")
	for _, tok := range strings.Fields(out) {
		if n.IsStopword(tok) {
			t.Errorf("stopword %q survived in %q", tok, out)
		}
	}
	if out != "cat dog sitting mat warm" {
		t.Errorf("unexpected output %q", out)
	}
}

func TestNormalizeContractionsLoseApostrophe(t *testing.T) {
	// Apostrophes go before stopword filtering, so "don't" becomes "dont",
	// which is not itself a stopword.
	n := New(nil)
	if got := n.Normalize("I don't know"); got != "dont know" {
		t.Errorf("expected 'dont know', got %q", got)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	n := New(nil)
	inputs := []string{
		"I love this! It is AMAZING and wonderful.",
		"Terrible service; the food was cold, and the waiter rude!!",
		"  spaced    out\ttext\nacross lines ",
		"ÉCOLE Straße ﬁne",
		"cafe!\u0301 nice",
	}
	for _, in := range inputs {
		once := n.Normalize(in)
		twice := n.Normalize(once)
		if once != twice {
			t.Errorf("not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestNormalizeUnicodeCompatibility(t *testing.T) {
	n := New(nil)
	// NFKC folds the "ﬁ" ligature before lowercasing.
	if got := n.Normalize("ﬁne WORK"); got != "fine work" {
		t.Errorf("expected 'fine work', got %q", got)
	}
}

func TestNormalizeRecomposesAfterPunctuation(t *testing.T) {
	n := New(nil)
	if got := n.Normalize("cafe!\u0301 nice"); got != "caf\u00e9 nice" {
		t.Errorf("expected precomposed 'caf\u00e9 nice', got %q", got)
	}
}

func TestExtraStopwords(t *testing.T) {
	n := New([]string{"  Movie ", ""})
	if got := n.Normalize("This movie was great"); got != "great" {
		t.Errorf("expected 'great', got %q", got)
	}
}

func TestDefaultStopwords(t *testing.T) {
	words := DefaultStopwords()
	if len(words) != 179 {
		t.Errorf("expected 179 stopwords, got %d", len(words))
	}
	n := New(nil)
	for _, w := range []string{"i", "this", "it", "is", "and"} {
		if !n.IsStopword(w) {
			t.Errorf("expected %q to be a stopword", w)
		}
	}
}

func TestRemovePunctuationKeepsLettersAndDigits(t *testing.T) {
	if got := RemovePunctuation("a1,b2.c3!"); got != "a1b2c3" {
		t.Errorf("expected 'a1b2c3', got %q", got)
	}
}

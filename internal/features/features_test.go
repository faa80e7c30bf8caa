package features

import (
	"strings"
	"testing"
)

func TestExtractExample(t *testing.T) {
	r := NewRanker(OrderLexical)
	text, ranked := r.Extract("love amazing wonderful")

	if text != "wonderful love amazing " {
		t.Errorf("expected 'wonderful love amazing ', got %q", text)
	}
	if len(ranked) != 3 {
		t.Fatalf("expected 3 features, got %d", len(ranked))
	}
	if ranked[0].Word != "wonderful" || ranked[0].Rank != 1 {
		t.Errorf("expected wonderful at rank 1, got %+v", ranked[0])
	}
}

func TestLexicalIgnoresFrequency(t *testing.T) {
	counts := Count("apple apple apple zebra mango mango")
	ranked := Rank(counts, OrderLexical)

	got := Text(ranked)
	if got != "zebra mango apple " {
		t.Errorf("expected 'zebra mango apple ', got %q", got)
	}
	if ranked[2].Count != 3 {
		t.Errorf("expected apple count 3, got %d", ranked[2].Count)
	}
}

func TestFrequencyOrder(t *testing.T) {
	counts := Count("apple apple apple zebra mango mango kiwi")
	got := Text(Rank(counts, OrderFrequency))
	if got != "apple mango zebra kiwi " {
		t.Errorf("expected 'apple mango zebra kiwi ', got %q", got)
	}
}

func TestRankDistinctAndStrictlyDescending(t *testing.T) {
	inputs := []string{
		"b a c a b d e e e f",
		"wonderful love amazing love love",
		"über zoo apple Zoo éclair",
		"",
	}
	for _, in := range inputs {
		ranked := Rank(Count(in), OrderLexical)

		seen := make(map[string]bool)
		for i, f := range ranked {
			if seen[f.Word] {
				t.Errorf("duplicate word %q for input %q", f.Word, in)
			}
			seen[f.Word] = true
			if i > 0 && !(ranked[i-1].Word > f.Word) {
				t.Errorf("not strictly descending at %d for %q: %q then %q", i, in, ranked[i-1].Word, f.Word)
			}
		}
		if len(seen) != len(Count(in)) {
			t.Errorf("expected every distinct word once for %q", in)
		}
	}
}

func TestRankDoesNotMutateCounts(t *testing.T) {
	counts := Count("one two two three three three")
	Rank(counts, OrderLexical)
	Rank(counts, OrderFrequency)

	if len(counts) != 3 || counts["three"] != 3 || counts["one"] != 1 {
		t.Errorf("counts were modified: %v", counts)
	}
}

func TestCountIsCaseSensitive(t *testing.T) {
	counts := Count("Go go GO go")
	if counts["go"] != 2 || counts["Go"] != 1 || counts["GO"] != 1 {
		t.Errorf("unexpected counts %v", counts)
	}
}

func TestEmptyText(t *testing.T) {
	text, ranked := NewRanker("").Extract("")
	if text != "" || len(ranked) != 0 {
		t.Errorf("expected empty output, got %q %v", text, ranked)
	}
}

func TestParseOrder(t *testing.T) {
	cases := map[string]Order{
		"":           OrderLexical,
		"lexical":    OrderLexical,
		" Frequency": OrderFrequency,
	}
	for in, want := range cases {
		got, err := ParseOrder(in)
		if err != nil {
			t.Fatalf("ParseOrder(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("ParseOrder(%q) = %q, want %q", in, got, want)
		}
	}
	if _, err := ParseOrder("random"); err == nil || !strings.Contains(err.Error(), "random") {
		t.Errorf("expected error naming the bad value, got %v", err)
	}
}

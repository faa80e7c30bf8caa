// Package sentiment computes a local VADER polarity score for raw input,
// recorded next to the remote classification.
package sentiment

import (
	"html"
	"regexp"
	"strings"

	"github.com/jonreiter/govader"
	"github.com/russross/blackfriday/v2"
)

const (
	Positive = "positive"
	Negative = "negative"
	Neutral  = "neutral"
)

// Label thresholds on the compound score.
const (
	PositiveThreshold = 0.20
	NegativeThreshold = -0.20
)

var (
	analyzer    = govader.NewSentimentIntensityAnalyzer()
	linkPattern = regexp.MustCompile(`\[(.*?)\]\((https?://[^\s)]+)\)`)
	urlPattern  = regexp.MustCompile(`https?://\S+|www\.\S+`)
)

// Score is a VADER compound score in [-1, 1] with its label.
type Score struct {
	Compound float64 `json:"compound"`
	Label    string  `json:"label"`
}

// Analyze scores text. Markdown markup and links are removed first.
func Analyze(text string) Score {
	plain := PlainText(text)
	if plain == "" {
		return Score{Label: Neutral}
	}
	compound := analyzer.PolarityScores(plain).Compound
	return Score{Compound: compound, Label: LabelFor(compound)}
}

// LabelFor maps a compound score onto positive, negative or neutral.
func LabelFor(compound float64) string {
	switch {
	case compound >= PositiveThreshold:
		return Positive
	case compound <= NegativeThreshold:
		return Negative
	default:
		return Neutral
	}
}

// PlainText renders markdown to HTML, strips the tags and links, and
// collapses whitespace.
func PlainText(input string) string {
	input = linkPattern.ReplaceAllString(input, "$1")
	out := blackfriday.Run([]byte(input), blackfriday.WithNoExtensions())
	s := html.UnescapeString(stripTags(string(out)))
	s = urlPattern.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}

func stripTags(text string) string {
	var result strings.Builder
	inTag := false
	for _, r := range text {
		switch {
		case r == '<':
			inTag = true
			result.WriteRune(' ')
		case r == '>':
			inTag = false
		case !inTag:
			result.WriteRune(r)
		}
	}
	return result.String()
}

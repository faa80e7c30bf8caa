package compose

import "strings"

// SentimentSuffix is appended to the ranked feature text to ask for the
// writer's sentiment and emotions.
const SentimentSuffix = "\nWhat is the sentiment of the above text, give a list of emotions that the writer is expressing"

// Composer builds the classification prompt from ranked feature text.
type Composer struct {
	suffix string
}

// NewComposer creates a composer. An empty suffix selects SentimentSuffix.
func NewComposer(suffix string) *Composer {
	if strings.TrimSpace(suffix) == "" {
		suffix = SentimentSuffix
	}
	return &Composer{suffix: suffix}
}

// Compose returns featureText followed by the instruction suffix.
func (c *Composer) Compose(featureText string) string {
	return featureText + c.suffix
}

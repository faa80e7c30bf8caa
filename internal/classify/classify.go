// Package classify sends composed prompts to a text-completion provider and
// turns every failure into an absent result.
package classify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"

	"golang.org/x/time/rate"

	"github.com/TobiSchelling/sentiscope/internal/llm"
)

// Cache stores classification results keyed by CacheKey.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string)
}

// Client classifies prompts through a provider.
type Client struct {
	provider  llm.Provider
	model     string
	maxTokens int
	cache     Cache
	limiter   *rate.Limiter
}

// NewClient creates a Client. cache may be nil.
func NewClient(provider llm.Provider, model string, maxTokens int, cache Cache) *Client {
	if maxTokens <= 0 {
		maxTokens = 100
	}
	return &Client{provider: provider, model: model, maxTokens: maxTokens, cache: cache}
}

// WithRateLimit limits provider calls to rps requests per second. Cache
// hits are not limited. rps <= 0 disables the limit.
func (c *Client) WithRateLimit(rps float64) *Client {
	if rps > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	} else {
		c.limiter = nil
	}
	return c
}

// Provider returns the name of the underlying provider, or "none".
func (c *Client) Provider() string {
	if c == nil || c.provider == nil {
		return "none"
	}
	return c.provider.Name()
}

// Classify returns the provider's first completion trimmed of surrounding
// whitespace. It never fails: errors and cancellation are logged and
// reported as ok=false. An empty completion is a result, not a failure.
func (c *Client) Classify(ctx context.Context, prompt string) (string, bool) {
	if c == nil || c.provider == nil {
		slog.Error("[Classify] No provider configured")
		return "", false
	}

	key := CacheKey(c.model, prompt)
	if c.cache != nil {
		if cached, ok := c.cache.Get(ctx, key); ok {
			slog.Debug("[Classify] Cache hit", slog.String("key", key[:12]))
			return cached, true
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			slog.Error("[Classify] Rate limiter wait aborted",
				slog.String("provider", c.provider.Name()),
				slog.Any("error", err))
			return "", false
		}
	}

	text, err := c.provider.Generate(ctx, prompt, c.maxTokens)
	if err != nil {
		slog.Error("[Classify] Request failed",
			slog.String("provider", c.provider.Name()),
			slog.Any("error", err))
		return "", false
	}

	text = strings.TrimSpace(text)
	if text == "" {
		slog.Warn("[Classify] Empty completion", slog.String("provider", c.provider.Name()))
		return "", true
	}

	if c.cache != nil {
		c.cache.Set(ctx, key, text)
	}
	return text, true
}

// CacheKey identifies a prompt sent to a given model.
func CacheKey(model, prompt string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + prompt))
	return "sentiscope:classify:" + hex.EncodeToString(sum[:])
}

// ParseEmotions splits a classification into individual emotion labels.
// Markdown code fences are stripped; items may be separated by commas,
// semicolons, newlines or list bullets.
func ParseEmotions(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	// Strip markdown code fences
	if strings.HasPrefix(text, "```") {
		lines := strings.Split(text, "\n")
		endIdx := len(lines)
		for i := len(lines) - 1; i > 0; i-- {
			if strings.TrimSpace(lines[i]) == "```" {
				endIdx = i
				break
			}
		}
		text = strings.Join(lines[1:endIdx], "\n")
	}

	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n'
	})

	var out []string
	seen := make(map[string]bool)
	for _, p := range parts {
		// "Emotions: joy" keeps only the value.
		if i := strings.LastIndex(p, ":"); i >= 0 {
			p = p[i+1:]
		}
		p = strings.TrimSpace(p)
		p = strings.TrimLeft(p, "-*•0123456789.) ")
		p = strings.TrimRight(p, ". ")
		p = strings.TrimPrefix(p, "and ")
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		k := strings.ToLower(p)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, p)
	}
	return out
}

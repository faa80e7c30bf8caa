package classify

import (
	"context"
	"log/slog"

	"github.com/TobiSchelling/sentiscope/internal/cache"
	"github.com/TobiSchelling/sentiscope/internal/config"
	"github.com/TobiSchelling/sentiscope/internal/llm"
)

// FromConfig builds a Client from configuration. A missing provider is not
// fatal: the returned Client then reports every classification as absent.
// The returned close function releases the cache connection, if any.
func FromConfig(ctx context.Context, cfg *config.Config) (*Client, func()) {
	cl := cfg.Classifier
	provider, err := llm.CreateProvider(llm.Options{
		Provider:    cl.Provider,
		API:         cl.API,
		Model:       cl.Model,
		BaseURL:     cl.BaseURL,
		APIKey:      cl.APIKey(),
		OllamaURL:   cl.OllamaURL,
		OllamaModel: cl.OllamaModel,
		Temperature: cl.Temperature,
		Timeout:     cl.Timeout,
	})
	if err != nil {
		slog.Warn("[Classify] Classification disabled", slog.Any("error", err))
	}

	model := cl.Model
	if provider != nil && provider.Name() == "ollama" {
		model = cl.OllamaModel
	}

	closeFn := func() {}
	var c Cache
	if cfg.Cache.ValkeyAddr != "" {
		vc, err := cache.New(ctx, cfg.Cache.ValkeyAddr, cfg.Cache.ValkeyPassword, cfg.Cache.TTL)
		if err != nil {
			slog.Warn("[Classify] Cache unavailable, continuing without it", slog.Any("error", err))
		} else {
			c = vc
			closeFn = vc.Close
		}
	}

	return NewClient(provider, model, cl.MaxTokens, c).WithRateLimit(cl.RequestsPerSecond), closeFn
}

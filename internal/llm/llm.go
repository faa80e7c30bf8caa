package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Provider is the interface for text-completion providers.
type Provider interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
	IsConfigured() bool
	Name() string
}

// API selects which OpenAI endpoint serves completions.
const (
	APICompletions = "completions"
	APIChat        = "chat"
)

// ErrNoProvider is returned when no configured provider is reachable.
var ErrNoProvider = errors.New("no LLM provider available")

// Options configures provider construction.
type Options struct {
	Provider    string
	API         string
	Model       string
	BaseURL     string
	APIKey      string
	OllamaURL   string
	OllamaModel string
	Temperature float32
	Timeout     time.Duration
}

// OllamaProvider is a local Ollama provider using the generate endpoint.
type OllamaProvider struct {
	Model       string
	BaseURL     string
	Temperature float32
	client      *http.Client
}

// NewOllamaProvider creates a new Ollama provider.
func NewOllamaProvider(model, baseURL string, temperature float32, timeout time.Duration) *OllamaProvider {
	return &OllamaProvider{
		Model:       model,
		BaseURL:     strings.TrimRight(baseURL, "/"),
		Temperature: temperature,
		client:      &http.Client{Timeout: timeout},
	}
}

// Name identifies the provider in logs.
func (o *OllamaProvider) Name() string {
	return "ollama"
}

// IsConfigured checks if Ollama is running and the model is available.
func (o *OllamaProvider) IsConfigured() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.BaseURL+"/api/tags", nil)
	if err != nil {
		return false
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	var result struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false
	}

	modelBase := strings.SplitN(o.Model, ":", 2)[0]
	for _, m := range result.Models {
		if strings.Contains(m.Name, modelBase) {
			return true
		}
	}
	slog.Warn("[Ollama] Model not found", slog.String("model", o.Model))
	return false
}

// Generate sends a prompt to Ollama and returns the raw completion.
func (o *OllamaProvider) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	body := map[string]any{
		"model":  o.Model,
		"prompt": prompt,
		"stream": false,
		"options": map[string]any{
			"num_predict": maxTokens,
			"temperature": o.Temperature,
		},
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.BaseURL+"/api/generate", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama API returned %d: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	return result.Response, nil
}

// OpenAIProvider talks to the OpenAI API, or any compatible endpoint.
type OpenAIProvider struct {
	Model       string
	API         string
	Temperature float32
	client      *openai.Client
}

// NewOpenAIProvider creates a new OpenAI provider. The API key is required.
func NewOpenAIProvider(opts Options) (*OpenAIProvider, error) {
	if opts.APIKey == "" {
		return nil, errors.New("openai: API key is required")
	}

	config := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		config.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	config.HTTPClient = &http.Client{Timeout: opts.Timeout}

	api := opts.API
	if api == "" {
		api = APICompletions
	}
	if api != APICompletions && api != APIChat {
		return nil, fmt.Errorf("openai: unknown api %q (want %s or %s)", api, APICompletions, APIChat)
	}

	return &OpenAIProvider{
		Model:       opts.Model,
		API:         api,
		Temperature: opts.Temperature,
		client:      openai.NewClientWithConfig(config),
	}, nil
}

// Name identifies the provider in logs.
func (o *OpenAIProvider) Name() string {
	return "openai"
}

// IsConfigured reports whether the client was built; the key is checked at
// construction.
func (o *OpenAIProvider) IsConfigured() bool {
	return o.client != nil
}

// Generate sends a prompt to OpenAI and returns the first choice's text.
func (o *OpenAIProvider) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if o.API == APIChat {
		resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: o.Model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
			MaxTokens:   maxTokens,
			Temperature: o.Temperature,
		})
		if err != nil {
			return "", fmt.Errorf("OpenAI chat completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", errors.New("no choices in OpenAI response")
		}
		return resp.Choices[0].Message.Content, nil
	}

	resp, err := o.client.CreateCompletion(ctx, openai.CompletionRequest{
		Model:       o.Model,
		Prompt:      prompt,
		MaxTokens:   maxTokens,
		Temperature: o.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices in OpenAI response")
	}
	return resp.Choices[0].Text, nil
}

// CreateProvider creates a provider based on configuration. Ollama falls
// back to OpenAI when the local server or model is unavailable.
func CreateProvider(opts Options) (Provider, error) {
	if strings.ToLower(opts.Provider) == "ollama" {
		p := NewOllamaProvider(opts.OllamaModel, opts.OllamaURL, opts.Temperature, opts.Timeout)
		if p.IsConfigured() {
			slog.Info("[LLM] Using Ollama", slog.String("model", opts.OllamaModel))
			return p, nil
		}
		slog.Warn("[LLM] Ollama not available, trying OpenAI fallback")
	}

	p, err := NewOpenAIProvider(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoProvider, err)
	}
	slog.Info("[LLM] Using OpenAI", slog.String("model", opts.Model), slog.String("api", p.API))
	return p, nil
}

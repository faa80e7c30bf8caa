package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

func newOpenAIServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAICompletion(t *testing.T) {
	var got map[string]any
	srv := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("missing bearer token, got %q", r.Header.Get("Authorization"))
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"cmpl-1","object":"text_completion","choices":[{"text":"\n\nJoy, Love\n","index":0}]}`))
	})

	p, err := NewOpenAIProvider(Options{
		APIKey:      "sk-test",
		BaseURL:     srv.URL + "/v1",
		Model:       "gpt-3.5-turbo-instruct",
		Temperature: 0.5,
		Timeout:     5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewOpenAIProvider: %v", err)
	}

	out, err := p.Generate(context.Background(), "wonderful love amazing ", 100)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != "\n\nJoy, Love\n" {
		t.Errorf("expected raw choice text, got %q", out)
	}
	if got["prompt"] != "wonderful love amazing " {
		t.Errorf("expected prompt in payload, got %v", got["prompt"])
	}
	if got["max_tokens"] != float64(100) {
		t.Errorf("expected max_tokens 100, got %v", got["max_tokens"])
	}
	if got["temperature"] != float64(0.5) {
		t.Errorf("expected temperature 0.5, got %v", got["temperature"])
	}
}

func TestOpenAIChat(t *testing.T) {
	srv := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"Positive: joy"}}]}`))
	})

	p, err := NewOpenAIProvider(Options{APIKey: "sk-test", BaseURL: srv.URL + "/v1", Model: "gpt-4o-mini", API: APIChat})
	if err != nil {
		t.Fatalf("NewOpenAIProvider: %v", err)
	}
	out, err := p.Generate(context.Background(), "prompt", 100)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != "Positive: joy" {
		t.Errorf("unexpected output %q", out)
	}
}

func TestOpenAIErrorStatus(t *testing.T) {
	srv := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	})

	p, _ := NewOpenAIProvider(Options{APIKey: "sk-bad", BaseURL: srv.URL + "/v1", Model: "gpt-3.5-turbo-instruct"})
	_, err := p.Generate(context.Background(), "prompt", 100)
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *openai.APIError
	if !errors.As(err, &apiErr) || apiErr.HTTPStatusCode != http.StatusUnauthorized {
		t.Errorf("expected wrapped 401 APIError, got %v", err)
	}
}

func TestOpenAINoChoices(t *testing.T) {
	srv := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[]}`))
	})

	p, _ := NewOpenAIProvider(Options{APIKey: "sk-test", BaseURL: srv.URL + "/v1", Model: "gpt-3.5-turbo-instruct"})
	if _, err := p.Generate(context.Background(), "prompt", 100); err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestOpenAIRequiresKey(t *testing.T) {
	if _, err := NewOpenAIProvider(Options{Model: "gpt-3.5-turbo-instruct"}); err == nil {
		t.Fatal("expected error without API key")
	}
	if _, err := NewOpenAIProvider(Options{APIKey: "k", API: "edits"}); err == nil {
		t.Fatal("expected error for unknown api")
	}
}

func TestOllamaGenerate(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"model":"qwen2.5:7b","response":" Sadness, regret ","done":true}`))
	}))
	defer srv.Close()

	p := NewOllamaProvider("qwen2.5:7b", srv.URL+"/", 0.5, 5*time.Second)
	out, err := p.Generate(context.Background(), "prompt", 100)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != " Sadness, regret " {
		t.Errorf("unexpected output %q", out)
	}
	if got["stream"] != false {
		t.Errorf("expected stream=false, got %v", got["stream"])
	}
	opts, _ := got["options"].(map[string]any)
	if opts["num_predict"] != float64(100) {
		t.Errorf("expected num_predict 100, got %v", opts["num_predict"])
	}
}

func TestOllamaErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewOllamaProvider("qwen2.5:7b", srv.URL, 0.5, time.Second)
	_, err := p.Generate(context.Background(), "prompt", 100)
	if err == nil || !strings.Contains(err.Error(), "500") {
		t.Errorf("expected 500 error, got %v", err)
	}
}

func TestOllamaIsConfigured(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"models":[{"name":"qwen2.5:7b"},{"name":"llama3:8b"}]}`))
	}))
	defer srv.Close()

	if !NewOllamaProvider("qwen2.5:7b", srv.URL, 0.5, time.Second).IsConfigured() {
		t.Error("expected qwen2.5 to be available")
	}
	if NewOllamaProvider("mistral", srv.URL, 0.5, time.Second).IsConfigured() {
		t.Error("expected mistral to be unavailable")
	}
}

func TestCreateProviderFallsBackToOpenAI(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()

	p, err := CreateProvider(Options{
		Provider:    "ollama",
		OllamaURL:   down.URL,
		OllamaModel: "qwen2.5:7b",
		APIKey:      "sk-test",
		Model:       "gpt-3.5-turbo-instruct",
	})
	if err != nil {
		t.Fatalf("CreateProvider: %v", err)
	}
	if p.Name() != "openai" {
		t.Errorf("expected openai fallback, got %s", p.Name())
	}
}

func TestCreateProviderWithoutKey(t *testing.T) {
	_, err := CreateProvider(Options{Provider: "openai", Model: "gpt-3.5-turbo-instruct"})
	if !errors.Is(err, ErrNoProvider) {
		t.Errorf("expected ErrNoProvider, got %v", err)
	}
}

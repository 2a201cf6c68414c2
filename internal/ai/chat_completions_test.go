package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestChatCompletionsClientGenerateSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"not_found"}`))
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"model":"gpt-4o-mini",
			"choices":[{"message":{"role":"assistant","content":"эй пи ай"}}],
			"usage":{"prompt_tokens":123,"completion_tokens":22,"total_tokens":145}
		}`))
	}))
	defer server.Close()

	client := NewChatCompletionsClient(ChatCompletionsConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Timeout: 2 * time.Second,
	})

	result, err := client.Generate(context.Background(), GenerateRequest{
		Model:        "gpt-4o-mini",
		Instructions: "Transliterate",
		Input:        "API",
		Temperature:  0.1,
	})
	if err != nil {
		t.Fatalf("expected success, got err=%v", err)
	}
	if result.Text != "эй пи ай" {
		t.Fatalf("unexpected text %q", result.Text)
	}
	if result.Usage.TotalTokens != 145 {
		t.Fatalf("expected total tokens 145, got %d", result.Usage.TotalTokens)
	}
}

func TestChatCompletionsClientSendsSystemMessageAndTopP(t *testing.T) {
	var payload struct {
		Messages []map[string]string `json:"messages"`
		TopP     float64             `json:"top_p"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ок"}}]}`))
	}))
	defer server.Close()

	client := NewChatCompletionsClient(ChatCompletionsConfig{APIKey: "k", BaseURL: server.URL})
	result, err := client.Generate(context.Background(), GenerateRequest{
		Model:        "m",
		Instructions: "system prompt",
		Input:        "text",
		TopP:         0.9,
	})
	if err != nil {
		t.Fatalf("expected success, got err=%v", err)
	}
	if result.ModelID != "m" {
		t.Fatalf("expected requested model as fallback id, got %q", result.ModelID)
	}
	if len(payload.Messages) != 2 || payload.Messages[0]["role"] != "system" || payload.Messages[1]["content"] != "text" {
		t.Fatalf("unexpected messages %#v", payload.Messages)
	}
	if payload.TopP != 0.9 {
		t.Fatalf("expected top_p 0.9, got %v", payload.TopP)
	}
}

func TestChatCompletionsClientReturnsProviderErrorOnStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"rate_limited"}`))
	}))
	defer server.Close()

	client := NewChatCompletionsClient(ChatCompletionsConfig{APIKey: "k", BaseURL: server.URL, Timeout: 2 * time.Second})
	_, err := client.Generate(context.Background(), GenerateRequest{Model: "m", Input: "x"})

	var providerErr *ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if providerErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", providerErr.StatusCode)
	}
	if IsTimeout(err) {
		t.Fatalf("429 is not a timeout")
	}
}

func TestChatCompletionsClientTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewChatCompletionsClient(ChatCompletionsConfig{APIKey: "k", BaseURL: server.URL, Timeout: 50 * time.Millisecond})
	_, err := client.Generate(context.Background(), GenerateRequest{Model: "m", Input: "x"})
	if !IsTimeout(err) {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestChatCompletionsClientParsesArrayContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"model":"openai/gpt-4o-mini",
			"choices":[{"message":{"role":"assistant","content":[{"type":"text","text":"строка 1"},{"type":"text","text":"строка 2"}]}}],
			"usage":{"prompt_tokens":5,"completion_tokens":5,"total_tokens":10}
		}`))
	}))
	defer server.Close()

	client := NewChatCompletionsClient(ChatCompletionsConfig{APIKey: "k", BaseURL: server.URL})
	result, err := client.Generate(context.Background(), GenerateRequest{Model: "m", Input: "x"})
	if err != nil {
		t.Fatalf("expected success, got err=%v", err)
	}
	if got := result.Text; got != "строка 1\nстрока 2" {
		t.Fatalf("unexpected parsed text: %q", got)
	}
}

func TestChatCompletionsClientUnavailableWithoutKey(t *testing.T) {
	client := NewChatCompletionsClient(ChatCompletionsConfig{})
	_, err := client.Generate(context.Background(), GenerateRequest{Model: "m", Input: "x"})
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestOpenRouterSendsOptionalHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("HTTP-Referer") != "https://example.com" || r.Header.Get("X-Title") != "Telegram Voice Bot" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ок"}}]}`))
	}))
	defer server.Close()

	generator, err := NewTextGenerator(ProviderConfig{
		Provider: ProviderOpenRouter,
		APIKey:   "k",
		BaseURL:  server.URL,
		SiteURL:  "https://example.com",
	})
	if err != nil {
		t.Fatalf("build generator: %v", err)
	}
	if _, err := generator.Generate(context.Background(), GenerateRequest{Model: "m", Input: "x"}); err != nil {
		t.Fatalf("expected success with optional headers, got err=%v", err)
	}
}

func TestNewTextGeneratorRejectsUnknownProvider(t *testing.T) {
	if _, err := NewTextGenerator(ProviderConfig{Provider: "carrier-pigeon"}); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
	generator, err := NewTextGenerator(ProviderConfig{Provider: ProviderGemini})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if generator.Available() {
		t.Fatalf("gemini without key must be unavailable")
	}
}

package ai

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestAnthropicClientGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/v1/messages") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get("X-Api-Key") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id":"msg_1","type":"message","role":"assistant","model":"claude-test",
			"content":[{"type":"text","text":"эй пи ай"}],
			"stop_reason":"end_turn","stop_sequence":null,
			"usage":{"input_tokens":7,"output_tokens":3}
		}`))
	}))
	defer server.Close()

	client := NewAnthropicClient(AnthropicConfig{APIKey: "test-key", BaseURL: server.URL, Timeout: 2 * time.Second})
	result, err := client.Generate(context.Background(), GenerateRequest{
		Model:        "claude-test",
		Instructions: "system",
		Input:        "API",
	})
	if err != nil {
		t.Fatalf("expected success, got err=%v", err)
	}
	if result.Text != "эй пи ай" {
		t.Fatalf("unexpected text %q", result.Text)
	}
	if result.Usage.TotalTokens != 10 {
		t.Fatalf("expected 10 tokens, got %d", result.Usage.TotalTokens)
	}
}

func TestAnthropicClientMapsStatusErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"api_error","message":"boom"}}`))
	}))
	defer server.Close()

	client := NewAnthropicClient(AnthropicConfig{APIKey: "k", BaseURL: server.URL, Timeout: 2 * time.Second})
	_, err := client.Generate(context.Background(), GenerateRequest{Model: "m", Input: "x"})

	var providerErr *ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if providerErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", providerErr.StatusCode)
	}
}

func TestAnthropicClientUnavailableWithoutKey(t *testing.T) {
	client := NewAnthropicClient(AnthropicConfig{})
	if client.Available() {
		t.Fatalf("expected unavailable client")
	}
	if _, err := client.Generate(context.Background(), GenerateRequest{Model: "m", Input: "x"}); !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

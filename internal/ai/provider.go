package ai

import (
	"fmt"
	"strings"
	"time"
)

const (
	ProviderOpenAI     = "openai"
	ProviderOpenRouter = "openrouter"
	ProviderAnthropic  = "anthropic"
	ProviderGemini     = "gemini"
)

type ProviderConfig struct {
	Provider string
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
	SiteURL  string
	AppName  string
}

// NewTextGenerator builds the client for the configured provider.
func NewTextGenerator(config ProviderConfig) (TextGenerator, error) {
	provider := strings.ToLower(strings.TrimSpace(config.Provider))
	switch provider {
	case "", ProviderOpenAI:
		return NewChatCompletionsClient(ChatCompletionsConfig{
			Provider: ProviderOpenAI,
			APIKey:   config.APIKey,
			BaseURL:  config.BaseURL,
			Timeout:  config.Timeout,
		}), nil
	case ProviderOpenRouter:
		baseURL := config.BaseURL
		if strings.TrimSpace(baseURL) == "" {
			baseURL = "https://openrouter.ai/api/v1"
		}
		appName := config.AppName
		if strings.TrimSpace(appName) == "" {
			appName = "Telegram Voice Bot"
		}
		return NewChatCompletionsClient(ChatCompletionsConfig{
			Provider: ProviderOpenRouter,
			APIKey:   config.APIKey,
			BaseURL:  baseURL,
			Timeout:  config.Timeout,
			SiteURL:  config.SiteURL,
			AppName:  appName,
		}), nil
	case ProviderAnthropic:
		return NewAnthropicClient(AnthropicConfig{
			APIKey:  config.APIKey,
			BaseURL: config.BaseURL,
			Timeout: config.Timeout,
		}), nil
	case ProviderGemini:
		return NewGeminiClient(GeminiConfig{
			APIKey:  config.APIKey,
			Timeout: config.Timeout,
		}), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", config.Provider)
	}
}

package ai

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"
)

type GeminiConfig struct {
	APIKey  string
	Timeout time.Duration
}

// GeminiClient talks to the Gemini API. The SDK client is created on first
// use because construction needs a context.
type GeminiClient struct {
	apiKey  string
	timeout time.Duration

	once    sync.Once
	client  *genai.Client
	initErr error
}

func NewGeminiClient(config GeminiConfig) *GeminiClient {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &GeminiClient{
		apiKey:  strings.TrimSpace(config.APIKey),
		timeout: config.Timeout,
	}
}

func (c *GeminiClient) Available() bool {
	return c.apiKey != ""
}

func (c *GeminiClient) sdk(ctx context.Context) (*genai.Client, error) {
	c.once.Do(func() {
		c.client, c.initErr = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  c.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
	})
	return c.client, c.initErr
}

func (c *GeminiClient) Generate(ctx context.Context, request GenerateRequest) (GenerateResult, error) {
	if !c.Available() {
		return GenerateResult{}, ErrProviderUnavailable
	}
	if err := validateRequest(request); err != nil {
		return GenerateResult{}, err
	}
	client, err := c.sdk(ctx)
	if err != nil {
		return GenerateResult{}, &ProviderError{Provider: "gemini", Message: "client init failed", Err: err}
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(request.Temperature)),
	}
	if request.TopP > 0 {
		config.TopP = genai.Ptr(float32(request.TopP))
	}
	if instructions := strings.TrimSpace(request.Instructions); instructions != "" {
		config.SystemInstruction = genai.NewContentFromText(instructions, genai.RoleUser)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := client.Models.GenerateContent(
		timeoutCtx,
		request.Model,
		[]*genai.Content{genai.NewContentFromText(request.Input, genai.RoleUser)},
		config,
	)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return GenerateResult{}, &ProviderError{Provider: "gemini", StatusCode: apiErr.Code, Message: truncateMessage(apiErr.Message, 700), Err: err}
		}
		timedOut := errors.Is(err, context.DeadlineExceeded) || errors.Is(timeoutCtx.Err(), context.DeadlineExceeded)
		return GenerateResult{}, &ProviderError{Provider: "gemini", Timeout: timedOut, Err: err}
	}

	fragments := make([]string, 0, 1)
	if resp != nil {
		for _, candidate := range resp.Candidates {
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				if part != nil && strings.TrimSpace(part.Text) != "" {
					fragments = append(fragments, strings.TrimSpace(part.Text))
				}
			}
			if len(fragments) > 0 {
				break
			}
		}
	}
	text := strings.Join(fragments, "\n")
	if text == "" {
		return GenerateResult{}, &ProviderError{Provider: "gemini", Message: "response without text output"}
	}

	result := GenerateResult{Text: text, ModelID: firstNonEmpty(resp.ModelVersion, request.Model)}
	if usage := resp.UsageMetadata; usage != nil {
		result.Usage = TokenUsage{
			InputTokens:  int(usage.PromptTokenCount),
			OutputTokens: int(usage.CandidatesTokenCount),
			TotalTokens:  int(usage.TotalTokenCount),
		}
	}
	return result, nil
}

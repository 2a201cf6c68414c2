package ai

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

type AnthropicConfig struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	MaxTokens  int
	HTTPClient *http.Client
}

// AnthropicClient calls the Messages API. The SDK's own retries are disabled
// so the caller's retry budget is the only one.
type AnthropicClient struct {
	client    anthropic.Client
	available bool
	timeout   time.Duration
	maxTokens int
}

func NewAnthropicClient(config AnthropicConfig) *AnthropicClient {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = 4096
	}

	apiKey := strings.TrimSpace(config.APIKey)
	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if strings.TrimSpace(config.BaseURL) != "" {
		options = append(options, option.WithBaseURL(config.BaseURL))
	}
	if config.HTTPClient != nil {
		options = append(options, option.WithHTTPClient(config.HTTPClient))
	}

	return &AnthropicClient{
		client:    anthropic.NewClient(options...),
		available: apiKey != "",
		timeout:   config.Timeout,
		maxTokens: config.MaxTokens,
	}
}

func (c *AnthropicClient) Available() bool {
	return c.available
}

func (c *AnthropicClient) Generate(ctx context.Context, request GenerateRequest) (GenerateResult, error) {
	if !c.available {
		return GenerateResult{}, ErrProviderUnavailable
	}
	if err := validateRequest(request); err != nil {
		return GenerateResult{}, err
	}

	maxTokens := request.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(request.Model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(request.Input)),
		},
		Temperature: anthropic.Float(request.Temperature),
	}
	if request.TopP > 0 {
		params.TopP = anthropic.Float(request.TopP)
	}
	if instructions := strings.TrimSpace(request.Instructions); instructions != "" {
		params.System = []anthropic.TextBlockParam{{Text: instructions}}
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.Messages.New(timeoutCtx, params)
	if err != nil {
		return GenerateResult{}, anthropicError(err, timeoutCtx)
	}

	fragments := make([]string, 0, len(resp.Content))
	for _, block := range resp.Content {
		if block.Type == "text" && strings.TrimSpace(block.Text) != "" {
			fragments = append(fragments, strings.TrimSpace(block.Text))
		}
	}
	text := strings.Join(fragments, "\n")
	if text == "" {
		return GenerateResult{}, &ProviderError{Provider: "anthropic", Message: "response without text output"}
	}

	input := int(resp.Usage.InputTokens)
	output := int(resp.Usage.OutputTokens)
	return GenerateResult{
		Text:    text,
		ModelID: firstNonEmpty(string(resp.Model), request.Model),
		Usage:   TokenUsage{InputTokens: input, OutputTokens: output, TotalTokens: input + output},
	}, nil
}

func anthropicError(err error, ctx context.Context) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return &ProviderError{
			Provider:   "anthropic",
			StatusCode: apiErr.StatusCode,
			Message:    truncateMessage(apiErr.Error(), 700),
			Err:        err,
		}
	}
	timedOut := errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)
	return &ProviderError{Provider: "anthropic", Timeout: timedOut, Err: err}
}

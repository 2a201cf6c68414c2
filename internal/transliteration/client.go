package transliteration

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/iago/telegram-voice-bot/internal/ai"
	"github.com/iago/telegram-voice-bot/internal/cache"
	"github.com/iago/telegram-voice-bot/internal/chunking"
)

type Config struct {
	Model       string
	Temperature float64
	TopP        float64
	MaxTokens   int
	// Timeout bounds a single attempt.
	Timeout           time.Duration
	MaxRetries        int
	BackoffBase       time.Duration
	SystemPrompt      string
	CacheSystemPrompt bool
	RequestsPerSecond float64
	Burst             int
}

// ChunkResult is the outcome for one chunk. Text is the original chunk text
// when Err is set.
type ChunkResult struct {
	Text     string
	Err      error
	Attempts int
	Cached   bool
}

type Client struct {
	generator ai.TextGenerator
	store     cache.Store
	limiter   *rate.Limiter
	logger    *log.Logger

	model             string
	temperature       float64
	topP              float64
	maxTokens         int
	timeout           time.Duration
	maxRetries        int
	backoffBase       time.Duration
	systemPrompt      string
	cacheSystemPrompt bool
	promptVersion     string

	jitter func() float64
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewClient wires a generator into the retrying transliteration client.
// store may be nil to disable result caching.
func NewClient(generator ai.TextGenerator, store cache.Store, logger *log.Logger, cfg Config) *Client {
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = time.Second
	}
	if strings.TrimSpace(cfg.SystemPrompt) == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		if cfg.Burst <= 0 {
			cfg.Burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
	}

	return &Client{
		generator:         generator,
		store:             store,
		limiter:           limiter,
		logger:            logger,
		model:             cfg.Model,
		temperature:       cfg.Temperature,
		topP:              cfg.TopP,
		maxTokens:         cfg.MaxTokens,
		timeout:           cfg.Timeout,
		maxRetries:        cfg.MaxRetries,
		backoffBase:       cfg.BackoffBase,
		systemPrompt:      cfg.SystemPrompt,
		cacheSystemPrompt: cfg.CacheSystemPrompt,
		promptVersion:     promptVersion(cfg.SystemPrompt),
		jitter:            rand.Float64,
		sleep:             sleepContext,
	}
}

// Available reports whether the underlying provider has credentials.
func (c *Client) Available() bool {
	return c != nil && c.generator != nil && c.generator.Available()
}

func (c *Client) Transliterate(ctx context.Context, text string) (string, error) {
	result := c.transliterate(ctx, text)
	return result.Text, result.Err
}

// TransliterateChunks processes chunks one after another. A failed chunk
// keeps its original text and the failure is reported in its result.
func (c *Client) TransliterateChunks(ctx context.Context, chunks []chunking.Chunk) []ChunkResult {
	results := make([]ChunkResult, 0, len(chunks))
	for _, chunk := range chunks {
		result := c.transliterate(ctx, chunk.Text)
		if result.Err != nil {
			if c.logger != nil {
				c.logger.Error("chunk transliteration failed, keeping original text",
					"start", chunk.Start, "end", chunk.End, "attempts", result.Attempts, "err", result.Err)
			}
			result.Text = chunk.Text
		} else if c.logger != nil {
			c.logger.Debug("chunk transliterated", "start", chunk.Start, "end", chunk.End, "cached", result.Cached)
		}
		results = append(results, result)
	}
	return results
}

func (c *Client) transliterate(ctx context.Context, text string) ChunkResult {
	if !c.Available() {
		return ChunkResult{Text: text, Err: &APIError{Err: ai.ErrProviderUnavailable}}
	}

	signature := cache.BuildSignature(c.model, c.promptVersion, text)
	if c.store != nil {
		entry, found, err := c.store.Get(ctx, signature)
		if err != nil && c.logger != nil {
			c.logger.Warn("transliteration cache read failed", "err", err)
		}
		if found {
			return ChunkResult{Text: entry.Text, Cached: true}
		}
	}

	request := ai.GenerateRequest{
		Model:           c.model,
		Temperature:     c.temperature,
		TopP:            c.topP,
		MaxOutputTokens: c.maxTokens,
	}
	if c.cacheSystemPrompt {
		request.Instructions = c.systemPrompt
		request.Input = text
	} else {
		request.Input = c.systemPrompt + "\n\n" + text
	}

	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			lastErr = &APIError{Attempts: attempts, Err: err}
			break
		}
		attempts++

		output, err := c.attempt(ctx, request)
		if err == nil {
			if ValidResponse(output) {
				c.remember(ctx, signature, output)
				if c.logger != nil {
					c.logger.Debug("llm transliteration succeeded", "attempt", attempts)
				}
				return ChunkResult{Text: output, Attempts: attempts}
			}
			lastErr = &ValidationError{Attempts: attempts, Sample: sample(output)}
			if c.logger != nil {
				c.logger.Warn("llm response validation failed", "attempt", attempts)
			}
		} else {
			lastErr = classify(err, attempts)
			if c.logger != nil {
				c.logger.Warn("llm call failed", "attempt", attempts, "err", err)
			}
			if errors.Is(err, ai.ErrProviderUnavailable) {
				break
			}
		}

		if attempt == c.maxRetries || ctx.Err() != nil {
			break
		}
		if err := c.sleep(ctx, c.backoff(attempt)); err != nil {
			break
		}
	}

	if lastErr == nil {
		lastErr = &APIError{Attempts: attempts, Err: errors.New("max retries exceeded")}
	}
	return ChunkResult{Text: text, Err: lastErr, Attempts: attempts}
}

func (c *Client) attempt(ctx context.Context, request ai.GenerateRequest) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := c.generator.Generate(attemptCtx, request)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(result.Text), nil
}

func (c *Client) remember(ctx context.Context, signature, output string) {
	if c.store == nil {
		return
	}
	err := c.store.Set(ctx, signature, cache.Entry{Text: output, ModelID: c.model, PromptVersion: c.promptVersion})
	if err != nil && c.logger != nil {
		c.logger.Warn("transliteration cache write failed", "err", err)
	}
}

// backoff is base*2^attempt plus up to one base of jitter.
func (c *Client) backoff(attempt int) time.Duration {
	exp := float64(c.backoffBase) * math.Pow(2, float64(attempt))
	return time.Duration(exp + c.jitter()*float64(c.backoffBase))
}

func classify(err error, attempts int) error {
	if ai.IsTimeout(err) {
		return &TimeoutError{Attempts: attempts, Err: err}
	}
	return &APIError{Attempts: attempts, Err: err}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

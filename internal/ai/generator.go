package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrProviderUnavailable is returned by clients that were built without credentials.
var ErrProviderUnavailable = errors.New("llm provider unavailable")

type TokenUsage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

type GenerateRequest struct {
	Model           string
	Instructions    string
	Input           string
	Temperature     float64
	TopP            float64
	MaxOutputTokens int
}

type GenerateResult struct {
	Text    string
	ModelID string
	Usage   TokenUsage
}

// TextGenerator performs one model call. Retries and pacing belong to the caller.
type TextGenerator interface {
	Generate(ctx context.Context, request GenerateRequest) (GenerateResult, error)
	Available() bool
}

// ProviderError describes a failed provider call. StatusCode is zero for
// transport failures.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Timeout    bool
	Err        error
}

func (e *ProviderError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("%s timeout: %v", e.Provider, e.Err)
	case e.StatusCode > 0:
		return fmt.Sprintf("%s status %d: %s", e.Provider, e.StatusCode, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Provider, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Provider, e.Message)
	}
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsTimeout reports whether err came from a deadline, either the provider's
// own or the caller's.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	var providerErr *ProviderError
	if errors.As(err, &providerErr) && providerErr.Timeout {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func validateRequest(request GenerateRequest) error {
	if strings.TrimSpace(request.Model) == "" {
		return errors.New("model is required")
	}
	if strings.TrimSpace(request.Input) == "" {
		return errors.New("input is required")
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func truncateMessage(message string, limit int) string {
	message = strings.TrimSpace(message)
	if len(message) > limit {
		return message[:limit]
	}
	return message
}

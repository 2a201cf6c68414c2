package chunking

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// DefaultEncoding matches the tokenizer of the chat models the LLM stage talks to.
const DefaultEncoding = "cl100k_base"

type TokenCounter interface {
	Count(text string) int
}

// TiktokenCounter counts BPE tokens with the encoding files bundled in the
// binary, so it never reaches the network.
type TiktokenCounter struct {
	encoding *tiktoken.Tiktoken
}

var loaderOnce sync.Once

func NewTiktokenCounter(encoding string) (*TiktokenCounter, error) {
	if strings.TrimSpace(encoding) == "" {
		encoding = DefaultEncoding
	}
	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load tiktoken encoding %s: %w", encoding, err)
	}
	return &TiktokenCounter{encoding: enc}, nil
}

func (c *TiktokenCounter) Count(text string) int {
	return len(c.encoding.Encode(text, nil, nil))
}

// EstimateCounter approximates one token per four characters.
type EstimateCounter struct{}

func (EstimateCounter) Count(text string) int {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0
	}
	count := len([]rune(trimmed)) / 4
	if count == 0 {
		return 1
	}
	return count
}

// NewTokenCounter prefers tiktoken and degrades to the estimate when the
// encoding cannot be loaded.
func NewTokenCounter(encoding string) (TokenCounter, error) {
	counter, err := NewTiktokenCounter(encoding)
	if err != nil {
		return EstimateCounter{}, err
	}
	return counter, nil
}

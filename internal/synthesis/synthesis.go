package synthesis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const DefaultTextLimit = 2000

var ErrEmptyText = errors.New("empty text")

// Request asks an engine to voice Text, optionally preceded by Prefix, into
// OutputPath. Engines may change the extension; Result.Path is authoritative.
type Request struct {
	Text       string
	Prefix     string
	OutputPath string
}

type Result struct {
	Path            string
	DurationSeconds float64
	SynthMS         int64
	// ModelLoadMS is nil when the engine has no separate model load.
	ModelLoadMS *int64
	Format      string
	SizeBytes   int64
}

type Synthesizer interface {
	Synthesize(ctx context.Context, request Request) (Result, error)
	Name() string
}

// TextTooLongError rejects input that exceeds the engine limit.
type TextTooLongError struct {
	Length int
	Limit  int
}

func (e *TextTooLongError) Error() string {
	return fmt.Sprintf("text too long: %d > %d characters", e.Length, e.Limit)
}

// TimeoutError means the engine did not finish within Limit.
type TimeoutError struct {
	Limit time.Duration
	Err   error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("synthesis timed out after %s: %v", e.Limit, e.Err)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// AssetError means a model, binary or audio asset the engine needs is missing.
type AssetError struct {
	Path string
	Err  error
}

func (e *AssetError) Error() string {
	return fmt.Sprintf("synthesis asset unavailable %s: %v", e.Path, e.Err)
}

func (e *AssetError) Unwrap() error {
	return e.Err
}

// IOError covers failures reading engine output or writing the audio file.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("synthesis %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("synthesis %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// ComposeText joins the spoken prefix and the body as "<prefix>. <body>".
func ComposeText(prefix, text string) string {
	prefix = strings.TrimRight(strings.TrimSpace(prefix), " .")
	if prefix == "" {
		return text
	}
	return prefix + ". " + text
}

func composeAndCheck(request Request, limit int) (string, error) {
	if strings.TrimSpace(request.Text) == "" {
		return "", ErrEmptyText
	}
	full := ComposeText(request.Prefix, request.Text)
	if limit > 0 {
		if length := utf8.RuneCountInString(full); length > limit {
			return "", &TextTooLongError{Length: length, Limit: limit}
		}
	}
	return full, nil
}

func withExtension(path, ext string) string {
	if dot := strings.LastIndexByte(path, '.'); dot > strings.LastIndexByte(path, '/') {
		path = path[:dot]
	}
	return path + "." + ext
}

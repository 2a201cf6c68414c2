package synthesis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type StubConfig struct {
	AssetPath string
	TextLimit int
}

// StubSynthesizer answers every request with a fixed audio asset. It keeps
// the delivery path exercisable without a speech model.
type StubSynthesizer struct {
	assetPath string
	textLimit int
}

func NewStubSynthesizer(cfg StubConfig) *StubSynthesizer {
	if cfg.TextLimit <= 0 {
		cfg.TextLimit = DefaultTextLimit
	}
	return &StubSynthesizer{assetPath: cfg.AssetPath, textLimit: cfg.TextLimit}
}

func (s *StubSynthesizer) Name() string {
	return "stub_tts"
}

func (s *StubSynthesizer) Synthesize(ctx context.Context, request Request) (Result, error) {
	if _, err := composeAndCheck(request, s.textLimit); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	started := time.Now()

	info, err := os.Stat(s.assetPath)
	if err != nil {
		return Result{}, &AssetError{Path: s.assetPath, Err: err}
	}
	if info.IsDir() {
		return Result{}, &AssetError{Path: s.assetPath, Err: errors.New("is a directory")}
	}

	format := strings.TrimPrefix(filepath.Ext(s.assetPath), ".")
	if format == "" {
		format = "mp3"
	}
	outPath := withExtension(request.OutputPath, format)
	size, err := copyFile(s.assetPath, outPath)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Path:      outPath,
		SynthMS:   time.Since(started).Milliseconds(),
		Format:    format,
		SizeBytes: size,
	}, nil
}

func copyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, &AssetError{Path: src, Err: err}
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, &IOError{Op: "mkdir", Path: filepath.Dir(dst), Err: err}
	}
	out, err := os.Create(dst)
	if err != nil {
		return 0, &IOError{Op: "create", Path: dst, Err: err}
	}
	size, copyErr := io.Copy(out, in)
	closeErr := out.Close()
	if copyErr != nil {
		return 0, &IOError{Op: "copy", Path: dst, Err: copyErr}
	}
	if closeErr != nil {
		return 0, &IOError{Op: "close", Path: dst, Err: fmt.Errorf("flush audio: %w", closeErr)}
	}
	return size, nil
}

package synthesis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	PiperSampleRate     = 22050
	piperBytesPerSample = 2
)

type PiperConfig struct {
	BinaryPath  string
	ModelPath   string
	ConfigPath  string
	SpeakerID   int
	LengthScale float64
	SampleRate  int
	Timeout     time.Duration
	// Format is "wav" or "ogg". ogg needs FFmpegPath.
	Format     string
	FFmpegPath string
	TextLimit  int
}

// runFunc executes a binary with stdin and returns its stdout.
type runFunc func(ctx context.Context, name string, args []string, stdin io.Reader) ([]byte, error)

// PiperSynthesizer runs the piper CLI per request. It reads raw 16-bit mono
// PCM from stdout and packages it as WAV or, through ffmpeg, OGG/Opus.
type PiperSynthesizer struct {
	cfg PiperConfig
	run runFunc
}

func NewPiperSynthesizer(cfg PiperConfig) *PiperSynthesizer {
	if strings.TrimSpace(cfg.BinaryPath) == "" {
		cfg.BinaryPath = "piper"
	}
	if cfg.ConfigPath == "" && cfg.ModelPath != "" {
		candidate := cfg.ModelPath + ".json"
		if _, err := os.Stat(candidate); err == nil {
			cfg.ConfigPath = candidate
		}
	}
	if cfg.LengthScale <= 0 {
		cfg.LengthScale = 1.0
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = PiperSampleRate
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	cfg.Format = strings.ToLower(strings.TrimSpace(cfg.Format))
	if cfg.Format != "ogg" {
		cfg.Format = "wav"
	}
	if cfg.Format == "ogg" && strings.TrimSpace(cfg.FFmpegPath) == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.TextLimit <= 0 {
		cfg.TextLimit = DefaultTextLimit
	}
	return &PiperSynthesizer{cfg: cfg, run: runCommand}
}

func (p *PiperSynthesizer) Name() string {
	return "piper_tts"
}

func (p *PiperSynthesizer) Synthesize(ctx context.Context, request Request) (Result, error) {
	text, err := composeAndCheck(request, p.cfg.TextLimit)
	if err != nil {
		return Result{}, err
	}
	if err := p.checkAssets(); err != nil {
		return Result{}, err
	}

	started := time.Now()
	runCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	pcm, err := p.run(runCtx, p.cfg.BinaryPath, p.args(), strings.NewReader(text))
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return Result{}, fmt.Errorf("piper timed out after %v: %w", p.cfg.Timeout, err)
		}
		return Result{}, &IOError{Op: "run piper", Err: err}
	}
	if len(pcm) == 0 {
		return Result{}, &IOError{Op: "read piper output", Err: errors.New("no audio produced")}
	}

	outPath := withExtension(request.OutputPath, p.cfg.Format)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return Result{}, &IOError{Op: "mkdir", Path: filepath.Dir(outPath), Err: err}
	}

	switch p.cfg.Format {
	case "ogg":
		encoded, err := p.run(runCtx, p.cfg.FFmpegPath, p.ffmpegArgs(), bytes.NewReader(pcm))
		if err != nil {
			return Result{}, &IOError{Op: "encode opus", Path: outPath, Err: err}
		}
		if err := os.WriteFile(outPath, encoded, 0o644); err != nil {
			return Result{}, &IOError{Op: "write", Path: outPath, Err: err}
		}
	default:
		if err := os.WriteFile(outPath, WAV(pcm, p.cfg.SampleRate), 0o644); err != nil {
			return Result{}, &IOError{Op: "write", Path: outPath, Err: err}
		}
	}

	info, err := os.Stat(outPath)
	if err != nil {
		return Result{}, &IOError{Op: "stat", Path: outPath, Err: err}
	}
	return Result{
		Path:            outPath,
		DurationSeconds: PCMDuration(len(pcm), p.cfg.SampleRate),
		SynthMS:         time.Since(started).Milliseconds(),
		Format:          p.cfg.Format,
		SizeBytes:       info.Size(),
	}, nil
}

func (p *PiperSynthesizer) checkAssets() error {
	if _, err := exec.LookPath(p.cfg.BinaryPath); err != nil {
		return &AssetError{Path: p.cfg.BinaryPath, Err: err}
	}
	if strings.TrimSpace(p.cfg.ModelPath) == "" {
		return &AssetError{Path: "<unset>", Err: errors.New("piper model path is not configured")}
	}
	if _, err := os.Stat(p.cfg.ModelPath); err != nil {
		return &AssetError{Path: p.cfg.ModelPath, Err: err}
	}
	if p.cfg.Format == "ogg" {
		if _, err := exec.LookPath(p.cfg.FFmpegPath); err != nil {
			return &AssetError{Path: p.cfg.FFmpegPath, Err: err}
		}
	}
	return nil
}

func (p *PiperSynthesizer) args() []string {
	args := []string{"--model", p.cfg.ModelPath, "--output-raw"}
	if p.cfg.ConfigPath != "" {
		args = append(args, "--config", p.cfg.ConfigPath)
	}
	if p.cfg.SpeakerID > 0 {
		args = append(args, "--speaker", strconv.Itoa(p.cfg.SpeakerID))
	}
	if p.cfg.LengthScale != 1.0 {
		args = append(args, "--length-scale", strconv.FormatFloat(p.cfg.LengthScale, 'f', 2, 64))
	}
	return args
}

func (p *PiperSynthesizer) ffmpegArgs() []string {
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-f", "s16le", "-ar", strconv.Itoa(p.cfg.SampleRate), "-ac", "1", "-i", "pipe:0",
		"-c:a", "libopus", "-b:a", "32k", "-f", "ogg", "pipe:1",
	}
}

func runCommand(ctx context.Context, name string, args []string, stdin io.Reader) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		message := strings.TrimSpace(stderr.String())
		if message != "" {
			return nil, fmt.Errorf("%s: %w: %s", filepath.Base(name), err, message)
		}
		return nil, fmt.Errorf("%s: %w", filepath.Base(name), err)
	}
	return stdout.Bytes(), nil
}

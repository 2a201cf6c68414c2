package synthesis

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/polly"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposeText(t *testing.T) {
	assert.Equal(t, "текст", ComposeText("", "текст"))
	assert.Equal(t, "пост из канала Новости. текст", ComposeText("пост из канала Новости", "текст"))
	assert.Equal(t, "пост из канала Новости. текст", ComposeText("пост из канала Новости. ", "текст"))
}

func TestStubSynthesizerCopiesAsset(t *testing.T) {
	dir := t.TempDir()
	asset := filepath.Join(dir, "example.mp3")
	require.NoError(t, os.WriteFile(asset, []byte("ID3fake"), 0o644))

	stub := NewStubSynthesizer(StubConfig{AssetPath: asset})
	result, err := stub.Synthesize(context.Background(), Request{Text: "привет", OutputPath: filepath.Join(dir, "out", "job.ogg")})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "out", "job.mp3"), result.Path)
	assert.Equal(t, "mp3", result.Format)
	assert.Equal(t, int64(7), result.SizeBytes)
	assert.Nil(t, result.ModelLoadMS)
	content, err := os.ReadFile(result.Path)
	require.NoError(t, err)
	assert.Equal(t, "ID3fake", string(content))
}

func TestStubSynthesizerMissingAsset(t *testing.T) {
	stub := NewStubSynthesizer(StubConfig{AssetPath: filepath.Join(t.TempDir(), "missing.mp3")})
	_, err := stub.Synthesize(context.Background(), Request{Text: "привет", OutputPath: filepath.Join(t.TempDir(), "job.ogg")})

	var assetErr *AssetError
	require.ErrorAs(t, err, &assetErr)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestStubSynthesizerRejectsEmptyAndLongText(t *testing.T) {
	stub := NewStubSynthesizer(StubConfig{AssetPath: "unused", TextLimit: 10})

	_, err := stub.Synthesize(context.Background(), Request{Text: "  "})
	require.ErrorIs(t, err, ErrEmptyText)

	_, err = stub.Synthesize(context.Background(), Request{Text: strings.Repeat("я", 11)})
	var tooLong *TextTooLongError
	require.ErrorAs(t, err, &tooLong)
	assert.Equal(t, 11, tooLong.Length)
}

func fakeBinary(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755))
	return path
}

func TestPiperSynthesizerWritesWAV(t *testing.T) {
	dir := t.TempDir()
	model := filepath.Join(dir, "ru_RU-voice.onnx")
	require.NoError(t, os.WriteFile(model, []byte("onnx"), 0o644))

	piper := NewPiperSynthesizer(PiperConfig{
		BinaryPath:  fakeBinary(t, dir, "piper"),
		ModelPath:   model,
		LengthScale: 1.25,
	})
	var gotArgs []string
	var gotStdin string
	pcm := make([]byte, PiperSampleRate*2)
	piper.run = func(_ context.Context, _ string, args []string, stdin io.Reader) ([]byte, error) {
		gotArgs = args
		raw, _ := io.ReadAll(stdin)
		gotStdin = string(raw)
		return pcm, nil
	}

	result, err := piper.Synthesize(context.Background(), Request{
		Text:       "текст",
		Prefix:     "сообщение от пользователя Иван",
		OutputPath: filepath.Join(dir, "job.ogg"),
	})
	require.NoError(t, err)

	assert.Equal(t, "сообщение от пользователя Иван. текст", gotStdin)
	assert.Contains(t, gotArgs, "--output-raw")
	assert.Contains(t, gotArgs, "1.25")
	assert.Equal(t, filepath.Join(dir, "job.wav"), result.Path)
	assert.InDelta(t, 1.0, result.DurationSeconds, 0.0001)
	assert.Equal(t, int64(44+len(pcm)), result.SizeBytes)

	header, err := os.ReadFile(result.Path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(header, []byte("RIFF")))
	assert.Equal(t, "WAVE", string(header[8:12]))
}

func TestPiperSynthesizerMissingModel(t *testing.T) {
	dir := t.TempDir()
	piper := NewPiperSynthesizer(PiperConfig{
		BinaryPath: fakeBinary(t, dir, "piper"),
		ModelPath:  filepath.Join(dir, "missing.onnx"),
	})

	_, err := piper.Synthesize(context.Background(), Request{Text: "текст", OutputPath: filepath.Join(dir, "job")})
	var assetErr *AssetError
	require.ErrorAs(t, err, &assetErr)
}

func TestPiperSynthesizerEmptyOutputIsIOError(t *testing.T) {
	dir := t.TempDir()
	model := filepath.Join(dir, "voice.onnx")
	require.NoError(t, os.WriteFile(model, []byte("onnx"), 0o644))
	piper := NewPiperSynthesizer(PiperConfig{BinaryPath: fakeBinary(t, dir, "piper"), ModelPath: model})
	piper.run = func(context.Context, string, []string, io.Reader) ([]byte, error) { return nil, nil }

	_, err := piper.Synthesize(context.Background(), Request{Text: "текст", OutputPath: filepath.Join(dir, "job")})
	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
}

type fakePolly struct {
	audio []byte
	err   error
	input *polly.SynthesizeSpeechInput
}

func (f *fakePolly) SynthesizeSpeech(_ context.Context, params *polly.SynthesizeSpeechInput, _ ...func(*polly.Options)) (*polly.SynthesizeSpeechOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &polly.SynthesizeSpeechOutput{AudioStream: io.NopCloser(bytes.NewReader(f.audio))}, nil
}

func TestPollySynthesizerWritesMP3(t *testing.T) {
	client := &fakePolly{audio: bytes.Repeat([]byte{1}, 6000)}
	synth := newPollySynthesizer(PollyConfig{VoiceID: "Tatyana", Engine: "neural"}, client)

	result, err := synth.Synthesize(context.Background(), Request{Text: "привет", OutputPath: filepath.Join(t.TempDir(), "job.ogg")})
	require.NoError(t, err)

	assert.Equal(t, "mp3", result.Format)
	assert.Equal(t, int64(6000), result.SizeBytes)
	assert.InDelta(t, 1.0, result.DurationSeconds, 0.0001)
	assert.Equal(t, "привет", *client.input.Text)
	assert.Equal(t, "Tatyana", string(client.input.VoiceId))
}

func TestPollySynthesizerMapsVoiceErrors(t *testing.T) {
	client := &fakePolly{err: &smithy.GenericAPIError{Code: "InvalidParameterValueException", Message: "Voice Nobody does not exist"}}
	synth := newPollySynthesizer(PollyConfig{VoiceID: "Nobody"}, client)

	_, err := synth.Synthesize(context.Background(), Request{Text: "привет", OutputPath: filepath.Join(t.TempDir(), "job")})
	var assetErr *AssetError
	require.ErrorAs(t, err, &assetErr)

	client.err = &smithy.GenericAPIError{Code: "ThrottlingException", Message: "slow down"}
	_, err = synth.Synthesize(context.Background(), Request{Text: "привет", OutputPath: filepath.Join(t.TempDir(), "job")})
	require.Error(t, err)
	assert.False(t, errors.As(err, &assetErr))
}

func TestFormatMetrics(t *testing.T) {
	load := int64(120)
	assert.Equal(t, "piper_tts load_ms=n/a synth_ms=35 duration_s=1.50", FormatMetrics("piper_tts", Result{SynthMS: 35, DurationSeconds: 1.5}))
	assert.Equal(t, "polly_tts load_ms=120 synth_ms=5 duration_s=0.00", FormatMetrics("polly_tts", Result{SynthMS: 5, ModelLoadMS: &load}))
}

func TestMetricsLogAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics", "synth.log")
	metrics := NewMetricsLog(path)

	require.NoError(t, metrics.Success("stub_tts", Result{SynthMS: 1}))
	require.NoError(t, metrics.Failure("stub_tts", errors.New("boom")))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "stub_tts load_ms=n/a synth_ms=1 duration_s=0.00")
	assert.Contains(t, lines[1], `stub_tts failed error="boom"`)

	var disabled *MetricsLog
	assert.NoError(t, disabled.Success("x", Result{}))
}

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine(EngineConfig{})
	require.NoError(t, err)
	assert.Equal(t, "stub_tts", engine.Name())

	engine, err = NewEngine(EngineConfig{Engine: "piper"})
	require.NoError(t, err)
	assert.Equal(t, "piper_tts", engine.Name())

	_, err = NewEngine(EngineConfig{Engine: "espeak"})
	require.Error(t, err)
}

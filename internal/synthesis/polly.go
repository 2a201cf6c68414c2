package synthesis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	pollytypes "github.com/aws/aws-sdk-go-v2/service/polly/types"
	"github.com/aws/smithy-go"
)

// pollyBitrate is the MP3 bitrate Polly uses at its default 22050 Hz sample
// rate; it turns a byte count into a duration estimate.
const pollyBitrate = 48_000

type synthClient interface {
	SynthesizeSpeech(ctx context.Context, params *polly.SynthesizeSpeechInput, optFns ...func(*polly.Options)) (*polly.SynthesizeSpeechOutput, error)
}

type PollyConfig struct {
	Region    string
	VoiceID   string
	Engine    string
	Timeout   time.Duration
	TextLimit int
}

type PollySynthesizer struct {
	mu     sync.Mutex
	client synthClient
	cfg    PollyConfig
}

func NewPollySynthesizer(cfg PollyConfig) *PollySynthesizer {
	return newPollySynthesizer(cfg, nil)
}

func newPollySynthesizer(cfg PollyConfig, client synthClient) *PollySynthesizer {
	if strings.TrimSpace(cfg.Region) == "" {
		cfg.Region = "eu-central-1"
	}
	if strings.TrimSpace(cfg.VoiceID) == "" {
		cfg.VoiceID = "Maxim"
	}
	if strings.TrimSpace(cfg.Engine) == "" {
		cfg.Engine = "standard"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.TextLimit <= 0 {
		cfg.TextLimit = DefaultTextLimit
	}
	return &PollySynthesizer{client: client, cfg: cfg}
}

func (p *PollySynthesizer) Name() string {
	return "polly_tts"
}

func (p *PollySynthesizer) Synthesize(ctx context.Context, request Request) (Result, error) {
	text, err := composeAndCheck(request, p.cfg.TextLimit)
	if err != nil {
		return Result{}, err
	}
	client, loadMS, err := p.resolveClient(ctx)
	if err != nil {
		return Result{}, err
	}

	engine := pollytypes.EngineStandard
	if strings.EqualFold(p.cfg.Engine, "neural") {
		engine = pollytypes.EngineNeural
	}

	started := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	output, err := client.SynthesizeSpeech(callCtx, &polly.SynthesizeSpeechInput{
		Engine:       engine,
		OutputFormat: pollytypes.OutputFormatMp3,
		Text:         &text,
		TextType:     pollytypes.TextTypeText,
		VoiceId:      pollytypes.VoiceId(p.cfg.VoiceID),
	})
	if err != nil {
		return Result{}, normalizePollyError(err, p.cfg.VoiceID)
	}
	if output == nil || output.AudioStream == nil {
		return Result{}, &IOError{Op: "read polly audio", Err: errors.New("empty audio stream")}
	}
	defer output.AudioStream.Close()

	outPath := withExtension(request.OutputPath, "mp3")
	size, err := writeStream(outPath, output.AudioStream)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Path:            outPath,
		DurationSeconds: float64(size*8) / pollyBitrate,
		SynthMS:         time.Since(started).Milliseconds(),
		ModelLoadMS:     loadMS,
		Format:          "mp3",
		SizeBytes:       size,
	}, nil
}

// resolveClient builds the SDK client on first use and reports how long
// loading the AWS configuration took.
func (p *PollySynthesizer) resolveClient(ctx context.Context) (synthClient, *int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil {
		return p.client, nil, nil
	}
	started := time.Now()
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(p.cfg.Region))
	if err != nil {
		return nil, nil, &AssetError{Path: "aws-config", Err: fmt.Errorf("load aws config: %w", err)}
	}
	p.client = polly.NewFromConfig(awsCfg)
	loadMS := time.Since(started).Milliseconds()
	return p.client, &loadMS, nil
}

func normalizePollyError(err error, voice string) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "LexiconNotFoundException", "EngineNotSupportedException":
			return &AssetError{Path: "polly voice " + voice, Err: err}
		case "InvalidParameterValueException":
			if strings.Contains(strings.ToLower(apiErr.ErrorMessage()), "voice") {
				return &AssetError{Path: "polly voice " + voice, Err: err}
			}
		}
	}
	return fmt.Errorf("polly synthesize: %w", err)
}

func writeStream(path string, stream io.Reader) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, &IOError{Op: "mkdir", Path: filepath.Dir(path), Err: err}
	}
	out, err := os.Create(path)
	if err != nil {
		return 0, &IOError{Op: "create", Path: path, Err: err}
	}
	size, copyErr := io.Copy(out, stream)
	closeErr := out.Close()
	if copyErr != nil {
		return 0, &IOError{Op: "write", Path: path, Err: copyErr}
	}
	if closeErr != nil {
		return 0, &IOError{Op: "close", Path: path, Err: closeErr}
	}
	if size == 0 {
		return 0, &IOError{Op: "write", Path: path, Err: errors.New("empty audio stream")}
	}
	return size, nil
}

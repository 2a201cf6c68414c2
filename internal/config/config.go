package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

const (
	ModePolling = "polling"
	ModeWebhook = "webhook"
)

// Config centralizes runtime settings for the bot, its HTTP surface and the
// preprocessing and synthesis stack.
type Config struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	Debug    bool   `env:"DEBUG"`
	TempDir  string `env:"TEMP_DIR"`
	MaxChars int    `env:"MAX_CHARS" envDefault:"2000" validate:"gt=0"`
	// Whitelist lists the user ids allowed to use the bot.
	Whitelist IDList `env:"WHITELIST"`

	Telegram      TelegramConfig `envPrefix:"BOT_"`
	HTTP          HTTPConfig
	Intake        IntakeConfig `envPrefix:"INTAKE_"`
	Worker        WorkerConfig
	Synthesis     SynthesisConfig
	Preprocessing PreprocessingConfig `envPrefix:"PREPROCESSING_"`
	LLM           LLMConfig           `envPrefix:"LLM_"`
	Cache         CacheConfig         `envPrefix:"CACHE_"`
	Redis         RedisConfig         `envPrefix:"REDIS_"`

	DatabaseURL string `env:"DATABASE_URL"`
}

type TelegramConfig struct {
	Token          string        `env:"TOKEN,unset"`
	Mode           string        `env:"MODE" envDefault:"polling" validate:"oneof=polling webhook"`
	WebhookURL     string        `env:"WEBHOOK_URL" validate:"omitempty,url"`
	WebhookSecret  string        `env:"WEBHOOK_SECRET" validate:"omitempty,max=256"`
	APIBaseURL     string        `env:"API_BASE_URL" envDefault:"https://api.telegram.org" validate:"url"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s" validate:"gt=0"`
	WriteTimeout   time.Duration `env:"WRITE_TIMEOUT" envDefault:"120s" validate:"gt=0"`
	PollTimeout    time.Duration `env:"POLL_TIMEOUT" envDefault:"30s" validate:"gt=0"`
	// MaxVoiceDuration rejects longer audio before upload. Zero disables it.
	MaxVoiceDuration time.Duration `env:"MAX_VOICE_DURATION"`
}

type HTTPConfig struct {
	Port           string  `env:"PORT" envDefault:"8080" validate:"required,numeric"`
	AuthToken      string  `env:"API_AUTH_TOKEN"`
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"20" validate:"gte=0"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"40" validate:"gte=0"`
}

type IntakeConfig struct {
	// UserRatePerMinute of zero disables the per-user limit.
	UserRatePerMinute int `env:"USER_RATE_PER_MINUTE" envDefault:"20" validate:"gte=0"`
	UserBurst         int `env:"USER_BURST" envDefault:"5" validate:"gte=0"`
	MaxBacklogPerChat int `env:"MAX_BACKLOG_PER_CHAT" envDefault:"256" validate:"gt=0"`
}

type WorkerConfig struct {
	SynthesisTimeout time.Duration `env:"SYNTHESIS_TIMEOUT" envDefault:"120s" validate:"gt=0"`
	DeliveryTimeout  time.Duration `env:"DELIVERY_TIMEOUT" envDefault:"180s" validate:"gt=0"`
	MetricsFile      string        `env:"METRICS_FILE"`
	HistoryRecords   int           `env:"HISTORY_MAX_RECORDS" envDefault:"10000" validate:"gt=0"`
}

type SynthesisConfig struct {
	Engine        string `env:"TTS_ENGINE" envDefault:"stub" validate:"oneof=stub piper polly"`
	TextLimit     int    `env:"TTS_TEXT_LIMIT" validate:"gte=0"`
	AudioStubPath string `env:"AUDIO_STUB_PATH" envDefault:"assets/example.ogg"`

	Piper PiperConfig `envPrefix:"PIPER_"`
	Polly PollyConfig `envPrefix:"POLLY_"`
}

type PiperConfig struct {
	BinaryPath  string        `env:"BINARY" envDefault:"piper"`
	ModelPath   string        `env:"MODEL"`
	ConfigPath  string        `env:"CONFIG"`
	SpeakerID   int           `env:"SPEAKER_ID" validate:"gte=0"`
	LengthScale float64       `env:"LENGTH_SCALE" envDefault:"1.0" validate:"gt=0"`
	SampleRate  int           `env:"SAMPLE_RATE" envDefault:"22050" validate:"gte=8000"`
	Format      string        `env:"FORMAT" envDefault:"ogg" validate:"oneof=wav ogg"`
	FFmpegPath  string        `env:"FFMPEG" envDefault:"ffmpeg"`
	Timeout     time.Duration `env:"TIMEOUT" envDefault:"90s" validate:"gt=0"`
}

type PollyConfig struct {
	Region  string        `env:"REGION" envDefault:"eu-central-1"`
	VoiceID string        `env:"VOICE_ID" envDefault:"Maxim"`
	Engine  string        `env:"ENGINE" envDefault:"standard" validate:"oneof=standard neural"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"60s" validate:"gt=0"`
}

type PreprocessingConfig struct {
	Stages         string `env:"STAGES" envDefault:"basic,abbreviations,symbols,numbers,latin_letters"`
	StrictStages   bool   `env:"STRICT_STAGES"`
	DictionaryPath string `env:"DICTIONARY_PATH"`
	MinChunkChars  int    `env:"MIN_CHUNK_CHARS" envDefault:"500" validate:"gt=0"`
	MaxChunkTokens int    `env:"MAX_CHUNK_TOKENS" envDefault:"4000" validate:"gt=0"`
	TokenEncoding  string `env:"TOKEN_ENCODING" envDefault:"cl100k_base"`
}

type LLMConfig struct {
	Enabled           bool          `env:"ENABLED"`
	Provider          string        `env:"PROVIDER" envDefault:"openai" validate:"oneof=openai openrouter anthropic gemini"`
	APIKey            string        `env:"API_KEY,unset"`
	BaseURL           string        `env:"BASE_URL" validate:"omitempty,url"`
	Model             string        `env:"MODEL" envDefault:"gpt-4o-mini"`
	Temperature       float64       `env:"TEMPERATURE" envDefault:"0.1" validate:"gte=0,lte=2"`
	TopP              float64       `env:"TOP_P" envDefault:"1" validate:"gte=0,lte=1"`
	MaxTokens         int           `env:"MAX_TOKENS" envDefault:"4096" validate:"gte=0"`
	Timeout           time.Duration `env:"TIMEOUT" envDefault:"30s" validate:"gt=0"`
	MaxRetries        int           `env:"MAX_RETRIES" envDefault:"3" validate:"gte=0,lte=10"`
	BackoffBase       time.Duration `env:"BACKOFF_BASE" envDefault:"1s" validate:"gt=0"`
	SystemPromptFile  string        `env:"SYSTEM_PROMPT_FILE"`
	CacheSystemPrompt bool          `env:"CACHE_SYSTEM_PROMPT" envDefault:"true"`
	RequestsPerSecond float64       `env:"RPS" validate:"gte=0"`
	Burst             int           `env:"BURST" envDefault:"1" validate:"gte=0"`
	SiteURL           string        `env:"SITE_URL"`
	AppName           string        `env:"APP_NAME"`
}

type CacheConfig struct {
	TTL        time.Duration `env:"TTL" envDefault:"24h" validate:"gt=0"`
	MaxEntries int           `env:"MAX_ENTRIES" envDefault:"2000" validate:"gt=0"`
}

type RedisConfig struct {
	Addr      string `env:"ADDR"`
	Password  string `env:"PASSWORD,unset"`
	DB        int    `env:"DB" validate:"gte=0"`
	KeyPrefix string `env:"KEY_PREFIX" envDefault:"voicebot:translit:"`
}

// IDList is a comma separated list of numeric ids. Blank and malformed
// entries are skipped.
type IDList []int64

func (l *IDList) UnmarshalText(text []byte) error {
	ids := IDList{}
	for _, raw := range strings.Split(string(text), ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	*l = ids
	return nil
}

var (
	ErrMissingToken   = errors.New("BOT_TOKEN is required")
	ErrEmptyWhitelist = errors.New("WHITELIST is empty: access denied for everyone")

	ErrMissingWebhookURL = errors.New("BOT_WEBHOOK_URL is required in webhook mode")
)

// Load parses the process environment. Call LoadDotEnv or OverrideDotEnv
// first to merge .env files.
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Telegram.Mode == ModeWebhook && c.Telegram.WebhookURL == "" {
		return ErrMissingWebhookURL
	}
	return nil
}

// RequireBot checks the settings the bot cannot start without.
func (c Config) RequireBot() error {
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return ErrMissingToken
	}
	if len(c.Whitelist) == 0 {
		return ErrEmptyWhitelist
	}
	return nil
}

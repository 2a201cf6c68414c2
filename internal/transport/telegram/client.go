package telegram

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/iago/telegram-voice-bot/internal/transport"
)

var ErrMissingToken = errors.New("telegram bot token is not configured")

type Config struct {
	Token   string
	BaseURL string
	// RequestTimeout bounds small calls such as getMe and sendMessage.
	RequestTimeout time.Duration
	// WriteTimeout bounds voice uploads.
	WriteTimeout time.Duration
	// PollTimeout is the server side wait of one getUpdates call.
	PollTimeout      time.Duration
	MaxVoiceDuration time.Duration
	HTTPClient       *http.Client
	Logger           *log.Logger
}

// Client adapts the Bot API library to transport.ChatTransport and owns the
// mapping of upload failures to quota and timeout errors.
type Client struct {
	bot              *tgbot.Bot
	token            string
	requestTimeout   time.Duration
	writeTimeout     time.Duration
	maxVoiceDuration time.Duration
	logger           *log.Logger

	mu      sync.RWMutex
	handler MessageHandler
}

func NewClient(cfg Config) (*Client, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, ErrMissingToken
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.telegram.org"
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 120 * time.Second
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 30 * time.Second
	}
	if cfg.HTTPClient == nil {
		// Per call contexts do the real bounding; this only stops a stuck socket.
		cfg.HTTPClient = &http.Client{Timeout: max(cfg.PollTimeout+cfg.RequestTimeout, cfg.WriteTimeout) + cfg.RequestTimeout}
	}

	c := &Client{
		token:            token,
		requestTimeout:   cfg.RequestTimeout,
		writeTimeout:     cfg.WriteTimeout,
		maxVoiceDuration: cfg.MaxVoiceDuration,
		logger:           cfg.Logger,
	}
	b, err := tgbot.New(token,
		tgbot.WithSkipGetMe(),
		tgbot.WithServerURL(strings.TrimSuffix(cfg.BaseURL, "/")),
		tgbot.WithHTTPClient(cfg.PollTimeout, cfg.HTTPClient),
		tgbot.WithAllowedUpdates(tgbot.AllowedUpdates{"message"}),
		tgbot.WithDefaultHandler(c.dispatch),
		tgbot.WithErrorsHandler(c.pollError),
		// One worker and inline handlers keep updates in arrival order.
		tgbot.WithWorkers(1),
		tgbot.WithNotAsyncHandlers(),
	)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", redact(err, token))
	}
	c.bot = b
	return c, nil
}

func (c *Client) GetMe(ctx context.Context) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()
	me, err := c.bot.GetMe(ctx)
	if err != nil {
		return nil, c.wrap("getMe", err)
	}
	return me, nil
}

func (c *Client) SendText(ctx context.Context, chatID, replyTo int64, text string) error {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()
	_, err := c.bot.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID:          chatID,
		Text:            text,
		ReplyParameters: replyParameters(replyTo),
	})
	if err != nil {
		return c.wrap("sendMessage", err)
	}
	return nil
}

func (c *Client) SetWebhook(ctx context.Context, url, secret string) error {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()
	_, err := c.bot.SetWebhook(ctx, &tgbot.SetWebhookParams{
		URL:            url,
		SecretToken:    secret,
		AllowedUpdates: []string{"message"},
	})
	if err != nil {
		return c.wrap("setWebhook", err)
	}
	return nil
}

func (c *Client) DeleteWebhook(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()
	if _, err := c.bot.DeleteWebhook(ctx, &tgbot.DeleteWebhookParams{}); err != nil {
		return c.wrap("deleteWebhook", err)
	}
	return nil
}

// SendVoice uploads audio as a voice message replying to replyTo. Formats
// the platform cannot play as voice (wav) go out as a regular audio file.
func (c *Client) SendVoice(ctx context.Context, chatID, replyTo int64, audio transport.AudioArtifact) error {
	if err := transport.CheckLimits(audio, c.maxVoiceDuration); err != nil {
		return err
	}

	file, err := os.Open(audio.Path)
	if err != nil {
		return fmt.Errorf("open voice file: %w", err)
	}
	defer file.Close()

	upload := &models.InputFileUpload{Filename: filepath.Base(audio.Path), Data: file}
	duration := 0
	if audio.DurationSeconds > 0 {
		duration = int(audio.DurationSeconds + 0.5)
	}

	started := time.Now()
	uploadCtx, cancel := context.WithTimeout(ctx, c.writeTimeout)
	defer cancel()

	method := "sendVoice"
	if strings.EqualFold(audio.Format, "wav") {
		method = "sendAudio"
		_, err = c.bot.SendAudio(uploadCtx, &tgbot.SendAudioParams{
			ChatID:          chatID,
			Audio:           upload,
			Duration:        duration,
			ReplyParameters: replyParameters(replyTo),
		})
	} else {
		_, err = c.bot.SendVoice(uploadCtx, &tgbot.SendVoiceParams{
			ChatID:          chatID,
			Voice:           upload,
			Duration:        duration,
			ReplyParameters: replyParameters(replyTo),
		})
	}
	if err == nil {
		return nil
	}

	err = c.wrap(method, err)
	if isTimeout(err) || errors.Is(uploadCtx.Err(), context.DeadlineExceeded) {
		return &transport.TimeoutError{SizeBytes: audio.SizeBytes, DurationSeconds: audio.DurationSeconds, Elapsed: time.Since(started), Err: err}
	}
	switch {
	case entityTooLarge(err):
		return &transport.QuotaError{Reason: transport.QuotaSize, SizeBytes: audio.SizeBytes, Description: err.Error(), Err: err}
	case errors.Is(err, tgbot.ErrorBadRequest), errors.Is(err, tgbot.ErrorForbidden):
		return &transport.QuotaError{Reason: transport.QuotaPermission, SizeBytes: audio.SizeBytes, Description: err.Error(), Err: err}
	}
	return err
}

func replyParameters(replyTo int64) *models.ReplyParameters {
	if replyTo <= 0 {
		return nil
	}
	return &models.ReplyParameters{MessageID: int(replyTo), AllowSendingWithoutReply: true}
}

func (c *Client) wrap(method string, err error) error {
	return fmt.Errorf("telegram %s: %w", method, redact(err, c.token))
}

// entityTooLarge matches a 413 reply, either as an API error or as the
// proxy page in front of it.
func entityTooLarge(err error) bool {
	message := strings.ToLower(err.Error())
	return strings.Contains(message, " 413 ") ||
		strings.Contains(message, "entity too large") ||
		strings.Contains(message, "file is too big")
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// redact keeps the bot token out of logged transport errors. Request
// failures carry the full URL, token included.
func redact(err error, token string) error {
	if token == "" || !strings.Contains(err.Error(), token) {
		return err
	}
	return &redactedError{message: strings.ReplaceAll(err.Error(), token, "<token>"), err: err}
}

type redactedError struct {
	message string
	err     error
}

func (e *redactedError) Error() string { return e.message }
func (e *redactedError) Unwrap() error { return e.err }

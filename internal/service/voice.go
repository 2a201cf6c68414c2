package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/iago/telegram-voice-bot/internal/bot"
	"github.com/iago/telegram-voice-bot/internal/domain"
	"github.com/iago/telegram-voice-bot/internal/preprocess"
	"github.com/iago/telegram-voice-bot/internal/queue"
	"github.com/iago/telegram-voice-bot/internal/repository"
	"github.com/iago/telegram-voice-bot/internal/transport"
)

var (
	ErrAccessDenied = errors.New("user is not whitelisted")
	ErrRateLimited  = errors.New("user intake rate exceeded")
)

type Preprocessor interface {
	Preprocess(ctx context.Context, text string) preprocess.Result
}

// Scheduler starts draining a chat.
type Scheduler interface {
	Schedule(ctx context.Context, chatID int64)
}

type VoiceConfig struct {
	MaxChars int
}

// VoiceService accepts inbound messages and turns them into queued jobs.
type VoiceService struct {
	jobs       queue.JobQueue
	serializer *queue.Serializer
	pipeline   Preprocessor
	scheduler  Scheduler
	chat       transport.ChatTransport
	history    repository.JobsRepository
	whitelist  *bot.Whitelist
	limiter    *bot.UserLimiter
	logger     *log.Logger
	maxChars   int
}

func NewVoiceService(
	jobs queue.JobQueue,
	serializer *queue.Serializer,
	pipeline Preprocessor,
	scheduler Scheduler,
	chat transport.ChatTransport,
	history repository.JobsRepository,
	whitelist *bot.Whitelist,
	limiter *bot.UserLimiter,
	logger *log.Logger,
	cfg VoiceConfig,
) *VoiceService {
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = bot.DefaultMaxChars
	}
	return &VoiceService{
		jobs:       jobs,
		serializer: serializer,
		pipeline:   pipeline,
		scheduler:  scheduler,
		chat:       chat,
		history:    history,
		whitelist:  whitelist,
		limiter:    limiter,
		logger:     logger,
		maxChars:   cfg.MaxChars,
	}
}

// HandleMessage validates a message and hands it to the chat's intake
// serializer. Preprocessing and enqueueing happen asynchronously, so ctx
// must outlive the call: pass the service lifetime context, not a request
// context. Rejections are answered in the chat and returned.
func (s *VoiceService) HandleMessage(ctx context.Context, message domain.IncomingMessage) error {
	if s.logger != nil {
		s.logger.Info("incoming message",
			"chat_id", message.ChatID,
			"user_id", message.UserID,
			"message_id", message.MessageID,
			"source", message.Source,
			"has_text", strings.TrimSpace(message.Text) != "",
			"has_caption", strings.TrimSpace(message.Caption) != "",
		)
	}

	if !s.whitelist.Allowed(message.UserID) {
		if s.logger != nil {
			s.logger.Info("access denied", "user_id", message.UserID)
		}
		return ErrAccessDenied
	}

	switch message.Command {
	case "":
	case "/start", "/help":
		s.reply(ctx, message, bot.HelpText)
		return nil
	default:
		return nil
	}

	if !s.limiter.Allow(message.UserID) {
		s.reply(ctx, message, bot.RateLimitedText)
		return ErrRateLimited
	}

	text, err := bot.ExtractText(message)
	if err == nil {
		err = bot.ValidateText(text, s.maxChars)
	}
	if err != nil {
		var userFacing bot.UserFacing
		if errors.As(err, &userFacing) {
			s.reply(ctx, message, userFacing.UserMessage())
		}
		return err
	}

	submitErr := s.serializer.Submit(message.ChatID, func() {
		s.accept(ctx, message, text)
	})
	if submitErr != nil {
		if errors.Is(submitErr, queue.ErrIntakeBackpressure) {
			s.reply(ctx, message, bot.RateLimitedText)
		}
		return fmt.Errorf("submit message %d: %w", message.MessageID, submitErr)
	}
	return nil
}

func (s *VoiceService) accept(ctx context.Context, message domain.IncomingMessage, text string) {
	result := s.pipeline.Preprocess(ctx, text)
	if s.logger != nil && (result.FallbackUsed || len(result.Errors) > 0) {
		s.logger.Warn("preprocessing degraded",
			"chat_id", message.ChatID,
			"message_id", message.MessageID,
			"fallback_used", result.FallbackUsed,
			"errors", len(result.Errors),
		)
	}
	if strings.TrimSpace(result.FinalText) == "" {
		s.reply(ctx, message, (&bot.InputError{Kind: bot.InputEmpty}).UserMessage())
		return
	}

	job := s.jobs.Enqueue(message.ChatID, domain.JobID(message.ChatID, message.MessageID), domain.JobPayload{
		Text:             result.FinalText,
		Source:           message.Source,
		SenderName:       message.SenderName,
		ChannelTitle:     message.ChannelTitle,
		ReplyToMessageID: message.MessageID,
		LLMUsed:          result.LLMUsed,
		FallbackUsed:     result.FallbackUsed,
	})
	if s.history != nil {
		if err := s.history.SaveJob(ctx, domain.NewJobRecord(job)); err != nil && s.logger != nil {
			s.logger.Warn("job history write failed", "job_id", job.ID, "err", err)
		}
	}
	if s.logger != nil {
		s.logger.Info("job enqueued", "job_id", job.ID, "chat_id", job.ChatID, "seq", job.Sequence, "llm_used", result.LLMUsed)
	}
	s.scheduler.Schedule(ctx, message.ChatID)
}

func (s *VoiceService) reply(ctx context.Context, message domain.IncomingMessage, text string) {
	if s.chat == nil {
		return
	}
	if err := s.chat.SendText(ctx, message.ChatID, message.MessageID, text); err != nil && s.logger != nil {
		s.logger.Warn("reply not delivered", "chat_id", message.ChatID, "err", err)
	}
}

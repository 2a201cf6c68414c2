package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/iago/telegram-voice-bot/internal/bot"
	"github.com/iago/telegram-voice-bot/internal/config"
	"github.com/iago/telegram-voice-bot/internal/domain"
	httpserver "github.com/iago/telegram-voice-bot/internal/http"
	"github.com/iago/telegram-voice-bot/internal/http/handlers"
	"github.com/iago/telegram-voice-bot/internal/http/middleware"
	"github.com/iago/telegram-voice-bot/internal/queue"
	"github.com/iago/telegram-voice-bot/internal/service"
	"github.com/iago/telegram-voice-bot/internal/synthesis"
	"github.com/iago/telegram-voice-bot/internal/transport/telegram"
	"github.com/iago/telegram-voice-bot/internal/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot and its HTTP API",
	Long:  "Receives Telegram updates by long polling or webhook, voices whitelisted messages and serves the job API.",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) (err error) {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel)
	if err := cfg.RequireBot(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	history, closeHistory := setupRepository(ctx, cfg, logger)
	defer closeHistory()

	pipeline, closePipeline, err := buildPipeline(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, closePipeline())
	}()

	synth, err := buildSynthesizer(cfg)
	if err != nil {
		return err
	}
	logger.Info("synthesis engine selected", "engine", synth.Name())

	tg, err := telegram.NewClient(telegram.Config{
		Token:            cfg.Telegram.Token,
		BaseURL:          cfg.Telegram.APIBaseURL,
		RequestTimeout:   cfg.Telegram.RequestTimeout,
		WriteTimeout:     cfg.Telegram.WriteTimeout,
		PollTimeout:      cfg.Telegram.PollTimeout,
		MaxVoiceDuration: cfg.Telegram.MaxVoiceDuration,
		Logger:           logger,
	})
	if err != nil {
		return err
	}
	me, err := tg.GetMe(ctx)
	if err != nil {
		return err
	}
	logger.Info("telegram bot authorized", "username", me.Username, "id", me.ID)

	jobs := queue.NewChatQueue()
	serializer := queue.NewSerializer(queue.SerializerConfig{
		MaxBacklogPerChat: cfg.Intake.MaxBacklogPerChat,
		OnPanic: func(chatID int64, recovered any) {
			logger.Error("intake task panicked", "chat_id", chatID, "panic", recovered)
		},
	})
	drain := worker.NewDrainWorker(
		jobs,
		queue.NewDrainLocks(),
		pipeline,
		synth,
		tg,
		history,
		synthesis.NewMetricsLog(cfg.Worker.MetricsFile),
		logger,
		worker.Config{
			TempDir:          cfg.TempDir,
			SynthesisTimeout: cfg.Worker.SynthesisTimeout,
			DeliveryTimeout:  cfg.Worker.DeliveryTimeout,
			Debug:            cfg.Debug,
		},
	)
	voice := service.NewVoiceService(
		jobs,
		serializer,
		pipeline,
		drain,
		tg,
		history,
		bot.NewWhitelist(cfg.Whitelist),
		bot.NewUserLimiter(cfg.Intake.UserRatePerMinute, cfg.Intake.UserBurst),
		logger,
		service.VoiceConfig{MaxChars: cfg.MaxChars},
	)

	if err := startUpdates(ctx, cfg, tg, voice, logger); err != nil {
		return err
	}

	limiter := middleware.NewIPRateLimiter(cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst)
	go limiter.RunCleanup(ctx, time.Minute)

	api := handlers.NewAPI(handlers.Dependencies{
		Context:       ctx,
		Intake:        voice,
		Queue:         jobs,
		History:       history,
		Preprocessor:  pipeline,
		WebhookSecret: cfg.Telegram.WebhookSecret,
		Logger:        logger,
	})
	server := &http.Server{
		Addr: ":" + cfg.HTTP.Port,
		Handler: httpserver.NewRouter(httpserver.RouterDependencies{
			API:         api,
			Logger:      logger,
			AuthToken:   cfg.HTTP.AuthToken,
			RateLimiter: limiter,
		}),
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("http api listening", "addr", server.Addr, "mode", cfg.Telegram.Mode)
		errChan <- server.ListenAndServe()
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case serveErr = <-errChan:
		if errors.Is(serveErr, http.ErrServerClosed) {
			serveErr = nil
		}
		if serveErr != nil {
			logger.Error("http server failed", "err", serveErr)
		}
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", "err", err)
	}

	serializer.Close()
	drain.Wait()
	logger.Info("bot stopped")
	return serveErr
}

// startUpdates subscribes to Telegram: a webhook registration in webhook
// mode, a background long-polling loop otherwise.
func startUpdates(
	ctx context.Context,
	cfg config.Config,
	tg *telegram.Client,
	voice *service.VoiceService,
	logger *log.Logger,
) error {
	if cfg.Telegram.Mode == config.ModeWebhook {
		return tg.SetWebhook(ctx, cfg.Telegram.WebhookURL, cfg.Telegram.WebhookSecret)
	}

	if err := tg.DeleteWebhook(ctx); err != nil {
		return err
	}
	go tg.Poll(ctx, pollHandler(voice, logger))
	return nil
}

type messageIntake interface {
	HandleMessage(ctx context.Context, message domain.IncomingMessage) error
}

// pollHandler feeds polled messages to intake. Rejections were already
// answered in the chat and log at info; anything else logs at warn.
func pollHandler(intake messageIntake, logger *log.Logger) telegram.MessageHandler {
	return func(ctx context.Context, message domain.IncomingMessage) {
		err := intake.HandleMessage(ctx, message)
		if err == nil || logger == nil {
			return
		}
		level := logger.Warn
		if handlers.IsRejection(err) {
			level = logger.Info
		}
		level("polled message not accepted", "chat_id", message.ChatID, "message_id", message.MessageID, "err", err)
	}
}

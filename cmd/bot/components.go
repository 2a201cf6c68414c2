package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/iago/telegram-voice-bot/internal/ai"
	"github.com/iago/telegram-voice-bot/internal/cache"
	"github.com/iago/telegram-voice-bot/internal/chunking"
	"github.com/iago/telegram-voice-bot/internal/config"
	"github.com/iago/telegram-voice-bot/internal/preprocess"
	"github.com/iago/telegram-voice-bot/internal/repository"
	"github.com/iago/telegram-voice-bot/internal/synthesis"
	"github.com/iago/telegram-voice-bot/internal/textnorm"
	"github.com/iago/telegram-voice-bot/internal/transliteration"
)

func setupRepository(
	ctx context.Context,
	cfg config.Config,
	logger *log.Logger,
) (repository.JobsRepository, func()) {
	if cfg.DatabaseURL == "" {
		logger.Info("DATABASE_URL not configured, keeping job history in memory")
		return repository.NewMemoryJobsRepository(cfg.Worker.HistoryRecords), func() {}
	}

	pgRepo, err := repository.NewPostgresJobsRepository(ctx, cfg.DatabaseURL)
	if err == nil {
		err = pgRepo.EnsureSchema(ctx)
		if err != nil {
			pgRepo.Close()
		}
	}
	if err != nil {
		logger.Warn("postgres job history unavailable, falling back to memory", "err", err)
		return repository.NewMemoryJobsRepository(cfg.Worker.HistoryRecords), func() {}
	}
	logger.Info("postgres job history initialized")
	return pgRepo, pgRepo.Close
}

func setupCache(ctx context.Context, cfg config.Config, logger *log.Logger) cache.Store {
	memory := func() cache.Store {
		return cache.NewMemoryStore(cache.Config{TTL: cfg.Cache.TTL, MaxEntries: cfg.Cache.MaxEntries})
	}
	if cfg.Redis.Addr == "" {
		logger.Debug("REDIS_ADDR not configured, caching transliterations in memory")
		return memory()
	}

	store, err := cache.NewRedisStore(ctx, cache.RedisConfig{
		Addr:      cfg.Redis.Addr,
		Password:  cfg.Redis.Password,
		DB:        cfg.Redis.DB,
		KeyPrefix: cfg.Redis.KeyPrefix,
		TTL:       cfg.Cache.TTL,
	})
	if err != nil {
		logger.Warn("redis cache unavailable, falling back to memory", "err", err)
		return memory()
	}
	logger.Info("redis transliteration cache initialized", "addr", cfg.Redis.Addr)
	return store
}

// buildPipeline assembles the preprocessing pipeline. The returned closer
// releases the transliteration cache.
func buildPipeline(
	ctx context.Context,
	cfg config.Config,
	logger *log.Logger,
) (*preprocess.Pipeline, func() error, error) {
	noop := func() error { return nil }

	pc := cfg.Preprocessing
	if pc.StrictStages {
		if err := preprocess.ValidateStages(pc.Stages); err != nil {
			return nil, noop, err
		}
	}
	stages := preprocess.ParseStages(pc.Stages, logger)

	normalizer := textnorm.NewNormalizer(textnorm.DefaultDictionary())
	if err := textnorm.WatchDictionary(pc.DictionaryPath, normalizer, logger); err != nil {
		return nil, noop, err
	}

	counter, err := chunking.NewTokenCounter(pc.TokenEncoding)
	if err != nil {
		logger.Warn("tiktoken unavailable, estimating token counts", "err", err)
	}

	var (
		transliterator preprocess.Transliterator
		closer         = noop
	)
	if cfg.LLM.Enabled {
		client, store, err := buildTransliterator(ctx, cfg, logger)
		if err != nil {
			return nil, noop, err
		}
		transliterator = client
		closer = store.Close
		if !client.Available() {
			logger.Warn("llm stage enabled without credentials, it will fall back", "provider", cfg.LLM.Provider)
		}
	}

	pipeline := preprocess.New(normalizer, transliterator, counter, logger, preprocess.Config{
		Stages:         stages,
		LLMEnabled:     cfg.LLM.Enabled,
		MinChunkChars:  pc.MinChunkChars,
		MaxChunkTokens: pc.MaxChunkTokens,
	})
	logger.Info("preprocessing configured", "stages", stages, "llm_enabled", cfg.LLM.Enabled)
	return pipeline, closer, nil
}

func buildTransliterator(
	ctx context.Context,
	cfg config.Config,
	logger *log.Logger,
) (*transliteration.Client, cache.Store, error) {
	lc := cfg.LLM
	generator, err := ai.NewTextGenerator(ai.ProviderConfig{
		Provider: lc.Provider,
		APIKey:   lc.APIKey,
		BaseURL:  lc.BaseURL,
		Timeout:  lc.Timeout,
		SiteURL:  lc.SiteURL,
		AppName:  lc.AppName,
	})
	if err != nil {
		return nil, nil, err
	}
	prompt, err := transliteration.LoadSystemPrompt(lc.SystemPromptFile)
	if err != nil {
		return nil, nil, err
	}

	store := setupCache(ctx, cfg, logger)
	client := transliteration.NewClient(generator, store, logger, transliteration.Config{
		Model:             lc.Model,
		Temperature:       lc.Temperature,
		TopP:              lc.TopP,
		MaxTokens:         lc.MaxTokens,
		Timeout:           lc.Timeout,
		MaxRetries:        lc.MaxRetries,
		BackoffBase:       lc.BackoffBase,
		SystemPrompt:      prompt,
		CacheSystemPrompt: lc.CacheSystemPrompt,
		RequestsPerSecond: lc.RequestsPerSecond,
		Burst:             lc.Burst,
	})
	return client, store, nil
}

func buildSynthesizer(cfg config.Config) (synthesis.Synthesizer, error) {
	sc := cfg.Synthesis
	synth, err := synthesis.NewEngine(synthesis.EngineConfig{
		Engine: sc.Engine,
		Stub: synthesis.StubConfig{
			AssetPath: sc.AudioStubPath,
			TextLimit: sc.TextLimit,
		},
		Piper: synthesis.PiperConfig{
			BinaryPath:  sc.Piper.BinaryPath,
			ModelPath:   sc.Piper.ModelPath,
			ConfigPath:  sc.Piper.ConfigPath,
			SpeakerID:   sc.Piper.SpeakerID,
			LengthScale: sc.Piper.LengthScale,
			SampleRate:  sc.Piper.SampleRate,
			Timeout:     sc.Piper.Timeout,
			Format:      sc.Piper.Format,
			FFmpegPath:  sc.Piper.FFmpegPath,
			TextLimit:   sc.TextLimit,
		},
		Polly: synthesis.PollyConfig{
			Region:    sc.Polly.Region,
			VoiceID:   sc.Polly.VoiceID,
			Engine:    sc.Polly.Engine,
			Timeout:   sc.Polly.Timeout,
			TextLimit: sc.TextLimit,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("build synthesizer: %w", err)
	}
	return synth, nil
}

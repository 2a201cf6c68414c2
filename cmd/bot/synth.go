package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/iago/telegram-voice-bot/internal/bot"
	"github.com/iago/telegram-voice-bot/internal/synthesis"
)

var (
	synthText   string
	synthPrefix string
	synthOutput string
	synthEngine string
	synthRaw    bool

	synthCmd = &cobra.Command{
		Use:   "synth",
		Short: "Voice text into an audio file with the configured engine",
		Long:  "Preprocesses text from --text or stdin and synthesizes it. The engine may change the output extension.",
		Args:  cobra.NoArgs,
		RunE:  runSynth,
	}
)

func init() {
	synthCmd.Flags().StringVar(&synthText, "text", "", "text to voice instead of stdin")
	synthCmd.Flags().StringVar(&synthPrefix, "prefix", "", "spoken prefix placed before the text")
	synthCmd.Flags().StringVarP(&synthOutput, "output", "o", "voice.ogg", "output audio path")
	synthCmd.Flags().StringVar(&synthEngine, "engine", "", "engine overriding TTS_ENGINE (stub, piper, polly)")
	synthCmd.Flags().BoolVar(&synthRaw, "raw", false, "skip preprocessing")
}

func runSynth(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel)
	if synthEngine != "" {
		cfg.Synthesis.Engine = synthEngine
	}

	text, err := inputText(synthText, cmd.InOrStdin())
	if err != nil {
		return err
	}
	if err := bot.ValidateText(text, cfg.MaxChars); err != nil {
		return err
	}

	synth, err := buildSynthesizer(cfg)
	if err != nil {
		return err
	}

	prefix := synthPrefix
	if !synthRaw {
		pipeline, closePipeline, err := buildPipeline(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer closePipeline()

		text = pipeline.Preprocess(cmd.Context(), text).FinalText
		if strings.TrimSpace(prefix) != "" {
			prefix = pipeline.Preprocess(cmd.Context(), prefix).FinalText
		}
		if strings.TrimSpace(text) == "" {
			return errors.New("nothing to voice after preprocessing")
		}
	}

	metrics := synthesis.NewMetricsLog(cfg.Worker.MetricsFile)
	label := fmt.Sprintf("engine=%s", synth.Name())
	result, err := synth.Synthesize(cmd.Context(), synthesis.Request{
		Text:       text,
		Prefix:     prefix,
		OutputPath: synthOutput,
	})
	if err != nil {
		if metricsErr := metrics.Failure(label, err); metricsErr != nil {
			logger.Warn("metrics write failed", "err", metricsErr)
		}
		return err
	}
	if err := metrics.Success(label, result); err != nil {
		logger.Warn("metrics write failed", "err", err)
	}

	logger.Info(synthesis.FormatMetrics(label, result))
	fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%.2fs\n", result.Path, humanize.IBytes(uint64(result.SizeBytes)), result.DurationSeconds)
	return nil
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iago/telegram-voice-bot/internal/preprocess"
)

var (
	preprocessStages string
	preprocessText   string

	preprocessCmd = &cobra.Command{
		Use:   "preprocess",
		Short: "Normalize text for speech and print the pipeline result as JSON",
		Long:  "Reads text from --text or stdin, runs the configured preprocessing stages and prints the result.",
		Args:  cobra.NoArgs,
		RunE:  runPreprocess,
	}
)

func init() {
	preprocessCmd.Flags().StringVar(&preprocessStages, "stages", "", "comma separated stages overriding PREPROCESSING_STAGES")
	preprocessCmd.Flags().StringVar(&preprocessText, "text", "", "text to process instead of stdin")
}

func runPreprocess(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel)

	text, err := inputText(preprocessText, cmd.InOrStdin())
	if err != nil {
		return err
	}

	pipeline, closePipeline, err := buildPipeline(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer closePipeline()

	var result preprocess.Result
	if strings.TrimSpace(preprocessStages) == "" {
		result = pipeline.Preprocess(cmd.Context(), text)
	} else {
		if err := preprocess.ValidateStages(preprocessStages); err != nil {
			return err
		}
		result, err = pipeline.RunStages(cmd.Context(), text, preprocess.ParseStages(preprocessStages, logger))
		if err != nil {
			return err
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// inputText prefers the flag value and falls back to reading stdin.
func inputText(flagValue string, stdin io.Reader) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if file, ok := stdin.(*os.File); ok {
		if info, err := file.Stat(); err == nil && info.Mode()&os.ModeCharDevice != 0 {
			return "", fmt.Errorf("no input: pass --text or pipe text on stdin")
		}
	}
	raw, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimRight(string(raw), "\n"), nil
}

package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/iago/telegram-voice-bot/internal/config"
)

var (
	envFile string

	rootCmd = &cobra.Command{
		Use:           "voicebot",
		Short:         "Telegram bot that answers text messages with voice",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "env file whose values override the process environment")
	rootCmd.AddCommand(serveCmd, preprocessCmd, synthCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "voicebot:", err)
		os.Exit(1)
	}
}

// loadConfig merges .env files into the environment and parses it. An
// explicit --env-file wins over the environment; the default files do not.
func loadConfig() (config.Config, error) {
	if strings.TrimSpace(envFile) != "" {
		if err := config.OverrideDotEnv(envFile); err != nil {
			return config.Config{}, fmt.Errorf("load env file: %w", err)
		}
	} else if err := config.LoadDotEnv(".env", ".env.local"); err != nil {
		return config.Config{}, fmt.Errorf("load .env files: %w", err)
	}
	return config.Load()
}

func newLogger(level string) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          "voicebot",
	})
	parsed, err := log.ParseLevel(level)
	if err != nil {
		parsed = log.InfoLevel
	}
	logger.SetLevel(parsed)
	return logger
}

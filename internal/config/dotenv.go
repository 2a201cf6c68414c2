package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

// LoadDotEnv merges the given .env files into the process environment.
// Missing files are skipped and variables already set keep precedence.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		err := applyDotEnv(path, false)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// OverrideDotEnv applies an explicitly chosen env file. Its values win over
// the process environment and a missing file is an error.
func OverrideDotEnv(path string) error {
	return applyDotEnv(strings.TrimSpace(path), true)
}

func applyDotEnv(path string, override bool) error {
	entries, err := readDotEnv(path)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if _, exists := os.LookupEnv(entry.key); exists && !override {
			continue
		}
		if err := os.Setenv(entry.key, entry.value); err != nil {
			return fmt.Errorf("set %s from %s: %w", entry.key, path, err)
		}
	}
	return nil
}

type dotEnvEntry struct {
	key   string
	value string
}

func readDotEnv(path string) ([]dotEnvEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var entries []dotEnvEntry
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))

		key, value, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		entries = append(entries, dotEnvEntry{key: key, value: dotEnvValue(value)})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return entries, nil
}

var doubleQuoteEscapes = strings.NewReplacer(
	`\\`, `\`,
	`\n`, "\n",
	`\r`, "\r",
	`\t`, "\t",
	`\"`, `"`,
)

func dotEnvValue(raw string) string {
	value := strings.TrimSpace(raw)
	if len(value) >= 2 {
		switch quote := value[0]; {
		case quote == '"' && value[len(value)-1] == '"':
			return doubleQuoteEscapes.Replace(value[1 : len(value)-1])
		case quote == '\'' && value[len(value)-1] == '\'':
			return value[1 : len(value)-1]
		}
	}
	// VALUE # comment
	if index := strings.Index(value, " #"); index >= 0 {
		return strings.TrimSpace(value[:index])
	}
	return value
}

package bot

import (
	"strings"
	"unicode/utf8"
)

const DefaultMaxChars = 2000

// ValidateText checks the raw body. Length is counted in characters.
func ValidateText(text string, limit int) error {
	if limit <= 0 {
		limit = DefaultMaxChars
	}
	if strings.TrimSpace(text) == "" {
		return &InputError{Kind: InputEmpty}
	}
	if utf8.RuneCountInString(strings.TrimSpace(text)) > limit {
		return &InputError{Kind: InputTooLong, Limit: limit}
	}
	return nil
}

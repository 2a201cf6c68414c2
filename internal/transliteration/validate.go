package transliteration

import "regexp"

var allowedOutput = regexp.MustCompile(`^[а-яА-ЯёЁіІїЇєЄґҐ\s\d.,!?;:\-—–"'“”‘’„«»()\[\]+]+$`)

// ValidResponse reports whether text uses only Cyrillic letters, digits,
// whitespace, punctuation, quotes, brackets and the stress mark.
func ValidResponse(text string) bool {
	return allowedOutput.MatchString(text)
}

func sample(text string) string {
	runes := []rune(text)
	if len(runes) > 80 {
		return string(runes[:80]) + "…"
	}
	return text
}

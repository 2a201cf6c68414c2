package textnorm

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

var (
	urlPattern   = regexp.MustCompile(`https?://\S+`)
	blankRun     = regexp.MustCompile(`[ \t]+`)
	sentenceEnds = ".!?…"
	paragraphSep = "\n\n"
	pauseMarker  = " ... "
)

// Basic applies the cleanup every text gets before any dictionary stage:
// NFC, URL removal, emoji handling, line capitalization and paragraph periods.
func Basic(text string) string {
	text = norm.NFC.String(text)
	text = RemoveURLs(text)

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		line = RemoveEmojis(ReplaceLeadingEmoji(line))
		lines[i] = collapseBlanks(line)
	}
	lines = CapitalizeLines(lines)
	lines = EnsureParagraphPeriods(lines)
	return strings.Join(lines, "\n")
}

// RemoveURLs drops http(s) links and normalizes the whitespace left behind.
func RemoveURLs(text string) string {
	text = urlPattern.ReplaceAllString(text, "")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = collapseBlanks(line)
	}
	return strings.Join(lines, "\n")
}

func collapseBlanks(line string) string {
	return strings.TrimSpace(blankRun.ReplaceAllString(line, " "))
}

// CapitalizeLines upper-cases the first rune of every non-blank line.
func CapitalizeLines(lines []string) []string {
	result := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			result = append(result, line)
			continue
		}
		first, size := utf8.DecodeRuneInString(trimmed)
		result = append(result, string(unicode.ToUpper(first))+trimmed[size:])
	}
	return result
}

// EnsureParagraphPeriods appends a period to the last non-blank line of each
// blank-line separated paragraph unless it already ends a sentence.
func EnsureParagraphPeriods(lines []string) []string {
	result := make([]string, 0, len(lines))
	paragraph := make([]string, 0, 8)

	flush := func() {
		if len(paragraph) == 0 {
			return
		}
		for i := len(paragraph) - 1; i >= 0; i-- {
			if strings.TrimSpace(paragraph[i]) == "" {
				continue
			}
			line := strings.TrimRightFunc(paragraph[i], unicode.IsSpace)
			last, _ := utf8.DecodeLastRuneInString(line)
			if !strings.ContainsRune(sentenceEnds, last) {
				line += "."
			}
			paragraph[i] = line
			break
		}
		result = append(result, paragraph...)
		paragraph = paragraph[:0]
	}

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			flush()
			result = append(result, line)
			continue
		}
		paragraph = append(paragraph, line)
	}
	flush()
	return result
}

// ParagraphPauses joins paragraphs with an explicit spoken pause marker.
// Engines tend to ignore bare blank lines.
func ParagraphPauses(text string) string {
	if text == "" {
		return text
	}
	parts := strings.Split(text, paragraphSep)
	paragraphs := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			paragraphs = append(paragraphs, trimmed)
		}
	}
	if len(paragraphs) <= 1 {
		return text
	}
	return strings.Join(paragraphs, pauseMarker)
}

package textnorm

import (
	"strings"
	"unicode/utf8"
)

type runeRange struct {
	lo, hi rune
}

// emojiRanges lists code points dropped before synthesis: pictographs,
// dingbats, arrows, geometric shapes, keycap and variation selectors.
var emojiRanges = []runeRange{
	{0x200D, 0x200D},
	{0x20E3, 0x20E3},
	{0x2100, 0x21FF},
	{0x2300, 0x23FF},
	{0x25A0, 0x25FF},
	{0x2600, 0x26FF},
	{0x2700, 0x27BF},
	{0xFE0F, 0xFE0F},
	{0x1F000, 0x1FBFF},
}

func IsEmoji(r rune) bool {
	for _, span := range emojiRanges {
		if r >= span.lo && r <= span.hi {
			return true
		}
	}
	return false
}

// ReplaceLeadingEmoji turns a single leading emoji into a dash so list-like
// bullets keep a spoken pause.
func ReplaceLeadingEmoji(line string) string {
	first, size := utf8.DecodeRuneInString(line)
	if size == 0 || !IsEmoji(first) {
		return line
	}
	return "-" + line[size:]
}

func RemoveEmojis(text string) string {
	if strings.IndexFunc(text, IsEmoji) < 0 {
		return text
	}
	return strings.Map(func(r rune) rune {
		if IsEmoji(r) {
			return -1
		}
		return r
	}, text)
}

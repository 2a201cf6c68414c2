package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBasic(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "paragraphs", in: "привет\n\nкак дела", want: "Привет.\n\nКак дела."},
		{name: "leading emoji becomes dash", in: "😀привет 😀мир", want: "-привет мир."},
		{name: "only emoji", in: "😀😁", want: "-."},
		{name: "url at end", in: "ссылка: http://test.ru", want: "Ссылка:."},
		{name: "url in middle", in: "смотри https://example.com тут", want: "Смотри тут."},
		{name: "sentence end kept", in: "готово!", want: "Готово!"},
		{name: "ellipsis kept", in: "ну…", want: "Ну…"},
		{name: "blank runs collapse", in: "  много \t пробелов  ", want: "Много пробелов."},
		{name: "period only on last line", in: "первая\nвторая", want: "Первая\nВторая."},
		{name: "empty", in: "", want: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Basic(tc.in))
		})
	}
}

func TestBasicIsFixpoint(t *testing.T) {
	inputs := []string{
		"привет\n\nкак дела",
		"😀привет 😀мир",
		"😀😁",
		"первая строка\nвторая\n\n\n\nтретья?",
		"смотри https://example.com тут и http://a.b",
		"élan vital",
	}
	for _, in := range inputs {
		once := Basic(in)
		assert.Equal(t, once, Basic(once), "input %q", in)
	}
}

func TestParagraphPauses(t *testing.T) {
	assert.Equal(t, "Раз. ... Два.", ParagraphPauses("Раз.\n\nДва."))
	assert.Equal(t, "Один абзац.", ParagraphPauses("Один абзац."))
	assert.Equal(t, "Раз. ... Два.", ParagraphPauses("Раз.\n\n   \n\nДва."))
}

func TestEmojiHelpers(t *testing.T) {
	assert.True(t, IsEmoji('😀'))
	assert.False(t, IsEmoji('ж'))
	assert.Equal(t, "- текст", ReplaceLeadingEmoji("✅ текст"))
	assert.Equal(t, "текст", ReplaceLeadingEmoji("текст"))
	assert.Equal(t, "ab", RemoveEmojis("a😀b"))
}

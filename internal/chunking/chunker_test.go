package chunking

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type runeCounter struct{}

func (runeCounter) Count(text string) int { return utf8.RuneCountInString(text) }

func TestSplitKeepsSmallTextTogether(t *testing.T) {
	text := "Первый абзац.\n\nВторой абзац."
	chunks := Split(text, 1000, 1000, EstimateCounter{})

	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0].Text)
	assert.Equal(t, 0, chunks[0].Start)
	assert.Equal(t, len(text), chunks[0].End)
}

func TestSplitClosesChunkAtMinChars(t *testing.T) {
	text := "a\n\nb\n\nc"
	chunks := Split(text, 1, 1000, EstimateCounter{})

	require.Len(t, chunks, 3)
	assert.Equal(t, []string{"a", "b", "c"}, texts(chunks))
}

func TestSplitClosesChunkAtTokenLimit(t *testing.T) {
	text := "aaaaaa\n\nbbbbbb\n\ncc"
	chunks := Split(text, 1000, 10, runeCounter{})

	require.Len(t, chunks, 3)
	assert.Equal(t, []string{"aaaaaa", "bbbbbb", "cc"}, texts(chunks))
}

func TestSplitSkipsBlankParagraphs(t *testing.T) {
	text := "\n\nодин\n\n   \n\nдва"
	chunks := Split(text, 1000, 1000, EstimateCounter{})

	require.Len(t, chunks, 1)
	assert.Equal(t, "один\n\nдва", chunks[0].Text)
}

func TestSplitWithoutParagraphs(t *testing.T) {
	chunks := Split("   ", 10, 10, EstimateCounter{})
	require.Len(t, chunks, 1)
	assert.Equal(t, Chunk{Text: "   ", Start: 0, End: 3}, chunks[0])

	chunks = Split("", 10, 10, nil)
	require.Len(t, chunks, 1)
	assert.Equal(t, Chunk{}, chunks[0])
}

func TestSplitSpansPartitionInput(t *testing.T) {
	paragraphs := []string{"Раз два три.", "Четыре пять.", "", "Шесть.", "Семь восемь девять десять."}
	text := strings.Join(paragraphs, "\n\n")

	chunks := Split(text, 20, 1000, EstimateCounter{})
	require.NotEmpty(t, chunks)

	assert.Equal(t, 0, chunks[0].Start)
	assert.Equal(t, len(text), chunks[len(chunks)-1].End)
	for i := 1; i < len(chunks); i++ {
		assert.Equal(t, chunks[i-1].End, chunks[i].Start)
	}
	for _, chunk := range chunks {
		assert.NotEmpty(t, strings.TrimSpace(chunk.Text))
		assert.Contains(t, text[chunk.Start:chunk.End], chunk.Text)
	}

	nonBlank := []string{"Раз два три.", "Четыре пять.", "Шесть.", "Семь восемь девять десять."}
	assert.Equal(t, strings.Join(nonBlank, "\n\n"), Join(texts(chunks)))
}

func TestEstimateCounter(t *testing.T) {
	assert.Equal(t, 0, EstimateCounter{}.Count("  "))
	assert.Equal(t, 1, EstimateCounter{}.Count("ab"))
	assert.Equal(t, 2, EstimateCounter{}.Count("абвгдежз"))
}

func TestTiktokenCounter(t *testing.T) {
	counter, err := NewTiktokenCounter("")
	require.NoError(t, err)

	assert.Equal(t, 0, counter.Count(""))
	assert.Greater(t, counter.Count("hello world"), 0)
	assert.Greater(t, counter.Count(strings.Repeat("слово ", 50)), counter.Count("слово"))
}

func texts(chunks []Chunk) []string {
	out := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		out = append(out, chunk.Text)
	}
	return out
}

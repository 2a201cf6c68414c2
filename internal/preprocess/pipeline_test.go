package preprocess

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iago/telegram-voice-bot/internal/ai"
	"github.com/iago/telegram-voice-bot/internal/chunking"
	"github.com/iago/telegram-voice-bot/internal/transliteration"
)

type fakeTransliterator struct {
	available bool
	transform func(chunk chunking.Chunk) transliteration.ChunkResult
	calls     int
}

func (f *fakeTransliterator) Available() bool { return f.available }

func (f *fakeTransliterator) TransliterateChunks(_ context.Context, chunks []chunking.Chunk) []transliteration.ChunkResult {
	f.calls++
	results := make([]transliteration.ChunkResult, 0, len(chunks))
	for _, chunk := range chunks {
		results = append(results, f.transform(chunk))
	}
	return results
}

type failingGenerator struct{}

func (failingGenerator) Available() bool { return true }

func (failingGenerator) Generate(context.Context, ai.GenerateRequest) (ai.GenerateResult, error) {
	return ai.GenerateResult{}, &ai.ProviderError{Provider: "test", StatusCode: 503, Message: "down"}
}

func TestRunDefaultStages(t *testing.T) {
	pipeline := New(nil, nil, nil, nil, Config{})

	result, err := pipeline.Run(context.Background(), "привет\n\nкак дела")
	require.NoError(t, err)
	assert.Equal(t, "Привет.\n\nКак дела.", result.FinalText)
	assert.Equal(t, []string{"basic", "abbreviations", "symbols", "numbers", "latin_letters"}, result.StagesUsed)
	assert.False(t, result.LLMUsed)
	assert.False(t, result.FallbackUsed)
	assert.Empty(t, result.Errors)
}

func TestRunFullProgrammaticChain(t *testing.T) {
	pipeline := New(nil, nil, nil, nil, Config{})

	result, err := pipeline.Run(context.Background(), "API стоит 50% от 1500")
	require.NoError(t, err)
	assert.Equal(t, "эй пи ай стоит пятьдесят процентов от одна тысяча пятьсот.", result.FinalText)
}

func TestRunEmptyText(t *testing.T) {
	pipeline := New(nil, nil, nil, nil, Config{LLMEnabled: true})

	result, err := pipeline.Run(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "", result.FinalText)
	assert.Empty(t, result.StagesUsed)
	assert.Zero(t, result.LLMCalls)
}

func TestRunSkipsDisabledLLM(t *testing.T) {
	translit := &fakeTransliterator{available: true}
	pipeline := New(nil, translit, nil, nil, Config{Stages: []Stage{StageBasic, StageLLM}})

	result, err := pipeline.Run(context.Background(), "текст")
	require.NoError(t, err)
	assert.Equal(t, []string{"basic"}, result.StagesUsed)
	assert.Zero(t, translit.calls)
}

func TestRunLLMSuccess(t *testing.T) {
	translit := &fakeTransliterator{available: true, transform: func(chunk chunking.Chunk) transliteration.ChunkResult {
		return transliteration.ChunkResult{Text: strings.ToUpper(chunk.Text), Attempts: 1}
	}}
	pipeline := New(nil, translit, nil, nil, Config{
		Stages:        []Stage{StageLLM},
		LLMEnabled:    true,
		MinChunkChars: 1,
	})

	result, err := pipeline.Run(context.Background(), "раз\n\nдва")
	require.NoError(t, err)
	assert.Equal(t, "РАЗ\n\nДВА", result.FinalText)
	assert.True(t, result.LLMUsed)
	assert.Equal(t, 2, result.ChunksProcessed)
	assert.Equal(t, 2, result.LLMCalls)
	assert.Equal(t, []string{"llm"}, result.StagesUsed)
}

func TestRunLLMPartialFailureSubstitutesChunk(t *testing.T) {
	translit := &fakeTransliterator{available: true, transform: func(chunk chunking.Chunk) transliteration.ChunkResult {
		if chunk.Text == "два" {
			return transliteration.ChunkResult{Text: chunk.Text, Attempts: 3, Err: errors.New("boom")}
		}
		return transliteration.ChunkResult{Text: "один", Attempts: 1}
	}}
	pipeline := New(nil, translit, nil, nil, Config{Stages: []Stage{StageLLM}, LLMEnabled: true, MinChunkChars: 1})

	result, err := pipeline.Run(context.Background(), "раз\n\nдва")
	require.NoError(t, err)
	assert.Equal(t, "один\n\nдва", result.FinalText)
	assert.True(t, result.LLMUsed)
	assert.False(t, result.FallbackUsed)
	assert.Equal(t, 4, result.LLMCalls)
	assert.Len(t, result.Errors, 1)
}

func TestRunLLMExhaustedRetriesFallsBack(t *testing.T) {
	client := transliteration.NewClient(failingGenerator{}, nil, nil, transliteration.Config{
		MaxRetries:  2,
		BackoffBase: time.Millisecond,
	})
	pipeline := New(nil, client, nil, nil, Config{
		Stages:     []Stage{StageBasic, StageLLM, StageNumbers},
		LLMEnabled: true,
	})

	result, err := pipeline.Run(context.Background(), "осталось 5 минут")
	require.NoError(t, err)
	assert.True(t, result.FallbackUsed)
	assert.False(t, result.LLMUsed)
	assert.NotEmpty(t, result.Errors)
	assert.Equal(t, 3, result.LLMCalls)
	assert.Equal(t, "Осталось пять минут.", result.FinalText)
	assert.Equal(t, []string{"basic", "numbers"}, result.StagesUsed)
}

func TestRunLLMUnavailableFallsBack(t *testing.T) {
	pipeline := New(nil, &fakeTransliterator{available: false}, nil, nil, Config{
		Stages:     []Stage{StageLLM},
		LLMEnabled: true,
	})

	result, err := pipeline.Run(context.Background(), "text")
	require.NoError(t, err)
	assert.True(t, result.FallbackUsed)
	assert.Equal(t, "text", result.FinalText)
	assert.NotEmpty(t, result.Errors)
}

func TestRunCancelledContext(t *testing.T) {
	pipeline := New(nil, nil, nil, nil, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pipeline.Run(ctx, "текст")
	require.ErrorIs(t, err, context.Canceled)
}

func TestPreprocessFallsBackWithoutLLM(t *testing.T) {
	translit := &fakeTransliterator{available: true, transform: func(chunking.Chunk) transliteration.ChunkResult {
		panic("provider exploded")
	}}
	pipeline := New(nil, translit, nil, nil, Config{
		Stages:     []Stage{StageBasic, StageLLM},
		LLMEnabled: true,
	})

	result := pipeline.Preprocess(context.Background(), "текст")
	assert.Equal(t, "Текст.", result.FinalText)
	assert.True(t, result.FallbackUsed)
	assert.False(t, result.LLMUsed)
	assert.Equal(t, []string{"basic"}, result.StagesUsed)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "provider exploded")
}

func TestPreprocessSurvivesCancelledContext(t *testing.T) {
	pipeline := New(nil, nil, nil, nil, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := pipeline.Preprocess(ctx, "текст")
	assert.Equal(t, "Текст.", result.FinalText)
	assert.True(t, result.FallbackUsed)
}

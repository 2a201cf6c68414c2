package preprocess

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/charmbracelet/log"

	"github.com/iago/telegram-voice-bot/internal/chunking"
	"github.com/iago/telegram-voice-bot/internal/textnorm"
	"github.com/iago/telegram-voice-bot/internal/transliteration"
)

// Transliterator is the part of the LLM client the pipeline needs.
type Transliterator interface {
	Available() bool
	TransliterateChunks(ctx context.Context, chunks []chunking.Chunk) []transliteration.ChunkResult
}

type Config struct {
	Stages         []Stage
	LLMEnabled     bool
	MinChunkChars  int
	MaxChunkTokens int
}

type Result struct {
	FinalText       string   `json:"final_text"`
	LLMUsed         bool     `json:"llm_used"`
	ChunksProcessed int      `json:"chunks_processed"`
	LLMCalls        int      `json:"llm_calls"`
	FallbackUsed    bool     `json:"fallback_used"`
	Errors          []string `json:"errors"`
	StagesUsed      []string `json:"stages_used"`
}

var errLLMUnavailable = errors.New("llm client unavailable")

type Pipeline struct {
	stages         []Stage
	llmEnabled     bool
	minChunkChars  int
	maxChunkTokens int

	normalizer     *textnorm.Normalizer
	transliterator Transliterator
	counter        chunking.TokenCounter
	logger         *log.Logger
}

// New builds a pipeline. transliterator and counter may be nil; without a
// transliterator the llm stage always falls back.
func New(
	normalizer *textnorm.Normalizer,
	transliterator Transliterator,
	counter chunking.TokenCounter,
	logger *log.Logger,
	cfg Config,
) *Pipeline {
	if len(cfg.Stages) == 0 {
		cfg.Stages = DefaultStages()
	}
	if cfg.MinChunkChars <= 0 {
		cfg.MinChunkChars = 500
	}
	if cfg.MaxChunkTokens <= 0 {
		cfg.MaxChunkTokens = 4000
	}
	if normalizer == nil {
		normalizer = textnorm.NewNormalizer(textnorm.DefaultDictionary())
	}
	if counter == nil {
		counter = chunking.EstimateCounter{}
	}
	return &Pipeline{
		stages:         append([]Stage(nil), cfg.Stages...),
		llmEnabled:     cfg.LLMEnabled,
		minChunkChars:  cfg.MinChunkChars,
		maxChunkTokens: cfg.MaxChunkTokens,
		normalizer:     normalizer,
		transliterator: transliterator,
		counter:        counter,
		logger:         logger,
	}
}

func (p *Pipeline) Stages() []Stage {
	return append([]Stage(nil), p.stages...)
}

// Run applies the configured stages. It only fails when ctx is cancelled or
// a stage panics; LLM failures are absorbed into the result.
func (p *Pipeline) Run(ctx context.Context, text string) (Result, error) {
	return p.RunStages(ctx, text, p.stages)
}

// Preprocess never fails: when Run errors it runs again without the llm stage.
func (p *Pipeline) Preprocess(ctx context.Context, text string) Result {
	result, err := p.Run(ctx, text)
	if err == nil {
		return result
	}
	if p.logger != nil {
		p.logger.Warn("preprocessing failed, retrying without llm", "err", err)
	}

	fallback, fallbackErr := p.RunStages(context.WithoutCancel(ctx), text, WithoutLLM(p.stages))
	if fallbackErr != nil {
		return Result{
			FinalText:    text,
			FallbackUsed: true,
			Errors:       []string{err.Error(), fallbackErr.Error()},
			StagesUsed:   []string{},
		}
	}
	fallback.FallbackUsed = true
	fallback.Errors = append([]string{err.Error()}, fallback.Errors...)
	return fallback
}

func (p *Pipeline) RunStages(ctx context.Context, text string, stages []Stage) (result Result, err error) {
	result = Result{FinalText: text, Errors: []string{}, StagesUsed: []string{}}
	if text == "" {
		return result, nil
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			if p.logger != nil {
				p.logger.Error("preprocessing stage panicked", "panic", recovered, "stack", string(debug.Stack()))
			}
			err = fmt.Errorf("preprocessing panic: %v", recovered)
		}
	}()

	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		switch stage {
		case StageLLM:
			if !p.llmEnabled {
				continue
			}
			p.runLLM(ctx, &result)
			continue
		case StageBasic:
			result.FinalText = textnorm.Basic(result.FinalText)
		case StageAbbreviations:
			result.FinalText = p.normalizer.Abbreviations(result.FinalText)
		case StageSymbols:
			result.FinalText = p.normalizer.Symbols(result.FinalText)
		case StageNumbers:
			result.FinalText = textnorm.ConvertNumbers(result.FinalText)
		case StageLatinLetters:
			result.FinalText = p.normalizer.LatinLetters(result.FinalText)
		case StageParagraphPauses:
			result.FinalText = textnorm.ParagraphPauses(result.FinalText)
		default:
			continue
		}
		result.StagesUsed = append(result.StagesUsed, string(stage))
	}
	return result, nil
}

// runLLM replaces the text only when at least one chunk was transliterated.
func (p *Pipeline) runLLM(ctx context.Context, result *Result) {
	fail := func(reason error) {
		result.Errors = append(result.Errors, reason.Error())
		result.FallbackUsed = true
		if p.logger != nil {
			p.logger.Warn("llm stage failed, continuing with programmatic text", "err", reason)
		}
	}

	if p.transliterator == nil || !p.transliterator.Available() {
		fail(errLLMUnavailable)
		return
	}

	chunks := chunking.Split(result.FinalText, p.minChunkChars, p.maxChunkTokens, p.counter)
	outcomes := p.transliterator.TransliterateChunks(ctx, chunks)

	parts := make([]string, 0, len(outcomes))
	failed := 0
	for _, outcome := range outcomes {
		result.LLMCalls += outcome.Attempts
		if outcome.Err != nil {
			failed++
			result.Errors = append(result.Errors, outcome.Err.Error())
		}
		parts = append(parts, outcome.Text)
	}

	if failed == len(outcomes) {
		fail(fmt.Errorf("llm stage failed: all %d chunks failed", len(outcomes)))
		return
	}

	result.FinalText = chunking.Join(parts)
	result.ChunksProcessed = len(chunks)
	result.LLMUsed = true
	result.StagesUsed = append(result.StagesUsed, string(StageLLM))
}

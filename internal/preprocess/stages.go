package preprocess

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
)

type Stage string

const (
	StageBasic           Stage = "basic"
	StageAbbreviations   Stage = "abbreviations"
	StageSymbols         Stage = "symbols"
	StageNumbers         Stage = "numbers"
	StageLatinLetters    Stage = "latin_letters"
	StageParagraphPauses Stage = "paragraph_pauses"
	StageLLM             Stage = "llm"
)

var knownStages = map[Stage]struct{}{
	StageBasic:           {},
	StageAbbreviations:   {},
	StageSymbols:         {},
	StageNumbers:         {},
	StageLatinLetters:    {},
	StageParagraphPauses: {},
	StageLLM:             {},
}

// DefaultStages is used when nothing valid was configured.
func DefaultStages() []Stage {
	return []Stage{StageBasic, StageAbbreviations, StageSymbols, StageNumbers, StageLatinLetters}
}

func (s Stage) Valid() bool {
	_, ok := knownStages[s]
	return ok
}

// ParseStages reads a comma separated stage list. Unknown names are dropped
// with a warning; an empty result falls back to DefaultStages.
func ParseStages(raw string, logger *log.Logger) []Stage {
	stages, unknown := splitStages(raw)
	if len(unknown) > 0 && logger != nil {
		logger.Warn("unknown preprocessing stages ignored", "stages", strings.Join(unknown, ","), "valid", validNames())
	}
	if len(stages) == 0 {
		return DefaultStages()
	}
	return stages
}

// ValidateStages is the strict variant used at startup.
func ValidateStages(raw string) error {
	_, unknown := splitStages(raw)
	if len(unknown) > 0 {
		return fmt.Errorf("unknown preprocessing stages %s (valid: %s)", strings.Join(unknown, ","), validNames())
	}
	return nil
}

// WithoutLLM returns a copy of stages with the llm stage removed.
func WithoutLLM(stages []Stage) []Stage {
	out := make([]Stage, 0, len(stages))
	for _, stage := range stages {
		if stage != StageLLM {
			out = append(out, stage)
		}
	}
	return out
}

func splitStages(raw string) ([]Stage, []string) {
	stages := make([]Stage, 0, len(knownStages))
	unknown := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		stage := Stage(name)
		if !stage.Valid() {
			unknown = append(unknown, name)
			continue
		}
		stages = append(stages, stage)
	}
	return stages, unknown
}

func validNames() string {
	return "basic,abbreviations,symbols,numbers,latin_letters,paragraph_pauses,llm"
}

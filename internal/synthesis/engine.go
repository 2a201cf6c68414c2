package synthesis

import (
	"fmt"
	"strings"
)

type EngineConfig struct {
	Engine string
	Stub   StubConfig
	Piper  PiperConfig
	Polly  PollyConfig
}

// NewEngine returns the synthesizer selected by cfg.Engine.
func NewEngine(cfg EngineConfig) (Synthesizer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Engine)) {
	case "", "stub":
		return NewStubSynthesizer(cfg.Stub), nil
	case "piper":
		return NewPiperSynthesizer(cfg.Piper), nil
	case "polly":
		return NewPollySynthesizer(cfg.Polly), nil
	default:
		return nil, fmt.Errorf("unknown synthesis engine %q", cfg.Engine)
	}
}

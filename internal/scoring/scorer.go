package scoring

import (
	"context"
	"fmt"
	"strings"
)

// Mode names a scoring strategy.
type Mode string

const (
	ModeLength           Mode = "length"
	ModeSimilarity       Mode = "similarity"
	ModePromptSimilarity Mode = "prompt_similarity"
	ModeQuality          Mode = "quality"
)

// ParseMode converts a configuration value into a Mode.
func ParseMode(value string) (Mode, error) {
	mode := Mode(strings.ToLower(strings.TrimSpace(value)))
	switch mode {
	case ModeLength, ModeSimilarity, ModePromptSimilarity, ModeQuality:
		return mode, nil
	case "":
		return ModeLength, nil
	default:
		return "", fmt.Errorf("unknown scoring mode %q", value)
	}
}

// Input carries every content field a scorer may need. Which fields are
// required depends on the scorer; see Scorer.RequiredFields.
type Input struct {
	Name                 string `json:"name" validate:"required"`
	Prompt               string `json:"prompt" validate:"required"`
	SystemOutput         string `json:"system_output" validate:"required"`
	ReferenceTranslation string `json:"reference_translation" validate:"required"`
	SourceText           string `json:"source_text" validate:"required"`
	SystemPrompt         string `json:"system_prompt" validate:"required"`
}

// Trimmed returns a copy with surrounding whitespace removed from every field.
func (in Input) Trimmed() Input {
	return Input{
		Name:                 strings.TrimSpace(in.Name),
		Prompt:               strings.TrimSpace(in.Prompt),
		SystemOutput:         strings.TrimSpace(in.SystemOutput),
		ReferenceTranslation: strings.TrimSpace(in.ReferenceTranslation),
		SourceText:           strings.TrimSpace(in.SourceText),
		SystemPrompt:         strings.TrimSpace(in.SystemPrompt),
	}
}

// Result is the outcome of a successful scoring call.
type Result struct {
	Score     float64
	LLMOutput string
	Details   map[string]interface{}
}

// Scorer maps submitted content to a numeric score.
type Scorer interface {
	Mode() Mode
	// RequiredFields lists the Input struct fields that must be non-empty.
	RequiredFields() []string
	Score(ctx context.Context, in Input) (Result, error)
}

package scoring

import (
	"context"
	"strings"
	"unicode/utf8"
)

// LengthScorer scores a prompt by its character count.
type LengthScorer struct{}

// NewLengthScorer returns the length scorer.
func NewLengthScorer() LengthScorer {
	return LengthScorer{}
}

func (LengthScorer) Mode() Mode {
	return ModeLength
}

func (LengthScorer) RequiredFields() []string {
	return []string{"Name", "Prompt"}
}

func (LengthScorer) Score(_ context.Context, in Input) (Result, error) {
	return Result{Score: float64(utf8.RuneCountInString(strings.TrimSpace(in.Prompt)))}, nil
}

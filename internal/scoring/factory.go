package scoring

import (
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/noah-isme/prompt-arena/pkg/ai"
)

// Dependencies are the externally constructed collaborators a scorer may need.
type Dependencies struct {
	Comparer  Comparer
	Generator ai.Generator
	Predictor Predictor
	Challenge Challenge
	Timeout   time.Duration
	Limiter   *rate.Limiter
}

// New builds the scorer for mode.
func New(mode Mode, deps Dependencies) (Scorer, error) {
	switch mode {
	case ModeLength:
		return NewLengthScorer(), nil
	case ModeSimilarity:
		return NewSimilarityScorer(deps.Comparer, SimilarityOptions{
			Timeout: deps.Timeout,
			Limiter: deps.Limiter,
		}), nil
	case ModePromptSimilarity:
		return NewPromptSimilarityScorer(deps.Comparer, SimilarityOptions{
			Generator: deps.Generator,
			Reference: deps.Challenge.Reference,
			Timeout:   deps.Timeout,
			Limiter:   deps.Limiter,
		}), nil
	case ModeQuality:
		if deps.Predictor == nil {
			return nil, fmt.Errorf("quality scorer requires a loaded predictor")
		}
		return NewQualityScorer(deps.Predictor, deps.Timeout, deps.Limiter), nil
	default:
		return nil, fmt.Errorf("unknown scoring mode %q", mode)
	}
}

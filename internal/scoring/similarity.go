package scoring

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/noah-isme/prompt-arena/pkg/ai"
)

// Comparer computes semantic similarity between two texts.
type Comparer interface {
	Similarity(ctx context.Context, req ai.SimilarityRequest) (float64, error)
	CheckCredentials() error
}

// SimilarityOptions configures a SimilarityScorer.
type SimilarityOptions struct {
	// Generator enables the two-stage flow: the submitted text is first sent to
	// the model and its answer is compared to Reference.
	Generator ai.Generator
	Reference string
	Timeout   time.Duration
	Limiter   *rate.Limiter
}

// SimilarityScorer scores text by its embedding similarity to a reference.
type SimilarityScorer struct {
	comparer  Comparer
	generator ai.Generator
	reference string
	generate  bool
	policy    callPolicy
}

// NewSimilarityScorer compares system_output directly against the submitted reference translation.
func NewSimilarityScorer(comparer Comparer, opts SimilarityOptions) *SimilarityScorer {
	return &SimilarityScorer{
		comparer: comparer,
		policy:   newCallPolicy(opts.Timeout, opts.Limiter),
	}
}

// NewPromptSimilarityScorer first generates an answer from system_output under
// the submitted system prompt, then compares that answer to the fixed reference.
func NewPromptSimilarityScorer(comparer Comparer, opts SimilarityOptions) *SimilarityScorer {
	return &SimilarityScorer{
		comparer:  comparer,
		generator: opts.Generator,
		reference: opts.Reference,
		generate:  true,
		policy:    newCallPolicy(opts.Timeout, opts.Limiter),
	}
}

func (s *SimilarityScorer) twoStage() bool {
	return s.generate
}

func (s *SimilarityScorer) Mode() Mode {
	if s.twoStage() {
		return ModePromptSimilarity
	}
	return ModeSimilarity
}

func (s *SimilarityScorer) RequiredFields() []string {
	if s.twoStage() {
		return []string{"Name", "SystemOutput", "SystemPrompt"}
	}
	return []string{"Name", "SystemOutput", "ReferenceTranslation"}
}

func (s *SimilarityScorer) Score(ctx context.Context, in Input) (Result, error) {
	if err := s.checkConfigured(); err != nil {
		return Result{}, err
	}

	if !s.twoStage() {
		score, err := s.compare(ctx, in.ReferenceTranslation, in.SystemOutput)
		if err != nil {
			return Result{}, err
		}
		return Result{Score: score}, nil
	}

	genCtx, cancel, err := s.policy.begin(ctx, "generate")
	if err != nil {
		return Result{}, err
	}
	generated, err := s.generator.Generate(genCtx, ai.GenerateRequest{
		Prompt:       in.SystemOutput,
		SystemPrompt: in.SystemPrompt,
	})
	cancel()
	if err != nil {
		return Result{}, err
	}

	score, err := s.compare(ctx, s.reference, generated.Text)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Score:     score,
		LLMOutput: generated.Text,
		Details: map[string]interface{}{
			"provider": generated.Provider,
			"model":    generated.Model,
		},
	}, nil
}

// checkConfigured fails before any network call when a dependency is missing.
func (s *SimilarityScorer) checkConfigured() error {
	if s.comparer == nil {
		return ai.ConfigurationError("similarity", "similarity client is not configured")
	}
	if err := s.comparer.CheckCredentials(); err != nil {
		return err
	}
	if !s.twoStage() {
		return nil
	}
	if s.generator == nil {
		return ai.ConfigurationError("generate", "generator is not configured")
	}
	if s.reference == "" {
		return ai.ConfigurationError("similarity", "challenge reference text is not configured")
	}
	return s.generator.CheckCredentials()
}

func (s *SimilarityScorer) compare(ctx context.Context, reference, candidate string) (float64, error) {
	callCtx, cancel, err := s.policy.begin(ctx, "similarity")
	if err != nil {
		return 0, err
	}
	defer cancel()

	return s.comparer.Similarity(callCtx, ai.SimilarityRequest{Reference: reference, Candidate: candidate})
}

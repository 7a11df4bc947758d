package scoring

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/noah-isme/prompt-arena/pkg/ai"
)

// Predictor runs a loaded quality-estimation model.
type Predictor interface {
	Predict(ctx context.Context, req ai.QualityRequest) (float64, error)
	Model() string
}

// QualityScorer scores a translation with a learned quality-estimation metric.
// The predictor is built once at startup and shared by every request.
type QualityScorer struct {
	predictor Predictor
	policy    callPolicy
}

// NewQualityScorer wraps a loaded predictor.
func NewQualityScorer(predictor Predictor, timeout time.Duration, limiter *rate.Limiter) *QualityScorer {
	return &QualityScorer{
		predictor: predictor,
		policy:    newCallPolicy(timeout, limiter),
	}
}

func (s *QualityScorer) Mode() Mode {
	return ModeQuality
}

func (s *QualityScorer) RequiredFields() []string {
	return []string{"Name", "SourceText", "SystemOutput", "ReferenceTranslation"}
}

func (s *QualityScorer) Score(ctx context.Context, in Input) (Result, error) {
	if s.predictor == nil {
		return Result{}, ai.ConfigurationError("quality predict", "quality model is not loaded")
	}

	callCtx, cancel, err := s.policy.begin(ctx, "quality predict")
	if err != nil {
		return Result{}, err
	}
	defer cancel()

	score, err := s.predictor.Predict(callCtx, ai.QualityRequest{
		Source:     in.SourceText,
		Hypothesis: in.SystemOutput,
		Reference:  in.ReferenceTranslation,
	})
	if err != nil {
		if ai.KindOf(err) == "" {
			err = ai.EvaluationError("quality predict", err)
		}
		return Result{}, err
	}

	return Result{
		Score:   score,
		Details: map[string]interface{}{"model": s.predictor.Model()},
	}, nil
}

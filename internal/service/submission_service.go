package service

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/noah-isme/prompt-arena/internal/dto"
	"github.com/noah-isme/prompt-arena/internal/middleware"
	"github.com/noah-isme/prompt-arena/internal/models"
	"github.com/noah-isme/prompt-arena/internal/observability"
	"github.com/noah-isme/prompt-arena/internal/repository"
	"github.com/noah-isme/prompt-arena/internal/scoring"
	"github.com/noah-isme/prompt-arena/pkg/ai"
)

// SubmissionSuccessMessage is returned with every stored submission.
const SubmissionSuccessMessage = "Submission successful!"

// SubmissionService validates, scores and stores submissions.
type SubmissionService interface {
	Mode() scoring.Mode
	// Prepare validates and scores input without storing it.
	Prepare(ctx context.Context, input scoring.Input) (models.Submission, error)
	Submit(ctx context.Context, req dto.SubmitRequest) (dto.SubmitResponse, error)
}

type submissionService struct {
	repo      repository.SubmissionRepository
	scorer    scoring.Scorer
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewSubmissionService constructs the submission pipeline around a scorer.
func NewSubmissionService(repo repository.SubmissionRepository, scorer scoring.Scorer, validate *validator.Validate, logger zerolog.Logger) SubmissionService {
	if validate == nil {
		validate = validator.New(validator.WithRequiredStructEnabled())
	}
	return &submissionService{
		repo:      repo,
		scorer:    scorer,
		validator: validate,
		logger:    logger.With().Str("component", "submission_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/prompt-arena/internal/service/submission"),
	}
}

func (s *submissionService) Mode() scoring.Mode {
	return s.scorer.Mode()
}

func (s *submissionService) Prepare(ctx context.Context, input scoring.Input) (models.Submission, error) {
	mode := s.scorer.Mode()
	input = input.Trimmed()

	if err := s.validate(input); err != nil {
		observability.Submissions().WithLabelValues(string(mode), string(ai.KindValidation)).Inc()
		return models.Submission{}, err
	}

	spanCtx, span := s.tracer.Start(ctx, "submission.score", trace.WithAttributes(
		attribute.String("scoring.mode", string(mode)),
		attribute.String("correlation_id", middleware.CorrelationIDFromContext(ctx)),
	))
	defer span.End()

	start := time.Now()
	result, err := s.scorer.Score(spanCtx, input)
	observability.ScoringLatency().WithLabelValues(string(mode)).Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "scoring failed")
		observability.Submissions().WithLabelValues(string(mode), outcomeLabel(err)).Inc()
		s.logger.Warn().
			Err(err).
			Str("mode", string(mode)).
			Str("kind", string(ai.KindOf(err))).
			Str("correlation_id", middleware.CorrelationIDFromContext(ctx)).
			Msg("scoring failed")
		return models.Submission{}, err
	}

	submission := models.Submission{
		Name:                 input.Name,
		Prompt:               input.Prompt,
		SystemOutput:         input.SystemOutput,
		ReferenceTranslation: input.ReferenceTranslation,
		SourceText:           input.SourceText,
		SystemPrompt:         input.SystemPrompt,
		LLMOutput:            result.LLMOutput,
		Score:                result.Score,
		Mode:                 string(mode),
	}
	if len(result.Details) > 0 {
		submission.Details = datatypes.JSONMap(result.Details)
	}

	return submission, nil
}

func (s *submissionService) Submit(ctx context.Context, req dto.SubmitRequest) (dto.SubmitResponse, error) {
	submission, err := s.Prepare(ctx, req.ScoringInput())
	if err != nil {
		return dto.SubmitResponse{}, err
	}

	if err := s.repo.Append(ctx, &submission); err != nil {
		observability.Submissions().WithLabelValues(submission.Mode, "store").Inc()
		return dto.SubmitResponse{}, err
	}

	observability.Submissions().WithLabelValues(submission.Mode, "ok").Inc()
	s.logger.Info().
		Uint("submission_id", submission.ID).
		Str("name", submission.Name).
		Float64("score", submission.Score).
		Str("mode", submission.Mode).
		Str("correlation_id", middleware.CorrelationIDFromContext(ctx)).
		Msg("submission stored")

	return dto.SubmitResponse{
		Message:   SubmissionSuccessMessage,
		Score:     submission.Score,
		LLMOutput: submission.LLMOutput,
	}, nil
}

// validate checks only the fields the active scorer needs.
func (s *submissionService) validate(input scoring.Input) error {
	err := s.validator.StructPartial(input, s.scorer.RequiredFields()...)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return ai.ValidationError(err.Error())
	}

	missing := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		missing = append(missing, jsonFieldName(fieldErr.StructField()))
	}
	return ai.ValidationError("missing required field: " + strings.Join(missing, ", "))
}

var inputType = reflect.TypeOf(scoring.Input{})

func jsonFieldName(structField string) string {
	field, ok := inputType.FieldByName(structField)
	if !ok {
		return structField
	}
	name := strings.Split(field.Tag.Get("json"), ",")[0]
	if name == "" {
		return structField
	}
	return name
}

func outcomeLabel(err error) string {
	if kind := ai.KindOf(err); kind != "" {
		return string(kind)
	}
	return "unknown"
}

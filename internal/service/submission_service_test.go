package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/prompt-arena/internal/dto"
	"github.com/noah-isme/prompt-arena/internal/models"
	"github.com/noah-isme/prompt-arena/internal/repository"
	"github.com/noah-isme/prompt-arena/internal/scoring"
	"github.com/noah-isme/prompt-arena/pkg/ai"
)

type countingScorer struct {
	mode     scoring.Mode
	required []string
	result   scoring.Result
	err      error
	calls    int
}

func (s *countingScorer) Mode() scoring.Mode {
	return s.mode
}

func (s *countingScorer) RequiredFields() []string {
	return s.required
}

func (s *countingScorer) Score(context.Context, scoring.Input) (scoring.Result, error) {
	s.calls++
	return s.result, s.err
}

func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Submission{}))
	return db
}

func newTestSubmissionService(t *testing.T, scorer scoring.Scorer) (SubmissionService, repository.SubmissionRepository) {
	t.Helper()
	repo := repository.NewSubmissionRepository(setupServiceTestDB(t))
	validate := validator.New(validator.WithRequiredStructEnabled())
	return NewSubmissionService(repo, scorer, validate, zerolog.New(io.Discard)), repo
}

func TestSubmissionServiceScoresAndStoresLength(t *testing.T) {
	svc, repo := newTestSubmissionService(t, scoring.NewLengthScorer())

	resp, err := svc.Submit(context.Background(), dto.SubmitRequest{Name: "  Alice ", Prompt: "  hello  "})
	require.NoError(t, err)
	require.Equal(t, SubmissionSuccessMessage, resp.Message)
	require.Equal(t, 5.0, resp.Score)
	require.Empty(t, resp.LLMOutput)

	stored, err := repo.TopByScore(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.Equal(t, "Alice", stored[0].Name)
	require.Equal(t, "hello", stored[0].Prompt)
	require.Equal(t, "length", stored[0].Mode)
}

func TestSubmissionServiceRejectsMissingFieldsWithoutSideEffects(t *testing.T) {
	scorer := &countingScorer{
		mode:     scoring.ModeSimilarity,
		required: []string{"Name", "SystemOutput", "ReferenceTranslation"},
		result:   scoring.Result{Score: 0.5},
	}
	svc, repo := newTestSubmissionService(t, scorer)

	cases := []dto.SubmitRequest{
		{Name: "", SystemOutput: "a", ReferenceTranslation: "b"},
		{Name: "   ", SystemOutput: "a", ReferenceTranslation: "b"},
		{Name: "n", SystemOutput: " \t ", ReferenceTranslation: "b"},
		{Name: "n", SystemOutput: "a"},
	}
	for _, req := range cases {
		_, err := svc.Submit(context.Background(), req)
		require.Error(t, err)
		require.Equal(t, ai.KindValidation, ai.KindOf(err))
		require.Equal(t, http.StatusBadRequest, StatusForError(err))
		require.Contains(t, err.Error(), "missing required field")
	}

	_, err := svc.Submit(context.Background(), dto.SubmitRequest{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "name")
	require.Contains(t, err.Error(), "system_output")
	require.Contains(t, err.Error(), "reference_translation")

	require.Zero(t, scorer.calls)
	total, err := repo.Count(context.Background())
	require.NoError(t, err)
	require.Zero(t, total)
}

func TestSubmissionServiceIdenticalSubmissionsAreDistinct(t *testing.T) {
	svc, repo := newTestSubmissionService(t, scoring.NewLengthScorer())

	for i := 0; i < 2; i++ {
		_, err := svc.Submit(context.Background(), dto.SubmitRequest{Name: "Alice", Prompt: "hello"})
		require.NoError(t, err)
	}

	stored, err := repo.TopByScore(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	require.NotEqual(t, stored[0].ID, stored[1].ID)
}

func TestSubmissionServiceScorerFailuresStoreNothing(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"missing credential", ai.ConfigurationError("similarity", "similarity api key is not set"), http.StatusInternalServerError},
		{"unreachable", ai.NetworkError("similarity", errors.New("dial tcp 127.0.0.1:1: connect: connection refused")), http.StatusBadGateway},
		{"bad payload", ai.ResponseFormatError("similarity", http.StatusServiceUnavailable, "model loading"), http.StatusInternalServerError},
		{"evaluation", ai.EvaluationError("quality predict", errors.New("boom")), http.StatusInternalServerError},
		{"untagged", errors.New("unexpected"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			scorer := &countingScorer{
				mode:     scoring.ModeSimilarity,
				required: []string{"Name", "SystemOutput", "ReferenceTranslation"},
				err:      tc.err,
			}
			svc, repo := newTestSubmissionService(t, scorer)

			_, err := svc.Submit(context.Background(), dto.SubmitRequest{Name: "n", SystemOutput: "a", ReferenceTranslation: "b"})
			require.Error(t, err)
			require.Equal(t, tc.status, StatusForError(err))
			require.Equal(t, 1, scorer.calls)

			total, err := repo.Count(context.Background())
			require.NoError(t, err)
			require.Zero(t, total)
		})
	}
}

func TestSubmissionServiceKeepsGeneratedOutput(t *testing.T) {
	scorer := &countingScorer{
		mode:     scoring.ModePromptSimilarity,
		required: []string{"Name", "SystemOutput", "SystemPrompt"},
		result: scoring.Result{
			Score:     0.93,
			LLMOutput: "Can it be delivered in 10 to 15 minutes?",
			Details:   map[string]interface{}{"provider": "openai", "model": "gpt-4o-mini"},
		},
	}
	svc, repo := newTestSubmissionService(t, scorer)

	resp, err := svc.Submit(context.Background(), dto.SubmitRequest{Name: "n", SystemOutput: "Peut-on livrer ?", SystemPrompt: "Translate"})
	require.NoError(t, err)
	require.Equal(t, "Can it be delivered in 10 to 15 minutes?", resp.LLMOutput)

	stored, err := repo.TopByScore(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, "openai", stored[0].Details["provider"])
	require.Equal(t, "prompt_similarity", stored[0].Mode)
}

func TestStatusForError(t *testing.T) {
	require.Equal(t, http.StatusOK, StatusForError(nil))
	require.Equal(t, http.StatusBadRequest, StatusForError(ai.ValidationError("missing required field: name")))
	require.Equal(t, http.StatusBadGateway, StatusForError(fmt.Errorf("wrapped: %w", ai.NetworkError("op", errors.New("x")))))
	require.Equal(t, "missing required field: name", PublicMessage(ai.ValidationError("missing required field: name")))
	require.Equal(t, "internal server error", PublicMessage(errors.New("secret detail")))
}

func TestLeaderboardServiceProjectsAndClamps(t *testing.T) {
	repo := repository.NewMemorySubmissionRepository(0)
	ctx := context.Background()
	for i := 1; i <= 15; i++ {
		require.NoError(t, repo.Append(ctx, &models.Submission{
			Name:         fmt.Sprintf("user-%02d", i),
			Score:        float64(i),
			SystemPrompt: "Translate",
			LLMOutput:    fmt.Sprintf("output %d", i),
		}))
	}

	svc := NewLeaderboardService(repo, scoring.ModePromptSimilarity, 10, zerolog.New(io.Discard))

	entries, err := svc.Top(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 10)
	require.Equal(t, "user-15", entries[0].Name)
	require.Equal(t, "output 15", entries[0].LLMOutput)
	require.Equal(t, "Translate", entries[0].SystemPrompt)

	entries, err = svc.Top(ctx, 3)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	entries, err = svc.Top(ctx, 100)
	require.NoError(t, err)
	require.Len(t, entries, 10)

	lengthView := NewLeaderboardService(repo, scoring.ModeLength, 0, zerolog.New(io.Discard))
	require.Equal(t, DefaultLeaderboardLimit, lengthView.Limit())
	entries, err = lengthView.Top(ctx, 1)
	require.NoError(t, err)
	require.Empty(t, entries[0].LLMOutput)
}

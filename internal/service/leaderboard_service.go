package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/noah-isme/prompt-arena/internal/dto"
	"github.com/noah-isme/prompt-arena/internal/repository"
	"github.com/noah-isme/prompt-arena/internal/scoring"
)

// DefaultLeaderboardLimit caps the leaderboard when no limit is configured.
const DefaultLeaderboardLimit = 10

// LeaderboardService reads the ranked view of stored submissions.
type LeaderboardService interface {
	// Top returns up to n entries; n is clamped to [1, limit] and 0 means limit.
	Top(ctx context.Context, n int) ([]dto.LeaderboardEntry, error)
	Limit() int
}

type leaderboardService struct {
	repo   repository.SubmissionRepository
	mode   scoring.Mode
	limit  int
	logger zerolog.Logger
}

// NewLeaderboardService builds a leaderboard reader projecting entries for mode.
func NewLeaderboardService(repo repository.SubmissionRepository, mode scoring.Mode, limit int, logger zerolog.Logger) LeaderboardService {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	return &leaderboardService{
		repo:   repo,
		mode:   mode,
		limit:  limit,
		logger: logger.With().Str("component", "leaderboard_service").Logger(),
	}
}

func (s *leaderboardService) Limit() int {
	return s.limit
}

func (s *leaderboardService) Top(ctx context.Context, n int) ([]dto.LeaderboardEntry, error) {
	if n <= 0 || n > s.limit {
		n = s.limit
	}

	submissions, err := s.repo.TopByScore(ctx, n)
	if err != nil {
		s.logger.Error().Err(err).Int("limit", n).Msg("failed to read leaderboard")
		return nil, err
	}

	return dto.NewLeaderboardEntries(s.mode, submissions), nil
}

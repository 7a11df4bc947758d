package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/prompt-arena/internal/models"
)

func setupSubmissionTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Submission{}))
	return db
}

func repositoriesUnderTest(t *testing.T) map[string]SubmissionRepository {
	return map[string]SubmissionRepository{
		"gorm":   NewSubmissionRepository(setupSubmissionTestDB(t)),
		"memory": NewMemorySubmissionRepository(0),
	}
}

func TestSubmissionRepositoryAppendAssignsDistinctIDs(t *testing.T) {
	for name, repo := range repositoriesUnderTest(t) {
		ctx := context.Background()

		first := models.Submission{Name: "Alice", Prompt: "hello", Score: 5, Mode: "length"}
		second := models.Submission{Name: "Alice", Prompt: "hello", Score: 5, Mode: "length"}
		require.NoError(t, repo.Append(ctx, &first), name)
		require.NoError(t, repo.Append(ctx, &second), name)

		require.NotZero(t, first.ID, name)
		require.Greater(t, second.ID, first.ID, name)

		total, err := repo.Count(ctx)
		require.NoError(t, err, name)
		require.Equal(t, int64(2), total, name)

		require.ErrorIs(t, repo.Append(ctx, nil), ErrNilSubmission, name)
	}
}

func TestSubmissionRepositoryTopByScoreOrdersAndCaps(t *testing.T) {
	for name, repo := range repositoriesUnderTest(t) {
		ctx := context.Background()

		scores := []struct {
			name  string
			score float64
		}{
			{"low", 1},
			{"tie-first", 7},
			{"high", 12},
			{"tie-second", 7},
			{"mid", 3},
		}
		for _, s := range scores {
			require.NoError(t, repo.Append(ctx, &models.Submission{Name: s.name, Score: s.score, Mode: "length"}), name)
		}

		top, err := repo.TopByScore(ctx, 3)
		require.NoError(t, err, name)
		require.Len(t, top, 3, name)
		require.Equal(t, []string{"high", "tie-first", "tie-second"}, submissionNames(top), name)

		all, err := repo.TopByScore(ctx, 0)
		require.NoError(t, err, name)
		require.Len(t, all, 5, name)
		for i := 1; i < len(all); i++ {
			require.GreaterOrEqual(t, all[i-1].Score, all[i].Score, name)
		}

		more, err := repo.TopByScore(ctx, 50)
		require.NoError(t, err, name)
		require.Len(t, more, 5, name)
	}
}

func TestSubmissionRepositoryConcurrentAppendsKeepDistinctIDs(t *testing.T) {
	const writers = 40

	db := setupSubmissionTestDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	repos := map[string]SubmissionRepository{
		"gorm":   NewSubmissionRepository(db),
		"memory": NewMemorySubmissionRepository(0),
	}

	for name, repo := range repos {
		ctx := context.Background()
		ids := make(chan uint, writers)
		errs := make(chan error, writers)

		var wg sync.WaitGroup
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				submission := models.Submission{Name: fmt.Sprintf("writer-%02d", i), Score: float64(i % 5), Mode: "length"}
				if err := repo.Append(ctx, &submission); err != nil {
					errs <- err
					return
				}
				ids <- submission.ID
			}(i)
		}
		wg.Wait()
		close(ids)
		close(errs)

		for err := range errs {
			require.NoError(t, err, name)
		}

		seen := make(map[uint]struct{}, writers)
		for id := range ids {
			require.NotZero(t, id, name)
			seen[id] = struct{}{}
		}
		require.Len(t, seen, writers, name)

		total, err := repo.Count(ctx)
		require.NoError(t, err, name)
		require.Equal(t, int64(writers), total, name)

		all, err := repo.TopByScore(ctx, 0)
		require.NoError(t, err, name)
		require.Len(t, all, writers, name)
	}
}

func TestSubmissionRepositoryPersistsDetails(t *testing.T) {
	db := setupSubmissionTestDB(t)
	repo := NewSubmissionRepository(db)

	submission := models.Submission{
		Name:         "Bob",
		SystemOutput: "Peut-on livrer ?",
		SystemPrompt: "Translate",
		LLMOutput:    "Can it be delivered?",
		Score:        0.82,
		Mode:         "prompt_similarity",
		Details:      datatypes.JSONMap{"provider": "openai"},
	}
	require.NoError(t, repo.Append(context.Background(), &submission))

	var stored models.Submission
	require.NoError(t, db.First(&stored, submission.ID).Error)
	require.Equal(t, "Can it be delivered?", stored.LLMOutput)
	require.Equal(t, "openai", stored.Details["provider"])
	require.False(t, stored.CreatedAt.IsZero())
}

func TestMemorySubmissionRepositoryEvictsLowest(t *testing.T) {
	repo := NewMemorySubmissionRepository(2)
	ctx := context.Background()

	require.NoError(t, repo.Append(ctx, &models.Submission{Name: "a", Score: 2}))
	require.NoError(t, repo.Append(ctx, &models.Submission{Name: "b", Score: 9}))
	require.NoError(t, repo.Append(ctx, &models.Submission{Name: "c", Score: 1}))
	require.NoError(t, repo.Append(ctx, &models.Submission{Name: "d", Score: 5}))

	all, err := repo.TopByScore(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"b", "d"}, submissionNames(all))

	all[0].Name = "mutated"
	again, err := repo.TopByScore(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, "b", again[0].Name)
}

func submissionNames(items []models.Submission) []string {
	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.Name)
	}
	return names
}

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog"

	"github.com/noah-isme/prompt-arena/internal/config"
	"github.com/noah-isme/prompt-arena/internal/database"
	"github.com/noah-isme/prompt-arena/internal/models"
	"github.com/noah-isme/prompt-arena/internal/repository"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	limit := flag.Int("limit", cfg.LeaderboardLimit, "number of entries to show (0 for all)")
	flag.Parse()

	db, err := database.Connect(cfg.DatabaseURL, false)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := db.AutoMigrate(&models.Submission{}); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo := repository.NewSubmissionRepository(db)
	submissions, err := repo.TopByScore(ctx, *limit)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to read leaderboard")
	}
	total, err := repo.Count(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to count submissions")
	}

	render(os.Stdout, submissions, total)
}

func render(w io.Writer, submissions []models.Submission, total int64) {
	color.New(color.FgYellow).Fprintf(w, "\nLeaderboard (%d of %d submissions)\n", len(submissions), total)

	if len(submissions) == 0 {
		color.New(color.FgRed).Fprintln(w, "No submissions yet.")
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Rank", "Name", "Score", "Mode", "Submitted"})
	for i, submission := range submissions {
		table.Append([]string{
			strconv.Itoa(i + 1),
			submission.Name,
			formatScore(submission.Score),
			submission.Mode,
			submission.CreatedAt.Format(time.RFC3339),
		})
	}
	table.Render()
}

func formatScore(score float64) string {
	if score == float64(int64(score)) {
		return strconv.FormatInt(int64(score), 10)
	}
	return fmt.Sprintf("%.4f", score)
}

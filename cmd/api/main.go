package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/prompt-arena/internal/config"
	"github.com/noah-isme/prompt-arena/internal/database"
	"github.com/noah-isme/prompt-arena/internal/handler"
	"github.com/noah-isme/prompt-arena/internal/middleware"
	"github.com/noah-isme/prompt-arena/internal/models"
	"github.com/noah-isme/prompt-arena/internal/repository"
	"github.com/noah-isme/prompt-arena/internal/router"
	"github.com/noah-isme/prompt-arena/internal/scoring"
	"github.com/noah-isme/prompt-arena/internal/service"
	"github.com/noah-isme/prompt-arena/pkg/ai"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.DatabaseURL, cfg.Debug)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	if err := db.AutoMigrate(&models.Submission{}); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to nats")
		}
		defer natsConn.Close()
	}

	mode, err := scoring.ParseMode(cfg.ScoringMode)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid scoring mode")
	}

	challenge, err := scoring.LoadChallenge(cfg.ChallengeFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load challenge")
	}

	deps := scoring.Dependencies{
		Comparer: ai.NewSimilarityClient(ai.SimilarityConfig{
			URL:     cfg.SimilarityURL,
			APIKey:  cfg.SimilarityAPIKey,
			Timeout: cfg.ScoringTimeout,
			Logger:  logger,
		}),
		Generator: newGenerator(cfg, logger),
		Challenge: challenge,
		Timeout:   cfg.ScoringTimeout,
		Limiter:   scoring.NewLimiter(cfg.ScoringRatePerSecond),
	}

	// The quality model must be loaded before the server accepts traffic.
	if mode == scoring.ModeQuality {
		predictor, err := ai.NewQualityClient(ctx, ai.QualityConfig{
			URL:     cfg.QualityURL,
			Model:   cfg.QualityModel,
			Timeout: cfg.ScoringTimeout,
			Logger:  logger,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to load quality model")
		}
		deps.Predictor = predictor
	}

	scorer, err := scoring.New(mode, deps)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build scorer")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	submissionRepo := repository.NewSubmissionRepository(db)
	liveRepo := repository.NewMemorySubmissionRepository(cfg.RealtimeCapacity)

	submissionService := service.NewSubmissionService(submissionRepo, scorer, validate, logger)
	leaderboardService := service.NewLeaderboardService(submissionRepo, mode, cfg.LeaderboardLimit, logger)
	realtimePipeline := service.NewSubmissionService(liveRepo, scorer, validate, logger)
	realtimeService, err := service.NewRealtimeService(realtimePipeline, liveRepo, service.RealtimeOptions{
		Redis:   redisClient,
		NATS:    natsConn,
		Channel: cfg.RealtimeChannel,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create realtime service")
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AccessLog: cfg.Debug})
	router.Register(app, cfg, router.Dependencies{
		SubmissionHandler:  handler.NewSubmissionHandler(submissionService, logger),
		LeaderboardHandler: handler.NewLeaderboardHandler(leaderboardService, logger),
		RealtimeHandler:    handler.NewRealtimeHandler(realtimeService, logger),
		PageHandler:        handler.NewPageHandler(mode, challenge),
	})

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return realtimeService.Start(groupCtx)
	})

	group.Go(func() error {
		logger.Info().Str("addr", cfg.HTTPAddress()).Str("mode", string(mode)).Msg("server starting")
		return app.Listen(cfg.HTTPAddress())
	})

	group.Go(func() error {
		<-groupCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		return app.ShutdownWithContext(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}

	logger.Info().Msg("server stopped")
}

func newGenerator(cfg config.Config, logger zerolog.Logger) ai.Generator {
	switch cfg.GeneratorProvider {
	case "anthropic":
		return ai.NewAnthropicGenerator(ai.AnthropicConfig{
			APIKey: cfg.AnthropicAPIKey,
			Model:  cfg.GeneratorModel,
			Logger: logger,
		})
	case "google":
		return ai.NewGoogleGenerator(ai.GoogleConfig{
			APIKey: cfg.GoogleAPIKey,
			Model:  cfg.GeneratorModel,
			Logger: logger,
		})
	default:
		return ai.NewOpenAIGenerator(ai.OpenAIConfig{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.GeneratorModel,
			Logger: logger,
		})
	}
}

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the arena service.
type Config struct {
	AppName              string
	AppEnv               string
	AppPort              string
	Debug                bool
	DatabaseURL          string
	RedisURL             string
	NATSURL              string
	RealtimeChannel      string
	RealtimeCapacity     int
	ScoringMode          string
	ScoringTimeout       time.Duration
	ScoringRatePerSecond float64
	LeaderboardLimit     int
	SimilarityURL        string
	SimilarityAPIKey     string
	GeneratorProvider    string
	GeneratorModel       string
	OpenAIAPIKey         string
	AnthropicAPIKey      string
	GoogleAPIKey         string
	QualityURL           string
	QualityModel         string
	ChallengeFile        string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("ARENA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Prompt Arena")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "5000")
	v.SetDefault("debug", false)
	v.SetDefault("database.url", "sqlite://submissions.db")
	v.SetDefault("realtime.channel", "arena")
	v.SetDefault("realtime.capacity", 1000)
	v.SetDefault("scoring.mode", "length")
	v.SetDefault("scoring.timeout", "30s")
	v.SetDefault("scoring.rate_per_second", 0)
	v.SetDefault("leaderboard.limit", 10)
	v.SetDefault("similarity.url", "https://api-inference.huggingface.co/models/sentence-transformers/all-MiniLM-L6-v2")
	v.SetDefault("generator.provider", "openai")
	v.SetDefault("quality.model", "Unbabel/wmt22-comet-da")

	// Conventional unprefixed names are honoured as fallbacks.
	fallbacks := map[string]string{
		"app.port":          "PORT",
		"database.url":      "DATABASE_URL",
		"openai_api_key":    "OPENAI_API_KEY",
		"anthropic_api_key": "ANTHROPIC_API_KEY",
		"google_api_key":    "GOOGLE_API_KEY",
	}
	for key, env := range fallbacks {
		prefixed := "ARENA_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, env); err != nil {
			return Config{}, fmt.Errorf("bind %s env: %w", key, err)
		}
	}

	timeout, err := time.ParseDuration(v.GetString("scoring.timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid scoring timeout: %w", err)
	}
	if timeout <= 0 {
		return Config{}, fmt.Errorf("scoring timeout must be positive")
	}

	cfg := Config{
		AppName:              v.GetString("app.name"),
		AppEnv:               v.GetString("app.env"),
		AppPort:              v.GetString("app.port"),
		Debug:                v.GetBool("debug"),
		DatabaseURL:          v.GetString("database.url"),
		RedisURL:             v.GetString("redis.url"),
		NATSURL:              v.GetString("nats.url"),
		RealtimeChannel:      v.GetString("realtime.channel"),
		RealtimeCapacity:     v.GetInt("realtime.capacity"),
		ScoringMode:          strings.ToLower(strings.TrimSpace(v.GetString("scoring.mode"))),
		ScoringTimeout:       timeout,
		ScoringRatePerSecond: v.GetFloat64("scoring.rate_per_second"),
		LeaderboardLimit:     v.GetInt("leaderboard.limit"),
		SimilarityURL:        v.GetString("similarity.url"),
		SimilarityAPIKey:     v.GetString("similarity.api_key"),
		GeneratorProvider:    strings.ToLower(strings.TrimSpace(v.GetString("generator.provider"))),
		GeneratorModel:       v.GetString("generator.model"),
		OpenAIAPIKey:         v.GetString("openai_api_key"),
		AnthropicAPIKey:      v.GetString("anthropic_api_key"),
		GoogleAPIKey:         v.GetString("google_api_key"),
		QualityURL:           v.GetString("quality.url"),
		QualityModel:         v.GetString("quality.model"),
		ChallengeFile:        v.GetString("challenge.file"),
	}

	if cfg.LeaderboardLimit <= 0 {
		return Config{}, fmt.Errorf("leaderboard limit must be a positive integer, got %d", cfg.LeaderboardLimit)
	}

	if cfg.RealtimeCapacity < 0 {
		return Config{}, fmt.Errorf("realtime capacity must not be negative")
	}

	switch cfg.GeneratorProvider {
	case "openai", "anthropic", "google":
	default:
		return Config{}, fmt.Errorf("unknown generator provider %q", cfg.GeneratorProvider)
	}

	if cfg.ScoringMode == "quality" && cfg.QualityURL == "" {
		return Config{}, fmt.Errorf("quality scoring requires ARENA_QUALITY_URL")
	}

	return cfg, nil
}

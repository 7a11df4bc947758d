package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

const googleProvider = "google"

// GoogleConfig configures the Gemini generator.
type GoogleConfig struct {
	APIKey    string
	Model     string
	MaxTokens int32
	Logger    zerolog.Logger
}

// GoogleGenerator implements Generator against the Gemini API. The client is
// created on first use because genai validates credentials at construction.
type GoogleGenerator struct {
	cfg    GoogleConfig
	tracer trace.Tracer
	logger zerolog.Logger

	once      sync.Once
	client    *genai.Client
	clientErr error
}

// NewGoogleGenerator constructs the generator.
func NewGoogleGenerator(cfg GoogleConfig) *GoogleGenerator {
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}

	return &GoogleGenerator{
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/prompt-arena/pkg/ai/google"),
		logger: cfg.Logger.With().Str("component", "google_generator").Logger(),
	}
}

// CheckCredentials reports a configuration error when no API key is set.
func (g *GoogleGenerator) CheckCredentials() error {
	if strings.TrimSpace(g.cfg.APIKey) == "" {
		return ConfigurationError("google generate", "google api key is not configured")
	}
	return nil
}

// Provider names the backing service.
func (g *GoogleGenerator) Provider() string {
	return googleProvider
}

// Generate asks Gemini for a completion. Gemini has no separate system role, so
// the instruction is prepended to the prompt.
func (g *GoogleGenerator) Generate(parent context.Context, req GenerateRequest) (GenerateResult, error) {
	const op = "google generate"

	if err := g.CheckCredentials(); err != nil {
		return GenerateResult{}, err
	}

	client, err := g.ensureClient(parent)
	if err != nil {
		return GenerateResult{}, ConfigurationError(op, err.Error())
	}

	model := req.Model
	if model == "" {
		model = g.cfg.Model
	}

	ctx, span := g.tracer.Start(parent, "google.generate", trace.WithAttributes(
		attribute.String("model", model),
	))
	defer span.End()

	prompt := req.Prompt
	if req.SystemPrompt != "" {
		prompt = fmt.Sprintf("System: %s\n\nUser: %s", req.SystemPrompt, req.Prompt)
	}

	config := &genai.GenerateContentConfig{}
	if g.cfg.MaxTokens > 0 {
		config.MaxOutputTokens = g.cfg.MaxTokens
	}

	start := time.Now()
	resp, err := client.Models.GenerateContent(ctx, model, []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}, config)
	upstreamDuration.WithLabelValues(googleProvider).Observe(time.Since(start).Seconds())
	if err != nil {
		classified := classifyGoogleError(op, err)
		recordFailure(googleProvider, classified)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return GenerateResult{}, classified
	}

	output := strings.TrimSpace(resp.Text())
	if output == "" {
		err := ResponseFormatError(op, 0, "empty response from google")
		recordFailure(googleProvider, err)
		span.SetStatus(codes.Error, err.Error())
		return GenerateResult{}, err
	}

	g.logger.Debug().Str("model", model).Msg("gemini content received")

	return GenerateResult{Text: output, Model: model, Provider: googleProvider}, nil
}

func (g *GoogleGenerator) ensureClient(ctx context.Context) (*genai.Client, error) {
	g.once.Do(func() {
		g.client, g.clientErr = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  g.cfg.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
	})
	return g.client, g.clientErr
}

func classifyGoogleError(op string, err error) error {
	var genaiErr genai.APIError
	if errors.As(err, &genaiErr) {
		message := genaiErr.Message
		if message == "" {
			message = genaiErr.Status
		}
		return &Error{Kind: KindResponseFormat, Op: op, StatusCode: genaiErr.Code, Message: message, Err: err}
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		message := apiErr.Message
		if message == "" && len(apiErr.Errors) > 0 {
			message = apiErr.Errors[0].Message
		}
		return &Error{Kind: KindResponseFormat, Op: op, StatusCode: apiErr.Code, Message: message, Err: err}
	}
	if IsTransportError(err) {
		return NetworkError(op, err)
	}
	return &Error{Kind: KindResponseFormat, Op: op, Message: "unexpected response from google", Err: err}
}

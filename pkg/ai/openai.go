package ai

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const openAIProvider = "openai"

// OpenAIConfig defines configuration options for the OpenAI generator.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float32
	HTTPClient  *http.Client
	Logger      zerolog.Logger
}

// OpenAIGenerator implements Generator against the OpenAI chat completion API.
type OpenAIGenerator struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIGenerator builds a generator. A missing API key is reported on the
// first Generate call so the service can still start and answer other modes.
func NewOpenAIGenerator(cfg OpenAIConfig) *OpenAIGenerator {
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		config.HTTPClient = cfg.HTTPClient
	}

	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(config),
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/prompt-arena/pkg/ai/openai"),
		logger: cfg.Logger.With().Str("component", "openai_generator").Logger(),
	}
}

// CheckCredentials reports a configuration error when no API key is set.
func (g *OpenAIGenerator) CheckCredentials() error {
	if strings.TrimSpace(g.cfg.APIKey) == "" {
		return ConfigurationError("openai generate", "openai api key is not configured")
	}
	return nil
}

// Provider names the backing service.
func (g *OpenAIGenerator) Provider() string {
	return openAIProvider
}

// Generate sends a single-turn chat completion and returns the first choice.
func (g *OpenAIGenerator) Generate(parent context.Context, req GenerateRequest) (GenerateResult, error) {
	const op = "openai generate"

	if err := g.CheckCredentials(); err != nil {
		return GenerateResult{}, err
	}

	model := req.Model
	if model == "" {
		model = g.cfg.Model
	}

	ctx, span := g.tracer.Start(parent, "openai.generate", trace.WithAttributes(
		attribute.String("model", model),
	))
	defer span.End()

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
		Messages:    messages,
	})
	upstreamDuration.WithLabelValues(openAIProvider).Observe(time.Since(start).Seconds())
	if err != nil {
		classified := classifyOpenAIError(op, err)
		recordFailure(openAIProvider, classified)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return GenerateResult{}, classified
	}

	if len(resp.Choices) == 0 {
		err := ResponseFormatError(op, 0, "no choices returned from openai")
		recordFailure(openAIProvider, err)
		span.SetStatus(codes.Error, err.Error())
		return GenerateResult{}, err
	}

	g.logger.Debug().Str("model", model).Int("total_tokens", resp.Usage.TotalTokens).Msg("openai completion received")

	return GenerateResult{
		Text:     strings.TrimSpace(resp.Choices[0].Message.Content),
		Model:    model,
		Provider: openAIProvider,
	}, nil
}

func classifyOpenAIError(op string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &Error{Kind: KindResponseFormat, Op: op, StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &Error{Kind: KindResponseFormat, Op: op, StatusCode: reqErr.HTTPStatusCode, Message: "unexpected response from openai", Err: err}
	}
	if IsTransportError(err) {
		return NetworkError(op, err)
	}
	return &Error{Kind: KindResponseFormat, Op: op, Message: "unexpected response from openai", Err: err}
}

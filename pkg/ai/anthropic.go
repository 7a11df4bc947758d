package ai

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const anthropicProvider = "anthropic"

// AnthropicConfig configures the Anthropic messages generator.
type AnthropicConfig struct {
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int64
	Logger    zerolog.Logger
}

// AnthropicGenerator implements Generator against the Anthropic messages API.
type AnthropicGenerator struct {
	client anthropic.Client
	cfg    AnthropicConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewAnthropicGenerator constructs the generator.
func NewAnthropicGenerator(cfg AnthropicConfig) *AnthropicGenerator {
	if cfg.Model == "" {
		cfg.Model = "claude-3-5-haiku-latest"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey), option.WithMaxRetries(0)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &AnthropicGenerator{
		client: anthropic.NewClient(opts...),
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/prompt-arena/pkg/ai/anthropic"),
		logger: cfg.Logger.With().Str("component", "anthropic_generator").Logger(),
	}
}

// CheckCredentials reports a configuration error when no API key is set.
func (g *AnthropicGenerator) CheckCredentials() error {
	if strings.TrimSpace(g.cfg.APIKey) == "" {
		return ConfigurationError("anthropic generate", "anthropic api key is not configured")
	}
	return nil
}

// Provider names the backing service.
func (g *AnthropicGenerator) Provider() string {
	return anthropicProvider
}

// Generate sends a single user message and concatenates the text blocks of the reply.
func (g *AnthropicGenerator) Generate(parent context.Context, req GenerateRequest) (GenerateResult, error) {
	const op = "anthropic generate"

	if err := g.CheckCredentials(); err != nil {
		return GenerateResult{}, err
	}

	model := req.Model
	if model == "" {
		model = g.cfg.Model
	}

	ctx, span := g.tracer.Start(parent, "anthropic.generate", trace.WithAttributes(
		attribute.String("model", model),
	))
	defer span.End()

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: g.cfg.MaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}

	start := time.Now()
	message, err := g.client.Messages.New(ctx, params)
	upstreamDuration.WithLabelValues(anthropicProvider).Observe(time.Since(start).Seconds())
	if err != nil {
		classified := classifyAnthropicError(op, err)
		recordFailure(anthropicProvider, classified)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return GenerateResult{}, classified
	}

	var text strings.Builder
	for _, block := range message.Content {
		switch content := block.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(content.Text)
		}
	}

	output := strings.TrimSpace(text.String())
	if output == "" {
		err := ResponseFormatError(op, 0, "empty response from anthropic")
		recordFailure(anthropicProvider, err)
		span.SetStatus(codes.Error, err.Error())
		return GenerateResult{}, err
	}

	g.logger.Debug().Str("model", model).Int64("output_tokens", message.Usage.OutputTokens).Msg("anthropic message received")

	return GenerateResult{Text: output, Model: model, Provider: anthropicProvider}, nil
}

func classifyAnthropicError(op string, err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return &Error{Kind: KindResponseFormat, Op: op, StatusCode: apiErr.StatusCode, Message: "anthropic request rejected", Err: err}
	}
	if IsTransportError(err) {
		return NetworkError(op, err)
	}
	return &Error{Kind: KindResponseFormat, Op: op, Message: "unexpected response from anthropic", Err: err}
}

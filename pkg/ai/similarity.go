package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	similarityProvider     = "similarity"
	maxUpstreamBodyBytes   = 1 << 20
	defaultUpstreamTimeout = 30 * time.Second
)

// DefaultSimilarityURL is the hosted sentence-similarity endpoint used when none is configured.
const DefaultSimilarityURL = "https://api-inference.huggingface.co/models/sentence-transformers/all-MiniLM-L6-v2"

// SimilarityConfig configures the embedding-comparison client.
type SimilarityConfig struct {
	URL        string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// SimilarityClient compares a candidate sentence to a reference sentence via a
// hosted sentence-similarity endpoint.
type SimilarityClient struct {
	cfg    SimilarityConfig
	http   *http.Client
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewSimilarityClient constructs the client.
func NewSimilarityClient(cfg SimilarityConfig) *SimilarityClient {
	if cfg.URL == "" {
		cfg.URL = DefaultSimilarityURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultUpstreamTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	return &SimilarityClient{
		cfg:    cfg,
		http:   client,
		tracer: otel.Tracer("github.com/noah-isme/prompt-arena/pkg/ai/similarity"),
		logger: cfg.Logger.With().Str("component", "similarity_client").Logger(),
	}
}

// CheckCredentials reports a configuration error when no API key is set.
func (c *SimilarityClient) CheckCredentials() error {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return ConfigurationError("similarity", "similarity api key is not configured")
	}
	return nil
}

type similarityPayload struct {
	Inputs similarityInputs `json:"inputs"`
}

type similarityInputs struct {
	SourceSentence string   `json:"source_sentence"`
	Sentences      []string `json:"sentences"`
}

// Similarity returns the similarity score of req.Candidate against req.Reference.
func (c *SimilarityClient) Similarity(parent context.Context, req SimilarityRequest) (float64, error) {
	const op = "similarity"

	if err := c.CheckCredentials(); err != nil {
		return 0, err
	}

	ctx, span := c.tracer.Start(parent, "similarity.compare")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	score, err := c.do(ctx, op, req)
	if err != nil {
		recordFailure(similarityProvider, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	c.logger.Debug().Float64("score", score).Msg("similarity computed")
	return score, nil
}

func (c *SimilarityClient) do(ctx context.Context, op string, req SimilarityRequest) (float64, error) {
	body, err := json.Marshal(similarityPayload{Inputs: similarityInputs{
		SourceSentence: req.Reference,
		Sentences:      []string{req.Candidate},
	}})
	if err != nil {
		return 0, &Error{Kind: KindResponseFormat, Op: op, Message: "encode request", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return 0, ConfigurationError(op, fmt.Sprintf("invalid similarity url: %v", err))
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	upstreamDuration.WithLabelValues(similarityProvider).Observe(time.Since(start).Seconds())
	if err != nil {
		return 0, NetworkError(op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamBodyBytes))
	if err != nil {
		return 0, NetworkError(op, err)
	}

	return parseSimilarityResponse(op, resp.StatusCode, raw)
}

func parseSimilarityResponse(op string, status int, raw []byte) (float64, error) {
	if status != http.StatusOK {
		message := "similarity endpoint rejected request"
		if gjson.ValidBytes(raw) {
			if upstream := gjson.GetBytes(raw, "error"); upstream.Exists() && upstream.String() != "" {
				message = fmt.Sprintf("%s: %s", message, upstream.String())
			}
		}
		return 0, &Error{Kind: KindResponseFormat, Op: op, StatusCode: status, Message: message}
	}

	if !gjson.ValidBytes(raw) {
		return 0, ResponseFormatError(op, 0, "similarity response is not valid json")
	}

	parsed := gjson.ParseBytes(raw)
	if !parsed.IsArray() {
		return 0, ResponseFormatError(op, 0, "similarity response is not a list of scores")
	}

	scores := parsed.Array()
	if len(scores) == 0 {
		return 0, ResponseFormatError(op, 0, "similarity response contained no scores")
	}
	if scores[0].Type != gjson.Number {
		return 0, ResponseFormatError(op, 0, fmt.Sprintf("similarity score is not numeric: %s", scores[0].Raw))
	}

	return scores[0].Float(), nil
}
